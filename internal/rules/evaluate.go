// Package rules resolves colors from ordered threshold rules and edits rule lists.
package rules

import "github.com/sells-group/polyclass/internal/model"

// DefaultColor is returned when no rule matches a value.
const DefaultColor = "gray"

// Match is the outcome of evaluating a value against a rule list.
type Match struct {
	Color string `json:"color"`
	Index int    `json:"index"` // -1 when no rule matched
}

// Matched reports whether a rule fired.
func (m Match) Matched() bool {
	return m.Index >= 0
}

// Evaluate walks rules in order and returns the first rule whose predicate
// holds for value. Rule order is part of the configuration: later rules are
// only consulted when every earlier one fails.
func Evaluate(value float64, rules []model.ThresholdRule) Match {
	for i, r := range rules {
		if r.Operator.Compare(value, r.Value) {
			return Match{Color: r.Color, Index: i}
		}
	}
	return Match{Color: DefaultColor, Index: -1}
}

// ResolveColor returns the color for value under rules, or DefaultColor.
func ResolveColor(value float64, rules []model.ThresholdRule) string {
	return Evaluate(value, rules).Color
}
