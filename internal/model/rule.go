package model

import (
	"github.com/rotisserie/eris"
)

// Operator is a comparison applied between a sampled value and a rule threshold.
type Operator string

// Supported threshold operators.
const (
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "="
	OpGreaterEqual Operator = ">="
	OpGreater      Operator = ">"
)

// ErrUnknownOperator is returned when an operator string is not one of the supported comparisons.
var ErrUnknownOperator = eris.New("model: unknown operator")

// Operators lists every supported operator in editor order.
var Operators = []Operator{OpLess, OpLessEqual, OpEqual, OpGreaterEqual, OpGreater}

// ParseOperator validates s as an Operator.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !op.Valid() {
		return "", eris.Wrapf(ErrUnknownOperator, "operator %q", s)
	}
	return op, nil
}

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	switch op {
	case OpLess, OpLessEqual, OpEqual, OpGreaterEqual, OpGreater:
		return true
	default:
		return false
	}
}

// Compare evaluates value <op> threshold. NaN on either side never matches,
// and neither does an unsupported operator.
func (op Operator) Compare(value, threshold float64) bool {
	switch op {
	case OpLess:
		return value < threshold
	case OpLessEqual:
		return value <= threshold
	case OpEqual:
		return value == threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpGreater:
		return value > threshold
	default:
		return false
	}
}

// ThresholdRule maps values satisfying Operator/Value to Color.
// Rules are evaluated in slice order; the first match wins.
type ThresholdRule struct {
	Operator Operator `json:"operator" yaml:"operator"`
	Value    float64  `json:"value" yaml:"value"`
	Color    string   `json:"color" yaml:"color"`
}

// CloneRules returns an independent copy of rules. A nil input yields an empty slice.
func CloneRules(rules []ThresholdRule) []ThresholdRule {
	out := make([]ThresholdRule, len(rules))
	copy(out, rules)
	return out
}
