package rules

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/polyclass/internal/model"
)

// Errors returned by the rule editor operations.
var (
	ErrRuleIndex = eris.New("rules: index out of range")
	ErrRuleValue = eris.New("rules: threshold must be a finite number")
)

// NewRule is the rule the editor appends when the user adds a row.
func NewRule() model.ThresholdRule {
	return model.ThresholdRule{Operator: model.OpLess, Value: 10, Color: "#ff0000"}
}

// Validate checks every rule's operator and threshold. Duplicate or
// unreachable rules are legal and not reported.
func Validate(rs []model.ThresholdRule) error {
	for i, r := range rs {
		if err := validateRule(r); err != nil {
			return eris.Wrapf(err, "rule %d", i)
		}
	}
	return nil
}

// Add returns a copy of rs with NewRule appended.
func Add(rs []model.ThresholdRule) []model.ThresholdRule {
	return append(model.CloneRules(rs), NewRule())
}

// Update returns a copy of rs with the rule at index replaced.
func Update(rs []model.ThresholdRule, index int, r model.ThresholdRule) ([]model.ThresholdRule, error) {
	if index < 0 || index >= len(rs) {
		return nil, eris.Wrapf(ErrRuleIndex, "update %d of %d", index, len(rs))
	}
	if err := validateRule(r); err != nil {
		return nil, err
	}
	out := model.CloneRules(rs)
	out[index] = r
	return out, nil
}

// Delete returns a copy of rs without the rule at index.
func Delete(rs []model.ThresholdRule, index int) ([]model.ThresholdRule, error) {
	if index < 0 || index >= len(rs) {
		return nil, eris.Wrapf(ErrRuleIndex, "delete %d of %d", index, len(rs))
	}
	out := make([]model.ThresholdRule, 0, len(rs)-1)
	out = append(out, rs[:index]...)
	return append(out, rs[index+1:]...), nil
}

func validateRule(r model.ThresholdRule) error {
	if !r.Operator.Valid() {
		return eris.Wrapf(model.ErrUnknownOperator, "operator %q", r.Operator)
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return ErrRuleValue
	}
	return nil
}
