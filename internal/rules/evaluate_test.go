package rules

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/polyclass/internal/model"
)

func rule(op model.Operator, v float64, color string) model.ThresholdRule {
	return model.ThresholdRule{Operator: op, Value: v, Color: color}
}

func TestResolveColor(t *testing.T) {
	hotWarm := []model.ThresholdRule{
		rule(model.OpGreater, 30, "red"),
		rule(model.OpGreater, 20, "orange"),
	}

	tests := []struct {
		name  string
		value float64
		rules []model.ThresholdRule
		want  string
	}{
		{"second rule matches", 25, hotWarm, "orange"},
		{"first rule matches", 31, hotWarm, "red"},
		{"no rule matches", 20, hotWarm, DefaultColor},
		{"empty rules", 25, nil, DefaultColor},
		{"empty rules large value", 1e9, []model.ThresholdRule{}, DefaultColor},
		{
			"order decides overlapping rules",
			5,
			[]model.ThresholdRule{rule(model.OpLess, 10, "red"), rule(model.OpLess, 20, "blue")},
			"red",
		},
		{"le boundary matches", 10, []model.ThresholdRule{rule(model.OpLessEqual, 10, "green")}, "green"},
		{"le just above", 10.0001, []model.ThresholdRule{rule(model.OpLessEqual, 10, "green")}, DefaultColor},
		{"equal", 7, []model.ThresholdRule{rule(model.OpEqual, 7, "blue")}, "blue"},
		{"ge boundary", 7, []model.ThresholdRule{rule(model.OpGreaterEqual, 7, "blue")}, "blue"},
		{"lt boundary excluded", 7, []model.ThresholdRule{rule(model.OpLess, 7, "blue")}, DefaultColor},
		{
			"duplicates are legal, first wins",
			1,
			[]model.ThresholdRule{rule(model.OpLess, 5, "a"), rule(model.OpLess, 5, "b")},
			"a",
		},
		{
			"unknown operator skipped",
			1,
			[]model.ThresholdRule{rule("!", 5, "a"), rule(model.OpLess, 5, "b")},
			"b",
		},
		{
			"NaN falls through",
			math.NaN(),
			[]model.ThresholdRule{rule(model.OpLess, 5, "a"), rule(model.OpGreaterEqual, 5, "b")},
			DefaultColor,
		},
		{"positive infinity", math.Inf(1), []model.ThresholdRule{rule(model.OpGreater, 100, "hot")}, "hot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveColor(tt.value, tt.rules))
		})
	}
}

func TestEvaluate_ReportsIndex(t *testing.T) {
	rs := []model.ThresholdRule{
		rule(model.OpGreater, 30, "red"),
		rule(model.OpGreater, 20, "orange"),
	}

	m := Evaluate(25, rs)
	assert.Equal(t, 1, m.Index)
	assert.True(t, m.Matched())

	m = Evaluate(0, rs)
	assert.Equal(t, -1, m.Index)
	assert.False(t, m.Matched())
	assert.Equal(t, DefaultColor, m.Color)
}

// The first rule in order whose predicate holds always decides, for any value.
func TestResolveColor_FirstMatchProperty(t *testing.T) {
	rs := []model.ThresholdRule{
		rule(model.OpGreaterEqual, 35, "c1"),
		rule(model.OpGreater, 20, "c2"),
		rule(model.OpEqual, 20, "c3"),
		rule(model.OpLessEqual, 0, "c4"),
		rule(model.OpLess, 10, "c5"),
	}
	for v := -10.0; v <= 50; v += 0.5 {
		want := DefaultColor
		for _, r := range rs {
			if r.Operator.Compare(v, r.Value) {
				want = r.Color
				break
			}
		}
		assert.Equal(t, want, ResolveColor(v, rs), "value %v", v)
	}
}
