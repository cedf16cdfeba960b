// Package session runs a classification session. A single goroutine owns the
// polygon store and the editor state and processes events strictly in order.
package session

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/rules"
)

// DefaultField is the metric sampled when none is configured.
const DefaultField = "temperature_2m"

// ErrEmptyField is returned when the sampled field is set to blank.
var ErrEmptyField = eris.New("session: field must not be empty")

// State is the editor state a session carries between events.
type State struct {
	Field     string                `json:"field"`
	Rules     []model.ThresholdRule `json:"rules"`
	TimeRange model.TimeRange       `json:"time_range"`
}

// DefaultState returns the state of a fresh session.
func DefaultState() State {
	return State{
		Field:     DefaultField,
		Rules:     []model.ThresholdRule{},
		TimeRange: model.DefaultTimeRange(),
	}
}

// HourOffset is the offset new polygons are sampled at: the start of the
// selected time range.
func (s State) HourOffset() int {
	return s.TimeRange.Min
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	s.Rules = model.CloneRules(s.Rules)
	return s
}

// Validate checks the field, rules and time range.
func (s State) Validate() error {
	if strings.TrimSpace(s.Field) == "" {
		return ErrEmptyField
	}
	if err := s.TimeRange.Validate(); err != nil {
		return err
	}
	return rules.Validate(s.Rules)
}
