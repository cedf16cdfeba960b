package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Hour offsets accepted by the forecast collaborator (15 days either side of now).
const (
	TimelineMin = -360
	TimelineMax = 360
)

// ErrInvalidTimeRange is returned for ranges outside the timeline or with Min >= Max.
var ErrInvalidTimeRange = eris.New("model: invalid time range")

// TimeRange is the selected [Min, Max] window of hour offsets relative to now.
type TimeRange struct {
	Min int `json:"min" yaml:"min" mapstructure:"min"`
	Max int `json:"max" yaml:"max" mapstructure:"max"`
}

// DefaultTimeRange is the window selected when a session starts.
func DefaultTimeRange() TimeRange {
	return TimeRange{Min: -24, Max: 24}
}

// Validate checks that both bounds sit on the timeline and are at least one hour apart.
func (r TimeRange) Validate() error {
	if r.Min < TimelineMin || r.Max > TimelineMax {
		return eris.Wrapf(ErrInvalidTimeRange, "[%d, %d] outside [%d, %d]", r.Min, r.Max, TimelineMin, TimelineMax)
	}
	if r.Min >= r.Max {
		return eris.Wrapf(ErrInvalidTimeRange, "min %d must be below max %d", r.Min, r.Max)
	}
	return nil
}

// Clamp pulls both bounds onto the timeline and keeps them one hour apart.
func (r TimeRange) Clamp() TimeRange {
	r.Min = clampInt(r.Min, TimelineMin, TimelineMax-1)
	r.Max = clampInt(r.Max, TimelineMin+1, TimelineMax)
	if r.Max <= r.Min {
		r.Max = r.Min + 1
	}
	return r
}

// Labels returns the timeline labels for both bounds.
func (r TimeRange) Labels() [2]string {
	return [2]string{FormatHourLabel(r.Min), FormatHourLabel(r.Max)}
}

// FormatHourLabel renders an hour offset the way the timeline control does:
// "Today" at zero, otherwise a signed day count (floored) and the hour remainder.
func FormatHourLabel(hour int) string {
	if hour == 0 {
		return "Today"
	}
	day := floorDiv(hour, 24)
	hr := hour % 24
	if hr < 0 {
		hr = -hr
	}
	if hour > 0 {
		return fmt.Sprintf("+%dd %dh", day, hr)
	}
	if day < 0 {
		day = -day
	}
	return fmt.Sprintf("-%dd %dh", day, hr)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
