// Package sampler resolves a measured field value for a point and hour offset,
// substituting a fallback whenever the forecast collaborator cannot answer.
package sampler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/polyclass/internal/metrics"
	"github.com/sells-group/polyclass/internal/resilience"
	"github.com/sells-group/polyclass/pkg/openmeteo"
)

// Outcome records where a sampled value came from.
type Outcome string

// Sample outcomes.
const (
	OutcomeLive     Outcome = "live"
	OutcomeCached   Outcome = "cached"
	OutcomeFallback Outcome = "fallback"
)

// Sample is a resolved value with its provenance.
type Sample struct {
	Value   float64 `json:"value"`
	Hour    int     `json:"hour"`
	Outcome Outcome `json:"outcome"`
	Err     error   `json:"-"` // collaborator failure that triggered the fallback
}

// NormalizeHour maps any hour offset onto an hour of day in [0, 24).
func NormalizeHour(offset int) int {
	return ((offset % 24) + 24) % 24
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithFallback sets the fallback strategy. Defaults to a RandomFallback in [0, 40).
func WithFallback(f FallbackSamplingStrategy) Option {
	return func(a *Adapter) {
		a.fallback = f
	}
}

// WithBreaker guards the collaborator with a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(a *Adapter) {
		a.breaker = b
	}
}

// WithCache memoizes live samples.
func WithCache(c *Cache) Option {
	return func(a *Adapter) {
		a.cache = c
	}
}

// Adapter wraps the forecast client with the fallback policy.
type Adapter struct {
	source   openmeteo.Client
	fallback FallbackSamplingStrategy
	breaker  *resilience.Breaker
	cache    *Cache
}

// New returns an Adapter reading from source.
func New(source openmeteo.Client, opts ...Option) *Adapter {
	a := &Adapter{
		source:   source,
		fallback: NewRandomFallback(DefaultFallbackMax),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sample returns the value of field at the given point and hour offset.
// It never fails; see Resolve for the provenance of the value.
func (a *Adapter) Sample(ctx context.Context, lat, lon float64, hourOffset int, field string) float64 {
	return a.Resolve(ctx, lat, lon, hourOffset, field).Value
}

// Resolve samples like Sample and reports whether the value is live, cached or a fallback.
func (a *Adapter) Resolve(ctx context.Context, lat, lon float64, hourOffset int, field string) Sample {
	start := time.Now()
	hour := NormalizeHour(hourOffset)

	s := a.resolve(ctx, lat, lon, hour, field)

	metrics.SamplesTotal.WithLabelValues(string(s.Outcome)).Inc()
	metrics.SampleDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	if s.Outcome == OutcomeFallback {
		zap.L().Warn("sampler: using fallback value",
			zap.String("field", field),
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Int("hour", hour),
			zap.Float64("value", s.Value),
			zap.Error(s.Err),
		)
	} else {
		zap.L().Debug("sampler: resolved value",
			zap.String("field", field),
			zap.Int("hour", hour),
			zap.String("outcome", string(s.Outcome)),
			zap.Float64("value", s.Value),
		)
	}
	return s
}

func (a *Adapter) resolve(ctx context.Context, lat, lon float64, hour int, field string) Sample {
	if a.cache != nil {
		if v, ok := a.cache.Get(lat, lon, field, hour); ok {
			return Sample{Value: v, Hour: hour, Outcome: OutcomeCached}
		}
	}

	v, err := a.fetch(ctx, lat, lon, hour, field)
	if err != nil {
		return Sample{
			Value:   a.fallback.Fallback(field, hour),
			Hour:    hour,
			Outcome: OutcomeFallback,
			Err:     err,
		}
	}

	if a.cache != nil {
		a.cache.Put(lat, lon, field, hour, v)
	}
	return Sample{Value: v, Hour: hour, Outcome: OutcomeLive}
}

func (a *Adapter) fetch(ctx context.Context, lat, lon float64, hour int, field string) (float64, error) {
	call := func(ctx context.Context) (*openmeteo.Forecast, error) {
		return a.source.Hourly(ctx, openmeteo.HourlyRequest{
			Latitude:     lat,
			Longitude:    lon,
			Fields:       []string{field},
			ForecastDays: 1,
		})
	}

	// A missing field in a well-formed response does not count against the breaker.
	var f *openmeteo.Forecast
	var err error
	if a.breaker != nil {
		f, err = resilience.Guard(ctx, a.breaker, call)
	} else {
		f, err = call(ctx)
	}
	if err != nil {
		return 0, err
	}
	return f.ValueAt(field, hour)
}
