package sampler

import "math/rand"

// FallbackSamplingStrategy produces the value used when the forecast
// collaborator cannot supply one. Creation never blocks on sampling
// failures: the classification engine always gets some number.
type FallbackSamplingStrategy interface {
	Fallback(field string, hour int) float64
}

// DefaultFallbackMax bounds RandomFallback values to [0, 40).
const DefaultFallbackMax = 40

// RandomFallback returns a uniform integer in [0, Max).
type RandomFallback struct {
	Max int

	// intN is replaced in tests; nil means math/rand.
	intN func(n int) int
}

// NewRandomFallback returns a RandomFallback bounded by limit (DefaultFallbackMax when limit <= 0).
func NewRandomFallback(limit int) *RandomFallback {
	if limit <= 0 {
		limit = DefaultFallbackMax
	}
	return &RandomFallback{Max: limit}
}

// Fallback implements FallbackSamplingStrategy.
func (r *RandomFallback) Fallback(string, int) float64 {
	limit := r.Max
	if limit <= 0 {
		limit = DefaultFallbackMax
	}
	intN := r.intN
	if intN == nil {
		intN = rand.Intn
	}
	return float64(intN(limit))
}

// FixedFallback always returns Value.
type FixedFallback struct {
	Value float64
}

// Fallback implements FallbackSamplingStrategy.
func (f FixedFallback) Fallback(string, int) float64 {
	return f.Value
}
