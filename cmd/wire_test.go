package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/polyclass/internal/config"
	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/sampler"
)

func TestBuildFallback(t *testing.T) {
	sc := testSamplerConfig("")
	assert.Equal(t, sampler.FixedFallback{Value: -1}, buildFallback(sc))

	sc.Fallback = config.FallbackRandom
	sc.FallbackMax = 40
	rf, ok := buildFallback(sc).(*sampler.RandomFallback)
	require.True(t, ok)
	assert.Equal(t, 40, rf.Max)
	for i := 0; i < 100; i++ {
		v := rf.Fallback("temperature_2m", 0)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 40.0)
	}
}

func TestBuildSampler_Live(t *testing.T) {
	srv, hits := forecastServer(t)
	sc := testSamplerConfig(srv.URL)
	sc.CacheTTLSecs = 60
	sc.CacheMaxEntries = 16
	a := buildSampler(sc)

	s := a.Resolve(context.Background(), 28.5, 77.2, -24, "temperature_2m")
	assert.Equal(t, sampler.OutcomeLive, s.Outcome)
	assert.Equal(t, 28.5, s.Value)
	assert.Equal(t, 0, s.Hour)

	s = a.Resolve(context.Background(), 28.5, 77.2, -24, "temperature_2m")
	assert.Equal(t, sampler.OutcomeCached, s.Outcome)
	assert.Equal(t, int64(1), hits.Load())
}

func TestBuildSampler_FallbackWhenUnreachable(t *testing.T) {
	a := buildSampler(testSamplerConfig("http://127.0.0.1:1"))

	s := a.Resolve(context.Background(), 1, 2, 5, "temperature_2m")
	assert.Equal(t, sampler.OutcomeFallback, s.Outcome)
	assert.Equal(t, -1.0, s.Value)
	assert.Error(t, s.Err)
}

func TestSessionState(t *testing.T) {
	rs := []model.ThresholdRule{{Operator: model.OpLess, Value: 0, Color: "blue"}}
	st := sessionState(config.SessionConfig{Field: "rain", TimeMin: -6, TimeMax: 6, Rules: rs})

	assert.Equal(t, "rain", st.Field)
	assert.Equal(t, model.TimeRange{Min: -6, Max: 6}, st.TimeRange)
	assert.Equal(t, rs, st.Rules)

	rs[0].Color = "mutated"
	assert.Equal(t, "blue", st.Rules[0].Color)
	assert.NoError(t, st.Validate())
}

func TestSessionState_ClampsTimeRange(t *testing.T) {
	st := sessionState(config.SessionConfig{Field: "rain", TimeMin: -1000, TimeMax: 1000})
	assert.Equal(t, model.TimeRange{Min: model.TimelineMin, Max: model.TimelineMax}, st.TimeRange)

	st = sessionState(config.SessionConfig{Field: "rain", TimeMin: 30, TimeMax: 30})
	assert.Equal(t, model.TimeRange{Min: 30, Max: 31}, st.TimeRange)
	assert.NoError(t, st.Validate())
}
