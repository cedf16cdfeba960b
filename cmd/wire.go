package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/polyclass/internal/config"
	"github.com/sells-group/polyclass/internal/metrics"
	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/resilience"
	"github.com/sells-group/polyclass/internal/sampler"
	"github.com/sells-group/polyclass/internal/session"
	"github.com/sells-group/polyclass/pkg/openmeteo"
)

// buildSampler assembles the forecast client, breaker, cache and fallback
// described by sc.
func buildSampler(sc config.SamplerConfig) *sampler.Adapter {
	retry := resilience.DefaultRetryPolicy()
	retry.MaxAttempts = sc.MaxAttempts
	retry.OnRetry = resilience.LogRetry("openmeteo")

	client := openmeteo.NewClient(
		openmeteo.WithBaseURL(sc.BaseURL),
		openmeteo.WithHTTPClient(&http.Client{Timeout: time.Duration(sc.TimeoutSecs) * time.Second}),
		openmeteo.WithRateLimit(sc.RateLimit),
		openmeteo.WithRetryPolicy(retry),
	)

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		FailureThreshold: sc.CircuitFailureThreshold,
		Cooldown:         time.Duration(sc.CircuitResetSecs) * time.Second,
		OnStateChange: func(from, to resilience.State) {
			metrics.BreakerState.Set(float64(to))
			zap.L().Warn("sampler: circuit state changed",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	opts := []sampler.Option{
		sampler.WithBreaker(breaker),
		sampler.WithFallback(buildFallback(sc)),
	}
	if sc.CacheTTLSecs > 0 && sc.CacheMaxEntries > 0 {
		opts = append(opts, sampler.WithCache(sampler.NewCache(sc.CacheMaxEntries, time.Duration(sc.CacheTTLSecs)*time.Second)))
	}
	return sampler.New(client, opts...)
}

func buildFallback(sc config.SamplerConfig) sampler.FallbackSamplingStrategy {
	if sc.Fallback == config.FallbackFixed {
		return sampler.FixedFallback{Value: sc.FallbackValue}
	}
	return sampler.NewRandomFallback(sc.FallbackMax)
}

// sessionState is the state a served session starts from. Configured bounds
// are pulled onto the timeline the way the slider would hold them.
func sessionState(sc config.SessionConfig) session.State {
	return session.State{
		Field:     sc.Field,
		Rules:     model.CloneRules(sc.Rules),
		TimeRange: sc.TimeRange().Clamp(),
	}
}
