// Package metrics exposes Prometheus counters for sampling and classification.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SamplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyclass_samples_total",
		Help: "Value samples by outcome (live, cached, fallback)",
	}, []string{"outcome"})
	SampleDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "polyclass_sample_duration_ms",
		Help:    "Value sample duration in milliseconds, fallbacks included",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})
	PolygonsAdmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "polyclass_polygons_admitted_total",
		Help: "Polygons committed to the store",
	})
	PolygonsRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "polyclass_polygons_rejected_total",
		Help: "Shapes rejected for an out-of-range vertex count",
	})
	PolygonsDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "polyclass_polygons_deleted_total",
		Help: "Polygons removed from the store",
	})
	PolygonsCurrent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "polyclass_polygons",
		Help: "Polygons currently held by the session",
	})
	ReclassificationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "polyclass_reclassifications_total",
		Help: "Apply actions that re-ran the rules over every polygon",
	})
	BreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "polyclass_sampler_breaker_state",
		Help: "Forecast circuit breaker state (0 closed, 1 open, 2 half-open)",
	})
)

func init() {
	prometheus.MustRegister(SamplesTotal)
	prometheus.MustRegister(SampleDurationMs)
	prometheus.MustRegister(PolygonsAdmittedTotal)
	prometheus.MustRegister(PolygonsRejectedTotal)
	prometheus.MustRegister(PolygonsDeletedTotal)
	prometheus.MustRegister(PolygonsCurrent)
	prometheus.MustRegister(ReclassificationsTotal)
	prometheus.MustRegister(BreakerState)
}

// Handler serves the registered metrics.
func Handler() http.Handler { return promhttp.Handler() }
