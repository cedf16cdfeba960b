package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/polyclass/internal/config"
)

// forecastServer fakes the forecast API. Every hour of the requested field
// holds the request latitude, so tests control values through geometry.
func forecastServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/v1/forecast" {
			http.NotFound(w, r)
			return
		}
		lat, err := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":true,"reason":"bad latitude"}`))
			return
		}
		series := make([]float64, 24)
		for i := range series {
			series[i] = lat
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"latitude": lat,
			"timezone": "UTC",
			"hourly":   map[string]any{r.URL.Query().Get("hourly"): series},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testSamplerConfig(baseURL string) config.SamplerConfig {
	return config.SamplerConfig{
		BaseURL:                 baseURL,
		TimeoutSecs:             5,
		RateLimit:               1000,
		MaxAttempts:             1,
		Fallback:                config.FallbackFixed,
		FallbackValue:           -1,
		CircuitFailureThreshold: 5,
		CircuitResetSecs:        30,
	}
}

// getFreePort returns a free TCP port on localhost.
func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port
}
