package sampler

import (
	"context"
	"sync"

	"github.com/sells-group/polyclass/pkg/openmeteo"
)

// fakeSource implements openmeteo.Client for testing.
type fakeSource struct {
	mu       sync.Mutex
	forecast *openmeteo.Forecast
	err      error
	requests []openmeteo.HourlyRequest
}

func (f *fakeSource) Hourly(_ context.Context, req openmeteo.HourlyRequest) (*openmeteo.Forecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.forecast, nil
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// hourlySeries builds a 24-hour forecast whose value at hour h is base+h.
func hourlySeries(field string, base float64) *openmeteo.Forecast {
	series := make([]*float64, 24)
	for h := range series {
		v := base + float64(h)
		series[h] = &v
	}
	return &openmeteo.Forecast{Hourly: map[string][]*float64{field: series}}
}
