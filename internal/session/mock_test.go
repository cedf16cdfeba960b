package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/polygon"
)

// seqSampler returns values in order, repeating the last one.
type seqSampler struct {
	mu     sync.Mutex
	values []float64
	calls  []sampleCall
}

type sampleCall struct {
	lat, lon   float64
	hourOffset int
	field      string
}

func (s *seqSampler) Sample(_ context.Context, lat, lon float64, hourOffset int, field string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sampleCall{lat: lat, lon: lon, hourOffset: hourOffset, field: field})
	if len(s.values) == 0 {
		return 0
	}
	i := len(s.calls) - 1
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	return s.values[i]
}

func (s *seqSampler) Calls() []sampleCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sampleCall(nil), s.calls...)
}

// gateSampler blocks every sample until a value is sent on release.
type gateSampler struct {
	entered chan sampleCall
	release chan float64
}

func newGateSampler() *gateSampler {
	return &gateSampler{entered: make(chan sampleCall, 8), release: make(chan float64)}
}

func (g *gateSampler) Sample(ctx context.Context, lat, lon float64, hourOffset int, field string) float64 {
	g.entered <- sampleCall{lat: lat, lon: lon, hourOffset: hourOffset, field: field}
	select {
	case v := <-g.release:
		return v
	case <-ctx.Done():
		return -1
	}
}

// latchSampler returns the latitude as the value and holds samples taken at
// latitude held until release is closed.
type latchSampler struct {
	held    float64
	entered chan struct{}
	sampled chan float64
	release chan struct{}
}

func newLatchSampler(held float64) *latchSampler {
	return &latchSampler{
		held:    held,
		entered: make(chan struct{}, 8),
		sampled: make(chan float64, 8),
		release: make(chan struct{}),
	}
}

func (l *latchSampler) Sample(ctx context.Context, lat, _ float64, _ int, _ string) float64 {
	if lat == l.held {
		l.entered <- struct{}{}
		select {
		case <-l.release:
		case <-ctx.Done():
		}
	}
	l.sampled <- lat
	return lat
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting on channel")
	}
	var zero T
	return zero
}

// recordingSurface captures every instruction sent to the draw surface.
type recordingSurface struct {
	mu       sync.Mutex
	restyles []polygon.Restyle
	renders  [][]model.Polygon
	rejects  []Rejection
}

func (r *recordingSurface) Restyle(x polygon.Restyle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restyles = append(r.restyles, x)
}

func (r *recordingSurface) Render(ps []model.Polygon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, ps)
}

func (r *recordingSurface) Reject(x Rejection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejects = append(r.rejects, x)
}

func (r *recordingSurface) counts() (restyles, renders, rejects int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.restyles), len(r.renders), len(r.rejects)
}

// start runs a new orchestrator until the test ends.
func start(t *testing.T, s polygon.Sampler, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New(s, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- o.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-stopped:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("session loop did not stop")
		}
	})
	return o
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// ring returns n distinct vertices offset by shift.
func ring(n int, shift float64) []model.Coord {
	out := make([]model.Coord, n)
	for i := range out {
		out[i] = model.Coord{Lat: shift + float64(i), Lon: shift - float64(i)}
	}
	return out
}
