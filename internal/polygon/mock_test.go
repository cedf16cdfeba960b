package polygon

import (
	"context"
	"fmt"
	"time"

	"github.com/sells-group/polyclass/internal/model"
)

// fixedSampler returns value for every point and records the calls.
type fixedSampler struct {
	value float64
	calls []sampleCall
}

type sampleCall struct {
	lat, lon   float64
	hourOffset int
	field      string
}

func (f *fixedSampler) Sample(_ context.Context, lat, lon float64, hourOffset int, field string) float64 {
	f.calls = append(f.calls, sampleCall{lat: lat, lon: lon, hourOffset: hourOffset, field: field})
	return f.value
}

// newTestStore returns a store with sequential ids and a frozen clock.
func newTestStore(s Sampler) *Store {
	st := NewStore(s)
	var n int
	st.newID = func() string {
		n++
		return fmt.Sprintf("p%d", n)
	}
	st.nowFunc = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	return st
}

// ring returns n distinct vertices offset by shift.
func ring(n int, shift float64) []model.Coord {
	out := make([]model.Coord, n)
	for i := range out {
		out[i] = model.Coord{Lat: shift + float64(i), Lon: shift - float64(i)}
	}
	return out
}
