package model

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// Vertex bounds for a drawable polygon.
const (
	MinVertices = 3
	MaxVertices = 12
)

// ErrVertexCount is the sentinel matched by every VertexCountError.
var ErrVertexCount = eris.New("polygon must have between 3 and 12 points")

// VertexCountError reports a shape whose vertex count is outside [MinVertices, MaxVertices].
type VertexCountError struct {
	Count int
}

func (e *VertexCountError) Error() string {
	return fmt.Sprintf("polygon must have between %d and %d points, got %d", MinVertices, MaxVertices, e.Count)
}

// Is lets errors.Is(err, ErrVertexCount) match any VertexCountError.
func (e *VertexCountError) Is(target error) bool {
	return target == ErrVertexCount
}

// CheckVertexCount returns a *VertexCountError when n is out of range.
func CheckVertexCount(n int) error {
	if n < MinVertices || n > MaxVertices {
		return &VertexCountError{Count: n}
	}
	return nil
}

// Coord is a WGS84 latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Equal reports exact coordinate equality.
func (c Coord) Equal(o Coord) bool {
	return c.Lat == o.Lat && c.Lon == o.Lon
}

// SameGeometry reports whether a and b hold the same vertices in the same
// positions. Rotated or reversed rings are different geometries.
func SameGeometry(a, b []Coord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Polygon is a classified user-drawn shape.
type Polygon struct {
	ID            string          `json:"id"`
	Vertices      []Coord         `json:"vertices"`
	Field         string          `json:"field"`
	HourOffset    int             `json:"hour_offset"`
	RulesSnapshot []ThresholdRule `json:"rules_snapshot"` // rules in effect when Value was resolved
	Color         string          `json:"color"`
	Value         float64         `json:"value"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Clone returns a deep copy of p.
func (p Polygon) Clone() Polygon {
	out := p
	out.Vertices = make([]Coord, len(p.Vertices))
	copy(out.Vertices, p.Vertices)
	out.RulesSnapshot = CloneRules(p.RulesSnapshot)
	return out
}
