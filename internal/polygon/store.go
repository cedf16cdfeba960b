// Package polygon owns the session's polygons: admission, deletion and re-classification.
package polygon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/polyclass/internal/metrics"
	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/rules"
)

// Sampler resolves the measured value for a point. It never fails.
type Sampler interface {
	Sample(ctx context.Context, lat, lon float64, hourOffset int, field string) float64
}

// CreateRequest carries everything needed to admit a drawn shape.
type CreateRequest struct {
	Vertices   []model.Coord
	Field      string
	HourOffset int
	Rules      []model.ThresholdRule // rules current at creation time
}

// Restyle instructs the draw surface to recolor one polygon.
type Restyle struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

// Store is the authoritative, insertion-ordered polygon collection.
//
// Store is not safe for concurrent use; the session loop is its only caller.
type Store struct {
	sampler  Sampler
	polygons []model.Polygon

	newID   func() string
	nowFunc func() time.Time
}

// NewStore returns an empty store sampling through s.
func NewStore(s Sampler) *Store {
	return &Store{
		sampler: s,
		newID:   uuid.NewString,
		nowFunc: time.Now,
	}
}

// Validate checks that vertices can form an admissible polygon. Rejections
// are counted.
func (s *Store) Validate(vertices []model.Coord) error {
	if err := model.CheckVertexCount(len(vertices)); err != nil {
		metrics.PolygonsRejectedTotal.Inc()
		zap.L().Debug("polygon: rejected", zap.Int("vertices", len(vertices)))
		return err
	}
	return nil
}

// Create validates, samples the first vertex, classifies and appends the
// polygon. On a *model.VertexCountError the store is left untouched.
func (s *Store) Create(ctx context.Context, req CreateRequest) (model.Polygon, error) {
	if err := s.Validate(req.Vertices); err != nil {
		return model.Polygon{}, err
	}
	first := req.Vertices[0]
	value := s.sampler.Sample(ctx, first.Lat, first.Lon, req.HourOffset, req.Field)
	return s.Commit(req, value), nil
}

// Commit appends a polygon for an already validated and sampled request.
// The color is resolved against req.Rules, which also become the snapshot.
func (s *Store) Commit(req CreateRequest, value float64) model.Polygon {
	vertices := make([]model.Coord, len(req.Vertices))
	copy(vertices, req.Vertices)

	p := model.Polygon{
		ID:            s.newID(),
		Vertices:      vertices,
		Field:         req.Field,
		HourOffset:    req.HourOffset,
		RulesSnapshot: model.CloneRules(req.Rules),
		Color:         rules.ResolveColor(value, req.Rules),
		Value:         value,
		CreatedAt:     s.nowFunc(),
	}
	s.polygons = append(s.polygons, p)

	metrics.PolygonsAdmittedTotal.Inc()
	metrics.PolygonsCurrent.Set(float64(len(s.polygons)))
	zap.L().Info("polygon: admitted",
		zap.String("id", p.ID),
		zap.String("field", p.Field),
		zap.Float64("value", p.Value),
		zap.String("color", p.Color),
		zap.Int("vertices", len(p.Vertices)),
	)
	return p.Clone()
}

// DeleteGeometry removes every polygon whose vertices equal vertices
// position by position, returning the removed polygons in store order.
func (s *Store) DeleteGeometry(vertices []model.Coord) []model.Polygon {
	return s.removeWhere(func(p model.Polygon) bool {
		return model.SameGeometry(p.Vertices, vertices)
	})
}

// DeleteID removes the polygon with the given id.
func (s *Store) DeleteID(id string) bool {
	return len(s.removeWhere(func(p model.Polygon) bool { return p.ID == id })) > 0
}

func (s *Store) removeWhere(match func(model.Polygon) bool) []model.Polygon {
	var removed []model.Polygon
	kept := s.polygons[:0]
	for _, p := range s.polygons {
		if match(p) {
			removed = append(removed, p)
			continue
		}
		kept = append(kept, p)
	}
	// Clear the tail so removed polygons are not retained by the backing array.
	for i := len(kept); i < len(s.polygons); i++ {
		s.polygons[i] = model.Polygon{}
	}
	s.polygons = kept

	if len(removed) > 0 {
		metrics.PolygonsDeletedTotal.Add(float64(len(removed)))
		metrics.PolygonsCurrent.Set(float64(len(s.polygons)))
		for _, p := range removed {
			zap.L().Info("polygon: deleted", zap.String("id", p.ID))
		}
	}
	return removed
}

// ReclassifyAll recolors every polygon from its cached value under rs.
// Values, vertices, ids and fields are untouched, and nothing is re-sampled.
func (s *Store) ReclassifyAll(rs []model.ThresholdRule) []Restyle {
	out := make([]Restyle, len(s.polygons))
	for i := range s.polygons {
		p := &s.polygons[i]
		p.Color = rules.ResolveColor(p.Value, rs)
		out[i] = Restyle{ID: p.ID, Color: p.Color}
	}
	metrics.ReclassificationsTotal.Inc()
	return out
}

// List returns copies of all polygons in insertion order.
func (s *Store) List() []model.Polygon {
	out := make([]model.Polygon, len(s.polygons))
	for i, p := range s.polygons {
		out[i] = p.Clone()
	}
	return out
}

// Get returns the polygon with the given id.
func (s *Store) Get(id string) (model.Polygon, bool) {
	for _, p := range s.polygons {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return model.Polygon{}, false
}

// Len returns the number of stored polygons.
func (s *Store) Len() int {
	return len(s.polygons)
}
