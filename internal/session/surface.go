package session

import (
	"go.uber.org/zap"

	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/polygon"
)

// Rejection tells the draw surface to discard a shape it just drew.
type Rejection struct {
	Vertices []model.Coord `json:"vertices"`
	Reason   string        `json:"reason"`
}

// Surface receives the instructions the session issues to the draw surface.
// Methods are called from the session loop and must not block.
type Surface interface {
	Restyle(r polygon.Restyle)
	Render(polygons []model.Polygon)
	Reject(r Rejection)
}

// LogSurface writes instructions to the global logger. It is the surface used
// when no interactive client is attached.
type LogSurface struct{}

// Restyle implements Surface.
func (LogSurface) Restyle(r polygon.Restyle) {
	zap.L().Debug("surface: restyle", zap.String("id", r.ID), zap.String("color", r.Color))
}

// Render implements Surface.
func (LogSurface) Render(polygons []model.Polygon) {
	zap.L().Debug("surface: render", zap.Int("polygons", len(polygons)))
}

// Reject implements Surface.
func (LogSurface) Reject(r Rejection) {
	zap.L().Info("surface: shape rejected",
		zap.Int("vertices", len(r.Vertices)),
		zap.String("reason", r.Reason),
	)
}
