// Package api exposes a classification session to the map client over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/polyclass/internal/metrics"
	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/polygon"
	"github.com/sells-group/polyclass/internal/session"
)

// Session is the set of session operations the API drives.
// *session.Orchestrator implements it.
type Session interface {
	CreateShape(ctx context.Context, vertices []model.Coord) (model.Polygon, error)
	DeleteShapes(ctx context.Context, geometries [][]model.Coord) (int, error)
	DeletePolygon(ctx context.Context, id string) (bool, error)
	Apply(ctx context.Context) ([]polygon.Restyle, error)
	ReplaceRules(ctx context.Context, rs []model.ThresholdRule) ([]model.ThresholdRule, error)
	AddRule(ctx context.Context) ([]model.ThresholdRule, error)
	UpdateRule(ctx context.Context, index int, r model.ThresholdRule) ([]model.ThresholdRule, error)
	DeleteRule(ctx context.Context, index int) ([]model.ThresholdRule, error)
	SetField(ctx context.Context, field string) error
	SetTimeRange(ctx context.Context, r model.TimeRange) error
	Snapshot(ctx context.Context) (session.SnapshotResult, error)
}

// NewRouter returns the HTTP handler for s. Browser requests are accepted
// from corsOrigins; an empty list allows any origin.
func NewRouter(s Session, corsOrigins []string) http.Handler {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	h := &handler{session: s}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/session", h.getSession)
	r.Get("/polygons", h.listPolygons)
	r.Delete("/polygons/{id}", h.deletePolygon)

	r.Post("/shapes", h.createShape)
	r.Delete("/shapes", h.deleteShapes)

	r.Route("/rules", func(r chi.Router) {
		r.Get("/", h.getRules)
		r.Put("/", h.replaceRules)
		r.Post("/", h.addRule)
		r.Put("/{index}", h.updateRule)
		r.Delete("/{index}", h.deleteRule)
	})

	r.Put("/field", h.setField)
	r.Put("/timerange", h.setTimeRange)
	r.Post("/apply", h.apply)

	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}
