package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/polyclass/internal/export"
	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/polygon"
)

type handler struct {
	session Session
}

type sessionResponse struct {
	Field     string                `json:"field"`
	Rules     []model.ThresholdRule `json:"rules"`
	TimeRange model.TimeRange       `json:"time_range"`
	Labels    [2]string             `json:"labels"`
	Polygons  int                   `json:"polygons"`
}

type shapeRequest struct {
	Vertices []model.Coord `json:"vertices"`
}

type deleteShapesRequest struct {
	Geometries [][]model.Coord `json:"geometries"`
}

type rulesBody struct {
	Rules []model.ThresholdRule `json:"rules"`
}

type fieldBody struct {
	Field string `json:"field"`
}

type applyResponse struct {
	Restyles []polygon.Restyle `json:"restyles"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.session.Snapshot(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Field:     snap.State.Field,
		Rules:     snap.State.Rules,
		TimeRange: snap.State.TimeRange,
		Labels:    snap.State.TimeRange.Labels(),
		Polygons:  len(snap.Polygons),
	})
}

// listPolygons renders the collection as a GeoJSON FeatureCollection.
func (h *handler) listPolygons(w http.ResponseWriter, r *http.Request) {
	snap, err := h.session.Snapshot(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	data, err := export.MarshalGeoJSON(snap.Polygons)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (h *handler) deletePolygon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.session.DeletePolygon(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "polygon not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) createShape(w http.ResponseWriter, r *http.Request) {
	var req shapeRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.session.CreateShape(r.Context(), req.Vertices)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) deleteShapes(w http.ResponseWriter, r *http.Request) {
	var req deleteShapesRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.session.DeleteShapes(r.Context(), req.Geometries)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *handler) getRules(w http.ResponseWriter, r *http.Request) {
	snap, err := h.session.Snapshot(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rulesBody{Rules: snap.State.Rules})
}

func (h *handler) replaceRules(w http.ResponseWriter, r *http.Request) {
	var req rulesBody
	if !decode(w, r, &req) {
		return
	}
	if req.Rules == nil {
		req.Rules = []model.ThresholdRule{}
	}
	h.writeRules(w, func() ([]model.ThresholdRule, error) {
		return h.session.ReplaceRules(r.Context(), req.Rules)
	})
}

func (h *handler) addRule(w http.ResponseWriter, r *http.Request) {
	h.writeRules(w, func() ([]model.ThresholdRule, error) {
		return h.session.AddRule(r.Context())
	})
}

func (h *handler) updateRule(w http.ResponseWriter, r *http.Request) {
	index, ok := ruleIndex(w, r)
	if !ok {
		return
	}
	var rule model.ThresholdRule
	if !decode(w, r, &rule) {
		return
	}
	h.writeRules(w, func() ([]model.ThresholdRule, error) {
		return h.session.UpdateRule(r.Context(), index, rule)
	})
}

func (h *handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	index, ok := ruleIndex(w, r)
	if !ok {
		return
	}
	h.writeRules(w, func() ([]model.ThresholdRule, error) {
		return h.session.DeleteRule(r.Context(), index)
	})
}

func (h *handler) writeRules(w http.ResponseWriter, edit func() ([]model.ThresholdRule, error)) {
	rs, err := edit()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rulesBody{Rules: rs})
}

func ruleIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule index")
		return 0, false
	}
	return index, true
}

func (h *handler) setField(w http.ResponseWriter, r *http.Request) {
	var req fieldBody
	if !decode(w, r, &req) {
		return
	}
	if err := h.session.SetField(r.Context(), req.Field); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) setTimeRange(w http.ResponseWriter, r *http.Request) {
	var req model.TimeRange
	if !decode(w, r, &req) {
		return
	}
	if err := h.session.SetTimeRange(r.Context(), req); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"time_range": req,
		"labels":     req.Labels(),
	})
}

// apply re-runs the current rules over every polygon. Nothing is re-sampled.
func (h *handler) apply(w http.ResponseWriter, r *http.Request) {
	restyles, err := h.session.Apply(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applyResponse{Restyles: restyles})
}
