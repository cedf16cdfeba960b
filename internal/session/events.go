package session

import (
	"context"

	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/polygon"
)

// Event is a message processed by the session loop. Events built outside
// this package are fire-and-forget; the Orchestrator methods attach a reply
// channel and wait on it.
type Event interface {
	handle(ctx context.Context, o *Orchestrator)
}

// CreateResult is the outcome of a ShapeCreated event.
type CreateResult struct {
	Polygon model.Polygon
	Err     error
}

// RulesResult carries the rule set after an edit, or the edit error.
type RulesResult struct {
	Rules []model.ThresholdRule
	Err   error
}

// ApplyResult carries the restyle instructions of an apply.
type ApplyResult struct {
	Restyles []polygon.Restyle
	Err      error
}

// SnapshotResult is a consistent copy of the session.
type SnapshotResult struct {
	State    State
	Polygons []model.Polygon
}

// ShapeCreated is posted when the user finishes drawing a shape. The reply
// is sent once the shape is committed, rejected or deleted while pending.
type ShapeCreated struct {
	Vertices []model.Coord
	reply    chan<- CreateResult
}

// ShapesDeleted is posted when the user erases shapes. Geometries are
// matched position by position against committed polygons and pending
// creations; the reply is the number of shapes removed.
type ShapesDeleted struct {
	Geometries [][]model.Coord
	reply      chan<- int
}

// PolygonDeleted removes one polygon by id.
type PolygonDeleted struct {
	ID    string
	reply chan<- bool
}

// ApplyClicked re-classifies every polygon from its cached value. A nil
// Rules applies the session's current rules; a non-nil Rules (including an
// empty slice) first replaces them.
type ApplyClicked struct {
	Rules []model.ThresholdRule
	reply chan<- ApplyResult
}

// RulesReplaced swaps the whole rule list. Polygons keep their colors until
// the next apply.
type RulesReplaced struct {
	Rules []model.ThresholdRule
	reply chan<- RulesResult
}

// RuleAdded appends the editor's default rule.
type RuleAdded struct {
	reply chan<- RulesResult
}

// RuleUpdated replaces the rule at Index.
type RuleUpdated struct {
	Index int
	Rule  model.ThresholdRule
	reply chan<- RulesResult
}

// RuleDeleted removes the rule at Index.
type RuleDeleted struct {
	Index int
	reply chan<- RulesResult
}

// FieldChanged selects the metric sampled for new polygons.
type FieldChanged struct {
	Field string
	reply chan<- error
}

// TimeRangeChanged selects the timeline window. New polygons are sampled at
// its lower bound.
type TimeRangeChanged struct {
	Range model.TimeRange
	reply chan<- error
}

// Snapshot asks for a copy of the state and the polygons.
type Snapshot struct {
	reply chan<- SnapshotResult
}

// shapeSampled settles the pending creation with sequence number seq.
type shapeSampled struct {
	seq   uint64
	value float64
}

func (e ShapeCreated) handle(ctx context.Context, o *Orchestrator)   { o.onShapeCreated(ctx, e) }
func (e shapeSampled) handle(_ context.Context, o *Orchestrator)     { o.onShapeSampled(e) }
func (e ShapesDeleted) handle(_ context.Context, o *Orchestrator)    { o.onShapesDeleted(e) }
func (e PolygonDeleted) handle(_ context.Context, o *Orchestrator)   { o.onPolygonDeleted(e) }
func (e ApplyClicked) handle(_ context.Context, o *Orchestrator)     { o.onApplyClicked(e) }
func (e RulesReplaced) handle(_ context.Context, o *Orchestrator)    { o.onRulesReplaced(e) }
func (e RuleAdded) handle(_ context.Context, o *Orchestrator)        { o.onRuleAdded(e) }
func (e RuleUpdated) handle(_ context.Context, o *Orchestrator)      { o.onRuleUpdated(e) }
func (e RuleDeleted) handle(_ context.Context, o *Orchestrator)      { o.onRuleDeleted(e) }
func (e FieldChanged) handle(_ context.Context, o *Orchestrator)     { o.onFieldChanged(e) }
func (e TimeRangeChanged) handle(_ context.Context, o *Orchestrator) { o.onTimeRangeChanged(e) }
func (e Snapshot) handle(_ context.Context, o *Orchestrator)         { o.onSnapshot(e) }

// reply delivers v without blocking the loop. Channels created by call
// always have room for it.
func reply[T any](ch chan<- T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}
