package session

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/polygon"
)

// call posts the event built around a fresh reply channel and waits for the
// loop's answer.
func call[T any](ctx context.Context, o *Orchestrator, build func(chan<- T) Event) (T, error) {
	var zero T
	ch := make(chan T, 1)
	if err := o.Post(ctx, build(ch)); err != nil {
		return zero, err
	}
	select {
	case v := <-ch:
		return v, nil
	case <-o.done:
		select {
		case v := <-ch:
			return v, nil
		default:
			return zero, ErrStopped
		}
	case <-ctx.Done():
		return zero, eris.Wrap(ctx.Err(), "session: await reply")
	}
}

// CreateShape admits a drawn shape and waits until it is committed. A
// *model.VertexCountError is returned for shapes outside 3..12 vertices.
func (o *Orchestrator) CreateShape(ctx context.Context, vertices []model.Coord) (model.Polygon, error) {
	res, err := call(ctx, o, func(ch chan<- CreateResult) Event {
		return ShapeCreated{Vertices: vertices, reply: ch}
	})
	if err != nil {
		return model.Polygon{}, err
	}
	return res.Polygon, res.Err
}

// DeleteShapes removes polygons matching any of geometries and returns how
// many were removed.
func (o *Orchestrator) DeleteShapes(ctx context.Context, geometries [][]model.Coord) (int, error) {
	return call(ctx, o, func(ch chan<- int) Event {
		return ShapesDeleted{Geometries: geometries, reply: ch}
	})
}

// DeletePolygon removes the polygon with id.
func (o *Orchestrator) DeletePolygon(ctx context.Context, id string) (bool, error) {
	return call(ctx, o, func(ch chan<- bool) Event {
		return PolygonDeleted{ID: id, reply: ch}
	})
}

// Apply re-classifies every polygon with the current rules.
func (o *Orchestrator) Apply(ctx context.Context) ([]polygon.Restyle, error) {
	return o.apply(ctx, nil)
}

// ApplyRules makes rs the active rule set and re-classifies every polygon
// from its cached value. Nothing is re-sampled.
func (o *Orchestrator) ApplyRules(ctx context.Context, rs []model.ThresholdRule) ([]polygon.Restyle, error) {
	return o.apply(ctx, model.CloneRules(rs))
}

func (o *Orchestrator) apply(ctx context.Context, rs []model.ThresholdRule) ([]polygon.Restyle, error) {
	res, err := call(ctx, o, func(ch chan<- ApplyResult) Event {
		return ApplyClicked{Rules: rs, reply: ch}
	})
	if err != nil {
		return nil, err
	}
	return res.Restyles, res.Err
}

// ReplaceRules swaps the rule list. Colors change on the next apply.
func (o *Orchestrator) ReplaceRules(ctx context.Context, rs []model.ThresholdRule) ([]model.ThresholdRule, error) {
	return o.editRules(ctx, func(ch chan<- RulesResult) Event {
		return RulesReplaced{Rules: rs, reply: ch}
	})
}

// AddRule appends the editor's default rule.
func (o *Orchestrator) AddRule(ctx context.Context) ([]model.ThresholdRule, error) {
	return o.editRules(ctx, func(ch chan<- RulesResult) Event {
		return RuleAdded{reply: ch}
	})
}

// UpdateRule replaces the rule at index.
func (o *Orchestrator) UpdateRule(ctx context.Context, index int, r model.ThresholdRule) ([]model.ThresholdRule, error) {
	return o.editRules(ctx, func(ch chan<- RulesResult) Event {
		return RuleUpdated{Index: index, Rule: r, reply: ch}
	})
}

// DeleteRule removes the rule at index.
func (o *Orchestrator) DeleteRule(ctx context.Context, index int) ([]model.ThresholdRule, error) {
	return o.editRules(ctx, func(ch chan<- RulesResult) Event {
		return RuleDeleted{Index: index, reply: ch}
	})
}

func (o *Orchestrator) editRules(ctx context.Context, build func(chan<- RulesResult) Event) ([]model.ThresholdRule, error) {
	res, err := call(ctx, o, build)
	if err != nil {
		return nil, err
	}
	return res.Rules, res.Err
}

// SetField selects the metric sampled for new polygons.
func (o *Orchestrator) SetField(ctx context.Context, field string) error {
	res, err := call(ctx, o, func(ch chan<- error) Event {
		return FieldChanged{Field: field, reply: ch}
	})
	if err != nil {
		return err
	}
	return res
}

// SetTimeRange selects the timeline window.
func (o *Orchestrator) SetTimeRange(ctx context.Context, r model.TimeRange) error {
	res, err := call(ctx, o, func(ch chan<- error) Event {
		return TimeRangeChanged{Range: r, reply: ch}
	})
	if err != nil {
		return err
	}
	return res
}

// Snapshot returns a consistent copy of the state and polygons.
func (o *Orchestrator) Snapshot(ctx context.Context) (SnapshotResult, error) {
	return call(ctx, o, func(ch chan<- SnapshotResult) Event {
		return Snapshot{reply: ch}
	})
}
