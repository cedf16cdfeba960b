package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/polygon"
	"github.com/sells-group/polyclass/internal/rules"
)

const defaultQueueSize = 64

// Errors returned by the orchestrator.
var (
	ErrStopped        = eris.New("session: loop stopped")
	ErrAlreadyRunning = eris.New("session: loop already running")
	ErrShapeDeleted   = eris.New("session: shape deleted before commit")
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithState starts the session from s instead of DefaultState.
func WithState(s State) Option {
	return func(o *Orchestrator) { o.state = s.Clone() }
}

// WithSurface sets the draw surface instructions are sent to.
func WithSurface(s Surface) Option {
	return func(o *Orchestrator) { o.surface = s }
}

// WithQueueSize sets the event queue capacity.
func WithQueueSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// Orchestrator owns a session's polygons and editor state. All mutation
// happens on the goroutine running Run; other goroutines talk to it by
// posting events.
type Orchestrator struct {
	sampler polygon.Sampler
	store   *polygon.Store
	surface Surface
	state   State

	queueSize int
	events    chan Event
	done      chan struct{}
	started   atomic.Bool
	inflight  sync.WaitGroup

	// pending holds admitted creations in draw order; only the loop touches it.
	pending []*pendingShape
	nextSeq uint64
}

// pendingShape is an admitted creation waiting for its sample.
type pendingShape struct {
	seq     uint64
	req     polygon.CreateRequest
	reply   chan<- CreateResult
	settled bool
	value   float64
}

// New creates an orchestrator sampling through s. The loop does not run
// until Run is called.
func New(s polygon.Sampler, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		sampler:   s,
		store:     polygon.NewStore(s),
		surface:   LogSurface{},
		state:     DefaultState(),
		queueSize: defaultQueueSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.state.Rules == nil {
		o.state.Rules = []model.ThresholdRule{}
	}
	if err := o.state.Validate(); err != nil {
		return nil, eris.Wrap(err, "session: initial state")
	}
	o.events = make(chan Event, o.queueSize)
	return o, nil
}

// Run processes events until ctx is cancelled. Creations and deletions
// reach the store in the order their events are processed, however long
// each sample takes. In-flight samples are abandoned on cancellation and
// their shapes are never committed.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(o.done)

	zap.L().Info("session: loop started",
		zap.String("field", o.state.Field),
		zap.Int("rules", len(o.state.Rules)),
		zap.Int("hour_offset", o.state.HourOffset()),
	)
	for {
		select {
		case <-ctx.Done():
			o.inflight.Wait()
			zap.L().Info("session: loop stopped", zap.Int("polygons", o.store.Len()))
			return nil
		case ev := <-o.events:
			ev.handle(ctx, o)
		}
	}
}

// Post enqueues ev. It blocks while the queue is full.
func (o *Orchestrator) Post(ctx context.Context, ev Event) error {
	select {
	case <-o.done:
		return ErrStopped
	default:
	}
	select {
	case o.events <- ev:
		return nil
	case <-o.done:
		return ErrStopped
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "session: post event")
	}
}

// applyRules makes rs the active rule set and re-classifies every polygon.
// It must only be called from the loop.
func (o *Orchestrator) applyRules(rs []model.ThresholdRule) []polygon.Restyle {
	o.state.Rules = model.CloneRules(rs)
	restyles := o.store.ReclassifyAll(o.state.Rules)
	for _, r := range restyles {
		o.surface.Restyle(r)
	}
	zap.L().Info("session: rules applied",
		zap.Int("rules", len(o.state.Rules)),
		zap.Int("polygons", len(restyles)),
	)
	return restyles
}

func (o *Orchestrator) onShapeCreated(ctx context.Context, e ShapeCreated) {
	if err := o.store.Validate(e.Vertices); err != nil {
		o.surface.Reject(Rejection{Vertices: cloneCoords(e.Vertices), Reason: err.Error()})
		reply(e.reply, CreateResult{Err: err})
		return
	}

	// Field and hour are fixed when the shape is drawn; rules are read when
	// the shape commits.
	o.nextSeq++
	ps := &pendingShape{
		seq: o.nextSeq,
		req: polygon.CreateRequest{
			Vertices:   cloneCoords(e.Vertices),
			Field:      o.state.Field,
			HourOffset: o.state.HourOffset(),
		},
		reply: e.reply,
	}
	o.pending = append(o.pending, ps)

	seq, req := ps.seq, ps.req
	first := req.Vertices[0]
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		value := o.sampler.Sample(ctx, first.Lat, first.Lon, req.HourOffset, req.Field)
		select {
		case o.events <- shapeSampled{seq: seq, value: value}:
		case <-ctx.Done():
		}
	}()
}

func (o *Orchestrator) onShapeSampled(e shapeSampled) {
	for _, ps := range o.pending {
		if ps.seq == e.seq {
			ps.settled, ps.value = true, e.value
			break
		}
	}
	// A sample for a shape deleted while pending finds no entry.
	o.commitSettled()
}

// commitSettled commits settled creations from the head of the pending
// queue. A creation drawn earlier holds back every later one until its own
// sample arrives.
func (o *Orchestrator) commitSettled() {
	var committed int
	for len(o.pending) > 0 && o.pending[0].settled {
		ps := o.pending[0]
		o.pending[0] = nil
		o.pending = o.pending[1:]

		ps.req.Rules = o.state.Rules
		p := o.store.Commit(ps.req, ps.value)
		o.surface.Restyle(polygon.Restyle{ID: p.ID, Color: p.Color})
		reply(ps.reply, CreateResult{Polygon: p})
		committed++
	}
	if committed > 0 {
		o.surface.Render(o.store.List())
	}
}

// cancelPending drops pending creations drawn with vertices and tells their
// callers the shape is gone.
func (o *Orchestrator) cancelPending(vertices []model.Coord) int {
	kept := o.pending[:0]
	for _, ps := range o.pending {
		if model.SameGeometry(ps.req.Vertices, vertices) {
			zap.L().Debug("session: pending shape deleted", zap.Uint64("seq", ps.seq))
			reply(ps.reply, CreateResult{Err: ErrShapeDeleted})
			continue
		}
		kept = append(kept, ps)
	}
	n := len(o.pending) - len(kept)
	clear(o.pending[len(kept):])
	o.pending = kept
	return n
}

func (o *Orchestrator) onShapesDeleted(e ShapesDeleted) {
	var stored, pending int
	for _, g := range e.Geometries {
		stored += len(o.store.DeleteGeometry(g))
		pending += o.cancelPending(g)
	}
	if stored > 0 {
		o.surface.Render(o.store.List())
	}
	if pending > 0 {
		o.commitSettled()
	}
	reply(e.reply, stored+pending)
}

func (o *Orchestrator) onPolygonDeleted(e PolygonDeleted) {
	ok := o.store.DeleteID(e.ID)
	if ok {
		o.surface.Render(o.store.List())
	}
	reply(e.reply, ok)
}

func (o *Orchestrator) onApplyClicked(e ApplyClicked) {
	rs := o.state.Rules
	if e.Rules != nil {
		if err := rules.Validate(e.Rules); err != nil {
			reply(e.reply, ApplyResult{Err: err})
			return
		}
		rs = e.Rules
	}
	reply(e.reply, ApplyResult{Restyles: o.applyRules(rs)})
}

func (o *Orchestrator) onRulesReplaced(e RulesReplaced) {
	if err := rules.Validate(e.Rules); err != nil {
		reply(e.reply, RulesResult{Err: err})
		return
	}
	o.setRules(model.CloneRules(e.Rules), e.reply)
}

func (o *Orchestrator) onRuleAdded(e RuleAdded) {
	o.setRules(rules.Add(o.state.Rules), e.reply)
}

func (o *Orchestrator) onRuleUpdated(e RuleUpdated) {
	rs, err := rules.Update(o.state.Rules, e.Index, e.Rule)
	if err != nil {
		reply(e.reply, RulesResult{Err: err})
		return
	}
	o.setRules(rs, e.reply)
}

func (o *Orchestrator) onRuleDeleted(e RuleDeleted) {
	rs, err := rules.Delete(o.state.Rules, e.Index)
	if err != nil {
		reply(e.reply, RulesResult{Err: err})
		return
	}
	o.setRules(rs, e.reply)
}

// setRules edits the rule list without touching polygon colors.
func (o *Orchestrator) setRules(rs []model.ThresholdRule, ch chan<- RulesResult) {
	o.state.Rules = rs
	zap.L().Debug("session: rules edited", zap.Int("rules", len(rs)))
	reply(ch, RulesResult{Rules: model.CloneRules(rs)})
}

func (o *Orchestrator) onFieldChanged(e FieldChanged) {
	field := strings.TrimSpace(e.Field)
	if field == "" {
		reply(e.reply, ErrEmptyField)
		return
	}
	o.state.Field = field
	zap.L().Info("session: field changed", zap.String("field", field))
	reply[error](e.reply, nil)
}

func (o *Orchestrator) onTimeRangeChanged(e TimeRangeChanged) {
	if err := e.Range.Validate(); err != nil {
		reply(e.reply, err)
		return
	}
	o.state.TimeRange = e.Range
	zap.L().Info("session: time range changed", zap.Int("min", e.Range.Min), zap.Int("max", e.Range.Max))
	reply[error](e.reply, nil)
}

func (o *Orchestrator) onSnapshot(e Snapshot) {
	reply(e.reply, SnapshotResult{State: o.state.Clone(), Polygons: o.store.List()})
}

func cloneCoords(vs []model.Coord) []model.Coord {
	out := make([]model.Coord, len(vs))
	copy(out, vs)
	return out
}
