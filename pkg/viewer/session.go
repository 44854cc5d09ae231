package viewer

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/tracelane/pkg/backend"
	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/layout"
	"github.com/matzehuels/tracelane/pkg/physics"
	"github.com/matzehuels/tracelane/pkg/poscache"
	"github.com/matzehuels/tracelane/pkg/timeline"
)

// Session is the per-window state of one viewer.
type Session struct {
	id      string
	cfg     Config
	be      backend.Backend
	loop    Loop
	logger  *log.Logger
	ctx     context.Context
	sim     physics.Simulator
	rng     *rand.Rand
	changed func()

	timeline  *timeline.Model
	positions *poscache.Cache
	debounce  *timeline.Debouncer

	viewport float64
	height   float64

	nodes  map[graph.NodeID]*graph.Node
	bodies map[graph.NodeID]*physics.Body
	order  []graph.NodeID
	edges  []graph.Edge

	loaded    timeline.LaneSet
	requested timeline.LaneSet
	seq       uint64
	applied   uint64
	stats     SyncStats

	iterations int
	settleStop func() bool
	settleGen  uint64
	stable     bool

	tooltip *Tooltip
}

// SyncStats counts synchronizer outcomes.
type SyncStats struct {
	Issued    int
	Applied   int
	Discarded int
	Failed    int
	NoOps     int
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the session logger. The default discards output.
func WithLogger(l *log.Logger) Option { return func(s *Session) { s.logger = l } }

// WithSimulator replaces the force-directed engine.
func WithSimulator(sim physics.Simulator) Option { return func(s *Session) { s.sim = sim } }

// WithSeed makes initial node placement reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Session) { s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithOnChange registers a callback run on the loop after the live graph or
// the tooltip changes.
func WithOnChange(fn func()) Option { return func(s *Session) { s.changed = fn } }

// New creates a session bound to be and loop. Open must be called before use.
func New(be backend.Backend, loop Loop, cfg Config, opts ...Option) *Session {
	cfg.SetDefaults()
	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		be:        be,
		loop:      loop,
		logger:    log.New(io.Discard),
		ctx:       context.Background(),
		viewport:  cfg.Viewport,
		height:    cfg.Height,
		positions: poscache.New(cfg.CacheCapacity),
		nodes:     make(map[graph.NodeID]*graph.Node),
		bodies:    make(map[graph.NodeID]*physics.Body),
		loaded:    timeline.LaneSet{},
		requested: timeline.LaneSet{},
		timeline:  timeline.NewModel(0, cfg.LaneWidth),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sim == nil {
		s.sim = physics.New(cfg.Physics)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	s.logger = s.logger.With("session", s.id[:8])
	s.debounce = timeline.NewDebouncer(cfg.Debounce, loop.AfterFunc)
	return s
}

// Open fetches the lane count, derives the timeline and requests the initial
// window. It blocks on the backend and must be called before the loop starts
// dispatching input for this session. ctx is kept for later backend calls.
func (s *Session) Open(ctx context.Context) error {
	n, err := s.be.Timeslots(ctx)
	if err != nil {
		return fmt.Errorf("get timeslots: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("get timeslots: negative count %d", n)
	}
	s.ctx = ctx
	s.timeline = timeline.NewModel(n, s.cfg.LaneWidth)
	s.logger.Debug("timeline ready", "timestamps", n, "lanes", s.timeline.Len())
	s.loop.Post(func() { s.Sync(s.CurrentLanes(), false) })
	return nil
}

// Close cancels pending timers. In-flight backend calls still complete and
// are ignored by whoever drains the loop.
func (s *Session) Close() {
	s.debounce.Cancel()
	if s.settleStop != nil {
		s.settleStop()
		s.settleStop = nil
	}
	s.settleGen++
}

// =============================================================================
// Accessors
// =============================================================================

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// Timeline returns the lane model.
func (s *Session) Timeline() *timeline.Model { return s.timeline }

// Size returns the container size.
func (s *Session) Size() (viewport, height float64) { return s.viewport, s.height }

// Loaded returns the lanes whose nodes are held.
func (s *Session) Loaded() timeline.LaneSet { return s.loaded.Clone() }

// Requested returns the lanes of the most recent range query.
func (s *Session) Requested() timeline.LaneSet { return s.requested.Clone() }

// Seq returns the sequence number of the last issued query.
func (s *Session) Seq() uint64 { return s.seq }

// AppliedSeq returns the sequence number of the last applied response.
func (s *Session) AppliedSeq() uint64 { return s.applied }

// Stats returns synchronizer counters.
func (s *Session) Stats() SyncStats { return s.stats }

// PositionCache exposes the eviction cache.
func (s *Session) PositionCache() *poscache.Cache { return s.positions }

// Stable reports whether the layout has been frozen since the last sync.
func (s *Session) Stable() bool { return s.stable }

// IterationsLeft returns the remaining physics budget.
func (s *Session) IterationsLeft() int { return s.iterations }

// NodeView is a read-only snapshot of a held node.
type NodeView struct {
	*graph.Node
	Pos     layout.Point
	Physics bool
}

// Nodes returns the held nodes ordered by id.
func (s *Session) Nodes() []NodeView {
	out := make([]NodeView, 0, len(s.order))
	for _, id := range s.order {
		b := s.bodies[id]
		out = append(out, NodeView{Node: s.nodes[id], Pos: b.Pos, Physics: b.Enabled})
	}
	return out
}

// Node returns one held node.
func (s *Session) Node(id graph.NodeID) (NodeView, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return NodeView{}, false
	}
	b := s.bodies[id]
	return NodeView{Node: n, Pos: b.Pos, Physics: b.Enabled}, true
}

// Edges returns the held edges. Callers must not modify the slice.
func (s *Session) Edges() []graph.Edge { return s.edges }

// Len returns the number of held nodes.
func (s *Session) Len() int { return len(s.nodes) }

func (s *Session) notify() {
	if s.changed != nil {
		s.changed()
	}
}

func (s *Session) reindex() {
	s.order = s.order[:0]
	for id := range s.nodes {
		s.order = append(s.order, id)
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
}
