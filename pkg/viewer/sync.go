package viewer

import (
	"time"

	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/layout"
	"github.com/matzehuels/tracelane/pkg/observability"
	"github.com/matzehuels/tracelane/pkg/physics"
	"github.com/matzehuels/tracelane/pkg/timeline"
)

type request struct {
	seq    uint64
	lanes  timeline.LaneSet
	force  bool
	issued time.Time
}

// CurrentLanes returns the lanes the window needs at the current scroll
// offset and container size.
func (s *Session) CurrentLanes() timeline.LaneSet {
	return s.timeline.Visible(s.viewport, s.cfg.Margin)
}

// Sync brings the held graph to the lanes in required.
//
// Unless force is set, a request for the lane set already requested is a
// no-op and Sync returns false. Otherwise one range query is issued for the
// span of required and Sync returns true; the response is merged when it
// lands. A forced sync evicts every loaded and required lane and reloads
// required from scratch.
func (s *Session) Sync(required timeline.LaneSet, force bool) bool {
	if !force && required.Equal(s.requested) {
		s.stats.NoOps++
		return false
	}

	s.seq++
	req := request{seq: s.seq, lanes: required.Clone(), force: force, issued: time.Now()}
	s.requested = req.lanes.Clone()
	s.stats.Issued++
	observability.Sync().OnSyncIssued(s.ctx, req.seq, len(req.lanes), force)

	lo, hi, ok := required.Bounds()
	if !ok {
		s.logger.Debug("sync to empty window", "seq", req.seq)
		s.complete(req, graph.PartialGraph{}, nil)
		return true
	}
	s.logger.Debug("sync issued", "seq", req.seq, "lanes", required.String(), "force", force)

	ctx, be := s.ctx, s.be
	s.loop.Go(func() {
		data, err := be.PartialGraph(ctx, lo, hi)
		var g graph.PartialGraph
		if err == nil {
			g, err = graph.DecodePartial(data)
		}
		s.loop.Post(func() { s.complete(req, g, err) })
	})
	return true
}

// complete runs on the loop once a range query returns.
func (s *Session) complete(req request, g graph.PartialGraph, err error) {
	if req.seq <= s.applied {
		s.stats.Discarded++
		s.logger.Debug("stale response dropped", "seq", req.seq, "applied", s.applied)
		observability.Sync().OnSyncDiscarded(s.ctx, req.seq)
		return
	}
	if err != nil {
		s.stats.Failed++
		s.logger.Error("sync failed, keeping last window", "seq", req.seq, "lanes", req.lanes.String(), "err", err)
		observability.Sync().OnSyncFailed(s.ctx, req.seq, err)
		if req.seq == s.seq {
			s.requested = s.loaded.Clone()
		}
		return
	}
	s.apply(req, g)
}

// apply merges a decoded snapshot. It cannot fail.
func (s *Session) apply(req request, g graph.PartialGraph) {
	var evict, load timeline.LaneSet
	if req.force {
		evict = s.loaded.Union(req.lanes)
		load = req.lanes
	} else {
		evict = s.loaded.Minus(req.lanes)
		load = req.lanes.Minus(s.loaded)
	}

	evicted := 0
	for id, n := range s.nodes {
		if !evict.Has(n.Lane) {
			continue
		}
		s.positions.Put(id, s.bodies[id].Pos)
		delete(s.nodes, id)
		delete(s.bodies, id)
		evicted++
	}

	inserted, restored := 0, 0
	for i := range g.Vertices {
		v := g.Vertices[i]
		if !load.Has(v.Lane) {
			continue
		}
		if _, held := s.nodes[v.ID]; held {
			continue
		}
		body := &physics.Body{ID: v.ID}
		if p, ok := s.positions.Take(v.ID); ok {
			body.Pos = p
			restored++
		} else {
			body.Pos = s.seed(&v)
			body.Enabled = true
		}
		s.nodes[v.ID] = &v
		s.bodies[v.ID] = body
		inserted++
	}

	s.edges = append([]graph.Edge(nil), g.Edges...)
	s.loaded = req.lanes.Clone()
	s.applied = req.seq
	s.stats.Applied++
	s.reindex()
	s.dropStaleTooltip()
	s.restartPhysics()

	s.logger.Debug("sync applied",
		"seq", req.seq,
		"lanes", s.loaded.String(),
		"evicted", evicted,
		"inserted", inserted,
		"restored", restored,
		"edges", len(s.edges))
	observability.Sync().OnSyncApplied(s.ctx, req.seq, len(s.nodes), len(s.edges), time.Since(req.issued))
	s.notify()
}

func (s *Session) seed(n *graph.Node) layout.Point {
	lane, ok := s.timeline.Lane(n.Lane)
	if !ok {
		return layout.Point{}
	}
	center := s.cfg.Bands.Center(lane, n.Class, s.height)
	return physics.Seed(center, s.cfg.SeedSpread, s.rng)
}

// =============================================================================
// Stabilization
// =============================================================================

func (s *Session) restartPhysics() {
	s.iterations = s.cfg.IterationCap
	s.stable = false
	if s.settleStop != nil {
		s.settleStop()
	}
	s.settleGen++
	gen := s.settleGen
	s.settleStop = s.loop.AfterFunc(s.cfg.SettleDelay, func() {
		// A timer that fired and posted before it was stopped.
		if gen != s.settleGen {
			return
		}
		s.freeze()
	})
}

// freeze disables physics on every held node.
func (s *Session) freeze() {
	s.settleStop = nil
	for _, b := range s.bodies {
		b.Enabled = false
		b.Vel = layout.Point{}
	}
	s.iterations = 0
	s.stable = true
	s.logger.Debug("layout frozen", "nodes", len(s.bodies))
	s.notify()
}

// EnablePhysics lets a node move again until the next freeze.
func (s *Session) EnablePhysics(id graph.NodeID) bool {
	b, ok := s.bodies[id]
	if !ok {
		return false
	}
	b.Enabled = true
	if s.iterations == 0 {
		s.restartPhysics()
	}
	return true
}
