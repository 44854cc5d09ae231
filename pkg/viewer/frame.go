package viewer

import (
	"github.com/matzehuels/tracelane/pkg/layout"
	"github.com/matzehuels/tracelane/pkg/physics"
)

// FrameResult describes one call to Frame.
type FrameResult struct {
	Stepped     bool
	Energy      float64
	Corrections int
}

// Frame advances the layout by one frame: a physics step while the iteration
// budget lasts, followed by the lane constraint pass. It is called by the
// front-end's render tick.
func (s *Session) Frame() FrameResult {
	var res FrameResult
	if s.iterations > 0 && len(s.order) > 0 {
		res.Energy = s.sim.Step(s.bodyList(), s.springs())
		res.Stepped = true
		s.iterations--
	}

	corrections := layout.Constrain(s.placements(), s.timeline, s.cfg.Bands, s.height)
	for _, c := range corrections {
		b := s.bodies[c.ID]
		b.Pos = c.To
		b.Vel = layout.Point{}
	}
	res.Corrections = len(corrections)
	return res
}

func (s *Session) bodyList() []*physics.Body {
	out := make([]*physics.Body, len(s.order))
	for i, id := range s.order {
		out[i] = s.bodies[id]
	}
	return out
}

func (s *Session) springs() []physics.Spring {
	out := make([]physics.Spring, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, physics.Spring{From: e.From, To: e.To})
	}
	return out
}

func (s *Session) placements() []layout.Placement {
	out := make([]layout.Placement, len(s.order))
	for i, id := range s.order {
		n := s.nodes[id]
		out[i] = layout.Placement{ID: id, Lane: n.Lane, Class: n.Class, Pos: s.bodies[id].Pos}
	}
	return out
}

// =============================================================================
// Viewport input
// =============================================================================

// ScrollBy moves the window by delta pixels and schedules a debounced sync.
// It returns the applied offset.
func (s *Session) ScrollBy(delta float64) float64 {
	off := s.timeline.ScrollBy(delta, s.viewport)
	s.scheduleSync()
	return off
}

// ScrollTo moves the window to offset and schedules a debounced sync.
func (s *Session) ScrollTo(offset float64) float64 {
	off := s.timeline.ScrollTo(offset, s.viewport)
	s.scheduleSync()
	return off
}

// Resize changes the container size and schedules a debounced sync.
func (s *Session) Resize(viewport, height float64) {
	if viewport > 0 {
		s.viewport = viewport
	}
	if height > 0 {
		s.height = height
	}
	s.timeline.ScrollTo(s.timeline.Offset(), s.viewport)
	s.scheduleSync()
}

func (s *Session) scheduleSync() {
	s.debounce.Trigger(func() { s.Sync(s.CurrentLanes(), false) })
}

// ToScreen maps a canvas coordinate to the container.
func (s *Session) ToScreen(p layout.Point) layout.Point {
	return layout.Point{X: p.X - s.timeline.Offset(), Y: p.Y}
}

// ToCanvas maps a container coordinate to the canvas.
func (s *Session) ToCanvas(p layout.Point) layout.Point {
	return layout.Point{X: p.X + s.timeline.Offset(), Y: p.Y}
}
