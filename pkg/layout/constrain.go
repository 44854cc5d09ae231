package layout

import (
	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/timeline"
)

// Bands configures the clamping grid. All values are canvas pixels.
type Bands struct {
	// LaneMargin insets nodes from both edges of their lane.
	LaneMargin float64 `toml:"lane_margin"`

	// LongDistanceTop and LongDistanceBottom bound the narrow band near the
	// top of the canvas. They do not depend on the container size.
	LongDistanceTop    float64 `toml:"long_distance_top"`
	LongDistanceBottom float64 `toml:"long_distance_bottom"`

	// OrdinaryTop is the fixed offset below the lane headers where the
	// ordinary band starts.
	OrdinaryTop float64 `toml:"ordinary_top"`

	// BottomMargin keeps ordinary nodes away from the container bottom.
	BottomMargin float64 `toml:"bottom_margin"`

	// Epsilon is the displacement below which a node is left alone.
	Epsilon float64 `toml:"epsilon"`
}

// DefaultBands returns the grid used by the viewer.
func DefaultBands() Bands {
	return Bands{
		LaneMargin:         20,
		LongDistanceTop:    50,
		LongDistanceBottom: 100,
		OrdinaryTop:        170,
		BottomMargin:       30,
		Epsilon:            0.5,
	}
}

// Horizontal returns the x band of a lane.
func (b Bands) Horizontal(lane timeline.Lane) (lo, hi float64) {
	return lane.XOffset + b.LaneMargin, lane.XOffset + lane.Width - b.LaneMargin
}

// Vertical returns the y band for a dependency class in a container of the
// given height.
func (b Bands) Vertical(class graph.DependencyClass, height float64) (lo, hi float64) {
	if class == graph.ClassLongDistance {
		return b.LongDistanceTop, b.LongDistanceBottom
	}
	lo = b.OrdinaryTop
	hi = max(height-b.BottomMargin, lo)
	return lo, hi
}

// Clamp moves p into the cell of the grid given by lane and class.
func (b Bands) Clamp(p Point, lane timeline.Lane, class graph.DependencyClass, height float64) Point {
	xlo, xhi := b.Horizontal(lane)
	ylo, yhi := b.Vertical(class, height)
	return Point{X: clamp(p.X, xlo, xhi), Y: clamp(p.Y, ylo, yhi)}
}

// Center returns the middle of the cell for lane and class. New nodes are
// seeded around it.
func (b Bands) Center(lane timeline.Lane, class graph.DependencyClass, height float64) Point {
	xlo, xhi := b.Horizontal(lane)
	ylo, yhi := b.Vertical(class, height)
	return Point{X: (xlo + xhi) / 2, Y: (ylo + yhi) / 2}
}

// Placement is the input of one node to the constraint pass.
type Placement struct {
	ID    graph.NodeID
	Lane  int
	Class graph.DependencyClass
	Pos   Point
}

// Correction is a forced reposition produced by the constraint pass.
type Correction struct {
	ID   graph.NodeID
	From Point
	To   Point
}

// Lanes resolves lane ids. *timeline.Model implements it.
type Lanes interface {
	Lane(id int) (timeline.Lane, bool)
}

// Constrain runs one frame of the constraint pass.
//
// It returns a correction for every node whose clamped position differs
// from its simulated position by more than b.Epsilon. Nodes whose lane is
// unknown are skipped. The input slice is not modified.
func Constrain(nodes []Placement, lanes Lanes, b Bands, height float64) []Correction {
	var out []Correction
	for _, n := range nodes {
		lane, ok := lanes.Lane(n.Lane)
		if !ok {
			continue
		}
		to := b.Clamp(n.Pos, lane, n.Class, height)
		if to.Dist(n.Pos) > b.Epsilon {
			out = append(out, Correction{ID: n.ID, From: n.Pos, To: to})
		}
	}
	return out
}
