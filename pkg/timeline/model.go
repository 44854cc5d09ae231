package timeline

import (
	"fmt"
	"math"
)

// DefaultLaneWidth is the pixel width of one lane.
const DefaultLaneWidth = 300.0

// Lane is one fixed horizontal time slice of the diagram.
type Lane struct {
	ID      int
	Label   string
	XOffset float64
	Width   float64
}

// Right returns the exclusive right edge of the lane.
func (l Lane) Right() float64 { return l.XOffset + l.Width }

// Timestamp returns the simulation timestamp shown in the lane, given the
// timestamp count reported by the backend.
func (l Lane) Timestamp(count int) int { return count - l.ID }

// Model owns the lane list and the scroll offset.
//
// The lane list is immutable after construction. Model is not safe for
// concurrent use; the viewer only touches it from its event loop.
type Model struct {
	count  int
	width  float64
	lanes  []Lane
	offset float64
}

// NewModel derives count+1 lanes of the given width. count is the number of
// timestamps reported by the backend; a non-positive width selects
// DefaultLaneWidth.
func NewModel(count int, width float64) *Model {
	if count < 0 {
		count = 0
	}
	if width <= 0 {
		width = DefaultLaneWidth
	}
	lanes := make([]Lane, count+1)
	for i := range lanes {
		lanes[i] = Lane{
			ID:      i,
			Label:   fmt.Sprintf("t=%d", count-i),
			XOffset: float64(i) * width,
			Width:   width,
		}
	}
	return &Model{count: count, width: width, lanes: lanes}
}

// Count returns the timestamp count the model was built from.
func (m *Model) Count() int { return m.count }

// Len returns the number of lanes.
func (m *Model) Len() int { return len(m.lanes) }

// LaneWidth returns the fixed lane width.
func (m *Model) LaneWidth() float64 { return m.width }

// Lanes returns the lane list. Callers must not modify it.
func (m *Model) Lanes() []Lane { return m.lanes }

// Lane returns the lane with the given id.
func (m *Model) Lane(id int) (Lane, bool) {
	if id < 0 || id >= len(m.lanes) {
		return Lane{}, false
	}
	return m.lanes[id], true
}

// TotalWidth returns the pixel width of all lanes.
func (m *Model) TotalWidth() float64 { return float64(len(m.lanes)) * m.width }

// Offset returns the current scroll offset.
func (m *Model) Offset() float64 { return m.offset }

// ScrollTo moves the offset, clamped to [0, totalWidth - viewport], and
// returns the applied offset.
func (m *Model) ScrollTo(offset, viewport float64) float64 {
	hi := math.Max(m.TotalWidth()-viewport, 0)
	m.offset = math.Min(math.Max(offset, 0), hi)
	return m.offset
}

// ScrollBy moves the offset by delta pixels with the same clamping as ScrollTo.
func (m *Model) ScrollBy(delta, viewport float64) float64 {
	return m.ScrollTo(m.offset+delta, viewport)
}

// LaneRange returns every lane whose pixel span intersects
// [offset-margin, offset+viewport+margin].
func (m *Model) LaneRange(offset, viewport, margin float64) LaneSet {
	lo := offset - margin
	hi := offset + viewport + margin
	if hi < 0 || len(m.lanes) == 0 {
		return LaneSet{}
	}
	// Lane i intersects iff i*W <= hi and (i+1)*W > lo.
	first := int(math.Floor(lo / m.width))
	last := int(math.Floor(hi / m.width))
	first = max(first, 0)
	last = min(last, len(m.lanes)-1)
	if first > last {
		return LaneSet{}
	}
	return Span(first, last)
}

// Visible returns LaneRange at the current offset.
func (m *Model) Visible(viewport, margin float64) LaneSet {
	return m.LaneRange(m.offset, viewport, margin)
}

// LaneAt returns the lane under the canvas x coordinate.
func (m *Model) LaneAt(x float64) (Lane, bool) {
	if x < 0 {
		return Lane{}, false
	}
	return m.Lane(int(x / m.width))
}
