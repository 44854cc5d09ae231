// Package layout pins a force-directed drawing into the lanes-by-time grid.
//
// The physics engine is free to push nodes around locally, but every frame
// [Constrain] clamps each node back into
//
//   - the horizontal band of its lane, inset by a margin, and
//   - one of two vertical bands chosen by its dependency class: a narrow
//     fixed band near the top for long-distance nodes, and a tall band from
//     below the lane headers to near the bottom of the container for ordinary
//     nodes.
//
// The pass is a pure function from current positions and lane/class metadata
// to corrections, so it can be tested without a physics engine.
package layout
