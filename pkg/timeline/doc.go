// Package timeline models the horizontal axis of the lanes-by-time diagram.
//
// Lanes are generated once from the lane count reported by the backend. Lane
// 0 is the most recent timestamp; increasing ids move into the past. Lane i
// occupies the pixel span [i*W, (i+1)*W) for a fixed lane width W, so lanes
// are contiguous and never overlap.
//
// [Model] owns the lane list and the scroll offset and answers which lanes
// intersect the viewport plus a look-ahead/look-behind margin. [Debouncer]
// coalesces raw scroll events into one request per quiescent period.
package timeline
