// Package viewer maintains a windowed, incrementally synchronized view of a
// graph that is far too large to materialize at once.
//
// A [Session] holds the lanes currently on screen (plus a look-ahead margin),
// the nodes and edges the backend returned for them, and a force-directed
// layout pinned into the lanes-by-time grid. Scrolling is debounced into a
// single range query per quiet period. Responses are merged by diffing the
// requested lane set against the loaded one:
//
//   - nodes of lanes leaving the window are evicted and their coordinates
//     remembered in a bounded position cache,
//   - nodes of lanes entering the window are inserted, at their remembered
//     coordinate with physics disabled when the cache knows them,
//   - the edge set is replaced wholesale.
//
// Every query carries a sequence number and a response older than the newest
// applied one is dropped. A response that fails to decode leaves the view
// untouched.
//
// # Threading
//
// A Session is owned by one [Loop]. All methods must be called from that
// loop; backend calls run through Loop.Go and report back with Loop.Post.
// [EventLoop] is the production loop, [ManualLoop] a deterministic one for
// headless rendering and tests.
package viewer
