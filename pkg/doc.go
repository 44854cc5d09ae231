// Package pkg provides the libraries behind tracelane, a lane-by-lane viewer
// for dynamic program dependence graphs (PDGs) of hardware simulations.
//
// # Overview
//
// A PDG export records every assignment, connection and control decision a
// simulation executed, stamped with the clock cycle it happened in. Tracelane
// shows it as a horizontally scrolling timeline: one lane per timestamp, the
// most recent on the left. Only the lanes near the viewport are held in
// memory; scrolling fetches new lanes and evicts old ones, and a bounded
// position cache puts evicted nodes back where they were.
//
// # Architecture
//
//	PDG export (JSON)
//	       ↓
//	  [pdg] package (decode + index by timestamp)
//	       ↓
//	  [backend] package (range queries, head/module commands; local or HTTP)
//	       ↓
//	  [viewer] package (lane window, sync, physics, interaction)
//	       ↓
//	  terminal UI or [render/nodelink] DOT/SVG
//
// # Quick Start
//
// Open a graph and lay out the first lanes headlessly:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/tracelane/pkg/backend"
//	    "github.com/matzehuels/tracelane/pkg/render/nodelink"
//	    "github.com/matzehuels/tracelane/pkg/viewer"
//	)
//
//	be, _ := backend.OpenLocal("pdg.json", backend.LocalOptions{})
//	loop := viewer.NewManualLoop()
//	s := viewer.New(be, loop, viewer.DefaultConfig())
//	_ = s.Open(context.Background())
//	loop.Settle()
//	dot := nodelink.ToDOT(nodelink.FromSession(s), nodelink.Options{})
//
// # Main Packages
//
// ## Graph Model
//
// [pdg] - The export format: vertices, edges, simulation data. [pdg.Graph]
// indexes vertices by timestamp and maps timestamps to lanes.
//
// [graph] - The partial graph exchanged between backend and viewer: nodes
// with lane, class and signals, edges, and pseudo-vertices standing in for
// long-distance destinations.
//
// [translate] - Display translation of raw simulation values.
//
// ## Backend
//
// [backend] - The Backend interface with an in-process implementation over
// a PDG file, an HTTP server exposing it (with response caching and
// singleflight), a retrying HTTP client, and a file watcher that reloads the
// graph on change.
//
// [cache] - Response caches: null, file and Redis, with key derivation and
// hook instrumentation.
//
// ## Viewer
//
// [timeline] - Lanes, lane sets, scroll offsets and the scroll debouncer.
//
// [layout] - The band grid that confines nodes to their lane and class.
//
// [physics] - Spring and repulsion simulation on unpinned nodes.
//
// [poscache] - Bounded LRU of positions of evicted nodes.
//
// [viewer] - The session: window sync with sequence-numbered responses,
// eviction, frames, tooltips and context-menu commands. Loops decide where
// session code runs: [viewer.EventLoop] for services, [viewer.ManualLoop]
// for tests and headless rendering.
//
// ## Output
//
// [render/nodelink] - Graphviz DOT with one cluster per lane and pinned
// positions, rendered to SVG through go-graphviz.
//
// ## Infrastructure
//
// [errors] - Coded errors mapped to HTTP status codes.
//
// [httputil] - Retry with backoff and status checking for the client.
//
// [observability] - Hook registries for RPC, cache and sync events with a
// Prometheus implementation.
//
// [buildinfo] - Version information.
//
// # Testing
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/viewer/...       # Specific package
//
// [pdg]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/pdg
// [graph]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/graph
// [translate]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/translate
// [backend]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/backend
// [cache]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/cache
// [timeline]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/timeline
// [layout]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/layout
// [physics]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/physics
// [poscache]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/poscache
// [viewer]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/viewer
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/render/nodelink
// [errors]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/tracelane/pkg/buildinfo
package pkg
