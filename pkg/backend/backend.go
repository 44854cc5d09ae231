// Package backend owns the full dependency graph and answers the viewer's
// range queries, mutation commands and editor jumps.
//
// Three implementations of [Backend] are provided:
//   - [Local] holds a dynamic PDG in process and builds window snapshots
//     from it.
//   - [Server] exposes any Backend over HTTP with chi, collapsing identical
//     concurrent range queries and caching serialized snapshots.
//   - [Client] speaks to a Server and retries transient failures.
//
// Range responses travel as opaque bytes: the viewer decodes them itself so
// that a malformed payload is detected before any live state is touched.
package backend

import (
	"context"

	"github.com/matzehuels/tracelane/pkg/graph"
)

// Backend is the viewer's view of the process that owns the graph.
//
// Implementations must be safe for concurrent use. Calls may block; the
// viewer always issues them off its event loop.
type Backend interface {
	// Timeslots returns the timestamp count n. The viewer derives n+1 lanes.
	Timeslots(ctx context.Context) (int, error)

	// PartialGraph returns the serialized snapshot for the closed lane-id
	// interval [begin, end].
	PartialGraph(ctx context.Context, begin, end int) ([]byte, error)

	// ToggleModule collapses or expands the module at path for one timestamp.
	ToggleModule(ctx context.Context, path []string, timestamp int) error

	// SetNewHead restricts the visible graph to what id depends on.
	SetNewHead(ctx context.Context, id graph.NodeID) error

	// ResetHead restores the full graph.
	ResetHead(ctx context.Context) error

	// OpenInEditor jumps to the source of id in the configured editor.
	OpenInEditor(ctx context.Context, id graph.NodeID) error
}
