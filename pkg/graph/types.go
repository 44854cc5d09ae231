package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// =============================================================================
// Identifiers
// =============================================================================

// NodeID identifies a vertex across every window the backend returns.
// The same id always denotes the same vertex, which is what makes position
// caching across evictions possible.
type NodeID uint64

// String returns the decimal form of the id.
func (id NodeID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseNodeID parses a decimal node id.
func ParseNodeID(s string) (NodeID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse node id %q: %w", s, err)
	}
	return NodeID(v), nil
}

// =============================================================================
// Dependency class
// =============================================================================

// DependencyClass selects the vertical band a node is placed in.
type DependencyClass string

const (
	// ClassOrdinary marks nodes whose dependencies are local in time.
	ClassOrdinary DependencyClass = "ordinary"
	// ClassLongDistance marks stand-ins for dependencies that span far apart
	// in the lane ordering.
	ClassLongDistance DependencyClass = "long-distance"
)

// Valid reports whether c is one of the known classes.
func (c DependencyClass) Valid() bool {
	return c == ClassOrdinary || c == ClassLongDistance
}

// UnmarshalJSON rejects unknown classes; an empty value means ordinary.
func (c *DependencyClass) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*c = ClassOrdinary
		return nil
	}
	v := DependencyClass(s)
	if !v.Valid() {
		return fmt.Errorf("unknown dependency class %q", s)
	}
	*c = v
	return nil
}

// =============================================================================
// Signals
// =============================================================================

// ConnectionKind describes what an incoming or outgoing edge carries.
type ConnectionKind string

const (
	ConnectionData        ConnectionKind = "data"
	ConnectionIndex       ConnectionKind = "index"
	ConnectionControlFlow ConnectionKind = "controlflow"
)

// Signal is one row of a node's signal table, shown in the hover tooltip.
type Signal struct {
	Name  string         `json:"name"`
	Value string         `json:"value"`
	Kind  ConnectionKind `json:"connectionType"`
}

// =============================================================================
// Node
// =============================================================================

// Node is a vertex of a window snapshot.
//
// Lane is fixed for the lifetime of the node: a lane change is only ever
// expressed by removing and reinserting the vertex.
type Node struct {
	ID         NodeID          `json:"id"`
	Label      string          `json:"label"`
	Lane       int             `json:"lane"`
	Timestamp  int             `json:"timestamp"`
	Class      DependencyClass `json:"dependencyClass"`
	ModulePath []string        `json:"modulePath,omitempty"`
	File       string          `json:"file,omitempty"`
	Line       int             `json:"line,omitempty"`
	Code       *string         `json:"code,omitempty"`
	Incoming   []Signal        `json:"incoming"`
	Outgoing   []Signal        `json:"outgoing"`
	Color      string          `json:"color,omitempty"`
	Shape      string          `json:"shape,omitempty"`
}

// IsLongDistance reports whether the node belongs to the top band.
func (n *Node) IsLongDistance() bool { return n.Class == ClassLongDistance }

// Snippet returns the source line attached to the node, or "".
func (n *Node) Snippet() string {
	if n.Code == nil {
		return ""
	}
	return *n.Code
}

// Location formats the node's source position as file:line.
func (n *Node) Location() string {
	if n.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", n.File, n.Line)
}

// =============================================================================
// Edge
// =============================================================================

// Edge is a directed dependency between two vertices of the same snapshot.
type Edge struct {
	From   NodeID `json:"from"`
	To     NodeID `json:"to"`
	Label  string `json:"label,omitempty"`
	Color  string `json:"color,omitempty"`
	Dashed bool   `json:"dashes,omitempty"`
}

// =============================================================================
// PartialGraph
// =============================================================================

// PartialGraph is the backend's full answer for one lane window.
type PartialGraph struct {
	Vertices []Node `json:"vertices"`
	Edges    []Edge `json:"edges"`
}

// Lanes returns the set of lanes that occur among the vertices.
func (g *PartialGraph) Lanes() map[int]struct{} {
	lanes := make(map[int]struct{})
	for i := range g.Vertices {
		lanes[g.Vertices[i].Lane] = struct{}{}
	}
	return lanes
}

// Index returns the vertices keyed by id.
func (g *PartialGraph) Index() map[NodeID]*Node {
	idx := make(map[NodeID]*Node, len(g.Vertices))
	for i := range g.Vertices {
		idx[g.Vertices[i].ID] = &g.Vertices[i]
	}
	return idx
}
