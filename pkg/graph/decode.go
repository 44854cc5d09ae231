package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedPayload is returned by DecodePartial when a range response
// cannot be turned into a consistent PartialGraph.
var ErrMalformedPayload = errors.New("malformed partial graph payload")

// rawPartial distinguishes a missing key from an empty list.
type rawPartial struct {
	Vertices *[]Node `json:"vertices"`
	Edges    *[]Edge `json:"edges"`
}

// DecodePartial parses a serialized range response.
//
// The payload must be a single JSON object with both "vertices" and "edges"
// present. Vertex ids must be unique and lanes non-negative. Edge endpoints
// are not checked against the vertex set: the backend owns that contract.
// Any failure wraps ErrMalformedPayload and returns a zero PartialGraph, so
// callers never observe a half-decoded snapshot.
func DecodePartial(data []byte) (PartialGraph, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return PartialGraph{}, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var raw rawPartial
	if err := dec.Decode(&raw); err != nil {
		return PartialGraph{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return PartialGraph{}, fmt.Errorf("%w: trailing data after object", ErrMalformedPayload)
	}
	if raw.Vertices == nil {
		return PartialGraph{}, fmt.Errorf("%w: missing vertices", ErrMalformedPayload)
	}
	if raw.Edges == nil {
		return PartialGraph{}, fmt.Errorf("%w: missing edges", ErrMalformedPayload)
	}

	g := PartialGraph{Vertices: *raw.Vertices, Edges: *raw.Edges}
	seen := make(map[NodeID]struct{}, len(g.Vertices))
	for i := range g.Vertices {
		v := &g.Vertices[i]
		if _, dup := seen[v.ID]; dup {
			return PartialGraph{}, fmt.Errorf("%w: duplicate vertex %d", ErrMalformedPayload, v.ID)
		}
		seen[v.ID] = struct{}{}
		if v.Lane < 0 {
			return PartialGraph{}, fmt.Errorf("%w: vertex %d has negative lane %d", ErrMalformedPayload, v.ID, v.Lane)
		}
		if v.Class == "" {
			v.Class = ClassOrdinary
		}
	}
	return g, nil
}

// EncodePartial serializes a snapshot in the wire format.
func EncodePartial(g PartialGraph) ([]byte, error) {
	vertices := make([]Node, len(g.Vertices))
	copy(vertices, g.Vertices)
	g.Vertices = vertices
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
	for i := range g.Vertices {
		if g.Vertices[i].Incoming == nil {
			g.Vertices[i].Incoming = []Signal{}
		}
		if g.Vertices[i].Outgoing == nil {
			g.Vertices[i].Outgoing = []Signal{}
		}
	}
	return json.Marshal(g)
}
