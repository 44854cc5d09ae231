package pdg

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VertexKind is the statement category of a vertex.
type VertexKind string

const (
	KindDefinition     VertexKind = "Definition"
	KindDataDefinition VertexKind = "DataDefinition"
	KindIO             VertexKind = "IO"
	KindConnection     VertexKind = "Connection"
	KindControlFlow    VertexKind = "ControlFlow"
)

// UnmarshalJSON rejects unknown kinds.
func (k *VertexKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch v := VertexKind(s); v {
	case KindDefinition, KindDataDefinition, KindIO, KindConnection, KindControlFlow:
		*k = v
		return nil
	}
	return fmt.Errorf("unknown vertex kind %q", s)
}

// Color returns the fill colour the viewer draws the vertex with.
func (k VertexKind) Color() string {
	switch k {
	case KindConnection, KindDataDefinition:
		return "#97C2FC"
	case KindControlFlow:
		return "#FB7E81"
	case KindIO:
		return "#7BE141"
	default:
		return "#FFFF00"
	}
}

// Shape returns the node shape the viewer draws the vertex with.
func (k VertexKind) Shape() string {
	switch k {
	case KindConnection:
		return "ellipse"
	case KindControlFlow:
		return "diamond"
	default:
		return "box"
	}
}

// EdgeKind is the dependence category of an edge.
type EdgeKind string

const (
	EdgeData        EdgeKind = "Data"
	EdgeConditional EdgeKind = "Conditional"
	EdgeDeclaration EdgeKind = "Declaration"
	EdgeIndex       EdgeKind = "Index"
)

// UnmarshalJSON rejects unknown kinds.
func (k *EdgeKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch v := EdgeKind(s); v {
	case EdgeData, EdgeConditional, EdgeDeclaration, EdgeIndex:
		*k = v
		return nil
	}
	return fmt.Errorf("unknown edge kind %q", s)
}

// Color returns the stroke colour of the edge.
func (k EdgeKind) Color() string {
	switch k {
	case EdgeConditional:
		return "#FB7E81"
	case EdgeIndex:
		return "#bc2dcc"
	default:
		return "#97C2FC"
	}
}

// RelatedSignal names the hardware signal a vertex drives.
type RelatedSignal struct {
	SignalPath string `json:"signalPath"`
	FieldPath  string `json:"fieldPath"`
}

// Vertex is one statement instance.
type Vertex struct {
	File               string         `json:"file"`
	Line               int            `json:"line"`
	Char               int            `json:"char"`
	Name               string         `json:"name"`
	Kind               VertexKind     `json:"kind"`
	Clocked            bool           `json:"clocked"`
	RelatedSignal      *RelatedSignal `json:"related_signal"`
	SimData            *string        `json:"sim_data"`
	Timestamp          int            `json:"timestamp"`
	IsChiselAssignment bool           `json:"is_chisel_assignment"`
}

// SignalName formats the related signal as "path" or "path [field]".
// Vertices without a related signal fall back to their statement name.
func (v *Vertex) SignalName() string {
	if v.RelatedSignal == nil {
		return v.Name
	}
	if v.RelatedSignal.FieldPath == "" {
		return v.RelatedSignal.SignalPath
	}
	return fmt.Sprintf("%s [%s]", v.RelatedSignal.SignalPath, v.RelatedSignal.FieldPath)
}

// ModulePath returns the instance hierarchy of the related signal: every
// dot-separated element of the signal path except the signal itself.
func (v *Vertex) ModulePath() []string {
	if v.RelatedSignal == nil || v.RelatedSignal.SignalPath == "" {
		return nil
	}
	parts := strings.Split(v.RelatedSignal.SignalPath, ".")
	if len(parts) < 2 {
		return nil
	}
	return parts[:len(parts)-1]
}

// Edge points from a dependent vertex to the vertex it depends on.
type Edge struct {
	From    uint32   `json:"from"`
	To      uint32   `json:"to"`
	Kind    EdgeKind `json:"kind"`
	Clocked bool     `json:"clocked"`
}

// PDG is the raw export.
type PDG struct {
	Vertices []Vertex `json:"vertices"`
	Edges    []Edge   `json:"edges"`
}

// HasPrefix reports whether path starts with prefix.
func HasPrefix(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}
