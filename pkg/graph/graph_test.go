package graph

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodePartial(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantErr   bool
		wantNodes int
		wantEdges int
		check     func(t *testing.T, g PartialGraph)
	}{
		{
			name:    "Empty window",
			payload: `{"vertices": [], "edges": []}`,
		},
		{
			name: "Simple",
			payload: `{"vertices": [
				{"id": 1, "label": "a", "lane": 3, "timestamp": 5, "dependencyClass": "ordinary", "incoming": [], "outgoing": []},
				{"id": 2, "label": "b", "lane": 4, "timestamp": 4, "dependencyClass": "long-distance", "incoming": [{"name": "io.a", "value": "3", "connectionType": "data"}], "outgoing": []}
			], "edges": [{"from": 1, "to": 2, "label": "UInt<4> 3"}]}`,
			wantNodes: 2,
			wantEdges: 1,
			check: func(t *testing.T, g PartialGraph) {
				if !g.Vertices[1].IsLongDistance() {
					t.Error("vertex 2 should be long-distance")
				}
				if g.Vertices[1].Incoming[0].Kind != ConnectionData {
					t.Errorf("incoming kind = %v, want %v", g.Vertices[1].Incoming[0].Kind, ConnectionData)
				}
			},
		},
		{
			name:      "Missing class defaults to ordinary",
			payload:   `{"vertices": [{"id": 1, "lane": 0}], "edges": []}`,
			wantNodes: 1,
			check: func(t *testing.T, g PartialGraph) {
				if g.Vertices[0].Class != ClassOrdinary {
					t.Errorf("class = %v, want %v", g.Vertices[0].Class, ClassOrdinary)
				}
			},
		},
		{name: "Empty payload", payload: "", wantErr: true},
		{name: "Not JSON", payload: "<html>502 Bad Gateway</html>", wantErr: true},
		{name: "Truncated", payload: `{"vertices": [{"id": 1`, wantErr: true},
		{name: "Missing edges", payload: `{"vertices": []}`, wantErr: true},
		{name: "Missing vertices", payload: `{"edges": []}`, wantErr: true},
		{name: "Trailing data", payload: `{"vertices": [], "edges": []} {}`, wantErr: true},
		{name: "Unknown class", payload: `{"vertices": [{"id": 1, "lane": 0, "dependencyClass": "sideways"}], "edges": []}`, wantErr: true},
		{name: "Negative lane", payload: `{"vertices": [{"id": 1, "lane": -2}], "edges": []}`, wantErr: true},
		{name: "Duplicate id", payload: `{"vertices": [{"id": 1, "lane": 0}, {"id": 1, "lane": 1}], "edges": []}`, wantErr: true},
		{name: "Wrong type", payload: `{"vertices": {"id": 1}, "edges": []}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := DecodePartial([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("DecodePartial() error = nil, want error")
				}
				if !errors.Is(err, ErrMalformedPayload) {
					t.Errorf("error %v does not wrap ErrMalformedPayload", err)
				}
				if len(g.Vertices) != 0 || len(g.Edges) != 0 {
					t.Error("failed decode must return a zero PartialGraph")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePartial() error = %v", err)
			}
			if len(g.Vertices) != tt.wantNodes {
				t.Errorf("vertices = %d, want %d", len(g.Vertices), tt.wantNodes)
			}
			if len(g.Edges) != tt.wantEdges {
				t.Errorf("edges = %d, want %d", len(g.Edges), tt.wantEdges)
			}
			if tt.check != nil {
				tt.check(t, g)
			}
		})
	}
}

func TestEncodePartialWritesEmptyLists(t *testing.T) {
	data, err := EncodePartial(PartialGraph{Vertices: []Node{{ID: 3, Lane: 1, Class: ClassOrdinary}}})
	if err != nil {
		t.Fatalf("EncodePartial() error = %v", err)
	}
	s := string(data)
	for _, want := range []string{`"edges":[]`, `"incoming":[]`, `"outgoing":[]`} {
		if !strings.Contains(s, want) {
			t.Errorf("encoded payload %s missing %s", s, want)
		}
	}
	if _, err := DecodePartial(data); err != nil {
		t.Errorf("encoded payload does not decode: %v", err)
	}
}

func TestPartialGraphLanesAndIndex(t *testing.T) {
	g := PartialGraph{Vertices: []Node{{ID: 1, Lane: 2}, {ID: 2, Lane: 2}, {ID: 3, Lane: 5}}}

	lanes := g.Lanes()
	if len(lanes) != 2 {
		t.Errorf("Lanes() = %v, want two lanes", lanes)
	}
	if _, ok := lanes[5]; !ok {
		t.Error("Lanes() missing lane 5")
	}

	idx := g.Index()
	if idx[3].Lane != 5 {
		t.Errorf("Index()[3].Lane = %d, want 5", idx[3].Lane)
	}
}

func TestNodeHelpers(t *testing.T) {
	code := "io.out := a + b"
	n := Node{File: "Adder.scala", Line: 12, Code: &code}
	if got := n.Location(); got != "Adder.scala:12" {
		t.Errorf("Location() = %q, want %q", got, "Adder.scala:12")
	}
	if got := n.Snippet(); got != code {
		t.Errorf("Snippet() = %q, want %q", got, code)
	}
	if got := (&Node{}).Snippet(); got != "" {
		t.Errorf("Snippet() of empty node = %q, want empty", got)
	}
}

func TestParseNodeID(t *testing.T) {
	id, err := ParseNodeID("42")
	if err != nil || id != 42 {
		t.Errorf("ParseNodeID(42) = %v, %v", id, err)
	}
	if _, err := ParseNodeID("-1"); err == nil {
		t.Error("ParseNodeID(-1) should fail")
	}
	if NodeID(7).String() != "7" {
		t.Errorf("String() = %q, want 7", NodeID(7).String())
	}
}
