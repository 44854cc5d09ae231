package backend

import (
	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/pdg"
)

// snapshotBuilder accumulates one window. It runs under Local's read lock.
type snapshotBuilder struct {
	l      *Local
	g      *pdg.Graph
	groups map[string]graph.NodeID

	out       graph.PartialGraph
	nodeIndex map[graph.NodeID]int
	edgeSeen  map[graph.Edge]bool
}

func (b *snapshotBuilder) addNode(n graph.Node) *graph.Node {
	if b.nodeIndex == nil {
		b.nodeIndex = make(map[graph.NodeID]int)
		b.edgeSeen = make(map[graph.Edge]bool)
	}
	if i, ok := b.nodeIndex[n.ID]; ok {
		return &b.out.Vertices[i]
	}
	b.nodeIndex[n.ID] = len(b.out.Vertices)
	b.out.Vertices = append(b.out.Vertices, n)
	return &b.out.Vertices[len(b.out.Vertices)-1]
}

func (b *snapshotBuilder) addEdge(e graph.Edge) {
	if e.From == e.To || b.edgeSeen[e] {
		return
	}
	b.edgeSeen[e] = true
	b.out.Edges = append(b.out.Edges, e)
}

// idOf returns the wire id of a vertex, which is its collapsed module's id
// when it belongs to one.
func (b *snapshotBuilder) idOf(vi int) graph.NodeID {
	if k, ok := b.l.groupOf(b.g, vi); ok {
		return b.groups[k.String()]
	}
	return graph.NodeID(vi)
}

func (b *snapshotBuilder) addVertex(vi, lane int) {
	v := b.g.Vertex(vi)
	src := b.idOf(vi)

	if k, ok := b.l.groupOf(b.g, vi); ok {
		n := b.addNode(graph.Node{
			ID:         src,
			Label:      k.Path[len(k.Path)-1],
			Lane:       lane,
			Timestamp:  v.Timestamp,
			Class:      graph.ClassOrdinary,
			ModulePath: k.Path,
			Color:      collapsedColor,
			Shape:      "box",
		})
		n.Incoming = mergeSignals(n.Incoming, b.incoming(vi))
		n.Outgoing = mergeSignals(n.Outgoing, b.outgoing(vi))
	} else {
		b.addNode(b.vertexNode(vi, graph.NodeID(vi), lane, graph.ClassOrdinary))
	}

	for _, ei := range b.g.Dependencies(vi) {
		e := b.g.Edge(ei)
		to := int(e.To)
		if !b.l.isVisible(to) {
			continue
		}
		dest := b.g.Vertex(to)
		edge := graph.Edge{
			From:   src,
			Label:  b.l.value(dest).Label(),
			Color:  e.Kind.Color(),
			Dashed: e.Clocked,
		}
		if abs(v.Timestamp-dest.Timestamp) > b.l.opts.LongDistance {
			// The stand-in lives in the source lane; its id is unique per edge.
			pseudo := graph.NodeID(b.g.Len() + ei)
			b.addNode(b.vertexNode(to, pseudo, lane, graph.ClassLongDistance))
			edge.To = pseudo
		} else {
			edge.To = b.idOf(to)
		}
		b.addEdge(edge)
	}
}

// vertexNode renders vertex vi as a node with the given id, lane and class.
func (b *snapshotBuilder) vertexNode(vi int, id graph.NodeID, lane int, class graph.DependencyClass) graph.Node {
	v := b.g.Vertex(vi)
	return graph.Node{
		ID:         id,
		Label:      v.Name,
		Lane:       lane,
		Timestamp:  v.Timestamp,
		Class:      class,
		ModulePath: v.ModulePath(),
		File:       v.File,
		Line:       v.Line,
		Code:       b.l.sources.line(v.File, v.Line),
		Incoming:   b.incoming(vi),
		Outgoing:   b.outgoing(vi),
		Color:      v.Kind.Color(),
		Shape:      v.Kind.Shape(),
	}
}

// incoming lists the signals vi depends on.
func (b *snapshotBuilder) incoming(vi int) []graph.Signal {
	var out []graph.Signal
	for _, ei := range b.g.Dependencies(vi) {
		e := b.g.Edge(ei)
		out = append(out, b.signal(int(e.To), e.Kind))
	}
	return mergeSignals(nil, out)
}

// outgoing lists the signals depending on vi.
func (b *snapshotBuilder) outgoing(vi int) []graph.Signal {
	var out []graph.Signal
	for _, ei := range b.g.Providers(vi) {
		e := b.g.Edge(ei)
		out = append(out, b.signal(int(e.From), e.Kind))
	}
	return mergeSignals(nil, out)
}

func (b *snapshotBuilder) signal(vi int, kind pdg.EdgeKind) graph.Signal {
	v := b.g.Vertex(vi)
	return graph.Signal{
		Name:  v.SignalName(),
		Value: b.l.value(v).Value,
		Kind:  connectionKind(kind),
	}
}

func connectionKind(k pdg.EdgeKind) graph.ConnectionKind {
	switch k {
	case pdg.EdgeConditional:
		return graph.ConnectionControlFlow
	case pdg.EdgeIndex:
		return graph.ConnectionIndex
	default:
		return graph.ConnectionData
	}
}

// mergeSignals appends the signals of add missing from dst, keeping order.
func mergeSignals(dst, add []graph.Signal) []graph.Signal {
	seen := make(map[graph.Signal]bool, len(dst)+len(add))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
