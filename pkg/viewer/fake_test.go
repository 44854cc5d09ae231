package viewer

import (
	"context"
	"errors"
	"sync"

	"github.com/matzehuels/tracelane/pkg/graph"
)

// fakeBackend serves a synthetic graph with two nodes per lane: L*10+1 feeds
// L*10+2, and L*10+2 feeds (L+1)*10+1.
type fakeBackend struct {
	mu         sync.Mutex
	timeslots  int
	drop       map[graph.NodeID]bool
	extra      []graph.Node
	malformed  bool
	failRange  error
	failMutate error

	ranges  [][2]int
	toggled []toggleCall
	heads   []graph.NodeID
	resets  int
	editor  []graph.NodeID
}

type toggleCall struct {
	path      []string
	timestamp int
}

func newFakeBackend(timeslots int) *fakeBackend {
	return &fakeBackend{timeslots: timeslots, drop: map[graph.NodeID]bool{}}
}

func (f *fakeBackend) Timeslots(context.Context) (int, error) { return f.timeslots, nil }

func (f *fakeBackend) snapshot(begin, end int) graph.PartialGraph {
	g := graph.PartialGraph{Vertices: []graph.Node{}, Edges: []graph.Edge{}}
	held := map[graph.NodeID]bool{}
	for lane := begin; lane <= end; lane++ {
		for _, k := range []graph.NodeID{1, 2} {
			id := graph.NodeID(lane)*10 + k
			if f.drop[id] {
				continue
			}
			g.Vertices = append(g.Vertices, graph.Node{
				ID:         id,
				Label:      id.String(),
				Lane:       lane,
				Timestamp:  f.timeslots - lane,
				Class:      graph.ClassOrdinary,
				ModulePath: []string{"top", "core"},
				File:       "Top.scala",
				Line:       lane + 1,
				Incoming:   []graph.Signal{{Name: "io.in", Value: "1", Kind: graph.ConnectionData}},
			})
			held[id] = true
		}
	}
	for _, n := range f.extra {
		if n.Lane >= begin && n.Lane <= end {
			g.Vertices = append(g.Vertices, n)
			held[n.ID] = true
		}
	}
	for lane := begin; lane <= end; lane++ {
		a, b, c := graph.NodeID(lane)*10+1, graph.NodeID(lane)*10+2, graph.NodeID(lane+1)*10+1
		if held[a] && held[b] {
			g.Edges = append(g.Edges, graph.Edge{From: a, To: b})
		}
		if held[b] && held[c] {
			g.Edges = append(g.Edges, graph.Edge{From: b, To: c})
		}
	}
	return g
}

func (f *fakeBackend) PartialGraph(_ context.Context, begin, end int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, [2]int{begin, end})
	if f.failRange != nil {
		return nil, f.failRange
	}
	if f.malformed {
		return []byte(`{"vertices": [{"id": 1, "lane": 3}`), nil
	}
	return graph.EncodePartial(f.snapshot(begin, end))
}

func (f *fakeBackend) ToggleModule(_ context.Context, path []string, ts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggled = append(f.toggled, toggleCall{path, ts})
	return f.failMutate
}

func (f *fakeBackend) SetNewHead(_ context.Context, id graph.NodeID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads = append(f.heads, id)
	return f.failMutate
}

func (f *fakeBackend) ResetHead(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.failMutate
}

func (f *fakeBackend) OpenInEditor(_ context.Context, id graph.NodeID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editor = append(f.editor, id)
	return errors.New("no editor configured")
}
