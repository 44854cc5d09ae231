package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/tracelane/pkg/errors"
	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/pdg"
)

const smallGraph = "../pdg/testdata/small.json"

func newSmallLocal(t *testing.T, opts LocalOptions) *Local {
	t.Helper()
	l, err := OpenLocal(smallGraph, opts)
	if err != nil {
		t.Fatalf("OpenLocal() error = %v", err)
	}
	return l
}

func ids(g graph.PartialGraph) []graph.NodeID {
	var out []graph.NodeID
	for _, v := range g.Vertices {
		out = append(out, v.ID)
	}
	return out
}

func equalIDs(a, b []graph.NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLocalTimeslots(t *testing.T) {
	l := newSmallLocal(t, LocalOptions{})
	n, err := l.Timeslots(context.Background())
	if err != nil || n != 5 {
		t.Errorf("Timeslots() = %d, %v, want 5", n, err)
	}
}

func TestLocalNotLoaded(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(nil, LocalOptions{})
	if _, err := l.Timeslots(ctx); !errors.Is(err, errors.ErrCodeGraphNotReady) {
		t.Errorf("Timeslots() error = %v, want GRAPH_NOT_LOADED", err)
	}
	if _, err := l.PartialGraph(ctx, 0, 0); !errors.Is(err, errors.ErrCodeGraphNotReady) {
		t.Errorf("PartialGraph() error = %v, want GRAPH_NOT_LOADED", err)
	}

	p, err := pdg.LoadFile(smallGraph)
	if err != nil {
		t.Fatal(err)
	}
	l.Reload(p)
	if n, err := l.Timeslots(ctx); err != nil || n != 5 {
		t.Errorf("Timeslots() after Reload = %d, %v", n, err)
	}
	if l.Version() != 1 {
		t.Errorf("Version() = %d, want 1", l.Version())
	}
}

func TestSnapshotLongDistance(t *testing.T) {
	l := newSmallLocal(t, LocalOptions{})
	g, err := l.Snapshot(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if want := []graph.NodeID{4, 10, 5, 11}; !equalIDs(ids(g), want) {
		t.Fatalf("vertices = %v, want %v", ids(g), want)
	}
	idx := g.Index()
	for _, id := range []graph.NodeID{10, 11} {
		n := idx[id]
		if !n.IsLongDistance() || n.Lane != 0 {
			t.Errorf("stand-in %v = class %v lane %d, want long-distance in lane 0", id, n.Class, n.Lane)
		}
	}
	if idx[10].Label != "io.in" {
		t.Errorf("stand-in label = %q, want destination name", idx[10].Label)
	}
	if idx[4].Class != graph.ClassOrdinary {
		t.Errorf("vertex 4 class = %v", idx[4].Class)
	}

	want := []graph.Edge{
		{From: 4, To: 2, Label: "SInt<4> -2", Color: "#97C2FC"},
		{From: 4, To: 10, Label: "UInt<4> 1", Color: "#bc2dcc"},
		{From: 5, To: 11, Label: "UInt<4> 5", Color: "#97C2FC"},
	}
	if len(g.Edges) != len(want) {
		t.Fatalf("edges = %+v, want %+v", g.Edges, want)
	}
	for i := range want {
		if g.Edges[i] != want[i] {
			t.Errorf("edge[%d] = %+v, want %+v", i, g.Edges[i], want[i])
		}
	}
}

func TestSnapshotSignals(t *testing.T) {
	l := newSmallLocal(t, LocalOptions{})
	g, err := l.Snapshot(context.Background(), 3, 3)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	idx := g.Index()
	v2 := idx[2]
	if v2 == nil || v2.Lane != 3 || v2.Timestamp != 2 {
		t.Fatalf("vertex 2 = %+v", v2)
	}
	wantIn := []graph.Signal{
		{Name: "top.core.r", Value: "5", Kind: graph.ConnectionData},
		{Name: "top.core.cond", Value: "true", Kind: graph.ConnectionControlFlow},
	}
	if len(v2.Incoming) != 2 || v2.Incoming[0] != wantIn[0] || v2.Incoming[1] != wantIn[1] {
		t.Errorf("Incoming = %+v, want %+v", v2.Incoming, wantIn)
	}
	wantOut := graph.Signal{Name: "top.io.out", Value: "3", Kind: graph.ConnectionData}
	if len(v2.Outgoing) != 1 || v2.Outgoing[0] != wantOut {
		t.Errorf("Outgoing = %+v, want [%+v]", v2.Outgoing, wantOut)
	}
	if v2.Color != "#97C2FC" || v2.Shape != "ellipse" {
		t.Errorf("style = %s %s", v2.Color, v2.Shape)
	}
	if strings.Join(v2.ModulePath, ".") != "top.core.alu" {
		t.Errorf("ModulePath = %v", v2.ModulePath)
	}

	var clocked bool
	for _, e := range g.Edges {
		if e.From == 2 && e.To == 1 {
			clocked = e.Dashed
		}
	}
	if !clocked {
		t.Error("clocked edge 2 -> 1 is not dashed")
	}
}

func TestSnapshotCodeSnippet(t *testing.T) {
	root := t.TempDir()
	src := "package top\n\nclass Top {\n  val r = Reg()\n  alu.out := r\n"
	if err := os.WriteFile(filepath.Join(root, "Top.scala"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	l := newSmallLocal(t, LocalOptions{SourceRoot: root})
	g, err := l.Snapshot(context.Background(), 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	idx := g.Index()
	if got := idx[2].Snippet(); got != "  alu.out := r" {
		t.Errorf("snippet = %q", got)
	}
	if idx[3].Code != nil {
		t.Errorf("line past EOF produced snippet %q", *idx[3].Code)
	}
}

func TestSnapshotRangeValidation(t *testing.T) {
	l := newSmallLocal(t, LocalOptions{})
	for _, r := range [][2]int{{-1, 2}, {4, 2}, {0, 6}} {
		if _, err := l.PartialGraph(context.Background(), r[0], r[1]); !errors.Is(err, errors.ErrCodeInvalidRange) {
			t.Errorf("PartialGraph(%d, %d) error = %v, want INVALID_RANGE", r[0], r[1], err)
		}
	}
}

func TestPartialGraphDecodes(t *testing.T) {
	l := newSmallLocal(t, LocalOptions{})
	data, err := l.PartialGraph(context.Background(), 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	g, err := graph.DecodePartial(data)
	if err != nil {
		t.Fatalf("DecodePartial() error = %v", err)
	}
	if len(g.Vertices) != 8 {
		t.Errorf("full window has %d vertices, want 6 real + 2 stand-ins", len(g.Vertices))
	}
}

func TestHead(t *testing.T) {
	ctx := context.Background()
	l := newSmallLocal(t, LocalOptions{})
	before := l.Fingerprint()

	if err := l.SetNewHead(ctx, 2); err != nil {
		t.Fatalf("SetNewHead() error = %v", err)
	}
	if l.Fingerprint() == before {
		t.Error("Fingerprint() unchanged after SetNewHead")
	}
	g, _ := l.Snapshot(ctx, 0, 0)
	if len(g.Vertices) != 0 {
		t.Errorf("dependents of the head still visible: %v", ids(g))
	}
	g, _ = l.Snapshot(ctx, 3, 5)
	if want := []graph.NodeID{2, 3, 1, 0}; !equalIDs(ids(g), want) {
		t.Errorf("cone = %v, want %v", ids(g), want)
	}

	// A stand-in resolves to the vertex it represents.
	if err := l.SetNewHead(ctx, 10); err != nil {
		t.Fatalf("SetNewHead(stand-in) error = %v", err)
	}
	g, _ = l.Snapshot(ctx, 0, 5)
	if want := []graph.NodeID{0}; !equalIDs(ids(g), want) {
		t.Errorf("cone of stand-in = %v, want %v", ids(g), want)
	}

	if err := l.SetNewHead(ctx, 99); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("SetNewHead(99) error = %v, want NODE_NOT_FOUND", err)
	}

	if err := l.ResetHead(ctx); err != nil {
		t.Fatal(err)
	}
	g, _ = l.Snapshot(ctx, 0, 5)
	if len(g.Vertices) != 8 {
		t.Errorf("after ResetHead %d vertices, want 8", len(g.Vertices))
	}
	if l.Fingerprint() != before {
		t.Errorf("Fingerprint() = %q after reset, want %q", l.Fingerprint(), before)
	}
}

func TestToggleModule(t *testing.T) {
	ctx := context.Background()
	l := newSmallLocal(t, LocalOptions{})

	if err := l.ToggleModule(ctx, []string{"top", "core"}, 2); err != nil {
		t.Fatalf("ToggleModule() error = %v", err)
	}
	g, _ := l.Snapshot(ctx, 3, 3)
	if want := []graph.NodeID{12}; !equalIDs(ids(g), want) {
		t.Fatalf("collapsed lane = %v, want %v", ids(g), want)
	}
	group := g.Vertices[0]
	if group.Label != "core" || group.Lane != 3 {
		t.Errorf("group = %+v", group)
	}
	if len(g.Edges) != 1 || g.Edges[0].From != 12 || g.Edges[0].To != 1 {
		t.Errorf("edges = %+v, want only 12 -> 1", g.Edges)
	}
	if len(group.Incoming) != 2 {
		t.Errorf("group incoming = %+v, want members' signals", group.Incoming)
	}

	// Edges into collapsed members are redirected.
	g, _ = l.Snapshot(ctx, 0, 0)
	if g.Edges[0].To != 12 {
		t.Errorf("edge into member = %+v, want redirected to 12", g.Edges[0])
	}

	// Collapsing only applies to its own timestamp.
	g, _ = l.Snapshot(ctx, 4, 4)
	if want := []graph.NodeID{1}; !equalIDs(ids(g), want) {
		t.Errorf("lane 4 = %v, want %v", ids(g), want)
	}

	if err := l.SetNewHead(ctx, 12); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("SetNewHead(group) error = %v, want UNSUPPORTED", err)
	}

	if err := l.ToggleModule(ctx, []string{"top", "core"}, 2); err != nil {
		t.Fatal(err)
	}
	g, _ = l.Snapshot(ctx, 3, 3)
	if want := []graph.NodeID{2, 3}; !equalIDs(ids(g), want) {
		t.Errorf("expanded lane = %v, want %v", ids(g), want)
	}
}

func groupIDByLabel(g graph.PartialGraph, label string) (graph.NodeID, bool) {
	for _, v := range g.Vertices {
		if v.Label == label && v.Shape == "box" && v.Color == collapsedColor {
			return v.ID, true
		}
	}
	return 0, false
}

func TestToggleModuleStableIDs(t *testing.T) {
	ctx := context.Background()
	l := newSmallLocal(t, LocalOptions{})
	alu := []string{"top", "core", "alu"}

	if err := l.ToggleModule(ctx, alu, 5); err != nil {
		t.Fatal(err)
	}
	g, _ := l.Snapshot(ctx, 0, 0)
	first, ok := groupIDByLabel(g, "alu")
	if !ok {
		t.Fatalf("no alu group in %+v", g.Vertices)
	}

	// "2/top.core" sorts before "5/top.core.alu".
	if err := l.ToggleModule(ctx, []string{"top", "core"}, 2); err != nil {
		t.Fatal(err)
	}
	g, _ = l.Snapshot(ctx, 0, 3)
	if id, _ := groupIDByLabel(g, "alu"); id != first {
		t.Errorf("alu group id = %v after collapsing core, want %v", id, first)
	}
	core, ok := groupIDByLabel(g, "core")
	if !ok || core == first {
		t.Errorf("core group id = %v, %v, want a fresh id", core, ok)
	}

	// Expanding and collapsing again hands back the same id.
	for range 2 {
		if err := l.ToggleModule(ctx, alu, 5); err != nil {
			t.Fatal(err)
		}
	}
	g, _ = l.Snapshot(ctx, 0, 3)
	if id, _ := groupIDByLabel(g, "alu"); id != first {
		t.Errorf("alu group id = %v after re-collapse, want %v", id, first)
	}
	if id, _ := groupIDByLabel(g, "core"); id != core {
		t.Errorf("core group id = %v after toggling alu, want %v", id, core)
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	p, err := pdg.LoadFile(smallGraph)
	if err != nil {
		t.Fatal(err)
	}
	a := NewLocal(p, LocalOptions{})
	if b := NewLocal(p, LocalOptions{}); a.Fingerprint() != b.Fingerprint() {
		t.Errorf("same content, fingerprints %q and %q", a.Fingerprint(), b.Fingerprint())
	}

	edited, _ := pdg.LoadFile(smallGraph)
	edited.Vertices[4].Name = "edited"
	if b := NewLocal(edited, LocalOptions{}); a.Fingerprint() == b.Fingerprint() {
		t.Errorf("edited content kept fingerprint %q", a.Fingerprint())
	}

	before := a.Fingerprint()
	a.Reload(edited)
	if a.Fingerprint() == before {
		t.Error("Fingerprint() unchanged after reloading edited content")
	}
}

func TestToggleModuleValidation(t *testing.T) {
	ctx := context.Background()
	l := newSmallLocal(t, LocalOptions{})
	if err := l.ToggleModule(ctx, nil, 2); !errors.Is(err, errors.ErrCodeInvalidModulePath) {
		t.Errorf("empty path error = %v", err)
	}
	if err := l.ToggleModule(ctx, []string{"top"}, 9); !errors.Is(err, errors.ErrCodeInvalidRange) {
		t.Errorf("bad timestamp error = %v", err)
	}
}

func TestReloadResetsState(t *testing.T) {
	ctx := context.Background()
	l := newSmallLocal(t, LocalOptions{})
	_ = l.SetNewHead(ctx, 2)
	_ = l.ToggleModule(ctx, []string{"top"}, 5)

	p, _ := pdg.LoadFile(smallGraph)
	l.Reload(p)
	g, _ := l.Snapshot(ctx, 0, 5)
	if len(g.Vertices) != 8 {
		t.Errorf("after Reload %d vertices, want 8", len(g.Vertices))
	}
}

func TestOpenInEditor(t *testing.T) {
	ctx := context.Background()

	l := newSmallLocal(t, LocalOptions{})
	if err := l.OpenInEditor(ctx, 2); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("without command error = %v, want UNSUPPORTED", err)
	}

	l = newSmallLocal(t, LocalOptions{SourceRoot: "/src", EditorCommand: "code --goto {file}:{line}"})
	var got []string
	l.launch = func(name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}
	if err := l.OpenInEditor(ctx, 2); err != nil {
		t.Fatalf("OpenInEditor() error = %v", err)
	}
	want := []string{"code", "--goto", filepath.Join("/src", "Top.scala") + ":5"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("launched %v, want %v", got, want)
	}

	if err := l.OpenInEditor(ctx, 99); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("unknown node error = %v", err)
	}
}
