package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tracelane/pkg/cache"
	"github.com/matzehuels/tracelane/pkg/errors"
	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/pdg"
	"github.com/matzehuels/tracelane/pkg/translate"
)

// DefaultLongDistance is the timestamp gap above which an edge is drawn to a
// long-distance stand-in instead of its real destination.
const DefaultLongDistance = 3

// collapsedColor fills synthetic module vertices.
const collapsedColor = "#D3D3D3"

// LocalOptions configures a Local backend.
type LocalOptions struct {
	// SourceRoot resolves relative source file names for code snippets
	// and editor jumps.
	SourceRoot string

	// EditorCommand is the command line run by OpenInEditor. {file} and
	// {line} are substituted, e.g. "code --goto {file}:{line}".
	EditorCommand string

	// Strategy selects how simulation values are displayed.
	Strategy translate.Strategy

	// LongDistance overrides DefaultLongDistance when positive.
	LongDistance int

	Logger *log.Logger
}

// Local serves a dynamic PDG held in memory. It is safe for concurrent use.
type Local struct {
	opts    LocalOptions
	sources *sourceCache
	launch  func(name string, args ...string) error

	mu        sync.RWMutex
	graph     *pdg.Graph
	digest    string
	version   uint64
	head      int
	visible   map[int]bool
	collapsed map[string]moduleKey

	// groups keeps the id handed to a module the first time it was
	// collapsed, so ids survive other modules being toggled.
	groups map[string]graph.NodeID
}

type moduleKey struct {
	Timestamp int
	Path      []string
}

func (k moduleKey) String() string {
	return fmt.Sprintf("%d/%s", k.Timestamp, strings.Join(k.Path, "."))
}

// NewLocal creates a backend for p. A nil p yields a backend that answers
// GRAPH_NOT_LOADED until Reload is called.
func NewLocal(p *pdg.PDG, opts LocalOptions) *Local {
	if opts.LongDistance <= 0 {
		opts.LongDistance = DefaultLongDistance
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	l := &Local{
		opts:      opts,
		sources:   newSourceCache(opts.SourceRoot),
		launch:    startDetached,
		head:      -1,
		collapsed: make(map[string]moduleKey),
		groups:    make(map[string]graph.NodeID),
	}
	if p != nil {
		l.graph = pdg.NewGraph(p)
		l.digest = digestOf(p)
	}
	return l
}

// digestOf hashes the graph content, so cache entries written for one export
// are never served for another export at the same path.
func digestOf(p *pdg.PDG) string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return cache.Hash(data)[:16]
}

// OpenLocal loads the PDG export at path.
func OpenLocal(path string, opts LocalOptions) (*Local, error) {
	p, err := pdg.LoadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "load graph %s", path)
	}
	return NewLocal(p, opts), nil
}

// Reload swaps in a new graph. Head and collapsed modules refer to vertex
// indices of the old graph and are reset.
func (l *Local) Reload(p *pdg.PDG) {
	g := pdg.NewGraph(p)
	digest := digestOf(p)
	l.mu.Lock()
	l.graph = g
	l.digest = digest
	l.version++
	l.head = -1
	l.visible = nil
	clear(l.collapsed)
	clear(l.groups)
	version := l.version
	l.mu.Unlock()

	l.sources.purge()
	l.opts.Logger.Info("graph reloaded", "version", version, "vertices", g.Len(), "timestamps", g.Timestamps())
}

// Version counts reloads.
func (l *Local) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Fingerprint identifies everything a snapshot depends on besides its range:
// graph content, head and collapsed modules. Equal fingerprints always
// describe equal snapshots, also across process restarts.
func (l *Local) Fingerprint() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fingerprint()
}

func (l *Local) fingerprint() string {
	keys := make([]string, 0, len(l.collapsed))
	for k := range l.collapsed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("g%s;h%d;c[%s]", l.digest, l.head, strings.Join(keys, ","))
}

func (l *Local) loaded() (*pdg.Graph, error) {
	if l.graph == nil {
		return nil, errors.New(errors.ErrCodeGraphNotReady, "no graph loaded")
	}
	return l.graph, nil
}

// =============================================================================
// Queries
// =============================================================================

// Timeslots implements Backend.
func (l *Local) Timeslots(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, err := l.loaded()
	if err != nil {
		return 0, err
	}
	return g.Timestamps(), nil
}

// PartialGraph implements Backend.
func (l *Local) PartialGraph(ctx context.Context, begin, end int) ([]byte, error) {
	g, err := l.Snapshot(ctx, begin, end)
	if err != nil {
		return nil, err
	}
	return graph.EncodePartial(g)
}

// PartialGraphAt encodes the window for lanes [begin, end] and returns the
// fingerprint of the state it was built from.
func (l *Local) PartialGraphAt(ctx context.Context, begin, end int) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	l.mu.RLock()
	g, err := l.snapshot(begin, end)
	fp := l.fingerprint()
	l.mu.RUnlock()
	if err != nil {
		return nil, "", err
	}
	data, err := graph.EncodePartial(g)
	return data, fp, err
}

// Snapshot builds the window for lanes [begin, end].
func (l *Local) Snapshot(ctx context.Context, begin, end int) (graph.PartialGraph, error) {
	if err := ctx.Err(); err != nil {
		return graph.PartialGraph{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot(begin, end)
}

func (l *Local) snapshot(begin, end int) (graph.PartialGraph, error) {
	g, err := l.loaded()
	if err != nil {
		return graph.PartialGraph{}, err
	}
	if err := errors.ValidateRange(begin, end, g.Timestamps()+1); err != nil {
		return graph.PartialGraph{}, err
	}
	b := &snapshotBuilder{l: l, g: g, groups: l.groups}
	for lane := begin; lane <= end; lane++ {
		for _, vi := range g.At(g.TimestampOf(lane)) {
			if l.isVisible(vi) {
				b.addVertex(vi, lane)
			}
		}
	}
	return b.out, nil
}

func (l *Local) isVisible(vi int) bool {
	return l.visible == nil || l.visible[vi]
}

// groupID returns the id of module k, numbering modules above the
// pseudo-vertex id space in the order they were first collapsed.
func (l *Local) groupID(g *pdg.Graph, k string) graph.NodeID {
	if id, ok := l.groups[k]; ok {
		return id
	}
	id := graph.NodeID(g.Len()+g.EdgeCount()) + graph.NodeID(len(l.groups))
	l.groups[k] = id
	return id
}

// groupOf returns the outermost collapsed module containing vi.
func (l *Local) groupOf(g *pdg.Graph, vi int) (moduleKey, bool) {
	if len(l.collapsed) == 0 {
		return moduleKey{}, false
	}
	v := g.Vertex(vi)
	path := v.ModulePath()
	var best moduleKey
	found := false
	for _, k := range l.collapsed {
		if k.Timestamp != v.Timestamp || !pdg.HasPrefix(path, k.Path) {
			continue
		}
		if !found || len(k.Path) < len(best.Path) {
			best, found = k, true
		}
	}
	return best, found
}

func (l *Local) value(v *pdg.Vertex) translate.Result {
	if v.SimData == nil {
		return translate.Result{}
	}
	return translate.Value(*v.SimData, l.opts.Strategy)
}

// =============================================================================
// Mutations
// =============================================================================

// ToggleModule implements Backend.
func (l *Local) ToggleModule(ctx context.Context, path []string, timestamp int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := errors.ValidateModulePath(path); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	g, err := l.loaded()
	if err != nil {
		return err
	}
	if timestamp < 0 || timestamp > g.Timestamps() {
		return errors.New(errors.ErrCodeInvalidRange, "timestamp %d outside [0, %d]", timestamp, g.Timestamps())
	}
	k := moduleKey{Timestamp: timestamp, Path: append([]string(nil), path...)}
	if _, ok := l.collapsed[k.String()]; ok {
		delete(l.collapsed, k.String())
		l.opts.Logger.Debug("module expanded", "module", k)
	} else {
		l.collapsed[k.String()] = k
		l.opts.Logger.Debug("module collapsed", "module", k, "id", l.groupID(g, k.String()))
	}
	return nil
}

// SetNewHead implements Backend.
func (l *Local) SetNewHead(ctx context.Context, id graph.NodeID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	g, err := l.loaded()
	if err != nil {
		return err
	}
	vi, err := l.resolve(g, id)
	if err != nil {
		return err
	}
	l.head = vi
	l.visible = g.Reachable(vi)
	l.opts.Logger.Debug("head moved", "vertex", vi, "visible", len(l.visible))
	return nil
}

// ResetHead implements Backend.
func (l *Local) ResetHead(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.head = -1
	l.visible = nil
	return nil
}

// OpenInEditor implements Backend.
func (l *Local) OpenInEditor(ctx context.Context, id graph.NodeID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.opts.EditorCommand == "" {
		return errors.New(errors.ErrCodeUnsupported, "no editor command configured")
	}
	l.mu.RLock()
	g, err := l.loaded()
	var v pdg.Vertex
	if err == nil {
		var vi int
		if vi, err = l.resolve(g, id); err == nil {
			v = *g.Vertex(vi)
		}
	}
	l.mu.RUnlock()
	if err != nil {
		return err
	}

	argv := editorArgs(l.opts.EditorCommand, l.sources.abs(v.File), v.Line)
	if len(argv) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "empty editor command")
	}
	l.opts.Logger.Debug("opening editor", "cmd", argv)
	if err := l.launch(argv[0], argv[1:]...); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "start editor")
	}
	return nil
}

// resolve maps a wire id back to a vertex index. Long-distance stand-ins
// resolve to the vertex they stand for.
func (l *Local) resolve(g *pdg.Graph, id graph.NodeID) (int, error) {
	nv, ne := uint64(g.Len()), uint64(g.EdgeCount())
	switch n := uint64(id); {
	case n < nv:
		return int(n), nil
	case n < nv+ne:
		return int(g.Edge(int(n - nv)).To), nil
	case n < nv+ne+uint64(len(l.groups)):
		return 0, errors.New(errors.ErrCodeUnsupported, "node %v is a collapsed module", id)
	}
	return 0, errors.New(errors.ErrCodeNodeNotFound, "node %v does not exist", id)
}

var _ Backend = (*Local)(nil)
