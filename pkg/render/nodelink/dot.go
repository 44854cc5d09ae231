package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/layout"
	"github.com/matzehuels/tracelane/pkg/timeline"
	"github.com/matzehuels/tracelane/pkg/viewer"
)

// Scene is a frozen copy of a viewer window.
type Scene struct {
	Lanes  []timeline.Lane
	Nodes  []viewer.NodeView
	Edges  []graph.Edge
	Height float64
}

// FromSession snapshots the loaded lanes of s with their current positions.
func FromSession(s *viewer.Session) Scene {
	_, height := s.Size()
	loaded := s.Loaded()
	var lanes []timeline.Lane
	for _, l := range s.Timeline().Lanes() {
		if loaded.Has(l.ID) {
			lanes = append(lanes, l)
		}
	}
	return Scene{
		Lanes:  lanes,
		Nodes:  s.Nodes(),
		Edges:  s.Edges(),
		Height: height,
	}
}

// Options configures DOT generation.
type Options struct {
	// Detailed adds the source location and the code line to node labels.
	Detailed bool
	// NoPin omits pos attributes so the layout engine places nodes freely.
	NoPin bool
}

// ToDOT converts a scene to Graphviz DOT source.
func ToDOT(sc Scene, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph tracelane {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  node [style=filled, fillcolor=white, fontname=\"Helvetica\", fontsize=12];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=10, arrowsize=0.6];\n")

	byLane := make(map[int][]viewer.NodeView)
	for _, n := range sc.Nodes {
		byLane[n.Lane] = append(byLane[n.Lane], n)
	}

	written := make(map[int]bool)
	for _, l := range sc.Lanes {
		fmt.Fprintf(&buf, "\n  subgraph \"cluster_lane_%d\" {\n", l.ID)
		fmt.Fprintf(&buf, "    label=%s;\n", quote(l.Label))
		buf.WriteString("    style=dashed;\n    color=grey;\n")
		for _, n := range byLane[l.ID] {
			writeNode(&buf, "    ", n, sc.Height, opts)
		}
		buf.WriteString("  }\n")
		written[l.ID] = true
	}

	// Nodes whose lane is not part of the scene go outside any cluster.
	var orphans []int
	for lane := range byLane {
		if !written[lane] {
			orphans = append(orphans, lane)
		}
	}
	sort.Ints(orphans)
	if len(orphans) > 0 {
		buf.WriteString("\n")
	}
	for _, lane := range orphans {
		for _, n := range byLane[lane] {
			writeNode(&buf, "  ", n, sc.Height, opts)
		}
	}

	if len(sc.Edges) > 0 {
		buf.WriteString("\n")
	}
	for _, e := range sc.Edges {
		attrs := edgeAttrs(e)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %s -> %s;\n", quote(e.From.String()), quote(e.To.String()))
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", quote(e.From.String()), quote(e.To.String()), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeNode(buf *bytes.Buffer, indent string, n viewer.NodeView, height float64, opts Options) {
	attrs := nodeAttrs(n, fmtLabel(n.Node, opts.Detailed))
	if !opts.NoPin {
		attrs = append(attrs, "pos="+quote(pinned(n.Pos, height)))
	}
	fmt.Fprintf(buf, "%s%s [%s];\n", indent, quote(n.ID.String()), strings.Join(attrs, ", "))
}

func fmtLabel(n *graph.Node, detailed bool) string {
	if !detailed {
		return n.Label
	}
	parts := []string{n.Label}
	if loc := n.Location(); loc != "" {
		parts = append(parts, loc)
	}
	if code := strings.TrimSpace(n.Snippet()); code != "" {
		parts = append(parts, code)
	}
	return strings.Join(parts, "\n")
}

func nodeAttrs(n viewer.NodeView, label string) []string {
	attrs := []string{"label=" + quote(label)}
	if n.Shape != "" {
		attrs = append(attrs, "shape="+shape(n.Shape))
	}
	if n.Color != "" {
		attrs = append(attrs, "fillcolor="+quote(n.Color))
	}
	if n.IsLongDistance() {
		attrs = append(attrs, "style=\"filled,dashed\"")
	}
	return attrs
}

func edgeAttrs(e graph.Edge) []string {
	var attrs []string
	if e.Label != "" {
		attrs = append(attrs, "label="+quote(e.Label))
	}
	if e.Color != "" {
		attrs = append(attrs, "color="+quote(e.Color))
	}
	if e.Dashed {
		attrs = append(attrs, "style=dashed")
	}
	return attrs
}

// shape maps viewer shape names onto Graphviz ones.
func shape(s string) string {
	switch s {
	case "box", "diamond", "ellipse", "circle":
		return s
	case "dot":
		return "point"
	default:
		return "ellipse"
	}
}

// pinned converts a canvas point (y down) to a fixed Graphviz position
// in points (y up).
func pinned(p layout.Point, height float64) string {
	return strconv.FormatFloat(p.X, 'f', 1, 64) + "," + strconv.FormatFloat(height-p.Y, 'f', 1, 64) + "!"
}

// quote produces a DOT double-quoted string.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")
	return `"` + r.Replace(s) + `"`
}

// =============================================================================
// Rendering
// =============================================================================

// Engine selects the Graphviz layout engine.
type Engine string

const (
	// EngineNeato honours pinned positions.
	EngineNeato Engine = "neato"
	// EngineDot lays lanes out as ranks.
	EngineDot Engine = "dot"
)

// ParseEngine validates an engine name.
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(strings.ToLower(s)); e {
	case EngineNeato, EngineDot:
		return e, nil
	}
	return "", fmt.Errorf("unknown layout engine %q (want neato or dot)", s)
}

// RenderSVG renders DOT source to SVG with the given engine.
func RenderSVG(ctx context.Context, dot string, engine Engine) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	switch engine {
	case EngineDot:
		gv.SetLayout(graphviz.DOT)
	default:
		gv.SetLayout(graphviz.NEATO)
	}

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing starts at the
// origin and carries explicit pixel dimensions.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
