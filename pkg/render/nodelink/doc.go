// Package nodelink exports a viewer window as a Graphviz diagram.
//
// The scene keeps the positions computed by the viewer: every node is
// emitted with a pinned pos attribute, and nodes are grouped into one
// cluster per lane. Rendering with the neato engine therefore reproduces
// the on-screen layout, while the dot engine ranks the lanes itself.
//
//	scene := nodelink.FromSession(session)
//	dot := nodelink.ToDOT(scene, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot, nodelink.EngineNeato)
//
// SVG rendering runs in-process through [github.com/goccy/go-graphviz];
// no Graphviz installation is required.
package nodelink
