package pdg

// Graph is an indexed, read-only PDG.
type Graph struct {
	pdg        *PDG
	byTime     map[int][]int
	dependents map[int][]int // vertex -> edges leaving it (what it depends on)
	providers  map[int][]int // vertex -> edges arriving at it (who depends on it)
	timestamps int
}

// NewGraph indexes p. p must not be modified afterwards.
func NewGraph(p *PDG) *Graph {
	g := &Graph{
		pdg:        p,
		byTime:     make(map[int][]int),
		dependents: make(map[int][]int),
		providers:  make(map[int][]int),
	}
	for i := range p.Vertices {
		ts := p.Vertices[i].Timestamp
		g.byTime[ts] = append(g.byTime[ts], i)
		g.timestamps = max(g.timestamps, ts)
	}
	for i, e := range p.Edges {
		g.dependents[int(e.From)] = append(g.dependents[int(e.From)], i)
		g.providers[int(e.To)] = append(g.providers[int(e.To)], i)
	}
	return g
}

// Len returns the vertex count.
func (g *Graph) Len() int { return len(g.pdg.Vertices) }

// EdgeCount returns the edge count.
func (g *Graph) EdgeCount() int { return len(g.pdg.Edges) }

// Timestamps returns the highest timestamp. Lanes are derived from it.
func (g *Graph) Timestamps() int { return g.timestamps }

// LaneOf maps a timestamp to its lane id: the most recent timestamp is lane 0.
func (g *Graph) LaneOf(ts int) int { return g.timestamps - ts }

// TimestampOf maps a lane id back to its timestamp.
func (g *Graph) TimestampOf(lane int) int { return g.timestamps - lane }

// Vertex returns vertex i.
func (g *Graph) Vertex(i int) *Vertex { return &g.pdg.Vertices[i] }

// Edge returns edge i.
func (g *Graph) Edge(i int) *Edge { return &g.pdg.Edges[i] }

// At returns the vertices stamped ts, in export order.
func (g *Graph) At(ts int) []int { return g.byTime[ts] }

// Dependencies returns the edges leaving i.
func (g *Graph) Dependencies(i int) []int { return g.dependents[i] }

// Providers returns the edges arriving at i.
func (g *Graph) Providers(i int) []int { return g.providers[i] }

// Reachable returns every vertex reachable from root along dependency edges,
// root included.
func (g *Graph) Reachable(root int) map[int]bool {
	seen := map[int]bool{root: true}
	stack := []int{root}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ei := range g.dependents[v] {
			to := int(g.pdg.Edges[ei].To)
			if !seen[to] {
				seen[to] = true
				stack = append(stack, to)
			}
		}
	}
	return seen
}
