package graph

// Graph is a module dependency multigraph.
// Nodes keep first-insertion order; a later write to the same id replaces the kind.
// Edges are kept in insertion order and never deduplicated.
type Graph struct {
	nodes []Node
	index map[string]int
	edges []Edge
}

// New creates an empty graph
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

func (g *Graph) upsertNode(id string, kind NodeKind) {
	if i, ok := g.index[id]; ok {
		g.nodes[i].Kind = kind
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, Node{ID: id, Kind: kind})
}

func (g *Graph) appendEdge(e Edge) {
	g.edges = append(g.edges, e)
}

// Nodes returns a copy of the nodes in insertion order
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edges in insertion order
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Node looks up a node by id
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// NodeCount returns the number of distinct modules
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of dependency occurrences
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// PayloadNode is a node in the serialized graph
type PayloadNode struct {
	ID   string   `json:"id" yaml:"id"`
	Type NodeKind `json:"type" yaml:"type"`
}

// PayloadEdge is an edge in the serialized graph
type PayloadEdge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Payload is the graph shape handed to persistence and visualization layers
type Payload struct {
	Nodes []PayloadNode `json:"nodes" yaml:"nodes"`
	Edges []PayloadEdge `json:"edges" yaml:"edges"`
}

// Payload converts the graph into its serialization shape
func (g *Graph) Payload() Payload {
	p := Payload{
		Nodes: make([]PayloadNode, 0, len(g.nodes)),
		Edges: make([]PayloadEdge, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		p.Nodes = append(p.Nodes, PayloadNode{ID: n.ID, Type: n.Kind})
	}
	for _, e := range g.edges {
		p.Edges = append(p.Edges, PayloadEdge{Source: e.From, Target: e.To})
	}
	return p
}
