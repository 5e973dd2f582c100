package ontology

// Node represents a type in the annotated ontology graph.
type Node struct {
	Name                string
	SourceDepth         int      // distance from the root type
	SinkDepth           int      // distance to the nearest sink below this type
	NearestSinkChildren []string // children realizing the nearest sink distance
	IsSink              bool     // true if the type has no children
	IsRoot              bool     // true if this is the root type
}

// Edge represents a parent -> child relationship between types.
type Edge struct {
	From string // parent type name
	To   string // child type name
}

// Graph represents the annotated type graph of one ontology.
type Graph struct {
	Nodes    map[string]*Node    // type name -> node
	Children map[string][]string // type name -> child type names (outgoing edges)
	Parents  map[string][]string // type name -> parent type names (incoming edges)
	Root     string              // root type name
	order    []string            // node insertion order, for deterministic iteration
}

// NewGraph creates a new empty graph with the specified root type.
func NewGraph(root string) *Graph {
	g := &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
		Root:     root,
	}

	// Add root node
	g.AddNode(root, &Node{
		Name:   root,
		IsRoot: true,
	})

	return g
}

// AddNode adds a type node to the graph.
// If node is nil, a new node with default values is created.
func (g *Graph) AddNode(name string, node *Node) {
	if node == nil {
		node = &Node{Name: name}
	}
	node.Name = name
	if _, exists := g.Nodes[name]; !exists {
		g.order = append(g.order, name)
	}
	g.Nodes[name] = node
}

// AddEdge adds a parent -> child relationship to the graph.
// It also maintains the reverse mapping for efficient parent lookups.
func (g *Graph) AddEdge(parent, child string) {
	// Add to children map (forward edges)
	g.Children[parent] = append(g.Children[parent], child)

	// Add to parents map (reverse edges)
	g.Parents[child] = append(g.Parents[child], parent)
}

// GetChildren returns all direct children of a type.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// GetParents returns all direct parents of a type.
func (g *Graph) GetParents(child string) []string {
	return g.Parents[child]
}

// GetNode returns the node for a given type name, or nil if not found.
func (g *Graph) GetNode(name string) *Node {
	return g.Nodes[name]
}

// HasNode returns true if the graph contains a node with the given name.
func (g *Graph) HasNode(name string) bool {
	_, exists := g.Nodes[name]
	return exists
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.Children {
		count += len(children)
	}
	return count
}

// AllNodes returns all type names in insertion order.
func (g *Graph) AllNodes() []string {
	return append([]string(nil), g.order...)
}

// AllEdges returns a slice of all edges in the graph, grouped by parent in
// insertion order.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for _, parent := range g.order {
		for _, child := range g.Children[parent] {
			edges = append(edges, Edge{From: parent, To: child})
		}
	}
	return edges
}

// Sinks returns all types with no children, in insertion order.
func (g *Graph) Sinks() []string {
	var sinks []string
	for _, name := range g.order {
		if len(g.Children[name]) == 0 {
			sinks = append(sinks, name)
		}
	}
	return sinks
}

// InDegree returns the number of incoming edges (parents) for a type.
func (g *Graph) InDegree(name string) int {
	return len(g.Parents[name])
}

// OutDegree returns the number of outgoing edges (children) for a type.
func (g *Graph) OutDegree(name string) int {
	return len(g.Children[name])
}
