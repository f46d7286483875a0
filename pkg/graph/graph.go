// Package graph holds the immutable program graph the classifier runs over:
// nodes with derived roles, condition-guarded edges, and the authoritative
// registered entry-point set. A Builder assembles the graph once; afterwards
// the graph never changes, so concurrent readers need no locking.
package graph

import "github.com/sinkscope/sinkscope/pkg/models"

// Node is one resolved graph node. The role and strength are derived from
// the declared tags before the node enters the graph; they are fixed data,
// never inferred from the node's name.
type Node struct {
	ID       string
	Kind     models.NodeKind
	Role     models.Role
	Strength models.Strength
	SinkKind models.SinkKind
	Protects string
}

// Edge is one directed, condition-guarded edge.
type Edge struct {
	From      string
	To        string
	Condition models.BranchCondition
}

// Graph is the finished, immutable graph. Nodes, edges and entry points keep
// their declaration order so enumeration is reproducible across runs.
type Graph struct {
	name       string
	nodes      map[string]Node
	order      []string
	out        map[string][]Edge
	in         map[string][]Edge
	registered map[string]bool
}

// Name returns the graph's declared name, if any.
func (g *Graph) Name() string {
	return g.name
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in declaration order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// OutEdges returns the out-edges of a node in declaration order.
func (g *Graph) OutEdges(id string) []Edge {
	return g.out[id]
}

// InEdges returns the in-edges of a node in declaration order.
func (g *Graph) InEdges(id string) []Edge {
	return g.in[id]
}

// EntryPoints returns every entry-point node, registered or not, in
// declaration order.
func (g *Graph) EntryPoints() []Node {
	var entries []Node
	for _, id := range g.order {
		if n := g.nodes[id]; n.Kind == models.KindEntryPoint {
			entries = append(entries, n)
		}
	}
	return entries
}

// Sinks returns every sink node in declaration order.
func (g *Graph) Sinks() []Node {
	var sinks []Node
	for _, id := range g.order {
		if n := g.nodes[id]; n.Kind == models.KindSink {
			sinks = append(sinks, n)
		}
	}
	return sinks
}

// IsRegistered reports whether an entry point is wired to the outside.
func (g *Graph) IsRegistered(id string) bool {
	return g.registered[id]
}

// OrphanedSinks returns the ids of sinks with no incoming edges, in
// declaration order.
func (g *Graph) OrphanedSinks() []string {
	var orphaned []string
	for _, id := range g.order {
		if n := g.nodes[id]; n.Kind == models.KindSink && len(g.in[id]) == 0 {
			orphaned = append(orphaned, id)
		}
	}
	return orphaned
}

// Builder assembles a Graph. Structural problems surface eagerly: a
// duplicate id fails AddNode, an unknown endpoint fails AddEdge, so the
// offending declaration is reported, not a later symptom.
type Builder struct {
	graph *Graph
}

// NewBuilder creates a builder for a named graph.
func NewBuilder(name string) *Builder {
	return &Builder{
		graph: &Graph{
			name:       name,
			nodes:      make(map[string]Node),
			out:        make(map[string][]Edge),
			in:         make(map[string][]Edge),
			registered: make(map[string]bool),
		},
	}
}

// AddNode adds a node. Node ids must be unique.
func (b *Builder) AddNode(n Node) error {
	if _, exists := b.graph.nodes[n.ID]; exists {
		return &DuplicateNodeError{ID: n.ID}
	}
	b.graph.nodes[n.ID] = n
	b.graph.order = append(b.graph.order, n.ID)
	return nil
}

// AddEdge adds a directed edge between two declared nodes. Self-loops and
// back-edges are allowed; parallel edges are kept as declared.
func (b *Builder) AddEdge(from, to string, condition models.BranchCondition) error {
	if _, ok := b.graph.nodes[from]; !ok {
		return &DanglingEdgeError{From: from, To: to, Missing: from}
	}
	if _, ok := b.graph.nodes[to]; !ok {
		return &DanglingEdgeError{From: from, To: to, Missing: to}
	}
	edge := Edge{From: from, To: to, Condition: condition}
	b.graph.out[from] = append(b.graph.out[from], edge)
	b.graph.in[to] = append(b.graph.in[to], edge)
	return nil
}

// MarkEntryRegistered records that an entry point is reachable from the
// outside. Registration is decided here, once, and is authoritative.
func (b *Builder) MarkEntryRegistered(id string) error {
	n, ok := b.graph.nodes[id]
	if !ok {
		return &EntryRegistrationError{ID: id, Reason: "unknown node id"}
	}
	if n.Kind != models.KindEntryPoint {
		return &EntryRegistrationError{ID: id, Reason: "node is not an entry point"}
	}
	b.graph.registered[id] = true
	return nil
}

// Build finalizes the graph. The builder must not be reused afterwards.
func (b *Builder) Build() *Graph {
	g := b.graph
	b.graph = nil
	return g
}
