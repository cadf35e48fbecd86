// Package toposort orders named nodes of a dependency graph, emitting every
// node after the nodes it depends on, with lexicographic tie-breaking.
package toposort

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// CycleError reports the nodes of a dependency cycle in traversal order.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "dependency cycle detected"
	}

	return "dependency cycle detected: " + strings.Join(append(append([]string(nil), e.Cycle...), e.Cycle[0]), " -> ")
}

// Graph is a dependency graph over string node names.
type Graph struct {
	symbols  *SymbolTable
	intGraph *IntGraph
}

// NewGraph initializes a new Graph.
func NewGraph() *Graph {
	return &Graph{
		symbols:  NewSymbolTable(),
		intGraph: NewIntGraph(),
	}
}

// AddNode inserts a new node into the graph.
// Returns false if the node already exists.
func (g *Graph) AddNode(name string) bool {
	if _, exists := g.symbols.Lookup(name); exists {
		return false
	}

	return g.intGraph.AddNode(g.symbols.Intern(name))
}

// HasNode reports whether name is a node.
func (g *Graph) HasNode(name string) bool {
	_, exists := g.symbols.Lookup(name)

	return exists
}

// AddEdge records that "from" depends on "to", adding missing nodes.
// Returns false if the edge already existed.
func (g *Graph) AddEdge(from, to string) bool {
	u := g.symbols.Intern(from)
	v := g.symbols.Intern(to)

	g.intGraph.AddNode(u)
	g.intGraph.AddNode(v)

	return g.intGraph.AddEdge(u, v)
}

// Nodes returns all node names in lexicographic order.
func (g *Graph) Nodes() []string {
	nodes := make([]string, g.symbols.Len())
	copy(nodes, g.symbols.idToStr)
	sort.Strings(nodes)

	return nodes
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	return g.intGraph.EdgeCount()
}

// Toposort returns the nodes with dependencies first. Nodes that become ready
// together are emitted in lexicographic order, so the result is stable across runs.
// A cycle yields a *CycleError.
func (g *Graph) Toposort() ([]string, error) {
	ids, ok := g.intGraph.TopoSort(g.less)
	if !ok {
		return nil, &CycleError{Cycle: g.FindCycle()}
	}

	return g.names(ids), nil
}

// FindCycle returns one cycle found by depth-first search from the
// lexicographically smallest node, or nil when the graph is acyclic.
func (g *Graph) FindCycle() []string {
	roots := make([]int, g.intGraph.Len())
	for idx := range roots {
		roots[idx] = idx
	}

	sort.Slice(roots, func(i, j int) bool { return g.less(roots[i], roots[j]) })

	cycle := g.intGraph.FindCycle(roots, g.less)
	if cycle == nil {
		return nil
	}

	return g.names(cycle)
}

// FindParents returns the nodes that depend on "to", sorted.
func (g *Graph) FindParents(to string) []string {
	v, exists := g.symbols.Lookup(to)
	if !exists {
		return []string{}
	}

	parents := g.names(g.intGraph.Dependents(v))
	sort.Strings(parents)

	return parents
}

// FindChildren returns the nodes "from" depends on, sorted.
func (g *Graph) FindChildren(from string) []string {
	u, exists := g.symbols.Lookup(from)
	if !exists {
		return []string{}
	}

	children := g.names(g.intGraph.Dependencies(u))
	sort.Strings(children)

	return children
}

// Reachable returns the subgraph induced by the roots and everything they
// transitively depend on. Unknown roots are ignored.
func (g *Graph) Reachable(roots ...string) *Graph {
	sub := NewGraph()
	queue := make([]string, 0, len(roots))

	for _, root := range roots {
		if g.HasNode(root) && sub.AddNode(root) {
			queue = append(queue, root)
		}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, child := range g.FindChildren(node) {
			if sub.AddNode(child) {
				queue = append(queue, child)
			}

			sub.AddEdge(node, child)
		}
	}

	return sub
}

// Serialize outputs the graph in Graphviz format, labeling each node with its
// position in sorted.
func (g *Graph) Serialize(name string, sorted []string) string {
	node2index := map[string]int{}
	for index, node := range sorted {
		node2index[node] = index
	}

	var buffer bytes.Buffer

	fmt.Fprintf(&buffer, "digraph %q {\n", name)

	for _, node := range g.Nodes() {
		fmt.Fprintf(&buffer, "  %q [label=%q];\n", node, label(node2index, node))
	}

	for _, nodeFrom := range g.Nodes() {
		for _, nodeTo := range g.FindChildren(nodeFrom) {
			fmt.Fprintf(&buffer, "  %q -> %q;\n", nodeFrom, nodeTo)
		}
	}

	buffer.WriteString("}\n")

	return buffer.String()
}

func label(index map[string]int, node string) string {
	if pos, ok := index[node]; ok {
		return fmt.Sprintf("%d %s", pos, node)
	}

	return node
}

func (g *Graph) less(a, b int) bool {
	return g.symbols.Resolve(a) < g.symbols.Resolve(b)
}

func (g *Graph) names(ids []int) []string {
	result := make([]string, len(ids))
	for i, id := range ids {
		result[i] = g.symbols.Resolve(id)
	}

	return result
}
