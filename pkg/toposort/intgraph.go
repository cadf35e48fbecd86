package toposort

import "sort"

// IntGraph is a directed graph over dense integer IDs where an edge u -> v
// means "u depends on v". Forward and reverse adjacency are both kept.
type IntGraph struct {
	// deps[u] lists v for edges u -> v.
	deps [][]int
	// dependents[v] lists u for edges u -> v.
	dependents [][]int
	edges      int
}

// NewIntGraph creates a new IntGraph.
func NewIntGraph() *IntGraph {
	return &IntGraph{
		deps:       make([][]int, 0),
		dependents: make([][]int, 0),
	}
}

// EnsureCapacity ensures the graph holds nodes 0..n-1.
func (g *IntGraph) EnsureCapacity(n int) {
	for len(g.deps) < n {
		g.deps = append(g.deps, nil)
		g.dependents = append(g.dependents, nil)
	}
}

// AddNode adds the node with the given ID.
// Returns true if the node was not tracked before.
func (g *IntGraph) AddNode(id int) bool {
	if id < len(g.deps) {
		return false
	}

	g.EnsureCapacity(id + 1)

	return true
}

// AddEdge adds the edge u -> v.
// Returns true if the edge was added, false if it already existed.
func (g *IntGraph) AddEdge(u, v int) bool {
	g.EnsureCapacity(max(u, v) + 1)

	for _, neighbor := range g.deps[u] {
		if neighbor == v {
			return false
		}
	}

	g.deps[u] = append(g.deps[u], v)
	g.dependents[v] = append(g.dependents[v], u)
	g.edges++

	return true
}

// Len returns the number of nodes.
func (g *IntGraph) Len() int {
	return len(g.deps)
}

// EdgeCount returns the number of distinct edges.
func (g *IntGraph) EdgeCount() int {
	return g.edges
}

// Dependencies returns the targets of outgoing edges of u.
func (g *IntGraph) Dependencies(u int) []int {
	if u < 0 || u >= len(g.deps) {
		return nil
	}

	return g.deps[u]
}

// Dependents returns the sources of incoming edges of v.
func (g *IntGraph) Dependents(v int) []int {
	if v < 0 || v >= len(g.dependents) {
		return nil
	}

	return g.dependents[v]
}

// TopoSort orders the nodes so that every node follows all of its dependencies.
// Among nodes that are ready at the same time, less picks the first one.
// Returns the emitted prefix and false when a cycle blocks the remaining nodes.
func (g *IntGraph) TopoSort(less func(a, b int) bool) ([]int, bool) {
	n := len(g.deps)

	pending := make([]int, n)
	ready := make([]int, 0)

	for u := range n {
		pending[u] = len(g.deps[u])
		if pending[u] == 0 {
			ready = append(ready, u)
		}
	}

	sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

	result := make([]int, 0, n)
	for len(ready) > 0 {
		u := ready[0]
		ready = ready[1:]
		result = append(result, u)

		for _, w := range g.dependents[u] {
			pending[w]--
			if pending[w] == 0 {
				insertSorted(&ready, w, less)
			}
		}
	}

	return result, len(result) == n
}

// FindCycle runs a depth-first search from each root in the given order and
// returns the first cycle met, as the path segment from the repeated node to
// the node that closes the loop. Neighbors are visited in less order.
// Returns nil for an acyclic graph.
func (g *IntGraph) FindCycle(roots []int, less func(a, b int) bool) []int {
	const (
		unvisited = iota
		onPath
		done
	)

	state := make([]int, len(g.deps))
	path := make([]int, 0)

	var visit func(u int) []int

	visit = func(u int) []int {
		state[u] = onPath
		path = append(path, u)

		next := append([]int(nil), g.deps[u]...)
		sort.Slice(next, func(i, j int) bool { return less(next[i], next[j]) })

		for _, v := range next {
			switch state[v] {
			case onPath:
				for idx, p := range path {
					if p == v {
						return append([]int(nil), path[idx:]...)
					}
				}
			case unvisited:
				if cycle := visit(v); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		state[u] = done

		return nil
	}

	for _, root := range roots {
		if root < 0 || root >= len(state) || state[root] != unvisited {
			continue
		}

		if cycle := visit(root); cycle != nil {
			return cycle
		}
	}

	return nil
}

// insertSorted inserts v into the slice s kept ordered by less.
func insertSorted(s *[]int, v int, less func(a, b int) bool) {
	i := sort.Search(len(*s), func(i int) bool { return less(v, (*s)[i]) })
	*s = append(*s, 0)
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = v
}
