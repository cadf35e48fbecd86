// Package depgraph builds the project module dependency graph, detects import
// cycles and produces the definition order of a bundle.
package depgraph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/pybundle/pkg/modules"
	"github.com/Sumatoshi-tech/pybundle/pkg/resolve"
	"github.com/Sumatoshi-tech/pybundle/pkg/toposort"
)

// ErrUnknownModule is returned when an edge names a module that is not a node.
var ErrUnknownModule = errors.New("edge references unknown module")

const graphName = "pybundle"

// Ordering lists modules so that every module follows its dependencies.
type Ordering []modules.ID

// CycleReport lists the modules of one cycle in traversal order.
type CycleReport []modules.ID

func (c CycleReport) String() string {
	if len(c) == 0 {
		return ""
	}

	parts := make([]string, 0, len(c)+1)
	for _, id := range c {
		parts = append(parts, string(id))
	}

	return strings.Join(append(parts, string(c[0])), " -> ")
}

// CycleDetectedError is returned when the graph cannot be ordered.
type CycleDetectedError struct {
	Cycle CycleReport
	err   *toposort.CycleError
}

func (e *CycleDetectedError) Error() string {
	return "import cycle detected: " + e.Cycle.String()
}

func (e *CycleDetectedError) Unwrap() error {
	return e.err
}

// Graph is an immutable snapshot of module dependencies.
// An edge A -> B means A imports B, so B must be defined first.
type Graph struct {
	g *toposort.Graph
}

// Build creates the graph from all node IDs and resolved edges.
// External edges are ignored. Internal edges with an unknown endpoint fail.
func Build(ids []modules.ID, edges []resolve.Edge) (*Graph, error) {
	g := toposort.NewGraph()

	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	for _, id := range sorted {
		g.AddNode(string(id))
	}

	for _, e := range edges {
		if !e.Internal {
			continue
		}

		for _, end := range []modules.ID{e.From, e.To} {
			if !g.HasNode(string(end)) {
				return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownModule, e.From, e.To)
			}
		}

		g.AddEdge(string(e.From), string(e.To))
	}

	return &Graph{g: g}, nil
}

// Nodes returns all module IDs in lexicographic order.
func (gr *Graph) Nodes() []modules.ID {
	return toIDs(gr.g.Nodes())
}

// Has reports whether id is a node.
func (gr *Graph) Has(id modules.ID) bool {
	return gr.g.HasNode(string(id))
}

// Len returns the number of nodes.
func (gr *Graph) Len() int {
	return len(gr.g.Nodes())
}

// EdgeCount returns the number of distinct internal edges.
func (gr *Graph) EdgeCount() int {
	return gr.g.EdgeCount()
}

// Neighbors returns the modules id depends on, sorted.
func (gr *Graph) Neighbors(id modules.ID) []modules.ID {
	return toIDs(gr.g.FindChildren(string(id)))
}

// Dependents returns the modules that depend on id, sorted.
func (gr *Graph) Dependents(id modules.ID) []modules.ID {
	return toIDs(gr.g.FindParents(string(id)))
}

// HasCycle reports whether any cycle exists.
func (gr *Graph) HasCycle() bool {
	_, found := gr.FindCycle()

	return found
}

// FindCycle returns one cycle, searching depth-first from the lexicographically
// smallest module and visiting dependencies in lexicographic order.
// A self-import is reported as a single-module cycle.
func (gr *Graph) FindCycle() (CycleReport, bool) {
	cycle := gr.g.FindCycle()
	if cycle == nil {
		return nil, false
	}

	return CycleReport(toIDs(cycle)), true
}

// Order returns the definition order, or a *CycleDetectedError.
func (gr *Graph) Order() (Ordering, error) {
	names, err := gr.g.Toposort()
	if err != nil {
		var cycleErr *toposort.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &CycleDetectedError{Cycle: CycleReport(toIDs(cycleErr.Cycle)), err: cycleErr}
		}

		return nil, fmt.Errorf("order modules: %w", err)
	}

	return Ordering(toIDs(names)), nil
}

// OrderEntryLast is Order with entry moved to the end when no module depends on it.
func (gr *Graph) OrderEntryLast(entry modules.ID) (Ordering, error) {
	order, err := gr.Order()
	if err != nil {
		return nil, err
	}

	idx := slices.Index(order, entry)
	if idx < 0 || len(gr.Dependents(entry)) > 0 {
		return order, nil
	}

	return append(slices.Delete(order, idx, idx+1), entry), nil
}

// Reachable returns the subgraph of entry and its transitive dependencies.
func (gr *Graph) Reachable(entry modules.ID) (*Graph, error) {
	if !gr.Has(entry) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, entry)
	}

	return &Graph{g: gr.g.Reachable(string(entry))}, nil
}

// DOT renders the graph in Graphviz format, labeling nodes with their
// position in order when one is given.
func (gr *Graph) DOT(order Ordering) string {
	names := make([]string, len(order))
	for i, id := range order {
		names[i] = string(id)
	}

	return gr.g.Serialize(graphName, names)
}

func toIDs(names []string) []modules.ID {
	ids := make([]modules.ID, len(names))
	for i, name := range names {
		ids[i] = modules.ID(name)
	}

	return ids
}
