package toposort_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pybundle/pkg/toposort"
)

func index(list []string, val string) int {
	for idx, str := range list {
		if str == val {
			return idx
		}
	}

	return -1
}

// addNodes is a test helper to add multiple nodes at once.
func addNodes(graph *toposort.Graph, names ...string) {
	for _, name := range names {
		graph.AddNode(name)
	}
}

// Edge is a dependency of From on To.
type Edge struct {
	From string
	To   string
}

func TestToposortDuplicatedNode(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	assert.True(t, graph.AddNode("a"))
	assert.False(t, graph.AddNode("a"))
}

func TestToposortDuplicatedEdge(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	assert.True(t, graph.AddEdge("a", "b"))
	assert.False(t, graph.AddEdge("a", "b"))
	assert.Equal(t, 1, graph.EdgeCount())
}

func TestToposortWikipedia(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	addNodes(graph, "2", "3", "5", "7", "8", "9", "10", "11")

	edges := []Edge{
		{"8", "7"},
		{"11", "7"},
		{"11", "5"},
		{"8", "3"},
		{"10", "3"},
		{"2", "11"},
		{"9", "11"},
		{"10", "11"},
		{"9", "8"},
	}

	for _, edge := range edges {
		graph.AddEdge(edge.From, edge.To)
	}

	result, err := graph.Toposort()
	require.NoError(t, err)
	require.Len(t, result, 8)

	for _, edge := range edges {
		assert.Less(t, index(result, edge.To), index(result, edge.From), "%s must precede %s", edge.To, edge.From)
	}
}

func TestToposortLexicographicTieBreak(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	addNodes(graph, "main", "zeta", "alpha")
	graph.AddEdge("main", "zeta")
	graph.AddEdge("main", "alpha")

	result, err := graph.Toposort()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta", "main"}, result)
}

func TestToposortStable(t *testing.T) {
	t.Parallel()

	build := func(order []Edge) []string {
		graph := toposort.NewGraph()
		for _, e := range order {
			graph.AddEdge(e.From, e.To)
		}

		result, err := graph.Toposort()
		require.NoError(t, err)

		return result
	}

	forward := []Edge{{"c", "a"}, {"c", "b"}, {"d", "c"}, {"e", "a"}}
	backward := []Edge{{"e", "a"}, {"d", "c"}, {"c", "b"}, {"c", "a"}}

	assert.Equal(t, build(forward), build(backward))
}

func TestToposortCycle(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	graph.AddEdge("a", "b")
	graph.AddEdge("b", "c")
	graph.AddEdge("c", "a")

	result, err := graph.Toposort()
	assert.Nil(t, result)

	var cycleErr *toposort.CycleError

	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"a", "b", "c"}, cycleErr.Cycle)
	assert.Equal(t, "dependency cycle detected: a -> b -> c -> a", cycleErr.Error())
}

func TestToposortSelfLoop(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	graph.AddEdge("a", "a")

	_, err := graph.Toposort()

	var cycleErr *toposort.CycleError

	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"a"}, cycleErr.Cycle)
}

func TestToposortFindCycleSkipsAcyclicPrefix(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	graph.AddEdge("a", "x")
	graph.AddEdge("m", "n")
	graph.AddEdge("n", "m")

	assert.Equal(t, []string{"m", "n"}, graph.FindCycle())
}

func TestToposortFindCycleAcyclic(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	graph.AddEdge("a", "b")

	assert.Nil(t, graph.FindCycle())
}

func TestToposortParentsChildren(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	graph.AddEdge("main", "utils")
	graph.AddEdge("main", "models")
	graph.AddEdge("models", "utils")

	assert.Equal(t, []string{"models", "utils"}, graph.FindChildren("main"))
	assert.Equal(t, []string{"main", "models"}, graph.FindParents("utils"))
	assert.Empty(t, graph.FindChildren("missing"))
	assert.Empty(t, graph.FindParents("missing"))
}

func TestToposortReachable(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	graph.AddEdge("main", "a")
	graph.AddEdge("a", "b")
	graph.AddEdge("tool", "c")

	sub := graph.Reachable("main")
	assert.Equal(t, []string{"a", "b", "main"}, sub.Nodes())
	assert.Equal(t, 2, sub.EdgeCount())
	assert.Empty(t, graph.Reachable("unknown").Nodes())
}

func TestToposortSerialize(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	graph.AddEdge("main", "utils")

	order, err := graph.Toposort()
	require.NoError(t, err)

	dot := graph.Serialize("pybundle", order)
	assert.Equal(t, `digraph "pybundle" {
  "main" [label="1 main"];
  "utils" [label="0 utils"];
  "main" -> "utils";
}
`, dot)
}
