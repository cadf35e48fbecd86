package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/pybundle/pkg/depgraph"
	"github.com/Sumatoshi-tech/pybundle/pkg/modules"
	"github.com/Sumatoshi-tech/pybundle/pkg/resolve"
)

const (
	branchMid  = "├── "
	branchLast = "└── "
	indentMid  = "│   "
	indentLast = "    "
	seenMarker = " (*)"
)

// TreeOptions controls WriteTree.
type TreeOptions struct {
	Color bool
	// External lists the imports each module leaves to the runtime.
	External bool
}

type palette struct {
	root     *color.Color
	module   *color.Color
	seen     *color.Color
	external *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		root:     color.New(color.FgGreen, color.Bold),
		module:   color.New(color.FgCyan),
		seen:     color.New(color.Faint),
		external: color.New(color.FgYellow),
	}

	for _, c := range []*color.Color{p.root, p.module, p.seen, p.external} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// WriteTree prints the dependencies of each root as an indented tree.
// A module already expanded is printed again with a (*) marker and not descended into.
// With no roots, every module nothing depends on is a root.
func WriteTree(w io.Writer, graph *depgraph.Graph, res *resolve.Result, opts TreeOptions, roots ...modules.ID) error {
	if len(roots) == 0 {
		for _, id := range graph.Nodes() {
			if len(graph.Dependents(id)) == 0 {
				roots = append(roots, id)
			}
		}
	}

	tw := treeWriter{
		w:     w,
		graph: graph,
		res:   res,
		opts:  opts,
		pal:   newPalette(opts.Color),
		seen:  make(map[modules.ID]bool),
	}

	for _, root := range roots {
		tw.line("", tw.pal.root.Sprint(root))
		tw.seen[root] = true
		tw.children(root, "")
	}

	return tw.err
}

type treeWriter struct {
	w     io.Writer
	graph *depgraph.Graph
	res   *resolve.Result
	opts  TreeOptions
	pal   palette
	seen  map[modules.ID]bool
	err   error
}

func (tw *treeWriter) children(id modules.ID, prefix string) {
	deps := tw.graph.Neighbors(id)

	var external []string
	if tw.opts.External && tw.res != nil {
		for _, imp := range tw.res.External(id) {
			external = append(external, imp.String())
		}
	}

	total := len(deps) + len(external)

	for i, dep := range deps {
		branch, indent := branchFor(i == total-1)

		if tw.seen[dep] {
			tw.line(prefix+branch, tw.pal.seen.Sprint(string(dep)+seenMarker))

			continue
		}

		tw.seen[dep] = true
		tw.line(prefix+branch, tw.pal.module.Sprint(dep))
		tw.children(dep, prefix+indent)
	}

	for i, ext := range external {
		branch, _ := branchFor(len(deps)+i == total-1)
		tw.line(prefix+branch, tw.pal.external.Sprint(ext))
	}
}

func (tw *treeWriter) line(prefix, text string) {
	if tw.err != nil {
		return
	}

	_, tw.err = fmt.Fprintln(tw.w, prefix+text)
}

func branchFor(last bool) (string, string) {
	if last {
		return branchLast, indentLast
	}

	return branchMid, indentMid
}

// TreeString renders WriteTree into a string.
func TreeString(graph *depgraph.Graph, res *resolve.Result, opts TreeOptions, roots ...modules.ID) string {
	var sb strings.Builder

	// strings.Builder never fails.
	_ = WriteTree(&sb, graph, res, opts, roots...)

	return sb.String()
}
