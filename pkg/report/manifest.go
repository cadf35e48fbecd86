// Package report renders dependency graphs, bundle statistics and bundle diffs.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/pybundle/pkg/bundle"
	"github.com/Sumatoshi-tech/pybundle/pkg/depgraph"
	"github.com/Sumatoshi-tech/pybundle/pkg/modules"
	"github.com/Sumatoshi-tech/pybundle/pkg/persist"
	"github.com/Sumatoshi-tech/pybundle/pkg/resolve"
)

const yamlIndent = 2

// Manifest is the machine-readable description of a dependency graph.
type Manifest struct {
	Entry   string        `json:"entry,omitempty" yaml:"entry,omitempty"`
	Order   []string      `json:"order" yaml:"order"`
	Modules []ModuleInfo  `json:"modules" yaml:"modules"`
	Edges   []EdgeInfo    `json:"edges" yaml:"edges"`
	Hoisted []string      `json:"hoisted,omitempty" yaml:"hoisted,omitempty"`
	Stats   *bundle.Stats `json:"stats,omitempty" yaml:"stats,omitempty"`
	Cycle   []string      `json:"cycle,omitempty" yaml:"cycle,omitempty"`
}

// ModuleInfo describes one module of the graph.
type ModuleInfo struct {
	ID        string   `json:"id" yaml:"id"`
	Path      string   `json:"path" yaml:"path"`
	Package   bool     `json:"package,omitempty" yaml:"package,omitempty"`
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	External  []string `json:"external,omitempty" yaml:"external,omitempty"`
}

// EdgeInfo is one internal dependency.
type EdgeInfo struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// BuildManifest describes the modules of graph. Modules appear in order
// when an order is given, otherwise lexicographically.
func BuildManifest(reg *modules.Registry, graph *depgraph.Graph, order depgraph.Ordering, res *resolve.Result, entry modules.ID) *Manifest {
	ids := []modules.ID(order)
	if len(ids) == 0 {
		ids = graph.Nodes()
	}

	m := &Manifest{
		Entry:   string(entry),
		Order:   toStrings(order),
		Modules: make([]ModuleInfo, 0, len(ids)),
		Edges:   []EdgeInfo{},
	}

	for _, id := range ids {
		info := ModuleInfo{ID: string(id), DependsOn: toStrings(graph.Neighbors(id))}

		if rec, ok := reg.Get(id); ok {
			info.Path = rec.Rel
			info.Package = rec.IsPackage
		}

		for _, imp := range res.External(id) {
			info.External = append(info.External, imp.String())
		}

		m.Modules = append(m.Modules, info)

		for _, dep := range info.DependsOn {
			m.Edges = append(m.Edges, EdgeInfo{From: string(id), To: dep})
		}
	}

	slices.SortFunc(m.Edges, func(a, b EdgeInfo) int {
		return cmp.Or(strings.Compare(a.From, b.From), strings.Compare(a.To, b.To))
	})

	if len(order) > 0 {
		m.Hoisted = bundle.HoistedImports(order, res)
	}

	return m
}

// WriteJSON encodes m as indented JSON.
func WriteJSON(w io.Writer, m *Manifest) error {
	return persist.NewJSONCodec().Encode(w, m)
}

// WriteYAML encodes m as YAML.
func WriteYAML(w io.Writer, m *Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("yaml close: %w", err)
	}

	return nil
}

func toStrings(ids []modules.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}

	return out
}
