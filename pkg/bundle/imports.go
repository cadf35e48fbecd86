package bundle

import (
	"slices"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/pybundle/pkg/pyimport"
)

// hoisted collects external imports of all bundled modules, deduplicated.
type hoisted struct {
	future     map[string]bool
	stdlib     map[string]bool
	thirdParty map[string]bool
	// fromNames groups plain `from X import a` names per section and target.
	fromNames map[bool]map[string]map[string]bool
}

func newHoisted() *hoisted {
	return &hoisted{
		future:     make(map[string]bool),
		stdlib:     make(map[string]bool),
		thirdParty: make(map[string]bool),
		fromNames:  map[bool]map[string]map[string]bool{true: {}, false: {}},
	}
}

func (h *hoisted) add(imp pyimport.Import) {
	switch imp.Kind {
	case pyimport.KindFuture:
		for _, name := range imp.Names {
			h.future[name.String()] = true
		}
	case pyimport.KindImport:
		for _, name := range imp.Names {
			line := imp.WithNames([]pyimport.Name{name}).String()
			h.section(pyimport.IsStdlib(name.Name))[line] = true
		}
	case pyimport.KindFrom:
		std := !imp.IsRelative() && pyimport.IsStdlib(imp.Module)
		if imp.Wildcard {
			h.section(std)[imp.String()] = true

			return
		}

		target := imp.Target()

		names := h.fromNames[std][target]
		if names == nil {
			names = make(map[string]bool)
			h.fromNames[std][target] = names
		}

		for _, name := range imp.Names {
			names[name.String()] = true
		}
	}
}

func (h *hoisted) section(std bool) map[string]bool {
	if std {
		return h.stdlib
	}

	return h.thirdParty
}

// futureLine renders the merged future statement, or "" when none.
func (h *hoisted) futureLine() string {
	if len(h.future) == 0 {
		return ""
	}

	return "from " + pyimport.FutureModule + " import " + joinSorted(h.future)
}

// lines returns the sorted statements of one section.
func (h *hoisted) lines(std bool) []string {
	set := make(map[string]bool)
	for line := range h.section(std) {
		set[line] = true
	}

	for target, names := range h.fromNames[std] {
		set["from "+target+" import "+joinSorted(names)] = true
	}

	out := make([]string, 0, len(set))
	for line := range set {
		out = append(out, line)
	}

	sort.Strings(out)

	return out
}

func joinSorted(set map[string]bool) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}

	slices.Sort(names)

	return strings.Join(names, ", ")
}
