// Package resolve classifies the imports of every registered module as internal
// or external, producing dependency edges and the local bindings that replace
// internal import statements in a bundle.
package resolve

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/pybundle/pkg/modules"
	"github.com/Sumatoshi-tech/pybundle/pkg/pyimport"
)

// UnresolvedImportError describes an import that looks internal but matches no module.
type UnresolvedImportError struct {
	Module modules.ID
	Import string
	Line   int
	Reason string
}

func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("unresolved import %q in %s (line %d): %s", e.Import, e.Module, e.Line, e.Reason)
}

// Options controls resolution.
type Options struct {
	// Strict turns unresolved imports into errors instead of warnings.
	Strict bool
	// ImplicitRelative lets a bare `import x` match a sibling of the importer
	// before the project root, as when the script directory is on sys.path.
	ImplicitRelative bool
	Logger           *slog.Logger
}

// BindingKind tells how a binding obtains its value.
type BindingKind int

// Binding kinds.
const (
	// BindModule binds a module object.
	BindModule BindingKind = iota
	// BindSymbol binds one attribute of a module.
	BindSymbol
	// BindStar copies the public names of a module.
	BindStar
)

// Binding is one local name produced by an internal import.
type Binding struct {
	Kind   BindingKind
	Local  string
	Module modules.ID
	Symbol string
}

// Edge is one import target of a module.
type Edge struct {
	From modules.ID
	// To is a module ID for internal edges and the dotted target for external ones.
	To       modules.ID
	Internal bool
	Line     int
}

// Statement is the resolution of one top-level import statement.
type Statement struct {
	Import   pyimport.Import
	Bindings []Binding
	// External is the part left to the Python runtime, nil when fully internal.
	External *pyimport.Import
}

// Result is the resolution of a whole registry.
type Result struct {
	Edges      []Edge
	Statements map[modules.ID][]Statement
	Warnings   []*UnresolvedImportError
}

// InternalEdges returns the unique internal edges sorted by endpoints.
// Several imports between the same two modules collapse to one edge.
func (r *Result) InternalEdges() []Edge {
	seen := make(map[[2]modules.ID]bool)

	var out []Edge

	for _, e := range r.Edges {
		key := [2]modules.ID{e.From, e.To}
		if !e.Internal || seen[key] {
			continue
		}

		seen[key] = true

		out = append(out, e)
	}

	slices.SortFunc(out, func(a, b Edge) int {
		if c := strings.Compare(string(a.From), string(b.From)); c != 0 {
			return c
		}

		return strings.Compare(string(a.To), string(b.To))
	})

	return out
}

// External returns the imports a module leaves to the runtime, in source order.
func (r *Result) External(id modules.ID) []pyimport.Import {
	var out []pyimport.Import

	for _, st := range r.Statements[id] {
		if st.External != nil {
			out = append(out, *st.External)
		}
	}

	return out
}

// ExternalCount returns the number of external edges.
func (r *Result) ExternalCount() int {
	count := 0

	for _, e := range r.Edges {
		if !e.Internal {
			count++
		}
	}

	return count
}

// Resolve resolves every import of every registered module.
// In strict mode the first unresolved import aborts resolution.
func Resolve(reg *modules.Registry, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	res := &Result{Statements: make(map[modules.ID][]Statement)}

	for _, id := range reg.IDs() {
		rec, _ := reg.Get(id)
		if rec.File == nil {
			continue
		}

		r := resolver{reg: reg, rec: rec, opts: opts, res: res}

		for _, imp := range rec.File.Imports {
			st, err := r.statement(imp)
			if err != nil {
				if opts.Strict {
					return nil, err
				}

				res.Warnings = append(res.Warnings, err)
				logger.Warn("treating unresolved import as external",
					"module", string(id), "import", err.Import, "line", err.Line, "reason", err.Reason)

				st = Statement{Import: imp, External: &imp}
				res.Edges = append(res.Edges, externalEdges(id, imp)...)
			}

			res.Statements[id] = append(res.Statements[id], st)
		}

		logger.Debug("resolved module", "module", string(id), "imports", len(rec.File.Imports))
	}

	return res, nil
}

func externalEdges(from modules.ID, imp pyimport.Import) []Edge {
	if imp.Kind != pyimport.KindImport {
		return []Edge{{From: from, To: modules.ID(imp.Target()), Line: imp.Span.Line}}
	}

	edges := make([]Edge, 0, len(imp.Names))
	for _, name := range imp.Names {
		edges = append(edges, Edge{From: from, To: modules.ID(name.Name), Line: imp.Span.Line})
	}

	return edges
}

type resolver struct {
	reg  *modules.Registry
	rec  *modules.Record
	opts Options
	res  *Result
}

func (r *resolver) statement(imp pyimport.Import) (Statement, *UnresolvedImportError) {
	switch imp.Kind {
	case pyimport.KindFuture:
		return Statement{Import: imp, External: &imp}, nil
	case pyimport.KindFrom:
		return r.from(imp)
	default:
		return r.plain(imp)
	}
}

// plain resolves `import a.b [as c], d`.
func (r *resolver) plain(imp pyimport.Import) (Statement, *UnresolvedImportError) {
	st := Statement{Import: imp}

	var external []pyimport.Name

	var edges []Edge

	for _, name := range imp.Names {
		target, base, ok := r.absolute(name.Name)
		if !ok {
			if r.partial(name.Name) {
				return Statement{}, r.unresolved(imp, "no module matches "+name.Name)
			}

			external = append(external, name)
			edges = append(edges, Edge{From: r.rec.ID, To: modules.ID(name.Name), Line: imp.Span.Line})

			continue
		}

		edges = append(edges, r.internal(target, imp.Span.Line)...)

		if name.Alias != "" {
			st.Bindings = append(st.Bindings, Binding{Kind: BindModule, Local: name.Alias, Module: target})
		} else {
			head, _, _ := strings.Cut(name.Name, ".")
			st.Bindings = append(st.Bindings, Binding{Kind: BindModule, Local: head, Module: base.Join(head)})
		}
	}

	if len(external) > 0 {
		ext := imp.WithNames(external)
		st.External = &ext
	}

	r.res.Edges = append(r.res.Edges, edges...)

	return st, nil
}

// from resolves `from [.]M import a, b` and `from M import *`.
func (r *resolver) from(imp pyimport.Import) (Statement, *UnresolvedImportError) {
	var (
		target modules.ID
		found  bool
	)

	if imp.IsRelative() {
		base, ok := r.climb(imp.Level)
		if !ok {
			return Statement{}, r.unresolved(imp, "relative import beyond the project root")
		}

		target = base.Join(imp.Module)
		found = r.known(target)
	} else {
		target, _, found = r.absolute(imp.Module)
		if !found {
			target, found = r.namespace(imp)
		}
	}

	if !found {
		if imp.IsRelative() {
			if !r.hasSubmodules(target, imp.Names) {
				return Statement{}, r.unresolved(imp, "no module matches "+imp.Target())
			}
		} else {
			if !r.partial(imp.Module) {
				r.res.Edges = append(r.res.Edges, Edge{From: r.rec.ID, To: modules.ID(imp.Module), Line: imp.Span.Line})

				return Statement{Import: imp, External: &imp}, nil
			}

			return Statement{}, r.unresolved(imp, "no module matches "+imp.Module)
		}
	}

	st := Statement{Import: imp}

	edges := r.ancestors(target, imp.Span.Line)

	if imp.Wildcard {
		if !r.reg.Has(target) {
			return Statement{}, r.unresolved(imp, "wildcard import from a namespace package")
		}

		st.Bindings = append(st.Bindings, Binding{Kind: BindStar, Module: target})
		edges = append(edges, Edge{From: r.rec.ID, To: target, Internal: true, Line: imp.Span.Line})
		r.res.Edges = append(r.res.Edges, edges...)

		return st, nil
	}

	symbols := false

	for _, name := range imp.Names {
		local := name.Name
		if name.Alias != "" {
			local = name.Alias
		}

		sub := target.Join(name.Name)
		if r.reg.Has(sub) {
			edges = append(edges, Edge{From: r.rec.ID, To: sub, Internal: true, Line: imp.Span.Line})
			st.Bindings = append(st.Bindings, Binding{Kind: BindModule, Local: local, Module: sub})

			continue
		}

		if !r.reg.Has(target) {
			return Statement{}, r.unresolved(imp, "no module matches "+string(sub))
		}

		st.Bindings = append(st.Bindings, Binding{Kind: BindSymbol, Local: local, Module: target, Symbol: name.Name})
		symbols = true
	}

	// An enclosing package is already initializing when its submodules run,
	// so pulling only submodules out of it is no dependency on the package.
	if r.reg.Has(target) && (symbols || !r.rec.ID.Within(target)) {
		edges = append(edges, Edge{From: r.rec.ID, To: target, Internal: true, Line: imp.Span.Line})
	}

	r.res.Edges = append(r.res.Edges, edges...)

	return st, nil
}

// absolute resolves a dotted module for a non-relative import.
// It returns the matched module and the package prefix it was found under.
func (r *resolver) absolute(dotted string) (modules.ID, modules.ID, bool) {
	if dotted == "" {
		return "", "", false
	}

	if r.opts.ImplicitRelative {
		if pkg := r.rec.Package(); pkg != "" {
			if candidate := pkg.Join(dotted); r.reg.Has(candidate) {
				return candidate, pkg, true
			}
		}
	}

	if candidate := modules.ID(dotted); r.reg.Has(candidate) {
		return candidate, "", true
	}

	return "", "", false
}

// namespace matches from-imports of a package without __init__.py whose names are submodules.
func (r *resolver) namespace(imp pyimport.Import) (modules.ID, bool) {
	bases := []modules.ID{""}
	if pkg := r.rec.Package(); r.opts.ImplicitRelative && pkg != "" {
		bases = []modules.ID{pkg, ""}
	}

	for _, base := range bases {
		target := base.Join(imp.Module)
		if r.hasSubmodules(target, imp.Names) {
			return target, true
		}
	}

	return "", false
}

func (r *resolver) hasSubmodules(target modules.ID, names []pyimport.Name) bool {
	for _, name := range names {
		if r.reg.Has(target.Join(name.Name)) {
			return true
		}
	}

	return false
}

// partial reports whether a proper prefix of dotted names a project module,
// which makes the import look internal even though it matches nothing.
func (r *resolver) partial(dotted string) bool {
	parts := strings.Split(dotted, ".")

	bases := []modules.ID{""}
	if pkg := r.rec.Package(); r.opts.ImplicitRelative && pkg != "" {
		bases = append(bases, pkg)
	}

	for _, base := range bases {
		for idx := 1; idx < len(parts); idx++ {
			if r.reg.Has(base.Join(strings.Join(parts[:idx], "."))) {
				return true
			}
		}
	}

	return false
}

// climb returns the package `level` dots refer to from the importer.
func (r *resolver) climb(level int) (modules.ID, bool) {
	pkg := r.rec.Package()

	for range level - 1 {
		if pkg == "" {
			return "", false
		}

		pkg = pkg.Parent()
	}

	return pkg, true
}

func (r *resolver) known(target modules.ID) bool {
	return target != "" && r.reg.Has(target)
}

// internal returns the edge to target plus edges to its registered enclosing
// packages that the importer does not already live in.
func (r *resolver) internal(target modules.ID, line int) []Edge {
	edges := r.ancestors(target, line)

	return append(edges, Edge{From: r.rec.ID, To: target, Internal: true, Line: line})
}

func (r *resolver) ancestors(target modules.ID, line int) []Edge {
	var edges []Edge

	for _, anc := range target.Ancestors() {
		if !r.reg.Has(anc) || r.rec.ID.Within(anc) {
			continue
		}

		edges = append(edges, Edge{From: r.rec.ID, To: anc, Internal: true, Line: line})
	}

	return edges
}

func (r *resolver) unresolved(imp pyimport.Import, reason string) *UnresolvedImportError {
	return &UnresolvedImportError{Module: r.rec.ID, Import: imp.String(), Line: imp.Span.Line, Reason: reason}
}
