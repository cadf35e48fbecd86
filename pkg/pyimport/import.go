// Package pyimport extracts top-level import statements, main guards and
// exported names from Python source using the tree-sitter Python grammar.
package pyimport

import (
	"strings"
)

// Kind classifies an import statement.
type Kind int

// Import statement kinds.
const (
	// KindImport is `import a.b [as c], d`.
	KindImport Kind = iota
	// KindFrom is `from [.]a import b [as c]`.
	KindFrom
	// KindFuture is `from __future__ import x`.
	KindFuture
)

// FutureModule is the pseudo-module of future statements.
const FutureModule = "__future__"

// Span is a byte range of a statement in its source file.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
	// Line is the 1-based line of Start.
	Line int `json:"line"`
}

// Name is one imported name with its optional alias.
type Name struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// Local returns the name bound in the importing scope.
// For `import a.b` the bound name is `a`.
func (n Name) Local() string {
	if n.Alias != "" {
		return n.Alias
	}

	head, _, _ := strings.Cut(n.Name, ".")

	return head
}

// String renders the name as it appears in an import list.
func (n Name) String() string {
	if n.Alias != "" {
		return n.Name + " as " + n.Alias
	}

	return n.Name
}

// Import is one top-level import statement.
type Import struct {
	Kind Kind `json:"kind"`
	// Module is the dotted module after `from`. Empty for KindImport and for `from . import x`.
	Module string `json:"module,omitempty"`
	// Level is the number of leading dots of a relative import.
	Level int `json:"level,omitempty"`
	// Names lists imported modules (KindImport) or imported names (KindFrom, KindFuture).
	Names    []Name `json:"names,omitempty"`
	Wildcard bool   `json:"wildcard,omitempty"`
	Span     Span   `json:"span"`
}

// IsRelative reports whether the import has leading dots.
func (imp Import) IsRelative() bool {
	return imp.Level > 0
}

// Target returns the module part of a from-import including its leading dots.
func (imp Import) Target() string {
	return strings.Repeat(".", imp.Level) + imp.Module
}

// WithNames returns a copy of the import restricted to names.
func (imp Import) WithNames(names []Name) Import {
	out := imp
	out.Names = append([]Name(nil), names...)
	out.Wildcard = false

	return out
}

// String renders the import in canonical single-statement form.
func (imp Import) String() string {
	var sb strings.Builder

	switch imp.Kind {
	case KindImport:
		sb.WriteString("import ")
		writeNames(&sb, imp.Names)
	case KindFrom, KindFuture:
		sb.WriteString("from ")

		if imp.Kind == KindFuture {
			sb.WriteString(FutureModule)
		} else {
			sb.WriteString(imp.Target())
		}

		sb.WriteString(" import ")

		if imp.Wildcard {
			sb.WriteString("*")
		} else {
			writeNames(&sb, imp.Names)
		}
	}

	return sb.String()
}

func writeNames(sb *strings.Builder, names []Name) {
	for i, n := range names {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(n.String())
	}
}

// File is the parse result for one Python source file.
type File struct {
	Imports []Import `json:"imports,omitempty"`
	// MainGuards are top-level `if __name__ == "__main__":` blocks.
	MainGuards []Span `json:"main_guards,omitempty"`
	// Exports are the names bound at module level, in first-binding order.
	Exports []string `json:"exports,omitempty"`
	Lines   int      `json:"lines"`
}
