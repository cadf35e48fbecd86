package pyimport

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/python"

	"github.com/Sumatoshi-tech/pybundle/pkg/textutil"
)

// Tree-sitter node types of the Python grammar.
const (
	nodeImport         = "import_statement"
	nodeImportFrom     = "import_from_statement"
	nodeFutureImport   = "future_import_statement"
	nodeIf             = "if_statement"
	nodeFunction       = "function_definition"
	nodeClass          = "class_definition"
	nodeDecorated      = "decorated_definition"
	nodeExpression     = "expression_statement"
	nodeAssignment     = "assignment"
	nodeAugmented      = "augmented_assignment"
	nodeDottedName     = "dotted_name"
	nodeAliasedImport  = "aliased_import"
	nodeRelativeImport = "relative_import"
	nodeImportPrefix   = "import_prefix"
	nodeWildcard       = "wildcard_import"
	nodeIdentifier     = "identifier"
	nodePatternList    = "pattern_list"
	nodeTuplePattern   = "tuple_pattern"
	nodeListPattern    = "list_pattern"

	fieldName       = "name"
	fieldAlias      = "alias"
	fieldModuleName = "module_name"
	fieldCondition  = "condition"
	fieldDefinition = "definition"
	fieldLeft       = "left"
	fieldRight      = "right"
)

var (
	errNoRootNode = errors.New("pyimport: parser returned no root node")
	errPoolType   = errors.New("pyimport: pooled parser has unexpected type")
)

var mainGuardPattern = regexp.MustCompile(
	`^__name__\s*==\s*['"]__main__['"]$|^['"]__main__['"]\s*==\s*__name__$`,
)

// Parser parses Python sources. It is safe for concurrent use.
type Parser struct {
	language *sitter.Language
	pool     sync.Pool
}

// NewParser creates a Python parser.
func NewParser() *Parser {
	lang := sitter.NewLanguage(python.GetLanguage())

	parser := &Parser{language: lang}
	parser.pool.New = func() any {
		tsParser := sitter.NewParser()
		tsParser.SetLanguage(lang)

		return tsParser
	}

	return parser
}

// Parse extracts the module-level structure of src.
// Imports nested inside functions, classes or compound statements are not reported.
func (p *Parser) Parse(ctx context.Context, src []byte) (*File, error) {
	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("pyimport: parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	w := walker{src: src, seen: make(map[string]bool)}
	w.file.Lines = textutil.CountLines(src)

	for idx := range root.NamedChildCount() {
		w.statement(root.NamedChild(idx))
	}

	return &w.file, nil
}

type walker struct {
	src  []byte
	file File
	seen map[string]bool
}

func (w *walker) statement(n sitter.Node) {
	switch n.Type() {
	case nodeImport:
		imp := Import{Kind: KindImport, Span: w.span(n), Names: w.importNames(n, nil)}
		w.addImport(imp)
	case nodeImportFrom:
		w.addImport(w.fromImport(n))
	case nodeFutureImport:
		imp := Import{Kind: KindFuture, Module: FutureModule, Span: w.span(n), Names: w.importNames(n, nil)}
		w.file.Imports = append(w.file.Imports, imp)
	case nodeIf:
		cond := n.ChildByFieldName(fieldCondition)
		if !cond.IsNull() && mainGuardPattern.MatchString(squash(w.text(cond))) {
			w.file.MainGuards = append(w.file.MainGuards, w.span(n))
		}
	case nodeFunction, nodeClass:
		w.exportField(n, fieldName)
	case nodeDecorated:
		def := n.ChildByFieldName(fieldDefinition)
		if !def.IsNull() {
			w.exportField(def, fieldName)
		}
	case nodeExpression:
		for idx := range n.NamedChildCount() {
			child := n.NamedChild(idx)
			if child.Type() == nodeAssignment || child.Type() == nodeAugmented {
				w.assignment(child)
			}
		}
	}
}

func (w *walker) addImport(imp Import) {
	w.file.Imports = append(w.file.Imports, imp)

	if imp.Wildcard {
		return
	}

	for _, name := range imp.Names {
		w.export(name.Local())
	}
}

func (w *walker) fromImport(n sitter.Node) Import {
	imp := Import{Kind: KindFrom, Span: w.span(n)}

	module := n.ChildByFieldName(fieldModuleName)
	if !module.IsNull() {
		switch module.Type() {
		case nodeRelativeImport:
			for idx := range module.NamedChildCount() {
				part := module.NamedChild(idx)

				switch part.Type() {
				case nodeImportPrefix:
					imp.Level = strings.Count(w.text(part), ".")
				case nodeDottedName:
					imp.Module = squash(w.text(part))
				}
			}
		default:
			imp.Module = squash(w.text(module))
		}
	}

	for idx := range n.NamedChildCount() {
		if n.NamedChild(idx).Type() == nodeWildcard {
			imp.Wildcard = true
		}
	}

	if !imp.Wildcard {
		imp.Names = w.importNames(n, &module)
	}

	return imp
}

// importNames collects dotted and aliased names among the children of n,
// skipping the module node of a from-import.
func (w *walker) importNames(n sitter.Node, skip *sitter.Node) []Name {
	var names []Name

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if skip != nil && !skip.IsNull() && child.StartByte() == skip.StartByte() && child.Type() == skip.Type() {
			continue
		}

		switch child.Type() {
		case nodeDottedName:
			names = append(names, Name{Name: squash(w.text(child))})
		case nodeAliasedImport:
			names = append(names, Name{
				Name:  squash(w.text(child.ChildByFieldName(fieldName))),
				Alias: w.text(child.ChildByFieldName(fieldAlias)),
			})
		}
	}

	return names
}

func (w *walker) assignment(n sitter.Node) {
	w.target(n.ChildByFieldName(fieldLeft))

	right := n.ChildByFieldName(fieldRight)
	if !right.IsNull() && right.Type() == nodeAssignment {
		w.assignment(right)
	}
}

func (w *walker) target(n sitter.Node) {
	if n.IsNull() {
		return
	}

	switch n.Type() {
	case nodeIdentifier:
		w.export(w.text(n))
	case nodePatternList, nodeTuplePattern, nodeListPattern:
		for idx := range n.NamedChildCount() {
			w.target(n.NamedChild(idx))
		}
	}
}

func (w *walker) exportField(n sitter.Node, field string) {
	name := n.ChildByFieldName(field)
	if !name.IsNull() && name.Type() == nodeIdentifier {
		w.export(w.text(name))
	}
}

func (w *walker) export(name string) {
	if name == "" || w.seen[name] {
		return
	}

	w.seen[name] = true
	w.file.Exports = append(w.file.Exports, name)
}

func (w *walker) span(n sitter.Node) Span {
	return Span{
		Start: int(n.StartByte()),
		End:   int(n.EndByte()),
		Line:  int(n.StartPoint().Row) + 1,
	}
}

func (w *walker) text(n sitter.Node) string {
	if n.IsNull() {
		return ""
	}

	start, end := int(n.StartByte()), int(n.EndByte())
	if start < 0 || end > len(w.src) || start > end {
		return ""
	}

	return string(w.src[start:end])
}

// squash drops whitespace, so `a . b` reads as `a.b`.
func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}
