// Package bundle assembles ordered project modules into one Python source file.
package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/pybundle/pkg/depgraph"
	"github.com/Sumatoshi-tech/pybundle/pkg/modules"
	"github.com/Sumatoshi-tech/pybundle/pkg/resolve"
)

// ErrModuleNotRegistered is returned when the ordering names a module without a record.
var ErrModuleNotRegistered = errors.New("ordered module is not registered")

const (
	shebang       = "#!/usr/bin/env python3"
	bannerWidth   = 78
	footerLine    = "### Made with pybundle"
	sectionPrefix = "# Source from: "
	stdlibTitle   = "# Standard library imports"
	thirdTitle    = "# Third-party imports"
	helperTitle   = "# Module namespaces"
)

// Options controls bundle layout.
type Options struct {
	// Entry is the module whose main guard is kept.
	Entry   modules.ID
	Version string
	// Header adds the shebang and the banner docstring.
	Header bool
	// Footer adds the trailing signature line.
	Footer bool
	// Timestamp is written into the header when non-zero.
	Timestamp time.Time
	// StripMainGuards removes `if __name__ == "__main__":` blocks of non-entry modules.
	StripMainGuards bool
}

// Stats summarizes one assembled bundle.
type Stats struct {
	Modules           int `json:"modules" yaml:"modules"`
	SourceLines       int `json:"source_lines" yaml:"source_lines"`
	SourceBytes       int `json:"source_bytes" yaml:"source_bytes"`
	BundleLines       int `json:"bundle_lines" yaml:"bundle_lines"`
	BundleBytes       int `json:"bundle_bytes" yaml:"bundle_bytes"`
	StdlibImports     int `json:"stdlib_imports" yaml:"stdlib_imports"`
	ThirdPartyImports int `json:"third_party" yaml:"third_party"`
	RemovedImports    int `json:"removed_imports" yaml:"removed_imports"`
	Bindings          int `json:"bindings" yaml:"bindings"`
	StrippedGuards    int `json:"stripped_guards" yaml:"stripped_guards"`
}

// Bundle is the assembled output.
type Bundle struct {
	Source []byte
	Stats  Stats
}

// Assemble concatenates the modules of order into one file.
// Top-level imports are removed from module bodies: external ones are hoisted,
// internal ones are replaced by bindings to module namespace objects.
func Assemble(reg *modules.Registry, order depgraph.Ordering, res *resolve.Result, opts Options) (*Bundle, error) {
	records := make([]*modules.Record, 0, len(order))

	for _, id := range order {
		rec, ok := reg.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrModuleNotRegistered, id)
		}

		records = append(records, rec)
	}

	asm := assembler{res: res, opts: opts, hoist: newHoisted(), exported: exportedModules(order, res)}

	sections := make([]string, 0, len(records))
	for _, rec := range records {
		sections = append(sections, asm.section(rec))
	}

	var out bytes.Buffer

	if opts.Header {
		asm.writeHeader(&out, reg, records)
	}

	if line := asm.hoist.futureLine(); line != "" {
		writeBlock(&out, line+"\n")
	}

	if asm.stats.Bindings > 0 {
		writeBlock(&out, helperTitle+"\n"+namespaceHelper)
	}

	std := asm.hoist.lines(true)
	third := asm.hoist.lines(false)
	asm.stats.StdlibImports = len(std)
	asm.stats.ThirdPartyImports = len(third)

	if len(std) > 0 {
		writeBlock(&out, stdlibTitle+"\n"+strings.Join(std, "\n")+"\n")
	}

	if len(third) > 0 {
		writeBlock(&out, thirdTitle+"\n"+strings.Join(third, "\n")+"\n")
	}

	for _, section := range sections {
		writeBlock(&out, section)
	}

	if opts.Footer {
		writeBlock(&out, footerLine+"\n")
	}

	source := out.Bytes()

	asm.stats.Modules = len(records)
	asm.stats.BundleBytes = len(source)
	asm.stats.BundleLines = bytes.Count(source, []byte{'\n'})

	return &Bundle{Source: source, Stats: asm.stats}, nil
}

type assembler struct {
	res      *resolve.Result
	opts     Options
	hoist    *hoisted
	exported map[modules.ID]bool
	stats    Stats
}

// section renders the banner and rewritten body of one module.
func (a *assembler) section(rec *modules.Record) string {
	a.stats.SourceBytes += len(rec.Source)
	if rec.File != nil {
		a.stats.SourceLines += rec.File.Lines
	}

	var edits []edit

	for _, st := range a.res.Statements[rec.ID] {
		if st.External != nil {
			a.hoist.add(*st.External)
		}

		lines := make([]string, 0, len(st.Bindings))
		for _, b := range st.Bindings {
			lines = append(lines, bindingLine(b))
		}

		a.stats.Bindings += len(st.Bindings)
		a.stats.RemovedImports++

		edits = append(edits, edit{start: st.Import.Span.Start, end: st.Import.Span.End, lines: lines})
	}

	if a.opts.StripMainGuards && rec.ID != a.opts.Entry && rec.File != nil {
		for _, guard := range rec.File.MainGuards {
			edits = append(edits, edit{start: guard.Start, end: guard.End})
			a.stats.StrippedGuards++
		}
	}

	body := strings.Trim(string(rewrite(rec.Source, edits)), "\n")

	var sb strings.Builder

	rule := "# " + strings.Repeat("=", bannerWidth)
	sb.WriteString(rule + "\n")
	sb.WriteString(sectionPrefix + rec.Rel + "\n")
	sb.WriteString(rule + "\n")

	if body != "" {
		sb.WriteString(body + "\n")
	}

	if a.exported[rec.ID] {
		var names []string
		if rec.File != nil {
			names = rec.File.Exports
		}

		sb.WriteString("\n" + exportLine(rec.ID, names) + "\n")
	}

	return sb.String()
}

func (a *assembler) writeHeader(out *bytes.Buffer, reg *modules.Registry, records []*modules.Record) {
	var lines int

	for _, rec := range records {
		if rec.File != nil {
			lines += rec.File.Lines
		}
	}

	entry := string(a.opts.Entry)
	if rec, ok := reg.Get(a.opts.Entry); ok {
		entry = rec.Rel
	}

	var sb strings.Builder

	sb.WriteString(shebang + "\n")

	version := a.opts.Version
	if version == "" {
		version = "dev"
	}

	fmt.Fprintf(&sb, "\"\"\"Bundled by pybundle %s.\n\n", version)
	fmt.Fprintf(&sb, "Entry: %s\n", entry)
	fmt.Fprintf(&sb, "Modules: %d\n", len(records))
	fmt.Fprintf(&sb, "Source lines: %d\n", lines)

	if !a.opts.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "Generated: %s\n", a.opts.Timestamp.UTC().Format(time.RFC3339))
	}

	sb.WriteString("\"\"\"\n")

	writeBlock(out, sb.String())
}

// exportedModules returns the modules a bundled module imports or binds,
// so `import a.b` can reach a.b through the namespace of a.
func exportedModules(order depgraph.Ordering, res *resolve.Result) map[modules.ID]bool {
	bundled := make(map[modules.ID]bool, len(order))
	for _, id := range order {
		bundled[id] = true
	}

	exported := make(map[modules.ID]bool)

	for _, e := range res.InternalEdges() {
		if bundled[e.From] {
			exported[e.To] = true
		}
	}

	for _, id := range order {
		for _, st := range res.Statements[id] {
			for _, b := range st.Bindings {
				exported[b.Module] = true
			}
		}
	}

	return exported
}

// writeBlock appends text separated from earlier output by two blank lines.
func writeBlock(out *bytes.Buffer, text string) {
	if out.Len() > 0 {
		out.WriteString("\n\n")
	}

	out.WriteString(text)
}

// HoistedImports lists the external statements a bundle of order would hoist,
// stdlib first, in the order they would be written.
func HoistedImports(order depgraph.Ordering, res *resolve.Result) []string {
	h := newHoisted()

	for _, id := range order {
		for _, imp := range res.External(id) {
			h.add(imp)
		}
	}

	var out []string
	if line := h.futureLine(); line != "" {
		out = append(out, line)
	}

	out = append(out, h.lines(true)...)

	return append(out, h.lines(false)...)
}
