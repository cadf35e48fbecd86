package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// volatilePrefix marks header lines that change on every run.
const volatilePrefix = "Generated: "

const diffContext = 3

// DiffOptions controls Diff.
type DiffOptions struct {
	OldName string
	NewName string
	Color   bool
}

// Normalize drops volatile header lines so two bundles of the same sources compare equal.
func Normalize(src []byte) string {
	lines := strings.SplitAfter(string(src), "\n")

	var sb strings.Builder

	for _, line := range lines {
		if strings.HasPrefix(line, volatilePrefix) {
			continue
		}

		sb.WriteString(line)
	}

	return sb.String()
}

// Diff compares two bundles line by line, ignoring volatile lines.
// It returns an empty string when they are equivalent.
func Diff(oldSrc, newSrc []byte, opts DiffOptions) string {
	a, b := Normalize(oldSrc), Normalize(newSrc)
	if a == b {
		return ""
	}

	dmp := diffmatchpatch.New()
	charsA, charsB, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(charsA, charsB, false), lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)
	hunk := color.New(color.FgCyan)

	for _, c := range []*color.Color{removed, added, hunk} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", nameOr(opts.OldName, "existing"), nameOr(opts.NewName, "generated"))

	oldLine, newLine := 1, 1

	for i, d := range diffs {
		chunk := splitLines(d.Text)

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, line := range chunk {
				sb.WriteString(removed.Sprint("-"+line) + "\n")
			}

			oldLine += len(chunk)
		case diffmatchpatch.DiffInsert:
			for _, line := range chunk {
				sb.WriteString(added.Sprint("+"+line) + "\n")
			}

			newLine += len(chunk)
		case diffmatchpatch.DiffEqual:
			writeContext(&sb, hunk, chunk, oldLine, newLine, i == 0, i == len(diffs)-1)

			oldLine += len(chunk)
			newLine += len(chunk)
		}
	}

	return sb.String()
}

// writeContext keeps diffContext lines on each side of a change and
// replaces the rest with a hunk marker.
func writeContext(sb *strings.Builder, hunk *color.Color, chunk []string, oldLine, newLine int, first, last bool) {
	head, tail := diffContext, diffContext
	if first {
		head = 0
	}

	if last {
		tail = 0
	}

	if len(chunk) <= head+tail {
		for _, line := range chunk {
			sb.WriteString(" " + line + "\n")
		}

		return
	}

	for _, line := range chunk[:head] {
		sb.WriteString(" " + line + "\n")
	}

	if !last {
		skip := len(chunk) - tail
		sb.WriteString(hunk.Sprintf("@@ -%d +%d @@", oldLine+skip, newLine+skip) + "\n")

		for _, line := range chunk[skip:] {
			sb.WriteString(" " + line + "\n")
		}
	}
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}

	return strings.Split(text, "\n")
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}

	return name
}
