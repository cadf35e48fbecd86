package bundle

import (
	"bytes"
	"sort"
	"strings"
)

const inlinePlaceholder = "pass"

// edit replaces the statement at [start, end) with lines.
type edit struct {
	start int
	end   int
	lines []string
}

// rewrite applies non-overlapping statement edits to src.
// A statement alone on its lines (trailing comments allowed) is replaced
// line-wise. A statement sharing a line with other code is replaced inline,
// joining lines with "; " so the remaining code stays valid.
func rewrite(src []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out bytes.Buffer

	cursor := 0

	for _, e := range edits {
		if e.start < cursor || e.end > len(src) || e.start > e.end {
			continue
		}

		lineStart := bytes.LastIndexByte(src[:e.start], '\n') + 1
		lineEnd := len(src)

		if idx := bytes.IndexByte(src[e.end:], '\n'); idx >= 0 {
			lineEnd = e.end + idx
		}

		prefix := src[lineStart:e.start]
		suffix := strings.TrimSpace(string(src[e.end:lineEnd]))

		if lineStart >= cursor && isBlank(prefix) && (suffix == "" || strings.HasPrefix(suffix, "#")) {
			out.Write(src[cursor:lineStart])

			for _, line := range e.lines {
				out.Write(prefix)
				out.WriteString(line)
				out.WriteByte('\n')
			}

			cursor = min(lineEnd+1, len(src))

			continue
		}

		out.Write(src[cursor:e.start])

		if len(e.lines) == 0 {
			out.WriteString(inlinePlaceholder)
		} else {
			out.WriteString(strings.Join(e.lines, "; "))
		}

		cursor = e.end
	}

	out.Write(src[cursor:])

	return out.Bytes()
}

func isBlank(b []byte) bool {
	return len(bytes.TrimSpace(b)) == 0
}
