package bundle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func span(src, stmt string) (int, int) {
	start := strings.Index(src, stmt)

	return start, start + len(stmt)
}

func TestRewrite_WholeLine(t *testing.T) {
	t.Parallel()

	src := "import a\nx = 1\n"
	start, end := span(src, "import a")

	out := rewrite([]byte(src), []edit{{start: start, end: end, lines: []string{"a = mod"}}})
	assert.Equal(t, "a = mod\nx = 1\n", string(out))
}

func TestRewrite_RemovesLineWithComment(t *testing.T) {
	t.Parallel()

	src := "x = 0\nimport a  # noqa\nx = 1\n"
	start, end := span(src, "import a")

	out := rewrite([]byte(src), []edit{{start: start, end: end}})
	assert.Equal(t, "x = 0\nx = 1\n", string(out))
}

func TestRewrite_Multiline(t *testing.T) {
	t.Parallel()

	src := "from a import (\n    b,\n    c,\n)\nprint(b)"
	start, end := span(src, "from a import (\n    b,\n    c,\n)")

	out := rewrite([]byte(src), []edit{{start: start, end: end, lines: []string{"b = 1", "c = 2"}}})
	assert.Equal(t, "b = 1\nc = 2\nprint(b)", string(out))
}

func TestRewrite_SharedLine(t *testing.T) {
	t.Parallel()

	src := "import a; import b\n"
	aStart, aEnd := span(src, "import a")
	bStart, bEnd := span(src, "import b")

	out := rewrite([]byte(src), []edit{
		{start: bStart, end: bEnd, lines: []string{"b = 1"}},
		{start: aStart, end: aEnd},
	})
	assert.Equal(t, "pass; b = 1\n", string(out))
}

func TestRewrite_NoEdits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "x = 1\n", string(rewrite([]byte("x = 1\n"), nil)))
}
