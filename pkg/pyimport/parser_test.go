package pyimport_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pybundle/pkg/pyimport"
)

const sampleSource = `"""Sample module."""
from __future__ import annotations

import os, sys as system
import xml.etree.ElementTree
from ..models.user import User as Account, load
from . import helpers
from util import *

VERSION = "1.0"
left, right = 1, 2


def run():
    import json
    return json.dumps({})


@decorator
class Service:
    pass


if __name__ == "__main__":
    run()
`

func parse(t *testing.T, src string) *pyimport.File {
	t.Helper()

	file, err := pyimport.NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.NotNil(t, file)

	return file
}

func TestParse_Imports(t *testing.T) {
	t.Parallel()

	file := parse(t, sampleSource)
	require.Len(t, file.Imports, 6)

	future := file.Imports[0]
	assert.Equal(t, pyimport.KindFuture, future.Kind)
	assert.Equal(t, []pyimport.Name{{Name: "annotations"}}, future.Names)

	plain := file.Imports[1]
	assert.Equal(t, pyimport.KindImport, plain.Kind)
	assert.Equal(t, []pyimport.Name{{Name: "os"}, {Name: "sys", Alias: "system"}}, plain.Names)
	assert.Equal(t, 4, plain.Span.Line)
	assert.Equal(t, "import os, sys as system", sampleSource[plain.Span.Start:plain.Span.End])

	dotted := file.Imports[2]
	assert.Equal(t, []pyimport.Name{{Name: "xml.etree.ElementTree"}}, dotted.Names)

	relative := file.Imports[3]
	assert.Equal(t, pyimport.KindFrom, relative.Kind)
	assert.Equal(t, 2, relative.Level)
	assert.Equal(t, "models.user", relative.Module)
	assert.Equal(t, []pyimport.Name{{Name: "User", Alias: "Account"}, {Name: "load"}}, relative.Names)

	sibling := file.Imports[4]
	assert.Equal(t, 1, sibling.Level)
	assert.Empty(t, sibling.Module)
	assert.Equal(t, []pyimport.Name{{Name: "helpers"}}, sibling.Names)

	star := file.Imports[5]
	assert.True(t, star.Wildcard)
	assert.Equal(t, "util", star.Module)
	assert.Empty(t, star.Names)
}

func TestParse_SkipsNestedImports(t *testing.T) {
	t.Parallel()

	file := parse(t, sampleSource)

	for _, imp := range file.Imports {
		assert.NotEqual(t, "import json", imp.String())
	}
}

func TestParse_MainGuard(t *testing.T) {
	t.Parallel()

	file := parse(t, sampleSource)
	require.Len(t, file.MainGuards, 1)

	guard := file.MainGuards[0]
	assert.Equal(t, "if __name__ == \"__main__\":\n    run()", sampleSource[guard.Start:guard.End])
}

func TestParse_MainGuardReversed(t *testing.T) {
	t.Parallel()

	file := parse(t, "if '__main__' == __name__:\n    pass\n")
	assert.Len(t, file.MainGuards, 1)
}

func TestParse_OtherIfIsNotGuard(t *testing.T) {
	t.Parallel()

	file := parse(t, "if DEBUG:\n    pass\n")
	assert.Empty(t, file.MainGuards)
}

func TestParse_Exports(t *testing.T) {
	t.Parallel()

	file := parse(t, sampleSource)

	assert.Equal(t, []string{
		"os", "system", "xml", "Account", "load", "helpers",
		"VERSION", "left", "right", "run", "Service",
	}, file.Exports)
}

func TestParse_Lines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, parse(t, "").Lines)
	assert.Equal(t, 2, parse(t, "a = 1\nb = 2\n").Lines)
	assert.Equal(t, 2, parse(t, "a = 1\nb = 2").Lines)
}
