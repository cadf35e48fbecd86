package pyimport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/pybundle/pkg/pyimport"
)

func TestImport_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		imp  pyimport.Import
		want string
	}{
		{
			name: "plain",
			imp:  pyimport.Import{Kind: pyimport.KindImport, Names: []pyimport.Name{{Name: "os"}, {Name: "sys", Alias: "s"}}},
			want: "import os, sys as s",
		},
		{
			name: "from",
			imp:  pyimport.Import{Kind: pyimport.KindFrom, Module: "typing", Names: []pyimport.Name{{Name: "List"}}},
			want: "from typing import List",
		},
		{
			name: "relative",
			imp:  pyimport.Import{Kind: pyimport.KindFrom, Level: 2, Module: "pkg", Names: []pyimport.Name{{Name: "x", Alias: "y"}}},
			want: "from ..pkg import x as y",
		},
		{
			name: "wildcard",
			imp:  pyimport.Import{Kind: pyimport.KindFrom, Module: "m", Wildcard: true},
			want: "from m import *",
		},
		{
			name: "future",
			imp:  pyimport.Import{Kind: pyimport.KindFuture, Names: []pyimport.Name{{Name: "annotations"}}},
			want: "from __future__ import annotations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.imp.String())
		})
	}
}

func TestName_Local(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a", pyimport.Name{Name: "a.b.c"}.Local())
	assert.Equal(t, "c", pyimport.Name{Name: "a.b", Alias: "c"}.Local())
}

func TestImport_WithNames(t *testing.T) {
	t.Parallel()

	orig := pyimport.Import{Kind: pyimport.KindImport, Names: []pyimport.Name{{Name: "os"}, {Name: "utils"}}}
	sub := orig.WithNames([]pyimport.Name{{Name: "os"}})

	assert.Equal(t, "import os", sub.String())
	assert.Len(t, orig.Names, 2)
}

func TestIsStdlib(t *testing.T) {
	t.Parallel()

	assert.True(t, pyimport.IsStdlib("os"))
	assert.True(t, pyimport.IsStdlib("os.path"))
	assert.True(t, pyimport.IsStdlib("collections.abc"))
	assert.False(t, pyimport.IsStdlib("requests"))
	assert.False(t, pyimport.IsStdlib("numpy.linalg"))
}
