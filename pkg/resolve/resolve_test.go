package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pybundle/pkg/modules"
	"github.com/Sumatoshi-tech/pybundle/pkg/pyimport"
	"github.com/Sumatoshi-tech/pybundle/pkg/resolve"
)

type fixtureModule struct {
	rel     string
	imports []pyimport.Import
}

func importOf(names ...string) pyimport.Import {
	imp := pyimport.Import{Kind: pyimport.KindImport, Span: pyimport.Span{Line: 1}}
	for _, n := range names {
		imp.Names = append(imp.Names, pyimport.Name{Name: n})
	}

	return imp
}

func fromOf(level int, module string, names ...string) pyimport.Import {
	imp := pyimport.Import{Kind: pyimport.KindFrom, Level: level, Module: module, Span: pyimport.Span{Line: 2}}
	for _, n := range names {
		imp.Names = append(imp.Names, pyimport.Name{Name: n})
	}

	return imp
}

func registry(t *testing.T, mods ...fixtureModule) *modules.Registry {
	t.Helper()

	reg := modules.NewRegistry("/project")

	for _, m := range mods {
		id, err := modules.NewID(m.rel)
		require.NoError(t, err)

		require.NoError(t, reg.Add(&modules.Record{
			ID:        id,
			Rel:       m.rel,
			IsPackage: modules.IsPackagePath(m.rel),
			File:      &pyimport.File{Imports: m.imports},
		}))
	}

	return reg
}

func defaults() resolve.Options {
	return resolve.Options{ImplicitRelative: true}
}

func internalPairs(res *resolve.Result) [][2]modules.ID {
	var out [][2]modules.ID
	for _, e := range res.InternalEdges() {
		out = append(out, [2]modules.ID{e.From, e.To})
	}

	return out
}

func TestResolve_SimpleInternal(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{importOf("utils")}},
		fixtureModule{rel: "utils.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"main", "utils"}}, internalPairs(res))

	stmts := res.Statements["main"]
	require.Len(t, stmts, 1)
	assert.Nil(t, stmts[0].External)
	assert.Equal(t, []resolve.Binding{{Kind: resolve.BindModule, Local: "utils", Module: "utils"}}, stmts[0].Bindings)
}

func TestResolve_ExternalNeverBecomesEdge(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{importOf("requests"), fromOf(0, "os.path", "join")}},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Empty(t, res.InternalEdges())
	assert.Equal(t, 2, res.ExternalCount())

	external := res.External("main")
	require.Len(t, external, 2)
	assert.Equal(t, "import requests", external[0].String())
	assert.Equal(t, "from os.path import join", external[1].String())
	assert.Empty(t, res.Warnings)
}

func TestResolve_SymbolsCollapseToOneEdge(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{
			fromOf(0, "utils", "a", "b"),
			importOf("utils"),
		}},
		fixtureModule{rel: "utils.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"main", "utils"}}, internalPairs(res))
	assert.Equal(t, []resolve.Binding{
		{Kind: resolve.BindSymbol, Local: "a", Module: "utils", Symbol: "a"},
		{Kind: resolve.BindSymbol, Local: "b", Module: "utils", Symbol: "b"},
	}, res.Statements["main"][0].Bindings)
}

func TestResolve_ExplicitRelative(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "pkg/__init__.py"},
		fixtureModule{rel: "pkg/a.py", imports: []pyimport.Import{fromOf(1, "b", "x"), fromOf(2, "", "top")}},
		fixtureModule{rel: "pkg/b.py"},
		fixtureModule{rel: "top.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"pkg.a", "pkg.b"}, {"pkg.a", "top"}}, internalPairs(res))
}

func TestResolve_PackageInitRelative(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "pkg/__init__.py", imports: []pyimport.Import{fromOf(1, "models", "User")}},
		fixtureModule{rel: "pkg/models.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"pkg", "pkg.models"}}, internalPairs(res))
}

func TestResolve_InitImportsOwnSubmodule(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{importOf("pkg")}},
		fixtureModule{rel: "pkg/__init__.py", imports: []pyimport.Import{fromOf(1, "", "sub")}},
		fixtureModule{rel: "pkg/sub.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"main", "pkg"}, {"pkg", "pkg.sub"}}, internalPairs(res))
	assert.Equal(t, []resolve.Binding{{Kind: resolve.BindModule, Local: "sub", Module: "pkg.sub"}},
		res.Statements["pkg"][0].Bindings)
}

func TestResolve_SiblingSubmoduleSkipsPackage(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "pkg/__init__.py", imports: []pyimport.Import{fromOf(1, "api", "run")}},
		fixtureModule{rel: "pkg/api.py", imports: []pyimport.Import{fromOf(1, "", "util")}},
		fixtureModule{rel: "pkg/util.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"pkg", "pkg.api"}, {"pkg.api", "pkg.util"}}, internalPairs(res))
}

func TestResolve_SymbolFromEnclosingPackageKeepsEdge(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "pkg/__init__.py"},
		fixtureModule{rel: "pkg/api.py", imports: []pyimport.Import{fromOf(1, "", "util", "VERSION")}},
		fixtureModule{rel: "pkg/util.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"pkg.api", "pkg"}, {"pkg.api", "pkg.util"}}, internalPairs(res))
}

func TestResolve_RelativeBeyondRoot(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{fromOf(2, "x", "y")}},
	)

	_, err := resolve.Resolve(reg, resolve.Options{Strict: true})

	var unresolved *resolve.UnresolvedImportError

	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, modules.ID("main"), unresolved.Module)
	assert.Equal(t, "from ..x import y", unresolved.Import)
	assert.Equal(t, 2, unresolved.Line)
}

func TestResolve_UnresolvedWarnsByDefault(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "pkg/__init__.py"},
		fixtureModule{rel: "pkg/a.py", imports: []pyimport.Import{fromOf(1, "missing", "x")}},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Empty(t, res.InternalEdges())
	assert.Equal(t, "from .missing import x", res.External("pkg.a")[0].String())
}

func TestResolve_ImplicitRelativePriority(t *testing.T) {
	t.Parallel()

	mods := []fixtureModule{
		{rel: "pkg/a.py", imports: []pyimport.Import{importOf("b")}},
		{rel: "pkg/b.py"},
		{rel: "b.py"},
	}

	res, err := resolve.Resolve(registry(t, mods...), defaults())
	require.NoError(t, err)
	assert.Equal(t, [][2]modules.ID{{"pkg.a", "pkg.b"}}, internalPairs(res))

	res, err = resolve.Resolve(registry(t, mods...), resolve.Options{})
	require.NoError(t, err)
	assert.Equal(t, [][2]modules.ID{{"pkg.a", "b"}}, internalPairs(res))
}

func TestResolve_DottedImportAddsPackages(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{importOf("pkg.sub.mod")}},
		fixtureModule{rel: "pkg/__init__.py"},
		fixtureModule{rel: "pkg/sub/__init__.py"},
		fixtureModule{rel: "pkg/sub/mod.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"main", "pkg"}, {"main", "pkg.sub"}, {"main", "pkg.sub.mod"}}, internalPairs(res))
	assert.Equal(t, []resolve.Binding{{Kind: resolve.BindModule, Local: "pkg", Module: "pkg"}},
		res.Statements["main"][0].Bindings)
}

func TestResolve_FromPackageImportSubmodule(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{fromOf(0, "models", "user", "helper")}},
		fixtureModule{rel: "models/__init__.py"},
		fixtureModule{rel: "models/user.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"main", "models"}, {"main", "models.user"}}, internalPairs(res))
	assert.Equal(t, []resolve.Binding{
		{Kind: resolve.BindModule, Local: "user", Module: "models.user"},
		{Kind: resolve.BindSymbol, Local: "helper", Module: "models", Symbol: "helper"},
	}, res.Statements["main"][0].Bindings)
}

func TestResolve_NamespacePackage(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{fromOf(0, "models", "product")}},
		fixtureModule{rel: "models/product.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"main", "models.product"}}, internalPairs(res))
}

func TestResolve_MixedStatement(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{importOf("os", "utils")}},
		fixtureModule{rel: "utils.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	st := res.Statements["main"][0]
	require.NotNil(t, st.External)
	assert.Equal(t, "import os", st.External.String())
	assert.Len(t, st.Bindings, 1)
}

func TestResolve_PartialMatchIsUnresolved(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{importOf("utils.missing")}},
		fixtureModule{rel: "utils.py"},
	)

	_, err := resolve.Resolve(reg, resolve.Options{Strict: true, ImplicitRelative: true})

	var unresolved *resolve.UnresolvedImportError

	require.ErrorAs(t, err, &unresolved)
}

func TestResolve_Wildcard(t *testing.T) {
	t.Parallel()

	star := fromOf(0, "utils")
	star.Wildcard = true

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{star}},
		fixtureModule{rel: "utils.py"},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, []resolve.Binding{{Kind: resolve.BindStar, Module: "utils"}}, res.Statements["main"][0].Bindings)
}

func TestResolve_SelfImport(t *testing.T) {
	t.Parallel()

	reg := registry(t,
		fixtureModule{rel: "main.py", imports: []pyimport.Import{importOf("main")}},
	)

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Equal(t, [][2]modules.ID{{"main", "main"}}, internalPairs(res))
}

func TestResolve_FutureIsExternal(t *testing.T) {
	t.Parallel()

	future := pyimport.Import{Kind: pyimport.KindFuture, Module: pyimport.FutureModule,
		Names: []pyimport.Name{{Name: "annotations"}}}

	reg := registry(t, fixtureModule{rel: "main.py", imports: []pyimport.Import{future}})

	res, err := resolve.Resolve(reg, defaults())
	require.NoError(t, err)

	assert.Len(t, res.External("main"), 1)
	assert.Empty(t, res.InternalEdges())
}
