package resolve

import (
	"context"
	"testing"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/ast/astbuild"
	"nameres/internal/engine/diag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.PreludeCrate = ""
	return opts
}

func run(t *testing.T, opts Options, local *ast.Crate, externs ...*ast.Crate) *Output {
	t.Helper()
	out, err := Resolve(context.Background(), &ast.Program{Local: local, Externs: externs}, opts)
	require.NoError(t, err)
	require.NotNil(t, out)
	return out
}

func errorsWithCode(out *Output, code string) []diag.Diagnostic {
	var found []diag.Diagnostic
	for _, d := range out.Diagnostics {
		if d.Code == code {
			found = append(found, d)
		}
	}
	return found
}

func errorCodes(out *Output) []string {
	var codes []string
	for _, d := range out.Diagnostics {
		if d.IsError() {
			codes = append(codes, d.Code)
		}
	}
	return codes
}

func lints(out *Output, lint string) []diag.Diagnostic {
	var found []diag.Diagnostic
	for _, d := range out.Diagnostics {
		if d.Kind == diag.KindLint && d.Lint == lint {
			found = append(found, d)
		}
	}
	return found
}

func localDef(kind DefKind, id ast.NodeID) Def {
	return Def{Kind: kind, ID: DefID{Crate: LocalCrate, Node: id}}
}

func mainFn(b *astbuild.Builder, stmts ...ast.Stmt) *ast.Item {
	return b.Fn("main", b.Priv(), nil, b.Block(stmts...))
}

func TestResolve_NilProgram(t *testing.T) {
	_, err := Resolve(context.Background(), nil, testOptions())
	require.Error(t, err)
	_, err = Resolve(context.Background(), &ast.Program{}, testOptions())
	require.Error(t, err)
}

func TestResolve_CancelledContext(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil, mainFn(b))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Resolve(ctx, &ast.Program{Local: crate}, testOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestResolve_GlobImportedFunction(t *testing.T) {
	b := astbuild.New("main.rs")
	f := b.Fn("f", b.Pub(), nil, b.Block())
	m := b.Mod("m", b.Priv(), f)
	glob := b.UseGlob("m")
	call := b.PathExpr("f")
	crate := b.Crate("app", nil, m, b.Use(b.Priv(), glob), mainFn(b, b.Stmt(b.CallExpr(call))))

	out := run(t, testOptions(), crate)

	assert.Empty(t, out.Diagnostics)
	res, ok := out.Defs[call.ID]
	require.True(t, ok)
	assert.Equal(t, PathResolution{BaseDef: localDef(DefFn, f.ID)}, res)
	assert.Equal(t, []string{"f"}, out.GlobUses[glob.ID])
}

func TestResolve_AmbiguousGlobs(t *testing.T) {
	b := astbuild.New("main.rs")
	ga := b.Fn("g", b.Pub(), nil, b.Block())
	gb := b.Fn("g", b.Pub(), nil, b.Block())
	globA, globB := b.UseGlob("a"), b.UseGlob("b")
	call := b.PathExpr("g")
	crate := b.Crate("app", nil,
		b.Mod("a", b.Priv(), ga),
		b.Mod("b", b.Priv(), gb),
		b.Use(b.Priv(), globA),
		b.Use(b.Priv(), globB),
		mainFn(b, b.Stmt(b.CallExpr(call))),
	)

	out := run(t, testOptions(), crate)

	amb := errorsWithCode(out, "E0659")
	require.Len(t, amb, 1)
	assert.Equal(t, "`g` is ambiguous", amb[0].Message)
	assert.Equal(t, diag.KindAmbiguous, amb[0].Kind)
	require.Len(t, amb[0].Labels, 2)
	assert.ElementsMatch(t, []ast.Span{globA.Span, globB.Span}, []ast.Span{amb[0].Labels[0].Span, amb[0].Labels[1].Span})

	res, ok := out.Defs[call.ID]
	require.True(t, ok)
	assert.Equal(t, localDef(DefFn, ga.ID), res.BaseDef)

	// A second run picks the same definition.
	again := run(t, testOptions(), crate)
	assert.Equal(t, res, again.Defs[call.ID])
}

func TestResolve_DuplicateImport(t *testing.T) {
	b := astbuild.New("main.rs")
	s := b.UnitStruct("S", b.Pub())
	first, second := b.UseSimple("m::S"), b.UseSimple("m::S")
	crate := b.Crate("app", nil,
		b.Mod("m", b.Priv(), s),
		b.Use(b.Priv(), first),
		b.Use(b.Priv(), second),
	)

	out := run(t, testOptions(), crate)

	dup := errorsWithCode(out, "E0252")
	require.Len(t, dup, 1)
	assert.Equal(t, "the name `S` is defined multiple times", dup[0].Message)
	assert.Equal(t, second.Span, dup[0].Span)

	imp, ok := out.Imports[first.ID]
	require.True(t, ok)
	assert.Equal(t, localDef(DefStruct, s.ID), imp.Get(TypeNS))
	assert.Equal(t, DefStructCtor, imp.Get(ValueNS).Kind)
}

func TestResolve_NestedClosureCaptures(t *testing.T) {
	b := astbuild.New("main.rs")
	x := b.PIdent("x")
	use := b.PathExpr("x")
	inner := b.Closure(nil, use)
	outer := b.Closure(nil, b.BlockExpr(b.Block(b.Let(b.PIdent("d"), inner))))
	crate := b.Crate("app", nil, mainFn(b,
		b.Let(x, b.Lit("1")),
		b.Let(b.PIdent("c"), outer),
	))

	out := run(t, testOptions(), crate)
	require.Empty(t, errorCodes(out))

	outerCaps := out.Captures[outer.ID]
	require.Len(t, outerCaps, 1)
	assert.Equal(t, Def{Kind: DefLocal, Local: x.ID}, outerCaps[0].Def)

	innerCaps := out.Captures[inner.ID]
	require.Len(t, innerCaps, 1)
	assert.Equal(t, Def{Kind: DefUpvar, Local: x.ID, Index: 0, Closure: outer.ID}, innerCaps[0].Def)

	assert.Equal(t, outerCaps[0].Local(), innerCaps[0].Local())
	assert.Equal(t, Def{Kind: DefUpvar, Local: x.ID, Index: 0, Closure: inner.ID}, out.Defs[use.ID].BaseDef)
}

func TestResolve_CaptureIndexesFollowFirstUse(t *testing.T) {
	b := astbuild.New("main.rs")
	x, y := b.PIdent("x"), b.PIdent("y")
	useY, useX, useY2 := b.PathExpr("y"), b.PathExpr("x"), b.PathExpr("y")
	clo := b.Closure(nil, b.BlockExpr(b.Block(b.Stmt(useY), b.Stmt(useX), b.Tail(useY2))))
	crate := b.Crate("app", nil, mainFn(b,
		b.Let(x, b.Lit("1")),
		b.Let(y, b.Lit("2")),
		b.Stmt(clo),
	))

	out := run(t, testOptions(), crate)

	caps := out.Captures[clo.ID]
	require.Len(t, caps, 2)
	assert.Equal(t, y.ID, caps[0].Local())
	assert.Equal(t, x.ID, caps[1].Local())
	assert.Equal(t, 0, out.Defs[useY.ID].BaseDef.Index)
	assert.Equal(t, 1, out.Defs[useX.ID].BaseDef.Index)
	assert.Equal(t, out.Defs[useY.ID], out.Defs[useY2.ID])
}

func TestResolve_SelfImportOutsideList(t *testing.T) {
	b := astbuild.New("main.rs")
	tree := b.UseSimple("self")
	crate := b.Crate("app", nil, b.Use(b.Priv(), tree))

	out := run(t, testOptions(), crate)

	errs := errorsWithCode(out, "E0429")
	require.Len(t, errs, 1)
	assert.Equal(t, "`self` imports are only allowed within a { } list", errs[0].Message)
	assert.Equal(t, diag.KindIllegalUse, errs[0].Kind)
	_, recorded := out.Imports[tree.ID]
	assert.False(t, recorded)
}

func TestResolve_SelfImportInList(t *testing.T) {
	b := astbuild.New("main.rs")
	m := b.Mod("m", b.Pub(), b.Fn("f", b.Pub(), nil, b.Block()))
	self := b.UseSimple("self")
	crate := b.Crate("app", nil, m, b.Mod("n", b.Pub(), b.Use(b.Pub(), b.UseNested("m", self))))

	out := run(t, testOptions(), crate)

	assert.Empty(t, errorCodes(out))
	assert.Equal(t, localDef(DefMod, m.ID), out.Imports[self.ID].Get(TypeNS))
	assert.True(t, out.Imports[self.ID].Get(ValueNS).IsNone())
}

func TestResolve_SelfImportWithEmptyPrefix(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil, b.Use(b.Priv(), b.UseNested("", b.UseSimple("self"))))

	out := run(t, testOptions(), crate)

	assert.Len(t, errorsWithCode(out, "E0431"), 1)
}

func TestResolve_Deterministic(t *testing.T) {
	build := func() *ast.Crate {
		b := astbuild.New("main.rs")
		return b.Crate("app", nil,
			b.Mod("a", b.Priv(), b.Fn("g", b.Pub(), nil, b.Block()), b.UnitStruct("S", b.Pub())),
			b.Mod("b", b.Priv(), b.Fn("g", b.Pub(), nil, b.Block())),
			b.Use(b.Priv(), b.UseGlob("a")),
			b.Use(b.Priv(), b.UseGlob("b")),
			b.Use(b.Priv(), b.UseSimple("a::missing")),
			mainFn(b,
				b.Stmt(b.CallExpr(b.PathExpr("g"))),
				b.Stmt(b.PathExpr("S")),
				b.Stmt(b.PathExpr("nope")),
			),
		)
	}

	first := run(t, testOptions(), build())
	for i := 0; i < 5; i++ {
		next := run(t, testOptions(), build())
		assert.Equal(t, first.Defs, next.Defs)
		assert.Equal(t, first.Imports, next.Imports)
		assert.Equal(t, first.Diagnostics, next.Diagnostics)
	}
}

func TestResolve_ItemOrderDoesNotMatter(t *testing.T) {
	build := func(order func([]*ast.Item) []*ast.Item) *ast.Crate {
		b := astbuild.New("main.rs")
		items := []*ast.Item{
			b.Mod("a", b.Priv(), b.Fn("ga", b.Pub(), nil, b.Block()), b.UnitStruct("S", b.Pub())),
			b.Mod("b", b.Priv(), b.Fn("gb", b.Pub(), nil, b.Block())),
			b.Mod("c", b.Priv(), b.Use(b.Pub(), b.UseSimple("a::S"))),
			b.Use(b.Priv(), b.UseGlob("a")),
			b.Use(b.Priv(), b.UseGlob("b")),
			b.Use(b.Priv(), b.UseRename("c::S", "T")),
			b.Use(b.Priv(), b.UseSimple("a::missing")),
			mainFn(b,
				b.Stmt(b.CallExpr(b.PathExpr("ga"))),
				b.Stmt(b.CallExpr(b.PathExpr("gb"))),
				b.Stmt(b.PathExpr("T")),
				b.Stmt(b.PathExpr("nope")),
			),
		}
		return b.Crate("app", nil, order(items)...)
	}
	reversed := func(items []*ast.Item) []*ast.Item {
		out := make([]*ast.Item, len(items))
		for i, it := range items {
			out[len(items)-1-i] = it
		}
		return out
	}
	rotated := func(items []*ast.Item) []*ast.Item {
		return append(append([]*ast.Item(nil), items[3:]...), items[:3]...)
	}

	first := run(t, testOptions(), build(func(items []*ast.Item) []*ast.Item { return items }))
	require.NotEmpty(t, first.Diagnostics)
	for _, order := range []func([]*ast.Item) []*ast.Item{reversed, rotated} {
		next := run(t, testOptions(), build(order))
		assert.Equal(t, first.Defs, next.Defs)
		assert.Equal(t, first.Imports, next.Imports)
		assert.Equal(t, first.Diagnostics, next.Diagnostics)
	}
}

func TestResolve_MaxPassesCapsFixedPoint(t *testing.T) {
	build := func() *ast.Crate {
		b := astbuild.New("main.rs")
		return b.Crate("app", nil,
			b.Use(b.Priv(), b.UseSimple("c::x")),
			b.Mod("c", b.Priv(), b.Use(b.Pub(), b.UseSimple("super::d::x"))),
			b.Mod("d", b.Priv(), b.Use(b.Pub(), b.UseSimple("super::e::x"))),
			b.Mod("e", b.Priv(), b.Fn("x", b.Pub(), nil, b.Block())),
		)
	}

	natural := run(t, testOptions(), build())
	assert.LessOrEqual(t, natural.Stats.Passes, natural.Stats.Directives+1)

	opts := testOptions()
	opts.MaxPasses = 1
	capped := run(t, opts, build())
	assert.Equal(t, 1, capped.Stats.Passes)
}

func TestResolve_MutualGlobsConverge(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil,
		b.Mod("a", b.Priv(), b.Use(b.Pub(), b.UseGlob("b"))),
		b.Mod("b", b.Priv(), b.Use(b.Pub(), b.UseGlob("a"))),
	)

	out := run(t, testOptions(), crate)

	assert.Empty(t, out.Diagnostics)
	assert.Zero(t, out.Stats.Indeterminate)
	assert.LessOrEqual(t, out.Stats.Passes, out.Stats.Directives+1)
}

func TestResolve_ExplicitImportShadowsGlob(t *testing.T) {
	b := astbuild.New("main.rs")
	mf := b.Fn("f", b.Pub(), nil, b.Block())
	nf := b.Fn("f", b.Pub(), nil, b.Block())
	call := b.PathExpr("f")
	crate := b.Crate("app", nil,
		b.Mod("m", b.Priv(), mf),
		b.Mod("n", b.Priv(), nf),
		b.Use(b.Priv(), b.UseGlob("m")),
		b.Use(b.Priv(), b.UseSimple("n::f")),
		mainFn(b, b.Stmt(b.CallExpr(call))),
	)

	out := run(t, testOptions(), crate)

	assert.Empty(t, errorCodes(out))
	assert.Equal(t, localDef(DefFn, nf.ID), out.Defs[call.ID].BaseDef)
}

func TestResolve_ItemShadowsGlobRegardlessOfOrder(t *testing.T) {
	b := astbuild.New("main.rs")
	mf := b.Fn("f", b.Pub(), nil, b.Block())
	call := b.PathExpr("f")
	local := b.Fn("f", b.Priv(), nil, b.Block())
	crate := b.Crate("app", nil,
		b.Mod("m", b.Priv(), mf),
		b.Use(b.Priv(), b.UseGlob("m")),
		mainFn(b, b.Stmt(b.CallExpr(call))),
		local,
	)

	out := run(t, testOptions(), crate)

	assert.Empty(t, errorCodes(out))
	assert.Equal(t, localDef(DefFn, local.ID), out.Defs[call.ID].BaseDef)
}

func TestResolvePath_RecordUsedHasNoEffectOnResult(t *testing.T) {
	b := astbuild.New("main.rs")
	f := b.Fn("f", b.Pub(), nil, b.Block())
	crate := b.Crate("app", nil,
		b.Mod("m", b.Priv(), f),
		b.Use(b.Priv(), b.UseGlob("m")),
	)
	r := newResolver(&ast.Program{Local: crate}, testOptions())
	r.buildGraph()
	require.NoError(t, r.resolveImportsAndMacros(context.Background()))
	r.finalizeImports()
	// No ribs: the lookup starts in the current module.
	r.currentModule = r.graphRoot

	path := []ast.Ident{{Name: "f"}}
	quiet := r.resolvePath(path, nsPtr(ValueNS), false, ast.Span{}, false)
	loud := r.resolvePath(path, nsPtr(ValueNS), true, ast.Span{}, false)
	require.Equal(t, PathNonModule, quiet.Kind)
	assert.Equal(t, quiet, loud)
	assert.Equal(t, localDef(DefFn, f.ID), loud.Res.BaseDef)
}

func TestOutput_ErrorCount(t *testing.T) {
	out := &Output{Diagnostics: []diag.Diagnostic{
		{Severity: diag.SeverityError},
		{Severity: diag.SeverityWarning},
		{Severity: diag.SeverityError},
	}}
	assert.Equal(t, 2, out.ErrorCount())
}

func TestParseEdition(t *testing.T) {
	e, err := ParseEdition("2018")
	require.NoError(t, err)
	assert.Equal(t, Edition2018, e)

	e, err = ParseEdition("")
	require.NoError(t, err)
	assert.Equal(t, Edition2015, e)

	_, err = ParseEdition("2021")
	assert.Error(t, err)
}
