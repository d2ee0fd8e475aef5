package resolve

import (
	"strings"
	"testing"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/ast/astbuild"
	"nameres/internal/engine/diag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// depCrate is an extern crate `dep` exposing `dep::util::helper`.
func depCrate() (*ast.Crate, *ast.Item) {
	b := astbuild.New("dep/lib.rs")
	helper := b.Fn("helper", b.Pub(), nil, b.Block())
	hidden := b.Fn("hidden", b.Priv(), nil, b.Block())
	c := b.Crate("dep", nil, b.Mod("util", b.Pub(), helper, hidden))
	return c, helper
}

// stdCrate is a minimal standard library with a prelude.
func stdCrate() (*ast.Crate, *ast.Item) {
	b := astbuild.New("std/lib.rs")
	vec := b.Struct("Vec", b.Pub())
	c := b.Crate("std", nil,
		b.Mod("prelude", b.Pub(), b.Mod("v1", b.Pub(), vec)),
	)
	return c, vec
}

func TestImports_Unresolved(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil,
		b.Mod("m", b.Priv(), b.Fn("present", b.Pub(), nil, b.Block())),
		b.Use(b.Priv(), b.UseSimple("m::missing")),
	)

	out := run(t, testOptions(), crate)

	found := errorsWithCode(out, "E0432")
	require.Len(t, found, 1)
	assert.Equal(t, "unresolved import `m::missing`", found[0].Message)
	assert.Equal(t, diag.KindUnresolvedImport, found[0].Kind)
	require.Len(t, found[0].Labels, 1)
	assert.Equal(t, "no `missing` in `m`", found[0].Labels[0].Message)
}

func TestImports_UnresolvedSuggestsCloseName(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil,
		b.Mod("m", b.Priv(), b.Fn("present", b.Pub(), nil, b.Block())),
		b.Use(b.Priv(), b.UseSimple("m::presnt")),
	)

	out := run(t, testOptions(), crate)

	found := errorsWithCode(out, "E0432")
	require.Len(t, found, 1)
	assert.Equal(t, "no `presnt` in `m`. Did you mean to use `present`?", found[0].Labels[0].Message)
}

func TestImports_GroupedErrors(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil,
		b.Mod("m", b.Priv()),
		b.Use(b.Priv(), b.UseNested("m", b.UseSimple("a"), b.UseSimple("b"))),
	)

	out := run(t, testOptions(), crate)

	found := errorsWithCode(out, "E0432")
	require.Len(t, found, 1)
	assert.Equal(t, "unresolved imports `m::a`, `m::b`", found[0].Message)
	assert.Len(t, found[0].Labels, 2)
}

func TestImports_FailedModulePath(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil, b.Use(b.Priv(), b.UseSimple("nowhere::f")))

	out := run(t, testOptions(), crate)

	found := errorsWithCode(out, "E0432")
	require.Len(t, found, 1)
	assert.Equal(t, []string{"E0432"}, errorCodes(out))
	assert.Contains(t, found[0].Labels[0].Message, "nowhere")
}

func TestImports_GlobOfSelf(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil, b.Use(b.Priv(), b.UseGlob("self")))

	out := run(t, testOptions(), crate)

	found := errorsWithCode(out, "E0432")
	require.Len(t, found, 1)
	assert.Equal(t, "Cannot glob-import a module into itself.", found[0].Labels[0].Message)
}

func TestImports_CycleTerminates(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil,
		b.Mod("a", b.Pub(), b.Use(b.Pub(), b.UseSimple("b::x"))),
		b.Mod("b", b.Pub(), b.Use(b.Pub(), b.UseSimple("a::x"))),
	)

	out := run(t, testOptions(), crate)

	assert.NotEmpty(t, errorsWithCode(out, "E0432"))
	assert.Zero(t, out.Stats.Indeterminate)
}

func moduleNamed(t *testing.T, r *Resolver, name string) ModuleID {
	t.Helper()
	for _, m := range r.modules[1:] {
		if m.Name == name && m.Crate == LocalCrate {
			return m.ID
		}
	}
	t.Fatalf("no module %q", name)
	return noModule
}

func TestImportCycleNotes(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil,
		b.Mod("a", b.Pub(), b.Use(b.Pub(), b.UseSimple("b::x"))),
		b.Mod("b", b.Pub(), b.Use(b.Pub(), b.UseSimple("a::x"))),
		b.Mod("c", b.Pub(), b.Use(b.Pub(), b.UseSimple("a::y"))),
	)
	r := newResolver(&ast.Program{Local: crate}, testOptions())
	r.buildGraph()
	stuck := append([]DirectiveID(nil), r.indeterminate...)
	require.Len(t, stuck, 3)
	// Module paths are known; each name still waits on the other module.
	for _, did := range stuck {
		d := r.directives[did]
		d.importedModule = inModule(moduleNamed(t, r, d.ModulePath[len(d.ModulePath)-1].Name))
		d.importedSet = true
	}

	notes := r.importCycleNotes(stuck)

	require.Len(t, notes[stuck[0]], 1)
	assert.Equal(t, notes[stuck[0]], notes[stuck[1]])
	assert.Contains(t, notes[stuck[0]][0], "import cycle: `a::x`")
	assert.Contains(t, notes[stuck[0]][0], " -> `b::x`")
	assert.Empty(t, notes[stuck[2]])

	r.finalizeImports()
	var cycleNotes int
	for _, d := range r.diags.Finalize() {
		if d.Code != "E0432" {
			continue
		}
		for _, n := range d.Notes {
			if strings.HasPrefix(n, "import cycle: ") {
				cycleNotes++
			}
		}
	}
	assert.Equal(t, 2, cycleNotes)
}

func TestImports_GlobUpgradeReachesImporters(t *testing.T) {
	b := astbuild.New("main.rs")
	af := b.Fn("f", b.Pub(), nil, b.Block())
	mk := b.MacroRules("mk", b.Rule(nil, []*ast.Item{b.Fn("f", b.Pub(), nil, b.Block())}, nil))
	call := b.PathExpr("f")
	crate := b.Crate("app", nil,
		mk,
		b.Mod("a", b.Pub(), af),
		b.Mod("m", b.Pub(), b.Use(b.Pub(), b.UseGlob("a")), b.MacroItem(b.Call("mk"))),
		b.Use(b.Priv(), b.UseGlob("m")),
		mainFn(b, b.Stmt(b.CallExpr(call))),
	)

	out := run(t, testOptions(), crate)

	got := out.Defs[call.ID].BaseDef
	assert.Equal(t, DefFn, got.Kind)
	assert.NotEqual(t, af.ID, got.ID.Node, "root still sees the glob binding m replaced")
	assert.Equal(t, 1, out.Stats.Expansions)
}

func TestImports_Privacy(t *testing.T) {
	t.Run("private function through a path", func(t *testing.T) {
		b := astbuild.New("main.rs")
		crate := b.Crate("app", nil,
			b.Mod("m", b.Priv(), b.Fn("f", b.Priv(), nil, b.Block())),
			mainFn(b, b.Stmt(b.CallExpr(b.PathExpr("m::f")))),
		)
		out := run(t, testOptions(), crate)

		found := errorsWithCode(out, "E0603")
		require.Len(t, found, 1)
		assert.Equal(t, "function `f` is private", found[0].Message)
		assert.Equal(t, diag.KindPrivacy, found[0].Kind)
	})

	t.Run("private function through an import", func(t *testing.T) {
		b := astbuild.New("main.rs")
		crate := b.Crate("app", nil,
			b.Mod("m", b.Priv(), b.Fn("f", b.Priv(), nil, b.Block())),
			b.Use(b.Priv(), b.UseSimple("m::f")),
		)
		out := run(t, testOptions(), crate)

		assert.Len(t, errorsWithCode(out, "E0603"), 1)
		assert.Empty(t, errorsWithCode(out, "E0432"))
	})

	t.Run("reexport of a crate-visible function", func(t *testing.T) {
		b := astbuild.New("main.rs")
		crate := b.Crate("app", nil,
			b.Mod("m", b.Priv(), b.Fn("f", b.PubCrate(), nil, b.Block())),
			b.Use(b.Pub(), b.UseSimple("m::f")),
		)
		out := run(t, testOptions(), crate)

		found := errorsWithCode(out, "E0364")
		require.Len(t, found, 1)
		assert.Equal(t, "`f` is private, and cannot be reexported", found[0].Message)
	})

	t.Run("restricted to a non-ancestor", func(t *testing.T) {
		b := astbuild.New("main.rs")
		crate := b.Crate("app", nil,
			b.Mod("a", b.Pub()),
			b.Mod("b", b.Pub(), b.Fn("f", b.PubIn("a"), nil, b.Block())),
		)
		out := run(t, testOptions(), crate)

		assert.Equal(t, []string{"E0742"}, errorCodes(out))
	})

	t.Run("restricted to an ancestor", func(t *testing.T) {
		b := astbuild.New("main.rs")
		f := b.Fn("f", b.PubIn("super"), nil, b.Block())
		call := b.PathExpr("inner::f")
		crate := b.Crate("app", nil,
			b.Mod("outer", b.Pub(),
				b.Mod("inner", b.Pub(), f),
				b.Fn("g", b.Pub(), nil, b.Block(b.Stmt(b.CallExpr(call)))),
			),
		)
		out := run(t, testOptions(), crate)

		// 2015 paths in expressions are relative to the current module.
		assert.Empty(t, errorCodes(out))
		assert.Equal(t, localDef(DefFn, f.ID), out.Defs[call.ID].BaseDef)
	})
}

func TestImports_UnusedLint(t *testing.T) {
	build := func() (*ast.Crate, *ast.Item) {
		b := astbuild.New("main.rs")
		use := b.Use(b.Priv(), b.UseNested("m", b.UseSimple("f"), b.UseSimple("g")))
		return b.Crate("app", nil,
			b.Mod("m", b.Priv(), b.Fn("f", b.Pub(), nil, b.Block()), b.Fn("g", b.Pub(), nil, b.Block())),
			use,
			mainFn(b, b.Stmt(b.CallExpr(b.PathExpr("f")))),
		), use
	}

	t.Run("partially used", func(t *testing.T) {
		crate, _ := build()
		out := run(t, testOptions(), crate)

		found := lints(out, diag.LintUnusedImports)
		require.Len(t, found, 1)
		assert.Equal(t, "unused import: `m::g`", found[0].Message)
		assert.Equal(t, diag.SeverityWarning, found[0].Severity)
		require.Len(t, found[0].Suggestions, 1)
		assert.Equal(t, "remove the unused import", found[0].Suggestions[0].Message)
	})

	t.Run("denied", func(t *testing.T) {
		crate, _ := build()
		opts := testOptions()
		opts.Lints = diag.DefaultLevels()
		opts.Lints[diag.LintUnusedImports] = diag.Deny
		out := run(t, opts, crate)

		found := lints(out, diag.LintUnusedImports)
		require.Len(t, found, 1)
		assert.Equal(t, diag.SeverityError, found[0].Severity)
	})

	t.Run("allowed", func(t *testing.T) {
		crate, _ := build()
		opts := testOptions()
		opts.Lints = diag.DefaultLevels()
		opts.Lints[diag.LintUnusedImports] = diag.Allow
		out := run(t, opts, crate)

		assert.Empty(t, lints(out, diag.LintUnusedImports))
	})

	t.Run("whole item unused", func(t *testing.T) {
		b := astbuild.New("main.rs")
		use := b.Use(b.Priv(), b.UseSimple("m::f"))
		crate := b.Crate("app", nil, b.Mod("m", b.Priv(), b.Fn("f", b.Pub(), nil, b.Block())), use)
		out := run(t, testOptions(), crate)

		found := lints(out, diag.LintUnusedImports)
		require.Len(t, found, 1)
		assert.Equal(t, "unused import: `m::f`", found[0].Message)
		require.Len(t, found[0].Suggestions, 1)
		assert.Equal(t, "remove the whole `use` item", found[0].Suggestions[0].Message)
		assert.Equal(t, use.Span, found[0].Suggestions[0].Span)
	})

	t.Run("public reexports are exempt", func(t *testing.T) {
		b := astbuild.New("main.rs")
		crate := b.Crate("app", nil,
			b.Mod("m", b.Pub(), b.Fn("f", b.Pub(), nil, b.Block())),
			b.Use(b.Pub(), b.UseSimple("m::f")),
		)
		out := run(t, testOptions(), crate)
		assert.Empty(t, out.Diagnostics)
	})
}

func TestImports_UnnecessaryQualification(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil,
		b.Mod("m", b.Priv(), b.Fn("f", b.Pub(), nil, b.Block())),
		b.Use(b.Priv(), b.UseSimple("m::f")),
		mainFn(b, b.Stmt(b.CallExpr(b.PathExpr("m::f")))),
	)
	opts := testOptions()
	opts.Lints = diag.DefaultLevels()
	opts.Lints[diag.LintUnusedQualifications] = diag.Warn

	out := run(t, opts, crate)

	found := lints(out, diag.LintUnusedQualifications)
	require.Len(t, found, 1)
	assert.Equal(t, "unnecessary qualification", found[0].Message)
}

func TestImports_ExternCrate2015(t *testing.T) {
	dep, helper := depCrate()
	b := astbuild.New("main.rs")
	call := b.PathExpr("helper")
	crate := b.Crate("app", nil,
		b.ExternCrate("dep", ""),
		b.Use(b.Priv(), b.UseSimple("dep::util::helper")),
		mainFn(b, b.Stmt(b.CallExpr(call))),
	)

	out := run(t, testOptions(), crate, dep)

	assert.Empty(t, errorCodes(out))
	assert.Equal(t, Def{Kind: DefFn, ID: DefID{Crate: 1, Node: helper.ID}}, out.Defs[call.ID].BaseDef)
}

func TestImports_ExternCrateRenamed(t *testing.T) {
	dep, helper := depCrate()
	b := astbuild.New("main.rs")
	call := b.PathExpr("d::util::helper")
	crate := b.Crate("app", nil,
		b.ExternCrate("d", "dep"),
		mainFn(b, b.Stmt(b.CallExpr(call))),
	)

	out := run(t, testOptions(), crate, dep)

	assert.Empty(t, errorCodes(out))
	assert.Equal(t, Def{Kind: DefFn, ID: DefID{Crate: 1, Node: helper.ID}}, out.Defs[call.ID].BaseDef)
}

func TestImports_ExternPrivateItem(t *testing.T) {
	dep, _ := depCrate()
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil,
		b.ExternCrate("dep", ""),
		mainFn(b, b.Stmt(b.CallExpr(b.PathExpr("dep::util::hidden")))),
	)

	out := run(t, testOptions(), crate, dep)

	assert.Len(t, errorsWithCode(out, "E0603"), 1)
}

func TestImports_MissingCrate(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil, b.ExternCrate("nope", ""))

	out := run(t, testOptions(), crate)

	found := errorsWithCode(out, "E0463")
	require.Len(t, found, 1)
	assert.Equal(t, "can't find crate for `nope`", found[0].Message)
}

func TestImports_Editions(t *testing.T) {
	t.Run("2015 needs extern crate", func(t *testing.T) {
		dep, _ := depCrate()
		b := astbuild.New("main.rs")
		crate := b.Crate("app", nil, b.Use(b.Priv(), b.UseSimple("dep::util::helper")))
		out := run(t, testOptions(), crate, dep)
		assert.Equal(t, []string{"E0433"}, errorCodes(out))
	})

	t.Run("2018 import from extern prelude", func(t *testing.T) {
		dep, helper := depCrate()
		b := astbuild.New("main.rs")
		tree := b.UseSimple("dep::util::helper")
		call := b.PathExpr("helper")
		crate := b.Crate("app", nil, b.Use(b.Priv(), tree), mainFn(b, b.Stmt(b.CallExpr(call))))
		opts := testOptions()
		opts.Edition = Edition2018
		out := run(t, opts, crate, dep)

		assert.Empty(t, errorCodes(out))
		want := Def{Kind: DefFn, ID: DefID{Crate: 1, Node: helper.ID}}
		assert.Equal(t, want, out.Imports[tree.ID].Get(ValueNS))
		assert.Equal(t, want, out.Defs[call.ID].BaseDef)
	})

	t.Run("2018 global path names a crate", func(t *testing.T) {
		dep, helper := depCrate()
		b := astbuild.New("main.rs")
		call := b.PathExpr("::dep::util::helper")
		crate := b.Crate("app", nil, mainFn(b, b.Stmt(b.CallExpr(call))))
		opts := testOptions()
		opts.Edition = Edition2018
		out := run(t, opts, crate, dep)

		assert.Empty(t, errorCodes(out))
		assert.Equal(t, Def{Kind: DefFn, ID: DefID{Crate: 1, Node: helper.ID}}, out.Defs[call.ID].BaseDef)
	})

	t.Run("crate keyword", func(t *testing.T) {
		b := astbuild.New("main.rs")
		f := b.Fn("f", b.Pub(), nil, b.Block())
		tree := b.UseSimple("crate::m::f")
		crate := b.Crate("app", nil,
			b.Mod("m", b.Pub(), f),
			b.Mod("n", b.Pub(), b.Use(b.Pub(), tree)),
		)
		for _, ed := range []Edition{Edition2015, Edition2018} {
			opts := testOptions()
			opts.Edition = ed
			out := run(t, opts, crate)
			assert.Empty(t, errorCodes(out), "edition %s", ed)
			assert.Equal(t, localDef(DefFn, f.ID), out.Imports[tree.ID].Get(ValueNS), "edition %s", ed)
		}
	})
}

func TestImports_Prelude(t *testing.T) {
	t.Run("names come from the prelude", func(t *testing.T) {
		std, vec := stdCrate()
		b := astbuild.New("main.rs")
		ty := b.TPath("Vec")
		crate := b.Crate("app", nil, b.Fn("f", b.Priv(), []*ast.Param{b.Param(b.PIdent("v"), ty)}, b.Block()))
		out := run(t, DefaultOptions(), crate, std)

		assert.Empty(t, errorCodes(out))
		assert.Equal(t, Def{Kind: DefStruct, ID: DefID{Crate: 1, Node: vec.ID}}, out.Defs[ty.ID].BaseDef)
	})

	t.Run("local items shadow the prelude", func(t *testing.T) {
		std, _ := stdCrate()
		b := astbuild.New("main.rs")
		local := b.Struct("Vec", b.Priv())
		ty := b.TPath("Vec")
		crate := b.Crate("app", nil, local, b.Fn("f", b.Priv(), []*ast.Param{b.Param(b.PIdent("v"), ty)}, b.Block()))
		out := run(t, DefaultOptions(), crate, std)

		assert.Empty(t, errorCodes(out))
		assert.Equal(t, localDef(DefStruct, local.ID), out.Defs[ty.ID].BaseDef)
	})

	t.Run("no_implicit_prelude", func(t *testing.T) {
		std, _ := stdCrate()
		b := astbuild.New("main.rs")
		crate := b.Crate("app", ast.Attrs{astbuild.InnerAttr("no_implicit_prelude")},
			b.Fn("f", b.Priv(), []*ast.Param{b.Param(b.PIdent("v"), b.TPath("Vec"))}, b.Block()))
		out := run(t, DefaultOptions(), crate, std)

		assert.Equal(t, []string{"E0412"}, errorCodes(out))
	})
}
