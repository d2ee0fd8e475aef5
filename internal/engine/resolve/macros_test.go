package resolve

import (
	"testing"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/ast/astbuild"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(out *Output) []string {
	var msgs []string
	for _, d := range out.Diagnostics {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func TestMacros_LegacyLocalsAreHygienic(t *testing.T) {
	b := astbuild.New("main.rs")
	def := b.MacroRules("def_x", b.Rule(nil, nil, b.Block(b.Let(b.PIdent("x"), b.Lit("1")))))
	stmt := b.MacroStmt(b.Call("def_x"))
	crate := b.Crate("app", nil, def, mainFn(b, stmt, b.Stmt(b.PathExpr("x"))))

	out := run(t, testOptions(), crate)

	found := errorsWithCode(out, "E0425")
	require.Len(t, found, 1)
	assert.Equal(t, "cannot find value `x` in this scope", found[0].Message)
	assert.Len(t, stmt.Expanded, 1)
	assert.Equal(t, 1, out.Stats.Expansions)
}

func TestMacros_IdentArgumentBindsAtCallSite(t *testing.T) {
	b := astbuild.New("main.rs")
	params := []ast.MacroParam{{Name: "v", Frag: ast.FragIdent}}
	def := b.MacroRules("def", b.Rule(params, nil, b.Block(b.Let(b.PIdent("$v"), b.Lit("1")))))
	use := b.PathExpr("x")
	crate := b.Crate("app", nil, def, mainFn(b, b.MacroStmt(b.Call("def", b.ArgIdent("x"))), b.Stmt(use)))

	out := run(t, testOptions(), crate)

	assert.Empty(t, errorCodes(out))
	assert.Equal(t, DefLocal, out.Defs[use.ID].BaseDef.Kind)
}

func TestMacros_BodyUsesCallSiteExpression(t *testing.T) {
	b := astbuild.New("main.rs")
	params := []ast.MacroParam{{Name: "e", Frag: ast.FragExpr}}
	def := b.MacroRules("twice", b.Rule(params, nil, b.Block(b.Tail(b.MacroVar("e")))))
	use := b.PathExpr("y")
	crate := b.Crate("app", nil, def, mainFn(b,
		b.Let(b.PIdent("y"), b.Lit("2")),
		b.Stmt(b.MacroExpr(b.Call("twice", b.ArgExpr(use)))),
	))

	out := run(t, testOptions(), crate)

	assert.Empty(t, errorCodes(out))
}

func TestMacros_ItemVisibility(t *testing.T) {
	t.Run("legacy items are visible", func(t *testing.T) {
		b := astbuild.New("main.rs")
		def := b.MacroRules("mk", b.Rule(nil, []*ast.Item{b.Fn("made", b.Priv(), nil, b.Block())}, nil))
		call := b.PathExpr("made")
		crate := b.Crate("app", nil, def, b.MacroItem(b.Call("mk")), mainFn(b, b.Stmt(b.CallExpr(call))))

		out := run(t, testOptions(), crate)

		assert.Empty(t, errorCodes(out))
		assert.Equal(t, DefFn, out.Defs[call.ID].BaseDef.Kind)
	})

	t.Run("modern items are hidden", func(t *testing.T) {
		b := astbuild.New("main.rs")
		def := b.MacroModern("mk", b.Priv(), b.Rule(nil, []*ast.Item{b.Fn("made", b.Priv(), nil, b.Block())}, nil))
		crate := b.Crate("app", nil, def, b.MacroItem(b.Call("mk")), mainFn(b, b.Stmt(b.CallExpr(b.PathExpr("made")))))

		out := run(t, testOptions(), crate)

		found := errorsWithCode(out, "E0425")
		require.Len(t, found, 1)
		assert.Equal(t, "cannot find function `made` in this scope", found[0].Message)
	})

	t.Run("modern macros resolve by path", func(t *testing.T) {
		b := astbuild.New("main.rs")
		def := b.MacroModern("mk", b.Pub(), b.Rule(nil, []*ast.Item{b.Fn("made", b.Priv(), nil, b.Block())}, nil))
		crate := b.Crate("app", nil,
			b.Mod("m", b.Pub(), def),
			b.MacroItem(b.Call("m::mk")),
		)

		out := run(t, testOptions(), crate)

		assert.Empty(t, out.Diagnostics)
		assert.Equal(t, 1, out.Stats.Expansions)
	})

	t.Run("modern macros resolve through self", func(t *testing.T) {
		b := astbuild.New("main.rs")
		def := b.MacroModern("mk", b.Pub(), b.Rule(nil, []*ast.Item{b.Fn("made", b.Priv(), nil, b.Block())}, nil))
		call := b.Call("self::m::mk")
		crate := b.Crate("app", nil,
			b.Mod("m", b.Pub(), def),
			b.MacroItem(call),
		)

		out := run(t, testOptions(), crate)

		assert.Empty(t, out.Diagnostics)
		assert.Equal(t, DefMacro, out.Defs[call.ID].BaseDef.Kind)
	})
}

func TestMacros_LegacyTextualScope(t *testing.T) {
	t.Run("redefinition applies to later calls only", func(t *testing.T) {
		b := astbuild.New("main.rs")
		first := b.MacroRules("pick", b.Rule(nil, []*ast.Item{b.Fn("first", b.Priv(), nil, b.Block())}, nil))
		firstCall := b.Call("pick")
		second := b.MacroRules("pick", b.Rule(nil, []*ast.Item{b.Fn("second", b.Priv(), nil, b.Block())}, nil))
		secondCall := b.Call("pick")
		useFirst := b.PathExpr("first")
		useSecond := b.PathExpr("second")
		crate := b.Crate("app", nil,
			first, b.MacroItem(firstCall),
			second, b.MacroItem(secondCall),
			mainFn(b, b.Stmt(b.CallExpr(useFirst)), b.Stmt(b.CallExpr(useSecond))),
		)

		out := run(t, testOptions(), crate)

		assert.Empty(t, errorCodes(out))
		assert.Equal(t, localDef(DefMacro, first.ID), out.Defs[firstCall.ID].BaseDef)
		assert.Equal(t, localDef(DefMacro, second.ID), out.Defs[secondCall.ID].BaseDef)
		assert.Equal(t, DefFn, out.Defs[useFirst.ID].BaseDef.Kind)
		assert.Equal(t, DefFn, out.Defs[useSecond.ID].BaseDef.Kind)
	})

	t.Run("function body before the definition", func(t *testing.T) {
		b := astbuild.New("main.rs")
		crate := b.Crate("app", nil,
			b.Fn("early", b.Priv(), nil, b.Block(b.MacroStmt(b.Call("noop")))),
			b.MacroRules("noop", b.Rule(nil, nil, b.Block())),
			mainFn(b, b.MacroStmt(b.Call("noop"))),
		)

		out := run(t, testOptions(), crate)

		assert.Equal(t, []string{"cannot find macro `noop!` in this scope"}, messages(out))
		assert.Equal(t, 1, out.Stats.Expansions)
	})

	t.Run("macro_use module exports to the rest of its parent", func(t *testing.T) {
		b := astbuild.New("main.rs")
		inner := astbuild.WithAttrs(
			b.Mod("inner", b.Priv(), b.MacroRules("helper", b.Rule(nil, []*ast.Item{b.Fn("made", b.Priv(), nil, b.Block())}, nil))),
			astbuild.Attr("macro_use"),
		)
		call := b.PathExpr("made")
		crate := b.Crate("app", nil, inner, b.MacroItem(b.Call("helper")), mainFn(b, b.Stmt(b.CallExpr(call))))

		out := run(t, testOptions(), crate)

		assert.Empty(t, errorCodes(out))
		assert.Equal(t, DefFn, out.Defs[call.ID].BaseDef.Kind)
	})

	t.Run("plain module keeps its macros", func(t *testing.T) {
		b := astbuild.New("main.rs")
		inner := b.Mod("inner", b.Priv(), b.MacroRules("helper", b.Rule(nil, nil, b.Block())))
		crate := b.Crate("app", nil, inner, mainFn(b, b.MacroStmt(b.Call("helper"))))

		out := run(t, testOptions(), crate)

		assert.Contains(t, messages(out), "cannot find macro `helper!` in this scope")
	})
}

func TestMacros_Unresolved(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *astbuild.Builder) *ast.Crate
		want  string
	}{
		{
			name: "unknown",
			build: func(b *astbuild.Builder) *ast.Crate {
				return b.Crate("app", nil, mainFn(b, b.MacroStmt(b.Call("nope"))))
			},
			want: "cannot find macro `nope!` in this scope",
		},
		{
			name: "used before its definition",
			build: func(b *astbuild.Builder) *ast.Crate {
				return b.Crate("app", nil,
					mainFn(b, b.MacroStmt(b.Call("later"))),
					b.MacroRules("later", b.Rule(nil, nil, b.Block())),
				)
			},
			want: "cannot find macro `later!` in this scope",
		},
		{
			name: "not a macro",
			build: func(b *astbuild.Builder) *ast.Crate {
				return b.Crate("app", nil,
					b.Mod("m", b.Pub(), b.Fn("f", b.Pub(), nil, b.Block())),
					b.Use(b.Priv(), b.UseSimple("m::f")),
					mainFn(b, b.MacroStmt(b.Call("f"))),
				)
			},
			want: "cannot find macro `f!` in this scope",
		},
		{
			name: "wrong argument count",
			build: func(b *astbuild.Builder) *ast.Crate {
				params := []ast.MacroParam{{Name: "v", Frag: ast.FragIdent}}
				return b.Crate("app", nil,
					b.MacroRules("one", b.Rule(params, nil, b.Block())),
					mainFn(b, b.MacroStmt(b.Call("one"))),
				)
			},
			want: "this macro takes 1 argument but 0 were supplied",
		},
		{
			name: "recursion",
			build: func(b *astbuild.Builder) *ast.Crate {
				body := []*ast.Item{b.MacroItem(b.Call("rec"))}
				return b.Crate("app", nil,
					b.MacroRules("rec", b.Rule(nil, body, nil)),
					b.MacroItem(b.Call("rec")),
				)
			},
			want: "recursion limit reached while expanding the macro `rec`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, testOptions(), tt.build(astbuild.New("main.rs")))
			assert.Contains(t, messages(out), tt.want)
		})
	}
}

func TestMacros_InvocationRecordsDefinition(t *testing.T) {
	b := astbuild.New("main.rs")
	def := b.MacroRules("noop", b.Rule(nil, nil, b.Block()))
	call := b.Call("noop")
	crate := b.Crate("app", nil, def, mainFn(b, b.MacroStmt(call)))

	out := run(t, testOptions(), crate)

	require.Empty(t, out.Diagnostics)
	assert.Equal(t, DefMacro, out.Defs[call.ID].BaseDef.Kind)
}
