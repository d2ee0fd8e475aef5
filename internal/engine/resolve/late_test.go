package resolve

import (
	"testing"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/ast/astbuild"
	"nameres/internal/engine/diag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLate_LocalShadowing(t *testing.T) {
	b := astbuild.New("main.rs")
	first, second := b.PIdent("x"), b.PIdent("x")
	useFirst, useSecond := b.PathExpr("x"), b.PathExpr("x")
	crate := b.Crate("app", nil, mainFn(b,
		b.Let(first, b.Lit("1")),
		b.Let(second, useFirst),
		b.Stmt(useSecond),
	))

	out := run(t, testOptions(), crate)

	require.Empty(t, out.Diagnostics)
	assert.Equal(t, Def{Kind: DefLocal, Local: first.ID}, out.Defs[useFirst.ID].BaseDef)
	assert.Equal(t, Def{Kind: DefLocal, Local: second.ID}, out.Defs[useSecond.ID].BaseDef)
}

func TestLate_UnresolvedNames(t *testing.T) {
	tests := []struct {
		name    string
		build   func(b *astbuild.Builder) []*ast.Item
		code    string
		message string
	}{
		{
			name: "value",
			build: func(b *astbuild.Builder) []*ast.Item {
				return []*ast.Item{mainFn(b, b.Stmt(b.PathExpr("y")))}
			},
			code:    "E0425",
			message: "cannot find value `y` in this scope",
		},
		{
			name: "function",
			build: func(b *astbuild.Builder) []*ast.Item {
				return []*ast.Item{mainFn(b, b.Stmt(b.CallExpr(b.PathExpr("run"))))}
			},
			code:    "E0425",
			message: "cannot find function `run` in this scope",
		},
		{
			name: "type",
			build: func(b *astbuild.Builder) []*ast.Item {
				return []*ast.Item{b.Fn("f", b.Priv(), []*ast.Param{b.Param(b.PIdent("x"), b.TPath("Foo"))}, b.Block())}
			},
			code:    "E0412",
			message: "cannot find type `Foo` in this scope",
		},
		{
			name: "value in module",
			build: func(b *astbuild.Builder) []*ast.Item {
				return []*ast.Item{
					b.Mod("m", b.Priv()),
					mainFn(b, b.Stmt(b.PathExpr("m::y"))),
				}
			},
			code:    "E0425",
			message: "cannot find value `y` in module `m`",
		},
		{
			name: "struct used as value",
			build: func(b *astbuild.Builder) []*ast.Item {
				return []*ast.Item{
					b.Struct("S", b.Priv(), b.Field("a", b.Priv(), b.TPath("i32"))),
					mainFn(b, b.Stmt(b.PathExpr("S"))),
				}
			},
			code:    "E0423",
			message: "expected value, found struct `S`",
		},
		{
			name: "value used as type",
			build: func(b *astbuild.Builder) []*ast.Item {
				return []*ast.Item{
					b.Mod("m", b.Priv()),
					b.Fn("f", b.Priv(), []*ast.Param{b.Param(b.PIdent("x"), b.TPath("m"))}, b.Block()),
				}
			},
			code:    "E0573",
			message: "expected type, found module `m`",
		},
		{
			name: "missing module",
			build: func(b *astbuild.Builder) []*ast.Item {
				return []*ast.Item{mainFn(b, b.Stmt(b.CallExpr(b.PathExpr("missing::f"))))}
			},
			code:    "E0433",
			message: "failed to resolve. Use of undeclared type or module `missing`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := astbuild.New("main.rs")
			crate := b.Crate("app", nil, tt.build(b)...)
			out := run(t, testOptions(), crate)

			found := errorsWithCode(out, tt.code)
			require.Len(t, found, 1, "diagnostics: %v", out.Diagnostics)
			assert.Equal(t, tt.message, found[0].Message)
		})
	}
}

func TestLate_ImportSuggestion(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil,
		b.Mod("shapes", b.Pub(), b.Struct("Circle", b.Pub())),
		b.Fn("f", b.Priv(), []*ast.Param{b.Param(b.PIdent("c"), b.TPath("Circle"))}, b.Block()),
	)

	out := run(t, testOptions(), crate)

	found := errorsWithCode(out, "E0412")
	require.Len(t, found, 1)
	require.NotEmpty(t, found[0].Suggestions)
	assert.Equal(t, "use shapes::Circle;\n\n", found[0].Suggestions[0].Replacement)
	assert.Equal(t, diag.MachineApplicable, found[0].Suggestions[0].Applicability)
}

func TestLate_TypoSuggestion(t *testing.T) {
	b := astbuild.New("main.rs")
	crate := b.Crate("app", nil, mainFn(b,
		b.Let(b.PIdent("counter"), b.Lit("0")),
		b.Stmt(b.PathExpr("countr")),
	))

	out := run(t, testOptions(), crate)

	found := errorsWithCode(out, "E0425")
	require.Len(t, found, 1)
	var labels []string
	for _, l := range found[0].Labels {
		labels = append(labels, l.Message)
	}
	assert.Contains(t, labels, "did you mean `counter`?")
}

func TestLate_IllegalLocalUse(t *testing.T) {
	t.Run("fn item capturing a local", func(t *testing.T) {
		b := astbuild.New("main.rs")
		inner := b.Fn("inner", b.Priv(), nil, b.Block(b.Stmt(b.PathExpr("x"))))
		crate := b.Crate("app", nil, mainFn(b,
			b.Let(b.PIdent("x"), b.Lit("1")),
			b.ItemStmt(inner),
		))
		out := run(t, testOptions(), crate)
		assert.Equal(t, []string{"E0434"}, errorCodes(out))
	})

	t.Run("local in a constant", func(t *testing.T) {
		b := astbuild.New("main.rs")
		arr := &ast.ArrayTy{Meta: ast.Meta{ID: b.ID(), Span: b.Span()}, Elem: b.TPath("i32"), Len: b.PathExpr("n")}
		let := b.Let(b.PIdent("a"), nil)
		let.Ty = arr
		crate := b.Crate("app", nil, mainFn(b,
			b.Let(b.PIdent("n"), b.Lit("3")),
			let,
		))
		out := run(t, testOptions(), crate)
		assert.Equal(t, []string{"E0435"}, errorCodes(out))
	})

	t.Run("outer type parameter", func(t *testing.T) {
		b := astbuild.New("main.rs")
		inner := b.Fn("inner", b.Priv(), []*ast.Param{b.Param(b.PIdent("v"), b.TPath("T"))}, b.Block())
		outer := b.FnG("outer", b.Priv(), b.Generics(b.TyParam("T", nil)), nil, b.Block(b.ItemStmt(inner)))
		out := run(t, testOptions(), b.Crate("app", nil, outer))
		assert.Equal(t, []string{"E0401"}, errorCodes(out))
	})

	t.Run("forward declared default", func(t *testing.T) {
		b := astbuild.New("main.rs")
		s := b.UnitStruct("S", b.Priv())
		s.Kind.(*ast.StructItem).Generics = b.Generics(b.TyParam("T", b.TPath("U")), b.TyParam("U", b.TPath("i32")))
		out := run(t, testOptions(), b.Crate("app", nil, s))
		assert.Equal(t, []string{"E0128"}, errorCodes(out))
	})

	t.Run("duplicate type parameter", func(t *testing.T) {
		b := astbuild.New("main.rs")
		f := b.FnG("f", b.Priv(), b.Generics(b.TyParam("T", nil), b.TyParam("T", nil)), nil, b.Block())
		out := run(t, testOptions(), b.Crate("app", nil, f))
		assert.Equal(t, []string{"E0403"}, errorCodes(out))
	})
}

func TestLate_TypeParameterInScope(t *testing.T) {
	b := astbuild.New("main.rs")
	tp := b.TyParam("T", nil)
	ty := b.TPath("T")
	f := b.FnG("f", b.Priv(), b.Generics(tp), []*ast.Param{b.Param(b.PIdent("v"), ty)}, b.Block())

	out := run(t, testOptions(), b.Crate("app", nil, f))

	require.Empty(t, errorCodes(out))
	assert.Equal(t, DefTyParam, out.Defs[ty.ID].BaseDef.Kind)
}

func TestLate_Labels(t *testing.T) {
	t.Run("declared", func(t *testing.T) {
		b := astbuild.New("main.rs")
		brk := b.Break("outer")
		loop := b.Loop("outer", b.Block(b.Stmt(b.Loop("", b.Block(b.Stmt(brk))))))
		out := run(t, testOptions(), b.Crate("app", nil, mainFn(b, b.Stmt(loop))))
		require.Empty(t, errorCodes(out))
		assert.Equal(t, Def{Kind: DefLabel, Local: loop.ID}, out.Defs[brk.ID].BaseDef)
	})

	t.Run("undeclared", func(t *testing.T) {
		b := astbuild.New("main.rs")
		loop := b.Loop("", b.Block(b.Stmt(b.Break("missing"))))
		out := run(t, testOptions(), b.Crate("app", nil, mainFn(b, b.Stmt(loop))))
		found := errorsWithCode(out, "E0426")
		require.Len(t, found, 1)
		assert.Equal(t, "use of undeclared label `missing`", found[0].Message)
	})

	t.Run("not visible inside closure", func(t *testing.T) {
		b := astbuild.New("main.rs")
		clo := b.Closure(nil, b.BlockExpr(b.Block(b.Stmt(b.Break("outer")))))
		loop := b.Loop("outer", b.Block(b.Stmt(clo)))
		out := run(t, testOptions(), b.Crate("app", nil, mainFn(b, b.Stmt(loop))))
		assert.Equal(t, []string{"E0426"}, errorCodes(out))
	})
}

func TestLate_PatternBindings(t *testing.T) {
	t.Run("bound twice in one pattern", func(t *testing.T) {
		b := astbuild.New("main.rs")
		crate := b.Crate("app", nil, mainFn(b,
			b.Let(b.PTuple(b.PIdent("a"), b.PIdent("a")), b.Lit("0")),
		))
		out := run(t, testOptions(), crate)
		assert.Equal(t, []string{"E0416"}, errorCodes(out))
	})

	t.Run("parameter bound twice", func(t *testing.T) {
		b := astbuild.New("main.rs")
		f := b.Fn("f", b.Priv(), []*ast.Param{
			b.Param(b.PIdent("a"), b.TPath("i32")),
			b.Param(b.PIdent("a"), b.TPath("i32")),
		}, b.Block())
		out := run(t, testOptions(), b.Crate("app", nil, f))
		assert.Equal(t, []string{"E0415"}, errorCodes(out))
	})

	t.Run("alternatives bind different names", func(t *testing.T) {
		b := astbuild.New("main.rs")
		e := b.Enum("E", b.Priv(),
			b.Variant("A", ast.DataTuple, b.Field("", b.Priv(), b.TPath("i32"))),
			b.Variant("B", ast.DataTuple, b.Field("", b.Priv(), b.TPath("i32"))),
		)
		arm := b.Arm(b.POr(b.PTupleStruct("E::A", b.PIdent("x")), b.PTupleStruct("E::B", b.PIdent("y"))), b.Lit("()"))
		f := b.Fn("f", b.Priv(), []*ast.Param{b.Param(b.PIdent("e"), b.TPath("E"))},
			b.Block(b.Stmt(b.Match(b.PathExpr("e"), arm))))
		out := run(t, testOptions(), b.Crate("app", nil, e, f))

		found := errorsWithCode(out, "E0408")
		require.Len(t, found, 2)
		assert.Equal(t, "variable `x` is not bound in all patterns", found[0].Message)
		assert.Equal(t, "variable `y` is not bound in all patterns", found[1].Message)
	})

	t.Run("alternatives share a binding", func(t *testing.T) {
		b := astbuild.New("main.rs")
		e := b.Enum("E", b.Priv(),
			b.Variant("A", ast.DataTuple, b.Field("", b.Priv(), b.TPath("i32"))),
			b.Variant("B", ast.DataTuple, b.Field("", b.Priv(), b.TPath("i32"))),
		)
		xa, xb := b.PIdent("x"), b.PIdent("x")
		use := b.PathExpr("x")
		arm := b.Arm(b.POr(b.PTupleStruct("E::A", xa), b.PTupleStruct("E::B", xb)), use)
		f := b.Fn("f", b.Priv(), []*ast.Param{b.Param(b.PIdent("e"), b.TPath("E"))},
			b.Block(b.Stmt(b.Match(b.PathExpr("e"), arm))))
		out := run(t, testOptions(), b.Crate("app", nil, e, f))

		require.Empty(t, errorCodes(out))
		assert.Equal(t, Def{Kind: DefLocal, Local: xa.ID}, out.Defs[use.ID].BaseDef)
		assert.Equal(t, out.Defs[xa.ID], out.Defs[xb.ID])
	})

	t.Run("unit struct pattern", func(t *testing.T) {
		b := astbuild.New("main.rs")
		u := b.UnitStruct("U", b.Priv())
		pat := b.PIdent("U")
		crate := b.Crate("app", nil, u, mainFn(b, b.Let(pat, b.PathExpr("U"))))
		out := run(t, testOptions(), crate)

		require.Empty(t, errorCodes(out))
		assert.Equal(t, DefStructCtor, out.Defs[pat.ID].BaseDef.Kind)
	})

	t.Run("binding shadows a static", func(t *testing.T) {
		b := astbuild.New("main.rs")
		st := b.Static("S", b.Priv(), b.TPath("i32"), b.Lit("0"))
		crate := b.Crate("app", nil, st, mainFn(b, b.Let(b.PIdent("S"), b.Lit("1"))))
		out := run(t, testOptions(), crate)

		found := errorsWithCode(out, "E0530")
		require.Len(t, found, 1)
		assert.Equal(t, "let bindings cannot shadow statics", found[0].Message)
	})
}

func TestLate_SelfKeywords(t *testing.T) {
	t.Run("Self outside impl", func(t *testing.T) {
		b := astbuild.New("main.rs")
		f := b.Fn("f", b.Priv(), nil, b.Block())
		f.Kind.(*ast.FnItem).Decl.Output = b.TPath("Self")
		out := run(t, testOptions(), b.Crate("app", nil, f))
		assert.Equal(t, []string{"E0411"}, errorCodes(out))
	})

	t.Run("self outside method", func(t *testing.T) {
		b := astbuild.New("main.rs")
		out := run(t, testOptions(), b.Crate("app", nil, mainFn(b, b.Stmt(b.PathExpr("self")))))
		assert.Equal(t, []string{"E0424"}, errorCodes(out))
	})

	t.Run("Self and self in impl", func(t *testing.T) {
		b := astbuild.New("main.rs")
		selfTy := b.TPath("Self")
		selfVal := b.PathExpr("self")
		getter := b.Method("get", b.Pub(), true, b.Block(b.Tail(selfVal)))
		build := b.Method("build", b.Pub(), false, b.Block())
		build.Kind.(*ast.AssocFn).Decl.Output = selfTy
		s := b.UnitStruct("S", b.Priv())
		impl := b.Impl("", b.TPath("S"), getter, build)
		out := run(t, testOptions(), b.Crate("app", nil, s, impl))

		require.Empty(t, errorCodes(out))
		assert.Equal(t, Def{Kind: DefSelfTy, Impl: impl.ID}, out.Defs[selfTy.ID].BaseDef)
		selfPat := getter.Kind.(*ast.AssocFn).Decl.Inputs[0].Pat
		assert.Equal(t, Def{Kind: DefLocal, Local: selfPat.Node().ID}, out.Defs[selfVal.ID].BaseDef)
	})
}

func TestLate_TraitImpls(t *testing.T) {
	t.Run("method not in trait", func(t *testing.T) {
		b := astbuild.New("main.rs")
		tr := b.Trait("T", b.Priv(), b.Method("m", b.Priv(), true, nil))
		s := b.UnitStruct("S", b.Priv())
		impl := b.Impl("T", b.TPath("S"), b.Method("other", b.Priv(), true, b.Block()))
		out := run(t, testOptions(), b.Crate("app", nil, tr, s, impl))

		found := errorsWithCode(out, "E0407")
		require.Len(t, found, 1)
		assert.Equal(t, "method `other` is not a member of trait `T`", found[0].Message)
	})

	t.Run("impl of a non-trait", func(t *testing.T) {
		b := astbuild.New("main.rs")
		s := b.UnitStruct("S", b.Priv())
		impl := b.Impl("S", b.TPath("S"))
		out := run(t, testOptions(), b.Crate("app", nil, s, impl))
		assert.Equal(t, []string{"E0404"}, errorCodes(out))
	})

	t.Run("method call candidates", func(t *testing.T) {
		b := astbuild.New("main.rs")
		tr := b.Trait("Shape", b.Pub(), b.Method("area", b.Pub(), true, nil))
		s := b.UnitStruct("S", b.Priv())
		impl := b.Impl("Shape", b.TPath("S"), b.Method("area", b.Priv(), true, b.Block()))
		call := b.MethodCall(b.PathExpr("s"), "area")
		f := b.Fn("f", b.Priv(), []*ast.Param{b.Param(b.PIdent("s"), b.TPath("S"))}, b.Block(b.Stmt(call)))
		out := run(t, testOptions(), b.Crate("app", nil, tr, s, impl, f))

		require.Empty(t, errorCodes(out))
		cands := out.TraitCandidates[call.ID]
		require.Len(t, cands, 1)
		assert.Equal(t, DefID{Crate: LocalCrate, Node: tr.ID}, cands[0].Def)
		assert.Equal(t, ast.DummyNodeID, cands[0].Import)
	})

	t.Run("imported trait counts as used", func(t *testing.T) {
		b := astbuild.New("main.rs")
		tr := b.Trait("Shape", b.Pub(), b.Method("area", b.Pub(), true, nil))
		imp := b.UseSimple("shapes::Shape")
		call := b.MethodCall(b.PathExpr("s"), "area")
		f := b.Fn("f", b.Priv(), []*ast.Param{b.Param(b.PIdent("s"), b.TPath("i32"))}, b.Block(b.Stmt(call)))
		m := b.Mod("user", b.Priv(), b.Use(b.Priv(), imp), f)
		out := run(t, testOptions(), b.Crate("app", nil, b.Mod("shapes", b.Pub(), tr), m))

		require.Empty(t, out.Diagnostics)
		cands := out.TraitCandidates[call.ID]
		require.Len(t, cands, 1)
		assert.Equal(t, imp.ID, cands[0].Import)
	})
}

func TestLate_BlockItems(t *testing.T) {
	b := astbuild.New("main.rs")
	helper := b.Fn("helper", b.Priv(), nil, b.Block())
	call := b.PathExpr("helper")
	fn := mainFn(b, b.Stmt(b.CallExpr(call)), b.ItemStmt(helper))

	out := run(t, testOptions(), b.Crate("app", nil, fn))

	require.Empty(t, errorCodes(out))
	assert.Equal(t, localDef(DefFn, helper.ID), out.Defs[call.ID].BaseDef)
}
