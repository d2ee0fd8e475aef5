package parser

import (
	"nameres/internal/engine/ast"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func (f *file) lowerBlock(n *sitter.Node) *ast.Block {
	if n == nil {
		return nil
	}
	if n.Kind() != "block" {
		if b := childOfKind(n, "block"); b != nil {
			n = b
		}
	}
	blk := &ast.Block{Meta: f.meta(n)}
	stmts := named(n)
	var pending ast.Attrs
	for i, c := range stmts {
		kind := c.Kind()
		switch {
		case kind == "label":
			continue
		case kind == "attribute_item":
			pending = append(pending, f.lowerAttr(c, false))
			continue
		case kind == "inner_attribute_item", kind == "empty_statement":
			continue
		case kind == "let_declaration":
			blk.Stmts = append(blk.Stmts, f.lowerLet(c))
		case kind == "expression_statement":
			blk.Stmts = append(blk.Stmts, f.lowerExprStmt(c))
		case kind == "macro_invocation" && i < len(stmts)-1:
			blk.Stmts = append(blk.Stmts, &ast.MacroStmt{Meta: f.meta(c), Call: f.lowerMacroCall(c)})
		case kind == "foreign_mod_item":
			items, _ := f.lowerDeclList(field(c, "body"), "")
			for _, it := range items {
				blk.Stmts = append(blk.Stmts, &ast.ItemStmt{Meta: ast.Meta{ID: f.cp.id(), Span: it.Span}, Item: it})
			}
		case kind != "macro_invocation" && isItemKind(kind):
			if it := itemLowerers[kind](f, c, pending, ""); it != nil {
				blk.Stmts = append(blk.Stmts, &ast.ItemStmt{Meta: f.meta(c), Item: it})
			}
		default:
			blk.Stmts = append(blk.Stmts, &ast.ExprStmt{Meta: f.meta(c), X: f.lowerExpr(c)})
		}
		pending = nil
	}
	return blk
}

func (f *file) lowerLet(n *sitter.Node) *ast.LetStmt {
	let := &ast.LetStmt{
		Meta: f.meta(n),
		Pat:  f.lowerPat(field(n, "pattern")),
		Ty:   f.lowerTy(field(n, "type")),
		Init: f.lowerExpr(field(n, "value")),
	}
	if ip, ok := let.Pat.(*ast.IdentPat); ok && hasChild(n, "mutable_specifier") {
		ip.Mutable = true
	}
	if alt := field(n, "alternative"); alt != nil {
		let.Else = f.lowerBlock(alt)
	}
	return let
}

func (f *file) lowerExprStmt(n *sitter.Node) ast.Stmt {
	inner := n.NamedChild(0)
	if inner != nil && inner.Kind() == "macro_invocation" {
		return &ast.MacroStmt{Meta: f.meta(n), Call: f.lowerMacroCall(inner)}
	}
	return &ast.ExprStmt{Meta: f.meta(n), X: f.lowerExpr(inner), Semi: hasChild(n, ";")}
}

func (f *file) lowerExprs(ns []*sitter.Node) []ast.Expr {
	var out []ast.Expr
	for _, c := range ns {
		if c.Kind() == "attribute_item" {
			continue
		}
		out = append(out, f.lowerExpr(c))
	}
	return out
}

func (f *file) label(n *sitter.Node) *ast.Ident {
	l := childOfKind(n, "label")
	if l == nil {
		return nil
	}
	id := f.ident(l)
	return &id
}

func (f *file) lowerExpr(n *sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	if name, ok := f.macroVar(n); ok && (n.Kind() == "identifier" || n.Kind() == "metavariable") {
		return &ast.MacroVarExpr{Meta: f.meta(n), Name: name}
	}
	switch n.Kind() {
	case "identifier", "self", "super", "crate", "scoped_identifier", "generic_function",
		"primitive_type", "type_identifier", "metavariable":
		qself, p := f.lowerQPath(n)
		return &ast.PathExpr{Meta: f.meta(n), QSelf: qself, Path: p}
	case "integer_literal", "float_literal", "string_literal", "raw_string_literal",
		"char_literal", "boolean_literal", "negative_literal", "_":
		return &ast.LitExpr{Meta: f.meta(n), Value: f.textOf(n)}
	case "call_expression":
		return f.lowerCall(n)
	case "field_expression":
		return &ast.FieldExpr{Meta: f.meta(n), Base: f.lowerExpr(field(n, "value")), Field: f.ident(field(n, "field"))}
	case "binary_expression":
		return &ast.BinaryExpr{Meta: f.meta(n), Op: f.textOf(field(n, "operator")), L: f.lowerExpr(field(n, "left")), R: f.lowerExpr(field(n, "right"))}
	case "unary_expression":
		ops := children(n)
		return &ast.UnaryExpr{Meta: f.meta(n), Op: f.textOf(ops[0]), X: f.lowerExpr(lastNamed(n))}
	case "reference_expression":
		return &ast.RefExpr{Meta: f.meta(n), Mutable: hasChild(n, "mutable_specifier"), X: f.lowerExpr(field(n, "value"))}
	case "assignment_expression":
		return &ast.AssignExpr{Meta: f.meta(n), Op: "=", L: f.lowerExpr(field(n, "left")), R: f.lowerExpr(field(n, "right"))}
	case "compound_assignment_expr":
		return &ast.AssignExpr{Meta: f.meta(n), Op: f.textOf(field(n, "operator")), L: f.lowerExpr(field(n, "left")), R: f.lowerExpr(field(n, "right"))}
	case "type_cast_expression":
		return &ast.CastExpr{Meta: f.meta(n), X: f.lowerExpr(field(n, "value")), Ty: f.lowerTy(field(n, "type"))}
	case "try_expression":
		return &ast.TryExpr{Meta: f.meta(n), X: f.lowerExpr(lastNamed(n))}
	case "parenthesized_expression":
		return &ast.ParenExpr{Meta: f.meta(n), X: f.lowerExpr(lastNamed(n))}
	case "await_expression", "yield_expression":
		if inner := n.NamedChild(0); inner != nil {
			return f.lowerExpr(inner)
		}
		return &ast.TupleExpr{Meta: f.meta(n)}
	case "tuple_expression", "unit_expression":
		return &ast.TupleExpr{Meta: f.meta(n), Elems: f.lowerExprs(named(n))}
	case "array_expression":
		return &ast.ArrayExpr{Meta: f.meta(n), Elems: f.lowerExprs(named(n))}
	case "index_expression":
		ns := named(n)
		ix := &ast.IndexExpr{Meta: f.meta(n)}
		if len(ns) == 2 {
			ix.X, ix.Index = f.lowerExpr(ns[0]), f.lowerExpr(ns[1])
		}
		return ix
	case "range_expression":
		return f.lowerRange(n)
	case "block", "unsafe_block", "async_block", "const_block", "gen_block", "try_block":
		return &ast.BlockExpr{Meta: f.meta(n), Label: f.label(n), Block: f.lowerBlock(n)}
	case "if_expression", "if_let_expression":
		return f.lowerIf(n)
	case "let_condition":
		return &ast.LetExpr{Meta: f.meta(n), Pat: f.lowerPat(field(n, "pattern")), Scrutinee: f.lowerExpr(field(n, "value"))}
	case "let_chain":
		var out ast.Expr
		for _, c := range named(n) {
			e := f.lowerExpr(c)
			if out == nil {
				out = e
				continue
			}
			out = &ast.BinaryExpr{Meta: f.meta(n), Op: "&&", L: out, R: e}
		}
		return out
	case "while_expression", "while_let_expression":
		return &ast.WhileExpr{Meta: f.meta(n), Label: f.label(n), Cond: f.lowerCond(n), Body: f.lowerBlock(field(n, "body"))}
	case "loop_expression":
		return &ast.LoopExpr{Meta: f.meta(n), Label: f.label(n), Body: f.lowerBlock(field(n, "body"))}
	case "for_expression":
		return &ast.ForExpr{
			Meta:  f.meta(n),
			Label: f.label(n),
			Pat:   f.lowerPat(field(n, "pattern")),
			Iter:  f.lowerExpr(field(n, "value")),
			Body:  f.lowerBlock(field(n, "body")),
		}
	case "match_expression":
		return f.lowerMatch(n)
	case "closure_expression":
		return f.lowerClosure(n)
	case "break_expression":
		br := &ast.BreakExpr{Meta: f.meta(n), Label: f.label(n)}
		for _, c := range named(n) {
			if c.Kind() != "label" {
				br.Value = f.lowerExpr(c)
			}
		}
		return br
	case "continue_expression":
		return &ast.ContinueExpr{Meta: f.meta(n), Label: f.label(n)}
	case "return_expression":
		return &ast.ReturnExpr{Meta: f.meta(n), Value: f.lowerExpr(n.NamedChild(0))}
	case "struct_expression":
		return f.lowerStructExpr(n)
	case "macro_invocation":
		return &ast.MacroCallExpr{Meta: f.meta(n), Call: f.lowerMacroCall(n)}
	}
	f.cp.p.log.Debug("unhandled expression", "kind", n.Kind(), "file", f.path)
	return &ast.LitExpr{Meta: f.meta(n), Value: f.textOf(n)}
}

func (f *file) lowerCall(n *sitter.Node) ast.Expr {
	fn := field(n, "function")
	args := f.lowerExprs(named(field(n, "arguments")))

	method, generics := fn, (*sitter.Node)(nil)
	if fn != nil && fn.Kind() == "generic_function" {
		method, generics = field(fn, "function"), field(fn, "type_arguments")
	}
	if method != nil && method.Kind() == "field_expression" {
		seg := ast.PathSegment{Ident: f.ident(field(method, "field")), Args: f.lowerGenericArgs(generics)}
		return &ast.MethodCallExpr{Meta: f.meta(n), Receiver: f.lowerExpr(field(method, "value")), Method: seg, Args: args}
	}
	return &ast.CallExpr{Meta: f.meta(n), Func: f.lowerExpr(fn), Args: args}
}

func (f *file) lowerRange(n *sitter.Node) ast.Expr {
	r := &ast.RangeExpr{Meta: f.meta(n)}
	seenOp := false
	for _, c := range children(n) {
		if !c.IsNamed() {
			seenOp = true
			continue
		}
		if seenOp {
			r.Hi = f.lowerExpr(c)
		} else {
			r.Lo = f.lowerExpr(c)
		}
	}
	return r
}

// lowerCond lowers an if/while condition, including the older dedicated
// if-let and while-let node shapes.
func (f *file) lowerCond(n *sitter.Node) ast.Expr {
	if c := field(n, "condition"); c != nil {
		return f.lowerExpr(c)
	}
	return &ast.LetExpr{Meta: f.meta(n), Pat: f.lowerPat(field(n, "pattern")), Scrutinee: f.lowerExpr(field(n, "value"))}
}

func (f *file) lowerIf(n *sitter.Node) ast.Expr {
	e := &ast.IfExpr{Meta: f.meta(n), Cond: f.lowerCond(n), Then: f.lowerBlock(field(n, "consequence"))}
	alt := field(n, "alternative")
	if alt == nil {
		return e
	}
	if alt.Kind() == "else_clause" {
		if inner := alt.NamedChild(0); inner != nil {
			alt = inner
		}
	}
	e.Else = f.lowerExpr(alt)
	return e
}

func (f *file) lowerMatch(n *sitter.Node) ast.Expr {
	m := &ast.MatchExpr{Meta: f.meta(n), Scrutinee: f.lowerExpr(field(n, "value"))}
	for _, arm := range named(field(n, "body")) {
		if arm.Kind() != "match_arm" {
			continue
		}
		a := &ast.Arm{Meta: f.meta(arm), Body: f.lowerExpr(field(arm, "value"))}
		mp := field(arm, "pattern")
		if mp != nil && mp.Kind() == "match_pattern" {
			if p := mp.NamedChild(0); p != nil {
				a.Pat = f.lowerPat(p)
			} else {
				a.Pat = f.lowerPat(mp.Child(0))
			}
			a.Guard = f.lowerExpr(field(mp, "condition"))
		} else {
			a.Pat = f.lowerPat(mp)
		}
		m.Arms = append(m.Arms, a)
	}
	return m
}

func (f *file) lowerClosure(n *sitter.Node) ast.Expr {
	c := &ast.ClosureExpr{Meta: f.meta(n), Output: f.lowerTy(field(n, "return_type"))}
	for _, p := range children(field(n, "parameters")) {
		switch {
		case p.Kind() == "parameter":
			c.Params = append(c.Params, &ast.Param{Meta: f.meta(p), Pat: f.lowerPat(field(p, "pattern")), Ty: f.lowerTy(field(p, "type"))})
		case p.IsNamed() || p.Kind() == "_":
			c.Params = append(c.Params, &ast.Param{Meta: f.meta(p), Pat: f.lowerPat(p)})
		}
	}
	c.Body = f.lowerExpr(field(n, "body"))
	return c
}

func (f *file) lowerStructExpr(n *sitter.Node) ast.Expr {
	s := &ast.StructExpr{Meta: f.meta(n), Path: f.lowerPath(field(n, "name"))}
	for _, c := range named(field(n, "body")) {
		switch c.Kind() {
		case "shorthand_field_initializer":
			id := c
			if ns := named(c); len(ns) > 0 {
				id = ns[len(ns)-1]
			}
			s.Fields = append(s.Fields, &ast.FieldInit{
				Ident:     f.ident(id),
				Expr:      &ast.PathExpr{Meta: f.meta(id), Path: f.lowerPath(id)},
				Shorthand: true,
				Span:      f.span(c),
			})
		case "field_initializer":
			s.Fields = append(s.Fields, &ast.FieldInit{
				Ident: f.ident(field(c, "field")),
				Expr:  f.lowerExpr(field(c, "value")),
				Span:  f.span(c),
			})
		case "base_field_initializer":
			s.Base = f.lowerExpr(lastNamed(c))
		}
	}
	return s
}
