// Package expand transcribes declarative macro bodies into invocation
// sites. Every node produced gets a fresh id; identifiers that come from the
// macro body carry the expansion mark, identifiers passed as arguments keep
// the context they were written in.
package expand

import (
	"fmt"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/hygiene"
)

// Position is where an invocation appears, which decides the shape of the
// transcribed body.
type Position uint8

const (
	PosItems Position = iota
	PosStmts
	PosExpr
)

func (p Position) String() string {
	switch p {
	case PosItems:
		return "item"
	case PosStmts:
		return "statement"
	}
	return "expression"
}

// Error is a transcription failure at a call site.
type Error struct {
	Span ast.Span
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Span, e.Msg) }

// Result holds the transcribed body in the shape requested.
type Result struct {
	Items []*ast.Item
	Stmts []ast.Stmt
	Expr  ast.Expr
}

// Transcriber applies macro rules. NewID allocates node ids in the crate the
// invocation belongs to.
type Transcriber struct {
	Hygiene *hygiene.Table
	NewID   func() ast.NodeID
}

// Expand transcribes rule for call under mark in position pos.
func (t *Transcriber) Expand(rule *ast.MacroRule, call *ast.MacroCall, mark hygiene.Mark, pos Position) (*Result, error) {
	if rule == nil {
		return nil, &Error{Span: call.Span, Msg: "macro has no rules"}
	}
	env, err := bindArgs(rule, call)
	if err != nil {
		return nil, err
	}
	c := &copier{t: t, mark: mark, span: call.Span, env: env, marking: true}

	switch pos {
	case PosItems:
		items, ok := itemsOf(rule)
		if !ok {
			return nil, &Error{Span: call.Span, Msg: "macro expansion cannot be used in item position"}
		}
		out := make([]*ast.Item, 0, len(items))
		for _, it := range items {
			out = append(out, c.item(it))
		}
		return &Result{Items: out}, nil

	case PosStmts:
		var stmts []ast.Stmt
		if rule.Block != nil {
			stmts = rule.Block.Stmts
		} else {
			for _, it := range rule.Items {
				stmts = append(stmts, &ast.ItemStmt{Meta: ast.Meta{Span: it.Span}, Item: it})
			}
		}
		out := make([]ast.Stmt, 0, len(stmts))
		for _, s := range stmts {
			out = append(out, c.stmt(s))
		}
		return &Result{Stmts: out}, nil
	}

	if rule.Block == nil {
		return nil, &Error{Span: call.Span, Msg: "macro expansion cannot be used in expression position"}
	}
	if len(rule.Block.Stmts) == 1 {
		if es, ok := rule.Block.Stmts[0].(*ast.ExprStmt); ok && !es.Semi {
			return &Result{Expr: c.expr(es.X)}, nil
		}
	}
	return &Result{Expr: &ast.BlockExpr{Meta: c.meta(rule.Block.Meta), Block: c.block(rule.Block)}}, nil
}

// itemsOf returns the body as items; a block qualifies when it only holds
// item statements.
func itemsOf(rule *ast.MacroRule) ([]*ast.Item, bool) {
	if rule.Items != nil || rule.Block == nil {
		return rule.Items, true
	}
	items := make([]*ast.Item, 0, len(rule.Block.Stmts))
	for _, s := range rule.Block.Stmts {
		is, ok := s.(*ast.ItemStmt)
		if !ok {
			return nil, false
		}
		items = append(items, is.Item)
	}
	return items, true
}

func bindArgs(rule *ast.MacroRule, call *ast.MacroCall) (map[string]ast.MacroArg, error) {
	if len(call.Args) != len(rule.Params) {
		return nil, &Error{Span: call.Span, Msg: fmt.Sprintf("this macro takes %d argument%s but %d %s supplied",
			len(rule.Params), plural(len(rule.Params)), len(call.Args), wasWere(len(call.Args)))}
	}
	env := make(map[string]ast.MacroArg, len(rule.Params))
	for i, p := range rule.Params {
		arg := call.Args[i]
		switch p.Frag {
		case ast.FragIdent:
			if arg.Ident == nil {
				return nil, mismatch(p, arg)
			}
		case ast.FragExpr:
			if arg.Expr == nil && arg.Ident == nil {
				return nil, mismatch(p, arg)
			}
		case ast.FragTy:
			if arg.Ty == nil && arg.Ident == nil {
				return nil, mismatch(p, arg)
			}
		}
		env[p.Name] = arg
	}
	return env, nil
}

func mismatch(p ast.MacroParam, arg ast.MacroArg) error {
	return &Error{Span: arg.Span, Msg: fmt.Sprintf("no rules expected this token in macro call: `$%s` expects a %s fragment", p.Name, p.Frag)}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}
