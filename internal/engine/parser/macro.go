package parser

import (
	"bytes"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	bodyPrefix = "fn __nameres_body() {"
	bodySuffix = "\n}"
	tyPrefix   = "type __Nameres = "
	tySuffix   = ";"
)

// buf returns the bytes names are read from.
func (f *file) buf() []byte {
	if f.text != nil {
		return f.text
	}
	return f.src
}

// snippet parses f's bytes in [lo, hi) wrapped in prefix and suffix. The
// parse input has every `$` replaced by `_` so placeholders parse as plain
// identifiers; names are still read from the original bytes. The returned
// file reports no syntax errors and must be closed. ok is false when the
// snippet did not parse cleanly.
func (f *file) snippet(lo, hi uint, prefix, suffix string, inMacro bool) (*file, bool) {
	orig := f.buf()[lo:hi]
	text := make([]byte, 0, len(prefix)+len(orig)+len(suffix))
	text = append(text, prefix...)
	text = append(text, orig...)
	text = append(text, suffix...)
	src := bytes.ReplaceAll(text, []byte("$"), []byte("_"))

	sp := f.cp.p.pool.Get()
	defer f.cp.p.pool.Put(sp)
	tree := sp.Parse(src, nil)
	if tree == nil {
		return nil, false
	}
	s := &file{
		cp:      f.cp,
		path:    f.path,
		src:     src,
		text:    text,
		base:    f.base + int(lo) - len(prefix),
		lines:   f.lines,
		tree:    tree,
		root:    tree.RootNode(),
		inMacro: inMacro,
	}
	return s, !s.root.HasError()
}

// inner returns the byte range between the delimiters of a token tree.
func inner(tt *sitter.Node) (uint, uint) {
	lo, hi := tt.StartByte(), tt.EndByte()
	if hi-lo < 2 {
		return lo, lo
	}
	return lo + 1, hi - 1
}

func (f *file) lowerMacroRules(n *sitter.Node, attrs ast.Attrs, dir string) *ast.Item {
	it := f.newItem(n, field(n, "name"), attrs, nil)
	def := &ast.MacroDefItem{}
	it.Kind = def

	var rules []*sitter.Node
	for _, c := range named(n) {
		if c.Kind() == "macro_rule" {
			rules = append(rules, c)
		}
	}
	if len(rules) == 0 {
		f.cp.emit(diag.Errorf(diag.KindSyntax, "", it.Span, "macro `%s` has no rules", it.Ident.Name))
		return it
	}
	if len(rules) > 1 {
		f.cp.p.log.Warn("only the first macro rule is used", "macro", it.Ident.Name, "rules", len(rules), "file", f.path)
	}
	def.Rule = f.lowerMacroRule(rules[0], dir)
	return it
}

func (f *file) lowerMacroRule(n *sitter.Node, dir string) *ast.MacroRule {
	rule := &ast.MacroRule{Span: f.span(n)}
	if !f.macroParams(field(n, "left"), rule) {
		return nil
	}
	body := field(n, "right")
	if body == nil {
		return rule
	}
	if rep := findKind(body, "token_repetition"); rep != nil {
		f.cp.emit(diag.Errorf(diag.KindSyntax, "", f.span(rep), "macro repetitions are not supported"))
		return nil
	}
	lo, hi := inner(body)

	if s, ok := f.snippet(lo, hi, "", "", true); s != nil {
		if ok && onlyItems(s.root) {
			rule.Items, _ = s.lowerDeclList(s.root, dir)
		}
		s.close()
	}
	if s, ok := f.snippet(lo, hi, bodyPrefix, bodySuffix, true); s != nil {
		if ok {
			if fn := childOfKind(s.root, "function_item"); fn != nil {
				rule.Block = s.lowerBlock(field(fn, "body"))
			}
		}
		s.close()
	}
	if rule.Items == nil && rule.Block == nil {
		f.cp.emit(diag.Errorf(diag.KindSyntax, "", f.span(body), "macro body is neither items nor a block"))
	}
	return rule
}

// macroParams collects the `$name:frag` bindings of a matcher. Matchers
// with repetitions or other fragment kinds are rejected.
func (f *file) macroParams(n *sitter.Node, rule *ast.MacroRule) bool {
	for _, c := range named(n) {
		switch c.Kind() {
		case "token_binding_pattern":
			name := f.textOf(field(c, "name"))
			if len(name) < 2 {
				continue
			}
			frag := f.textOf(field(c, "type"))
			p := ast.MacroParam{Name: name[1:]}
			switch frag {
			case "ident":
				p.Frag = ast.FragIdent
			case "expr":
				p.Frag = ast.FragExpr
			case "ty":
				p.Frag = ast.FragTy
			default:
				f.cp.emit(diag.Errorf(diag.KindSyntax, "", f.span(c), "unsupported fragment specifier `%s`", frag))
				return false
			}
			rule.Params = append(rule.Params, p)
		case "token_repetition_pattern":
			f.cp.emit(diag.Errorf(diag.KindSyntax, "", f.span(c), "macro repetitions are not supported"))
			return false
		case "token_tree_pattern":
			if !f.macroParams(c, rule) {
				return false
			}
		}
	}
	return true
}

// onlyItems reports whether every top-level statement of n is an item.
func onlyItems(n *sitter.Node) bool {
	for _, c := range named(n) {
		switch k := c.Kind(); {
		case k == "attribute_item", k == "inner_attribute_item":
		case k == "expression_statement":
			if m := c.NamedChild(0); m == nil || m.Kind() != "macro_invocation" {
				return false
			}
		case !isItemKind(k):
			return false
		}
	}
	return true
}

func findKind(n *sitter.Node, kind string) *sitter.Node {
	for _, c := range named(n) {
		if c.Kind() == kind {
			return c
		}
		if found := findKind(c, kind); found != nil {
			return found
		}
	}
	return nil
}

func (f *file) lowerMacroItem(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	call := f.lowerMacroCall(n)
	it := &ast.Item{Meta: f.meta(n), Attrs: attrs, Kind: &ast.MacroCallItem{Call: call}}
	if len(call.Path.Segments) > 0 {
		it.Ident = call.Path.Segments[len(call.Path.Segments)-1].Ident
	}
	return it
}

func (f *file) lowerMacroCall(n *sitter.Node) *ast.MacroCall {
	call := &ast.MacroCall{Meta: f.meta(n), Path: f.lowerPath(field(n, "macro"))}
	tt := childOfKind(n, "token_tree")
	if tt == nil {
		return call
	}
	for _, group := range splitArgs(tt) {
		call.Args = append(call.Args, f.lowerMacroArg(group))
	}
	return call
}

// splitArgs groups the tokens of a token tree at its top-level commas.
func splitArgs(tt *sitter.Node) [][]*sitter.Node {
	cs := children(tt)
	if len(cs) < 2 {
		return nil
	}
	cs = cs[1 : len(cs)-1]
	var out [][]*sitter.Node
	var cur []*sitter.Node
	for _, c := range cs {
		if c.Kind() == "," {
			out = append(out, cur)
			cur = nil
			continue
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func (f *file) lowerMacroArg(toks []*sitter.Node) ast.MacroArg {
	if len(toks) == 0 {
		return ast.MacroArg{Span: ast.Span{File: f.path}}
	}
	lo, hi := toks[0].StartByte(), toks[len(toks)-1].EndByte()
	full := f.span(toks[0])
	full.Hi = f.base + int(hi)
	arg := ast.MacroArg{Span: full}

	if len(toks) == 1 && isIdentToken(toks[0].Kind()) {
		id := f.ident(toks[0])
		arg.Ident = &id
		return arg
	}

	if s, ok := f.snippet(lo, hi, bodyPrefix+"\n", bodySuffix, f.inMacro); s != nil {
		if ok {
			arg.Expr = s.tailExpr()
		}
		s.close()
	}
	if s, ok := f.snippet(lo, hi, tyPrefix, tySuffix, f.inMacro); s != nil {
		if ok {
			if ti := childOfKind(s.root, "type_item"); ti != nil {
				arg.Ty = s.lowerTy(field(ti, "type"))
			}
		}
		s.close()
	}
	if arg.Expr == nil && arg.Ty == nil {
		f.cp.emit(diag.Errorf(diag.KindSyntax, "", arg.Span, "could not parse macro argument `%s`",
			clip(string(f.buf()[lo:hi]), 24)))
	}
	return arg
}

func isIdentToken(kind string) bool {
	switch kind {
	case "identifier", "primitive_type", "metavariable":
		return true
	}
	return false
}

// tailExpr returns the lone tail expression of a wrapped snippet body.
func (f *file) tailExpr() ast.Expr {
	fn := childOfKind(f.root, "function_item")
	if fn == nil {
		return nil
	}
	stmts := named(field(fn, "body"))
	if len(stmts) != 1 {
		return nil
	}
	switch stmts[0].Kind() {
	case "expression_statement", "let_declaration", "empty_statement":
		return nil
	}
	if isItemKind(stmts[0].Kind()) && stmts[0].Kind() != "macro_invocation" {
		return nil
	}
	return f.lowerExpr(stmts[0])
}
