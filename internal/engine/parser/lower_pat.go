package parser

import (
	"nameres/internal/engine/ast"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func (f *file) lowerPat(n *sitter.Node) ast.Pat {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "_":
		return &ast.WildPat{Meta: f.meta(n)}
	case "identifier", "self", "metavariable":
		return &ast.IdentPat{Meta: f.meta(n), Ident: f.ident(n)}
	case "mut_pattern":
		p := f.lowerPat(lastNamed(n))
		if ip, ok := p.(*ast.IdentPat); ok {
			ip.Mutable = true
		}
		return p
	case "ref_pattern":
		p := f.lowerPat(lastNamed(n))
		if ip, ok := p.(*ast.IdentPat); ok {
			ip.ByRef = true
			ip.Mutable = ip.Mutable || hasChild(n, "mutable_specifier")
		}
		return p
	case "captured_pattern":
		ns := named(n)
		if len(ns) < 2 {
			return &ast.WildPat{Meta: f.meta(n)}
		}
		return &ast.IdentPat{Meta: f.meta(n), Ident: f.ident(ns[0]), Sub: f.lowerPat(ns[len(ns)-1])}
	case "scoped_identifier", "generic_type", "bracketed_type":
		qself, p := f.lowerQPath(n)
		return &ast.PathPat{Meta: f.meta(n), QSelf: qself, Path: p}
	case "tuple_pattern":
		return &ast.TuplePat{Meta: f.meta(n), Elems: f.lowerPats(n, nil)}
	case "slice_pattern":
		return &ast.SlicePat{Meta: f.meta(n), Elems: f.lowerPats(n, nil)}
	case "tuple_struct_pattern":
		ty := field(n, "type")
		return &ast.TupleStructPat{Meta: f.meta(n), Path: f.lowerPath(ty), Elems: f.lowerPats(n, ty)}
	case "struct_pattern":
		return f.lowerStructPat(n)
	case "reference_pattern":
		return &ast.RefPat{Meta: f.meta(n), Mutable: hasChild(n, "mutable_specifier"), Inner: f.lowerPat(lastNamed(n))}
	case "remaining_field_pattern":
		return &ast.RestPat{Meta: f.meta(n)}
	case "or_pattern":
		or := &ast.OrPat{Meta: f.meta(n)}
		for _, c := range children(n) {
			if c.Kind() == "|" {
				continue
			}
			alt := f.lowerPat(c)
			if nested, ok := alt.(*ast.OrPat); ok {
				or.Alts = append(or.Alts, nested.Alts...)
				continue
			}
			or.Alts = append(or.Alts, alt)
		}
		return or
	case "range_pattern":
		rp := &ast.RangePat{Meta: f.meta(n)}
		if l := field(n, "left"); l != nil {
			rp.Lo = f.lowerPatExpr(l)
		}
		if r := field(n, "right"); r != nil {
			rp.Hi = f.lowerPatExpr(r)
		}
		if rp.Lo == nil && rp.Hi == nil {
			ns := named(n)
			if len(ns) > 0 {
				rp.Lo = f.lowerPatExpr(ns[0])
			}
			if len(ns) > 1 {
				rp.Hi = f.lowerPatExpr(ns[1])
			}
		}
		return rp
	case "integer_literal", "float_literal", "string_literal", "raw_string_literal",
		"char_literal", "boolean_literal", "negative_literal":
		return &ast.LitPat{Meta: f.meta(n), Expr: &ast.LitExpr{Meta: f.meta(n), Value: f.textOf(n)}}
	}
	return &ast.WildPat{Meta: f.meta(n)}
}

// lowerPatExpr lowers a range pattern bound; bounds may be paths.
func (f *file) lowerPatExpr(n *sitter.Node) ast.Expr {
	switch n.Kind() {
	case "identifier", "scoped_identifier":
		return &ast.PathExpr{Meta: f.meta(n), Path: f.lowerPath(n)}
	}
	return &ast.LitExpr{Meta: f.meta(n), Value: f.textOf(n)}
}

// lowerPats lowers the sub-patterns of n, skipping the skip node.
func (f *file) lowerPats(n, skip *sitter.Node) []ast.Pat {
	var out []ast.Pat
	for _, c := range children(n) {
		switch c.Kind() {
		case "(", ")", "[", "]", ",", "attribute_item":
			continue
		}
		if skip != nil && c.StartByte() == skip.StartByte() && c.EndByte() == skip.EndByte() {
			continue
		}
		if !c.IsNamed() && c.Kind() != "_" {
			continue
		}
		out = append(out, f.lowerPat(c))
	}
	return out
}

func (f *file) lowerStructPat(n *sitter.Node) ast.Pat {
	sp := &ast.StructPat{Meta: f.meta(n), Path: f.lowerPath(field(n, "type"))}
	for _, c := range named(n) {
		switch c.Kind() {
		case "field_pattern":
			name := field(c, "name")
			fp := &ast.FieldPat{Ident: f.ident(name), Span: f.span(c)}
			if p := field(c, "pattern"); p != nil {
				fp.Pat = f.lowerPat(p)
			} else {
				fp.Shorthand = true
				fp.Pat = &ast.IdentPat{
					Meta:    f.meta(name),
					Ident:   f.ident(name),
					ByRef:   hasChild(c, "ref"),
					Mutable: hasChild(c, "mutable_specifier"),
				}
			}
			sp.Fields = append(sp.Fields, fp)
		case "remaining_field_pattern":
			sp.Rest = true
		}
	}
	return sp
}

func lastNamed(n *sitter.Node) *sitter.Node {
	ns := named(n)
	if len(ns) == 0 {
		return nil
	}
	return ns[len(ns)-1]
}
