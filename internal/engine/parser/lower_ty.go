package parser

import (
	"strings"

	"nameres/internal/engine/ast"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// lowerPath lowers any path-shaped node. Qualified prefixes are dropped;
// use lowerQPath where a QSelf can be kept.
func (f *file) lowerPath(n *sitter.Node) *ast.Path {
	_, p := f.lowerQPath(n)
	return p
}

// lowerQPath lowers identifiers, scoped paths and generic paths, returning
// the `<T as Trait>` prefix separately.
func (f *file) lowerQPath(n *sitter.Node) (*ast.QSelf, *ast.Path) {
	p := &ast.Path{Span: f.span(n)}
	if n == nil {
		return nil, p
	}
	switch n.Kind() {
	case "scoped_identifier", "scoped_type_identifier":
		var qself *ast.QSelf
		if prefix := field(n, "path"); prefix != nil {
			if prefix.Kind() == "bracketed_type" {
				qself, p.Segments = f.lowerBracketed(prefix)
			} else {
				var inner *ast.Path
				qself, inner = f.lowerQPath(prefix)
				p.Global = inner.Global
				p.Segments = inner.Segments
			}
		} else if cs := children(n); len(cs) > 0 && cs[0].Kind() == "::" {
			p.Global = true
		}
		p.Segments = append(p.Segments, ast.PathSegment{Ident: f.ident(field(n, "name"))})
		return qself, p
	case "generic_type", "generic_function", "generic_type_with_turbofish":
		base := field(n, "type")
		if base == nil {
			base = field(n, "function")
		}
		qself, inner := f.lowerQPath(base)
		p.Global = inner.Global
		p.Segments = inner.Segments
		if len(p.Segments) > 0 {
			p.Segments[len(p.Segments)-1].Args = f.lowerGenericArgs(field(n, "type_arguments"))
		}
		return qself, p
	case "bracketed_type":
		var qself *ast.QSelf
		qself, p.Segments = f.lowerBracketed(n)
		return qself, p
	}
	p.Segments = []ast.PathSegment{{Ident: f.ident(n)}}
	return nil, p
}

// lowerBracketed handles `<T>` and `<T as Trait>` path prefixes.
func (f *file) lowerBracketed(n *sitter.Node) (*ast.QSelf, []ast.PathSegment) {
	inner := named(n)
	if len(inner) == 0 {
		return nil, nil
	}
	if q := inner[0]; q.Kind() == "qualified_type" {
		trait := f.lowerPath(field(q, "alias"))
		return &ast.QSelf{Ty: f.lowerTy(field(q, "type")), Position: len(trait.Segments)}, trait.Segments
	}
	return &ast.QSelf{Ty: f.lowerTy(inner[0])}, nil
}

func (f *file) lowerGenericArgs(n *sitter.Node) *ast.GenericArgs {
	if n == nil {
		return nil
	}
	args := &ast.GenericArgs{Span: f.span(n)}
	for _, c := range named(n) {
		switch c.Kind() {
		case "lifetime", "block", "integer_literal", "string_literal", "boolean_literal", "char_literal":
		case "type_binding":
			args.Bindings = append(args.Bindings, ast.AssocBinding{
				Ident: f.ident(field(c, "name")),
				Ty:    f.lowerTy(field(c, "type")),
			})
		default:
			args.Types = append(args.Types, f.lowerTy(c))
		}
	}
	return args
}

// macroVar reports the placeholder name of a `$name` node inside a macro
// body. `$crate` is a path root, not a placeholder.
func (f *file) macroVar(n *sitter.Node) (string, bool) {
	if !f.inMacro || n == nil {
		return "", false
	}
	s := f.textOf(n)
	if !strings.HasPrefix(s, "$") || s == ast.KwDollarCrate {
		return "", false
	}
	return s[1:], true
}

func (f *file) lowerTy(n *sitter.Node) ast.Ty {
	if n == nil {
		return nil
	}
	if name, ok := f.macroVar(n); ok {
		return &ast.MacroVarTy{Meta: f.meta(n), Name: name}
	}
	switch n.Kind() {
	case "type_identifier", "primitive_type", "identifier", "scoped_type_identifier",
		"scoped_identifier", "generic_type", "metavariable":
		qself, p := f.lowerQPath(n)
		return &ast.PathTy{Meta: f.meta(n), QSelf: qself, Path: p}
	case "reference_type":
		return &ast.RefTy{Meta: f.meta(n), Mutable: hasChild(n, "mutable_specifier"), Elem: f.lowerTy(field(n, "type"))}
	case "pointer_type":
		return &ast.PtrTy{Meta: f.meta(n), Mutable: hasChild(n, "mutable_specifier"), Elem: f.lowerTy(field(n, "type"))}
	case "tuple_type", "unit_type":
		t := &ast.TupleTy{Meta: f.meta(n)}
		for _, c := range named(n) {
			t.Elems = append(t.Elems, f.lowerTy(c))
		}
		return t
	case "array_type":
		elem := f.lowerTy(field(n, "element"))
		if l := field(n, "length"); l != nil {
			return &ast.ArrayTy{Meta: f.meta(n), Elem: elem, Len: f.lowerExpr(l)}
		}
		return &ast.SliceTy{Meta: f.meta(n), Elem: elem}
	case "function_type":
		if trait := field(n, "trait"); trait != nil {
			return &ast.PathTy{Meta: f.meta(n), Path: f.lowerPath(trait)}
		}
		t := &ast.FnPtrTy{Meta: f.meta(n), Output: f.lowerTy(field(n, "return_type"))}
		for _, c := range named(field(n, "parameters")) {
			if c.Kind() == "parameter" {
				t.Inputs = append(t.Inputs, f.lowerTy(field(c, "type")))
			} else if c.Kind() != "attribute_item" {
				t.Inputs = append(t.Inputs, f.lowerTy(c))
			}
		}
		return t
	case "never_type":
		return &ast.NeverTy{Meta: f.meta(n)}
	case "abstract_type":
		return &ast.TraitObjectTy{Meta: f.meta(n), Impl: true, Bounds: f.boundsOf(field(n, "trait"))}
	case "dynamic_type":
		return &ast.TraitObjectTy{Meta: f.meta(n), Bounds: f.boundsOf(field(n, "trait"))}
	case "bounded_type":
		return &ast.TraitObjectTy{Meta: f.meta(n), Bounds: f.boundsOf(n)}
	case "bracketed_type":
		qself, p := f.lowerQPath(n)
		return &ast.PathTy{Meta: f.meta(n), QSelf: qself, Path: p}
	}
	return &ast.InferTy{Meta: f.meta(n)}
}

// pathOfTy returns the path of a type that names a trait or struct.
func (f *file) pathOfTy(n *sitter.Node) *ast.Path {
	if t, ok := f.lowerTy(n).(*ast.PathTy); ok {
		return t.Path
	}
	return &ast.Path{Span: f.span(n)}
}

// lowerBounds lowers a `: A + B + 'a` list to trait paths.
func (f *file) lowerBounds(n *sitter.Node) []*ast.Path {
	var out []*ast.Path
	for _, c := range named(n) {
		out = append(out, f.boundsOf(c)...)
	}
	return out
}

func (f *file) boundsOf(n *sitter.Node) []*ast.Path {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "lifetime", "use_bounds":
		return nil
	case "bounded_type", "trait_bounds":
		var out []*ast.Path
		for _, c := range named(n) {
			out = append(out, f.boundsOf(c)...)
		}
		return out
	case "higher_ranked_trait_bound":
		return f.boundsOf(field(n, "type"))
	case "removed_trait_bound":
		if ns := named(n); len(ns) > 0 {
			return f.boundsOf(ns[0])
		}
		return nil
	}
	return []*ast.Path{f.pathOfTy(n)}
}
