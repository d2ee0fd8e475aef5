package parser

import (
	"path"
	"strconv"
	"strings"

	"nameres/internal/engine/ast"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// itemLowerer builds one item kind. attrs are the outer attributes already
// seen; dir is where out-of-line child modules are looked up.
type itemLowerer func(f *file, n *sitter.Node, attrs ast.Attrs, dir string) *ast.Item

var itemLowerers map[string]itemLowerer

func init() {
	itemLowerers = map[string]itemLowerer{
		"mod_item":                 (*file).lowerMod,
		"function_item":            (*file).lowerFn,
		"function_signature_item":  (*file).lowerFn,
		"struct_item":              (*file).lowerStruct,
		"union_item":               (*file).lowerStruct,
		"enum_item":                (*file).lowerEnum,
		"trait_item":               (*file).lowerTrait,
		"impl_item":                (*file).lowerImpl,
		"use_declaration":          (*file).lowerUse,
		"extern_crate_declaration": (*file).lowerExternCrate,
		"const_item":               (*file).lowerConst,
		"static_item":              (*file).lowerStatic,
		"type_item":                (*file).lowerTypeAlias,
		"macro_definition":         (*file).lowerMacroRules,
		"macro_invocation":         (*file).lowerMacroItem,
	}
}

func isItemKind(kind string) bool {
	_, ok := itemLowerers[kind]
	return ok || kind == "foreign_mod_item"
}

// lowerDeclList lowers the items under a source file or declaration list.
// Outer attributes attach to the next item; inner ones are returned.
func (f *file) lowerDeclList(n *sitter.Node, dir string) ([]*ast.Item, ast.Attrs) {
	var items []*ast.Item
	var inner, pending ast.Attrs
	for _, c := range named(n) {
		switch c.Kind() {
		case "attribute_item":
			pending = append(pending, f.lowerAttr(c, false))
			continue
		case "inner_attribute_item":
			inner = append(inner, f.lowerAttr(c, true))
			continue
		case "foreign_mod_item":
			body, _ := f.lowerDeclList(field(c, "body"), dir)
			items = append(items, body...)
		case "expression_statement":
			// A macro call in item position parses as a statement.
			if m := c.NamedChild(0); m != nil && m.Kind() == "macro_invocation" {
				items = append(items, f.lowerMacroItem(m, pending, dir))
			}
		default:
			if lower, ok := itemLowerers[c.Kind()]; ok {
				if it := lower(f, c, pending, dir); it != nil {
					items = append(items, it)
				}
			}
		}
		pending = nil
	}
	return items, inner
}

func (f *file) newItem(n *sitter.Node, name *sitter.Node, attrs ast.Attrs, kind ast.ItemKind) *ast.Item {
	it := &ast.Item{Meta: f.meta(n), Vis: f.lowerVis(n), Attrs: attrs, Kind: kind}
	if name != nil {
		it.Ident = f.ident(name)
	} else {
		it.Ident = ast.Ident{Span: it.Span}
	}
	return it
}

func (f *file) lowerAttr(n *sitter.Node, inner bool) ast.Attribute {
	attr := ast.Attribute{Inner: inner, Span: f.span(n)}
	a := childOfKind(n, "attribute")
	if a == nil {
		return attr
	}
	parts := named(a)
	if len(parts) > 0 {
		attr.Name = f.textOf(parts[0])
	}
	if v := field(a, "value"); v != nil {
		attr.Args = []string{unquote(f.textOf(v))}
	} else if args := field(a, "arguments"); args != nil {
		for _, tok := range named(args) {
			attr.Args = append(attr.Args, f.textOf(tok))
		}
	}
	return attr
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return strings.Trim(s, `"`)
}

func attrValue(attrs ast.Attrs, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name == name && len(a.Args) == 1 {
			return a.Args[0], true
		}
	}
	return "", false
}

func (f *file) lowerVis(n *sitter.Node) ast.Visibility {
	return f.visibility(childOfKind(n, "visibility_modifier"))
}

func (f *file) visibility(vm *sitter.Node) ast.Visibility {
	if vm == nil {
		return ast.Visibility{Kind: ast.VisInherited}
	}
	sp := f.span(vm)
	switch strings.Join(strings.Fields(f.textOf(vm)), "") {
	case "pub":
		return ast.Visibility{Kind: ast.VisPublic, Span: sp}
	case "crate", "pub(crate)":
		return ast.Visibility{Kind: ast.VisCrate, Span: sp}
	}
	var target *sitter.Node
	for _, c := range named(vm) {
		switch c.Kind() {
		case "self", "super", "crate", "identifier", "scoped_identifier":
			target = c
		}
	}
	if target == nil {
		return ast.Visibility{Kind: ast.VisPublic, Span: sp}
	}
	return ast.Visibility{Kind: ast.VisRestricted, Path: f.lowerPath(target), ID: f.cp.id(), Span: sp}
}

func (f *file) lowerMod(n *sitter.Node, attrs ast.Attrs, dir string) *ast.Item {
	name := field(n, "name")
	it := f.newItem(n, name, attrs, nil)
	mod := &ast.ModItem{}
	it.Kind = mod
	if body := field(n, "body"); body != nil {
		var inner ast.Attrs
		mod.Items, inner = f.lowerDeclList(body, path.Join(dir, it.Ident.Name))
		it.Attrs = append(it.Attrs, inner...)
		return it
	}
	if f.inMacro {
		return it
	}
	items, inner, _ := f.cp.loadModule(it.Ident, dir, attrs, f)
	mod.Items = items
	it.Attrs = append(it.Attrs, inner...)
	return it
}

func (f *file) lowerFn(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	fn := &ast.FnItem{}
	it := f.newItem(n, field(n, "name"), attrs, fn)
	fn.Generics = f.lowerGenerics(n)
	fn.Decl = f.lowerFnDecl(n)
	if body := field(n, "body"); body != nil {
		fn.Body = f.lowerBlock(body)
	}
	return it
}

func (f *file) lowerFnDecl(n *sitter.Node) *ast.FnDecl {
	decl := &ast.FnDecl{}
	for _, p := range named(field(n, "parameters")) {
		switch p.Kind() {
		case "self_parameter":
			self := childOfKind(p, "self")
			decl.HasSelf = true
			decl.Inputs = append(decl.Inputs, &ast.Param{
				Meta: f.meta(p),
				Pat:  &ast.IdentPat{Meta: f.meta(self), Ident: f.ident(self), Mutable: hasChild(p, "mutable_specifier")},
			})
		case "parameter":
			param := &ast.Param{Meta: f.meta(p), Pat: f.lowerPat(field(p, "pattern")), Ty: f.lowerTy(field(p, "type"))}
			if ip, ok := param.Pat.(*ast.IdentPat); ok && ip.Ident.Name == ast.KwSelfValue {
				decl.HasSelf = true
			}
			decl.Inputs = append(decl.Inputs, param)
		}
	}
	decl.Output = f.lowerTy(field(n, "return_type"))
	return decl
}

func (f *file) lowerStruct(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	st := &ast.StructItem{}
	it := f.newItem(n, field(n, "name"), attrs, st)
	st.Generics = f.lowerGenerics(n)
	st.Data = f.lowerVariantData(field(n, "body"))
	return it
}

func (f *file) lowerVariantData(body *sitter.Node) *ast.VariantData {
	if body == nil {
		return &ast.VariantData{Kind: ast.DataUnit, CtorID: f.cp.id()}
	}
	if body.Kind() == "field_declaration_list" {
		data := &ast.VariantData{Kind: ast.DataStruct}
		for _, fd := range named(body) {
			if fd.Kind() != "field_declaration" {
				continue
			}
			name := f.ident(field(fd, "name"))
			data.Fields = append(data.Fields, &ast.FieldDef{
				Meta:  f.meta(fd),
				Ident: &name,
				Vis:   f.lowerVis(fd),
				Ty:    f.lowerTy(field(fd, "type")),
			})
		}
		return data
	}

	data := &ast.VariantData{Kind: ast.DataTuple}
	vis := ast.Visibility{Kind: ast.VisInherited}
	for _, c := range named(body) {
		switch c.Kind() {
		case "visibility_modifier":
			vis = f.visibility(c)
		case "attribute_item":
		default:
			data.Fields = append(data.Fields, &ast.FieldDef{Meta: f.meta(c), Vis: vis, Ty: f.lowerTy(c)})
			vis = ast.Visibility{Kind: ast.VisInherited}
		}
	}
	data.CtorID = f.cp.id()
	return data
}

func (f *file) lowerEnum(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	en := &ast.EnumItem{}
	it := f.newItem(n, field(n, "name"), attrs, en)
	en.Generics = f.lowerGenerics(n)
	for _, v := range named(field(n, "body")) {
		if v.Kind() != "enum_variant" {
			continue
		}
		en.Variants = append(en.Variants, &ast.Variant{
			Meta:         f.meta(v),
			Ident:        f.ident(field(v, "name")),
			Data:         f.lowerVariantData(field(v, "body")),
			Discriminant: f.lowerExpr(field(v, "value")),
		})
	}
	return it
}

func (f *file) lowerTrait(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	tr := &ast.TraitItem{}
	it := f.newItem(n, field(n, "name"), attrs, tr)
	tr.Generics = f.lowerGenerics(n)
	tr.Bounds = f.lowerBounds(field(n, "bounds"))
	tr.Items = f.lowerAssocItems(field(n, "body"))
	return it
}

func (f *file) lowerImpl(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	impl := &ast.ImplItem{}
	it := f.newItem(n, nil, attrs, impl)
	impl.Generics = f.lowerGenerics(n)
	if t := field(n, "trait"); t != nil {
		impl.Trait = &ast.TraitRef{Meta: f.meta(t), Path: f.pathOfTy(t)}
	}
	impl.SelfTy = f.lowerTy(field(n, "type"))
	impl.Items = f.lowerAssocItems(field(n, "body"))
	return it
}

func (f *file) lowerAssocItems(body *sitter.Node) []*ast.AssocItem {
	var out []*ast.AssocItem
	var pending ast.Attrs
	for _, c := range named(body) {
		if c.Kind() == "attribute_item" {
			pending = append(pending, f.lowerAttr(c, false))
			continue
		}
		var kind ast.AssocKind
		switch c.Kind() {
		case "function_item", "function_signature_item":
			fn := &ast.AssocFn{Generics: f.lowerGenerics(c), Decl: f.lowerFnDecl(c)}
			if b := field(c, "body"); b != nil {
				fn.Body = f.lowerBlock(b)
			}
			kind = fn
		case "const_item":
			kind = &ast.AssocConst{Ty: f.lowerTy(field(c, "type")), Expr: f.lowerExpr(field(c, "value"))}
		case "associated_type":
			kind = &ast.AssocType{Bounds: f.lowerBounds(field(c, "bounds")), Ty: f.lowerTy(field(c, "default_type"))}
		case "type_item":
			kind = &ast.AssocType{Ty: f.lowerTy(field(c, "type"))}
		default:
			pending = nil
			continue
		}
		out = append(out, &ast.AssocItem{
			Meta:  f.meta(c),
			Ident: f.ident(field(c, "name")),
			Vis:   f.lowerVis(c),
			Attrs: pending,
			Kind:  kind,
		})
		pending = nil
	}
	return out
}

func (f *file) lowerUse(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	arg := field(n, "argument")
	return f.newItem(n, nil, attrs, &ast.UseItem{Tree: f.lowerUseTree(arg)})
}

func (f *file) lowerUseTree(n *sitter.Node) *ast.UseTree {
	t := &ast.UseTree{Meta: f.meta(n)}
	switch n.Kind() {
	case "use_as_clause":
		t.Kind = ast.UseSimple
		t.Prefix = f.lowerPath(field(n, "path"))
		alias := f.ident(field(n, "alias"))
		t.Rename = &alias
	case "use_list":
		t.Kind = ast.UseNested
		t.Prefix = &ast.Path{Span: f.span(n)}
		t.Nested = f.lowerUseList(n)
	case "scoped_use_list":
		t.Kind = ast.UseNested
		t.Prefix = f.usePrefix(n, field(n, "path"))
		t.Nested = f.lowerUseList(field(n, "list"))
	case "use_wildcard":
		t.Kind = ast.UseGlob
		var prefix *sitter.Node
		if ns := named(n); len(ns) > 0 {
			prefix = ns[0]
		}
		t.Prefix = f.usePrefix(n, prefix)
	default:
		t.Kind = ast.UseSimple
		t.Prefix = f.lowerPath(n)
	}
	return t
}

// usePrefix lowers the optional path before `::{...}` or `::*`; a bare
// leading `::` makes it global.
func (f *file) usePrefix(n, prefix *sitter.Node) *ast.Path {
	if prefix != nil {
		return f.lowerPath(prefix)
	}
	p := &ast.Path{Span: f.span(n)}
	if cs := children(n); len(cs) > 0 && cs[0].Kind() == "::" {
		p.Global = true
	}
	return p
}

func (f *file) lowerUseList(n *sitter.Node) []*ast.UseTree {
	var out []*ast.UseTree
	for _, c := range named(n) {
		out = append(out, f.lowerUseTree(c))
	}
	return out
}

func (f *file) lowerExternCrate(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	name := field(n, "name")
	if alias := field(n, "alias"); alias != nil {
		return f.newItem(n, alias, attrs, &ast.ExternCrateItem{Orig: f.textOf(name)})
	}
	return f.newItem(n, name, attrs, &ast.ExternCrateItem{})
}

func (f *file) lowerConst(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	return f.newItem(n, field(n, "name"), attrs, &ast.ConstItem{
		Ty:   f.lowerTy(field(n, "type")),
		Expr: f.lowerExpr(field(n, "value")),
	})
}

func (f *file) lowerStatic(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	return f.newItem(n, field(n, "name"), attrs, &ast.StaticItem{
		Ty:      f.lowerTy(field(n, "type")),
		Expr:    f.lowerExpr(field(n, "value")),
		Mutable: hasChild(n, "mutable_specifier"),
	})
}

func (f *file) lowerTypeAlias(n *sitter.Node, attrs ast.Attrs, _ string) *ast.Item {
	ta := &ast.TypeAliasItem{}
	it := f.newItem(n, field(n, "name"), attrs, ta)
	ta.Generics = f.lowerGenerics(n)
	ta.Ty = f.lowerTy(field(n, "type"))
	return it
}

func (f *file) lowerGenerics(n *sitter.Node) *ast.Generics {
	tp := field(n, "type_parameters")
	wc := childOfKind(n, "where_clause")
	if tp == nil && wc == nil {
		return nil
	}
	g := &ast.Generics{Span: f.span(tp)}
	if tp == nil {
		g.Span = f.span(wc)
	}
	for _, c := range named(tp) {
		if p := f.lowerGenericParam(c); p != nil {
			g.Params = append(g.Params, p)
		}
	}
	for _, pred := range named(wc) {
		if pred.Kind() != "where_predicate" {
			continue
		}
		left := field(pred, "left")
		if left == nil || left.Kind() == "lifetime" {
			continue
		}
		g.Where = append(g.Where, &ast.WherePredicate{
			Ty:     f.lowerTy(left),
			Bounds: f.lowerBounds(field(pred, "bounds")),
			Span:   f.span(pred),
		})
	}
	return g
}

func (f *file) lowerGenericParam(c *sitter.Node) *ast.GenericParam {
	switch c.Kind() {
	case "type_identifier", "metavariable":
		return &ast.GenericParam{Meta: f.meta(c), Ident: f.ident(c), Kind: ast.ParamType}
	case "lifetime", "lifetime_parameter":
		name := c
		if n := field(c, "name"); n != nil {
			name = n
		}
		return &ast.GenericParam{Meta: f.meta(c), Ident: f.ident(name), Kind: ast.ParamLifetime}
	case "constrained_type_parameter":
		left := field(c, "left")
		if left != nil && left.Kind() == "lifetime" {
			return &ast.GenericParam{Meta: f.meta(c), Ident: f.ident(left), Kind: ast.ParamLifetime}
		}
		return &ast.GenericParam{Meta: f.meta(c), Ident: f.ident(left), Kind: ast.ParamType, Bounds: f.lowerBounds(field(c, "bounds"))}
	case "optional_type_parameter":
		name := field(c, "name")
		p := &ast.GenericParam{Meta: f.meta(c), Kind: ast.ParamType, Default: f.lowerTy(field(c, "default_type"))}
		if name != nil && name.Kind() == "constrained_type_parameter" {
			p.Ident = f.ident(field(name, "left"))
			p.Bounds = f.lowerBounds(field(name, "bounds"))
		} else {
			p.Ident = f.ident(name)
		}
		return p
	case "type_parameter":
		return &ast.GenericParam{
			Meta:    f.meta(c),
			Ident:   f.ident(field(c, "name")),
			Kind:    ast.ParamType,
			Bounds:  f.lowerBounds(field(c, "bounds")),
			Default: f.lowerTy(field(c, "default_type")),
		}
	case "const_parameter":
		return &ast.GenericParam{
			Meta:  f.meta(c),
			Ident: f.ident(field(c, "name")),
			Kind:  ast.ParamConst,
			Ty:    f.lowerTy(field(c, "type")),
		}
	}
	return nil
}
