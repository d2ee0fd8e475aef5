// Package astbuild constructs ast trees programmatically. Every node gets a
// fresh id and a span that sorts after all previously built nodes, so source
// order follows construction order.
package astbuild

import (
	"nameres/internal/engine/ast"
	"strings"
)

type Builder struct {
	file string
	next ast.NodeID
	pos  int
}

func New(file string) *Builder {
	return &Builder{file: file}
}

func (b *Builder) ID() ast.NodeID {
	b.next++
	return b.next
}

// LastID is the highest id handed out so far.
func (b *Builder) LastID() ast.NodeID { return b.next }

func (b *Builder) Span() ast.Span {
	b.pos++
	return ast.Span{File: b.file, Lo: b.pos * 16, Hi: b.pos*16 + 8, Line: b.pos, Col: 1}
}

func (b *Builder) meta() ast.Meta { return ast.Meta{ID: b.ID(), Span: b.Span()} }

func (b *Builder) Ident(name string) ast.Ident { return ast.NewIdent(name, b.Span()) }

// Path parses "a::b::c"; a leading "::" makes the path global.
func (b *Builder) Path(s string) *ast.Path {
	p := &ast.Path{Span: b.Span()}
	if strings.HasPrefix(s, "::") {
		p.Global = true
		s = strings.TrimPrefix(s, "::")
	}
	if s == "" {
		return p
	}
	for _, part := range strings.Split(s, "::") {
		p.Segments = append(p.Segments, ast.PathSegment{Ident: b.Ident(part)})
	}
	return p
}

func (b *Builder) Crate(name string, attrs ast.Attrs, items ...*ast.Item) *ast.Crate {
	c := &ast.Crate{Name: name, Items: items, Attrs: attrs, Span: b.Span()}
	c.MaxID = b.next
	return c
}

// Sync records ids allocated after Crate was called.
func (b *Builder) Sync(c *ast.Crate) { c.MaxID = b.next }

func Attr(name string) ast.Attribute { return ast.Attribute{Name: name} }

func InnerAttr(name string) ast.Attribute { return ast.Attribute{Name: name, Inner: true} }

// Visibilities.

func (b *Builder) Priv() ast.Visibility { return ast.Visibility{Kind: ast.VisInherited} }

func (b *Builder) Pub() ast.Visibility {
	return ast.Visibility{Kind: ast.VisPublic, Span: b.Span()}
}

func (b *Builder) PubCrate() ast.Visibility {
	return ast.Visibility{Kind: ast.VisCrate, Span: b.Span()}
}

// PubIn builds pub(in path); "super" and "self" give pub(super) and pub(self).
func (b *Builder) PubIn(path string) ast.Visibility {
	return ast.Visibility{Kind: ast.VisRestricted, Path: b.Path(path), ID: b.ID(), Span: b.Span()}
}

// Items.

func (b *Builder) item(name string, vis ast.Visibility, kind ast.ItemKind) *ast.Item {
	return &ast.Item{Meta: b.meta(), Ident: b.Ident(name), Vis: vis, Kind: kind}
}

func WithAttrs(it *ast.Item, attrs ...ast.Attribute) *ast.Item {
	it.Attrs = append(it.Attrs, attrs...)
	return it
}

func (b *Builder) Mod(name string, vis ast.Visibility, items ...*ast.Item) *ast.Item {
	return b.item(name, vis, &ast.ModItem{Items: items})
}

func (b *Builder) Fn(name string, vis ast.Visibility, params []*ast.Param, body *ast.Block) *ast.Item {
	return b.FnG(name, vis, nil, params, body)
}

func (b *Builder) FnG(name string, vis ast.Visibility, g *ast.Generics, params []*ast.Param, body *ast.Block) *ast.Item {
	return b.item(name, vis, &ast.FnItem{Generics: g, Decl: &ast.FnDecl{Inputs: params}, Body: body})
}

func (b *Builder) Param(pat ast.Pat, ty ast.Ty) *ast.Param {
	return &ast.Param{Meta: b.meta(), Pat: pat, Ty: ty}
}

func (b *Builder) SelfParam() *ast.Param {
	return &ast.Param{Meta: b.meta(), Pat: b.PIdent("self")}
}

func (b *Builder) UnitStruct(name string, vis ast.Visibility) *ast.Item {
	return b.item(name, vis, &ast.StructItem{Data: &ast.VariantData{Kind: ast.DataUnit, CtorID: b.ID()}})
}

func (b *Builder) TupleStruct(name string, vis ast.Visibility, fields ...*ast.FieldDef) *ast.Item {
	return b.item(name, vis, &ast.StructItem{Data: &ast.VariantData{Kind: ast.DataTuple, Fields: fields, CtorID: b.ID()}})
}

func (b *Builder) Struct(name string, vis ast.Visibility, fields ...*ast.FieldDef) *ast.Item {
	return b.item(name, vis, &ast.StructItem{Data: &ast.VariantData{Kind: ast.DataStruct, Fields: fields}})
}

func (b *Builder) Field(name string, vis ast.Visibility, ty ast.Ty) *ast.FieldDef {
	fd := &ast.FieldDef{Meta: b.meta(), Vis: vis, Ty: ty}
	if name != "" {
		id := b.Ident(name)
		fd.Ident = &id
	}
	return fd
}

func (b *Builder) Enum(name string, vis ast.Visibility, variants ...*ast.Variant) *ast.Item {
	return b.item(name, vis, &ast.EnumItem{Variants: variants})
}

func (b *Builder) Variant(name string, kind ast.DataKind, fields ...*ast.FieldDef) *ast.Variant {
	data := &ast.VariantData{Kind: kind, Fields: fields}
	if kind != ast.DataStruct {
		data.CtorID = b.ID()
	}
	return &ast.Variant{Meta: b.meta(), Ident: b.Ident(name), Data: data}
}

func (b *Builder) Trait(name string, vis ast.Visibility, items ...*ast.AssocItem) *ast.Item {
	return b.item(name, vis, &ast.TraitItem{Items: items})
}

func (b *Builder) Impl(trait string, self ast.Ty, items ...*ast.AssocItem) *ast.Item {
	impl := &ast.ImplItem{SelfTy: self, Items: items}
	if trait != "" {
		impl.Trait = &ast.TraitRef{Meta: b.meta(), Path: b.Path(trait)}
	}
	return b.item("", b.Priv(), impl)
}

func (b *Builder) Method(name string, vis ast.Visibility, hasSelf bool, body *ast.Block) *ast.AssocItem {
	decl := &ast.FnDecl{HasSelf: hasSelf}
	if hasSelf {
		decl.Inputs = append(decl.Inputs, b.SelfParam())
	}
	return &ast.AssocItem{Meta: b.meta(), Ident: b.Ident(name), Vis: vis, Kind: &ast.AssocFn{Decl: decl, Body: body}}
}

func (b *Builder) AssocConst(name string, vis ast.Visibility, ty ast.Ty, expr ast.Expr) *ast.AssocItem {
	return &ast.AssocItem{Meta: b.meta(), Ident: b.Ident(name), Vis: vis, Kind: &ast.AssocConst{Ty: ty, Expr: expr}}
}

func (b *Builder) AssocType(name string, ty ast.Ty) *ast.AssocItem {
	return &ast.AssocItem{Meta: b.meta(), Ident: b.Ident(name), Kind: &ast.AssocType{Ty: ty}}
}

func (b *Builder) Const(name string, vis ast.Visibility, ty ast.Ty, expr ast.Expr) *ast.Item {
	return b.item(name, vis, &ast.ConstItem{Ty: ty, Expr: expr})
}

func (b *Builder) Static(name string, vis ast.Visibility, ty ast.Ty, expr ast.Expr) *ast.Item {
	return b.item(name, vis, &ast.StaticItem{Ty: ty, Expr: expr})
}

func (b *Builder) TypeAlias(name string, vis ast.Visibility, ty ast.Ty) *ast.Item {
	return b.item(name, vis, &ast.TypeAliasItem{Ty: ty})
}

func (b *Builder) ExternCrate(name, orig string) *ast.Item {
	return b.item(name, b.Priv(), &ast.ExternCrateItem{Orig: orig})
}

// Use declarations.

func (b *Builder) Use(vis ast.Visibility, tree *ast.UseTree) *ast.Item {
	return b.item("", vis, &ast.UseItem{Tree: tree})
}

func (b *Builder) UseSimple(path string) *ast.UseTree {
	return &ast.UseTree{Meta: b.meta(), Prefix: b.Path(path), Kind: ast.UseSimple}
}

func (b *Builder) UseRename(path, rename string) *ast.UseTree {
	t := b.UseSimple(path)
	id := b.Ident(rename)
	t.Rename = &id
	return t
}

func (b *Builder) UseGlob(path string) *ast.UseTree {
	return &ast.UseTree{Meta: b.meta(), Prefix: b.Path(path), Kind: ast.UseGlob}
}

func (b *Builder) UseNested(path string, trees ...*ast.UseTree) *ast.UseTree {
	return &ast.UseTree{Meta: b.meta(), Prefix: b.Path(path), Kind: ast.UseNested, Nested: trees}
}

// Macros.

func (b *Builder) MacroRules(name string, rule *ast.MacroRule) *ast.Item {
	return b.item(name, b.Priv(), &ast.MacroDefItem{Rule: rule})
}

func (b *Builder) MacroModern(name string, vis ast.Visibility, rule *ast.MacroRule) *ast.Item {
	return b.item(name, vis, &ast.MacroDefItem{Modern: true, Rule: rule})
}

func (b *Builder) Rule(params []ast.MacroParam, items []*ast.Item, block *ast.Block) *ast.MacroRule {
	return &ast.MacroRule{Params: params, Items: items, Block: block, Span: b.Span()}
}

func (b *Builder) Call(path string, args ...ast.MacroArg) *ast.MacroCall {
	return &ast.MacroCall{Meta: b.meta(), Path: b.Path(path), Args: args}
}

func (b *Builder) MacroItem(call *ast.MacroCall) *ast.Item {
	return b.item("", b.Priv(), &ast.MacroCallItem{Call: call})
}

func (b *Builder) MacroStmt(call *ast.MacroCall) *ast.MacroStmt {
	return &ast.MacroStmt{Meta: b.meta(), Call: call}
}

func (b *Builder) MacroExpr(call *ast.MacroCall) *ast.MacroCallExpr {
	return &ast.MacroCallExpr{Meta: b.meta(), Call: call}
}

func (b *Builder) ArgExpr(e ast.Expr) ast.MacroArg { return ast.MacroArg{Expr: e, Span: b.Span()} }

func (b *Builder) ArgIdent(name string) ast.MacroArg {
	id := b.Ident(name)
	return ast.MacroArg{Ident: &id, Span: id.Span}
}

func (b *Builder) MacroVar(name string) *ast.MacroVarExpr {
	return &ast.MacroVarExpr{Meta: b.meta(), Name: name}
}

// Generics.

func (b *Builder) Generics(params ...*ast.GenericParam) *ast.Generics {
	return &ast.Generics{Params: params, Span: b.Span()}
}

func (b *Builder) TyParam(name string, def ast.Ty) *ast.GenericParam {
	return &ast.GenericParam{Meta: b.meta(), Ident: b.Ident(name), Kind: ast.ParamType, Default: def}
}

// Statements and expressions.

func (b *Builder) Block(stmts ...ast.Stmt) *ast.Block {
	return &ast.Block{Meta: b.meta(), Stmts: stmts}
}

func (b *Builder) Let(pat ast.Pat, init ast.Expr) *ast.LetStmt {
	return &ast.LetStmt{Meta: b.meta(), Pat: pat, Init: init}
}

func (b *Builder) ItemStmt(it *ast.Item) *ast.ItemStmt {
	return &ast.ItemStmt{Meta: b.meta(), Item: it}
}

func (b *Builder) Stmt(e ast.Expr) *ast.ExprStmt {
	return &ast.ExprStmt{Meta: b.meta(), X: e, Semi: true}
}

func (b *Builder) Tail(e ast.Expr) *ast.ExprStmt {
	return &ast.ExprStmt{Meta: b.meta(), X: e}
}

func (b *Builder) PathExpr(path string) *ast.PathExpr {
	return &ast.PathExpr{Meta: b.meta(), Path: b.Path(path)}
}

func (b *Builder) Lit(v string) *ast.LitExpr {
	return &ast.LitExpr{Meta: b.meta(), Value: v}
}

func (b *Builder) CallExpr(fn ast.Expr, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Meta: b.meta(), Func: fn, Args: args}
}

func (b *Builder) MethodCall(recv ast.Expr, name string, args ...ast.Expr) *ast.MethodCallExpr {
	return &ast.MethodCallExpr{Meta: b.meta(), Receiver: recv, Method: ast.PathSegment{Ident: b.Ident(name)}, Args: args}
}

func (b *Builder) FieldExpr(base ast.Expr, name string) *ast.FieldExpr {
	return &ast.FieldExpr{Meta: b.meta(), Base: base, Field: b.Ident(name)}
}

func (b *Builder) Closure(params []*ast.Param, body ast.Expr) *ast.ClosureExpr {
	return &ast.ClosureExpr{Meta: b.meta(), Params: params, Body: body}
}

func (b *Builder) BlockExpr(blk *ast.Block) *ast.BlockExpr {
	return &ast.BlockExpr{Meta: b.meta(), Block: blk}
}

func (b *Builder) Loop(label string, body *ast.Block) *ast.LoopExpr {
	l := &ast.LoopExpr{Meta: b.meta(), Body: body}
	if label != "" {
		id := b.Ident(label)
		l.Label = &id
	}
	return l
}

func (b *Builder) Break(label string) *ast.BreakExpr {
	br := &ast.BreakExpr{Meta: b.meta()}
	if label != "" {
		id := b.Ident(label)
		br.Label = &id
	}
	return br
}

func (b *Builder) IfLet(pat ast.Pat, scrutinee ast.Expr, then *ast.Block, els ast.Expr) *ast.IfExpr {
	cond := &ast.LetExpr{Meta: b.meta(), Pat: pat, Scrutinee: scrutinee}
	return &ast.IfExpr{Meta: b.meta(), Cond: cond, Then: then, Else: els}
}

func (b *Builder) Match(scrutinee ast.Expr, arms ...*ast.Arm) *ast.MatchExpr {
	return &ast.MatchExpr{Meta: b.meta(), Scrutinee: scrutinee, Arms: arms}
}

func (b *Builder) Arm(pat ast.Pat, body ast.Expr) *ast.Arm {
	return &ast.Arm{Meta: b.meta(), Pat: pat, Body: body}
}

func (b *Builder) StructExpr(path string, fields ...*ast.FieldInit) *ast.StructExpr {
	return &ast.StructExpr{Meta: b.meta(), Path: b.Path(path), Fields: fields}
}

func (b *Builder) FieldInit(name string, e ast.Expr) *ast.FieldInit {
	return &ast.FieldInit{Ident: b.Ident(name), Expr: e, Span: b.Span()}
}

// Patterns.

func (b *Builder) PIdent(name string) *ast.IdentPat {
	return &ast.IdentPat{Meta: b.meta(), Ident: b.Ident(name)}
}

func (b *Builder) PWild() *ast.WildPat { return &ast.WildPat{Meta: b.meta()} }

func (b *Builder) PPath(path string) *ast.PathPat {
	return &ast.PathPat{Meta: b.meta(), Path: b.Path(path)}
}

func (b *Builder) PTupleStruct(path string, elems ...ast.Pat) *ast.TupleStructPat {
	return &ast.TupleStructPat{Meta: b.meta(), Path: b.Path(path), Elems: elems}
}

func (b *Builder) PTuple(elems ...ast.Pat) *ast.TuplePat {
	return &ast.TuplePat{Meta: b.meta(), Elems: elems}
}

func (b *Builder) POr(alts ...ast.Pat) *ast.OrPat {
	return &ast.OrPat{Meta: b.meta(), Alts: alts}
}

// Types.

func (b *Builder) TPath(path string) *ast.PathTy {
	return &ast.PathTy{Meta: b.meta(), Path: b.Path(path)}
}

func (b *Builder) TRef(elem ast.Ty) *ast.RefTy {
	return &ast.RefTy{Meta: b.meta(), Elem: elem}
}
