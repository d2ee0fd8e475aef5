package expand

import (
	"strings"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/hygiene"
)

// copier deep-copies a tree. In marking mode it is copying the macro body:
// identifiers get the expansion mark, spans point at the call site and
// `$name` placeholders are replaced by arguments, which are copied in plain
// mode.
type copier struct {
	t       *Transcriber
	mark    hygiene.Mark
	span    ast.Span
	env     map[string]ast.MacroArg
	marking bool
}

func (c *copier) plain() *copier {
	return &copier{t: c.t, mark: c.mark, span: c.span, marking: false}
}

func (c *copier) sp(s ast.Span) ast.Span {
	if c.marking {
		return c.span
	}
	return s
}

func (c *copier) meta(m ast.Meta) ast.Meta {
	return ast.Meta{ID: c.t.NewID(), Span: c.sp(m.Span)}
}

func (c *copier) ident(id ast.Ident) ast.Ident {
	if !c.marking {
		return id
	}
	if strings.HasPrefix(id.Name, "$") {
		if arg, ok := c.env[id.Name[1:]]; ok && arg.Ident != nil {
			return *arg.Ident
		}
	}
	id.Ctxt = c.t.Hygiene.ApplyMark(id.Ctxt, c.mark)
	id.Span = c.span
	return id
}

func (c *copier) identPtr(id *ast.Ident) *ast.Ident {
	if id == nil {
		return nil
	}
	out := c.ident(*id)
	return &out
}

func (c *copier) attrs(a ast.Attrs) ast.Attrs {
	if a == nil {
		return nil
	}
	out := make(ast.Attrs, len(a))
	copy(out, a)
	for i := range out {
		out[i].Span = c.sp(out[i].Span)
	}
	return out
}

func (c *copier) vis(v ast.Visibility) ast.Visibility {
	out := ast.Visibility{Kind: v.Kind, Path: c.path(v.Path), Span: c.sp(v.Span)}
	if v.ID != ast.DummyNodeID {
		out.ID = c.t.NewID()
	}
	return out
}

func (c *copier) path(p *ast.Path) *ast.Path {
	if p == nil {
		return nil
	}
	out := &ast.Path{Span: c.sp(p.Span), Global: p.Global, Segments: make([]ast.PathSegment, len(p.Segments))}
	for i, seg := range p.Segments {
		out.Segments[i] = c.segment(seg)
	}
	return out
}

func (c *copier) segment(seg ast.PathSegment) ast.PathSegment {
	return ast.PathSegment{Ident: c.ident(seg.Ident), Args: c.genericArgs(seg.Args)}
}

func (c *copier) genericArgs(g *ast.GenericArgs) *ast.GenericArgs {
	if g == nil {
		return nil
	}
	out := &ast.GenericArgs{Span: c.sp(g.Span)}
	for _, t := range g.Types {
		out.Types = append(out.Types, c.ty(t))
	}
	for _, b := range g.Bindings {
		out.Bindings = append(out.Bindings, ast.AssocBinding{Ident: c.ident(b.Ident), Ty: c.ty(b.Ty)})
	}
	return out
}

func (c *copier) paths(ps []*ast.Path) []*ast.Path {
	if ps == nil {
		return nil
	}
	out := make([]*ast.Path, len(ps))
	for i, p := range ps {
		out[i] = c.path(p)
	}
	return out
}

func (c *copier) qself(q *ast.QSelf) *ast.QSelf {
	if q == nil {
		return nil
	}
	return &ast.QSelf{Ty: c.ty(q.Ty), Position: q.Position}
}

func (c *copier) generics(g *ast.Generics) *ast.Generics {
	if g == nil {
		return nil
	}
	out := &ast.Generics{Span: c.sp(g.Span)}
	for _, p := range g.Params {
		out.Params = append(out.Params, &ast.GenericParam{
			Meta:    c.meta(p.Meta),
			Ident:   c.ident(p.Ident),
			Kind:    p.Kind,
			Bounds:  c.paths(p.Bounds),
			Default: c.ty(p.Default),
			Ty:      c.ty(p.Ty),
		})
	}
	for _, w := range g.Where {
		out.Where = append(out.Where, &ast.WherePredicate{Ty: c.ty(w.Ty), Bounds: c.paths(w.Bounds), Span: c.sp(w.Span)})
	}
	return out
}

func (c *copier) item(it *ast.Item) *ast.Item {
	if it == nil {
		return nil
	}
	return &ast.Item{
		Meta:  c.meta(it.Meta),
		Ident: c.ident(it.Ident),
		Vis:   c.vis(it.Vis),
		Attrs: c.attrs(it.Attrs),
		Kind:  c.itemKind(it.Kind),
	}
}

func (c *copier) items(its []*ast.Item) []*ast.Item {
	if its == nil {
		return nil
	}
	out := make([]*ast.Item, len(its))
	for i, it := range its {
		out[i] = c.item(it)
	}
	return out
}

func (c *copier) itemKind(k ast.ItemKind) ast.ItemKind {
	switch k := k.(type) {
	case *ast.ModItem:
		return &ast.ModItem{Items: c.items(k.Items)}
	case *ast.FnItem:
		return &ast.FnItem{Generics: c.generics(k.Generics), Decl: c.decl(k.Decl), Body: c.block(k.Body)}
	case *ast.StructItem:
		return &ast.StructItem{Generics: c.generics(k.Generics), Data: c.variantData(k.Data)}
	case *ast.EnumItem:
		out := &ast.EnumItem{Generics: c.generics(k.Generics)}
		for _, v := range k.Variants {
			out.Variants = append(out.Variants, &ast.Variant{
				Meta:         c.meta(v.Meta),
				Ident:        c.ident(v.Ident),
				Data:         c.variantData(v.Data),
				Discriminant: c.expr(v.Discriminant),
			})
		}
		return out
	case *ast.TraitItem:
		return &ast.TraitItem{Generics: c.generics(k.Generics), Bounds: c.paths(k.Bounds), Items: c.assocItems(k.Items)}
	case *ast.ImplItem:
		out := &ast.ImplItem{Generics: c.generics(k.Generics), SelfTy: c.ty(k.SelfTy), Items: c.assocItems(k.Items)}
		if k.Trait != nil {
			out.Trait = &ast.TraitRef{Meta: c.meta(k.Trait.Meta), Path: c.path(k.Trait.Path)}
		}
		return out
	case *ast.UseItem:
		return &ast.UseItem{Tree: c.useTree(k.Tree)}
	case *ast.ExternCrateItem:
		return &ast.ExternCrateItem{Orig: k.Orig}
	case *ast.ConstItem:
		return &ast.ConstItem{Ty: c.ty(k.Ty), Expr: c.expr(k.Expr)}
	case *ast.StaticItem:
		return &ast.StaticItem{Ty: c.ty(k.Ty), Expr: c.expr(k.Expr), Mutable: k.Mutable}
	case *ast.TypeAliasItem:
		return &ast.TypeAliasItem{Generics: c.generics(k.Generics), Ty: c.ty(k.Ty)}
	case *ast.MacroDefItem:
		return &ast.MacroDefItem{Modern: k.Modern, Rule: c.rule(k.Rule)}
	case *ast.MacroCallItem:
		return &ast.MacroCallItem{Call: c.call(k.Call)}
	}
	return k
}

func (c *copier) useTree(t *ast.UseTree) *ast.UseTree {
	if t == nil {
		return nil
	}
	out := &ast.UseTree{Meta: c.meta(t.Meta), Prefix: c.path(t.Prefix), Kind: t.Kind, Rename: c.identPtr(t.Rename)}
	for _, n := range t.Nested {
		out.Nested = append(out.Nested, c.useTree(n))
	}
	return out
}

func (c *copier) variantData(d *ast.VariantData) *ast.VariantData {
	if d == nil {
		return nil
	}
	out := &ast.VariantData{Kind: d.Kind}
	if d.CtorID != ast.DummyNodeID {
		out.CtorID = c.t.NewID()
	}
	for _, f := range d.Fields {
		out.Fields = append(out.Fields, &ast.FieldDef{Meta: c.meta(f.Meta), Ident: c.identPtr(f.Ident), Vis: c.vis(f.Vis), Ty: c.ty(f.Ty)})
	}
	return out
}

func (c *copier) assocItems(items []*ast.AssocItem) []*ast.AssocItem {
	var out []*ast.AssocItem
	for _, ai := range items {
		n := &ast.AssocItem{Meta: c.meta(ai.Meta), Ident: c.ident(ai.Ident), Vis: c.vis(ai.Vis), Attrs: c.attrs(ai.Attrs)}
		switch k := ai.Kind.(type) {
		case *ast.AssocFn:
			n.Kind = &ast.AssocFn{Generics: c.generics(k.Generics), Decl: c.decl(k.Decl), Body: c.block(k.Body)}
		case *ast.AssocConst:
			n.Kind = &ast.AssocConst{Ty: c.ty(k.Ty), Expr: c.expr(k.Expr)}
		case *ast.AssocType:
			n.Kind = &ast.AssocType{Bounds: c.paths(k.Bounds), Ty: c.ty(k.Ty)}
		}
		out = append(out, n)
	}
	return out
}

func (c *copier) decl(d *ast.FnDecl) *ast.FnDecl {
	if d == nil {
		return nil
	}
	return &ast.FnDecl{Inputs: c.params(d.Inputs), Output: c.ty(d.Output), HasSelf: d.HasSelf}
}

func (c *copier) params(ps []*ast.Param) []*ast.Param {
	if ps == nil {
		return nil
	}
	out := make([]*ast.Param, len(ps))
	for i, p := range ps {
		out[i] = &ast.Param{Meta: c.meta(p.Meta), Pat: c.pat(p.Pat), Ty: c.ty(p.Ty)}
	}
	return out
}

func (c *copier) rule(r *ast.MacroRule) *ast.MacroRule {
	if r == nil {
		return nil
	}
	return &ast.MacroRule{
		Params: append([]ast.MacroParam(nil), r.Params...),
		Items:  c.items(r.Items),
		Block:  c.block(r.Block),
		Span:   c.sp(r.Span),
	}
}

func (c *copier) call(m *ast.MacroCall) *ast.MacroCall {
	if m == nil {
		return nil
	}
	out := &ast.MacroCall{Meta: c.meta(m.Meta), Path: c.path(m.Path)}
	for _, a := range m.Args {
		out.Args = append(out.Args, ast.MacroArg{
			Ident: c.identPtr(a.Ident),
			Expr:  c.expr(a.Expr),
			Ty:    c.ty(a.Ty),
			Span:  c.sp(a.Span),
		})
	}
	return out
}

func (c *copier) block(b *ast.Block) *ast.Block {
	if b == nil {
		return nil
	}
	out := &ast.Block{Meta: c.meta(b.Meta)}
	for _, s := range b.Stmts {
		out.Stmts = append(out.Stmts, c.stmt(s))
	}
	return out
}

func (c *copier) stmt(s ast.Stmt) ast.Stmt {
	switch s := s.(type) {
	case *ast.LetStmt:
		return &ast.LetStmt{Meta: c.meta(s.Meta), Pat: c.pat(s.Pat), Ty: c.ty(s.Ty), Init: c.expr(s.Init), Else: c.block(s.Else)}
	case *ast.ItemStmt:
		return &ast.ItemStmt{Meta: c.meta(s.Meta), Item: c.item(s.Item)}
	case *ast.ExprStmt:
		return &ast.ExprStmt{Meta: c.meta(s.Meta), X: c.expr(s.X), Semi: s.Semi}
	case *ast.MacroStmt:
		return &ast.MacroStmt{Meta: c.meta(s.Meta), Call: c.call(s.Call)}
	}
	return s
}

func (c *copier) exprs(es []ast.Expr) []ast.Expr {
	if es == nil {
		return nil
	}
	out := make([]ast.Expr, len(es))
	for i, e := range es {
		out[i] = c.expr(e)
	}
	return out
}

func (c *copier) labelPtr(l *ast.Ident) *ast.Ident { return c.identPtr(l) }

// argExpr copies an argument into expression position.
func (c *copier) argExpr(arg ast.MacroArg) ast.Expr {
	p := c.plain()
	if arg.Expr != nil {
		return p.expr(arg.Expr)
	}
	id := *arg.Ident
	return &ast.PathExpr{
		Meta: ast.Meta{ID: c.t.NewID(), Span: id.Span},
		Path: &ast.Path{Span: id.Span, Segments: []ast.PathSegment{{Ident: id}}},
	}
}

func (c *copier) argTy(arg ast.MacroArg) ast.Ty {
	p := c.plain()
	if arg.Ty != nil {
		return p.ty(arg.Ty)
	}
	id := *arg.Ident
	return &ast.PathTy{
		Meta: ast.Meta{ID: c.t.NewID(), Span: id.Span},
		Path: &ast.Path{Span: id.Span, Segments: []ast.PathSegment{{Ident: id}}},
	}
}

func (c *copier) expr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	switch e := e.(type) {
	case *ast.MacroVarExpr:
		if arg, ok := c.env[e.Name]; ok && c.marking && (arg.Expr != nil || arg.Ident != nil) {
			return c.argExpr(arg)
		}
		return &ast.MacroVarExpr{Meta: c.meta(e.Meta), Name: e.Name}
	case *ast.PathExpr:
		return &ast.PathExpr{Meta: c.meta(e.Meta), QSelf: c.qself(e.QSelf), Path: c.path(e.Path)}
	case *ast.LitExpr:
		return &ast.LitExpr{Meta: c.meta(e.Meta), Value: e.Value}
	case *ast.CallExpr:
		return &ast.CallExpr{Meta: c.meta(e.Meta), Func: c.expr(e.Func), Args: c.exprs(e.Args)}
	case *ast.MethodCallExpr:
		return &ast.MethodCallExpr{Meta: c.meta(e.Meta), Receiver: c.expr(e.Receiver), Method: c.segment(e.Method), Args: c.exprs(e.Args)}
	case *ast.FieldExpr:
		return &ast.FieldExpr{Meta: c.meta(e.Meta), Base: c.expr(e.Base), Field: c.ident(e.Field)}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Meta: c.meta(e.Meta), Op: e.Op, L: c.expr(e.L), R: c.expr(e.R)}
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{Meta: c.meta(e.Meta), Op: e.Op, X: c.expr(e.X)}
	case *ast.AssignExpr:
		return &ast.AssignExpr{Meta: c.meta(e.Meta), Op: e.Op, L: c.expr(e.L), R: c.expr(e.R)}
	case *ast.RefExpr:
		return &ast.RefExpr{Meta: c.meta(e.Meta), Mutable: e.Mutable, X: c.expr(e.X)}
	case *ast.CastExpr:
		return &ast.CastExpr{Meta: c.meta(e.Meta), X: c.expr(e.X), Ty: c.ty(e.Ty)}
	case *ast.BlockExpr:
		return &ast.BlockExpr{Meta: c.meta(e.Meta), Label: c.labelPtr(e.Label), Block: c.block(e.Block)}
	case *ast.LetExpr:
		return &ast.LetExpr{Meta: c.meta(e.Meta), Pat: c.pat(e.Pat), Scrutinee: c.expr(e.Scrutinee)}
	case *ast.IfExpr:
		return &ast.IfExpr{Meta: c.meta(e.Meta), Cond: c.expr(e.Cond), Then: c.block(e.Then), Else: c.expr(e.Else)}
	case *ast.WhileExpr:
		return &ast.WhileExpr{Meta: c.meta(e.Meta), Label: c.labelPtr(e.Label), Cond: c.expr(e.Cond), Body: c.block(e.Body)}
	case *ast.LoopExpr:
		return &ast.LoopExpr{Meta: c.meta(e.Meta), Label: c.labelPtr(e.Label), Body: c.block(e.Body)}
	case *ast.ForExpr:
		return &ast.ForExpr{Meta: c.meta(e.Meta), Label: c.labelPtr(e.Label), Pat: c.pat(e.Pat), Iter: c.expr(e.Iter), Body: c.block(e.Body)}
	case *ast.MatchExpr:
		out := &ast.MatchExpr{Meta: c.meta(e.Meta), Scrutinee: c.expr(e.Scrutinee)}
		for _, a := range e.Arms {
			out.Arms = append(out.Arms, &ast.Arm{Meta: c.meta(a.Meta), Pat: c.pat(a.Pat), Guard: c.expr(a.Guard), Body: c.expr(a.Body)})
		}
		return out
	case *ast.ClosureExpr:
		return &ast.ClosureExpr{Meta: c.meta(e.Meta), Params: c.params(e.Params), Output: c.ty(e.Output), Body: c.expr(e.Body)}
	case *ast.BreakExpr:
		return &ast.BreakExpr{Meta: c.meta(e.Meta), Label: c.labelPtr(e.Label), Value: c.expr(e.Value)}
	case *ast.ContinueExpr:
		return &ast.ContinueExpr{Meta: c.meta(e.Meta), Label: c.labelPtr(e.Label)}
	case *ast.ReturnExpr:
		return &ast.ReturnExpr{Meta: c.meta(e.Meta), Value: c.expr(e.Value)}
	case *ast.StructExpr:
		out := &ast.StructExpr{Meta: c.meta(e.Meta), Path: c.path(e.Path), Base: c.expr(e.Base)}
		for _, f := range e.Fields {
			out.Fields = append(out.Fields, &ast.FieldInit{Ident: c.ident(f.Ident), Expr: c.expr(f.Expr), Shorthand: f.Shorthand, Span: c.sp(f.Span)})
		}
		return out
	case *ast.TupleExpr:
		return &ast.TupleExpr{Meta: c.meta(e.Meta), Elems: c.exprs(e.Elems)}
	case *ast.ArrayExpr:
		return &ast.ArrayExpr{Meta: c.meta(e.Meta), Elems: c.exprs(e.Elems)}
	case *ast.IndexExpr:
		return &ast.IndexExpr{Meta: c.meta(e.Meta), X: c.expr(e.X), Index: c.expr(e.Index)}
	case *ast.RangeExpr:
		return &ast.RangeExpr{Meta: c.meta(e.Meta), Lo: c.expr(e.Lo), Hi: c.expr(e.Hi)}
	case *ast.TryExpr:
		return &ast.TryExpr{Meta: c.meta(e.Meta), X: c.expr(e.X)}
	case *ast.ParenExpr:
		return &ast.ParenExpr{Meta: c.meta(e.Meta), X: c.expr(e.X)}
	case *ast.MacroCallExpr:
		return &ast.MacroCallExpr{Meta: c.meta(e.Meta), Call: c.call(e.Call)}
	}
	return e
}

func (c *copier) pats(ps []ast.Pat) []ast.Pat {
	if ps == nil {
		return nil
	}
	out := make([]ast.Pat, len(ps))
	for i, p := range ps {
		out[i] = c.pat(p)
	}
	return out
}

func (c *copier) pat(p ast.Pat) ast.Pat {
	if p == nil {
		return nil
	}
	switch p := p.(type) {
	case *ast.WildPat:
		return &ast.WildPat{Meta: c.meta(p.Meta)}
	case *ast.RestPat:
		return &ast.RestPat{Meta: c.meta(p.Meta)}
	case *ast.IdentPat:
		return &ast.IdentPat{Meta: c.meta(p.Meta), Ident: c.ident(p.Ident), ByRef: p.ByRef, Mutable: p.Mutable, Sub: c.pat(p.Sub)}
	case *ast.PathPat:
		return &ast.PathPat{Meta: c.meta(p.Meta), QSelf: c.qself(p.QSelf), Path: c.path(p.Path)}
	case *ast.TupleStructPat:
		return &ast.TupleStructPat{Meta: c.meta(p.Meta), Path: c.path(p.Path), Elems: c.pats(p.Elems)}
	case *ast.StructPat:
		out := &ast.StructPat{Meta: c.meta(p.Meta), Path: c.path(p.Path), Rest: p.Rest}
		for _, f := range p.Fields {
			out.Fields = append(out.Fields, &ast.FieldPat{Ident: c.ident(f.Ident), Pat: c.pat(f.Pat), Shorthand: f.Shorthand, Span: c.sp(f.Span)})
		}
		return out
	case *ast.TuplePat:
		return &ast.TuplePat{Meta: c.meta(p.Meta), Elems: c.pats(p.Elems)}
	case *ast.SlicePat:
		return &ast.SlicePat{Meta: c.meta(p.Meta), Elems: c.pats(p.Elems)}
	case *ast.RefPat:
		return &ast.RefPat{Meta: c.meta(p.Meta), Mutable: p.Mutable, Inner: c.pat(p.Inner)}
	case *ast.LitPat:
		return &ast.LitPat{Meta: c.meta(p.Meta), Expr: c.expr(p.Expr)}
	case *ast.RangePat:
		return &ast.RangePat{Meta: c.meta(p.Meta), Lo: c.expr(p.Lo), Hi: c.expr(p.Hi)}
	case *ast.OrPat:
		return &ast.OrPat{Meta: c.meta(p.Meta), Alts: c.pats(p.Alts)}
	}
	return p
}

func (c *copier) tys(ts []ast.Ty) []ast.Ty {
	if ts == nil {
		return nil
	}
	out := make([]ast.Ty, len(ts))
	for i, t := range ts {
		out[i] = c.ty(t)
	}
	return out
}

func (c *copier) ty(t ast.Ty) ast.Ty {
	if t == nil {
		return nil
	}
	switch t := t.(type) {
	case *ast.MacroVarTy:
		if arg, ok := c.env[t.Name]; ok && c.marking && (arg.Ty != nil || arg.Ident != nil) {
			return c.argTy(arg)
		}
		return &ast.MacroVarTy{Meta: c.meta(t.Meta), Name: t.Name}
	case *ast.PathTy:
		return &ast.PathTy{Meta: c.meta(t.Meta), QSelf: c.qself(t.QSelf), Path: c.path(t.Path)}
	case *ast.RefTy:
		return &ast.RefTy{Meta: c.meta(t.Meta), Mutable: t.Mutable, Elem: c.ty(t.Elem)}
	case *ast.PtrTy:
		return &ast.PtrTy{Meta: c.meta(t.Meta), Mutable: t.Mutable, Elem: c.ty(t.Elem)}
	case *ast.TupleTy:
		return &ast.TupleTy{Meta: c.meta(t.Meta), Elems: c.tys(t.Elems)}
	case *ast.SliceTy:
		return &ast.SliceTy{Meta: c.meta(t.Meta), Elem: c.ty(t.Elem)}
	case *ast.ArrayTy:
		return &ast.ArrayTy{Meta: c.meta(t.Meta), Elem: c.ty(t.Elem), Len: c.expr(t.Len)}
	case *ast.FnPtrTy:
		return &ast.FnPtrTy{Meta: c.meta(t.Meta), Inputs: c.tys(t.Inputs), Output: c.ty(t.Output)}
	case *ast.InferTy:
		return &ast.InferTy{Meta: c.meta(t.Meta)}
	case *ast.NeverTy:
		return &ast.NeverTy{Meta: c.meta(t.Meta)}
	case *ast.TraitObjectTy:
		return &ast.TraitObjectTy{Meta: c.meta(t.Meta), Impl: t.Impl, Bounds: c.paths(t.Bounds)}
	}
	return t
}
