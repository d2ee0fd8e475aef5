package resolve

import (
	"context"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/hygiene"
)

// lateState is the context of the body walk that is not a rib.
type lateState struct {
	// traitModule and traitPath describe the trait of the impl being
	// walked, if any.
	traitModule ModuleID
	traitPath   string
	selfTy      ast.Ty
	// items holds the item list of every normal module for placing
	// suggested use declarations.
	items      map[ModuleID][]*ast.Item
	macroNames map[string]bool
}

// patSource is where a pattern appears; it decides which duplicate
// bindings are allowed.
type patSource uint8

const (
	patMatch patSource = iota
	patIfLet
	patWhileLet
	patLet
	patFor
	patFnParam
)

func (s patSource) descr() string {
	switch s {
	case patMatch:
		return "match binding"
	case patIfLet:
		return "if let binding"
	case patWhileLet:
		return "while let binding"
	case patLet:
		return "let binding"
	case patFor:
		return "for binding"
	}
	return "function parameter"
}

// resolveCrate walks every body of the local crate.
func (r *Resolver) resolveCrate(ctx context.Context) error {
	r.late = lateState{
		items:      map[ModuleID][]*ast.Item{r.graphRoot: r.crates[LocalCrate].Items},
		macroNames: make(map[string]bool),
	}
	for _, md := range r.macros {
		r.late.macroNames[md.Name] = true
	}
	for name := range r.macroUsePrelude {
		r.late.macroNames[name] = true
	}

	var err error
	r.withScope(r.graphRoot, func() {
		for _, it := range r.crates[LocalCrate].Items {
			if err = ctx.Err(); err != nil {
				return
			}
			r.resolveItem(it)
		}
	})
	return err
}

func (r *Resolver) resolveItem(it *ast.Item) {
	if it == nil {
		return
	}
	switch k := it.Kind.(type) {
	case *ast.ModItem:
		m, ok := r.moduleMap[DefID{Crate: LocalCrate, Node: it.ID}]
		if !ok {
			return
		}
		r.late.items[m] = k.Items
		r.withScope(m, func() {
			for _, child := range k.Items {
				r.resolveItem(child)
			}
		})

	case *ast.FnItem:
		r.withTypeParams(k.Generics, ribItem, func() {
			r.resolveGenerics(k.Generics)
			r.resolveFn(newRib(ribItem), k.Decl, 0, it.Ident.Ctxt, func() { r.resolveBlock(k.Body) })
		})

	case *ast.StructItem:
		r.withTypeParams(k.Generics, ribItem, func() {
			r.resolveGenerics(k.Generics)
			r.resolveVariantData(k.Data)
		})

	case *ast.EnumItem:
		r.withTypeParams(k.Generics, ribItem, func() {
			r.resolveGenerics(k.Generics)
			for _, v := range k.Variants {
				r.resolveVariantData(v.Data)
				if v.Discriminant != nil {
					r.withConstantRib(func() { r.resolveExpr(v.Discriminant, nil) })
				}
			}
		})

	case *ast.TypeAliasItem:
		r.withTypeParams(k.Generics, ribItem, func() {
			r.resolveGenerics(k.Generics)
			r.resolveTy(k.Ty)
		})

	case *ast.TraitItem:
		r.resolveTrait(it, k)

	case *ast.ImplItem:
		r.resolveImpl(it, k)

	case *ast.ConstItem:
		r.withItemRib(func() {
			r.resolveTy(k.Ty)
			r.withConstantRib(func() { r.resolveExpr(k.Expr, nil) })
		})

	case *ast.StaticItem:
		r.withItemRib(func() {
			r.resolveTy(k.Ty)
			r.withConstantRib(func() { r.resolveExpr(k.Expr, nil) })
		})

	case *ast.UseItem:
		r.resolveUseTree(it.ID, k.Tree, nil)

	case *ast.MacroCallItem:
		for _, child := range k.Expanded {
			r.resolveItem(child)
		}
	}
}

func (r *Resolver) resolveVariantData(data *ast.VariantData) {
	if data == nil {
		return
	}
	for _, f := range data.Fields {
		r.resolveTy(f.Ty)
	}
}

// resolveUseTree checks the prefix of `use a::b::{};`, which imports
// nothing and so never became a directive.
func (r *Resolver) resolveUseTree(id ast.NodeID, tree *ast.UseTree, prefix []ast.Ident) {
	if tree == nil || tree.Kind != ast.UseNested {
		return
	}
	path := append(append([]ast.Ident(nil), prefix...), pathIdents(tree.Prefix)...)
	if len(tree.Nested) > 0 {
		for _, n := range tree.Nested {
			r.resolveUseTree(n.ID, n, path)
		}
		return
	}
	if len(path) == 0 {
		return
	}
	res := r.resolvePath(path, nil, true, tree.Span, true)
	switch res.Kind {
	case PathModule:
		if m, ok := res.Module.Module(); ok {
			r.recordDef(id, PathResolution{BaseDef: r.modules[m].Def})
		}
	case PathFailed:
		r.emitLocal(diag.Errorf(diag.KindUnresolved, "E0433", res.Span, "failed to resolve. %s", res.Msg).
			Label(res.Span, "%s", res.Msg))
		r.recordDef(id, PathResolution{BaseDef: errDef})
	case PathNonModule:
		if !res.Res.BaseDef.IsErr() {
			r.emitLocal(diag.Errorf(diag.KindUnresolved, "E0577", tree.Span, "expected module or enum, found %s `%s`",
				res.Res.BaseDef.KindName(), pathString(path)).
				Label(tree.Span, "not a module or enum"))
		}
		r.recordDef(id, PathResolution{BaseDef: errDef})
	}
}

// withTypeParams pushes a rib with the type parameters of g. The rib is
// pushed even when g declares none so item boundaries stay visible.
func (r *Resolver) withTypeParams(g *ast.Generics, kind ribKind, fn func()) {
	rb := newRib(kind)
	if g != nil {
		seen := make(map[ribKey]ast.Span)
		for _, p := range g.Params {
			if p.Kind != ast.ParamType {
				continue
			}
			ctxt := r.hyg.Modern(p.Ident.Ctxt)
			key := ribKey{name: p.Ident.Name, ctxt: ctxt}
			if first, dup := seen[key]; dup {
				r.emitLocal(diag.Errorf(diag.KindConflict, "E0403", p.Span,
					"the name `%s` is already used for a type parameter in this type parameter list", p.Ident.Name).
					Label(p.Span, "already used").
					Label(first, "first use of `%s`", p.Ident.Name))
			} else {
				seen[key] = p.Span
			}
			def := Def{Kind: DefTyParam, ID: DefID{Crate: LocalCrate, Node: p.ID}}
			rb.bind(p.Ident.Name, ctxt, def)
			r.recordDef(p.ID, PathResolution{BaseDef: def})
		}
	}
	r.withRib(TypeNS, rb, fn)
}

// resolveGenerics resolves bounds, defaults and where clauses. A default
// may not name its own or a later parameter.
func (r *Resolver) resolveGenerics(g *ast.Generics) {
	if g == nil {
		return
	}
	ban := newRib(ribForwardTyParamBan)
	defaulted := false
	for _, p := range g.Params {
		if p.Kind != ast.ParamType {
			continue
		}
		if p.Default != nil {
			defaulted = true
		}
		if defaulted {
			ban.bind(p.Ident.Name, r.hyg.Modern(p.Ident.Ctxt), errDef)
		}
	}

	for _, p := range g.Params {
		switch p.Kind {
		case ast.ParamType:
			for _, b := range p.Bounds {
				r.resolveTraitBound(b)
			}
			if p.Default != nil {
				r.withRib(TypeNS, ban, func() { r.resolveTy(p.Default) })
			}
			ban.unbind(p.Ident.Name, r.hyg.Modern(p.Ident.Ctxt))
		case ast.ParamConst:
			r.resolveTy(p.Ty)
		}
	}
	for _, w := range g.Where {
		r.resolveTy(w.Ty)
		for _, b := range w.Bounds {
			r.resolveTraitBound(b)
		}
	}
}

func (r *Resolver) resolveTraitBound(p *ast.Path) {
	r.smartResolvePath(ast.DummyNodeID, nil, p, pathCtx{src: srcTrait})
}

// resolveFn binds the parameters of decl in a fresh value rib of kind
// fnRib, then runs body. selfID is the method declaring a `self` receiver.
func (r *Resolver) resolveFn(fnRib *rib, decl *ast.FnDecl, selfID ast.NodeID, selfCtxt hygiene.SyntaxContext, body func()) {
	labels := newRib(fnRib.kind)
	labels.closure = fnRib.closure
	r.withRib(ValueNS, fnRib, func() {
		r.withLabelRib(labels, func() {
			if decl != nil {
				if decl.HasSelf && !explicitSelf(decl) {
					fnRib.bind(ast.KwSelfValue, selfCtxt, Def{Kind: DefLocal, Local: selfID})
				}
				bindings := make(map[ribKey]ast.NodeID)
				for _, p := range decl.Inputs {
					r.resolvePattern(p.Pat, patFnParam, bindings)
					r.resolveTy(p.Ty)
				}
				r.resolveTy(decl.Output)
			}
			body()
		})
	})
}

// explicitSelf reports whether the first parameter is a `self` pattern,
// which then binds the receiver itself.
func explicitSelf(decl *ast.FnDecl) bool {
	if len(decl.Inputs) == 0 {
		return false
	}
	p, ok := decl.Inputs[0].Pat.(*ast.IdentPat)
	return ok && p.Ident.Name == ast.KwSelfValue
}

func (r *Resolver) withItemRib(fn func()) {
	r.withRibs(newRib(ribItem), newRib(ribItem), fn)
}

func (r *Resolver) withConstantRib(fn func()) {
	r.withRib(ValueNS, newRib(ribConstant), fn)
}

func (r *Resolver) withSelfRib(def Def, fn func()) {
	rb := newRib(ribNormal)
	rb.bind(ast.KwSelfType, hygiene.EmptyContext, def)
	r.withRib(TypeNS, rb, fn)
}

func (r *Resolver) resolveTrait(it *ast.Item, k *ast.TraitItem) {
	r.withTypeParams(k.Generics, ribItem, func() {
		r.withSelfRib(Def{Kind: DefSelfTy, Trait: DefID{Crate: LocalCrate, Node: it.ID}}, func() {
			r.resolveGenerics(k.Generics)
			for _, b := range k.Bounds {
				r.resolveTraitBound(b)
			}
			for _, ai := range k.Items {
				r.resolveAssocItem(ai, false)
			}
		})
	})
}

func (r *Resolver) resolveImpl(it *ast.Item, k *ast.ImplItem) {
	r.withTypeParams(k.Generics, ribItem, func() {
		// A dummy Self keeps `Self` in the trait path an error.
		r.withSelfRib(Def{Kind: DefSelfTy}, func() {
			traitModule, traitDef := noModule, DefID{}
			traitPath := ""
			if k.Trait != nil {
				res := r.smartResolvePathFragment(k.Trait.ID, nil, pathIdents(k.Trait.Path), k.Trait.Path.Span, pathCtx{src: srcTrait})
				if def := res.BaseDef; !def.IsErr() && def.Kind == DefTrait {
					traitDef = def.ID
					traitPath = k.Trait.Path.String()
					if m, ok := r.moduleMap[def.ID]; ok {
						traitModule = m
					}
				}
			}
			origModule, origPath, origSelf := r.late.traitModule, r.late.traitPath, r.late.selfTy
			defer func() {
				r.late.traitModule, r.late.traitPath, r.late.selfTy = origModule, origPath, origSelf
			}()
			r.late.traitModule, r.late.traitPath = traitModule, traitPath

			r.withSelfRib(Def{Kind: DefSelfTy, Trait: traitDef, Impl: it.ID}, func() {
				if k.Trait != nil {
					r.resolvePathArgs(k.Trait.Path)
				}
				r.resolveTy(k.SelfTy)
				r.resolveGenerics(k.Generics)
				r.late.selfTy = k.SelfTy
				for _, ai := range k.Items {
					r.resolveAssocItem(ai, true)
				}
			})
		})
	})
}

// resolveAssocItem walks one trait or impl member. Impl members of a trait
// impl must exist in the trait.
func (r *Resolver) resolveAssocItem(ai *ast.AssocItem, inImpl bool) {
	var generics *ast.Generics
	if fn, ok := ai.Kind.(*ast.AssocFn); ok {
		generics = fn.Generics
	}
	r.withTypeParams(generics, ribTraitOrImpl, func() {
		switch ak := ai.Kind.(type) {
		case *ast.AssocConst:
			if inImpl {
				r.checkTraitItem(ai, ValueNS, "E0438", "const")
				r.withConstantRib(func() {
					r.resolveTy(ak.Ty)
					r.resolveExpr(ak.Expr, nil)
				})
				return
			}
			r.resolveTy(ak.Ty)
			if ak.Expr != nil {
				r.withConstantRib(func() { r.resolveExpr(ak.Expr, nil) })
			}
		case *ast.AssocFn:
			if inImpl {
				r.checkTraitItem(ai, ValueNS, "E0407", "method")
			}
			r.resolveGenerics(ak.Generics)
			r.resolveFn(newRib(ribTraitOrImpl), ak.Decl, ai.ID, ai.Ident.Ctxt, func() { r.resolveBlock(ak.Body) })
		case *ast.AssocType:
			if inImpl {
				r.checkTraitItem(ai, TypeNS, "E0437", "type")
			}
			for _, b := range ak.Bounds {
				r.resolveTraitBound(b)
			}
			r.resolveTy(ak.Ty)
		}
	})
}

func (r *Resolver) checkTraitItem(ai *ast.AssocItem, ns Namespace, code, what string) {
	tm := r.late.traitModule
	if tm == noModule {
		return
	}
	if b, _ := r.resolveIdentInModule(tm, ai.Ident, ns, false, ai.Span); b != noBinding {
		return
	}
	r.emitLocal(diag.Errorf(diag.KindUnresolved, code, ai.Span, "%s `%s` is not a member of trait `%s`", what, ai.Ident.Name, r.late.traitPath).
		Label(ai.Span, "not a member of trait `%s`", r.late.traitPath))
}

// resolveBlock walks a block in its anonymous module, if it has one. A
// block-local macro definition starts a macro rib followed by a fresh value
// rib for the statements after it.
func (r *Resolver) resolveBlock(b *ast.Block) {
	if b == nil {
		return
	}
	anon, hasAnon := r.blockMap[DefID{Crate: LocalCrate, Node: b.ID}]
	orig := r.currentModule
	valueDepth, labelDepth, typeDepth := len(r.ribs[ValueNS]), len(r.labelRibs), len(r.ribs[TypeNS])
	defer func() {
		r.currentModule = orig
		r.ribs[ValueNS] = r.ribs[ValueNS][:valueDepth]
		r.ribs[TypeNS] = r.ribs[TypeNS][:typeDepth]
		r.labelRibs = r.labelRibs[:labelDepth]
	}()
	if hasAnon {
		r.ribs[ValueNS] = append(r.ribs[ValueNS], moduleRib(anon))
		r.ribs[TypeNS] = append(r.ribs[TypeNS], moduleRib(anon))
		r.currentModule = anon
	} else {
		r.ribs[ValueNS] = append(r.ribs[ValueNS], newRib(ribNormal))
	}
	r.resolveStmts(b.Stmts)
}

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		if is, ok := s.(*ast.ItemStmt); ok && is.Item != nil {
			if _, isMacro := is.Item.Kind.(*ast.MacroDefItem); isMacro {
				def := DefID{Crate: LocalCrate, Node: is.Item.ID}
				r.ribs[ValueNS] = append(r.ribs[ValueNS], macroDefinitionRib(def))
				r.labelRibs = append(r.labelRibs, macroDefinitionRib(def))
				r.ribs[ValueNS] = append(r.ribs[ValueNS], newRib(ribNormal))
			}
		}
		r.resolveStmt(s)
	}
}

func (r *Resolver) resolveStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.LetStmt:
		r.resolveTy(v.Ty)
		r.resolveExpr(v.Init, nil)
		r.resolveBlock(v.Else)
		r.resolvePattern(v.Pat, patLet, make(map[ribKey]ast.NodeID))
	case *ast.ItemStmt:
		r.resolveItem(v.Item)
	case *ast.ExprStmt:
		r.resolveExpr(v.X, nil)
	case *ast.MacroStmt:
		r.resolveStmts(v.Expanded)
	}
}

// withResolvedLabel binds label, if present, to the loop or block id while
// fn runs.
func (r *Resolver) withResolvedLabel(label *ast.Ident, id ast.NodeID, fn func()) {
	if label == nil {
		fn()
		return
	}
	rb := newRib(ribNormal)
	rb.bind(label.Name, label.Ctxt, Def{Kind: DefLabel, Local: id})
	r.withLabelRib(rb, fn)
}

func (r *Resolver) resolveLabelUse(e ast.Expr, label *ast.Ident) {
	if label == nil {
		return
	}
	meta := e.Node()
	if def, ok := r.searchLabel(*label); ok {
		r.recordDef(meta.ID, PathResolution{BaseDef: def})
		return
	}
	r.recordDef(meta.ID, PathResolution{BaseDef: errDef})
	d := diag.Errorf(diag.KindUnresolved, "E0426", label.Span, "use of undeclared label `%s`", label.Name)
	if near, ok := r.closeLabel(*label); ok {
		d.Label(label.Span, "did you mean `%s`?", near)
	} else {
		d.Label(label.Span, "undeclared label `%s`", label.Name)
	}
	r.emitLocal(d)
}

// closeLabel returns the first similar label name reachable from the use.
func (r *Resolver) closeLabel(label ast.Ident) (string, bool) {
	for i := len(r.labelRibs) - 1; i >= 0; i-- {
		rb := r.labelRibs[i]
		switch rb.kind {
		case ribNormal, ribMacroDefinition:
		default:
			return "", false
		}
		names := make([]string, 0, len(rb.order))
		for _, k := range rb.order {
			names = append(names, k.name)
		}
		if s, ok := bestMatch(names, label.Name); ok {
			return s, true
		}
	}
	return "", false
}

func (r *Resolver) resolveExprs(es []ast.Expr) {
	for _, e := range es {
		r.resolveExpr(e, nil)
	}
}

// resolveExpr walks e. parent is the enclosing call, method call or field
// access when e is its callee or receiver.
func (r *Resolver) resolveExpr(e ast.Expr, parent ast.Expr) {
	switch v := e.(type) {
	case nil:
	case *ast.PathExpr:
		if v.QSelf != nil {
			r.resolveTy(v.QSelf.Ty)
		}
		r.smartResolvePath(v.ID, v.QSelf, v.Path, pathCtx{src: srcExpr, parent: parent})
	case *ast.StructExpr:
		r.smartResolvePath(v.ID, nil, v.Path, pathCtx{src: srcStruct})
		for _, f := range v.Fields {
			r.resolveExpr(f.Expr, nil)
		}
		r.resolveExpr(v.Base, nil)
	case *ast.LitExpr, *ast.MacroVarExpr:
	case *ast.CallExpr:
		r.resolveExpr(v.Func, v)
		r.resolveExprs(v.Args)
	case *ast.MethodCallExpr:
		r.resolveExpr(v.Receiver, v)
		r.resolveExprs(v.Args)
		r.resolveGenericArgs(v.Method.Args)
		r.traitMap[v.ID] = r.traitsContainingItem(v.Method.Ident, ValueNS)
	case *ast.FieldExpr:
		r.resolveExpr(v.Base, v)
		r.traitMap[v.ID] = r.traitsContainingItem(v.Field, ValueNS)
	case *ast.BinaryExpr:
		r.resolveExpr(v.L, nil)
		r.resolveExpr(v.R, nil)
	case *ast.AssignExpr:
		r.resolveExpr(v.L, nil)
		r.resolveExpr(v.R, nil)
	case *ast.UnaryExpr:
		r.resolveExpr(v.X, nil)
	case *ast.RefExpr:
		r.resolveExpr(v.X, nil)
	case *ast.CastExpr:
		r.resolveExpr(v.X, nil)
		r.resolveTy(v.Ty)
	case *ast.BlockExpr:
		r.withResolvedLabel(v.Label, v.ID, func() { r.resolveBlock(v.Block) })
	case *ast.LetExpr:
		r.resolveExpr(v.Scrutinee, nil)
		r.resolvePattern(v.Pat, patIfLet, make(map[ribKey]ast.NodeID))
	case *ast.IfExpr:
		if let, ok := v.Cond.(*ast.LetExpr); ok {
			r.resolveExpr(let.Scrutinee, nil)
			r.withRib(ValueNS, newRib(ribNormal), func() {
				r.resolvePattern(let.Pat, patIfLet, make(map[ribKey]ast.NodeID))
				r.resolveBlock(v.Then)
			})
		} else {
			r.resolveExpr(v.Cond, nil)
			r.resolveBlock(v.Then)
		}
		r.resolveExpr(v.Else, nil)
	case *ast.WhileExpr:
		r.withResolvedLabel(v.Label, v.ID, func() {
			let, ok := v.Cond.(*ast.LetExpr)
			if !ok {
				r.resolveExpr(v.Cond, nil)
				r.resolveBlock(v.Body)
				return
			}
			r.resolveExpr(let.Scrutinee, nil)
			r.withRib(ValueNS, newRib(ribNormal), func() {
				r.resolvePattern(let.Pat, patWhileLet, make(map[ribKey]ast.NodeID))
				r.resolveBlock(v.Body)
			})
		})
	case *ast.LoopExpr:
		r.withResolvedLabel(v.Label, v.ID, func() { r.resolveBlock(v.Body) })
	case *ast.ForExpr:
		r.resolveExpr(v.Iter, nil)
		r.withRib(ValueNS, newRib(ribNormal), func() {
			r.resolvePattern(v.Pat, patFor, make(map[ribKey]ast.NodeID))
			r.withResolvedLabel(v.Label, v.ID, func() { r.resolveBlock(v.Body) })
		})
	case *ast.MatchExpr:
		r.resolveExpr(v.Scrutinee, nil)
		for _, arm := range v.Arms {
			r.withRib(ValueNS, newRib(ribNormal), func() {
				r.resolvePattern(arm.Pat, patMatch, make(map[ribKey]ast.NodeID))
				r.resolveExpr(arm.Guard, nil)
				r.resolveExpr(arm.Body, nil)
			})
		}
	case *ast.ClosureExpr:
		decl := &ast.FnDecl{Inputs: v.Params, Output: v.Output}
		r.resolveFn(closureRib(v.ID), decl, 0, hygiene.EmptyContext, func() { r.resolveExpr(v.Body, nil) })
	case *ast.BreakExpr:
		r.resolveLabelUse(v, v.Label)
		r.resolveExpr(v.Value, nil)
	case *ast.ContinueExpr:
		r.resolveLabelUse(v, v.Label)
	case *ast.ReturnExpr:
		r.resolveExpr(v.Value, nil)
	case *ast.TupleExpr:
		r.resolveExprs(v.Elems)
	case *ast.ArrayExpr:
		r.resolveExprs(v.Elems)
	case *ast.IndexExpr:
		r.resolveExpr(v.X, nil)
		r.resolveExpr(v.Index, nil)
	case *ast.RangeExpr:
		r.resolveExpr(v.Lo, nil)
		r.resolveExpr(v.Hi, nil)
	case *ast.TryExpr:
		r.resolveExpr(v.X, nil)
	case *ast.ParenExpr:
		r.resolveExpr(v.X, parent)
	case *ast.MacroCallExpr:
		r.resolveExpr(v.Expanded, parent)
	}
}

func (r *Resolver) resolveTy(t ast.Ty) {
	switch v := t.(type) {
	case nil:
	case *ast.PathTy:
		if v.QSelf != nil {
			r.resolveTy(v.QSelf.Ty)
		}
		r.smartResolvePath(v.ID, v.QSelf, v.Path, pathCtx{src: srcType})
	case *ast.RefTy:
		r.resolveTy(v.Elem)
	case *ast.PtrTy:
		r.resolveTy(v.Elem)
	case *ast.SliceTy:
		r.resolveTy(v.Elem)
	case *ast.TupleTy:
		for _, el := range v.Elems {
			r.resolveTy(el)
		}
	case *ast.ArrayTy:
		r.resolveTy(v.Elem)
		r.withConstantRib(func() { r.resolveExpr(v.Len, nil) })
	case *ast.FnPtrTy:
		for _, in := range v.Inputs {
			r.resolveTy(in)
		}
		r.resolveTy(v.Output)
	case *ast.TraitObjectTy:
		for _, b := range v.Bounds {
			r.resolveTraitBound(b)
		}
	}
}

// resolvePathArgs resolves the generic arguments written on path segments.
func (r *Resolver) resolvePathArgs(p *ast.Path) {
	if p == nil {
		return
	}
	for _, seg := range p.Segments {
		r.resolveGenericArgs(seg.Args)
	}
}

func (r *Resolver) resolveGenericArgs(args *ast.GenericArgs) {
	if args == nil {
		return
	}
	for _, t := range args.Types {
		r.resolveTy(t)
	}
	for _, b := range args.Bindings {
		r.resolveTy(b.Ty)
	}
}
