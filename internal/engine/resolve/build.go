package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/hygiene"
)

// buildGraph creates the crate roots, defines every item of the local crate
// and injects the standard prelude. Extern crates are populated lazily.
func (r *Resolver) buildGraph() {
	for i, c := range r.crates {
		crate := CrateNum(i)
		def := Def{Kind: DefMod, ID: DefID{Crate: crate, Node: 0}}
		root := r.newModule(noModule, ModDef, def, c.Name, hygiene.RootMark, crate, c.Span)
		m := r.modules[root]
		m.NoImplicitPrelude = c.Attrs.Has("no_implicit_prelude")
		r.crateRoots = append(r.crateRoots, root)
		if crate != LocalCrate {
			m.Populated = false
			m.pending = c.Items
			m.pendingPos = r.nextTextPos()
		}
	}
	r.graphRoot = r.crateRoots[LocalCrate]
	r.currentModule = r.graphRoot

	r.injectPrelude()
	for _, it := range r.crates[LocalCrate].Items {
		r.buildItem(it, r.graphRoot, hygiene.RootMark)
	}
}

// injectPrelude adds `#[macro_use] extern crate std;` and
// `use std::prelude::v1::*;` to the local crate root.
func (r *Resolver) injectPrelude() {
	local := r.crates[LocalCrate]
	name := r.opts.PreludeCrate
	if name == "" || local.Attrs.Has("no_std") || local.Attrs.Has("no_implicit_prelude") {
		return
	}
	crate, ok := r.externCrates[name]
	if !ok {
		r.log.Debug("prelude crate not provided", "crate", name)
		return
	}
	root := r.graphRoot
	ident := ast.Ident{Name: name}
	b := r.moduleBinding(r.crateRoots[crate], visPublicV, ast.Span{}, hygiene.RootMark)
	d := r.newDirective(Directive{
		Kind:   ExternCrateImport,
		Parent: root,
		Source: ident,
		Target: ident,
		Vis:    restricted(root),
		Used:   true,
	})
	r.defineBinding(root, ident, TypeNS, r.importBinding(b, d))
	r.importExternMacros(crate, 0)

	path := []ast.Ident{ident}
	for _, seg := range r.opts.PreludePath {
		path = append(path, ast.Ident{Name: seg})
	}
	r.addDirective(Directive{
		Kind:       GlobImport,
		Parent:     root,
		ModulePath: path,
		IsPrelude:  true,
		Vis:        restricted(root),
		Used:       true,
	})
}

// defineBinding defines b and reports a conflict if the slot is taken.
func (r *Resolver) defineBinding(parent ModuleID, ident ast.Ident, ns Namespace, b BindingID) {
	if old, ok := r.tryDefine(parent, ident, ns, b); !ok {
		r.reportConflict(parent, ident, ns, b, old)
	}
}

func (r *Resolver) define(parent ModuleID, ident ast.Ident, ns Namespace, def Def, vis Visibility, sp ast.Span, exp hygiene.Mark) BindingID {
	b := r.defBinding(def, vis, sp, exp)
	r.defineBinding(parent, ident, ns, b)
	return b
}

func (r *Resolver) buildItem(it *ast.Item, parent ModuleID, exp hygiene.Mark) {
	if it == nil {
		return
	}
	crate := r.modules[parent].Crate
	id := DefID{Crate: crate, Node: it.ID}
	if r.built[id] {
		return
	}
	r.built[id] = true

	ident := it.Ident
	sp := it.Span
	vis := r.resolveVisibility(it.Vis, parent)

	switch k := it.Kind.(type) {
	case *ast.UseItem:
		r.buildUseTree(k.Tree, nil, false, it, parent, vis, exp)

	case *ast.ExternCrateItem:
		r.buildExternCrate(it, k, parent, vis, exp)

	case *ast.ModItem:
		def := Def{Kind: DefMod, ID: id}
		m := r.newModule(parent, ModDef, def, ident.Name, exp, crate, sp)
		mod := r.modules[m]
		mod.Node = it.ID
		mod.Ctxt = r.hyg.Modern(ident.Ctxt)
		if it.Attrs.Has("no_implicit_prelude") {
			mod.NoImplicitPrelude = true
		}
		mod.MacroUse = it.Attrs.Has("macro_use")
		r.defineBinding(parent, ident, TypeNS, r.moduleBinding(m, vis, sp, exp))
		if crate != LocalCrate {
			mod.Populated = false
			mod.pending = k.Items
			mod.pendingPos = r.nextTextPos()
			return
		}
		for _, child := range k.Items {
			r.buildItem(child, m, exp)
		}

	case *ast.StructItem:
		def := Def{Kind: DefStruct, ID: id}
		r.define(parent, ident, TypeNS, def, vis, sp, exp)
		var names []string
		ctorVis := vis
		for _, f := range k.Data.Fields {
			fv := r.resolveVisibility(f.Vis, parent)
			if r.isAtLeast(ctorVis, fv) {
				ctorVis = fv
			}
			if f.Ident != nil {
				names = append(names, f.Ident.Name)
			}
		}
		r.structFields[id] = names
		if k.Data.Kind != ast.DataStruct {
			ctor := Def{Kind: DefStructCtor, ID: DefID{Crate: crate, Node: k.Data.CtorID}, Ctor: ctorKindOf(k.Data.Kind)}
			r.define(parent, ident, ValueNS, ctor, ctorVis, sp, exp)
			r.structCtors[id] = structCtor{def: ctor, vis: ctorVis}
		}
		r.buildTypeBodies(k.Data, parent, exp)

	case *ast.EnumItem:
		def := Def{Kind: DefEnum, ID: id}
		m := r.newModule(parent, ModDef, def, ident.Name, exp, crate, sp)
		r.modules[m].Node = it.ID
		r.modules[m].Ctxt = r.hyg.Modern(ident.Ctxt)
		r.defineBinding(parent, ident, TypeNS, r.moduleBinding(m, vis, sp, exp))
		for _, v := range k.Variants {
			vid := DefID{Crate: crate, Node: v.ID}
			r.define(m, v.Ident, TypeNS, Def{Kind: DefVariant, ID: vid}, vis, v.Span, exp)
			r.define(m, v.Ident, ValueNS, Def{Kind: DefVariantCtor, ID: vid, Ctor: ctorKindOf(v.Data.Kind)}, vis, v.Span, exp)
			if v.Data.Kind == ast.DataStruct {
				var names []string
				for _, f := range v.Data.Fields {
					if f.Ident != nil {
						names = append(names, f.Ident.Name)
					}
				}
				r.structFields[vid] = names
			}
			if v.Discriminant != nil {
				r.buildBody(v.Discriminant, parent, exp)
			}
		}

	case *ast.TraitItem:
		def := Def{Kind: DefTrait, ID: id}
		m := r.newModule(parent, ModDef, def, ident.Name, exp, crate, sp)
		r.modules[m].Node = it.ID
		r.modules[m].Ctxt = r.hyg.Modern(ident.Ctxt)
		r.defineBinding(parent, ident, TypeNS, r.moduleBinding(m, vis, sp, exp))
		for _, ai := range k.Items {
			aid := DefID{Crate: crate, Node: ai.ID}
			switch ak := ai.Kind.(type) {
			case *ast.AssocFn:
				r.define(m, ai.Ident, ValueNS, Def{Kind: DefMethod, ID: aid}, visPublicV, ai.Span, exp)
				if ak.Decl != nil && ak.Decl.HasSelf {
					r.hasSelf[aid] = true
				}
				if ak.Body != nil {
					r.buildBody(ak.Body, parent, exp)
				}
			case *ast.AssocConst:
				r.define(m, ai.Ident, ValueNS, Def{Kind: DefAssocConst, ID: aid}, visPublicV, ai.Span, exp)
				if ak.Expr != nil {
					r.buildBody(ak.Expr, parent, exp)
				}
			case *ast.AssocType:
				r.define(m, ai.Ident, TypeNS, Def{Kind: DefAssocTy, ID: aid}, visPublicV, ai.Span, exp)
			}
		}

	case *ast.FnItem:
		r.define(parent, ident, ValueNS, Def{Kind: DefFn, ID: id}, vis, sp, exp)
		if k.Body != nil {
			r.buildBody(k.Body, parent, exp)
		}

	case *ast.ConstItem:
		r.define(parent, ident, ValueNS, Def{Kind: DefConst, ID: id}, vis, sp, exp)
		if k.Expr != nil {
			r.buildBody(k.Expr, parent, exp)
		}

	case *ast.StaticItem:
		r.define(parent, ident, ValueNS, Def{Kind: DefStatic, ID: id}, vis, sp, exp)
		if k.Expr != nil {
			r.buildBody(k.Expr, parent, exp)
		}

	case *ast.TypeAliasItem:
		r.define(parent, ident, TypeNS, Def{Kind: DefTyAlias, ID: id}, vis, sp, exp)

	case *ast.ImplItem:
		for _, ai := range k.Items {
			switch ak := ai.Kind.(type) {
			case *ast.AssocFn:
				if ak.Decl != nil && ak.Decl.HasSelf {
					r.hasSelf[DefID{Crate: crate, Node: ai.ID}] = true
				}
				if ak.Body != nil {
					r.buildBody(ak.Body, parent, exp)
				}
			case *ast.AssocConst:
				if ak.Expr != nil {
					r.buildBody(ak.Expr, parent, exp)
				}
			}
		}

	case *ast.MacroDefItem:
		r.defineMacro(it, k, parent, vis, exp)

	case *ast.MacroCallItem:
		r.registerInvocation(k.Call, parent, exp, invocSite{item: k})
	}
}

func ctorKindOf(k ast.DataKind) CtorKind {
	switch k {
	case ast.DataTuple:
		return CtorFn
	case ast.DataUnit:
		return CtorConst
	}
	return CtorFictive
}

// buildTypeBodies covers array length expressions inside field types.
func (r *Resolver) buildTypeBodies(data *ast.VariantData, parent ModuleID, exp hygiene.Mark) {
	for _, f := range data.Fields {
		if f.Ty != nil {
			r.buildBody(f.Ty, parent, exp)
		}
	}
}

func blockNeedsModule(b *ast.Block) bool {
	for _, s := range b.Stmts {
		switch s.(type) {
		case *ast.ItemStmt, *ast.MacroStmt:
			return true
		}
	}
	return false
}

// buildBody walks a function body or initializer, creating anonymous
// modules for blocks that declare items and registering macro invocations
// with the innermost module.
func (r *Resolver) buildBody(root ast.Node, module ModuleID, exp hygiene.Mark) {
	crate := r.modules[module].Crate
	stack := []ModuleID{module}
	var pushed []bool
	ast.Inspect(root, func(n ast.Node) bool {
		if n == nil {
			if pushed[len(pushed)-1] {
				stack = stack[:len(stack)-1]
			}
			pushed = pushed[:len(pushed)-1]
			return false
		}
		cur := stack[len(stack)-1]
		switch v := n.(type) {
		case *ast.ItemStmt:
			r.buildItem(v.Item, cur, exp)
			return false
		case *ast.MacroStmt:
			r.registerInvocation(v.Call, cur, exp, invocSite{stmt: v})
			return false
		case *ast.MacroCallExpr:
			r.registerInvocation(v.Call, cur, exp, invocSite{expr: v})
			return false
		case *ast.Block:
			if blockNeedsModule(v) {
				key := DefID{Crate: crate, Node: v.ID}
				m, ok := r.blockMap[key]
				if !ok {
					m = r.newModule(cur, ModBlock, Def{}, "", exp, crate, v.Span)
					r.modules[m].Node = v.ID
					r.modules[m].Ctxt = r.modules[cur].Ctxt
					r.blockMap[key] = m
				}
				stack = append(stack, m)
				pushed = append(pushed, true)
				return true
			}
		}
		pushed = append(pushed, false)
		return true
	})
}

func (r *Resolver) buildExternCrate(it *ast.Item, k *ast.ExternCrateItem, parent ModuleID, vis Visibility, exp hygiene.Mark) {
	crateLocal := r.modules[parent].Crate
	name := k.Orig
	if name == "" {
		name = it.Ident.Name
	}
	crate, ok := r.externCrates[name]
	if !ok {
		r.emit(crateLocal, diag.Errorf(diag.KindUnresolved, "E0463", it.Span, "can't find crate for `%s`", name).
			Label(it.Span, "can't find crate"))
		return
	}
	b := r.moduleBinding(r.crateRoots[crate], visPublicV, it.Span, exp)
	d := r.newDirective(Directive{
		Kind:      ExternCrateImport,
		Parent:    parent,
		Crate:     crateLocal,
		Source:    ast.Ident{Name: name, Span: it.Span},
		Target:    it.Ident,
		Vis:       vis,
		Span:      it.Span,
		Node:      it.ID,
		RootID:    it.ID,
		RootSpan:  it.Span,
		Expansion: exp,
	})
	r.defineBinding(parent, it.Ident, TypeNS, r.importBinding(b, d))
	if it.Attrs.Has("macro_use") {
		mu := r.newDirective(Directive{
			Kind:      MacroUseImport,
			Parent:    parent,
			Crate:     crateLocal,
			Source:    ast.Ident{Name: name, Span: it.Span},
			Target:    it.Ident,
			Vis:       visPublicV,
			Span:      it.Span,
			Node:      it.ID,
			RootID:    it.ID,
			RootSpan:  it.Span,
			Expansion: exp,
		})
		r.importExternMacros(crate, mu)
		r.markUsed(d)
		if crateLocal == LocalCrate {
			r.unusedCands = append(r.unusedCands, mu)
		}
	}
	if crateLocal == LocalCrate && parent == r.graphRoot {
		r.unusedCands = append(r.unusedCands, d)
	}
}

// importExternMacros puts the exported macros of crate into the macro_use
// prelude. Bindings go through dir when one is given, so using any macro
// marks that `#[macro_use]` as used.
func (r *Resolver) importExternMacros(crate CrateNum, dir DirectiveID) {
	root := r.crateRoots[crate]
	r.forEachResolution(root, func(key resKey, nr *NameResolution) {
		if key.NS != MacroNS || nr.Binding == noBinding || !r.isMacroExportDef(nr.Binding) {
			return
		}
		if _, taken := r.macroUsePrelude[key.Name]; taken {
			return
		}
		mu := dir
		if mu == 0 {
			mu = r.newDirective(Directive{
				Kind:   MacroUseImport,
				Parent: r.graphRoot,
				Source: ast.Ident{Name: key.Name},
				Target: ast.Ident{Name: key.Name},
				Vis:    visPublicV,
				Used:   true,
			})
		}
		r.macroUsePrelude[key.Name] = r.importBinding(nr.Binding, mu)
	})
}
