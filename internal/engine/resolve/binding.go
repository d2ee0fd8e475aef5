package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/hygiene"
)

// BindingID indexes Resolver.bindings. Zero means no binding.
type BindingID uint32

const noBinding BindingID = 0

type bindingKind uint8

const (
	bindDef bindingKind = iota
	bindModule
	bindImport
	bindAmbiguity
)

// Binding links a name in a module to what it denotes. Apart from the used
// mark on imports, bindings are never mutated after allocation.
type Binding struct {
	kind      bindingKind
	def       Def
	module    ModuleID
	target    BindingID
	directive DirectiveID
	b1, b2    BindingID

	Vis         Visibility
	Span        ast.Span
	Expansion   hygiene.Mark
	MacroExport bool
	// legacyMacro marks macro_rules definitions, which shadow earlier
	// definitions of the same name instead of conflicting.
	legacyMacro bool
	used        bool
}

type visKind uint8

const (
	visPublic visKind = iota
	visRestricted
	visInvisible
)

// Visibility is either public, restricted to a module subtree, or invisible
// (used for failed imports and extern crate privates).
type Visibility struct {
	kind   visKind
	module ModuleID
}

var (
	visPublicV    = Visibility{kind: visPublic}
	visInvisibleV = Visibility{kind: visInvisible}
)

func restricted(m ModuleID) Visibility { return Visibility{kind: visRestricted, module: m} }

func (v Visibility) IsPublic() bool { return v.kind == visPublic }

func (r *Resolver) newBinding(b Binding) BindingID {
	r.bindings = append(r.bindings, &b)
	r.stats.Bindings++
	return BindingID(len(r.bindings) - 1)
}

func (r *Resolver) binding(id BindingID) *Binding { return r.bindings[id] }

func (r *Resolver) defBinding(def Def, vis Visibility, sp ast.Span, exp hygiene.Mark) BindingID {
	return r.newBinding(Binding{kind: bindDef, def: def, Vis: vis, Span: sp, Expansion: exp})
}

func (r *Resolver) moduleBinding(m ModuleID, vis Visibility, sp ast.Span, exp hygiene.Mark) BindingID {
	return r.newBinding(Binding{kind: bindModule, module: m, Vis: vis, Span: sp, Expansion: exp})
}

// bindingDef follows imports to the denoted definition. An ambiguity denotes
// its primary candidate.
func (r *Resolver) bindingDef(id BindingID) Def {
	b := r.bindings[id]
	switch b.kind {
	case bindDef:
		return b.def
	case bindModule:
		return r.modules[b.module].Def
	case bindImport:
		return r.bindingDef(b.target)
	case bindAmbiguity:
		return r.bindingDef(b.b1)
	}
	return errDef
}

func (r *Resolver) bindingModule(id BindingID) (ModuleID, bool) {
	b := r.bindings[id]
	switch b.kind {
	case bindModule:
		return b.module, true
	case bindImport:
		return r.bindingModule(b.target)
	case bindAmbiguity:
		return r.bindingModule(b.b1)
	}
	return noModule, false
}

func (r *Resolver) isImport(id BindingID) bool {
	return r.bindings[id].kind == bindImport
}

func (r *Resolver) isGlobImport(id BindingID) bool {
	b := r.bindings[id]
	switch b.kind {
	case bindImport:
		return r.directives[b.directive].Kind == GlobImport
	case bindAmbiguity:
		return r.isGlobImport(b.b1)
	}
	return false
}

func (r *Resolver) isExternCrate(id BindingID) bool {
	b := r.bindings[id]
	return b.kind == bindImport && r.directives[b.directive].Kind == ExternCrateImport
}

func (r *Resolver) isVariant(id BindingID) bool {
	k := r.bindingDef(id).Kind
	return k == DefVariant || k == DefVariantCtor
}

// isImportable excludes trait members, which can only be named through
// their trait.
func (r *Resolver) isImportable(id BindingID) bool {
	switch r.bindingDef(id).Kind {
	case DefMethod, DefAssocConst, DefAssocTy:
		return false
	}
	return true
}

func (r *Resolver) isMacroExportDef(id BindingID) bool {
	b := r.bindings[id]
	return b.kind == bindDef && b.MacroExport && b.def.Kind == DefMacro
}

// pseudoVis treats enum variants as public regardless of their binding.
func (r *Resolver) pseudoVis(id BindingID) Visibility {
	if r.isVariant(id) {
		return visPublicV
	}
	return r.bindings[id].Vis
}

// mayAppearAfter reports whether the expanded binding could have been
// produced after both the glob it shadows and the invocation site, in which
// case trusting it would depend on expansion order.
func (r *Resolver) mayAppearAfter(binding BindingID, invocation hygiene.Mark, other BindingID) bool {
	self := r.bindings[binding].Expansion
	beforeOther := r.hyg.IsDescendantOf(r.bindings[other].Expansion, self)
	beforeInvocation := r.hyg.IsDescendantOf(invocation, self)
	return !(beforeOther || beforeInvocation)
}

// ancestorOf reports whether anc is m or an ancestor of m in the tree of
// normal modules.
func (r *Resolver) ancestorOf(anc, m ModuleID) bool {
	for m != noModule {
		if m == anc {
			return true
		}
		m = r.modules[m].Parent
	}
	return false
}

func (r *Resolver) isAccessibleFrom(vis Visibility, m ModuleID) bool {
	switch vis.kind {
	case visPublic:
		return true
	case visInvisible:
		return false
	}
	return r.ancestorOf(vis.module, r.modules[m].NormalAncestor)
}

// isAtLeast reports whether a is at least as visible as b.
func (r *Resolver) isAtLeast(a, b Visibility) bool {
	switch b.kind {
	case visPublic:
		return a.kind == visPublic
	case visInvisible:
		return true
	}
	return r.isAccessibleFrom(a, b.module)
}

func (r *Resolver) visDescr(v Visibility) string {
	switch v.kind {
	case visPublic:
		return "public"
	case visInvisible:
		return "invisible"
	}
	m := r.modules[v.module]
	if m.Parent == noModule {
		return "crate-visible"
	}
	return "restricted to `" + r.modulePathString(v.module) + "`"
}
