package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/hygiene"
)

// resolveIdentInRoot looks ident up in a module or one of the uniform
// roots.
func (r *Resolver) resolveIdentInRoot(root ModuleOrRoot, ident ast.Ident, ns Namespace, recordUsed bool, sp ast.Span) (BindingID, Determinacy) {
	switch root.kind {
	case rootModule:
		return r.resolveIdentInModule(root.module, ident, ns, recordUsed, sp)
	case rootExternPrelude:
		if ns != TypeNS {
			return noBinding, Determined
		}
		if b := r.externPreludeBinding(ident.Name); b != noBinding {
			return b, Determined
		}
		return noBinding, Determined
	}

	start := r.crateRootOf(r.currentModule)
	if root.kind == rootCurrentScope {
		start = r.currentModule
	}
	b, det := r.resolveIdentInModule(start, ident, ns, recordUsed, sp)
	if b != noBinding || det == Undetermined || ns != TypeNS {
		return b, det
	}
	if b := r.externPreludeBinding(ident.Name); b != noBinding {
		return b, Determined
	}
	return noBinding, Determined
}

// externPreludeBinding returns the memoized binding of an extern prelude
// crate, or noBinding.
func (r *Resolver) externPreludeBinding(name string) BindingID {
	if !r.externPrelude[name] {
		return noBinding
	}
	if b, ok := r.externBindings[name]; ok {
		return b
	}
	crate, ok := r.externCrates[name]
	if !ok {
		return noBinding
	}
	b := r.moduleBinding(r.crateRoots[crate], visPublicV, ast.Span{}, hygiene.RootMark)
	r.externBindings[name] = b
	return b
}

// resolveIdentInModule adjusts ident to the module's expansion before the
// lookup. When marks are peeled, privacy is checked from the scope of the
// macro that produced the name.
func (r *Resolver) resolveIdentInModule(module ModuleID, ident ast.Ident, ns Namespace, recordUsed bool, sp ast.Span) (BindingID, Determinacy) {
	ident.Ctxt = r.hyg.Modern(ident.Ctxt)
	orig := r.currentModule
	if mark, ok := r.hyg.Adjust(&ident.Ctxt, r.modules[module].Expansion); ok {
		r.currentModule = r.macroDefScope(mark)
	}
	b, det := r.resolveIdentInModuleUnadjusted(module, ident, ns, recordUsed, sp)
	r.currentModule = orig
	return b, det
}

// resolveIdentInModuleUnadjusted is the core lookup. A missing binding is
// Determined only when no pending single import, glob or macro invocation
// could still define the name.
func (r *Resolver) resolveIdentInModuleUnadjusted(module ModuleID, ident ast.Ident, ns Namespace, recordUsed bool, sp ast.Span) (BindingID, Determinacy) {
	nr := r.resolution(module, ident, ns)
	if nr.busy {
		// Cycle of imports through this slot.
		return noBinding, Determined
	}
	nr.busy = true
	defer func() { nr.busy = false }()

	if recordUsed {
		b := nr.Binding
		if b == noBinding {
			return noBinding, Determined
		}
		if g := nr.ShadowsGlob; g != noBinding && ns != MacroNS &&
			r.bindings[b].Expansion != hygiene.RootMark &&
			r.bindingDef(b) != r.bindingDef(g) &&
			r.mayAppearAfter(b, r.currentExpansion, g) {
			r.pushAmbiguity(sp, ident.Name, b, g)
		}
		r.recordUse(ident, ns, b, sp)
		if !r.isAccessibleFrom(r.bindings[b].Vis, r.currentModule) {
			r.pushPrivacy(sp, ident.Name, b)
		}
		return b, Determined
	}

	checkUsable := func(b BindingID) (BindingID, Determinacy) {
		if r.isAccessibleFrom(r.bindings[b].Vis, r.currentModule) || r.isExternCrate(b) {
			return b, Determined
		}
		return noBinding, Determined
	}

	if b := nr.Binding; b != noBinding && !r.isGlobImport(b) {
		return checkUsable(b)
	}

	for _, did := range append([]DirectiveID(nil), nr.SingleImports...) {
		dir := r.directives[did]
		if !r.isAccessibleFrom(dir.Vis, r.currentModule) {
			continue
		}
		if !dir.importedSet {
			return noBinding, Undetermined
		}
		if b, det := r.resolveIdentInRoot(dir.importedModule, dir.Source, ns, false, sp); b != noBinding || det == Undetermined {
			return noBinding, Undetermined
		}
	}

	m := r.modules[module]
	noUnresolvedInvocations := r.restrictedShadowing || !m.hasUnresolvedInvocations()
	if b := nr.Binding; b != noBinding {
		if noUnresolvedInvocations || ns == MacroNS {
			return checkUsable(b)
		}
		return noBinding, Undetermined
	} else if !noUnresolvedInvocations {
		return noBinding, Undetermined
	}

	for _, did := range m.Globs {
		dir := r.directives[did]
		if !r.isAccessibleFrom(dir.Vis, r.currentModule) {
			continue
		}
		if !dir.importedSet {
			return noBinding, Undetermined
		}
		src, ok := dir.importedModule.Module()
		if !ok {
			continue
		}
		orig := r.currentModule
		id := r.modern(ident)
		scopeMark, hasScope, ok := r.hyg.GlobAdjust(&id.Ctxt, r.modules[src].Expansion, r.hyg.Modern(dir.ctxt()))
		if !ok {
			continue
		}
		if hasScope {
			r.currentModule = r.macroDefScope(scopeMark)
		}
		_, det := r.resolveIdentInModuleUnadjusted(src, id, ns, false, sp)
		r.currentModule = orig
		if det == Undetermined {
			return noBinding, Undetermined
		}
	}
	return noBinding, Determined
}

// recordUse marks every import on the way to binding as used. Ambiguities
// are queued for reporting and resolve to their primary candidate.
func (r *Resolver) recordUse(ident ast.Ident, ns Namespace, binding BindingID, sp ast.Span) {
	b := r.bindings[binding]
	switch b.kind {
	case bindImport:
		if b.used {
			return
		}
		b.used = true
		dir := r.directives[b.directive]
		dir.Used = true
		if dir.Crate == LocalCrate {
			r.usedImports[usedKey{node: dir.Node, ns: ns}] = true
			if dir.isGlob() {
				names, ok := r.globMap[dir.Node]
				if !ok {
					names = make(map[string]bool)
					r.globMap[dir.Node] = names
				}
				names[ident.Name] = true
			}
		}
		r.recordUse(ident, ns, b.target, sp)
	case bindAmbiguity:
		r.pushAmbiguity(sp, ident.Name, b.b1, b.b2)
		r.recordUse(ident, ns, b.b1, sp)
	}
}

func (r *Resolver) pushAmbiguity(sp ast.Span, name string, b1, b2 BindingID) {
	key := ambiguityKey{name: name, b1: b1, b2: b2}
	if r.ambiguitySeen[key] {
		return
	}
	r.ambiguitySeen[key] = true
	r.ambiguityErrors = append(r.ambiguityErrors, ambiguityError{span: sp, name: name, b1: b1, b2: b2})
}

func (r *Resolver) pushPrivacy(sp ast.Span, name string, b BindingID) {
	key := privacyKey{name: name, span: sp}
	if r.privacySeen[key] {
		return
	}
	r.privacySeen[key] = true
	r.privacyErrors = append(r.privacyErrors, privacyError{span: sp, name: name, binding: b})
}
