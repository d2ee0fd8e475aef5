package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/hygiene"
)

// importBinding wraps binding as seen through directive d. The result is no
// more visible than the directive; globs record the widest visibility they
// actually re-export.
func (r *Resolver) importBinding(binding BindingID, d DirectiveID) BindingID {
	dir := r.directives[d]
	vis := dir.Vis
	if !r.isAtLeast(r.pseudoVis(binding), dir.Vis) && (dir.isGlob() || !r.isExternCrate(binding)) {
		vis = r.pseudoVis(binding)
	}
	if dir.isGlob() {
		if vis == dir.Vis || !dir.maxVisSet || r.isAtLeast(vis, dir.MaxVis) {
			dir.MaxVis = vis
			dir.maxVisSet = true
		}
	}
	return r.newBinding(Binding{
		kind:      bindImport,
		target:    binding,
		directive: d,
		Vis:       vis,
		Span:      dir.Span,
		Expansion: dir.Expansion,
	})
}

func (r *Resolver) ambiguity(b1, b2 BindingID) BindingID {
	vis := r.bindings[b2].Vis
	if r.isAtLeast(r.bindings[b1].Vis, vis) {
		vis = r.bindings[b1].Vis
	}
	return r.newBinding(Binding{
		kind:      bindAmbiguity,
		b1:        b1,
		b2:        b2,
		Vis:       vis,
		Span:      r.bindings[b1].Span,
		Expansion: hygiene.RootMark,
	})
}

// tryDefine installs binding in the (module, ident, ns) slot following the
// shadowing rules. On a hard conflict it returns the existing binding and
// false; the slot keeps the earlier binding.
func (r *Resolver) tryDefine(module ModuleID, ident ast.Ident, ns Namespace, binding BindingID) (BindingID, bool) {
	conflict := noBinding
	r.updateResolution(module, ident, ns, func(nr *NameResolution) {
		old := nr.Binding
		if old == noBinding {
			nr.Binding = binding
			return
		}
		newB, oldB := r.bindings[binding], r.bindings[old]
		switch {
		case r.isGlobImport(binding):
			if !r.isGlobImport(old) && !(ns == MacroNS && oldB.Expansion != hygiene.RootMark) {
				nr.ShadowsGlob = binding
			} else if r.bindingDef(binding) != r.bindingDef(old) {
				nr.Binding = r.ambiguity(old, binding)
			} else if !r.isAtLeast(oldB.Vis, newB.Vis) {
				nr.Binding = binding
			}
		case r.isGlobImport(old):
			if ns == MacroNS && newB.Expansion != hygiene.RootMark && r.bindingDef(binding) != r.bindingDef(old) {
				nr.Binding = r.ambiguity(binding, old)
			} else {
				nr.Binding = binding
				nr.ShadowsGlob = old
			}
		case r.isMacroExportDef(old) && r.isMacroExportDef(binding):
			r.emit(r.modules[module].Crate, diag.Lintf(diag.LintDuplicateMacroExports, newB.Span,
				"a macro named `%s` has already been exported", ident.Name).
				Label(newB.Span, "`%s` already exported", ident.Name).
				Label(oldB.Span, "previous macro export here"))
			nr.Binding = binding
		case newB.legacyMacro && oldB.legacyMacro && !newB.MacroExport && !oldB.MacroExport:
			nr.Binding = binding
		default:
			conflict = old
		}
	})
	return conflict, conflict == noBinding
}

// updateResolution applies f to the slot and propagates the visible
// binding to every glob importer when it appeared, or when it stopped
// being a glob import.
func (r *Resolver) updateResolution(module ModuleID, ident ast.Ident, ns Namespace, f func(nr *NameResolution)) {
	ident = r.modern(ident)
	nr := r.resolution(module, ident, ns)
	oldVisible := r.visibleBinding(nr)
	f(nr)
	binding := r.visibleBinding(nr)
	if binding == noBinding || binding == oldVisible {
		return
	}
	upgraded := oldVisible != noBinding && r.isGlobImport(oldVisible) &&
		(!r.isGlobImport(binding) || r.bindingDef(binding) != r.bindingDef(oldVisible))
	if oldVisible != noBinding && !upgraded {
		return
	}

	m := r.modules[module]
	importers := append([]DirectiveID(nil), m.GlobImporters...)
	for _, did := range importers {
		dir := r.directives[did]
		id := ident
		scopeMark, hasScope, ok := r.hyg.ReverseGlobAdjust(&id.Ctxt, m.Expansion, r.hyg.Modern(dir.ctxt()))
		if !ok {
			continue
		}
		scope := dir.Parent
		if hasScope {
			scope = r.macroDefScope(scopeMark)
		}
		if !r.isAccessibleFrom(r.bindings[binding].Vis, scope) {
			continue
		}
		imported := r.importBinding(binding, did)
		if upgraded && r.replaceGlobReexport(dir.Parent, id, ns, did, imported) {
			continue
		}
		r.tryDefine(dir.Parent, id, ns, imported)
	}
}

// replaceGlobReexport swaps a stale binding that the importer got through
// the same glob directive for imported. It reports whether the slot held
// such a binding.
func (r *Resolver) replaceGlobReexport(module ModuleID, ident ast.Ident, ns Namespace, did DirectiveID, imported BindingID) bool {
	nr := r.resolution(module, r.modern(ident), ns)
	cur := nr.Binding
	if cur == noBinding || r.bindings[cur].kind != bindImport || r.bindings[cur].directive != did {
		return false
	}
	if r.bindingDef(cur) == r.bindingDef(imported) && r.isAtLeast(r.bindings[cur].Vis, r.bindings[imported].Vis) {
		return true
	}
	r.updateResolution(module, ident, ns, func(nr *NameResolution) {
		nr.Binding = imported
	})
	return true
}

// ctxt is the hygiene context the directive was written in.
func (d *Directive) ctxt() hygiene.SyntaxContext {
	if len(d.ModulePath) > 0 {
		return d.ModulePath[len(d.ModulePath)-1].Ctxt
	}
	return d.Source.Ctxt
}

func (r *Resolver) addDirective(d Directive) DirectiveID {
	id := r.newDirective(d)
	dir := r.directives[id]
	r.indeterminate = append(r.indeterminate, id)
	switch dir.Kind {
	case SingleImport:
		for _, ns := range namespaces {
			if dir.TypeNSOnly && ns != TypeNS {
				continue
			}
			r.resolution(dir.Parent, r.modern(dir.Target), ns).addSingleImport(id)
		}
	case GlobImport:
		if !dir.IsPrelude {
			m := r.modules[dir.Parent]
			m.Globs = append(m.Globs, id)
		}
	}
	return id
}

// buildUseTree lowers one use tree into directives. prefix is the path of
// the enclosing group, nested is set inside `{...}`.
func (r *Resolver) buildUseTree(tree *ast.UseTree, prefix []ast.Ident, nested bool, item *ast.Item, parent ModuleID, vis Visibility, exp hygiene.Mark) {
	if tree == nil {
		return
	}
	crate := r.modules[parent].Crate
	modulePath := append([]ast.Ident(nil), prefix...)
	if tree.Prefix != nil {
		if tree.Prefix.Global && len(prefix) == 0 {
			modulePath = append(modulePath, ast.Ident{Name: ast.KwPathRoot, Span: tree.Prefix.Span})
		}
		for _, seg := range tree.Prefix.Segments {
			modulePath = append(modulePath, seg.Ident)
		}
	}
	base := Directive{
		Parent:    parent,
		Crate:     crate,
		Vis:       vis,
		Span:      tree.Span,
		Node:      tree.ID,
		RootID:    item.ID,
		RootSpan:  item.Span,
		Expansion: exp,
	}

	switch tree.Kind {
	case ast.UseSimple:
		if len(modulePath) == 0 {
			return
		}
		source := modulePath[len(modulePath)-1]
		modulePath = modulePath[:len(modulePath)-1]
		target := source
		if tree.Rename != nil {
			target = *tree.Rename
		}
		typeNSOnly := false
		if nested {
			if source.Name == ast.KwSelfValue {
				typeNSOnly = true
				if len(modulePath) == 0 || modulePath[len(modulePath)-1].Name == ast.KwPathRoot {
					r.emit(crate, diag.Errorf(diag.KindIllegalUse, "E0431", tree.Span,
						"`self` import can only appear in an import list with a non-empty prefix").
						Label(tree.Span, "can only appear in an import list with a non-empty prefix"))
					return
				}
				last := modulePath[len(modulePath)-1]
				modulePath = modulePath[:len(modulePath)-1]
				source = last
				if tree.Rename == nil {
					target = last
				}
			}
		} else if source.Name == ast.KwSelfValue {
			r.emit(crate, diag.Errorf(diag.KindIllegalUse, "E0429", tree.Span,
				"`self` imports are only allowed within a { } list").
				Label(tree.Span, "self imports are only allowed within a { } list"))
			return
		}
		base.Kind = SingleImport
		base.ModulePath = modulePath
		base.Source = source
		base.Target = target
		base.TypeNSOnly = typeNSOnly
		r.noteUnusedCandidate(r.addDirective(base))

	case ast.UseGlob:
		base.Kind = GlobImport
		base.ModulePath = modulePath
		base.IsPrelude = item.Attrs.Has("prelude_import")
		r.noteUnusedCandidate(r.addDirective(base))

	case ast.UseNested:
		var selfSpans []ast.Span
		for _, t := range tree.Nested {
			if t.Kind == ast.UseSimple && t.Prefix != nil && len(t.Prefix.Segments) == 1 &&
				t.Prefix.Segments[0].Ident.Name == ast.KwSelfValue {
				selfSpans = append(selfSpans, t.Span)
			}
		}
		if len(selfSpans) > 1 {
			d := diag.Errorf(diag.KindIllegalUse, "E0430", selfSpans[0], "`self` import can only appear once in an import list").
				Label(selfSpans[0], "can only appear once in an import list")
			for _, other := range selfSpans[1:] {
				d.Label(other, "another `self` import appears here")
			}
			r.emit(crate, d)
		}
		for _, t := range tree.Nested {
			r.buildUseTree(t, modulePath, true, item, parent, vis, exp)
		}
	}
}

// resolveImports makes one pass over the indeterminate directives. It
// reports whether any directive became determined.
func (r *Resolver) resolveImports() bool {
	queue := r.indeterminate
	r.indeterminate = nil
	progress := false
	for _, d := range queue {
		if r.resolveImport(d) {
			r.determined = append(r.determined, d)
			progress = true
		} else {
			r.indeterminate = append(r.indeterminate, d)
		}
	}
	return progress
}

// resolveImport attempts one directive and reports whether it is now
// determined.
func (r *Resolver) resolveImport(did DirectiveID) bool {
	dir := r.directives[did]
	origModule := r.currentModule
	r.currentModule = dir.Parent
	defer func() { r.currentModule = origModule }()

	if !dir.importedSet {
		res := r.resolveImportPath(dir, false)
		switch res.Kind {
		case PathModule:
			dir.importedModule = res.Module
			dir.importedSet = true
		case PathIndeterminate:
			return false
		default:
			// Failures are reported when the directive is finalized.
			r.importDummyBinding(did)
			return true
		}
	}

	switch dir.Kind {
	case GlobImport:
		r.resolveGlobImport(did)
		return true
	case SingleImport:
	default:
		return true
	}

	indeterminate := false
	for _, ns := range namespaces {
		if dir.TypeNSOnly && ns != TypeNS {
			continue
		}
		if dir.results[ns].state != resUndetermined {
			continue
		}
		b, det := r.resolveIdentInRoot(dir.importedModule, dir.Source, ns, false, dir.Span)
		switch {
		case b != noBinding:
			dir.results[ns] = importResult{state: resOk, binding: b}
		case det == Determined:
			dir.results[ns] = importResult{state: resDetermined}
		}

		parent := dir.Parent
		switch res := dir.results[ns]; res.state {
		case resUndetermined:
			indeterminate = true
		case resDetermined:
			r.updateResolution(parent, dir.Target, ns, func(nr *NameResolution) {
				nr.removeSingleImport(did)
			})
		case resOk:
			if !r.isImportable(res.binding) {
				r.emit(dir.Crate, diag.Errorf(diag.KindIllegalUse, "E0253", dir.Span, "`%s` is not directly importable", dir.Target.Name).
					Label(dir.Span, "cannot be imported directly"))
				r.importDummyBinding(did)
				continue
			}
			imported := r.importBinding(res.binding, did)
			dir.targets[ns] = imported
			if old, ok := r.tryDefine(parent, dir.Target, ns, imported); !ok {
				r.reportConflict(parent, dir.Target, ns, imported, old)
			}
		}
	}
	return !indeterminate
}

func (r *Resolver) resolveGlobImport(did DirectiveID) {
	dir := r.directives[did]
	target, ok := dir.importedModule.Module()
	if !ok {
		return
	}
	tm := r.modules[target]
	switch {
	case tm.IsTrait():
		r.emit(dir.Crate, diag.Errorf(diag.KindIllegalUse, "", dir.Span, "items in traits are not importable."))
		return
	case target == dir.Parent:
		// Reported when the directive is finalized.
		return
	case dir.IsPrelude:
		r.prelude = target
		return
	}

	tm.GlobImporters = append(tm.GlobImporters, did)
	r.forEachResolution(target, func(key resKey, nr *NameResolution) {
		b := r.visibleBinding(nr)
		if b == noBinding {
			return
		}
		ident := ast.Ident{Name: key.Name, Ctxt: key.Ctxt}
		scopeMark, hasScope, ok := r.hyg.ReverseGlobAdjust(&ident.Ctxt, tm.Expansion, r.hyg.Modern(dir.ctxt()))
		if !ok {
			return
		}
		scope := r.currentModule
		if hasScope {
			scope = r.macroDefScope(scopeMark)
		}
		if r.isAccessibleFrom(r.pseudoVis(b), scope) {
			r.tryDefine(dir.Parent, ident, key.NS, r.importBinding(b, did))
		}
	})

	if dir.Crate == LocalCrate {
		r.recordDef(dir.Node, PathResolution{BaseDef: tm.Def})
		if _, ok := r.globMap[dir.Node]; !ok {
			r.globMap[dir.Node] = make(map[string]bool)
		}
	}
}

func (r *Resolver) noteUnusedCandidate(did DirectiveID) {
	dir := r.directives[did]
	if dir.Crate == LocalCrate && !dir.IsPrelude {
		r.unusedCands = append(r.unusedCands, did)
	}
}

// importDummyBinding defines the directive's target as an error so later
// lookups do not report the same failure again.
func (r *Resolver) importDummyBinding(did DirectiveID) {
	dir := r.directives[did]
	if dir.Kind != SingleImport {
		return
	}
	dummy := r.importBinding(r.dummyBinding(), did)
	for _, ns := range namespaces {
		if dir.TypeNSOnly && ns != TypeNS {
			continue
		}
		r.tryDefine(dir.Parent, dir.Target, ns, dummy)
		r.updateResolution(dir.Parent, dir.Target, ns, func(nr *NameResolution) {
			nr.removeSingleImport(did)
		})
	}
}

func (r *Resolver) dummyBinding() BindingID {
	return r.newBinding(Binding{kind: bindDef, def: errDef, Vis: visPublicV})
}

// reportConflict reports a duplicate definition on the later of the two
// bindings.
func (r *Resolver) reportConflict(parent ModuleID, ident ast.Ident, ns Namespace, newB, oldB BindingID) {
	if r.bindings[newB].Span.Less(r.bindings[oldB].Span) {
		newB, oldB = oldB, newB
	}
	pm := r.modules[parent]
	container := "enum"
	switch {
	case pm.IsBlock():
		container = "block"
	case pm.IsNormal():
		container = "module"
	case pm.IsTrait():
		container = "trait"
	}
	oldNoun := "definition"
	if r.isImport(oldB) {
		oldNoun = "import"
	}
	newParticiple := "defined"
	if r.isImport(newB) {
		newParticiple = "imported"
	}
	span := r.bindings[newB].Span
	name := ident.Name
	if s, ok := r.nameSeen[name]; ok && s == span {
		return
	}

	oldKind := "type"
	switch ns {
	case ValueNS:
		oldKind = "value"
	case MacroNS:
		oldKind = "macro"
	default:
		if r.isExternCrate(oldB) {
			oldKind = "extern crate"
		} else if m, ok := r.bindingModule(oldB); ok {
			if r.modules[m].IsNormal() {
				oldKind = "module"
			} else if r.modules[m].IsTrait() {
				oldKind = "trait"
			}
		}
	}

	var code string
	oldExtern, newExtern := r.isExternCrate(oldB), r.isExternCrate(newB)
	oldImport, newImport := r.isImport(oldB), r.isImport(newB)
	switch {
	case oldExtern && newExtern:
		code = "E0259"
	case oldExtern || newExtern:
		if oldImport && newImport {
			code = "E0254"
		} else {
			code = "E0260"
		}
	case !oldImport && !newImport:
		code = "E0428"
	case oldImport && newImport:
		code = "E0252"
	default:
		code = "E0255"
	}

	d := diag.Errorf(diag.KindConflict, code, span, "the name `%s` is defined multiple times", name).
		Note("`%s` must be defined only once in the %s namespace of this %s", name, ns, container).
		Label(span, "`%s` re%s here", name, newParticiple)
	if oldSpan := r.bindings[oldB].Span; !oldSpan.IsDummy() {
		d.Label(oldSpan, "previous %s of the %s `%s` here", oldNoun, oldKind, name)
	}
	if oldImport || newImport {
		b := oldB
		if newImport {
			b = newB
		}
		if bb := r.bindings[b]; bb.kind == bindImport {
			dir := r.directives[bb.directive]
			d.Suggest("you can use `as` to change the binding name of the import", bb.Span,
				importPathString(dir)+" as Other"+name, diag.MaybeIncorrect)
		}
	}
	r.emit(pm.Crate, d)
	r.nameSeen[name] = span
}
