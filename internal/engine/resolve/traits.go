package resolve

import "nameres/internal/engine/ast"

// traitsContainingItem lists the traits in scope that define ident in ns:
// the trait being implemented, then traits visible along the hygienic
// module chain, then the prelude. Import bindings that contribute a trait
// are marked used.
func (r *Resolver) traitsContainingItem(ident ast.Ident, ns Namespace) []TraitCandidate {
	var found []TraitCandidate
	if tm := r.late.traitModule; tm != noModule {
		if b, _ := r.resolveIdentInModule(tm, ident, ns, false, ident.Span); b != noBinding {
			found = append(found, TraitCandidate{Def: r.modules[tm].Def.ID})
		}
	}

	ident.Ctxt = r.hyg.Modern(ident.Ctxt)
	search := r.currentModule
	for {
		found = r.traitsInModule(ident, ns, search, found)
		next, ok := r.hygienicLexicalParent(search, &ident.Ctxt)
		if !ok {
			break
		}
		search = next
	}
	if r.prelude != noModule && !r.modules[search].NoImplicitPrelude {
		found = r.traitsInModule(ident, ns, r.prelude, found)
	}
	return found
}

func (r *Resolver) traitsInModule(ident ast.Ident, ns Namespace, module ModuleID, found []TraitCandidate) []TraitCandidate {
	m := r.modules[module]
	if !m.traitsCached {
		r.forEachResolution(module, func(key resKey, nr *NameResolution) {
			if key.NS != TypeNS || nr.Binding == noBinding {
				return
			}
			if r.bindingDef(nr.Binding).Kind == DefTrait {
				m.traits = append(m.traits, traitEntry{name: key.Name, binding: nr.Binding})
			}
		})
		m.traitsCached = true
	}

	for _, t := range m.traits {
		tm, ok := r.bindingModule(t.binding)
		if !ok {
			continue
		}
		id := ident
		if _, _, ok := r.hyg.GlobAdjust(&id.Ctxt, r.modules[tm].Expansion, r.modules[tm].Ctxt); !ok {
			continue
		}
		if b, _ := r.resolveIdentInModuleUnadjusted(tm, id, ns, false, ident.Span); b == noBinding {
			continue
		}
		cand := TraitCandidate{Def: r.modules[tm].Def.ID}
		if bb := r.bindings[t.binding]; bb.kind == bindImport {
			dir := r.directives[bb.directive]
			cand.Import = dir.Node
			r.recordUse(ast.Ident{Name: t.name}, TypeNS, t.binding, ident.Span)
		}
		found = append(found, cand)
	}
	return found
}
