package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/hygiene"
)

// lexicalBinding is either an item binding or a rib definition (local,
// type parameter, label).
type lexicalBinding struct {
	item   BindingID
	def    Def
	hasDef bool
}

func (lb lexicalBinding) found() bool { return lb.item != noBinding || lb.hasDef }

// macroDefOf returns the macro whose expansion produced the outer mark of
// ctxt.
func (r *Resolver) macroDefOf(ctxt hygiene.SyntaxContext) (DefID, bool) {
	outer := r.hyg.Outer(ctxt)
	if outer == hygiene.RootMark {
		return DefID{}, false
	}
	def, ok := r.macroDefs[outer]
	return def, ok
}

// resolveIdentInLexicalScope looks ident up through the rib stack, then
// the module chain, then the preludes.
func (r *Resolver) resolveIdentInLexicalScope(ident ast.Ident, ns Namespace, recordUsed bool, sp ast.Span) lexicalBinding {
	if ns == TypeNS {
		if ident.Name == ast.KwSelfType {
			ident.Ctxt = hygiene.EmptyContext
		} else {
			ident.Ctxt = r.hyg.Modern(ident.Ctxt)
		}
	}

	module := r.graphRoot
	sawModule := false
	ribs := r.ribs[ns]
	for i := len(ribs) - 1; i >= 0; i-- {
		rb := ribs[i]
		if def, ok := rb.lookup(ident); ok {
			return lexicalBinding{def: r.adjustLocalDef(ns, i, def, recordUsed, sp), hasDef: true}
		}
		switch rb.kind {
		case ribModule:
			module, sawModule = rb.module, true
		case ribMacroDefinition:
			if def, ok := r.macroDefOf(ident.Ctxt); ok && def == rb.macroDef {
				r.hyg.RemoveMark(&ident.Ctxt)
			}
			continue
		default:
			continue
		}

		if b, _ := r.resolveIdentInModuleUnadjusted(module, r.modern(ident), ns, recordUsed, sp); b != noBinding {
			return lexicalBinding{item: b}
		}
		if !r.modules[module].IsBlock() {
			break
		}
	}

	// Outside the late walk there are no module ribs; start at the
	// current module.
	if !sawModule && r.currentModule != noModule {
		module = r.currentModule
		b, det := r.resolveIdentInModuleUnadjusted(module, r.modern(ident), ns, recordUsed, sp)
		if b != noBinding {
			return lexicalBinding{item: b}
		}
		if det == Undetermined {
			return lexicalBinding{}
		}
	}

	ident.Ctxt = r.hyg.Modern(ident.Ctxt)
	for {
		next, ok := r.hygienicLexicalParent(module, &ident.Ctxt)
		if !ok {
			break
		}
		module = next
		orig := r.currentModule
		r.currentModule = module
		b, det := r.resolveIdentInModuleUnadjusted(module, ident, ns, recordUsed, sp)
		r.currentModule = orig
		if b != noBinding {
			return lexicalBinding{item: b}
		}
		if det == Undetermined {
			return lexicalBinding{}
		}
	}

	if ns == TypeNS {
		if b := r.externPreludeBinding(ident.Name); b != noBinding {
			return lexicalBinding{item: b}
		}
	}
	if r.prelude != noModule && !r.modules[module].NoImplicitPrelude {
		if b, _ := r.resolveIdentInModuleUnadjusted(r.prelude, ident, ns, false, sp); b != noBinding {
			return lexicalBinding{item: b}
		}
	}
	return lexicalBinding{}
}

// hygienicLexicalParent is one step of the module-chain walk:
//
//	module expansion cannot see ctxt's outer mark -> scope of the macro that made it
//	anonymous block module                       -> syntactic parent
//	normal module produced by a macro expansion  -> first parent outside that expansion
//	anything else                                -> stop
func (r *Resolver) hygienicLexicalParent(module ModuleID, ctxt *hygiene.SyntaxContext) (ModuleID, bool) {
	m := r.modules[module]
	if !r.hyg.IsDescendantOf(m.Expansion, r.hyg.Outer(*ctxt)) {
		return r.macroDefScope(r.hyg.RemoveMark(ctxt)), true
	}
	if m.IsBlock() {
		return m.Parent, true
	}
	exp := r.modernMark(m.Expansion)
	for m.Parent != noModule {
		parent := r.modules[m.Parent]
		parentExp := r.modernMark(parent.Expansion)
		if r.hyg.IsDescendantOf(exp, parentExp) && parentExp != exp {
			if r.hyg.IsDescendantOf(parentExp, r.hyg.Outer(*ctxt)) {
				return parent.ID, true
			}
			return noModule, false
		}
		m = parent
		exp = parentExp
	}
	return noModule, false
}

// modernMark is the nearest modern ancestor of mark; the root counts as
// modern.
func (r *Resolver) modernMark(mark hygiene.Mark) hygiene.Mark {
	for mark != hygiene.RootMark && !r.hyg.IsModern(mark) {
		mark = r.hyg.Parent(mark)
	}
	return mark
}

// adjustLocalDef applies the rib kinds between the defining rib and the
// use site to a local or type parameter definition.
func (r *Resolver) adjustLocalDef(ns Namespace, ribIndex int, def Def, recordUsed bool, sp ast.Span) Def {
	stack := r.ribs[ns]
	if stack[ribIndex].kind == ribForwardTyParamBan {
		if recordUsed {
			r.emitLocal(diag.Errorf(diag.KindIllegalUse, "E0128", sp,
				"type parameters with a default cannot use forward declared identifiers").
				Label(sp, "defaulted type parameters cannot be forward declared"))
		}
		return errDef
	}

	crossed := stack[ribIndex+1:]
	switch def.Kind {
	case DefLocal:
		for _, rb := range crossed {
			switch rb.kind {
			case ribClosure:
				prev := def
				seen, ok := r.freevarsSeen[rb.closure]
				if !ok {
					seen = make(map[ast.NodeID]int)
					r.freevarsSeen[rb.closure] = seen
				}
				if idx, ok := seen[def.Local]; ok {
					def = Def{Kind: DefUpvar, Local: def.Local, Index: idx, Closure: rb.closure}
					continue
				}
				idx := len(r.freevars[rb.closure])
				def = Def{Kind: DefUpvar, Local: def.Local, Index: idx, Closure: rb.closure}
				if recordUsed {
					r.freevars[rb.closure] = append(r.freevars[rb.closure], Capture{Def: prev, Span: sp})
					seen[def.Local] = idx
				}
			case ribItem, ribTraitOrImpl:
				if recordUsed {
					r.emitLocal(diag.Errorf(diag.KindIllegalUse, "E0434", sp, "can't capture dynamic environment in a fn item").
						Label(sp, "help: use the `|| { ... }` closure form instead"))
				}
				return errDef
			case ribConstant:
				if recordUsed {
					r.emitLocal(diag.Errorf(diag.KindIllegalUse, "E0435", sp, "attempt to use a non-constant value in a constant").
						Label(sp, "non-constant value"))
				}
				return errDef
			}
		}
	case DefTyParam, DefSelfTy:
		for _, rb := range crossed {
			if rb.kind == ribItem {
				if recordUsed {
					r.emitLocal(diag.Errorf(diag.KindIllegalUse, "E0401", sp, "can't use type parameters from outer function").
						Label(sp, "use of type variable from outer function"))
				}
				return errDef
			}
		}
	}
	return def
}

// searchLabel finds a label through normal ribs; any other rib is a
// function or closure boundary.
func (r *Resolver) searchLabel(ident ast.Ident) (Def, bool) {
	for i := len(r.labelRibs) - 1; i >= 0; i-- {
		rb := r.labelRibs[i]
		switch rb.kind {
		case ribNormal:
		case ribMacroDefinition:
			if def, ok := r.macroDefOf(ident.Ctxt); ok && def == rb.macroDef {
				r.hyg.RemoveMark(&ident.Ctxt)
			}
		default:
			return Def{}, false
		}
		if def, ok := rb.lookup(ident); ok {
			return def, true
		}
	}
	return Def{}, false
}

// emitLocal reports a diagnostic against the crate being walked.
func (r *Resolver) emitLocal(d *diag.Diagnostic) {
	r.emit(r.modules[r.currentModule].Crate, d)
}
