package resolve

import (
	"errors"
	"fmt"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/expand"
	"nameres/internal/engine/hygiene"
)

// maxExpansionDepth bounds recursive macro expansion.
const maxExpansionDepth = 64

type macroDef struct {
	ID     DefID
	Rule   *ast.MacroRule
	Modern bool
	// Module is where the macro was defined; names in its body resolve
	// there.
	Module ModuleID
	Export bool
	Name   string
	Span   ast.Span
}

// invocSite is the node an expansion is spliced into. Exactly one field is
// set.
type invocSite struct {
	item *ast.MacroCallItem
	stmt *ast.MacroStmt
	expr *ast.MacroCallExpr
}

func (s invocSite) position() expand.Position {
	switch {
	case s.item != nil:
		return expand.PosItems
	case s.stmt != nil:
		return expand.PosStmts
	}
	return expand.PosExpr
}

type invocation struct {
	id     DefID
	pos    textPos
	call   *ast.MacroCall
	module ModuleID
	// parent is the expansion the call itself was written in.
	parent hygiene.Mark
	site   invocSite
	done   bool
}

func (r *Resolver) defineMacro(it *ast.Item, k *ast.MacroDefItem, parent ModuleID, vis Visibility, exp hygiene.Mark) {
	pm := r.modules[parent]
	id := DefID{Crate: pm.Crate, Node: it.ID}
	def := Def{Kind: DefMacro, ID: id}
	export := it.Attrs.Has("macro_export")
	r.macros[id] = &macroDef{
		ID:     id,
		Rule:   k.Rule,
		Modern: k.Modern,
		Module: parent,
		Export: export,
		Name:   it.Ident.Name,
		Span:   it.Span,
	}

	root := r.crateRoots[pm.Crate]
	if k.Modern {
		r.define(parent, it.Ident, MacroNS, def, vis, it.Span, exp)
		return
	}
	b := r.newBinding(Binding{
		kind:        bindDef,
		def:         def,
		Vis:         restricted(root),
		Span:        it.Span,
		Expansion:   exp,
		MacroExport: export && parent == root,
		legacyMacro: true,
	})
	r.defineBinding(parent, it.Ident, MacroNS, b)
	r.addLegacyMacro(parent, it.Ident, b)
	if export && parent != root {
		eb := r.newBinding(Binding{
			kind:        bindDef,
			def:         def,
			Vis:         visPublicV,
			Span:        it.Span,
			Expansion:   exp,
			MacroExport: true,
			legacyMacro: true,
		})
		r.defineBinding(root, it.Ident, MacroNS, eb)
	}
}

func (r *Resolver) registerInvocation(call *ast.MacroCall, module ModuleID, exp hygiene.Mark, site invocSite) {
	if call == nil {
		return
	}
	m := r.modules[module]
	id := DefID{Crate: m.Crate, Node: call.ID}
	if _, ok := r.invocations[id]; ok {
		return
	}
	r.invocations[id] = &invocation{id: id, pos: r.nextTextPos(), call: call, module: module, parent: exp, site: site}
	r.invocOrder = append(r.invocOrder, id)
	m.unresolvedInvocations[call.ID] = true
}

// macroDefScope is the module whose names are visible from the body of the
// macro that created mark.
func (r *Resolver) macroDefScope(mark hygiene.Mark) ModuleID {
	if mark == hygiene.RootMark {
		return r.graphRoot
	}
	def, ok := r.macroDefs[mark]
	if !ok {
		return r.graphRoot
	}
	md, ok := r.macros[def]
	if !ok {
		return r.graphRoot
	}
	return md.Module
}

// textPos orders macro definitions and invocations as they appear in the
// source. Nodes produced by an expansion extend the position of the
// invocation that produced them.
type textPos []uint32

func (p textPos) before(o textPos) bool {
	for i := 0; i < len(p) && i < len(o); i++ {
		if p[i] != o[i] {
			return p[i] < o[i]
		}
	}
	return len(p) < len(o)
}

func (r *Resolver) nextTextPos() textPos {
	pos := append(append(textPos(nil), r.posPrefix...), r.posNext)
	r.posNext++
	return pos
}

// atTextPos runs fn with positions allocated below prefix.
func (r *Resolver) atTextPos(prefix textPos, fn func()) {
	savedPrefix, savedNext := r.posPrefix, r.posNext
	r.posPrefix, r.posNext = prefix, 0
	defer func() { r.posPrefix, r.posNext = savedPrefix, savedNext }()
	fn()
}

type legacyEntry struct {
	pos     textPos
	binding BindingID
}

// addLegacyMacro records a macro_rules definition at the current position
// in module and in every #[macro_use] ancestor it escapes into.
func (r *Resolver) addLegacyMacro(module ModuleID, ident ast.Ident, b BindingID) {
	key := resKey{Name: ident.Name, Ctxt: r.hyg.Modern(ident.Ctxt), NS: MacroNS}
	e := legacyEntry{pos: r.nextTextPos(), binding: b}
	for m := module; m != noModule; m = r.modules[m].Parent {
		scope := r.legacyScopes[m]
		if scope == nil {
			scope = make(map[resKey][]legacyEntry)
			r.legacyScopes[m] = scope
		}
		scope[key] = append(scope[key], e)
		if !r.modules[m].MacroUse {
			break
		}
	}
}

// legacyMacroInScope finds the latest macro_rules definition written before
// the invocation being resolved, searching outwards from the current module.
func (r *Resolver) legacyMacroInScope(ident ast.Ident) (BindingID, bool) {
	key := resKey{Name: ident.Name, Ctxt: ident.Ctxt, NS: MacroNS}
	for m := r.currentModule; m != noModule; m = r.modules[m].Parent {
		entries := r.legacyScopes[m][key]
		for i := len(entries) - 1; i >= 0; i-- {
			if r.invocPos == nil || entries[i].pos.before(r.invocPos) {
				return entries[i].binding, true
			}
		}
	}
	return noBinding, false
}

// resolveLexicalMacro resolves a single-segment macro name: macro_rules
// definitions written earlier in the enclosing scopes, then items and
// imports of the invocation module, then the macro_use prelude, then the
// prelude.
func (r *Resolver) resolveLexicalMacro(ident ast.Ident, recordUsed bool, sp ast.Span) (BindingID, Determinacy) {
	key := r.modern(ident)
	if b, ok := r.legacyMacroInScope(key); ok {
		return b, Determined
	}
	b, det := r.resolveIdentInModule(r.currentModule, ident, MacroNS, recordUsed, sp)
	if b != noBinding && r.bindings[b].legacyMacro && !r.bindings[b].MacroExport {
		// Not yet in textual scope.
		b = noBinding
	}
	if b != noBinding || det == Undetermined {
		return b, det
	}
	if mb, ok := r.macroUsePrelude[ident.Name]; ok {
		if recordUsed {
			r.recordUse(ident, MacroNS, mb, sp)
		}
		return mb, Determined
	}
	if r.prelude != noModule && !r.modules[r.currentModule].NoImplicitPrelude {
		if pb, _ := r.resolveIdentInModuleUnadjusted(r.prelude, key, MacroNS, false, sp); pb != noBinding {
			return pb, Determined
		}
	}
	return noBinding, Determined
}

// macroOutcome is the result of resolving an invocation path.
type macroOutcome struct {
	def     *macroDef
	pending bool
	err     *diag.Diagnostic
}

func (r *Resolver) resolveInvocation(inv *invocation, force bool) macroOutcome {
	orig, origExp := r.currentModule, r.currentExpansion
	r.currentModule, r.currentExpansion = inv.module, inv.parent
	r.restrictedShadowing = true
	r.invocPos = inv.pos
	defer func() {
		r.currentModule, r.currentExpansion = orig, origExp
		r.restrictedShadowing = false
		r.invocPos = nil
	}()

	segs := pathIdents(inv.call.Path)
	sp := inv.call.Path.Span
	name := inv.call.Path.String()
	res := r.resolvePath(segs, nsPtr(MacroNS), false, sp, false)
	switch res.Kind {
	case PathIndeterminate:
		if !force {
			return macroOutcome{pending: true}
		}
		return macroOutcome{err: diag.Errorf(diag.KindUnresolved, "", sp, "cannot determine resolution for the macro `%s`", name).
			Note("import resolution is stuck, try simplifying macro imports")}
	case PathNonModule:
		if def, ok := res.Res.FullDef(); ok && def.Kind == DefMacro {
			if md, ok := r.macros[def.ID]; ok {
				r.resolvePath(segs, nsPtr(MacroNS), true, sp, false)
				return macroOutcome{def: md}
			}
		}
		if def := res.Res.BaseDef; !def.IsErr() {
			return macroOutcome{err: diag.Errorf(diag.KindUnresolved, "", sp, "expected macro, found %s `%s`", def.KindName(), name).
				Label(sp, "not a macro")}
		}
		return macroOutcome{err: diag.Errorf(diag.KindUnresolved, "", sp, "cannot find macro `%s!` in this scope", name)}
	}

	if len(segs) != 1 {
		msg := res.Msg
		if res.Kind != PathFailed {
			msg = fmt.Sprintf("Could not find `%s`", name)
		}
		return macroOutcome{err: diag.Errorf(diag.KindUnresolved, "E0433", res.Span, "failed to resolve. %s", msg).
			Label(res.Span, "%s", msg)}
	}
	// A macro_rules definition may still come from an expansion in an
	// enclosing module.
	if !force && r.invocationsAbove(inv.module, inv.call.ID) {
		return macroOutcome{pending: true}
	}
	d := diag.Errorf(diag.KindUnresolved, "", sp, "cannot find macro `%s!` in this scope", name)
	if s, ok := r.suggestMacroName(segs[0].Name, inv.module); ok {
		d.Suggest("you could try the macro", sp, s, diag.MaybeIncorrect)
	}
	return macroOutcome{err: d}
}

func (r *Resolver) invocationsAbove(m ModuleID, self ast.NodeID) bool {
	for ; m != noModule; m = r.modules[m].Parent {
		for id := range r.modules[m].unresolvedInvocations {
			if id != self {
				return true
			}
		}
	}
	return false
}

// expandOnce tries every unexpanded invocation. It reports whether any
// invocation was expanded or failed for good.
func (r *Resolver) expandOnce(force bool) bool {
	progress := false
	for i := 0; i < len(r.invocOrder); i++ {
		inv := r.invocations[r.invocOrder[i]]
		if inv.done {
			continue
		}
		out := r.resolveInvocation(inv, force)
		if out.pending {
			continue
		}
		progress = true
		if out.err != nil {
			r.emit(inv.id.Crate, out.err)
			r.finishInvocation(inv)
			continue
		}
		r.expandInvocation(inv, out.def)
		if force {
			// One forced invocation per round; the rest may now resolve.
			return true
		}
	}
	return progress
}

func (r *Resolver) finishInvocation(inv *invocation) {
	inv.done = true
	delete(r.modules[inv.module].unresolvedInvocations, inv.call.ID)
}

func (r *Resolver) expansionDepth(m hygiene.Mark) int {
	depth := 0
	for m != hygiene.RootMark {
		depth++
		m = r.hyg.Parent(m)
	}
	return depth
}

// expandInvocation transcribes md at inv and builds the new nodes into the
// module graph under a fresh mark.
func (r *Resolver) expandInvocation(inv *invocation, md *macroDef) {
	crate := inv.id.Crate
	defer r.finishInvocation(inv)

	if r.expansionDepth(inv.parent) >= maxExpansionDepth {
		r.emit(crate, diag.Errorf(diag.KindIllegalUse, "", inv.call.Span,
			"recursion limit reached while expanding the macro `%s`", md.Name).
			Note("consider raising the recursion limit"))
		return
	}
	if crate == LocalCrate {
		r.recordDef(inv.call.ID, PathResolution{BaseDef: Def{Kind: DefMacro, ID: md.ID}})
	}

	mark := r.hyg.NewMark(inv.parent, md.Modern)
	r.macroDefs[mark] = md.ID
	tr := &expand.Transcriber{Hygiene: r.hyg, NewID: func() ast.NodeID { return r.allocID(crate) }}
	res, err := tr.Expand(md.Rule, inv.call, mark, inv.site.position())
	if err != nil {
		var xe *expand.Error
		sp := inv.call.Span
		msg := err.Error()
		if errors.As(err, &xe) {
			sp, msg = xe.Span, xe.Msg
		}
		r.emit(crate, diag.Errorf(diag.KindIllegalUse, "", sp, "%s", msg).
			Note("in this expansion of `%s!`", md.Name))
		return
	}
	r.stats.Expansions++
	r.log.Debug("expanded macro", "macro", md.Name, "mark", uint32(mark), "position", inv.site.position().String())

	r.atTextPos(inv.pos, func() {
		switch {
		case inv.site.item != nil:
			inv.site.item.Expanded = res.Items
			for _, it := range res.Items {
				r.buildItem(it, inv.module, mark)
			}
		case inv.site.stmt != nil:
			inv.site.stmt.Expanded = res.Stmts
			for _, s := range res.Stmts {
				r.buildBody(s, inv.module, mark)
			}
		default:
			inv.site.expr.Expanded = res.Expr
			r.buildBody(res.Expr, inv.module, mark)
		}
	})
}

func (r *Resolver) pendingInvocations() int {
	n := 0
	for _, id := range r.invocOrder {
		if !r.invocations[id].done {
			n++
		}
	}
	return n
}
