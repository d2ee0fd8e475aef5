package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
)

// resolveVisibility turns a written visibility into a module restriction.
// Errors fall back to public so no item becomes unreachable twice.
func (r *Resolver) resolveVisibility(v ast.Visibility, parent ModuleID) Visibility {
	pm := r.modules[parent]
	switch v.Kind {
	case ast.VisPublic:
		return visPublicV
	case ast.VisCrate:
		return restricted(r.crateRoots[pm.Crate])
	case ast.VisInherited:
		return restricted(pm.NormalAncestor)
	}
	if v.Path == nil || len(v.Path.Segments) == 0 {
		return visPublicV
	}

	target, ok := r.resolveVisibilityPath(v.Path, parent)
	if !ok {
		return visPublicV
	}
	if pm.Crate == LocalCrate && v.ID != ast.DummyNodeID {
		r.recordDef(v.ID, PathResolution{BaseDef: r.modules[target].Def})
	}
	if !r.ancestorOf(target, pm.NormalAncestor) {
		r.emit(pm.Crate, diag.Errorf(diag.KindIllegalUse, "E0742", v.Path.Span,
			"visibilities can only be restricted to ancestor modules").
			Label(v.Path.Span, "not an ancestor"))
		return visPublicV
	}
	return restricted(target)
}

// resolveVisibilityPath walks pub(in path) through module definitions only;
// imports are not resolved yet when visibilities are computed.
func (r *Resolver) resolveVisibilityPath(p *ast.Path, parent ModuleID) (ModuleID, bool) {
	pm := r.modules[parent]
	cur := r.crateRoots[pm.Crate]
	prev := ""
	for i, seg := range p.Segments {
		name := seg.Ident.Name
		switch {
		case i == 0 && name == ast.KwSelfValue:
			cur = pm.NormalAncestor
		case name == ast.KwSuper && (i == 0 || prev == ast.KwSuper):
			base := cur
			if i == 0 {
				base = pm.NormalAncestor
			}
			up := r.modules[base].Parent
			if up == noModule {
				r.emit(pm.Crate, diag.Errorf(diag.KindUnresolved, "E0433", seg.Ident.Span,
					"failed to resolve. There are too many initial `super`s.").
					Label(seg.Ident.Span, "There are too many initial `super`s."))
				return noModule, false
			}
			cur = r.modules[up].NormalAncestor
		case i == 0 && (name == ast.KwCrate || name == ast.KwPathRoot):
			cur = r.crateRoots[pm.Crate]
		default:
			nr := r.resolution(cur, r.modern(seg.Ident), TypeNS)
			next, found := noModule, false
			if nr.Binding != noBinding {
				next, found = r.bindingModule(nr.Binding)
			}
			if !found || !r.modules[next].IsNormal() {
				msg := "Use of undeclared type or module `" + name + "`"
				if i > 0 {
					msg = "Could not find `" + name + "` in `" + prev + "`"
				}
				r.emit(pm.Crate, diag.Errorf(diag.KindUnresolved, "E0433", seg.Ident.Span, "failed to resolve. %s", msg).
					Label(seg.Ident.Span, "%s", msg))
				return noModule, false
			}
			cur = next
		}
		prev = name
	}
	return cur, true
}
