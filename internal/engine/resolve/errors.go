package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/hygiene"
)

// reportErrors flushes the ambiguity and privacy errors queued during
// resolution. Each span is reported at most once.
func (r *Resolver) reportErrors() {
	reported := make(map[ast.Span]bool)

	for _, e := range r.ambiguityErrors {
		if reported[e.span] {
			continue
		}
		reported[e.span] = true
		b1, b2 := r.bindings[e.b1], r.bindings[e.b2]

		var note string
		switch {
		case b1.Expansion == hygiene.RootMark || r.isGlobImport(e.b1):
			note = "consider adding an explicit import of `" + e.name + "` to disambiguate"
		case r.bindingDef(e.b1).Kind == DefMacro && b1.kind == bindImport:
			note = "macro-expanded macro imports do not shadow"
		case r.bindingDef(e.b1).Kind == DefMacro:
			note = "macro-expanded macros do not shadow"
		case b1.kind == bindImport:
			note = "macro-expanded imports do not shadow when used in a macro invocation path"
		default:
			note = "macro-expanded items do not shadow when used in a macro invocation path"
		}

		r.emit(LocalCrate, diag.Errorf(diag.KindAmbiguous, "E0659", e.span, "`%s` is ambiguous", e.name).
			Label(b1.Span, "`%s` could refer to the name %s here", e.name, participle(b1)).
			Label(b2.Span, "`%s` could also refer to the name %s here", e.name, participle(b2)).
			Note("%s", note))
	}

	for _, e := range r.privacyErrors {
		if reported[e.span] {
			continue
		}
		reported[e.span] = true
		descr := r.bindingDef(e.binding).KindName()
		if r.isExternCrate(e.binding) {
			descr = "extern crate"
		}
		r.emit(LocalCrate, diag.Errorf(diag.KindPrivacy, "E0603", e.span, "%s `%s` is private", descr, e.name))
	}
}

func participle(b *Binding) string {
	if b.kind == bindImport {
		return "imported"
	}
	return "defined"
}
