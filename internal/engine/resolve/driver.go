package resolve

import (
	"context"

	"nameres/internal/engine/diag"
)

// resolveImportsAndMacros alternates import passes and macro expansion
// until neither makes progress. When only unresolvable invocations are
// left, one of them is forced per round so its error can unblock the rest.
func (r *Resolver) resolveImportsAndMacros(ctx context.Context) error {
	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.stats.Passes++
		progress := r.resolveImports()
		if r.expandOnce(false) {
			progress = true
		}
		r.log.Debug("import pass",
			"pass", pass,
			"indeterminate", len(r.indeterminate),
			"pending_macros", r.pendingInvocations())

		if !progress {
			if r.pendingInvocations() == 0 || !r.expandOnce(true) {
				break
			}
		}
		if limit := r.passLimit(); pass >= limit {
			r.log.Warn("import resolution stopped at pass limit",
				"limit", limit,
				"indeterminate", len(r.indeterminate))
			break
		}
	}

	for _, id := range r.invocOrder {
		inv := r.invocations[id]
		if inv.done {
			continue
		}
		r.emit(inv.id.Crate, diag.Errorf(diag.KindUnresolved, "", inv.call.Path.Span,
			"cannot determine resolution for the macro `%s`", inv.call.Path.String()))
		r.finishInvocation(inv)
	}
	r.stats.Indeterminate = len(r.indeterminate)
	r.importsDone = true
	return nil
}

// passLimit is the configured cap, or every directive and invocation seen
// so far plus one. A pass that makes progress settles at least one of them.
func (r *Resolver) passLimit() int {
	natural := len(r.directives) - 1 + len(r.invocOrder) + 1
	if r.opts.MaxPasses > 0 && r.opts.MaxPasses < natural {
		return r.opts.MaxPasses
	}
	return natural
}

// settleLazyImports runs the fixed point again for directives and
// invocations added when an extern module is populated after import
// resolution finished. What stays open is backed by dummy bindings.
func (r *Resolver) settleLazyImports() {
	if r.settling || len(r.indeterminate) == 0 && r.pendingInvocations() == 0 {
		return
	}
	r.settling = true
	ribs, labels := r.ribs, r.labelRibs
	module, exp := r.currentModule, r.currentExpansion
	r.ribs, r.labelRibs = PerNS[[]*rib]{}, nil
	defer func() {
		r.ribs, r.labelRibs = ribs, labels
		r.currentModule, r.currentExpansion = module, exp
		r.settling = false
	}()

	for {
		progress := r.resolveImports()
		if r.expandOnce(false) {
			progress = true
		}
		if !progress && (r.pendingInvocations() == 0 || !r.expandOnce(true)) {
			break
		}
	}
	for _, did := range r.indeterminate {
		r.importDummyBinding(did)
		r.determined = append(r.determined, did)
	}
	r.indeterminate = nil
	r.clearGlobs()
}

// clearGlobs drops the glob lists once no glob can define new names.
func (r *Resolver) clearGlobs() {
	for _, m := range r.modules[1:] {
		m.Globs = nil
	}
}
