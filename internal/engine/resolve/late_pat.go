package resolve

import (
	"sort"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
)

// resolvePattern binds the names of p into the top value rib. bindings maps
// each name bound so far to the pattern alternative that bound it; it is
// shared by the parameters of one fn and the alternatives of one pattern.
func (r *Resolver) resolvePattern(p ast.Pat, src patSource, bindings map[ribKey]ast.NodeID) {
	if p == nil {
		return
	}
	r.walkPattern(p, p.Node().ID, src, bindings)
}

func (r *Resolver) walkPattern(p ast.Pat, outer ast.NodeID, src patSource, bindings map[ribKey]ast.NodeID) {
	switch v := p.(type) {
	case nil:
	case *ast.IdentPat:
		r.resolveIdentPat(v, outer, src, bindings)
		r.walkPattern(v.Sub, outer, src, bindings)
	case *ast.PathPat:
		if v.QSelf != nil {
			r.resolveTy(v.QSelf.Ty)
		}
		r.smartResolvePath(v.ID, v.QSelf, v.Path, pathCtx{src: srcPat})
	case *ast.TupleStructPat:
		r.smartResolvePath(v.ID, nil, v.Path, pathCtx{src: srcTupleStruct})
		for _, el := range v.Elems {
			r.walkPattern(el, outer, src, bindings)
		}
	case *ast.StructPat:
		r.smartResolvePath(v.ID, nil, v.Path, pathCtx{src: srcStruct})
		for _, f := range v.Fields {
			r.walkPattern(f.Pat, outer, src, bindings)
		}
	case *ast.TuplePat:
		for _, el := range v.Elems {
			r.walkPattern(el, outer, src, bindings)
		}
	case *ast.SlicePat:
		for _, el := range v.Elems {
			r.walkPattern(el, outer, src, bindings)
		}
	case *ast.RefPat:
		r.walkPattern(v.Inner, outer, src, bindings)
	case *ast.LitPat:
		r.resolveExpr(v.Expr, nil)
	case *ast.RangePat:
		r.resolveExpr(v.Lo, nil)
		r.resolveExpr(v.Hi, nil)
	case *ast.OrPat:
		for _, alt := range v.Alts {
			r.walkPattern(alt, alt.Node().ID, src, bindings)
		}
		r.checkConsistentBindings(v.Alts)
	}
}

// resolveIdentPat decides whether a bare identifier pattern names a unit
// struct, unit variant or constant, or introduces a fresh binding.
func (r *Resolver) resolveIdentPat(p *ast.IdentPat, outer ast.NodeID, src patSource, bindings map[ribKey]ast.NodeID) {
	lb := r.resolveIdentInLexicalScope(p.Ident, ValueNS, false, p.Span)
	if lb.item != noBinding {
		def := r.bindingDef(lb.item)
		plain := p.Sub == nil && !p.ByRef && !p.Mutable
		unitLike := (def.Kind == DefStructCtor || def.Kind == DefVariantCtor) && def.Ctor == CtorConst || def.Kind == DefConst
		switch {
		case unitLike && plain:
			r.recordUse(p.Ident, ValueNS, lb.item, p.Ident.Span)
			r.recordDef(p.ID, PathResolution{BaseDef: def})
			return
		case def.Kind == DefStructCtor || def.Kind == DefVariantCtor || def.Kind == DefConst || def.Kind == DefStatic:
			b := r.bindings[lb.item]
			participle := "defined"
			if b.kind == bindImport {
				participle = "imported"
			}
			shadows := def.KindName()
			r.emitLocal(diag.Errorf(diag.KindIllegalUse, "E0530", p.Ident.Span, "%ss cannot shadow %ss", src.descr(), shadows).
				Label(p.Ident.Span, "cannot be named the same as %s %s", def.Article(), shadows).
				Label(b.Span, "%s %s `%s` is %s here", def.Article(), shadows, p.Ident.Name, participle))
		}
	}
	def := r.freshBinding(p.Ident, p.ID, outer, src, bindings)
	r.recordDef(p.ID, PathResolution{BaseDef: def})
}

func (r *Resolver) freshBinding(ident ast.Ident, patID, outer ast.NodeID, src patSource, bindings map[ribKey]ast.NodeID) Def {
	key := ribKey{name: ident.Name, ctxt: ident.Ctxt}
	def := Def{Kind: DefLocal, Local: patID}
	first, seen := bindings[key]
	switch {
	case seen && first == outer:
		r.emitLocal(diag.Errorf(diag.KindConflict, "E0416", ident.Span,
			"identifier `%s` is bound more than once in the same pattern", ident.Name).
			Label(ident.Span, "used in a pattern more than once"))
	case seen && src == patFnParam:
		r.emitLocal(diag.Errorf(diag.KindConflict, "E0415", ident.Span,
			"identifier `%s` is bound more than once in this parameter list", ident.Name).
			Label(ident.Span, "used as parameter more than once"))
	case seen:
		// `A(x) | B(x)` shares the first definition.
		if d, ok := r.topRib(ValueNS).bindings[key]; ok {
			def = d
		}
	case ident.Name != "" && ident.Name != ast.KwUnderscore:
		bindings[key] = outer
		r.topRib(ValueNS).bind(ident.Name, ident.Ctxt, def)
	}
	return def
}

type patBinding struct {
	span    ast.Span
	byRef   bool
	mutable bool
}

// bindingModes lists the fresh bindings of p.
func (r *Resolver) bindingModes(p ast.Pat) map[ribKey]patBinding {
	out := make(map[ribKey]patBinding)
	ast.Inspect(p, func(n ast.Node) bool {
		ip, ok := n.(*ast.IdentPat)
		if !ok {
			return true
		}
		if res, ok := r.defMap[ip.ID]; ok && res.BaseDef.Kind == DefLocal {
			out[ribKey{name: ip.Ident.Name, ctxt: ip.Ident.Ctxt}] = patBinding{span: ip.Ident.Span, byRef: ip.ByRef, mutable: ip.Mutable}
		}
		return true
	})
	return out
}

type missingBinding struct {
	origin []ast.Span
	target []ast.Span
}

// checkConsistentBindings requires every alternative to bind the same
// names in the same mode.
func (r *Resolver) checkConsistentBindings(alts []ast.Pat) {
	if len(alts) < 2 {
		return
	}
	maps := make([]map[ribKey]patBinding, len(alts))
	for i, p := range alts {
		maps[i] = r.bindingModes(p)
	}

	missing := make(map[string]*missingBinding)
	inconsistent := make(map[string][2]ast.Span)
	note := func(name string, origin, target ast.Span) {
		m, ok := missing[name]
		if !ok {
			m = &missingBinding{}
			missing[name] = m
		}
		m.origin = appendSpan(m.origin, origin)
		m.target = appendSpan(m.target, target)
	}
	for i := range alts {
		for j := range alts {
			if i == j {
				continue
			}
			for key, bi := range maps[i] {
				bj, ok := maps[j][key]
				if !ok {
					note(key.name, bi.span, alts[j].Node().Span)
					continue
				}
				if bi.byRef != bj.byRef || bi.mutable != bj.mutable {
					if _, done := inconsistent[key.name]; !done {
						inconsistent[key.name] = [2]ast.Span{bj.span, bi.span}
					}
				}
			}
		}
	}

	names := make([]string, 0, len(missing))
	for n := range missing {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		m := missing[n]
		sortSpans(m.origin)
		sortSpans(m.target)
		d := diag.Errorf(diag.KindUnresolved, "E0408", m.origin[0], "variable `%s` is not bound in all patterns", n)
		for _, sp := range m.target {
			d.Label(sp, "pattern doesn't bind `%s`", n)
		}
		for _, sp := range m.origin {
			d.Label(sp, "variable not in all patterns")
		}
		r.emitLocal(d)
	}

	names = names[:0]
	for n := range inconsistent {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		sp := inconsistent[n]
		r.emitLocal(diag.Errorf(diag.KindConflict, "E0409", sp[0],
			"variable `%s` is bound in inconsistent ways within the same match arm", n).
			Label(sp[0], "bound in different ways").
			Label(sp[1], "first binding"))
	}
}

func appendSpan(spans []ast.Span, sp ast.Span) []ast.Span {
	for _, s := range spans {
		if s == sp {
			return spans
		}
	}
	return append(spans, sp)
}

func sortSpans(spans []ast.Span) {
	sort.Slice(spans, func(i, j int) bool { return spans[i].Less(spans[j]) })
}
