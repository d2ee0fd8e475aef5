package resolve

import (
	"fmt"
	"strings"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/hygiene"
)

type assocSuggestion uint8

const (
	assocNone assocSuggestion = iota
	assocField
	assocMethodWithSelf
	assocItem
)

// reportPathError emits the diagnostic for a path that resolved to nothing
// (hasDef false) or to a definition ctx does not accept.
func (r *Resolver) reportPathError(path []ast.Ident, sp ast.Span, ctx pathCtx, def Def, hasDef bool) PathResolution {
	ns := ctx.namespace()
	expected := ctx.descr()
	pathStr := pathString(path)
	last := path[len(path)-1]
	if strings.HasPrefix(pathStr, "::") {
		pathStr = pathStr[2:]
	}

	var msg, fallback string
	baseSpan := sp
	if hasDef {
		msg = fmt.Sprintf("expected %s, found %s `%s`", expected, def.KindName(), pathStr)
		fallback = fmt.Sprintf("not a %s", expected)
	} else {
		modPrefix, modStr := "", "this scope"
		switch {
		case len(path) == 1:
		case len(path) == 2 && path[0].Name == ast.KwPathRoot:
			modStr = "the crate root"
		default:
			modPath := path[:len(path)-1]
			if pr := r.resolvePath(modPath, nsPtr(TypeNS), false, sp, false); pr.Kind == PathModule {
				if m, ok := pr.Module.Module(); ok {
					modPrefix = r.modules[m].Def.KindName() + " "
				}
			}
			modStr = "`" + strings.TrimPrefix(pathString(modPath), "::") + "`"
		}
		msg = fmt.Sprintf("cannot find %s `%s` in %s%s", expected, last.Name, modPrefix, modStr)
		fallback = "not found in " + modStr
		baseSpan = last.Span
	}

	d := diag.Errorf(diag.KindUnresolved, ctx.errorCode(hasDef), baseSpan, "%s", msg)
	r.fillPathError(d, path, sp, ctx, def, hasDef, fallback, baseSpan)
	if d.Code != "E0411" && d.Code != "E0424" {
		r.suggestImports(d, last.Name, ns, ctx.expected, hasDef)
	}
	r.emitLocal(d)
	return PathResolution{BaseDef: errDef}
}

func (r *Resolver) fillPathError(d *diag.Diagnostic, path []ast.Ident, sp ast.Span, ctx pathCtx, def Def, hasDef bool, fallback string, baseSpan ast.Span) {
	ns := ctx.namespace()
	pathStr := strings.TrimPrefix(pathString(path), "::")
	ident := path[len(path)-1]

	if len(path) == 1 && ns == TypeNS && ident.Name == ast.KwSelfType {
		d.Code = "E0411"
		d.Label(sp, "`Self` is only available in traits and impls")
		return
	}
	if len(path) == 1 && ns == ValueNS && ident.Name == ast.KwSelfValue {
		d.Code = "E0424"
		d.Label(sp, "`self` value is only available in methods with `self` parameter")
		return
	}

	if ctx.expected(Def{Kind: DefEnum}) && len(r.lookupImportCandidates(ident.Name, ns, ctx.expected)) == 0 {
		isVariant := func(d Def) bool { return d.Kind == DefVariant }
		for _, c := range r.lookupImportCandidates(ident.Name, ns, isVariant) {
			enumPath := c.path[:strings.LastIndex(c.path, "::")]
			d.Note("there is an enum variant `%s`, try using `%s`?", c.path, enumPath)
		}
	}

	if len(path) == 1 && r.selfTypeAvailable(sp) {
		switch r.lookupAssocCandidate(ident, ns, ctx.expected) {
		case assocField:
			d.Suggest("try", sp, "self."+pathStr, diag.MaybeIncorrect)
			if !r.selfValueAvailable(ident.Ctxt, sp) {
				d.Label(sp, "`self` value is only available in methods with `self` parameter")
			}
			return
		case assocMethodWithSelf:
			if r.selfValueAvailable(ident.Ctxt, sp) {
				d.Suggest("try", sp, "self."+pathStr, diag.MaybeIncorrect)
			} else {
				d.Suggest("try", sp, "Self::"+pathStr, diag.MaybeIncorrect)
			}
			return
		case assocItem:
			d.Suggest("try", sp, "Self::"+pathStr, diag.MaybeIncorrect)
			return
		}
	}

	typo := false
	if cand, ok := r.lookupTypoCandidate(path, ns, ctx.expected, sp); ok {
		d.Label(ident.Span, "did you mean `%s`?", cand)
		typo = true
	}

	if hasDef && r.contextHelp(d, def, ctx, sp, pathStr, fallback) {
		return
	}
	if !typo {
		d.Label(baseSpan, "%s", fallback)
	}
}

// contextHelp adds the hint specific to finding def where ctx expected
// something else. It reports whether the hint replaces the fallback label.
func (r *Resolver) contextHelp(d *diag.Diagnostic, def Def, ctx pathCtx, sp ast.Span, pathStr, fallback string) bool {
	ns := ctx.namespace()
	switch {
	case def.Kind == DefMacro:
		d.Label(sp, "did you mean `%s!(...)`?", pathStr)
		return true
	case def.Kind == DefTyAlias && ctx.src == srcTrait:
		d.Label(sp, "type aliases cannot be used for traits")
		return true
	case def.Kind == DefMod && ctx.src == srcExpr && ctx.parent != nil:
		switch p := ctx.parent.(type) {
		case *ast.FieldExpr:
			d.Label(p.Span, "did you mean `%s::%s`?", pathStr, p.Field.Name)
			return true
		case *ast.MethodCallExpr:
			d.Label(p.Span, "did you mean `%s::%s(...)`?", pathStr, p.Method.Ident.Name)
			return true
		}
	case def.Kind == DefEnum && (ctx.src == srcTupleStruct || ctx.src == srcExpr):
		if variants := r.enumVariants(def); len(variants) > 0 {
			lines := make([]string, 0, len(variants))
			for _, v := range variants {
				lines = append(lines, "- `"+v+"`")
			}
			d.Note("did you mean to use one of the following variants?\n%s", strings.Join(lines, "\n"))
		} else {
			d.Note("did you mean to use one of the enum's variants?")
		}
		return true
	case def.Kind == DefStruct && ns == ValueNS:
		if c, ok := r.structCtors[def.ID]; ok {
			if ctx.expected(c.def) && !r.isAccessibleFrom(c.vis, r.currentModule) {
				d.Label(sp, "constructor is not visible here due to private fields")
			}
		} else {
			d.Label(sp, "did you mean `%s { /* fields */ }`?", pathStr)
		}
		return true
	case ns == ValueNS && (def.Kind == DefVariant || def.Kind == DefVariantCtor && def.Ctor == CtorFictive):
		d.Label(sp, "did you mean `%s { /* fields */ }`?", pathStr)
		return true
	case def.Kind == DefSelfTy && ns == ValueNS:
		d.Label(sp, "%s", fallback)
		d.Note("can't use `Self` as a constructor, you must use the implemented struct")
		return true
	case (def.Kind == DefTyAlias || def.Kind == DefAssocTy) && ns == ValueNS:
		d.Note("can't use a type alias as a constructor")
		return true
	}
	return false
}

// suggestImports proposes use declarations for definitions named name
// elsewhere in the crate graph.
func (r *Resolver) suggestImports(d *diag.Diagnostic, name string, ns Namespace, filter func(Def) bool, better bool) {
	cands := r.lookupImportCandidates(name, ns, filter)
	if len(cands) == 0 {
		return
	}
	b := ""
	if better {
		b = "better "
	}
	msg := fmt.Sprintf("possible %scandidate is found in another module, you can import it into scope", b)
	if len(cands) > 1 {
		msg = fmt.Sprintf("possible %scandidates are found in other modules, you can import them into scope", b)
	}
	at, foundUse, ok := r.useInsertionSpan()
	if !ok {
		for _, c := range cands {
			d.Note("%s: `%s`", msg, c.path)
		}
		return
	}
	nl := "\n"
	if foundUse {
		nl = ""
	}
	for _, c := range cands {
		d.Suggest(msg, at, "use "+r.importablePath(c.path)+";\n"+nl, diag.MachineApplicable)
	}
}

// importablePath spells a candidate path for a use declaration. Local
// paths need `crate::` under 2018 rules.
func (r *Resolver) importablePath(p string) string {
	if r.opts.Edition != Edition2018 {
		return p
	}
	first := p
	if i := strings.Index(p, "::"); i >= 0 {
		first = p[:i]
	}
	if r.externPrelude[first] {
		return p
	}
	return ast.KwCrate + "::" + p
}

// useInsertionSpan is where a new use declaration goes in the current
// normal module: before the first use item, or before the first item.
func (r *Resolver) useInsertionSpan() (ast.Span, bool, bool) {
	items := r.late.items[r.modules[r.currentModule].NormalAncestor]
	for _, it := range items {
		if _, ok := it.Kind.(*ast.UseItem); ok && !it.Span.IsDummy() {
			sp := it.Span
			sp.Hi = sp.Lo
			return sp, true, true
		}
	}
	for _, it := range items {
		if !it.Span.IsDummy() && len(it.Attrs) == 0 {
			sp := it.Span
			sp.Hi = sp.Lo
			return sp, false, true
		}
	}
	return ast.Span{}, false, false
}

func (r *Resolver) selfTypeAvailable(sp ast.Span) bool {
	lb := r.resolveIdentInLexicalScope(ast.Ident{Name: ast.KwSelfType}, TypeNS, false, sp)
	return lb.hasDef && !lb.def.IsErr()
}

func (r *Resolver) selfValueAvailable(ctxt hygiene.SyntaxContext, sp ast.Span) bool {
	lb := r.resolveIdentInLexicalScope(ast.Ident{Name: ast.KwSelfValue, Ctxt: ctxt}, ValueNS, false, sp)
	return lb.hasDef && !lb.def.IsErr()
}

// lookupAssocCandidate checks whether ident names a field of the impl's
// self type or an item of the implemented trait.
func (r *Resolver) lookupAssocCandidate(ident ast.Ident, ns Namespace, filter func(Def) bool) assocSuggestion {
	if filter(Def{Kind: DefLocal}) {
		if id, ok := selfTyNode(r.late.selfTy); ok {
			if res, ok := r.defMap[id]; ok && res.Unresolved == 0 && res.BaseDef.Kind == DefStruct {
				for _, f := range r.structFields[res.BaseDef.ID] {
					if f == ident.Name {
						return assocField
					}
				}
			}
		}
	}
	if tm := r.late.traitModule; tm != noModule {
		if b, _ := r.resolveIdentInModule(tm, ident, ns, false, r.modules[tm].Span); b != noBinding {
			def := r.bindingDef(b)
			if filter(def) {
				if r.hasSelf[def.ID] {
					return assocMethodWithSelf
				}
				return assocItem
			}
		}
	}
	return assocNone
}

func selfTyNode(t ast.Ty) (ast.NodeID, bool) {
	switch v := t.(type) {
	case *ast.PathTy:
		if v.QSelf == nil {
			return v.ID, true
		}
	case *ast.RefTy:
		return selfTyNode(v.Elem)
	}
	return 0, false
}
