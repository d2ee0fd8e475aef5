package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
)

type pathSrcKind uint8

const (
	srcType pathSrcKind = iota
	srcTrait
	srcExpr
	srcPat
	srcStruct
	srcTupleStruct
	srcTraitItem
)

// pathCtx is the syntactic position of a path. It decides the namespace,
// which definitions are acceptable and how failures are worded.
type pathCtx struct {
	src pathSrcKind
	// ns is the namespace of the item for srcTraitItem.
	ns Namespace
	// parent is the call, method call or field access a srcExpr path is
	// the callee or receiver of.
	parent ast.Expr
}

func (c pathCtx) namespace() Namespace {
	switch c.src {
	case srcType, srcTrait, srcStruct:
		return TypeNS
	case srcTraitItem:
		return c.ns
	}
	return ValueNS
}

// deferToTypeck reports whether trailing unresolved segments are left to
// type checking instead of being an error.
func (c pathCtx) deferToTypeck() bool {
	switch c.src {
	case srcType, srcExpr, srcPat, srcStruct, srcTupleStruct:
		return true
	}
	return false
}

func (c pathCtx) descr() string {
	switch c.src {
	case srcType:
		return "type"
	case srcTrait:
		return "trait"
	case srcExpr:
		if _, ok := c.parent.(*ast.CallExpr); ok {
			return "function"
		}
		return "value"
	case srcPat:
		return "unit struct/variant or constant"
	case srcStruct:
		return "struct, variant or union type"
	case srcTupleStruct:
		return "tuple struct/variant"
	}
	return "associated item"
}

func (c pathCtx) expected(d Def) bool {
	switch c.src {
	case srcType:
		switch d.Kind {
		case DefStruct, DefEnum, DefTrait, DefTyAlias, DefAssocTy, DefPrimTy, DefTyParam, DefSelfTy:
			return true
		}
	case srcTrait:
		return d.Kind == DefTrait
	case srcExpr:
		switch d.Kind {
		case DefLocal, DefUpvar, DefFn, DefMethod, DefConst, DefStatic, DefAssocConst:
			return true
		case DefStructCtor, DefVariantCtor:
			return d.Ctor == CtorConst || d.Ctor == CtorFn
		}
	case srcPat:
		switch d.Kind {
		case DefStructCtor, DefVariantCtor:
			return d.Ctor == CtorConst
		case DefConst, DefAssocConst:
			return true
		}
	case srcTupleStruct:
		return (d.Kind == DefStructCtor || d.Kind == DefVariantCtor) && d.Ctor == CtorFn
	case srcStruct:
		switch d.Kind {
		case DefStruct, DefVariant, DefTyAlias, DefAssocTy, DefSelfTy:
			return true
		}
	case srcTraitItem:
		if c.ns == ValueNS {
			return d.Kind == DefAssocConst || d.Kind == DefMethod
		}
		return d.Kind == DefAssocTy
	}
	return false
}

func (c pathCtx) errorCode(found bool) string {
	var codes [2]string
	switch c.src {
	case srcTrait:
		codes = [2]string{"E0405", "E0404"}
	case srcType:
		codes = [2]string{"E0412", "E0573"}
	case srcStruct:
		codes = [2]string{"E0422", "E0574"}
	case srcExpr:
		codes = [2]string{"E0425", "E0423"}
	case srcPat, srcTupleStruct:
		codes = [2]string{"E0531", "E0532"}
	default:
		codes = [2]string{"E0576", "E0575"}
	}
	if found {
		return codes[1]
	}
	return codes[0]
}

// smartResolvePath resolves a path written in ctx, reports what is wrong
// with it and records the result under id. Generic arguments are resolved
// afterwards.
func (r *Resolver) smartResolvePath(id ast.NodeID, qself *ast.QSelf, path *ast.Path, ctx pathCtx) PathResolution {
	if path == nil {
		return PathResolution{BaseDef: errDef}
	}
	res := r.smartResolvePathFragment(id, qself, pathIdents(path), path.Span, ctx)
	r.resolvePathArgs(path)
	return res
}

func (r *Resolver) smartResolvePathFragment(id ast.NodeID, qself *ast.QSelf, path []ast.Ident, sp ast.Span, ctx pathCtx) PathResolution {
	ns := ctx.namespace()
	if len(path) == 0 {
		return PathResolution{BaseDef: errDef}
	}

	var res PathResolution
	found, ok := r.resolveQPathAnywhere(id, qself, path, ns, sp, ctx.deferToTypeck())
	switch {
	case ok && found.Unresolved == 0:
		def := found.BaseDef
		if ctx.expected(def) || def.IsErr() {
			res = found
			break
		}
		if ctor, ok := r.legacyCtor(def, ctx, id, sp); ok {
			res = PathResolution{BaseDef: ctor}
			break
		}
		res = r.reportPathError(path, sp, ctx, def, true)
	case ok && ctx.deferToTypeck():
		if ns == ValueNS && id != ast.DummyNodeID {
			r.traitMap[id] = r.traitsContainingItem(path[len(path)-1], ns)
		}
		res = found
	default:
		res = r.reportPathError(path, sp, ctx, Def{}, false)
	}

	if ctx.src != srcTraitItem && id != ast.DummyNodeID {
		r.recordDef(id, res)
	}
	return res
}

// legacyCtor lets a struct name reach its constructor when the constructor
// is visible here but was not re-exported with the struct.
func (r *Resolver) legacyCtor(def Def, ctx pathCtx, id ast.NodeID, sp ast.Span) (Def, bool) {
	if def.Kind != DefStruct {
		return Def{}, false
	}
	c, ok := r.structCtors[def.ID]
	if !ok || !ctx.expected(c.def) || !r.isAccessibleFrom(c.vis, r.currentModule) {
		return Def{}, false
	}
	r.emitLocal(diag.Lintf(diag.LintLegacyCtorVisibility, sp,
		"private struct constructors are not usable through re-exports in outer modules"))
	return c.def, true
}

// resolveQPathAnywhere tries the primary namespace, then the others. A
// full resolution wins over a partial one unless partial ones are deferred
// to type checking.
func (r *Resolver) resolveQPathAnywhere(id ast.NodeID, qself *ast.QSelf, path []ast.Ident, primary Namespace, sp ast.Span, deferToTypeck bool) (PathResolution, bool) {
	var fin PathResolution
	haveFin := false
	for i, ns := range []Namespace{primary, TypeNS, ValueNS} {
		if i > 0 && ns == primary {
			continue
		}
		res, ok := r.resolveQPath(id, qself, path, ns, sp)
		if ok && (res.Unresolved == 0 || deferToTypeck) {
			return res, true
		}
		if ok && !haveFin {
			fin, haveFin = res, true
		}
	}
	if primary != MacroNS && r.late.macroNames[path[0].Name] {
		// Enough for the error to suggest a macro call.
		return PathResolution{BaseDef: Def{Kind: DefMacro}}, true
	}
	return fin, haveFin
}

// resolveQPath resolves path in ns. The boolean is false when the last
// segment was not found, leaving the report to the caller.
func (r *Resolver) resolveQPath(id ast.NodeID, qself *ast.QSelf, path []ast.Ident, ns Namespace, sp ast.Span) (PathResolution, bool) {
	if qself != nil {
		pos := qself.Position
		if len(path) > 0 && path[0].Name == ast.KwPathRoot {
			pos++
		}
		if qself.Position == 0 {
			// `<T>::a::b` is left to type checking entirely.
			return PathResolution{BaseDef: Def{Kind: DefMod, ID: DefID{Crate: LocalCrate}}, Unresolved: len(path)}, true
		}
		if pos > len(path) {
			pos = len(path)
		}
		itemNS := TypeNS
		if pos == len(path) {
			itemNS = ns
		}
		res := r.smartResolvePathFragment(id, nil, path[:pos], sp, pathCtx{src: srcTraitItem, ns: itemNS})
		return PathResolution{BaseDef: res.BaseDef, Unresolved: res.Unresolved + len(path) - pos}, true
	}

	var result PathResolution
	pr := r.resolvePath(path, nsPtr(ns), true, sp, false)
	switch pr.Kind {
	case PathNonModule:
		result = pr.Res
	case PathModule, PathFailed:
		m, isModule := pr.Module.Module()
		if pr.Kind == PathModule && isModule && !r.modules[m].IsNormal() {
			result = PathResolution{BaseDef: r.modules[m].Def}
			break
		}
		if (ns == TypeNS || len(path) > 1) && primitiveTypes[path[0].Name] {
			result = PathResolution{BaseDef: Def{Kind: DefPrimTy, Prim: path[0].Name}, Unresolved: len(path) - 1}
			break
		}
		switch {
		case pr.Kind == PathModule && isModule:
			result = PathResolution{BaseDef: r.modules[m].Def}
		case pr.Kind == PathModule:
			result = PathResolution{BaseDef: r.modules[r.graphRoot].Def}
		case !pr.IsLast:
			r.emitLocal(diag.Errorf(diag.KindUnresolved, "E0433", pr.Span, "failed to resolve. %s", pr.Msg).
				Label(pr.Span, "%s", pr.Msg))
			result = PathResolution{BaseDef: errDef}
		default:
			return PathResolution{}, false
		}
	default:
		return PathResolution{}, false
	}

	if len(path) > 1 && !result.BaseDef.IsErr() && path[0].Name != ast.KwPathRoot && path[0].Name != ast.KwDollarCrate {
		r.checkQualification(path, ns, sp, result.BaseDef)
	}
	return result, true
}
