package resolve

import (
	"fmt"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/hygiene"
)

type PathResultKind uint8

const (
	PathModule PathResultKind = iota
	PathNonModule
	PathIndeterminate
	PathFailed
)

func (k PathResultKind) String() string {
	switch k {
	case PathModule:
		return "module"
	case PathNonModule:
		return "non-module"
	case PathIndeterminate:
		return "indeterminate"
	}
	return "failed"
}

// PathResult is the outcome of resolving a path. Module carries the module
// or uniform root reached, NonModule a definition plus the count of
// segments left for type-directed resolution, Failed the offending segment.
type PathResult struct {
	Kind   PathResultKind
	Module ModuleOrRoot
	Res    PathResolution
	Span   ast.Span
	Msg    string
	IsLast bool
}

func moduleResult(m ModuleOrRoot) PathResult { return PathResult{Kind: PathModule, Module: m} }

func nonModuleResult(def Def, unresolved int) PathResult {
	return PathResult{Kind: PathNonModule, Res: PathResolution{BaseDef: def, Unresolved: unresolved}}
}

func failedResult(sp ast.Span, msg string, isLast bool) PathResult {
	return PathResult{Kind: PathFailed, Span: sp, Msg: msg, IsLast: isLast}
}

var indeterminateResult = PathResult{Kind: PathIndeterminate}

func nsPtr(ns Namespace) *Namespace { return &ns }

// pathIdents flattens an ast path, turning a leading `::` into the path
// root sentinel.
func pathIdents(p *ast.Path) []ast.Ident {
	if p == nil {
		return nil
	}
	segs := make([]ast.Ident, 0, len(p.Segments)+1)
	if p.Global {
		segs = append(segs, ast.Ident{Name: ast.KwPathRoot, Span: p.Span})
	}
	for _, s := range p.Segments {
		segs = append(segs, s.Ident)
	}
	return segs
}

func (r *Resolver) resolveImportPath(d *Directive, recordUsed bool) PathResult {
	return r.resolvePath(d.ModulePath, nil, recordUsed, d.Span, true)
}

// resolvePath resolves path segment by segment. opt is the namespace of the
// last segment; nil means the whole path must name a module. importPath
// selects the edition rules for paths written in use declarations.
func (r *Resolver) resolvePath(path []ast.Ident, opt *Namespace, recordUsed bool, sp ast.Span, importPath bool) PathResult {
	var module ModuleOrRoot
	haveModule := false
	allowSuper := true

	if importPath && (len(path) == 0 || !path[0].IsPathSegmentKeyword()) {
		module, haveModule = r.importRoot(), true
	}

	for i, ident := range path {
		isLast := i == len(path)-1
		ns := TypeNS
		if isLast && opt != nil {
			ns = *opt
		}
		name := ident.Name

		if i == 0 && ns == TypeNS && name == ast.KwSelfValue {
			ctxt := r.hyg.Modern(ident.Ctxt)
			module, haveModule = inModule(r.resolveSelf(&ctxt, r.currentModule)), true
			continue
		}
		if allowSuper && ns == TypeNS && name == ast.KwSuper {
			ctxt := r.hyg.Modern(ident.Ctxt)
			self := r.currentModule
			if i > 0 {
				self = module.module
			}
			if i == 0 {
				self = r.resolveSelf(&ctxt, self)
			}
			parent := r.modules[self].Parent
			if parent == noModule {
				return failedResult(ident.Span, "There are too many initial `super`s.", false)
			}
			module, haveModule = inModule(r.resolveSelf(&ctxt, parent)), true
			continue
		}
		allowSuper = false

		if i == 0 && ns == TypeNS {
			switch name {
			case ast.KwPathRoot:
				if r.opts.Edition == Edition2018 && !importPath {
					module, haveModule = externPreludeRoot, true
				} else {
					module, haveModule = crateAndExternRoot, true
				}
				continue
			case ast.KwCrate:
				module, haveModule = inModule(r.resolveCrateRoot(ident.Ctxt, false)), true
				continue
			case ast.KwDollarCrate:
				module, haveModule = inModule(r.resolveCrateRoot(ident.Ctxt, true)), true
				continue
			}
		}

		var binding BindingID
		var det Determinacy
		switch {
		case haveModule:
			binding, det = r.resolveIdentInRoot(module, ident, ns, recordUsed, sp)
		case isLast && opt != nil && *opt == MacroNS:
			binding, det = r.resolveLexicalMacro(ident, recordUsed, sp)
		default:
			lb := r.resolveIdentInLexicalScope(ident, ns, recordUsed, sp)
			switch {
			case lb.item != noBinding:
				binding, det = lb.item, Determined
			case lb.hasDef && opt != nil && (*opt == TypeNS || *opt == ValueNS):
				return nonModuleResult(lb.def, len(path)-1)
			case lb.hasDef:
				det = Determined
			case recordUsed:
				det = Determined
			default:
				det = Undetermined
			}
		}

		if binding != noBinding {
			def := r.bindingDef(binding)
			maybeAssoc := opt != nil && *opt != MacroNS && isTypeLike(def)
			if next, ok := r.bindingModule(binding); ok {
				module, haveModule = inModule(next), true
				continue
			}
			switch {
			case def.IsErr():
				return nonModuleResult(errDef, 0)
			case opt != nil && (isLast || maybeAssoc):
				return nonModuleResult(def, len(path)-i-1)
			default:
				return failedResult(ident.Span, fmt.Sprintf("Not a module `%s`", name), isLast)
			}
		}
		if det == Undetermined {
			return indeterminateResult
		}

		if haveModule {
			if m, ok := module.Module(); ok && opt != nil && !r.modules[m].IsNormal() {
				return nonModuleResult(r.modules[m].Def, len(path)-i)
			}
		}
		var msg string
		switch {
		case haveModule && r.isRootLike(module):
			if cand, ok := r.moduleCandidate(name); ok {
				msg = fmt.Sprintf("Did you mean `%s`?", cand)
			} else {
				msg = fmt.Sprintf("Maybe a missing `extern crate %s;`?", name)
			}
		case i == 0:
			msg = fmt.Sprintf("Use of undeclared type or module `%s`", name)
		default:
			msg = fmt.Sprintf("Could not find `%s` in `%s`", name, path[i-1].Name)
		}
		return failedResult(ident.Span, msg, isLast)
	}

	if !haveModule {
		return moduleResult(inModule(r.graphRoot))
	}
	return moduleResult(module)
}

// importRoot is where a use path without a leading keyword starts.
func (r *Resolver) importRoot() ModuleOrRoot {
	if r.opts.Edition == Edition2018 {
		return currentScopeRoot
	}
	return crateAndExternRoot
}

func (r *Resolver) isRootLike(m ModuleOrRoot) bool {
	switch m.kind {
	case rootCrateAndExternPrelude, rootExternPrelude:
		return true
	case rootCurrentScope:
		return false
	}
	return r.modules[m.module].Parent == noModule && r.modules[m.module].Crate == LocalCrate
}

// isTypeLike reports whether def may be followed by associated item
// segments.
func isTypeLike(def Def) bool {
	switch def.Kind {
	case DefStruct, DefEnum, DefTyAlias, DefAssocTy, DefTyParam, DefSelfTy, DefPrimTy, DefTrait, DefVariant:
		return true
	}
	return false
}

// resolveSelf finds the module `self` denotes for ctxt: the nearest normal
// module written in the same context, following macro definition sites
// outward.
func (r *Resolver) resolveSelf(ctxt *hygiene.SyntaxContext, module ModuleID) ModuleID {
	m := r.modules[module].NormalAncestor
	for r.modules[m].Ctxt != *ctxt {
		parent := r.modules[m].Parent
		if parent == noModule {
			if *ctxt == hygiene.EmptyContext {
				break
			}
			parent = r.macroDefScope(r.hyg.RemoveMark(ctxt))
		}
		m = r.modules[parent].NormalAncestor
	}
	return m
}

// resolveCrateRoot finds the crate `crate` or `$crate` refers to. For
// `$crate` the first legacy mark decides, so macro_rules invoked from a
// modern macro still name their own crate.
func (r *Resolver) resolveCrateRoot(ctxt hygiene.SyntaxContext, legacy bool) ModuleID {
	var mark hygiene.Mark
	found := false
	if legacy {
		for _, m := range r.hyg.Marks(ctxt) {
			if !r.hyg.IsModern(m) {
				mark, found = m, true
				break
			}
		}
	} else {
		ctxt = r.hyg.Modern(ctxt)
		mark, found = r.hyg.Adjust(&ctxt, hygiene.RootMark)
	}
	if !found {
		return r.graphRoot
	}
	return r.crateRootOf(r.macroDefScope(mark))
}
