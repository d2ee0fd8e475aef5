package resolve

import (
	"sort"
	"strings"

	"nameres/internal/engine/ast"

	"github.com/agnivade/levenshtein"
)

// primitiveTypes are the builtin type names, usable when nothing in scope
// shadows them.
var primitiveTypes = map[string]bool{
	"bool": true, "char": true, "str": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true,
}

// bestMatch picks the closest name to lookup. A case-insensitive equal
// name wins outright; otherwise the distance must stay within a third of
// the lookup length. Ties go to the lexically smallest name.
func bestMatch(names []string, lookup string) (string, bool) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	maxDist := len(lookup)
	if maxDist < 3 {
		maxDist = 3
	}
	maxDist /= 3

	for _, n := range sorted {
		if n != lookup && strings.EqualFold(n, lookup) {
			return n, true
		}
	}
	best, bestDist := "", maxDist+1
	for _, n := range sorted {
		if n == lookup {
			continue
		}
		if d := levenshtein.ComputeDistance(n, lookup); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, best != ""
}

// moduleNames lists the names in ns of module whose binding passes filter.
func (r *Resolver) moduleNames(module ModuleID, ns Namespace, filter func(Def) bool) []string {
	var names []string
	r.forEachResolution(module, func(key resKey, nr *NameResolution) {
		if key.NS != ns || nr.Binding == noBinding {
			return
		}
		if filter == nil || filter(r.bindingDef(nr.Binding)) {
			names = append(names, key.Name)
		}
	})
	return names
}

// suggestMacroName finds a similarly named macro reachable from module.
func (r *Resolver) suggestMacroName(name string, module ModuleID) (string, bool) {
	var names []string
	for m := module; m != noModule; m = r.modules[m].Parent {
		names = append(names, r.moduleNames(m, MacroNS, nil)...)
	}
	for n := range r.macroUsePrelude {
		names = append(names, n)
	}
	if r.prelude != noModule {
		names = append(names, r.moduleNames(r.prelude, MacroNS, nil)...)
	}
	if s, ok := bestMatch(names, name); ok {
		return s + "!", true
	}
	return "", false
}

// moduleCandidate proposes a replacement for a path segment that failed at
// a crate root: a name of the current module (reachable through `self::`)
// or a similarly named extern crate.
func (r *Resolver) moduleCandidate(name string) (string, bool) {
	cur := r.currentModule
	if cur != noModule && r.modules[cur].Crate == LocalCrate && cur != r.graphRoot {
		nr := r.resolution(cur, ast.Ident{Name: name}, TypeNS)
		if nr.Binding != noBinding {
			return "self::" + name, true
		}
	}
	crates := make([]string, 0, len(r.externCrates))
	for c := range r.externCrates {
		crates = append(crates, c)
	}
	return bestMatch(crates, name)
}

// lookupTypoCandidate finds a similarly named definition for a failed
// path: ribs, modules and preludes for single segments, the parent module
// for longer paths.
func (r *Resolver) lookupTypoCandidate(path []ast.Ident, ns Namespace, filter func(Def) bool, sp ast.Span) (string, bool) {
	var names []string
	if len(path) == 1 {
		ribs := r.ribs[ns]
	walk:
		for i := len(ribs) - 1; i >= 0; i-- {
			rb := ribs[i]
			for _, k := range rb.order {
				if filter(rb.bindings[k]) {
					names = append(names, k.name)
				}
			}
			if rb.kind != ribModule {
				continue
			}
			names = append(names, r.moduleNames(rb.module, ns, filter)...)
			if r.modules[rb.module].IsBlock() {
				continue
			}
			if r.prelude != noModule && !r.modules[rb.module].NoImplicitPrelude {
				names = append(names, r.moduleNames(r.prelude, ns, filter)...)
			}
			break walk
		}
		if filter(Def{Kind: DefPrimTy, Prim: "bool"}) {
			for p := range primitiveTypes {
				names = append(names, p)
			}
		}
	} else {
		res := r.resolvePath(path[:len(path)-1], nsPtr(TypeNS), false, sp, false)
		if m, ok := res.Module.Module(); ok && res.Kind == PathModule {
			names = r.moduleNames(m, ns, filter)
		}
	}
	return bestMatch(names, path[len(path)-1].Name)
}

// importCandidate is a path under which a definition could be imported.
type importCandidate struct {
	path string
	def  Def
}

// lookupImportCandidates searches every module reachable from the crate
// root for a non-import binding called name. Modules of extern crates are
// only entered through public bindings.
func (r *Resolver) lookupImportCandidates(name string, ns Namespace, filter func(Def) bool) []importCandidate {
	type entry struct {
		module ModuleID
		path   []string
		extern bool
	}
	var out []importCandidate
	seen := map[ModuleID]bool{r.graphRoot: true}
	work := []entry{{module: r.graphRoot}}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		r.forEachResolution(cur.module, func(key resKey, nr *NameResolution) {
			b := nr.Binding
			if b == noBinding {
				return
			}
			if r.isImport(b) && !r.isExternCrate(b) {
				return
			}
			if !r.isImportable(b) {
				return
			}
			public := r.bindings[b].Vis.IsPublic()
			if key.Name == name && key.NS == ns && filter(r.bindingDef(b)) && (!cur.extern || public) {
				segs := append(append([]string(nil), cur.path...), key.Name)
				out = append(out, importCandidate{path: strings.Join(segs, "::"), def: r.bindingDef(b)})
			}
			if m, ok := r.bindingModule(b); ok && (!cur.extern || public) && !seen[m] {
				seen[m] = true
				segs := append(append([]string(nil), cur.path...), key.Name)
				work = append(work, entry{module: m, path: segs, extern: cur.extern || r.isExternCrate(b)})
			}
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	dedup := out[:0]
	for i, c := range out {
		if i > 0 && c.path == out[i-1].path {
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}

// enumVariants lists `Enum::Variant` paths for the variants of an enum
// module.
func (r *Resolver) enumVariants(def Def) []string {
	m, ok := r.moduleMap[def.ID]
	if !ok {
		return nil
	}
	prefix := r.qualifiedName(m)
	var out []string
	r.forEachResolution(m, func(key resKey, nr *NameResolution) {
		if key.NS == ValueNS && nr.Binding != noBinding {
			out = append(out, prefix+"::"+key.Name)
		}
	})
	sort.Strings(out)
	return out
}

// qualifiedName is the path of a module below its crate root, e.g. `a::b`.
// Extern modules are prefixed with the crate name.
func (r *Resolver) qualifiedName(m ModuleID) string {
	s := r.modulePathString(m)
	if strings.HasPrefix(s, ast.KwCrate+"::") {
		return strings.TrimPrefix(s, ast.KwCrate+"::")
	}
	return s
}
