package resolve

import (
	"fmt"
	"sort"
	"strings"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/graph"
)

// importError is one failed directive awaiting its grouped E0432.
type importError struct {
	dir  *Directive
	span ast.Span
	msg  string
}

// finalizeImports re-resolves every directive with use recording on,
// reports what failed and backs failures with dummy bindings. Globs are
// dropped afterwards since no new names can arrive through them.
func (r *Resolver) finalizeImports() {
	var errs []importError
	seen := make(map[ast.Span]bool)

	for i := 0; i < len(r.determined); i++ {
		did := r.determined[i]
		dir := r.directives[did]
		if dir.Crate != LocalCrate || dir.Kind == ExternCrateImport || dir.Kind == MacroUseImport {
			continue
		}
		sp, msg, failed := r.finalizeImport(did)
		if !failed {
			continue
		}
		r.importDummyBinding(did)
		if seen[sp] {
			continue
		}
		seen[sp] = true
		errs = append(errs, importError{dir: dir, span: sp, msg: msg})
	}

	stuck := r.indeterminate
	r.indeterminate = nil
	notes := r.importCycleNotes(stuck)
	for _, did := range stuck {
		dir := r.directives[did]
		r.importDummyBinding(did)
		r.determined = append(r.determined, did)
		if dir.Crate != LocalCrate || dir.IsPrelude {
			continue
		}
		errs = append(errs, importError{dir: dir, span: dir.Span, msg: "cannot determine resolution for the import"})
	}

	r.reportImportErrors(errs, notes)
	r.clearGlobs()
}

// finalizeImport checks one determined directive. It returns the span and
// label of an unresolved-import error, if any.
func (r *Resolver) finalizeImport(did DirectiveID) (ast.Span, string, bool) {
	dir := r.directives[did]
	orig := r.currentModule
	r.currentModule = dir.Parent
	defer func() { r.currentModule = orig }()

	res := r.resolveImportPath(dir, true)
	var module ModuleOrRoot
	switch res.Kind {
	case PathModule:
		module = res.Module
	case PathFailed:
		if res.IsLast {
			return res.Span, res.Msg, true
		}
		r.emit(dir.Crate, diag.Errorf(diag.KindUnresolved, "E0433", res.Span, "failed to resolve. %s", res.Msg).
			Label(res.Span, "%s", res.Msg))
		return ast.Span{}, "", false
	default:
		return ast.Span{}, "", false
	}

	if dir.Kind == GlobImport {
		target, ok := module.Module()
		if ok && target == dir.Parent {
			return dir.Span, "Cannot glob-import a module into itself.", true
		}
		if ok && !dir.IsPrelude && dir.maxVisSet && dir.MaxVis.kind != visInvisible && !r.isAtLeast(dir.MaxVis, dir.Vis) {
			r.emit(dir.Crate, diag.Errorf(diag.KindPrivacy, "", dir.Span,
				"A non-empty glob must import something with the glob's visibility"))
		}
		if ok && dir.Crate == LocalCrate {
			r.recordDef(dir.Node, PathResolution{BaseDef: r.modules[target].Def})
		}
		return ast.Span{}, "", false
	}

	ident := dir.Source
	allErr := true
	for _, ns := range namespaces {
		if dir.TypeNSOnly && ns != TypeNS {
			continue
		}
		if res := dir.results[ns]; res.state == resOk {
			allErr = false
			r.recordUse(ident, ns, res.binding, dir.Span)
		}
	}

	if allErr {
		anyFound := false
		for _, ns := range namespaces {
			if dir.TypeNSOnly && ns != TypeNS {
				continue
			}
			if b, _ := r.resolveIdentInRoot(module, ident, ns, true, dir.Span); b != noBinding {
				anyFound = true
			}
		}
		if anyFound {
			// The lookup queued a privacy error.
			r.importDummyBinding(did)
			return ast.Span{}, "", false
		}
		return dir.Span, r.missingImportMessage(module, ident), true
	}

	var reexportErr *BindingID
	var reexportNS Namespace
	anyReexport := false
	for _, ns := range namespaces {
		res := dir.results[ns]
		if res.state != resOk {
			continue
		}
		if !r.isAtLeast(r.pseudoVis(res.binding), dir.Vis) {
			b := res.binding
			reexportErr, reexportNS = &b, ns
		} else {
			anyReexport = true
		}
	}
	if !anyReexport && reexportErr != nil {
		name := ident.Name
		switch {
		case reexportNS == TypeNS && r.isExternCrate(*reexportErr):
			r.emit(dir.Crate, diag.Errorf(diag.KindPrivacy, "E0365", dir.Span,
				"extern crate `%s` is private, and cannot be reexported", name).
				Note("consider declaring with `pub`"))
		case reexportNS == TypeNS:
			r.emit(dir.Crate, diag.Errorf(diag.KindPrivacy, "E0365", dir.Span, "`%s` is private, and cannot be reexported", name).
				Label(dir.Span, "reexport of private `%s`", name).
				Note("consider declaring type or module `%s` with `pub`", name))
		default:
			r.emit(dir.Crate, diag.Errorf(diag.KindPrivacy, "E0364", dir.Span, "`%s` is private, and cannot be reexported", name).
				Note("consider marking `%s` as `pub` in the imported module", name))
		}
	}

	if dir.Crate == LocalCrate {
		var per PerNS[Def]
		for _, ns := range namespaces {
			if res := dir.results[ns]; res.state == resOk {
				per[ns] = r.bindingDef(res.binding)
			}
		}
		r.importMap[dir.Node] = per
	}
	return ast.Span{}, "", false
}

// missingImportMessage is the label for `use m::x` when m has no x, with a
// close name from m when there is one.
func (r *Resolver) missingImportMessage(module ModuleOrRoot, ident ast.Ident) string {
	suggestion := ""
	m, ok := module.Module()
	if ok {
		var names []string
		r.forEachResolution(m, func(key resKey, nr *NameResolution) {
			if key.Name == ident.Name {
				return
			}
			if nr.Binding == noBinding {
				if len(nr.SingleImports) > 0 {
					names = append(names, key.Name)
				}
				return
			}
			if b := r.bindings[nr.Binding]; b.kind == bindImport && r.bindingDef(b.target).IsErr() {
				return
			}
			names = append(names, key.Name)
		})
		if s, found := bestMatch(names, ident.Name); found {
			suggestion = fmt.Sprintf(". Did you mean to use `%s`?", s)
		}
	}
	if !ok || r.modules[m].Parent == noModule && r.modules[m].Crate == LocalCrate {
		return fmt.Sprintf("no `%s` in the root%s", ident.Name, suggestion)
	}
	return fmt.Sprintf("no `%s` in `%s`%s", ident.Name, r.qualifiedName(m), suggestion)
}

// reportImportErrors emits one E0432 per use item, labelling every failed
// path in it.
func (r *Resolver) reportImportErrors(errs []importError, notes map[DirectiveID][]string) {
	type group struct {
		root  ast.NodeID
		span  ast.Span
		errs  []importError
		notes []string
	}
	var order []ast.NodeID
	groups := make(map[ast.NodeID]*group)
	for _, e := range errs {
		g, ok := groups[e.dir.RootID]
		if !ok {
			g = &group{root: e.dir.RootID, span: e.span}
			groups[e.dir.RootID] = g
			order = append(order, e.dir.RootID)
		}
		g.errs = append(g.errs, e)
		g.notes = append(g.notes, notes[e.dir.ID]...)
	}

	for _, id := range order {
		g := groups[id]
		sort.SliceStable(g.errs, func(i, j int) bool { return g.errs[i].span.Less(g.errs[j].span) })
		paths := make([]string, 0, len(g.errs))
		for _, e := range g.errs {
			paths = append(paths, "`"+importPathString(e.dir)+"`")
		}
		msg := "unresolved import " + paths[0]
		if len(paths) > 1 {
			msg = "unresolved imports " + strings.Join(paths, ", ")
		}
		d := diag.Errorf(diag.KindUnresolvedImport, "E0432", g.errs[0].span, "%s", msg)
		for _, e := range g.errs {
			d.Label(e.span, "%s", e.msg)
		}
		seen := make(map[string]bool)
		for _, n := range g.notes {
			if !seen[n] {
				seen[n] = true
				d.Note("%s", n)
			}
		}
		r.emit(g.errs[0].dir.Crate, d)
	}
}

// importCycleNotes builds the wait-for graph of the stuck directives and
// describes every cycle in it.
func (r *Resolver) importCycleNotes(stuck []DirectiveID) map[DirectiveID][]string {
	if len(stuck) == 0 {
		return nil
	}
	g := graph.NewGraph()
	label := func(d *Directive) string {
		return fmt.Sprintf("`%s` (%s)", importPathString(d), d.Span)
	}
	byLabel := make(map[string]DirectiveID, len(stuck))
	for _, did := range stuck {
		d := r.directives[did]
		byLabel[label(d)] = did
		g.AddNode(label(d), d.Span)
	}
	for _, did := range stuck {
		d := r.directives[did]
		for _, dep := range r.waitsFor(d, stuck) {
			g.AddEdge(label(d), label(r.directives[dep]), "")
		}
	}

	notes := make(map[DirectiveID][]string)
	for _, cycle := range g.DetectCycles() {
		names := append(append([]string(nil), cycle...), cycle[0])
		note := "import cycle: " + strings.Join(names, " -> ")
		for _, n := range cycle {
			did := byLabel[n]
			notes[did] = append(notes[did], note)
		}
	}
	r.log.Debug("import cycle graph", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return notes
}

// waitsFor lists the stuck directives d may be waiting on: single imports
// that could define the name d looks up next, and globs of the module it
// looks in.
func (r *Resolver) waitsFor(d *Directive, stuck []DirectiveID) []DirectiveID {
	var module ModuleID
	var name string
	switch {
	case d.importedSet:
		m, ok := d.importedModule.Module()
		if !ok {
			m = r.graphRoot
			if d.importedModule.kind == rootCurrentScope {
				m = d.Parent
			}
		}
		module, name = m, d.Source.Name
	case len(d.ModulePath) > 0:
		first := d.ModulePath[0]
		module = r.crateRootOf(d.Parent)
		if r.opts.Edition == Edition2018 || first.IsPathSegmentKeyword() {
			module = d.Parent
		}
		name = first.Name
		for _, seg := range d.ModulePath {
			if !seg.IsPathSegmentKeyword() {
				name = seg.Name
				break
			}
		}
	default:
		return nil
	}

	var deps []DirectiveID
	for _, other := range stuck {
		o := r.directives[other]
		if o.ID == d.ID || o.Parent != module {
			continue
		}
		if o.isGlob() || (o.Kind == SingleImport && o.Target.Name == name) {
			deps = append(deps, other)
		}
	}
	return deps
}
