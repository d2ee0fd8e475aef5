package resolve

import (
	"sort"
	"strings"

	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
)

// unusedLeaf is one import of a use item that nothing referred to.
type unusedLeaf struct {
	span ast.Span
	text string
}

// checkUnused reports imports of the local crate that were never used.
// Public imports are skipped since their users may live outside the crate.
func (r *Resolver) checkUnused() {
	for _, did := range r.unusedCands {
		dir := r.directives[did]
		if dir.Used || dir.Vis.IsPublic() && dir.Kind != MacroUseImport || dir.Span.IsDummy() {
			continue
		}
		if dir.Kind == MacroUseImport {
			r.emit(dir.Crate, diag.Lintf(diag.LintUnusedImports, dir.Span, "unused `#[macro_use]` import"))
		}
	}

	for _, it := range r.crates[LocalCrate].Items {
		ast.Inspect(it, func(n ast.Node) bool {
			item, ok := n.(*ast.Item)
			if !ok {
				return true
			}
			use, ok := item.Kind.(*ast.UseItem)
			if !ok {
				return true
			}
			if item.Vis.Kind == ast.VisPublic || item.Span.IsDummy() {
				return false
			}
			r.checkUseItem(item, use.Tree)
			return false
		})
	}
}

func (r *Resolver) checkUseItem(item *ast.Item, tree *ast.UseTree) {
	var unused []unusedLeaf
	total := 0
	var walk func(t *ast.UseTree, prefix string, nested bool)
	walk = func(t *ast.UseTree, prefix string, nested bool) {
		text := joinUsePath(prefix, t.Prefix)
		switch t.Kind {
		case ast.UseNested:
			if len(t.Nested) == 0 {
				total++
				sp := item.Span
				if nested {
					sp = t.Span
				}
				unused = append(unused, unusedLeaf{span: sp, text: text + "::{}"})
				return
			}
			for _, child := range t.Nested {
				walk(child, text, true)
			}
		case ast.UseGlob:
			total++
			if !r.importUsed(t.ID) {
				unused = append(unused, unusedLeaf{span: t.Span, text: joinUse(text, "*")})
			}
		default:
			total++
			if !r.importUsed(t.ID) {
				if t.Rename != nil {
					text += " as " + t.Rename.Name
				}
				unused = append(unused, unusedLeaf{span: t.Span, text: text})
			}
		}
	}
	walk(tree, "", false)
	if len(unused) == 0 {
		return
	}

	sort.Slice(unused, func(i, j int) bool { return unused[i].span.Less(unused[j].span) })
	names := make([]string, 0, len(unused))
	for _, u := range unused {
		names = append(names, "`"+u.text+"`")
	}
	sort.Strings(names)
	msg := "unused import: " + names[0]
	if len(unused) > 1 {
		msg = "unused imports: " + strings.Join(names, ", ")
	}
	d := diag.Lintf(diag.LintUnusedImports, unused[0].span, "%s", msg)
	for _, u := range unused[1:] {
		d.Label(u.span, "unused")
	}
	if len(unused) == total {
		d.Suggest("remove the whole `use` item", item.Span, "", diag.MachineApplicable)
	} else {
		for _, u := range unused {
			d.Suggest("remove the unused import", u.span, "", diag.MachineApplicable)
		}
	}
	r.emit(LocalCrate, d)
}

func (r *Resolver) importUsed(id ast.NodeID) bool {
	for _, ns := range namespaces {
		if r.usedImports[usedKey{node: id, ns: ns}] {
			return true
		}
	}
	return false
}

func joinUsePath(prefix string, p *ast.Path) string {
	s := p.String()
	if s == "" {
		return prefix
	}
	return joinUse(prefix, s)
}

func joinUse(prefix, s string) string {
	if prefix == "" {
		return s
	}
	return prefix + "::" + s
}

// checkQualification flags `a::b::c` when `c` alone resolves to the same
// definition. It is off unless the lint is enabled.
func (r *Resolver) checkQualification(path []ast.Ident, ns Namespace, sp ast.Span, def Def) {
	if r.opts.Lints[diag.LintUnusedQualifications] == diag.Allow {
		return
	}
	pr := r.resolvePath(path[len(path)-1:], nsPtr(ns), false, sp, false)
	var unqualified Def
	switch pr.Kind {
	case PathNonModule:
		unqualified = pr.Res.BaseDef
	case PathModule:
		m, ok := pr.Module.Module()
		if !ok {
			return
		}
		unqualified = r.modules[m].Def
	default:
		return
	}
	if unqualified == def {
		r.emitLocal(diag.Lintf(diag.LintUnusedQualifications, sp, "unnecessary qualification"))
	}
}
