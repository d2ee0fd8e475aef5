package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/hygiene"
	"strings"
)

// DirectiveID indexes Resolver.directives. Zero means none.
type DirectiveID uint32

type DirectiveKind uint8

const (
	SingleImport DirectiveKind = iota
	GlobImport
	ExternCrateImport
	MacroUseImport
)

type resultState uint8

const (
	resUndetermined resultState = iota
	resDetermined
	resOk
)

// importResult is a per-namespace cell of a single import. It starts
// undetermined and is written once the source name settles.
type importResult struct {
	state   resultState
	binding BindingID
}

type Directive struct {
	ID     DirectiveID
	Kind   DirectiveKind
	Parent ModuleID
	Crate  CrateNum

	ModulePath     []ast.Ident
	importedModule ModuleOrRoot
	importedSet    bool

	// Single imports.
	Source     ast.Ident
	Target     ast.Ident
	results    PerNS[importResult]
	targets    PerNS[BindingID]
	TypeNSOnly bool

	// Glob imports.
	IsPrelude bool
	MaxVis    Visibility
	maxVisSet bool

	Vis  Visibility
	Span ast.Span

	// Node is the use tree or item the directive came from.
	Node      ast.NodeID
	RootID    ast.NodeID
	RootSpan  ast.Span
	Expansion hygiene.Mark
	Used      bool
}

func (d *Directive) isGlob() bool { return d.Kind == GlobImport }

func (r *Resolver) newDirective(d Directive) DirectiveID {
	d.ID = DirectiveID(len(r.directives))
	r.directives = append(r.directives, &d)
	r.stats.Directives++
	return d.ID
}

func (r *Resolver) directive(id DirectiveID) *Directive { return r.directives[id] }

func (r *Resolver) markUsed(id DirectiveID) {
	r.directives[id].Used = true
}

// importPathString renders the directive as written, e.g. `a::b::c` or
// `a::*`.
func importPathString(d *Directive) string {
	names := make([]string, 0, len(d.ModulePath)+1)
	for _, seg := range d.ModulePath {
		if seg.Name == ast.KwPathRoot {
			continue
		}
		names = append(names, seg.Name)
	}
	switch d.Kind {
	case SingleImport:
		names = append(names, d.Source.Name)
	case GlobImport:
		names = append(names, "*")
	case ExternCrateImport:
		return "extern crate " + d.Source.Name
	case MacroUseImport:
		return "#[macro_use]"
	}
	s := strings.Join(names, "::")
	if len(d.ModulePath) > 0 && d.ModulePath[0].Name == ast.KwPathRoot {
		s = "::" + s
	}
	return s
}

func pathString(segs []ast.Ident) string {
	names := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Name == ast.KwPathRoot {
			continue
		}
		names = append(names, s.Name)
	}
	s := strings.Join(names, "::")
	if len(segs) > 0 && segs[0].Name == ast.KwPathRoot {
		s = "::" + s
	}
	return s
}
