package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/hygiene"
	"strings"
)

// ModuleID indexes Resolver.modules. Zero means no module.
type ModuleID uint32

const noModule ModuleID = 0

type ModuleKind uint8

const (
	// ModBlock is an anonymous module created for a block with items.
	ModBlock ModuleKind = iota
	// ModDef is a module, enum or trait.
	ModDef
)

type resKey struct {
	Name string
	Ctxt hygiene.SyntaxContext
	NS   Namespace
}

// NameResolution is the slot for one (ident, namespace) pair in a module.
type NameResolution struct {
	// SingleImports are the pending single imports that may still define
	// this name, in registration order.
	SingleImports []DirectiveID
	Binding       BindingID
	ShadowsGlob   BindingID
	busy          bool
}

func (nr *NameResolution) addSingleImport(d DirectiveID) {
	for _, x := range nr.SingleImports {
		if x == d {
			return
		}
	}
	nr.SingleImports = append(nr.SingleImports, d)
}

func (nr *NameResolution) removeSingleImport(d DirectiveID) {
	for i, x := range nr.SingleImports {
		if x == d {
			nr.SingleImports = append(nr.SingleImports[:i:i], nr.SingleImports[i+1:]...)
			return
		}
	}
}

type Module struct {
	ID             ModuleID
	Parent         ModuleID
	NormalAncestor ModuleID
	Kind           ModuleKind
	Def            Def
	Name           string
	Node           ast.NodeID
	Crate          CrateNum
	Span           ast.Span

	NoImplicitPrelude bool
	// MacroUse lets macro_rules definitions escape into the parent for the
	// rest of the parent's source.
	MacroUse  bool
	Expansion hygiene.Mark
	// Ctxt is the modern context of the module's name.
	Ctxt hygiene.SyntaxContext

	resolutions map[resKey]*NameResolution
	resOrder    []resKey

	// GlobImporters are glob directives importing this module.
	GlobImporters []DirectiveID
	// Globs are glob directives inside this module.
	Globs []DirectiveID

	unresolvedInvocations map[ast.NodeID]bool

	// Populated is false until the items of a lazily loaded module are
	// defined.
	Populated bool
	pending   []*ast.Item
	// pendingPos is where the pending items sit in source order.
	pendingPos textPos

	traits       []traitEntry
	traitsCached bool
}

type traitEntry struct {
	name    string
	binding BindingID
}

func (m *Module) IsNormal() bool { return m.Kind == ModDef && m.Def.Kind == DefMod }

func (m *Module) IsTrait() bool { return m.Kind == ModDef && m.Def.Kind == DefTrait }

func (m *Module) IsBlock() bool { return m.Kind == ModBlock }

func (m *Module) hasUnresolvedInvocations() bool { return len(m.unresolvedInvocations) > 0 }

func (r *Resolver) newModule(parent ModuleID, kind ModuleKind, def Def, name string, exp hygiene.Mark, crate CrateNum, sp ast.Span) ModuleID {
	id := ModuleID(len(r.modules))
	m := &Module{
		ID:                    id,
		Parent:                parent,
		Kind:                  kind,
		Def:                   def,
		Name:                  name,
		Crate:                 crate,
		Span:                  sp,
		Expansion:             exp,
		resolutions:           make(map[resKey]*NameResolution),
		unresolvedInvocations: make(map[ast.NodeID]bool),
		Populated:             true,
	}
	if kind == ModDef && def.Kind == DefMod {
		m.NormalAncestor = id
	} else if parent != noModule {
		m.NormalAncestor = r.modules[parent].NormalAncestor
	}
	if parent != noModule && r.modules[parent].NoImplicitPrelude {
		m.NoImplicitPrelude = true
	}
	r.modules = append(r.modules, m)
	if kind == ModDef {
		r.moduleMap[def.ID] = id
	}
	r.stats.Modules++
	return id
}

func (r *Resolver) module(id ModuleID) *Module { return r.modules[id] }

// populate defines the pending items of a lazily loaded module.
func (r *Resolver) populate(id ModuleID) {
	m := r.modules[id]
	if m.Populated {
		return
	}
	m.Populated = true
	items := m.pending
	m.pending = nil
	r.atTextPos(m.pendingPos, func() {
		for _, it := range items {
			r.buildItem(it, id, m.Expansion)
		}
	})
	if r.importsDone {
		r.settleLazyImports()
	}
}

// resolution returns the slot for ident in ns, creating it on first access.
// ident must already be in its modern form.
func (r *Resolver) resolution(id ModuleID, ident ast.Ident, ns Namespace) *NameResolution {
	r.populate(id)
	m := r.modules[id]
	key := resKey{Name: ident.Name, Ctxt: ident.Ctxt, NS: ns}
	nr, ok := m.resolutions[key]
	if !ok {
		nr = &NameResolution{}
		m.resolutions[key] = nr
		m.resOrder = append(m.resOrder, key)
	}
	return nr
}

// forEachResolution visits the slots of a module in insertion order. f may
// create new slots; those are not visited.
func (r *Resolver) forEachResolution(id ModuleID, f func(key resKey, nr *NameResolution)) {
	r.populate(id)
	m := r.modules[id]
	keys := append([]resKey(nil), m.resOrder...)
	for _, k := range keys {
		f(k, m.resolutions[k])
	}
}

// visibleBinding hides a glob binding while a single import could still
// shadow it.
func (r *Resolver) visibleBinding(nr *NameResolution) BindingID {
	if nr.Binding == noBinding {
		return noBinding
	}
	if len(nr.SingleImports) == 0 || !r.isGlobImport(nr.Binding) {
		return nr.Binding
	}
	return noBinding
}

func (r *Resolver) parentModule(id ModuleID) ModuleID { return r.modules[id].Parent }

func (r *Resolver) crateRootOf(id ModuleID) ModuleID {
	return r.crateRoots[r.modules[id].Crate]
}

// modulePathString renders a module as `a::b`; the local crate root is
// `crate` and extern roots use their crate name.
func (r *Resolver) modulePathString(id ModuleID) string {
	var names []string
	for cur := id; cur != noModule; cur = r.modules[cur].Parent {
		m := r.modules[cur]
		if m.IsBlock() {
			continue
		}
		if m.Parent == noModule {
			if m.Crate == LocalCrate {
				names = append(names, ast.KwCrate)
			} else {
				names = append(names, m.Name)
			}
			break
		}
		names = append(names, m.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "::")
}

type rootKind uint8

const (
	rootModule rootKind = iota
	rootCrateAndExternPrelude
	rootExternPrelude
	rootCurrentScope
)

// ModuleOrRoot is where a path lookup starts: a concrete module or one of
// the uniform roots that search several places at once.
type ModuleOrRoot struct {
	kind   rootKind
	module ModuleID
}

func inModule(m ModuleID) ModuleOrRoot { return ModuleOrRoot{kind: rootModule, module: m} }

var (
	crateAndExternRoot = ModuleOrRoot{kind: rootCrateAndExternPrelude}
	externPreludeRoot  = ModuleOrRoot{kind: rootExternPrelude}
	currentScopeRoot   = ModuleOrRoot{kind: rootCurrentScope}
)

func (m ModuleOrRoot) Module() (ModuleID, bool) { return m.module, m.kind == rootModule }
