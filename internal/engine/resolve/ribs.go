package resolve

import (
	"nameres/internal/engine/ast"
	"nameres/internal/engine/hygiene"
)

type ribKind uint8

const (
	ribNormal ribKind = iota
	// ribClosure turns crossed locals into upvars of the closure.
	ribClosure
	// ribItem separates a fn item from its environment: locals and outer
	// type parameters are not visible through it.
	ribItem
	// ribTraitOrImpl hides locals but keeps the item's type parameters.
	ribTraitOrImpl
	ribConstant
	// ribModule makes the items of a module visible.
	ribModule
	// ribMacroDefinition marks the point where a block-local macro was
	// defined. Names produced by that macro peel one mark here.
	ribMacroDefinition
	// ribForwardTyParamBan holds later type parameters as errors while a
	// default is resolved.
	ribForwardTyParamBan
)

func (k ribKind) String() string {
	switch k {
	case ribNormal:
		return "normal"
	case ribClosure:
		return "closure"
	case ribItem:
		return "item"
	case ribTraitOrImpl:
		return "trait-or-impl"
	case ribConstant:
		return "constant"
	case ribModule:
		return "module"
	case ribMacroDefinition:
		return "macro-definition"
	}
	return "forward-ty-param-ban"
}

// ribKey keys rib bindings by name and full syntax context; locals are
// hygienic under every kind of mark.
type ribKey struct {
	name string
	ctxt hygiene.SyntaxContext
}

type rib struct {
	kind     ribKind
	bindings map[ribKey]Def
	// order keeps insertion order for suggestions.
	order []ribKey

	closure  ast.NodeID
	module   ModuleID
	macroDef DefID
}

func newRib(kind ribKind) *rib {
	return &rib{kind: kind, bindings: make(map[ribKey]Def)}
}

func closureRib(id ast.NodeID) *rib {
	rb := newRib(ribClosure)
	rb.closure = id
	return rb
}

func moduleRib(m ModuleID) *rib {
	rb := newRib(ribModule)
	rb.module = m
	return rb
}

func macroDefinitionRib(def DefID) *rib {
	rb := newRib(ribMacroDefinition)
	rb.macroDef = def
	return rb
}

func (rb *rib) bind(name string, ctxt hygiene.SyntaxContext, def Def) {
	key := ribKey{name: name, ctxt: ctxt}
	if _, ok := rb.bindings[key]; !ok {
		rb.order = append(rb.order, key)
	}
	rb.bindings[key] = def
}

func (rb *rib) unbind(name string, ctxt hygiene.SyntaxContext) {
	key := ribKey{name: name, ctxt: ctxt}
	if _, ok := rb.bindings[key]; !ok {
		return
	}
	delete(rb.bindings, key)
	for i, k := range rb.order {
		if k == key {
			rb.order = append(rb.order[:i], rb.order[i+1:]...)
			break
		}
	}
}

func (rb *rib) lookup(ident ast.Ident) (Def, bool) {
	d, ok := rb.bindings[ribKey{name: ident.Name, ctxt: ident.Ctxt}]
	return d, ok
}

// withRib runs fn with rb pushed on the ns stack. The rib is popped on
// every exit path.
func (r *Resolver) withRib(ns Namespace, rb *rib, fn func()) {
	r.ribs[ns] = append(r.ribs[ns], rb)
	defer func() {
		r.ribs[ns] = r.ribs[ns][:len(r.ribs[ns])-1]
	}()
	fn()
}

// withRibs pushes one rib per namespace in the value and type stacks.
func (r *Resolver) withRibs(value, typ *rib, fn func()) {
	r.withRib(ValueNS, value, func() {
		r.withRib(TypeNS, typ, fn)
	})
}

func (r *Resolver) withLabelRib(rb *rib, fn func()) {
	r.labelRibs = append(r.labelRibs, rb)
	defer func() { r.labelRibs = r.labelRibs[:len(r.labelRibs)-1] }()
	fn()
}

// withScope enters module m: item lookups see its names and the current
// module changes until fn returns.
func (r *Resolver) withScope(m ModuleID, fn func()) {
	orig := r.currentModule
	r.currentModule = m
	defer func() { r.currentModule = orig }()
	r.withRibs(moduleRib(m), moduleRib(m), fn)
}

func (r *Resolver) topRib(ns Namespace) *rib {
	s := r.ribs[ns]
	return s[len(s)-1]
}
