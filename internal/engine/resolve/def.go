package resolve

import (
	"fmt"
	"nameres/internal/engine/ast"
)

type Namespace uint8

const (
	TypeNS Namespace = iota
	ValueNS
	MacroNS
)

var namespaces = [...]Namespace{TypeNS, ValueNS, MacroNS}

func (ns Namespace) String() string {
	switch ns {
	case TypeNS:
		return "type"
	case ValueNS:
		return "value"
	case MacroNS:
		return "macro"
	}
	return "unknown"
}

// PerNS holds one value per namespace, indexed by Namespace.
type PerNS[T any] [3]T

func (p PerNS[T]) Get(ns Namespace) T { return p[ns] }

func (p *PerNS[T]) Set(ns Namespace, v T) { p[ns] = v }

// CrateNum indexes the crates of a program. The local crate is 0.
type CrateNum uint32

const LocalCrate CrateNum = 0

type DefID struct {
	Crate CrateNum
	Node  ast.NodeID
}

func (d DefID) IsLocal() bool { return d.Crate == LocalCrate }

func (d DefID) String() string { return fmt.Sprintf("%d:%d", d.Crate, d.Node) }

type DefKind uint8

const (
	// DefNone marks an absent entry, e.g. an import namespace that
	// imported nothing.
	DefNone DefKind = iota
	DefErr
	DefMod
	DefStruct
	DefEnum
	DefVariant
	DefTrait
	DefTyAlias
	DefAssocTy
	DefTyParam
	DefSelfTy
	DefPrimTy
	DefFn
	DefConst
	DefStatic
	DefStructCtor
	DefVariantCtor
	DefMethod
	DefAssocConst
	DefLocal
	DefUpvar
	DefLabel
	DefMacro
)

type CtorKind uint8

const (
	CtorFn CtorKind = iota
	CtorConst
	CtorFictive
)

// Def is what a name resolves to. It is comparable; two bindings denote the
// same thing exactly when their Defs are equal.
type Def struct {
	Kind DefKind
	ID   DefID
	Ctor CtorKind
	// Prim names a builtin type for DefPrimTy.
	Prim string
	// Local is the binding pattern id for DefLocal and DefUpvar.
	Local ast.NodeID
	// Index and Closure locate a DefUpvar in the capture list of Closure.
	Index   int
	Closure ast.NodeID
	// Trait and Impl qualify DefSelfTy.
	Trait DefID
	Impl  ast.NodeID
}

var errDef = Def{Kind: DefErr}

func (d Def) IsErr() bool { return d.Kind == DefErr }

func (d Def) IsNone() bool { return d.Kind == DefNone }

func (d Def) String() string {
	switch d.Kind {
	case DefErr:
		return "err"
	case DefPrimTy:
		return "prim " + d.Prim
	case DefLocal:
		return fmt.Sprintf("local %d", d.Local)
	case DefUpvar:
		return fmt.Sprintf("upvar %d#%d in %d", d.Local, d.Index, d.Closure)
	case DefSelfTy:
		return fmt.Sprintf("Self(trait %s, impl %d)", d.Trait, d.Impl)
	}
	return fmt.Sprintf("%s %s", d.KindName(), d.ID)
}

// KindName is the noun used in diagnostics.
func (d Def) KindName() string {
	switch d.Kind {
	case DefMod:
		return "module"
	case DefStruct:
		return "struct"
	case DefEnum:
		return "enum"
	case DefVariant:
		return "variant"
	case DefTrait:
		return "trait"
	case DefTyAlias:
		return "type alias"
	case DefAssocTy:
		return "associated type"
	case DefTyParam:
		return "type parameter"
	case DefSelfTy:
		return "self type"
	case DefPrimTy:
		return "builtin type"
	case DefFn:
		return "function"
	case DefConst:
		return "constant"
	case DefStatic:
		return "static"
	case DefStructCtor:
		switch d.Ctor {
		case CtorFn:
			return "tuple struct"
		case CtorConst:
			return "unit struct"
		}
		return "struct"
	case DefVariantCtor:
		switch d.Ctor {
		case CtorFn:
			return "tuple variant"
		case CtorConst:
			return "unit variant"
		}
		return "struct variant"
	case DefMethod:
		return "method"
	case DefAssocConst:
		return "associated constant"
	case DefLocal, DefUpvar:
		return "local variable"
	case DefLabel:
		return "label"
	case DefMacro:
		return "macro"
	}
	return "unresolved item"
}

// Article is "a" or "an" for KindName.
func (d Def) Article() string {
	switch d.Kind {
	case DefEnum, DefAssocTy, DefAssocConst, DefErr:
		return "an"
	}
	return "a"
}

func (d Def) isModuleLike() bool {
	return d.Kind == DefMod || d.Kind == DefEnum || d.Kind == DefTrait
}

// PathResolution is a base definition plus the number of trailing path
// segments left for type-directed resolution.
type PathResolution struct {
	BaseDef    Def
	Unresolved int
}

func (p PathResolution) FullDef() (Def, bool) {
	if p.Unresolved != 0 {
		return errDef, false
	}
	return p.BaseDef, true
}

// Capture is one entry in a closure's capture list. Def is what the captured
// name resolved to outside the closure: a local, or a capture of an enclosing
// closure.
type Capture struct {
	Def  Def
	Span ast.Span
}

// Local is the variable ultimately captured.
func (c Capture) Local() ast.NodeID { return c.Def.Local }

// TraitCandidate is a trait whose items may serve a method call or field
// access. Import is the use declaration that brought it into scope, if any.
type TraitCandidate struct {
	Def    DefID
	Import ast.NodeID
}

type Determinacy uint8

const (
	Determined Determinacy = iota
	Undetermined
)

func (d Determinacy) String() string {
	if d == Determined {
		return "determined"
	}
	return "undetermined"
}
