// Package ast is the item, expression, pattern and type tree consumed by the
// resolver. Trees are produced by internal/engine/parser or built directly in
// tests with astbuild.
package ast

import (
	"fmt"
	"nameres/internal/engine/hygiene"
)

// NodeID is the stable identity of a node within one crate. Zero is unused.
type NodeID uint32

const DummyNodeID NodeID = 0

// Span is a source range. Lo and Hi are byte offsets into File.
type Span struct {
	File string
	Lo   int
	Hi   int
	Line int
	Col  int
}

func (s Span) IsDummy() bool { return s.File == "" && s.Lo == 0 && s.Hi == 0 }

func (s Span) String() string {
	if s.IsDummy() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Less orders spans by file, then start, then end.
func (s Span) Less(o Span) bool {
	if s.File != o.File {
		return s.File < o.File
	}
	if s.Lo != o.Lo {
		return s.Lo < o.Lo
	}
	return s.Hi < o.Hi
}

// Reserved identifiers with resolver meaning.
const (
	KwSelfValue   = "self"
	KwSelfType    = "Self"
	KwSuper       = "super"
	KwCrate       = "crate"
	KwDollarCrate = "$crate"
	KwPathRoot    = "{{root}}"
	KwUnderscore  = "_"
)

// Ident is a name plus the hygiene context it was written in.
type Ident struct {
	Name string
	Span Span
	Ctxt hygiene.SyntaxContext
}

func NewIdent(name string, sp Span) Ident { return Ident{Name: name, Span: sp} }

func (i Ident) String() string { return i.Name }

// IsPathSegmentKeyword reports whether the ident is a sentinel that can only
// start a path.
func (i Ident) IsPathSegmentKeyword() bool {
	switch i.Name {
	case KwSelfValue, KwSuper, KwCrate, KwDollarCrate, KwPathRoot:
		return true
	}
	return false
}

// Meta is embedded by every node.
type Meta struct {
	ID   NodeID
	Span Span
}

func (m *Meta) Node() *Meta { return m }

type Node interface {
	Node() *Meta
}

type Attribute struct {
	Name  string
	Args  []string
	Inner bool
	Span  Span
}

type Attrs []Attribute

func (a Attrs) Has(name string) bool {
	for _, attr := range a {
		if attr.Name == name {
			return true
		}
	}
	return false
}

type VisKind uint8

const (
	VisInherited VisKind = iota
	VisPublic
	VisCrate
	VisRestricted
)

// Visibility as written. Restricted covers pub(in path), pub(super) and
// pub(self); the path holds the sentinel segments.
type Visibility struct {
	Kind VisKind
	Path *Path
	ID   NodeID
	Span Span
}

// Crate is one compilation unit.
type Crate struct {
	Name  string
	Items []*Item
	Attrs Attrs
	Span  Span
	MaxID NodeID
}

// NextID allocates a fresh node id, used for macro expansions.
func (c *Crate) NextID() NodeID {
	c.MaxID++
	return c.MaxID
}

// Program is the unit of resolution: one local crate plus the external crates
// it may refer to.
type Program struct {
	Local   *Crate
	Externs []*Crate
}

type Path struct {
	Segments []PathSegment
	Span     Span
	Global   bool
}

func (p *Path) String() string {
	if p == nil {
		return ""
	}
	s := ""
	if p.Global {
		s = "::"
	}
	for i, seg := range p.Segments {
		if i > 0 {
			s += "::"
		}
		s += seg.Ident.Name
	}
	return s
}

type PathSegment struct {
	Ident Ident
	Args  *GenericArgs
}

type GenericArgs struct {
	Types    []Ty
	Bindings []AssocBinding
	Span     Span
}

type AssocBinding struct {
	Ident Ident
	Ty    Ty
}

// QSelf is the `<T as Trait>` prefix of a path. Position counts the path
// segments that belong to the trait.
type QSelf struct {
	Ty       Ty
	Position int
}

type ParamKind uint8

const (
	ParamType ParamKind = iota
	ParamLifetime
	ParamConst
)

type Generics struct {
	Params []*GenericParam
	Where  []*WherePredicate
	Span   Span
}

type GenericParam struct {
	Meta
	Ident   Ident
	Kind    ParamKind
	Bounds  []*Path
	Default Ty
	Ty      Ty
}

type WherePredicate struct {
	Ty     Ty
	Bounds []*Path
	Span   Span
}
