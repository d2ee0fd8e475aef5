package ast

// Item is a module-level or block-level declaration.
type Item struct {
	Meta
	Ident Ident
	Vis   Visibility
	Attrs Attrs
	Kind  ItemKind
}

type ItemKind interface {
	itemKind()
}

type ModItem struct {
	Items []*Item
}

type FnItem struct {
	Generics *Generics
	Decl     *FnDecl
	Body     *Block
}

type StructItem struct {
	Generics *Generics
	Data     *VariantData
}

type EnumItem struct {
	Generics *Generics
	Variants []*Variant
}

type TraitItem struct {
	Generics *Generics
	Bounds   []*Path
	Items    []*AssocItem
}

type ImplItem struct {
	Generics *Generics
	Trait    *TraitRef
	SelfTy   Ty
	Items    []*AssocItem
}

type UseItem struct {
	Tree *UseTree
}

// ExternCrateItem is `extern crate orig as ident;`. Orig is empty when no
// rename is written.
type ExternCrateItem struct {
	Orig string
}

type ConstItem struct {
	Ty   Ty
	Expr Expr
}

type StaticItem struct {
	Ty      Ty
	Expr    Expr
	Mutable bool
}

type TypeAliasItem struct {
	Generics *Generics
	Ty       Ty
}

// MacroDefItem is a declarative macro. Modern macros (`macro`) are fully
// hygienic; legacy ones (`macro_rules!`) only hide locals and labels.
type MacroDefItem struct {
	Modern bool
	Rule   *MacroRule
}

type MacroCallItem struct {
	Call     *MacroCall
	Expanded []*Item
}

func (*ModItem) itemKind()         {}
func (*FnItem) itemKind()          {}
func (*StructItem) itemKind()      {}
func (*EnumItem) itemKind()        {}
func (*TraitItem) itemKind()       {}
func (*ImplItem) itemKind()        {}
func (*UseItem) itemKind()         {}
func (*ExternCrateItem) itemKind() {}
func (*ConstItem) itemKind()       {}
func (*StaticItem) itemKind()      {}
func (*TypeAliasItem) itemKind()   {}
func (*MacroDefItem) itemKind()    {}
func (*MacroCallItem) itemKind()   {}

type DataKind uint8

const (
	DataStruct DataKind = iota
	DataTuple
	DataUnit
)

// VariantData is the field list of a struct or variant. CtorID names the
// constructor of tuple and unit shapes.
type VariantData struct {
	Kind   DataKind
	Fields []*FieldDef
	CtorID NodeID
}

type FieldDef struct {
	Meta
	Ident *Ident
	Vis   Visibility
	Ty    Ty
}

type Variant struct {
	Meta
	Ident        Ident
	Data         *VariantData
	Discriminant Expr
}

type TraitRef struct {
	Meta
	Path *Path
}

// AssocItem is a member of a trait or impl.
type AssocItem struct {
	Meta
	Ident Ident
	Vis   Visibility
	Attrs Attrs
	Kind  AssocKind
}

type AssocKind interface {
	assocKind()
}

type AssocFn struct {
	Generics *Generics
	Decl     *FnDecl
	Body     *Block
}

type AssocConst struct {
	Ty   Ty
	Expr Expr
}

type AssocType struct {
	Bounds []*Path
	Ty     Ty
}

func (*AssocFn) assocKind()    {}
func (*AssocConst) assocKind() {}
func (*AssocType) assocKind()  {}

type FnDecl struct {
	Inputs []*Param
	Output Ty
	// HasSelf is set for methods taking a self receiver.
	HasSelf bool
}

type Param struct {
	Meta
	Pat Pat
	Ty  Ty
}

type UseTreeKind uint8

const (
	UseSimple UseTreeKind = iota
	UseNested
	UseGlob
)

// UseTree mirrors the syntax of a use declaration. For UseSimple the last
// prefix segment is the imported name.
type UseTree struct {
	Meta
	Prefix *Path
	Kind   UseTreeKind
	Rename *Ident
	Nested []*UseTree
}

// MacroParam is a `$name:frag` matcher entry.
type MacroParam struct {
	Name string
	Frag FragKind
}

type FragKind uint8

const (
	FragIdent FragKind = iota
	FragExpr
	FragTy
)

func (f FragKind) String() string {
	switch f {
	case FragIdent:
		return "ident"
	case FragExpr:
		return "expr"
	case FragTy:
		return "ty"
	}
	return "unknown"
}

// MacroRule is the single transcription rule of a macro. The body is kept in
// every shape it parsed as; expansion picks the one the call site needs.
type MacroRule struct {
	Params []MacroParam
	Items  []*Item
	Block  *Block
	Span   Span
}

// MacroArg is one positional argument of an invocation.
type MacroArg struct {
	Ident *Ident
	Expr  Expr
	Ty    Ty
	Span  Span
}

type MacroCall struct {
	Meta
	Path *Path
	Args []MacroArg
}
