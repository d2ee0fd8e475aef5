package ast

type Block struct {
	Meta
	Stmts []Stmt
}

type Stmt interface {
	Node
	stmtNode()
}

type LetStmt struct {
	Meta
	Pat  Pat
	Ty   Ty
	Init Expr
	Else *Block
}

type ItemStmt struct {
	Meta
	Item *Item
}

type ExprStmt struct {
	Meta
	X    Expr
	Semi bool
}

type MacroStmt struct {
	Meta
	Call     *MacroCall
	Expanded []Stmt
}

func (*LetStmt) stmtNode()   {}
func (*ItemStmt) stmtNode()  {}
func (*ExprStmt) stmtNode()  {}
func (*MacroStmt) stmtNode() {}

type Expr interface {
	Node
	exprNode()
}

type PathExpr struct {
	Meta
	QSelf *QSelf
	Path  *Path
}

type LitExpr struct {
	Meta
	Value string
}

type CallExpr struct {
	Meta
	Func Expr
	Args []Expr
}

type MethodCallExpr struct {
	Meta
	Receiver Expr
	Method   PathSegment
	Args     []Expr
}

type FieldExpr struct {
	Meta
	Base  Expr
	Field Ident
}

type BinaryExpr struct {
	Meta
	Op string
	L  Expr
	R  Expr
}

type UnaryExpr struct {
	Meta
	Op string
	X  Expr
}

type AssignExpr struct {
	Meta
	Op string
	L  Expr
	R  Expr
}

type RefExpr struct {
	Meta
	Mutable bool
	X       Expr
}

type CastExpr struct {
	Meta
	X  Expr
	Ty Ty
}

type BlockExpr struct {
	Meta
	Label *Ident
	Block *Block
}

// LetExpr only appears as the condition of if/while.
type LetExpr struct {
	Meta
	Pat       Pat
	Scrutinee Expr
}

type IfExpr struct {
	Meta
	Cond Expr
	Then *Block
	Else Expr
}

type WhileExpr struct {
	Meta
	Label *Ident
	Cond  Expr
	Body  *Block
}

type LoopExpr struct {
	Meta
	Label *Ident
	Body  *Block
}

type ForExpr struct {
	Meta
	Label *Ident
	Pat   Pat
	Iter  Expr
	Body  *Block
}

type Arm struct {
	Meta
	Pat   Pat
	Guard Expr
	Body  Expr
}

type MatchExpr struct {
	Meta
	Scrutinee Expr
	Arms      []*Arm
}

type ClosureExpr struct {
	Meta
	Params []*Param
	Output Ty
	Body   Expr
}

type BreakExpr struct {
	Meta
	Label *Ident
	Value Expr
}

type ContinueExpr struct {
	Meta
	Label *Ident
}

type ReturnExpr struct {
	Meta
	Value Expr
}

type FieldInit struct {
	Ident     Ident
	Expr      Expr
	Shorthand bool
	Span      Span
}

type StructExpr struct {
	Meta
	Path   *Path
	Fields []*FieldInit
	Base   Expr
}

type TupleExpr struct {
	Meta
	Elems []Expr
}

type ArrayExpr struct {
	Meta
	Elems []Expr
}

type IndexExpr struct {
	Meta
	X     Expr
	Index Expr
}

type RangeExpr struct {
	Meta
	Lo Expr
	Hi Expr
}

type TryExpr struct {
	Meta
	X Expr
}

type ParenExpr struct {
	Meta
	X Expr
}

type MacroCallExpr struct {
	Meta
	Call     *MacroCall
	Expanded Expr
}

// MacroVarExpr is a `$name` placeholder inside a macro body.
type MacroVarExpr struct {
	Meta
	Name string
}

func (*PathExpr) exprNode()       {}
func (*LitExpr) exprNode()        {}
func (*CallExpr) exprNode()       {}
func (*MethodCallExpr) exprNode() {}
func (*FieldExpr) exprNode()      {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*AssignExpr) exprNode()     {}
func (*RefExpr) exprNode()        {}
func (*CastExpr) exprNode()       {}
func (*BlockExpr) exprNode()      {}
func (*LetExpr) exprNode()        {}
func (*IfExpr) exprNode()         {}
func (*WhileExpr) exprNode()      {}
func (*LoopExpr) exprNode()       {}
func (*ForExpr) exprNode()        {}
func (*MatchExpr) exprNode()      {}
func (*ClosureExpr) exprNode()    {}
func (*BreakExpr) exprNode()      {}
func (*ContinueExpr) exprNode()   {}
func (*ReturnExpr) exprNode()     {}
func (*StructExpr) exprNode()     {}
func (*TupleExpr) exprNode()      {}
func (*ArrayExpr) exprNode()      {}
func (*IndexExpr) exprNode()      {}
func (*RangeExpr) exprNode()      {}
func (*TryExpr) exprNode()        {}
func (*ParenExpr) exprNode()      {}
func (*MacroCallExpr) exprNode()  {}
func (*MacroVarExpr) exprNode()   {}

type Pat interface {
	Node
	patNode()
}

type WildPat struct{ Meta }

type RestPat struct{ Meta }

type IdentPat struct {
	Meta
	Ident   Ident
	ByRef   bool
	Mutable bool
	Sub     Pat
}

type PathPat struct {
	Meta
	QSelf *QSelf
	Path  *Path
}

type TupleStructPat struct {
	Meta
	Path  *Path
	Elems []Pat
}

type FieldPat struct {
	Ident     Ident
	Pat       Pat
	Shorthand bool
	Span      Span
}

type StructPat struct {
	Meta
	Path   *Path
	Fields []*FieldPat
	Rest   bool
}

type TuplePat struct {
	Meta
	Elems []Pat
}

type SlicePat struct {
	Meta
	Elems []Pat
}

type RefPat struct {
	Meta
	Mutable bool
	Inner   Pat
}

type LitPat struct {
	Meta
	Expr Expr
}

type RangePat struct {
	Meta
	Lo Expr
	Hi Expr
}

type OrPat struct {
	Meta
	Alts []Pat
}

func (*WildPat) patNode()        {}
func (*RestPat) patNode()        {}
func (*IdentPat) patNode()       {}
func (*PathPat) patNode()        {}
func (*TupleStructPat) patNode() {}
func (*StructPat) patNode()      {}
func (*TuplePat) patNode()       {}
func (*SlicePat) patNode()       {}
func (*RefPat) patNode()         {}
func (*LitPat) patNode()         {}
func (*RangePat) patNode()       {}
func (*OrPat) patNode()          {}

type Ty interface {
	Node
	tyNode()
}

type PathTy struct {
	Meta
	QSelf *QSelf
	Path  *Path
}

type RefTy struct {
	Meta
	Mutable bool
	Elem    Ty
}

type PtrTy struct {
	Meta
	Mutable bool
	Elem    Ty
}

type TupleTy struct {
	Meta
	Elems []Ty
}

type SliceTy struct {
	Meta
	Elem Ty
}

type ArrayTy struct {
	Meta
	Elem Ty
	Len  Expr
}

type FnPtrTy struct {
	Meta
	Inputs []Ty
	Output Ty
}

type InferTy struct{ Meta }

type NeverTy struct{ Meta }

// TraitObjectTy covers both `dyn Bounds` and `impl Bounds`.
type TraitObjectTy struct {
	Meta
	Impl   bool
	Bounds []*Path
}

// MacroVarTy is a `$name` type placeholder inside a macro body.
type MacroVarTy struct {
	Meta
	Name string
}

func (*PathTy) tyNode()        {}
func (*RefTy) tyNode()         {}
func (*PtrTy) tyNode()         {}
func (*TupleTy) tyNode()       {}
func (*SliceTy) tyNode()       {}
func (*ArrayTy) tyNode()       {}
func (*FnPtrTy) tyNode()       {}
func (*InferTy) tyNode()       {}
func (*NeverTy) tyNode()       {}
func (*TraitObjectTy) tyNode() {}
func (*MacroVarTy) tyNode()    {}
