package ast

// Inspect traverses the tree rooted at node in depth-first order. It calls
// f(node); if f returns true, Inspect visits the children and then calls
// f(nil). Macro calls are entered through their expansion only.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || isNilNode(node) {
		return
	}
	if !f(node) {
		return
	}
	walkChildren(node, f)
	f(nil)
}

func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *Item:
		return v == nil
	case *Block:
		return v == nil
	case *AssocItem:
		return v == nil
	}
	return false
}

func inspectGenerics(g *Generics, f func(Node) bool) {
	if g == nil {
		return
	}
	for _, p := range g.Params {
		Inspect(p, f)
	}
	for _, w := range g.Where {
		inspectTy(w.Ty, f)
		for _, b := range w.Bounds {
			inspectPath(b, f)
		}
	}
}

func inspectPath(p *Path, f func(Node) bool) {
	if p == nil {
		return
	}
	for _, seg := range p.Segments {
		if seg.Args == nil {
			continue
		}
		for _, t := range seg.Args.Types {
			inspectTy(t, f)
		}
		for _, b := range seg.Args.Bindings {
			inspectTy(b.Ty, f)
		}
	}
}

func inspectTy(t Ty, f func(Node) bool) {
	if t != nil {
		Inspect(t, f)
	}
}

func inspectExpr(e Expr, f func(Node) bool) {
	if e != nil {
		Inspect(e, f)
	}
}

func inspectPat(p Pat, f func(Node) bool) {
	if p != nil {
		Inspect(p, f)
	}
}

func inspectDecl(d *FnDecl, f func(Node) bool) {
	if d == nil {
		return
	}
	for _, p := range d.Inputs {
		Inspect(p, f)
	}
	inspectTy(d.Output, f)
}

func inspectBlock(b *Block, f func(Node) bool) {
	if b != nil {
		Inspect(b, f)
	}
}

func inspectVariantData(d *VariantData, f func(Node) bool) {
	if d == nil {
		return
	}
	for _, fd := range d.Fields {
		Inspect(fd, f)
	}
}

func walkChildren(node Node, f func(Node) bool) {
	switch n := node.(type) {
	case *Item:
		walkItemKind(n.Kind, f)
	case *AssocItem:
		switch k := n.Kind.(type) {
		case *AssocFn:
			inspectGenerics(k.Generics, f)
			inspectDecl(k.Decl, f)
			inspectBlock(k.Body, f)
		case *AssocConst:
			inspectTy(k.Ty, f)
			inspectExpr(k.Expr, f)
		case *AssocType:
			for _, b := range k.Bounds {
				inspectPath(b, f)
			}
			inspectTy(k.Ty, f)
		}
	case *GenericParam:
		for _, b := range n.Bounds {
			inspectPath(b, f)
		}
		inspectTy(n.Default, f)
		inspectTy(n.Ty, f)
	case *FieldDef:
		inspectTy(n.Ty, f)
	case *Variant:
		inspectVariantData(n.Data, f)
		inspectExpr(n.Discriminant, f)
	case *Param:
		inspectPat(n.Pat, f)
		inspectTy(n.Ty, f)
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *LetStmt:
		inspectPat(n.Pat, f)
		inspectTy(n.Ty, f)
		inspectExpr(n.Init, f)
		inspectBlock(n.Else, f)
	case *ItemStmt:
		if n.Item != nil {
			Inspect(n.Item, f)
		}
	case *ExprStmt:
		inspectExpr(n.X, f)
	case *MacroStmt:
		for _, s := range n.Expanded {
			Inspect(s, f)
		}
	case *Arm:
		inspectPat(n.Pat, f)
		inspectExpr(n.Guard, f)
		inspectExpr(n.Body, f)
	default:
		if e, ok := node.(Expr); ok {
			walkExpr(e, f)
		} else if p, ok := node.(Pat); ok {
			walkPat(p, f)
		} else if t, ok := node.(Ty); ok {
			walkTy(t, f)
		}
	}
}

func walkItemKind(kind ItemKind, f func(Node) bool) {
	switch k := kind.(type) {
	case *ModItem:
		for _, it := range k.Items {
			Inspect(it, f)
		}
	case *FnItem:
		inspectGenerics(k.Generics, f)
		inspectDecl(k.Decl, f)
		inspectBlock(k.Body, f)
	case *StructItem:
		inspectGenerics(k.Generics, f)
		inspectVariantData(k.Data, f)
	case *EnumItem:
		inspectGenerics(k.Generics, f)
		for _, v := range k.Variants {
			Inspect(v, f)
		}
	case *TraitItem:
		inspectGenerics(k.Generics, f)
		for _, b := range k.Bounds {
			inspectPath(b, f)
		}
		for _, it := range k.Items {
			Inspect(it, f)
		}
	case *ImplItem:
		inspectGenerics(k.Generics, f)
		if k.Trait != nil {
			inspectPath(k.Trait.Path, f)
		}
		inspectTy(k.SelfTy, f)
		for _, it := range k.Items {
			Inspect(it, f)
		}
	case *ConstItem:
		inspectTy(k.Ty, f)
		inspectExpr(k.Expr, f)
	case *StaticItem:
		inspectTy(k.Ty, f)
		inspectExpr(k.Expr, f)
	case *TypeAliasItem:
		inspectGenerics(k.Generics, f)
		inspectTy(k.Ty, f)
	case *MacroCallItem:
		for _, it := range k.Expanded {
			Inspect(it, f)
		}
	}
}

func walkExpr(e Expr, f func(Node) bool) {
	switch n := e.(type) {
	case *PathExpr:
		if n.QSelf != nil {
			inspectTy(n.QSelf.Ty, f)
		}
		inspectPath(n.Path, f)
	case *CallExpr:
		inspectExpr(n.Func, f)
		for _, a := range n.Args {
			inspectExpr(a, f)
		}
	case *MethodCallExpr:
		inspectExpr(n.Receiver, f)
		if n.Method.Args != nil {
			for _, t := range n.Method.Args.Types {
				inspectTy(t, f)
			}
		}
		for _, a := range n.Args {
			inspectExpr(a, f)
		}
	case *FieldExpr:
		inspectExpr(n.Base, f)
	case *BinaryExpr:
		inspectExpr(n.L, f)
		inspectExpr(n.R, f)
	case *UnaryExpr:
		inspectExpr(n.X, f)
	case *AssignExpr:
		inspectExpr(n.L, f)
		inspectExpr(n.R, f)
	case *RefExpr:
		inspectExpr(n.X, f)
	case *CastExpr:
		inspectExpr(n.X, f)
		inspectTy(n.Ty, f)
	case *BlockExpr:
		inspectBlock(n.Block, f)
	case *LetExpr:
		inspectPat(n.Pat, f)
		inspectExpr(n.Scrutinee, f)
	case *IfExpr:
		inspectExpr(n.Cond, f)
		inspectBlock(n.Then, f)
		inspectExpr(n.Else, f)
	case *WhileExpr:
		inspectExpr(n.Cond, f)
		inspectBlock(n.Body, f)
	case *LoopExpr:
		inspectBlock(n.Body, f)
	case *ForExpr:
		inspectPat(n.Pat, f)
		inspectExpr(n.Iter, f)
		inspectBlock(n.Body, f)
	case *MatchExpr:
		inspectExpr(n.Scrutinee, f)
		for _, a := range n.Arms {
			Inspect(a, f)
		}
	case *ClosureExpr:
		for _, p := range n.Params {
			Inspect(p, f)
		}
		inspectTy(n.Output, f)
		inspectExpr(n.Body, f)
	case *BreakExpr:
		inspectExpr(n.Value, f)
	case *ReturnExpr:
		inspectExpr(n.Value, f)
	case *StructExpr:
		inspectPath(n.Path, f)
		for _, fi := range n.Fields {
			inspectExpr(fi.Expr, f)
		}
		inspectExpr(n.Base, f)
	case *TupleExpr:
		for _, x := range n.Elems {
			inspectExpr(x, f)
		}
	case *ArrayExpr:
		for _, x := range n.Elems {
			inspectExpr(x, f)
		}
	case *IndexExpr:
		inspectExpr(n.X, f)
		inspectExpr(n.Index, f)
	case *RangeExpr:
		inspectExpr(n.Lo, f)
		inspectExpr(n.Hi, f)
	case *TryExpr:
		inspectExpr(n.X, f)
	case *ParenExpr:
		inspectExpr(n.X, f)
	case *MacroCallExpr:
		inspectExpr(n.Expanded, f)
	}
}

func walkPat(p Pat, f func(Node) bool) {
	switch n := p.(type) {
	case *IdentPat:
		inspectPat(n.Sub, f)
	case *PathPat:
		if n.QSelf != nil {
			inspectTy(n.QSelf.Ty, f)
		}
		inspectPath(n.Path, f)
	case *TupleStructPat:
		inspectPath(n.Path, f)
		for _, x := range n.Elems {
			inspectPat(x, f)
		}
	case *StructPat:
		inspectPath(n.Path, f)
		for _, fp := range n.Fields {
			inspectPat(fp.Pat, f)
		}
	case *TuplePat:
		for _, x := range n.Elems {
			inspectPat(x, f)
		}
	case *SlicePat:
		for _, x := range n.Elems {
			inspectPat(x, f)
		}
	case *RefPat:
		inspectPat(n.Inner, f)
	case *LitPat:
		inspectExpr(n.Expr, f)
	case *RangePat:
		inspectExpr(n.Lo, f)
		inspectExpr(n.Hi, f)
	case *OrPat:
		for _, x := range n.Alts {
			inspectPat(x, f)
		}
	}
}

func walkTy(t Ty, f func(Node) bool) {
	switch n := t.(type) {
	case *PathTy:
		if n.QSelf != nil {
			inspectTy(n.QSelf.Ty, f)
		}
		inspectPath(n.Path, f)
	case *RefTy:
		inspectTy(n.Elem, f)
	case *PtrTy:
		inspectTy(n.Elem, f)
	case *TupleTy:
		for _, x := range n.Elems {
			inspectTy(x, f)
		}
	case *SliceTy:
		inspectTy(n.Elem, f)
	case *ArrayTy:
		inspectTy(n.Elem, f)
		inspectExpr(n.Len, f)
	case *FnPtrTy:
		for _, x := range n.Inputs {
			inspectTy(x, f)
		}
		inspectTy(n.Output, f)
	case *TraitObjectTy:
		for _, b := range n.Bounds {
			inspectPath(b, f)
		}
	}
}
