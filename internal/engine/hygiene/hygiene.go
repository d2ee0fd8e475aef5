// Package hygiene tracks macro expansion marks and the syntax contexts built
// from them. A Table is owned by a single resolution run; nothing here is
// global.
package hygiene

import "fmt"

// Mark identifies one macro expansion. Marks form a forest rooted at RootMark.
type Mark uint32

// RootMark is the expansion of code written directly in source files.
const RootMark Mark = 0

func (m Mark) IsRoot() bool { return m == RootMark }

func (m Mark) String() string { return fmt.Sprintf("#%d", uint32(m)) }

// SyntaxContext is an interned stack of marks carried by an identifier.
type SyntaxContext uint32

// EmptyContext carries no marks.
const EmptyContext SyntaxContext = 0

func (c SyntaxContext) String() string { return fmt.Sprintf("ctxt%d", uint32(c)) }

type markData struct {
	parent Mark
	modern bool
}

type contextData struct {
	outer  Mark
	prev   SyntaxContext
	modern SyntaxContext
}

type marking struct {
	ctxt SyntaxContext
	mark Mark
}

// Table stores mark and context data for one run.
type Table struct {
	marks    []markData
	contexts []contextData
	markings map[marking]SyntaxContext
}

func NewTable() *Table {
	return &Table{
		marks:    []markData{{parent: RootMark}},
		contexts: []contextData{{outer: RootMark, prev: EmptyContext, modern: EmptyContext}},
		markings: make(map[marking]SyntaxContext),
	}
}

// NewMark allocates an expansion nested in parent. Modern marks stay visible
// to item lookups; legacy marks only affect locals, labels and $crate.
func (t *Table) NewMark(parent Mark, modern bool) Mark {
	t.marks = append(t.marks, markData{parent: parent, modern: modern})
	return Mark(len(t.marks) - 1)
}

func (t *Table) MarkCount() int { return len(t.marks) }

func (t *Table) Parent(m Mark) Mark { return t.marks[m].parent }

func (t *Table) IsModern(m Mark) bool { return t.marks[m].modern }

// IsDescendantOf reports whether ancestor is m or one of its parents.
func (t *Table) IsDescendantOf(m, ancestor Mark) bool {
	for m != ancestor {
		if m == RootMark {
			return false
		}
		m = t.marks[m].parent
	}
	return true
}

// Outer returns the most recently applied mark of ctxt.
func (t *Table) Outer(ctxt SyntaxContext) Mark { return t.contexts[ctxt].outer }

// Modern strips all legacy marks from ctxt.
func (t *Table) Modern(ctxt SyntaxContext) SyntaxContext { return t.contexts[ctxt].modern }

// ApplyMark returns ctxt with mark pushed on top, interning the result.
func (t *Table) ApplyMark(ctxt SyntaxContext, mark Mark) SyntaxContext {
	modern := t.contexts[ctxt].modern
	if t.marks[mark].modern {
		modern = t.intern(modern, mark, func(self SyntaxContext) SyntaxContext { return self })
	}
	return t.intern(ctxt, mark, func(SyntaxContext) SyntaxContext { return modern })
}

func (t *Table) intern(prev SyntaxContext, mark Mark, modernOf func(self SyntaxContext) SyntaxContext) SyntaxContext {
	key := marking{ctxt: prev, mark: mark}
	if c, ok := t.markings[key]; ok {
		return c
	}
	self := SyntaxContext(len(t.contexts))
	t.contexts = append(t.contexts, contextData{outer: mark, prev: prev})
	t.contexts[self].modern = modernOf(self)
	t.markings[key] = self
	return self
}

// RemoveMark pops the outer mark of ctxt and returns it.
func (t *Table) RemoveMark(ctxt *SyntaxContext) Mark {
	data := t.contexts[*ctxt]
	*ctxt = data.prev
	return data.outer
}

// Marks lists the marks of ctxt in application order.
func (t *Table) Marks(ctxt SyntaxContext) []Mark {
	var marks []Mark
	for ctxt != EmptyContext {
		data := t.contexts[ctxt]
		marks = append(marks, data.outer)
		ctxt = data.prev
	}
	for i, j := 0, len(marks)-1; i < j; i, j = i+1, j-1 {
		marks[i], marks[j] = marks[j], marks[i]
	}
	return marks
}

// Adjust peels marks from ctxt until the scope created by expansion can see
// it. The last peeled mark, if any, names the macro whose definition site is
// the scope the identifier belongs to.
func (t *Table) Adjust(ctxt *SyntaxContext, expansion Mark) (Mark, bool) {
	var scope Mark
	adjusted := false
	for !t.IsDescendantOf(expansion, t.Outer(*ctxt)) {
		scope = t.RemoveMark(ctxt)
		adjusted = true
	}
	return scope, adjusted
}

// GlobAdjust rewrites ctxt for a lookup through a glob import whose directive
// has globCtxt, into a module created by expansion. ok is false when the
// identifier cannot see names introduced by the glob.
func (t *Table) GlobAdjust(ctxt *SyntaxContext, expansion Mark, globCtxt SyntaxContext) (scope Mark, hasScope bool, ok bool) {
	for !t.IsDescendantOf(expansion, t.Outer(globCtxt)) {
		scope = t.RemoveMark(&globCtxt)
		hasScope = true
		if t.RemoveMark(ctxt) != scope {
			return RootMark, false, false
		}
	}
	if _, adjusted := t.Adjust(ctxt, expansion); adjusted {
		return RootMark, false, false
	}
	return scope, hasScope, true
}

// ReverseGlobAdjust is the inverse of GlobAdjust: it maps a name defined in
// the glob's source module to the context it has at the import site.
func (t *Table) ReverseGlobAdjust(ctxt *SyntaxContext, expansion Mark, globCtxt SyntaxContext) (scope Mark, hasScope bool, ok bool) {
	if _, adjusted := t.Adjust(ctxt, expansion); adjusted {
		return RootMark, false, false
	}
	var marks []Mark
	for !t.IsDescendantOf(expansion, t.Outer(globCtxt)) {
		marks = append(marks, t.RemoveMark(&globCtxt))
	}
	if len(marks) > 0 {
		scope, hasScope = marks[len(marks)-1], true
	}
	for i := len(marks) - 1; i >= 0; i-- {
		*ctxt = t.ApplyMark(*ctxt, marks[i])
	}
	return scope, hasScope, true
}
