package hygiene

import "testing"

func TestIsDescendantOf(t *testing.T) {
	tbl := NewTable()
	a := tbl.NewMark(RootMark, false)
	b := tbl.NewMark(a, false)
	c := tbl.NewMark(RootMark, true)

	tests := []struct {
		name     string
		mark     Mark
		ancestor Mark
		want     bool
	}{
		{"self", b, b, true},
		{"parent", b, a, true},
		{"root", b, RootMark, true},
		{"sibling", b, c, false},
		{"child is not ancestor", a, b, false},
		{"root of root", RootMark, RootMark, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tbl.IsDescendantOf(tt.mark, tt.ancestor); got != tt.want {
				t.Fatalf("IsDescendantOf(%v, %v) = %v, want %v", tt.mark, tt.ancestor, got, tt.want)
			}
		})
	}
}

func TestApplyMarkInterns(t *testing.T) {
	tbl := NewTable()
	m := tbl.NewMark(RootMark, false)
	c1 := tbl.ApplyMark(EmptyContext, m)
	c2 := tbl.ApplyMark(EmptyContext, m)
	if c1 != c2 {
		t.Fatalf("expected interned contexts, got %v and %v", c1, c2)
	}
	if tbl.Outer(c1) != m {
		t.Fatalf("outer mark = %v, want %v", tbl.Outer(c1), m)
	}
	ctxt := c1
	if got := tbl.RemoveMark(&ctxt); got != m || ctxt != EmptyContext {
		t.Fatalf("RemoveMark = (%v, %v)", got, ctxt)
	}
}

func TestModernDropsLegacyMarks(t *testing.T) {
	tbl := NewTable()
	legacy := tbl.NewMark(RootMark, false)
	modern := tbl.NewMark(legacy, true)

	ctxt := tbl.ApplyMark(EmptyContext, legacy)
	if tbl.Modern(ctxt) != EmptyContext {
		t.Fatalf("legacy mark leaked into modern context")
	}
	ctxt = tbl.ApplyMark(ctxt, modern)
	mod := tbl.Modern(ctxt)
	if tbl.Outer(mod) != modern {
		t.Fatalf("modern context outer = %v, want %v", tbl.Outer(mod), modern)
	}
	if got := tbl.Marks(ctxt); len(got) != 2 || got[0] != legacy || got[1] != modern {
		t.Fatalf("Marks = %v", got)
	}
}

func TestAdjust(t *testing.T) {
	tbl := NewTable()
	outer := tbl.NewMark(RootMark, true)
	inner := tbl.NewMark(outer, true)
	ctxt := tbl.ApplyMark(tbl.ApplyMark(EmptyContext, outer), inner)

	c := ctxt
	if _, adjusted := tbl.Adjust(&c, inner); adjusted {
		t.Fatalf("no adjustment expected inside the producing expansion")
	}

	c = ctxt
	scope, adjusted := tbl.Adjust(&c, RootMark)
	if !adjusted || scope != outer || c != EmptyContext {
		t.Fatalf("Adjust to root = (%v, %v, %v)", scope, adjusted, c)
	}
}

func TestGlobAdjustRoundTrip(t *testing.T) {
	tbl := NewTable()
	m := tbl.NewMark(RootMark, true)
	globCtxt := tbl.ApplyMark(EmptyContext, m)

	// A name written at the root seen through a glob written by m.
	ctxt := EmptyContext
	scope, hasScope, ok := tbl.ReverseGlobAdjust(&ctxt, RootMark, globCtxt)
	if !ok || !hasScope || scope != m {
		t.Fatalf("ReverseGlobAdjust = (%v, %v, %v)", scope, hasScope, ok)
	}
	if ctxt != globCtxt {
		t.Fatalf("reverse adjusted ctxt = %v, want %v", ctxt, globCtxt)
	}

	scope, hasScope, ok = tbl.GlobAdjust(&ctxt, RootMark, globCtxt)
	if !ok || !hasScope || scope != m || ctxt != EmptyContext {
		t.Fatalf("GlobAdjust = (%v, %v, %v, %v)", scope, hasScope, ok, ctxt)
	}
}

func TestGlobAdjustRejectsForeignMarks(t *testing.T) {
	tbl := NewTable()
	a := tbl.NewMark(RootMark, true)
	b := tbl.NewMark(RootMark, true)
	globCtxt := tbl.ApplyMark(EmptyContext, a)
	ctxt := tbl.ApplyMark(EmptyContext, b)
	if _, _, ok := tbl.GlobAdjust(&ctxt, RootMark, globCtxt); ok {
		t.Fatalf("identifier from another expansion must not see the glob")
	}
}
