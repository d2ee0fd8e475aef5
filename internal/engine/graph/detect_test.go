package graph

import (
	"strings"
	"testing"

	"nameres/internal/engine/ast"
)

func TestDetectCycles_Simple(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", ast.Span{File: "lib.rs", Lo: 1, Hi: 2})
	g.AddEdge("a", "b", "")
	g.AddEdge("b", "c", "")
	g.AddEdge("c", "a", "")

	cycles := g.DetectCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if got := strings.Join(cycles[0], ","); got != "a,b,c" {
		t.Fatalf("unexpected cycle: %s", got)
	}
	if g.NodeCount() != 3 || g.EdgeCount() != 3 {
		t.Fatalf("unexpected counts: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if n, ok := g.Node("a"); !ok || n.Span.Lo != 1 {
		t.Fatalf("expected span to be kept, got %+v", n)
	}
}

func TestDetectCycles_NoCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b", "")
	g.AddEdge("a", "c", "")
	g.AddEdge("b", "c", "")
	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Fatalf("expected no cycles, got %v", cycles)
	}
}

func TestDetectCycles_SelfLoopAndStableOrder(t *testing.T) {
	build := func(order []string) *Graph {
		g := NewGraph()
		for _, n := range order {
			g.AddNode(n, ast.Span{})
		}
		g.AddEdge("z", "z", "")
		g.AddEdge("x", "y", "")
		g.AddEdge("y", "x", "")
		return g
	}
	want := [][]string{{"x", "y"}, {"z"}}
	for _, order := range [][]string{{"x", "y", "z"}, {"z", "y", "x"}} {
		got := build(order).DetectCycles()
		if len(got) != len(want) {
			t.Fatalf("order %v: expected %v, got %v", order, want, got)
		}
		for i := range want {
			if strings.Join(got[i], ",") != strings.Join(want[i], ",") {
				t.Fatalf("order %v: expected %v, got %v", order, want, got)
			}
		}
	}
}

func TestFindChain(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b", "")
	g.AddEdge("b", "d", "")
	g.AddEdge("a", "c", "")
	g.AddEdge("c", "d", "")

	chain, ok := g.FindChain("a", "d")
	if !ok || strings.Join(chain, ",") != "a,b,d" {
		t.Fatalf("unexpected chain %v (ok=%v)", chain, ok)
	}
	if _, ok := g.FindChain("d", "a"); ok {
		t.Fatal("expected no chain against edge direction")
	}
	if got := g.Dependents("d"); strings.Join(got, ",") != "b,c" {
		t.Fatalf("unexpected dependents %v", got)
	}
}
