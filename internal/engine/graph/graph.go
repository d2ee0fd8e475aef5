// Package graph is a small directed graph of named nodes. The resolver uses
// it as the wait-for graph of import directives that never settled.
package graph

import (
	"sort"
	"sync"

	"nameres/internal/engine/ast"
)

type Graph struct {
	mu sync.RWMutex

	nodes map[string]*Node
	// from -> to -> edge
	edges      map[string]map[string]*Edge
	incomingBy map[string]map[string]bool
}

type Node struct {
	Name string
	Span ast.Span
}

type Edge struct {
	From  string
	To    string
	Label string
}

func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[string]*Node),
		edges:      make(map[string]map[string]*Edge),
		incomingBy: make(map[string]map[string]bool),
	}
}

// AddNode registers name. Adding an existing node updates its span.
func (g *Graph) AddNode(name string, sp ast.Span) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[name]; ok {
		n.Span = sp
		return
	}
	g.nodes[name] = &Node{Name: name, Span: sp}
}

// AddEdge adds from -> to, creating missing endpoints with a dummy span.
func (g *Graph) AddEdge(from, to, label string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range []string{from, to} {
		if _, ok := g.nodes[name]; !ok {
			g.nodes[name] = &Node{Name: name}
		}
	}
	if g.edges[from] == nil {
		g.edges[from] = make(map[string]*Edge)
	}
	g.edges[from][to] = &Edge{From: from, To: to, Label: label}
	if g.incomingBy[to] == nil {
		g.incomingBy[to] = make(map[string]bool)
	}
	g.incomingBy[to][from] = true
}

func (g *Graph) Node(name string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, targets := range g.edges {
		n += len(targets)
	}
	return n
}

// Dependents lists the nodes with an edge into name, sorted.
func (g *Graph) Dependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedSet(g.incomingBy[name])
}

func (g *Graph) sortedNodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Graph) successors(name string) []string {
	next := make([]string, 0, len(g.edges[name]))
	for to := range g.edges[name] {
		next = append(next, to)
	}
	sort.Strings(next)
	return next
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
