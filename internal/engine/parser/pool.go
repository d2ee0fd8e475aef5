package parser

import (
	"sync"
	"sync/atomic"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

var (
	rustOnce sync.Once
	rustLang *sitter.Language
)

// rustLanguage returns the shared Rust grammar.
func rustLanguage() *sitter.Language {
	rustOnce.Do(func() {
		rustLang = sitter.NewLanguage(tree_sitter_rust.Language())
	})
	return rustLang
}

// Pool recycles tree-sitter parsers configured for the Rust grammar. One
// crate parse borrows a parser per file; parallel crate parses share the pool.
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//
// Safe for concurrent use.
type Pool struct {
	lang   *sitter.Language
	pool   sync.Pool
	leased atomic.Int64
}

func NewPool() *Pool {
	p := &Pool{lang: rustLanguage()}
	p.pool.New = func() any {
		sp := sitter.NewParser()
		_ = sp.SetLanguage(p.lang)
		return sp
	}
	return p
}

// Get returns a parser ready for Rust source.
func (p *Pool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	_ = sp.SetLanguage(p.lang)
	p.leased.Add(1)
	return sp
}

// Put resets sp and returns it. sp must not be used afterwards.
func (p *Pool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.leased.Add(-1)
	sp.Reset()
	p.pool.Put(sp)
}

// Leased is the number of parsers currently out of the pool.
func (p *Pool) Leased() int { return int(p.leased.Load()) }
