// Package parser lowers Rust source, parsed with tree-sitter, into the ast
// consumed by the resolver. Out-of-line modules are loaded through an fs.FS
// rooted at the crate directory. Syntax problems become diagnostics; only
// failing to read the crate root is an error.
package parser

import (
	"context"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"nameres/internal/core/errors"
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type Options struct {
	Logger *slog.Logger
}

type Parser struct {
	pool *Pool
	log  *slog.Logger
}

func New(opts Options) *Parser {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Parser{pool: NewPool(), log: log}
}

// Result is one parsed crate.
type Result struct {
	Crate       *ast.Crate
	Diagnostics []diag.Diagnostic
	// Files lists every source file read, crate root first.
	Files []string
}

// ParseCrate parses the crate whose root file is root inside fsys.
func (p *Parser) ParseCrate(ctx context.Context, fsys fs.FS, name, root string) (*Result, error) {
	root = path.Clean(root)
	src, err := fs.ReadFile(fsys, root)
	if err != nil {
		code := errors.CodeInternal
		if errors.Is(err, fs.ErrNotExist) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "read crate root"), errors.CtxPath, root)
	}
	cp := &crateParser{p: p, ctx: ctx, fsys: fsys, visiting: make(map[string]bool)}
	res := cp.parse(name, root, src)
	if err := ctx.Err(); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeCanceled, "parse crate"), errors.CtxCrate, name)
	}
	return res, nil
}

// ParseSource parses a single-file crate. Out-of-line modules are reported
// as missing files.
func (p *Parser) ParseSource(name, file string, src []byte) *Result {
	cp := &crateParser{p: p, ctx: context.Background(), visiting: make(map[string]bool)}
	return cp.parse(name, file, src)
}

// crateParser holds the state shared by every file of one crate.
type crateParser struct {
	p        *Parser
	ctx      context.Context
	fsys     fs.FS
	nextID   ast.NodeID
	diags    []diag.Diagnostic
	files    []string
	visiting map[string]bool
}

func (cp *crateParser) parse(name, root string, src []byte) *Result {
	crate := &ast.Crate{Name: name}
	f := cp.newFile(root, src)
	if f != nil {
		crate.Items, crate.Attrs = f.lowerDeclList(f.root, path.Dir(root))
		crate.Span = f.span(f.root)
		f.close()
	}
	crate.MaxID = cp.nextID
	sort.SliceStable(cp.diags, func(i, j int) bool { return cp.diags[i].Less(cp.diags[j]) })
	return &Result{Crate: crate, Diagnostics: cp.diags, Files: cp.files}
}

func (cp *crateParser) id() ast.NodeID {
	cp.nextID++
	return cp.nextID
}

func (cp *crateParser) emit(d *diag.Diagnostic) {
	cp.diags = append(cp.diags, *d)
}

// newFile parses src and reports its syntax errors.
func (cp *crateParser) newFile(name string, src []byte) *file {
	cp.files = append(cp.files, name)
	sp := cp.p.pool.Get()
	defer cp.p.pool.Put(sp)
	tree := sp.Parse(src, nil)
	if tree == nil {
		cp.emit(diag.Errorf(diag.KindSyntax, "", ast.Span{File: name}, "could not parse `%s`", name))
		return nil
	}
	f := &file{
		cp:    cp,
		path:  name,
		src:   src,
		lines: lineStarts(src),
		tree:  tree,
		root:  tree.RootNode(),
	}
	f.reportSyntaxErrors(f.root)
	cp.p.log.Debug("parsed source file", "file", name, "bytes", len(src))
	return f
}

// loadModule finds and lowers the file of `mod name;` declared in a module
// whose children live in dir.
func (cp *crateParser) loadModule(ident ast.Ident, dir string, attrs ast.Attrs, from *file) ([]*ast.Item, ast.Attrs, bool) {
	var candidates []string
	if p, ok := attrValue(attrs, "path"); ok {
		candidates = []string{path.Join(path.Dir(from.path), p)}
	} else {
		candidates = []string{
			path.Join(dir, ident.Name+".rs"),
			path.Join(dir, ident.Name, "mod.rs"),
		}
	}

	for _, c := range candidates {
		if cp.fsys == nil {
			break
		}
		src, err := fs.ReadFile(cp.fsys, c)
		if err != nil {
			continue
		}
		if cp.visiting[c] {
			cp.emit(diag.Errorf(diag.KindSyntax, "", ident.Span, "circular modules: `%s` is already being loaded", c))
			return nil, nil, false
		}
		if cp.ctx.Err() != nil {
			return nil, nil, false
		}
		cp.visiting[c] = true
		defer delete(cp.visiting, c)

		f := cp.newFile(c, src)
		if f == nil {
			return nil, nil, false
		}
		defer f.close()
		childDir := path.Join(path.Dir(c), strings.TrimSuffix(path.Base(c), ".rs"))
		if path.Base(c) == "mod.rs" {
			childDir = path.Dir(c)
		}
		items, inner := f.lowerDeclList(f.root, childDir)
		return items, inner, true
	}

	cp.emit(diag.Errorf(diag.KindSyntax, "E0583", ident.Span, "file not found for module `%s`", ident.Name).
		Note("to create the module `%s`, create file \"%s\"", ident.Name, candidates[0]))
	return nil, nil, false
}

// file is one source buffer being lowered. Snippets created for macro
// bodies and arguments share the span mapping of the file they came from:
// text holds the bytes names are read from, base maps offsets in the parsed
// buffer back to the file.
type file struct {
	cp      *crateParser
	path    string
	src     []byte
	text    []byte
	base    int
	lines   []int
	tree    *sitter.Tree
	root    *sitter.Node
	inMacro bool
}

func (f *file) close() {
	if f.tree != nil {
		f.tree.Close()
	}
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (f *file) span(n *sitter.Node) ast.Span {
	if n == nil {
		return ast.Span{File: f.path}
	}
	lo := f.base + int(n.StartByte())
	hi := f.base + int(n.EndByte())
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		hi = lo
	}
	line := sort.SearchInts(f.lines, lo+1) - 1
	if line < 0 {
		line = 0
	}
	return ast.Span{File: f.path, Lo: lo, Hi: hi, Line: line + 1, Col: lo - f.lines[line] + 1}
}

// textOf returns the source text of n.
func (f *file) textOf(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	buf := f.text
	if buf == nil {
		buf = f.src
	}
	return string(buf[n.StartByte():n.EndByte()])
}

func (f *file) meta(n *sitter.Node) ast.Meta {
	return ast.Meta{ID: f.cp.id(), Span: f.span(n)}
}

func (f *file) ident(n *sitter.Node) ast.Ident {
	return ast.NewIdent(f.textOf(n), f.span(n))
}

func (f *file) reportSyntaxErrors(n *sitter.Node) {
	if n == nil || !n.HasError() && !n.IsMissing() {
		return
	}
	switch {
	case n.IsMissing():
		f.cp.emit(diag.Errorf(diag.KindSyntax, "", f.span(n), "expected `%s`", n.Kind()))
		return
	case n.IsError():
		f.cp.emit(diag.Errorf(diag.KindSyntax, "", f.span(n), "syntax error near `%s`", clip(f.textOf(n), 24)))
		return
	}
	for _, c := range children(n) {
		f.reportSyntaxErrors(c)
	}
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// children returns every child of n, comments excluded.
func children(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.IsExtra() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// named returns the named children of n, comments excluded.
func named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil || c.IsExtra() {
			continue
		}
		out = append(out, c)
	}
	return out
}

func childOfKind(n *sitter.Node, kinds ...string) *sitter.Node {
	for _, c := range children(n) {
		for _, k := range kinds {
			if c.Kind() == k {
				return c
			}
		}
	}
	return nil
}

func hasChild(n *sitter.Node, kind string) bool {
	return childOfKind(n, kind) != nil
}

func field(n *sitter.Node, name string) *sitter.Node {
	if n == nil {
		return nil
	}
	return n.ChildByFieldName(name)
}
