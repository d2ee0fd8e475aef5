// Package resolve maps every name in a program to the declaration it
// denotes. It builds the module graph, drives import resolution and macro
// expansion to a fixed point, then walks all bodies resolving paths, locals,
// labels and trait candidates.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/hygiene"
	"sort"
	"strings"
)

type Edition uint8

const (
	Edition2015 Edition = iota
	Edition2018
)

func (e Edition) String() string {
	if e == Edition2018 {
		return "2018"
	}
	return "2015"
}

func ParseEdition(s string) (Edition, error) {
	switch strings.TrimSpace(s) {
	case "", "2015":
		return Edition2015, nil
	case "2018":
		return Edition2018, nil
	}
	return Edition2015, fmt.Errorf("unsupported edition %q", s)
}

type Options struct {
	Edition Edition
	// PreludeCrate is injected as `extern crate <name>;` with a glob import
	// of PreludePath unless the crate opts out. Empty disables injection.
	PreludeCrate string
	PreludePath  []string
	// ExternPrelude lists extern crate names usable without `extern crate`.
	ExternPrelude []string
	Lints         map[string]diag.Level
	// MaxPasses caps the import fixed point. The loop never runs more than
	// one pass per directive or invocation plus one; zero keeps only that
	// bound.
	MaxPasses int
	Logger    *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Edition:      Edition2015,
		PreludeCrate: "std",
		PreludePath:  []string{"prelude", "v1"},
		Lints:        diag.DefaultLevels(),
	}
}

type Stats struct {
	Passes        int `json:"passes" yaml:"passes"`
	Directives    int `json:"directives" yaml:"directives"`
	Expansions    int `json:"expansions" yaml:"expansions"`
	Modules       int `json:"modules" yaml:"modules"`
	Bindings      int `json:"bindings" yaml:"bindings"`
	Indeterminate int `json:"indeterminate" yaml:"indeterminate"`
}

// Output is the complete result of one run. All maps are keyed by node ids
// of the local crate.
type Output struct {
	Defs            map[ast.NodeID]PathResolution
	Imports         map[ast.NodeID]PerNS[Def]
	Captures        map[ast.NodeID][]Capture
	TraitCandidates map[ast.NodeID][]TraitCandidate
	GlobUses        map[ast.NodeID][]string
	Diagnostics     []diag.Diagnostic
	Stats           Stats
}

// ErrorCount counts error-severity diagnostics.
func (o *Output) ErrorCount() int {
	n := 0
	for _, d := range o.Diagnostics {
		if d.IsError() {
			n++
		}
	}
	return n
}

type ambiguityKey struct {
	name   string
	b1, b2 BindingID
}

type ambiguityError struct {
	span   ast.Span
	name   string
	b1, b2 BindingID
}

type privacyKey struct {
	name string
	span ast.Span
}

type privacyError struct {
	span    ast.Span
	name    string
	binding BindingID
}

// structCtor is the constructor of a tuple or unit struct with the
// visibility of its least visible field.
type structCtor struct {
	def Def
	vis Visibility
}

type usedKey struct {
	node ast.NodeID
	ns   Namespace
}

// Resolver is the state of one run. It is not safe for concurrent use;
// independent runs use independent resolvers.
type Resolver struct {
	opts  Options
	log   *slog.Logger
	hyg   *hygiene.Table
	diags *diag.Collector

	crates []*ast.Crate
	nextID []ast.NodeID

	modules    []*Module
	bindings   []*Binding
	directives []*Directive

	crateRoots   []ModuleID
	graphRoot    ModuleID
	externCrates map[string]CrateNum
	moduleMap    map[DefID]ModuleID
	blockMap     map[DefID]ModuleID
	built        map[DefID]bool

	prelude         ModuleID
	externPrelude   map[string]bool
	externBindings  map[string]BindingID
	macroUsePrelude map[string]BindingID

	macroDefs   map[hygiene.Mark]DefID
	macros      map[DefID]*macroDef
	invocations map[DefID]*invocation
	invocOrder  []DefID
	// legacyScopes lists the macro_rules definitions visible in each
	// module, in source order.
	legacyScopes map[ModuleID]map[resKey][]legacyEntry
	posPrefix    textPos
	posNext      uint32
	// invocPos is the position of the invocation being resolved; nil
	// outside macro resolution.
	invocPos textPos

	indeterminate []DirectiveID
	determined    []DirectiveID
	// importsDone is set once the fixed point has run; populating an extern
	// module afterwards settles its directives on the spot.
	importsDone bool
	settling    bool

	currentModule    ModuleID
	currentExpansion hygiene.Mark
	// restrictedShadowing is set while resolving macro paths, which do not
	// wait for other invocations of the same module.
	restrictedShadowing bool

	ribs      PerNS[[]*rib]
	labelRibs []*rib
	late      lateState

	defMap       map[ast.NodeID]PathResolution
	importMap    map[ast.NodeID]PerNS[Def]
	freevars     map[ast.NodeID][]Capture
	freevarsSeen map[ast.NodeID]map[ast.NodeID]int
	traitMap     map[ast.NodeID][]TraitCandidate
	globMap      map[ast.NodeID]map[string]bool

	structFields map[DefID][]string
	structCtors  map[DefID]structCtor
	hasSelf      map[DefID]bool

	ambiguityErrors []ambiguityError
	ambiguitySeen   map[ambiguityKey]bool
	privacyErrors   []privacyError
	privacySeen     map[privacyKey]bool
	nameSeen        map[string]ast.Span
	usedImports     map[usedKey]bool
	unusedCands     []DirectiveID

	stats Stats
}

func newResolver(prog *ast.Program, opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Lints == nil {
		opts.Lints = diag.DefaultLevels()
	}
	if opts.PreludeCrate != "" && len(opts.PreludePath) == 0 {
		opts.PreludePath = []string{"prelude", "v1"}
	}
	r := &Resolver{
		opts:            opts,
		log:             opts.Logger,
		hyg:             hygiene.NewTable(),
		diags:           diag.NewCollector(opts.Lints),
		modules:         []*Module{nil},
		bindings:        []*Binding{nil},
		directives:      []*Directive{nil},
		externCrates:    make(map[string]CrateNum),
		moduleMap:       make(map[DefID]ModuleID),
		blockMap:        make(map[DefID]ModuleID),
		built:           make(map[DefID]bool),
		externPrelude:   make(map[string]bool),
		externBindings:  make(map[string]BindingID),
		macroUsePrelude: make(map[string]BindingID),
		macroDefs:       make(map[hygiene.Mark]DefID),
		macros:          make(map[DefID]*macroDef),
		invocations:     make(map[DefID]*invocation),
		legacyScopes:    make(map[ModuleID]map[resKey][]legacyEntry),
		defMap:          make(map[ast.NodeID]PathResolution),
		importMap:       make(map[ast.NodeID]PerNS[Def]),
		freevars:        make(map[ast.NodeID][]Capture),
		freevarsSeen:    make(map[ast.NodeID]map[ast.NodeID]int),
		traitMap:        make(map[ast.NodeID][]TraitCandidate),
		globMap:         make(map[ast.NodeID]map[string]bool),
		structFields:    make(map[DefID][]string),
		structCtors:     make(map[DefID]structCtor),
		hasSelf:         make(map[DefID]bool),
		ambiguitySeen:   make(map[ambiguityKey]bool),
		privacySeen:     make(map[privacyKey]bool),
		nameSeen:        make(map[string]ast.Span),
		usedImports:     make(map[usedKey]bool),
	}
	r.crates = append(r.crates, prog.Local)
	r.nextID = append(r.nextID, prog.Local.MaxID)
	for _, c := range prog.Externs {
		if c == nil {
			continue
		}
		r.externCrates[c.Name] = CrateNum(len(r.crates))
		r.crates = append(r.crates, c)
		r.nextID = append(r.nextID, c.MaxID)
	}
	for _, name := range opts.ExternPrelude {
		r.externPrelude[name] = true
	}
	if opts.Edition == Edition2018 {
		for name := range r.externCrates {
			r.externPrelude[name] = true
		}
	}
	return r
}

// Resolve runs name resolution over prog. Macro invocations in prog have
// their Expanded fields filled in. The returned error is non-nil only when
// ctx is done or the program is empty; resolution problems are diagnostics.
func Resolve(ctx context.Context, prog *ast.Program, opts Options) (*Output, error) {
	if prog == nil || prog.Local == nil {
		return nil, fmt.Errorf("resolve: no local crate")
	}
	resetExpansions(prog)
	r := newResolver(prog, opts)

	r.buildGraph()
	if err := r.resolveImportsAndMacros(ctx); err != nil {
		return nil, err
	}
	r.finalizeImports()
	if err := r.resolveCrate(ctx); err != nil {
		return nil, err
	}
	r.checkUnused()
	r.reportErrors()

	out := r.output()
	r.log.Debug("resolution finished",
		"crate", prog.Local.Name,
		"passes", out.Stats.Passes,
		"directives", out.Stats.Directives,
		"expansions", out.Stats.Expansions,
		"diagnostics", len(out.Diagnostics))
	return out, nil
}

func (r *Resolver) output() *Output {
	glob := make(map[ast.NodeID][]string, len(r.globMap))
	for id, names := range r.globMap {
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
		}
		sort.Strings(list)
		glob[id] = list
	}
	return &Output{
		Defs:            r.defMap,
		Imports:         r.importMap,
		Captures:        r.freevars,
		TraitCandidates: r.traitMap,
		GlobUses:        glob,
		Diagnostics:     r.diags.Finalize(),
		Stats:           r.stats,
	}
}

// emit reports d unless it belongs to an extern crate.
func (r *Resolver) emit(crate CrateNum, d *diag.Diagnostic) {
	if crate != LocalCrate {
		return
	}
	r.diags.Emit(d)
}

func (r *Resolver) allocID(crate CrateNum) ast.NodeID {
	r.nextID[crate]++
	return r.nextID[crate]
}

func (r *Resolver) recordDef(id ast.NodeID, res PathResolution) {
	if _, ok := r.defMap[id]; ok {
		return
	}
	r.defMap[id] = res
}

// modern returns ident with legacy marks stripped, the form used as a
// module table key.
func (r *Resolver) modern(ident ast.Ident) ast.Ident {
	ident.Ctxt = r.hyg.Modern(ident.Ctxt)
	return ident
}

func resetExpansions(prog *ast.Program) {
	reset := func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.Item:
			if k, ok := v.Kind.(*ast.MacroCallItem); ok {
				k.Expanded = nil
			}
		case *ast.MacroStmt:
			v.Expanded = nil
		case *ast.MacroCallExpr:
			v.Expanded = nil
		}
		return true
	}
	crates := append([]*ast.Crate{prog.Local}, prog.Externs...)
	for _, c := range crates {
		if c == nil {
			continue
		}
		for _, it := range c.Items {
			ast.Inspect(it, reset)
		}
	}
}
