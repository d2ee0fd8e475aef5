package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Sink receives diagnostics as they are discovered.
type Sink interface {
	Emit(d *Diagnostic)
}

type Level uint8

const (
	Allow Level = iota
	Warn
	Deny
)

func (l Level) String() string {
	switch l {
	case Allow:
		return "allow"
	case Warn:
		return "warn"
	case Deny:
		return "deny"
	}
	return "unknown"
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow":
		return Allow, nil
	case "warn", "":
		return Warn, nil
	case "deny":
		return Deny, nil
	}
	return Warn, fmt.Errorf("unknown lint level %q", s)
}

// Lint names.
const (
	LintUnusedImports         = "unused_imports"
	LintUnusedQualifications  = "unused_qualifications"
	LintDuplicateMacroExports = "duplicate_macro_exports"
	LintLegacyCtorVisibility  = "legacy_constructor_visibility"
)

// DefaultLevels is the level table used when no configuration is given.
func DefaultLevels() map[string]Level {
	return map[string]Level{
		LintUnusedImports:         Warn,
		LintUnusedQualifications:  Allow,
		LintDuplicateMacroExports: Warn,
		LintLegacyCtorVisibility:  Deny,
	}
}

// Collector buffers diagnostics until Finalize. Lints are filtered through
// Levels as they arrive; unknown lints default to Warn.
type Collector struct {
	Levels map[string]Level
	diags  []Diagnostic
}

func NewCollector(levels map[string]Level) *Collector {
	if levels == nil {
		levels = DefaultLevels()
	}
	return &Collector{Levels: levels}
}

func (c *Collector) Emit(d *Diagnostic) {
	if d == nil {
		return
	}
	if d.Kind == KindLint {
		level, ok := c.Levels[d.Lint]
		if !ok {
			level = Warn
		}
		switch level {
		case Allow:
			return
		case Deny:
			d.Severity = SeverityError
		}
	}
	c.diags = append(c.diags, *d)
}

func (c *Collector) Len() int { return len(c.diags) }

func (c *Collector) ErrorCount() int {
	n := 0
	for _, d := range c.diags {
		if d.IsError() {
			n++
		}
	}
	return n
}

// Finalize returns the buffered diagnostics sorted by span and with exact
// duplicates removed. The collector keeps its contents.
func (c *Collector) Finalize() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })

	seen := make(map[string]bool, len(out))
	dedup := out[:0]
	for _, d := range out {
		k := d.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		dedup = append(dedup, d)
	}
	return dedup
}

// Discard drops everything. Used for diagnostics inside external crates.
type Discard struct{}

func (Discard) Emit(*Diagnostic) {}
