package diag

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Filter drops diagnostics by code or by the file of their primary span.
type Filter struct {
	codes map[string]bool
	files []glob.Glob
}

func NewFilter(suppressCodes, excludeFiles []string) (*Filter, error) {
	f := &Filter{codes: make(map[string]bool, len(suppressCodes))}
	for _, c := range suppressCodes {
		c = strings.TrimSpace(c)
		if c != "" {
			f.codes[c] = true
		}
	}
	for _, pattern := range excludeFiles {
		g, err := glob.Compile(filepath.ToSlash(pattern), '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", pattern, err)
		}
		f.files = append(f.files, g)
	}
	return f, nil
}

func (f *Filter) Allow(d Diagnostic) bool {
	if f == nil {
		return true
	}
	if f.codes[d.Code] || (d.Lint != "" && f.codes[d.Lint]) {
		return false
	}
	file := filepath.ToSlash(d.Span.File)
	for _, g := range f.files {
		if g.Match(file) {
			return false
		}
	}
	return true
}

func (f *Filter) Apply(diags []Diagnostic) []Diagnostic {
	if f == nil || (len(f.codes) == 0 && len(f.files) == 0) {
		return diags
	}
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if f.Allow(d) {
			out = append(out, d)
		}
	}
	return out
}
