// Package formats renders finished resolution runs.
package formats

import (
	"fmt"
	"sort"
	"strings"

	"nameres/internal/core/ports"
)

type Options struct {
	ProjectRoot string
	Color       bool
	// ReadFile loads source text for snippets in text output. Nil disables
	// snippets.
	ReadFile func(path string) ([]byte, error)
}

var registry = map[string]func(Options) ports.Reporter{
	"text":     func(o Options) ports.Reporter { return Text{Color: o.Color, ReadFile: o.ReadFile} },
	"json":     func(Options) ports.Reporter { return JSON{} },
	"yaml":     func(Options) ports.Reporter { return YAML{} },
	"sarif":    func(o Options) ports.Reporter { return SARIF{ProjectRoot: o.ProjectRoot} },
	"tsv":      func(Options) ports.Reporter { return TSV{} },
	"markdown": func(Options) ports.Reporter { return Markdown{} },
}

// New returns the reporter registered under name.
func New(name string, opts Options) (ports.Reporter, error) {
	build, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return build(opts), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
