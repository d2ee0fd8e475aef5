package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"nameres/internal/core/ports"
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/parser"
	"nameres/internal/engine/resolve"
	"nameres/internal/ui/report/formats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAndResolve(t *testing.T, edition resolve.Edition, src string) *resolve.Output {
	t.Helper()
	res := parser.New(parser.Options{}).ParseSource("app", "lib.rs", []byte(src))
	require.Empty(t, res.Diagnostics, "syntax diagnostics")

	opts := resolve.DefaultOptions()
	opts.Edition = edition
	opts.PreludeCrate = ""
	out, err := resolve.Resolve(context.Background(), &ast.Program{Local: res.Crate}, opts)
	require.NoError(t, err)
	return out
}

func codes(out *resolve.Output) []string {
	var got []string
	for _, d := range out.Diagnostics {
		if d.IsError() {
			got = append(got, d.Code)
		}
	}
	return got
}

func TestPipeline_Scenarios(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		codes []string
	}{
		{
			name: "GlobImport",
			src: `mod m { pub fn f() {} }
use m::*;
fn main() { f(); }
`,
		},
		{
			name: "AmbiguousGlobs",
			src: `mod a { pub fn g() {} }
mod b { pub fn g() {} }
use a::*;
use b::*;
fn main() { g(); }
`,
			codes: []string{"E0659"},
		},
		{
			name: "DuplicateImport",
			src: `mod m { pub struct S; }
use m::S;
use m::S;
`,
			codes: []string{"E0252"},
		},
		{
			name: "UnresolvedValue",
			src:  "fn main() { missing(); }\n",
			codes: []string{"E0425"},
		},
		{
			name: "MacroDefinedItem",
			src: `macro_rules! make { ($name:ident) => { fn $name() {} } }
make!(made);
fn main() { made(); }
`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := parseAndResolve(t, resolve.Edition2015, tc.src)
			assert.Equal(t, tc.codes, codes(out), "diagnostics: %v", out.Diagnostics)
		})
	}
}

func TestPipeline_DeterministicReports(t *testing.T) {
	src := `mod a { pub fn g() {} }
mod b { pub fn g() {} }
use a::*;
use b::*;
use a::g as h;
fn main() { g(); missing(); }
`
	render := func() []byte {
		out := parseAndResolve(t, resolve.Edition2015, src)
		reporter, err := formats.New("sarif", formats.Options{})
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, reporter.Render(&buf, []ports.RunReport{{Crate: "app", Diagnostics: out.Diagnostics}}))
		return buf.Bytes()
	}

	first := render()
	assert.Equal(t, first, render())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(first, &doc))
	assert.Equal(t, "2.1.0", doc["version"])
}

func TestPipeline_UnusedImportLint(t *testing.T) {
	out := parseAndResolve(t, resolve.Edition2015, `mod m { pub fn f() {} pub fn g() {} }
use m::{f, g};
fn main() { f(); }
`)
	var lints []diag.Diagnostic
	for _, d := range out.Diagnostics {
		if d.Lint == diag.LintUnusedImports {
			lints = append(lints, d)
		}
	}
	require.Len(t, lints, 1, "diagnostics: %v", out.Diagnostics)
	assert.Equal(t, diag.SeverityWarning, lints[0].Severity)
	assert.Contains(t, lints[0].Message, "g`")
}
