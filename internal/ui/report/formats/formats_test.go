package formats

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"nameres/internal/core/ports"
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/resolve"

	"gopkg.in/yaml.v3"
)

const libSource = "mod a;\nfn run() {\n    missing();\n}\n"

func sampleReports() []ports.RunReport {
	sp := ast.Span{File: "src/lib.rs", Lo: 22, Hi: 29, Line: 3, Col: 5}
	unresolved := diag.Errorf(diag.KindUnresolved, "E0425", sp, "cannot find function `missing` in this scope").
		Suggest("a function with a similar name exists", sp, "mixing", diag.MaybeIncorrect).
		Note("names are resolved at the call site")
	unused := diag.Lintf(diag.LintUnusedImports, ast.Span{File: "src/lib.rs", Lo: 0, Hi: 5, Line: 1, Col: 1}, "unused import: `a`")
	return []ports.RunReport{{
		RunID:       "run-1",
		Crate:       "app",
		Root:        "src/lib.rs",
		Edition:     "2018",
		Files:       []string{"src/lib.rs"},
		StartedAt:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Duration:    1500 * time.Microsecond,
		Stats:       resolve.Stats{Passes: 2, Directives: 1},
		Diagnostics: []diag.Diagnostic{*unused, *unresolved},
	}}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		r, err := New(name, Options{})
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if r.Name() != name {
			t.Errorf("reporter for %q reports name %q", name, r.Name())
		}
	}
	if _, err := New(" JSON ", Options{}); err != nil {
		t.Errorf("expected case-insensitive lookup, got %v", err)
	}
	if _, err := New("html", Options{}); err == nil {
		t.Error("expected unknown format error")
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	r := Text{ReadFile: func(path string) ([]byte, error) {
		if path != "src/lib.rs" {
			return nil, errors.New("missing")
		}
		return []byte(libSource), nil
	}}
	if err := r.Render(&buf, sampleReports()); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"error[E0425]: cannot find function `missing` in this scope",
		"--> src/lib.rs:3:5",
		"3 |     missing();",
		"  |     ^^^^^^^",
		"= note: names are resolved at the call site",
		"= help: a function with a similar name exists: `mixing`",
		"warning: unused import: `a`",
		"= lint unused_imports",
		"app: 1 error, 1 warning",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("expected no ANSI escapes without color")
	}
}

func TestTextSummaryOK(t *testing.T) {
	var buf bytes.Buffer
	rep := ports.RunReport{Crate: "lib", Suppressed: 2}
	if err := (Text{}).Render(&buf, []ports.RunReport{rep}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); !strings.HasPrefix(got, "lib: ok") || !strings.Contains(got, "2 suppressed") {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSON{}).Render(&buf, sampleReports()); err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["crate"] != "app" {
		t.Fatalf("unexpected document: %v", decoded)
	}
	diags := decoded[0]["diagnostics"].([]any)
	if sev := diags[1].(map[string]any)["severity"]; sev != "error" {
		t.Errorf("severity = %v, want error", sev)
	}

	buf.Reset()
	if err := (JSON{}).Render(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAML{}).Render(&buf, sampleReports()); err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if decoded[0]["run_id"] != "run-1" || decoded[0]["edition"] != "2018" {
		t.Fatalf("unexpected document: %v", decoded[0])
	}
	if !strings.Contains(buf.String(), "code: E0425") {
		t.Errorf("expected code field in YAML:\n%s", buf.String())
	}
}

func TestSARIF(t *testing.T) {
	var buf bytes.Buffer
	if err := (SARIF{ProjectRoot: "/proj"}).Render(&buf, sampleReports()); err != nil {
		t.Fatal(err)
	}
	var report sarifReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if report.Schema != sarifSchema || report.Version != sarifVersion {
		t.Errorf("unexpected header %q %q", report.Schema, report.Version)
	}
	if len(report.Runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(report.Runs))
	}
	run := report.Runs[0]
	if len(run.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(run.Results))
	}
	if len(run.Tool.Driver.Rules) != 2 || run.Tool.Driver.Rules[0].ID != "E0425" {
		t.Errorf("unexpected rules %+v", run.Tool.Driver.Rules)
	}
	res := run.Results[1]
	if res.RuleID != "E0425" || res.Level != "error" {
		t.Errorf("unexpected result %+v", res)
	}
	loc := res.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "src/lib.rs" || loc.Region.StartLine != 3 || loc.Region.StartColumn != 5 {
		t.Errorf("unexpected location %+v", loc)
	}
	if len(res.Fixes) != 1 || res.Fixes[0].ArtifactChanges[0].Replacements[0].InsertedContent.Text != "mixing" {
		t.Errorf("expected fix from suggestion, got %+v", res.Fixes)
	}
	if run.Results[0].RuleID != "unused_imports" || run.Results[0].Level != "warning" {
		t.Errorf("unexpected lint result %+v", run.Results[0])
	}
}

func TestSARIF_RelativeURI(t *testing.T) {
	cases := []struct{ root, path, want string }{
		{"/proj", "/proj/src/lib.rs", "src/lib.rs"},
		{"", "src/lib.rs", "src/lib.rs"},
		{"/proj", "src/a.rs", "src/a.rs"},
	}
	for _, tc := range cases {
		if got := relativeURI(tc.root, tc.path); got != tc.want {
			t.Errorf("relativeURI(%q, %q) = %q, want %q", tc.root, tc.path, got, tc.want)
		}
	}
}

func TestTSV(t *testing.T) {
	var buf bytes.Buffer
	if err := (TSV{}).Render(&buf, sampleReports()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(lines))
	}
	if lines[2] != "app\terror\tE0425\tsrc/lib.rs\t3\t5\tcannot find function `missing` in this scope" {
		t.Errorf("unexpected row %q", lines[2])
	}
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	reps := sampleReports()
	if err := (Markdown{}).Render(&buf, reps); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "| app | 2018 | 1 | 1 | 2 | 0 | 1.5ms |") {
		t.Errorf("missing summary row:\n%s", out)
	}
	if !strings.Contains(out, "`src/lib.rs:3:5`") || strings.Contains(out, "<details>") {
		t.Errorf("unexpected detail table:\n%s", out)
	}

	for i := 0; i < collapseAfter; i++ {
		reps[0].Diagnostics = append(reps[0].Diagnostics, reps[0].Diagnostics[0])
	}
	buf.Reset()
	if err := (Markdown{}).Render(&buf, reps); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<details>") {
		t.Error("expected long tables to collapse")
	}
}
