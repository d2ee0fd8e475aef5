package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nameres/internal/core/config"
	"nameres/internal/core/ports"
	"nameres/internal/data/history"
)

const projectConfig = `version = 1

[paths]
project_root = "."

[resolve]
edition = "2018"

[diagnostics]
format = "text"
color = false

[[crates]]
name = "app"
root = "app/src/lib.rs"
externs = ["util"]

[[crates]]
name = "util"
root = "util/lib.rs"
library = true

[[crates]]
name = "std"
root = "std/lib.rs"
library = true
`

func writeProject(t *testing.T, lib string) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		config.DefaultFile: projectConfig,
		"app/src/lib.rs":   lib,
		"util/lib.rs":      "pub fn helper() {}\n",
		"std/lib.rs":       "pub mod prelude { pub mod v1 { pub struct Vec; } }\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

func TestParseOptions(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseOptions([]string{"-crate", "app,util", "-crate", "cli", "-ui", "-format", "json", "src/main.rs"}, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.watch {
		t.Fatal("expected -ui to imply -watch")
	}
	if got := strings.Join(opts.crates, " "); got != "app util cli" {
		t.Fatalf("unexpected crates: %q", got)
	}
	if len(opts.args) != 1 || opts.args[0] != "src/main.rs" {
		t.Fatalf("unexpected args: %v", opts.args)
	}
}

func TestParseOptions_Rejects(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "HistoryWithWatch", args: []string{"-history-list", "3", "-watch"}, want: "cannot be combined"},
		{name: "NegativeHistory", args: []string{"-history-list", "-1"}, want: "must not be negative"},
		{name: "OutputWithUI", args: []string{"-ui", "-output", "x.json"}, want: "cannot be combined with -ui"},
		{name: "Edition", args: []string{"-edition", "2021"}, want: "unknown edition"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseOptions(tc.args, &bytes.Buffer{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestApplyOptions_OverridesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Crates = []config.Crate{{Name: "app", Root: "lib.rs", Edition: "2015"}}

	applyOptions(cliOptions{edition: "2018", format: "sarif", output: "out.sarif", history: true, noColor: true}, cfg)

	if cfg.Resolve.Edition != "2018" || cfg.Crates[0].Edition != "" {
		t.Fatalf("edition not overridden: %q / %q", cfg.Resolve.Edition, cfg.Crates[0].Edition)
	}
	if cfg.Diagnostics.Format != "sarif" || cfg.Diagnostics.Output != "out.sarif" {
		t.Fatalf("unexpected diagnostics config: %+v", cfg.Diagnostics)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history to be enabled")
	}
	if cfg.ColorEnabled() {
		t.Fatal("expected color to be disabled")
	}
}

func TestLoadConfig_ExplicitMissing(t *testing.T) {
	if _, _, err := loadConfig("missing.toml", t.TempDir()); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadConfig_DefaultWhenAbsent(t *testing.T) {
	cfg, path, err := loadConfig("", t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no config path, got %q", path)
	}
	if cfg.Resolve.Edition != "2015" {
		t.Fatalf("expected default edition, got %q", cfg.Resolve.Edition)
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-version"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "nameres ") {
		t.Fatalf("unexpected output: %q", stdout.String())
	}
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-no-such-flag"}, &stdout, &stderr); code != exitFailure {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRun_CleanCrate(t *testing.T) {
	root := writeProject(t, "use util::helper;\n\nfn run() {\n    let v = Vec;\n    helper();\n}\n")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-config", filepath.Join(root, config.DefaultFile)}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d\nstdout: %s\nstderr: %s", code, stdout.String(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "app: ok") {
		t.Fatalf("expected clean summary, got %q", stdout.String())
	}
}

func TestRun_ErrorsAndJSONOutputFile(t *testing.T) {
	root := writeProject(t, "fn run() {\n    missing();\n}\n")
	var stdout, stderr bytes.Buffer
	out := filepath.Join(root, "reports", "run.json")

	code := run(context.Background(), []string{
		"-config", filepath.Join(root, config.DefaultFile),
		"-format", "json",
		"-output", out,
	}, &stdout, &stderr)
	if code != exitDiagnostics {
		t.Fatalf("expected exit 1, got %d\nstderr: %s", code, stderr.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var reports []ports.RunReport
	if err := json.Unmarshal(data, &reports); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(reports) != 1 || reports[0].Crate != "app" {
		t.Fatalf("unexpected reports: %+v", reports)
	}
	if reports[0].ErrorCount() != 1 || reports[0].Diagnostics[0].Code != "E0425" {
		t.Fatalf("expected one E0425, got %+v", reports[0].Diagnostics)
	}
}

func TestRun_UnknownCrate(t *testing.T) {
	root := writeProject(t, "fn run() {}\n")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", filepath.Join(root, config.DefaultFile), "-crate", "nope"}, &stdout, &stderr)
	if code != exitFailure {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRun_HistoryListing(t *testing.T) {
	root := writeProject(t, "fn run() {\n    missing();\n}\n")
	cfgPath := filepath.Join(root, config.DefaultFile)

	for i := 0; i < 2; i++ {
		var stdout, stderr bytes.Buffer
		if code := run(context.Background(), []string{"-config", cfgPath, "-history"}, &stdout, &stderr); code != exitDiagnostics {
			t.Fatalf("run %d: expected exit 1, got %d\nstderr: %s", i, code, stderr.String())
		}
	}

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-config", cfgPath, "-history-list", "5"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("expected exit 0, got %d\nstderr: %s", code, stderr.String())
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two runs, got %q", stdout.String())
	}
	if !strings.HasPrefix(lines[1], "app ") || !strings.Contains(lines[1], "=") {
		t.Fatalf("expected unchanged newest run, got %q", lines[1])
	}
}

func TestFormatDelta(t *testing.T) {
	cases := []struct {
		name  string
		delta history.Delta
		want  string
	}{
		{name: "Same", want: "="},
		{name: "Worse", delta: history.Delta{ErrorDiff: 2, Introduced: []string{"E0412"}}, want: "+2 errors; new E0412"},
		{name: "Fixed", delta: history.Delta{ErrorDiff: -1, Fixed: []string{"E0425"}}, want: "-1 errors; fixed E0425"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatDelta(tc.delta); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
