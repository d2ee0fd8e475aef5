package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePaths_DefaultLayout(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "src", "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Crates: []Crate{{Name: "app", Root: "src/main.rs"}}}
	applyDefaults(cfg)

	got, err := ResolvePaths(cfg, sub)
	if err != nil {
		t.Fatal(err)
	}
	if got.ProjectRoot != filepath.Clean(root) {
		t.Fatalf("expected project root %q, got %q", root, got.ProjectRoot)
	}
	if got.HistoryPath != filepath.Join(root, ".nameres", "history.db") {
		t.Fatalf("unexpected history path: %q", got.HistoryPath)
	}
	if got.CrateRoots["app"] != filepath.Join(root, "src", "main.rs") {
		t.Fatalf("unexpected crate root: %q", got.CrateRoots["app"])
	}
}

func TestResolvePaths_AbsoluteOverrides(t *testing.T) {
	root := t.TempDir()
	history := filepath.Join(root, "custom", "runs.db")
	cfg := &Config{
		Paths:   Paths{ProjectRoot: root},
		History: History{Path: history},
	}
	applyDefaults(cfg)

	got, err := ResolvePaths(cfg, "/somewhere/else")
	if err != nil {
		t.Fatal(err)
	}
	if got.ProjectRoot != root {
		t.Fatalf("expected explicit project root, got %q", got.ProjectRoot)
	}
	if got.HistoryPath != history {
		t.Fatalf("expected absolute history path kept, got %q", got.HistoryPath)
	}
}

func TestResolvePaths_EmptyBase(t *testing.T) {
	if _, err := ResolvePaths(DefaultConfig(), " "); err == nil {
		t.Fatal("expected error for empty base")
	}
}

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		base, value, want string
	}{
		{"/a", "", "/a"},
		{"/a", "b/c", "/a/b/c"},
		{"/a", "/x", "/x"},
		{"/a", "../b", "/b"},
	}
	for _, tt := range tests {
		if got := ResolveRelative(filepath.FromSlash(tt.base), filepath.FromSlash(tt.value)); got != filepath.FromSlash(tt.want) {
			t.Errorf("ResolveRelative(%q, %q) = %q, want %q", tt.base, tt.value, got, tt.want)
		}
	}
}
