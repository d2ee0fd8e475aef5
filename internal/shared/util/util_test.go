package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./src/lib.rs  ", expected: "src/lib.rs"},
		{name: "Relative", input: "src/../lib.rs", expected: "lib.rs"},
		{name: "Backslashes", input: `src\a\mod.rs`, expected: "src/a/mod.rs"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{name: "Exact", path: "target/debug", prefix: "target/debug", expected: true},
		{name: "Nested", path: "target/debug/x.rs", prefix: "target", expected: true},
		{name: "Neighbor", path: "targets/x.rs", prefix: "target", expected: false},
		{name: "Shorter", path: "target", prefix: "target/debug", expected: false},
		{name: "MixedSeparators", path: `target\debug\x.rs`, prefix: "target/debug", expected: true},
		{name: "BothEmpty", path: ".", prefix: "", expected: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasPathPrefix(tc.path, tc.prefix); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestDisplayPath(t *testing.T) {
	t.Parallel()

	base := filepath.FromSlash("/proj")
	cases := []struct {
		name, base, path, expected string
	}{
		{name: "Inside", base: base, path: filepath.FromSlash("/proj/src/lib.rs"), expected: "src/lib.rs"},
		{name: "Outside", base: base, path: filepath.FromSlash("/other/lib.rs"), expected: "/other/lib.rs"},
		{name: "NoBase", base: "", path: "src/lib.rs", expected: "src/lib.rs"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DisplayPath(tc.base, tc.path); got != filepath.ToSlash(tc.expected) && got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	keys := SortedStringKeys(map[string]int{"core": 2, "alloc": 1, "std": 3})
	expected := []string{"alloc", "core", "std"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reports", "run.json")
	if err := WriteFileWithDirs(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "{}" {
		t.Fatalf("expected %q, got %q", "{}", string(got))
	}
}
