package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"nameres/internal/core/config"
	"nameres/internal/core/errors"
	"nameres/internal/core/ports"
	"nameres/internal/data/history"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/resolve"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryHistory struct {
	mu   sync.Mutex
	runs []history.Run
}

func (m *memoryHistory) SaveRun(_ context.Context, run history.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryHistory) ListRuns(_ context.Context, crate string, limit int) ([]history.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []history.Run
	for i := len(m.runs) - 1; i >= 0; i-- {
		if crate == "" || m.runs[i].Crate == crate {
			out = append(out, m.runs[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

// testProject lays out an app crate depending on util, plus a std crate
// providing the prelude.
func testProject(t *testing.T) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"app/src/lib.rs": `mod a;
use a::Thing;
use util::helper;

fn run() {
    let v = Vec;
    let t = Thing;
    helper();
    missing();
}
`,
		"app/src/a.rs": "pub struct Thing;\n",
		"util/lib.rs":  "pub fn helper() {}\n",
		"std/lib.rs":   "pub mod prelude { pub mod v1 { pub struct Vec; } }\n",
	})

	cfg := config.DefaultConfig()
	cfg.Paths.ProjectRoot = root
	cfg.Resolve.Edition = "2018"
	cfg.Crates = []config.Crate{
		{Name: "app", Root: "app/src/lib.rs", Externs: []string{"util"}},
		{Name: "util", Root: "util/lib.rs", Library: true},
		{Name: "std", Root: "std/lib.rs", Library: true},
	}
	return root, cfg
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("run-%d", n)
	}
}

func newTestApp(t *testing.T, cfg *config.Config, base string, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithRunIDs(sequentialIDs())}, opts...)
	a, err := New(cfg, base, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestResolve_ConfiguredCrate(t *testing.T) {
	root, cfg := testProject(t)
	store := &memoryHistory{}
	a := newTestApp(t, cfg, root, WithHistory(store))

	reports, err := a.Resolve(context.Background(), ports.ResolveRequest{DumpDefs: true})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	rep := reports[0]
	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, "app", rep.Crate)
	assert.Equal(t, "2018", rep.Edition)
	assert.Contains(t, rep.Files, "app/src/lib.rs")
	assert.Contains(t, rep.Files, "app/src/a.rs")
	assert.Contains(t, rep.Files, "util/lib.rs")
	assert.NotEmpty(t, rep.Defs)

	require.Equal(t, 1, rep.ErrorCount(), "diagnostics: %v", rep.Diagnostics)
	d := rep.Diagnostics[0]
	assert.Equal(t, "E0425", d.Code)
	assert.Equal(t, "app/src/lib.rs", d.Span.File)
	assert.Equal(t, 9, d.Span.Line)

	require.NoError(t, a.Close(context.Background()))
	require.Len(t, store.runs, 1)
	assert.Equal(t, "run-1", store.runs[0].ID)
	assert.Equal(t, map[string]int{"E0425": 1}, store.runs[0].Codes)
	assert.Equal(t, 1, store.runs[0].Errors)
}

func TestResolve_FilterSuppresses(t *testing.T) {
	root, cfg := testProject(t)
	cfg.Diagnostics.Suppress = []string{"E0425"}
	a := newTestApp(t, cfg, root)

	reports, err := a.Resolve(context.Background(), ports.ResolveRequest{Crates: []string{"app"}})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Zero(t, reports[0].ErrorCount())
	assert.Equal(t, 1, reports[0].Suppressed)
}

func TestResolve_NoPreludeReportsMissingNames(t *testing.T) {
	root, cfg := testProject(t)
	cfg.Resolve.NoPrelude = true
	a := newTestApp(t, cfg, root)

	reports, err := a.Resolve(context.Background(), ports.ResolveRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, reports[0].ErrorCount(), "Vec and missing are both unresolved")
	assert.NotContains(t, reports[0].Files, "std/lib.rs")
}

func TestResolve_AdHocRoot(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"tool/main.rs": "fn main() { let x = 1; let y = x; }\n",
	})
	cfg := config.DefaultConfig()
	cfg.Paths.ProjectRoot = root
	cfg.Resolve.NoPrelude = true
	a := newTestApp(t, cfg, root)

	reports, err := a.Resolve(context.Background(), ports.ResolveRequest{
		Roots: []string{filepath.Join(root, "tool", "main.rs")},
	})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "tool", reports[0].Crate)
	assert.Empty(t, reports[0].Diagnostics)
}

func TestResolve_Errors(t *testing.T) {
	root, cfg := testProject(t)
	a := newTestApp(t, cfg, root)

	_, err := a.Resolve(context.Background(), ports.ResolveRequest{Crates: []string{"nope"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = a.Resolve(context.Background(), ports.ResolveRequest{Roots: []string{filepath.Join(root, "absent.rs")}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	empty := config.DefaultConfig()
	empty.Paths.ProjectRoot = root
	b := newTestApp(t, empty, root)
	_, err = b.Resolve(context.Background(), ports.ResolveRequest{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestResolve_Canceled(t *testing.T) {
	root, cfg := testProject(t)
	a := newTestApp(t, cfg, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Resolve(ctx, ports.ResolveRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCanceled))
}

func TestResolve_UnknownExtern(t *testing.T) {
	root, cfg := testProject(t)
	cfg.Crates[0].Externs = []string{"ghost"}
	a := newTestApp(t, cfg, root)

	_, err := a.Resolve(context.Background(), ports.ResolveRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		root, cfg := testProject(t)
		a := newTestApp(t, cfg, root)
		_, err := a.History(context.Background(), "", 10)
		assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
	})

	t.Run("sqlite", func(t *testing.T) {
		root, cfg := testProject(t)
		cfg.History.Enabled = true
		now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		a := newTestApp(t, cfg, root, WithClock(func() time.Time { return now }))

		for i := 0; i < 2; i++ {
			_, err := a.Resolve(context.Background(), ports.ResolveRequest{})
			require.NoError(t, err)
		}
		runs, err := a.History(context.Background(), "app", 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, 1, runs[0].Errors)
		assert.FileExists(t, filepath.Join(root, ".nameres", "history.db"))
	})
}

func TestReload(t *testing.T) {
	root, cfg := testProject(t)
	a := newTestApp(t, cfg, root)

	next := *cfg
	next.Diagnostics.Suppress = []string{"E0425"}
	require.NoError(t, a.Reload(&next))

	reports, err := a.Resolve(context.Background(), ports.ResolveRequest{})
	require.NoError(t, err)
	assert.Zero(t, reports[0].ErrorCount())

	bad := *cfg
	bad.Diagnostics.ExcludeFiles = []string{"[oops"}
	require.Error(t, a.Reload(&bad))
	assert.Same(t, &next, a.Config())
}

func TestResolveOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Lints.UnusedImports = "deny"

	opts, err := ResolveOptions(cfg, config.Crate{Name: "app", Edition: "2018"}, nil)
	require.NoError(t, err)
	assert.Equal(t, resolve.Edition2018, opts.Edition)
	assert.Equal(t, "std", opts.PreludeCrate)
	assert.Equal(t, diag.Deny, opts.Lints[diag.LintUnusedImports])

	cfg.Resolve.NoPrelude = true
	opts, err = ResolveOptions(cfg, config.Crate{Name: "app"}, nil)
	require.NoError(t, err)
	assert.Equal(t, resolve.Edition2015, opts.Edition)
	assert.Empty(t, opts.PreludeCrate)

	_, err = ResolveOptions(cfg, config.Crate{Name: "app", Edition: "2021"}, nil)
	assert.Error(t, err)

	cfg.Lints.UnusedImports = "loud"
	_, err = ResolveOptions(cfg, config.Crate{Name: "app"}, nil)
	assert.Error(t, err)
}

func TestCrateFromPath(t *testing.T) {
	cases := []struct {
		path, name string
	}{
		{filepath.FromSlash("/w/my-crate/src/lib.rs"), "my_crate"},
		{filepath.FromSlash("/w/tool/main.rs"), "tool"},
		{filepath.FromSlash("/w/scratch.rs"), "scratch"},
		{filepath.FromSlash("/w/1st.rs"), "_st"},
	}
	for _, tc := range cases {
		c := CrateFromPath(tc.path)
		assert.Equal(t, tc.name, c.Name, tc.path)
		assert.Equal(t, tc.path, c.Root)
	}
}

func TestWatch_InitialRunAndChange(t *testing.T) {
	root, cfg := testProject(t)
	cfg.Watch.Debounce = 20 * time.Millisecond
	a := newTestApp(t, cfg, root)

	updates := make(chan ports.WatchUpdate, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, ports.ResolveRequest{}, "", func(u ports.WatchUpdate) { updates <- u })
	}()

	first := <-updates
	require.NoError(t, first.Err)
	assert.Nil(t, first.Trigger)
	assert.Equal(t, 1, first.Reports[0].ErrorCount())

	writeFiles(t, root, map[string]string{"app/src/a.rs": "pub struct Thing;\npub fn missing() {}\n"})
	writeFiles(t, root, map[string]string{"app/src/lib.rs": `mod a;
use a::{Thing, missing};
use util::helper;

fn run() {
    let v = Vec;
    let t = Thing;
    helper();
    missing();
}
`})

	deadline := time.After(5 * time.Second)
	for {
		select {
		case u := <-updates:
			require.NoError(t, u.Err)
			if u.Reports[0].ErrorCount() == 0 {
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-deadline:
			cancel()
			t.Fatal("no clean run after edits")
		}
	}
}
