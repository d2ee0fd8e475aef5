package app

import (
	"context"
	"path/filepath"

	"nameres/internal/core/config"
	"nameres/internal/core/errors"
	"nameres/internal/core/ports"
	"nameres/internal/core/watcher"
	"nameres/internal/shared/util"
)

// Watch re-runs req whenever a watched source changes and reports each run
// through onUpdate, starting with an initial run. When configPath is set and
// reloading is enabled, edits to it are applied before the next run. Watch
// blocks until ctx is done.
func (a *App) Watch(ctx context.Context, req ports.ResolveRequest, configPath string, onUpdate func(ports.WatchUpdate)) error {
	cfg, paths, _ := a.snapshot()

	run := func(ctx context.Context, trigger []string) {
		reports, err := a.Resolve(ctx, req)
		if ctx.Err() != nil {
			return
		}
		onUpdate(ports.WatchUpdate{Trigger: trigger, Reports: reports, Err: err})
	}

	w, err := watcher.New(watcher.Options{
		Debounce:        cfg.Watch.Debounce,
		ExcludeDirs:     cfg.Watch.ExcludeDirs,
		ExcludeFiles:    cfg.Watch.ExcludeFiles,
		Extensions:      cfg.Watch.IncludeExtensions,
		MaxRerunsPerSec: cfg.Watch.MaxRerunsPerSec,
	}, func(ctx context.Context, changed []string) {
		a.log.Debug("sources changed", "files", len(changed))
		run(ctx, changed)
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "create watcher")
	}
	defer w.Close()

	if err := w.Watch(ctx, a.watchRoots(cfg, paths, req)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "watch sources")
	}

	if configPath != "" && cfg.ReloadEnabled() {
		cw := config.NewWatcher(configPath, func(next *config.Config) {
			config.ApplyEnvOverrides(next)
			if err := a.Reload(next); err != nil {
				a.log.Warn("config rejected", "path", configPath, "error", err)
				return
			}
			w.SetDebounce(next.Watch.Debounce)
			w.SetRate(next.Watch.MaxRerunsPerSec)
			run(ctx, []string{configPath})
		})
		if err := cw.Start(ctx); err != nil {
			a.log.Warn("config reload disabled", "path", configPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	run(ctx, nil)
	<-ctx.Done()
	return nil
}

// watchRoots is the project root plus the directory of every crate root
// outside it.
func (a *App) watchRoots(cfg *config.Config, paths config.ResolvedPaths, req ports.ResolveRequest) []string {
	roots := []string{paths.ProjectRoot}
	add := func(root string) {
		dir := filepath.Dir(root)
		if util.HasPathPrefix(filepath.ToSlash(dir), filepath.ToSlash(paths.ProjectRoot)) {
			return
		}
		for _, r := range roots {
			if r == dir {
				return
			}
		}
		roots = append(roots, dir)
	}
	for _, c := range cfg.Crates {
		add(a.crateRoot(paths, c))
	}
	for _, r := range req.Roots {
		if abs, err := filepath.Abs(r); err == nil {
			add(abs)
		}
	}
	return roots
}
