// Package app wires configuration, the parser, the resolver and run history
// into the use cases driven by the CLI.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nameres/internal/core/config"
	"nameres/internal/core/errors"
	"nameres/internal/core/ports"
	"nameres/internal/data/history"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/parser"

	"github.com/google/uuid"
)

type App struct {
	Parser *parser.Parser

	mu     sync.RWMutex
	cfg    *config.Config
	paths  config.ResolvedPaths
	filter *diag.Filter

	history ports.HistoryStore
	closer  func() error
	writer  *historyWriter

	log      *slog.Logger
	now      func() time.Time
	newRunID func() string
}

type Option func(*App)

func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithHistory replaces the sqlite store opened from the config.
func WithHistory(store ports.HistoryStore) Option {
	return func(a *App) { a.history = store }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func WithRunIDs(next func() string) Option {
	return func(a *App) { a.newRunID = next }
}

// New builds an App whose relative paths are anchored below base.
func New(cfg *config.Config, base string, opts ...Option) (*App, error) {
	a := &App{
		log:      slog.Default(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Parser = parser.New(parser.Options{Logger: a.log})
	if err := a.apply(cfg, base); err != nil {
		return nil, err
	}

	if a.history == nil && cfg.History.Enabled {
		store, err := history.Open(a.paths.HistoryPath, cfg.History.BusyTime)
		if err != nil {
			err = errors.Wrap(err, errors.CodeInternal, "open run history")
			return nil, errors.AddContext(err, errors.CtxPath, a.paths.HistoryPath)
		}
		a.history = history.NewAdapter(store, cfg.History.Retention)
		a.closer = store.Close
	}
	if a.history != nil {
		a.writer = newHistoryWriter(a.history, a.log)
		a.writer.start()
	}
	return a, nil
}

func (a *App) apply(cfg *config.Config, base string) error {
	if cfg == nil {
		return errors.New(errors.CodeValidationError, "config is required")
	}
	paths, err := config.ResolvePaths(cfg, base)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "resolve paths")
	}
	filter, err := diag.NewFilter(cfg.Diagnostics.Suppress, cfg.Diagnostics.ExcludeFiles)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "diagnostic filter")
	}
	a.mu.Lock()
	a.cfg, a.paths, a.filter = cfg, paths, filter
	a.mu.Unlock()
	return nil
}

// Reload swaps in a new configuration. History settings are only read by
// New and are not affected.
func (a *App) Reload(cfg *config.Config) error {
	a.mu.RLock()
	base := a.paths.ProjectRoot
	a.mu.RUnlock()
	if err := a.apply(cfg, base); err != nil {
		return err
	}
	a.log.Info("configuration applied", "crates", len(cfg.Crates))
	return nil
}

func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *App) Paths() config.ResolvedPaths {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.paths
}

func (a *App) snapshot() (*config.Config, config.ResolvedPaths, *diag.Filter) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg, a.paths, a.filter
}

// Close flushes pending history writes and closes the store.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}
	if a.writer != nil {
		if err := a.writer.stop(ctx); err != nil {
			return err
		}
		a.writer = nil
	}
	if a.closer != nil {
		if err := a.closer(); err != nil {
			return err
		}
		a.closer = nil
	}
	return nil
}
