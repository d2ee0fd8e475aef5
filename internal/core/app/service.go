package app

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"nameres/internal/core/config"
	"nameres/internal/core/errors"
	"nameres/internal/core/ports"
	"nameres/internal/data/history"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/resolve"
	"nameres/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var _ ports.ResolveService = (*App)(nil)

// Resolve runs every selected crate concurrently. Reports come back in
// selection order. Ad-hoc roots are resolved after configured crates.
func (a *App) Resolve(ctx context.Context, req ports.ResolveRequest) ([]ports.RunReport, error) {
	cfg, paths, filter := a.snapshot()

	targets, err := a.targets(cfg, req)
	if err != nil {
		return nil, err
	}

	reports := make([]ports.RunReport, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, crate := range targets {
		g.Go(func() error {
			rep, err := a.resolveCrate(gctx, cfg, paths, filter, crate, req.DumpDefs)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (a *App) targets(cfg *config.Config, req ports.ResolveRequest) ([]config.Crate, error) {
	var out []config.Crate
	for _, name := range req.Crates {
		c, ok := cfg.Crate(name)
		if !ok {
			return nil, errors.AddContext(errors.Newf(errors.CodeNotFound, "no crate named %s in config", name), errors.CtxCrate, name)
		}
		out = append(out, c)
	}
	for _, root := range req.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "crate root"), errors.CtxPath, root)
		}
		c := CrateFromPath(abs)
		if known, ok := cfg.Crate(c.Name); ok {
			// Keep the configured externs when the root names a known crate.
			known.Root = abs
			c = known
		}
		out = append(out, c)
	}
	if len(req.Crates) == 0 && len(req.Roots) == 0 {
		out = cfg.RootCrates()
	}
	if len(out) == 0 {
		return nil, errors.New(errors.CodeValidationError, "no crates to resolve; list [[crates]] in the config or pass a root file")
	}
	return out, nil
}

func (a *App) resolveCrate(ctx context.Context, cfg *config.Config, paths config.ResolvedPaths, filter *diag.Filter, crate config.Crate, dumpDefs bool) (ports.RunReport, error) {
	runID := a.newRunID()
	ctx, span := observability.Tracer.Start(ctx, "app.resolveCrate", trace.WithAttributes(
		attribute.String("crate", crate.Name),
		attribute.String("run_id", runID),
	))
	defer span.End()

	log := a.log.With("crate", crate.Name, "run_id", runID)
	started := a.now()

	fail := func(err error) (ports.RunReport, error) {
		observability.RunsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		err = errors.AddContext(err, errors.CtxCrate, crate.Name)
		return ports.RunReport{}, errors.AddContext(err, errors.CtxRunID, runID)
	}

	opts, err := ResolveOptions(cfg, crate, log)
	if err != nil {
		return fail(errors.Wrap(err, errors.CodeValidationError, "resolver options"))
	}

	parseCtx, parseSpan := observability.Tracer.Start(ctx, "parse")
	parseStart := time.Now()
	prog, err := a.loadProgram(parseCtx, cfg, paths, crate)
	observability.ParseDuration.WithLabelValues(crate.Name).Observe(time.Since(parseStart).Seconds())
	parseSpan.End()
	if err != nil {
		return fail(err)
	}
	log.Debug("crate parsed", "files", len(prog.files), "externs", len(prog.prog.Externs))

	resolveCtx, resolveSpan := observability.Tracer.Start(ctx, "resolve")
	resolveStart := time.Now()
	out, err := resolve.Resolve(resolveCtx, prog.prog, opts)
	observability.ResolveDuration.WithLabelValues(crate.Name).Observe(time.Since(resolveStart).Seconds())
	if out != nil {
		resolveSpan.SetAttributes(
			attribute.Int("passes", out.Stats.Passes),
			attribute.Int("directives", out.Stats.Directives),
			attribute.Int("expansions", out.Stats.Expansions),
		)
	}
	resolveSpan.End()
	if err != nil {
		code := errors.CodeInternal
		if ctx.Err() != nil {
			code = errors.CodeCanceled
		}
		return fail(errors.Wrap(err, code, "resolve"))
	}

	all := make([]diag.Diagnostic, 0, len(prog.diags)+len(out.Diagnostics))
	all = append(all, prog.diags...)
	all = append(all, out.Diagnostics...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Less(all[j]) })
	kept := filter.Apply(all)

	rep := ports.RunReport{
		RunID:       runID,
		Crate:       crate.Name,
		Root:        filepath.ToSlash(crate.Root),
		Edition:     opts.Edition.String(),
		Files:       prog.files,
		StartedAt:   started.UTC(),
		Duration:    a.now().Sub(started),
		Stats:       out.Stats,
		Diagnostics: kept,
		Suppressed:  len(all) - len(kept),
	}
	if dumpDefs {
		rep.Defs = defEntries(out)
	}

	observability.FixedPointPasses.Observe(float64(out.Stats.Passes))
	observability.MacroExpansions.Add(float64(out.Stats.Expansions))
	for _, d := range kept {
		observability.DiagnosticsTotal.WithLabelValues(string(d.Kind), d.Severity.String()).Inc()
	}
	outcome := "ok"
	if rep.ErrorCount() > 0 {
		outcome = "diagnostics"
	}
	observability.RunsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.Int("errors", rep.ErrorCount()), attribute.Int("warnings", rep.WarningCount()))

	log.Info("crate resolved",
		"duration", rep.Duration,
		"passes", out.Stats.Passes,
		"errors", rep.ErrorCount(),
		"warnings", rep.WarningCount(),
		"suppressed", rep.Suppressed)

	if a.writer != nil {
		a.writer.enqueue(toHistoryRun(rep))
	}
	return rep, nil
}

func defEntries(out *resolve.Output) []ports.DefEntry {
	entries := make([]ports.DefEntry, 0, len(out.Defs))
	for id, res := range out.Defs {
		entries = append(entries, ports.DefEntry{
			Node:       uint32(id),
			Def:        res.BaseDef.String(),
			Unresolved: res.Unresolved,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Node < entries[j].Node })
	return entries
}

func toHistoryRun(rep ports.RunReport) history.Run {
	run := history.Run{
		ID:            rep.RunID,
		Crate:         rep.Crate,
		Edition:       rep.Edition,
		StartedAt:     rep.StartedAt,
		Duration:      rep.Duration,
		Passes:        rep.Stats.Passes,
		Directives:    rep.Stats.Directives,
		Expansions:    rep.Stats.Expansions,
		Modules:       rep.Stats.Modules,
		Bindings:      rep.Stats.Bindings,
		Indeterminate: rep.Stats.Indeterminate,
		Errors:        rep.ErrorCount(),
		Warnings:      rep.WarningCount(),
		Codes:         make(map[string]int),
	}
	for _, d := range rep.Diagnostics {
		key := d.Code
		if key == "" {
			key = d.Lint
		}
		if key == "" {
			key = string(d.Kind)
		}
		run.Codes[key]++
	}
	return run
}

// History lists recent runs, newest first.
func (a *App) History(ctx context.Context, crate string, limit int) ([]history.Run, error) {
	if a.history == nil {
		return nil, errors.New(errors.CodeNotSupported, "run history is disabled; set [history] enabled = true")
	}
	if a.writer != nil {
		// Let queued runs land before listing.
		a.writer.flush(ctx)
	}
	runs, err := a.history.ListRuns(ctx, crate, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list runs")
	}
	return runs, nil
}
