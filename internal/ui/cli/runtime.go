package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	coreapp "nameres/internal/core/app"
	"nameres/internal/core/config"
	apperrors "nameres/internal/core/errors"
	"nameres/internal/core/ports"
	"nameres/internal/data/history"
	"nameres/internal/shared/observability"
	"nameres/internal/shared/util"
	"nameres/internal/shared/version"
	"nameres/internal/ui/report/formats"
)

// Exit codes.
const (
	exitOK          = 0
	exitDiagnostics = 1
	exitFailure     = 2
)

// Run is the process entry point. It returns the exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err.Error())
		return exitFailure
	}

	if opts.version {
		fmt.Fprintf(stdout, "nameres %s\n", version.String())
		return exitOK
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose, stderr)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return exitFailure
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitFailure
	}
	applyOptions(opts, cfg)

	base := cwd
	if cfgPath != "" {
		base = filepath.Dir(cfgPath)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Endpoint:    cfg.Observability.OTLPEndpoint,
		ServiceName: cfg.Observability.ServiceName,
		SampleRatio: cfg.Observability.SampleRatio,
		Insecure:    cfg.Observability.Insecure,
	})
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return exitFailure
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	var server *observability.Server
	if addr := strings.TrimSpace(cfg.Observability.MetricsAddress); addr != "" {
		server = observability.NewServer(addr)
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "addr", addr, "error", err)
			return exitFailure
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(sctx)
		}()
	}

	analysis, err := coreapp.New(cfg, base, coreapp.WithLogger(slog.Default()))
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return exitFailure
	}
	defer func() {
		if err := analysis.Close(context.Background()); err != nil {
			slog.Warn("failed to close app", "error", err)
		}
	}()

	req := ports.ResolveRequest{Crates: opts.crates, Roots: opts.args, DumpDefs: opts.dumpDefs}

	if opts.historyList > 0 {
		if err := printHistory(ctx, stdout, analysis, historyCrates(cfg, req), opts.historyList); err != nil {
			slog.Error("history listing failed", "error", err)
			return exitFailure
		}
		return exitOK
	}

	if opts.ui {
		if err := runUI(ctx, analysis, req, cfgPath, server); err != nil {
			slog.Error("failed to run UI", "error", err)
			return exitFailure
		}
		return exitOK
	}

	if opts.watch {
		if err := runWatch(ctx, stdout, analysis, req, cfgPath, server); err != nil {
			slog.Error("watch failed", "error", err)
			return exitFailure
		}
		return exitOK
	}

	reports, err := analysis.Resolve(ctx, req)
	if server != nil {
		server.RecordRun(time.Now())
	}
	if err != nil {
		slog.Error("resolution failed", "error", err, "code", apperrors.CodeOf(err))
		return exitFailure
	}
	if err := writeReports(stdout, analysis.Config(), analysis.Paths(), reports); err != nil {
		slog.Error("failed to write report", "error", err)
		return exitFailure
	}
	for _, rep := range reports {
		if rep.ErrorCount() > 0 {
			return exitDiagnostics
		}
	}
	return exitOK
}

// loadConfig reads an explicit path, or the default file in cwd when it
// exists. The returned path is empty when defaults are used.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = filepath.Join(cwd, config.DefaultFile)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", err
	}
	if !found {
		if explicit {
			return nil, "", apperrors.AddContext(apperrors.New(apperrors.CodeNotFound, "config file not found"), apperrors.CtxPath, path)
		}
		path = ""
	}
	config.ApplyEnvOverrides(cfg)
	return cfg, path, nil
}

func newReporter(cfg *config.Config, paths config.ResolvedPaths, toFile bool) (ports.Reporter, error) {
	root := paths.ProjectRoot
	return formats.New(cfg.Diagnostics.Format, formats.Options{
		ProjectRoot: root,
		Color:       cfg.ColorEnabled() && !toFile,
		ReadFile: func(p string) ([]byte, error) {
			if !filepath.IsAbs(p) {
				p = filepath.Join(root, filepath.FromSlash(p))
			}
			return os.ReadFile(p)
		},
	})
}

// writeReports renders to the configured output file, or stdout.
func writeReports(stdout io.Writer, cfg *config.Config, paths config.ResolvedPaths, reports []ports.RunReport) error {
	out := strings.TrimSpace(cfg.Diagnostics.Output)
	reporter, err := newReporter(cfg, paths, out != "")
	if err != nil {
		return err
	}
	if out == "" {
		return reporter.Render(stdout, reports)
	}
	var buf bytes.Buffer
	if err := reporter.Render(&buf, reports); err != nil {
		return err
	}
	target := config.ResolveRelative(paths.ProjectRoot, out)
	if err := util.WriteFileWithDirs(target, buf.Bytes(), 0o644); err != nil {
		return err
	}
	slog.Info("report written", "path", target, "format", reporter.Name())
	return nil
}

// runWatch prints a fresh report after every change until ctx is done.
func runWatch(ctx context.Context, stdout io.Writer, analysis *coreapp.App, req ports.ResolveRequest, cfgPath string, server *observability.Server) error {
	return analysis.Watch(ctx, req, cfgPath, func(update ports.WatchUpdate) {
		if server != nil {
			server.RecordRun(time.Now())
		}
		if update.Err != nil {
			slog.Error("re-run failed", "error", update.Err, "trigger", update.Trigger)
			return
		}
		cfg := analysis.Config()
		if cfg.Watch.ClearScreenOnRun && strings.TrimSpace(cfg.Diagnostics.Output) == "" {
			fmt.Fprint(stdout, "\033[H\033[2J")
		}
		if len(update.Trigger) > 0 {
			slog.Info("re-run", "changed", strings.Join(update.Trigger, ", "))
		}
		if err := writeReports(stdout, cfg, analysis.Paths(), update.Reports); err != nil {
			slog.Error("failed to write report", "error", err)
		}
	})
}

// historyCrates names the crates a history listing covers.
func historyCrates(cfg *config.Config, req ports.ResolveRequest) []string {
	var names []string
	names = append(names, req.Crates...)
	for _, root := range req.Roots {
		names = append(names, coreapp.CrateFromPath(root).Name)
	}
	if len(names) > 0 {
		return names
	}
	for _, c := range cfg.RootCrates() {
		names = append(names, c.Name)
	}
	return names
}

func printHistory(ctx context.Context, w io.Writer, svc ports.ResolveService, crates []string, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CRATE\tRUN\tSTARTED\tDURATION\tERRORS\tWARNINGS\tCHANGE")
	for _, crate := range crates {
		// One extra run so the oldest listed row still gets a delta.
		runs, err := svc.History(ctx, crate, limit+1)
		if err != nil {
			return err
		}
		for i, r := range runs {
			if i == limit {
				break
			}
			change := "-"
			if i+1 < len(runs) {
				change = formatDelta(history.Compare(runs[i+1], r))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				r.Crate, shortID(r.ID), r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Duration.Round(time.Millisecond), r.Errors, r.Warnings, change)
		}
	}
	return tw.Flush()
}

func formatDelta(d history.Delta) string {
	var parts []string
	if d.ErrorDiff != 0 {
		parts = append(parts, fmt.Sprintf("%+d errors", d.ErrorDiff))
	}
	if len(d.Introduced) > 0 {
		parts = append(parts, "new "+strings.Join(d.Introduced, ","))
	}
	if len(d.Fixed) > 0 {
		parts = append(parts, "fixed "+strings.Join(d.Fixed, ","))
	}
	if len(parts) == 0 {
		return "="
	}
	return strings.Join(parts, "; ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatNames() []string {
	return formats.Names()
}

// configureLogging writes logs to stderr, or to a state file in UI mode
// where the terminal belongs to the UI.
func configureLogging(uiMode, verbose bool, stderr io.Writer) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "nameres", "nameres.log")
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "nameres", "nameres.log")
	}
	return "nameres.log"
}
