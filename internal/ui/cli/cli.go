package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"nameres/internal/core/config"
)

type cliOptions struct {
	configPath  string
	edition     string
	format      string
	output      string
	crates      stringList
	watch       bool
	ui          bool
	history     bool
	historyList int
	metrics     string
	dumpDefs    bool
	noColor     bool
	verbose     bool
	version     bool
	args        []string
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("nameres", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file (default ./"+config.DefaultFile+" when present)")
	fs.StringVar(&opts.edition, "edition", "", "Override the edition of every resolved crate (2015 or 2018)")
	fs.StringVar(&opts.format, "format", "", "Output format: "+strings.Join(formatNames(), ", "))
	fs.StringVar(&opts.output, "output", "", "Write the report to this file instead of stdout")
	fs.Var(&opts.crates, "crate", "Resolve only this configured crate (repeatable)")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run on source changes")
	fs.BoolVar(&opts.ui, "ui", false, "Enable terminal UI mode (implies -watch)")
	fs.BoolVar(&opts.history, "history", false, "Record runs in the local history database")
	fs.IntVar(&opts.historyList, "history-list", 0, "Print the last N recorded runs per crate and exit")
	fs.StringVar(&opts.metrics, "metrics", "", "Serve /metrics and /health on this address")
	fs.BoolVar(&opts.dumpDefs, "dump-defs", false, "Include every path resolution in the report")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable ANSI styling in text output")
	fs.BoolVar(&opts.verbose, "v", false, "Enable verbose logging")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	opts.args = fs.Args()
	if err := validateOptions(&opts); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}

func validateOptions(opts *cliOptions) error {
	if opts.ui {
		opts.watch = true
	}
	if opts.historyList < 0 {
		return fmt.Errorf("-history-list must not be negative")
	}
	if opts.historyList > 0 && opts.watch {
		return fmt.Errorf("-history-list cannot be combined with -watch or -ui")
	}
	if opts.ui && opts.output != "" {
		return fmt.Errorf("-output cannot be combined with -ui")
	}
	if opts.edition != "" && opts.edition != "2015" && opts.edition != "2018" {
		return fmt.Errorf("unknown edition %q", opts.edition)
	}
	return nil
}

// applyOptions layers flags over the loaded config.
func applyOptions(opts cliOptions, cfg *config.Config) {
	if opts.edition != "" {
		cfg.Resolve.Edition = opts.edition
		for i := range cfg.Crates {
			cfg.Crates[i].Edition = ""
		}
	}
	if opts.format != "" {
		cfg.Diagnostics.Format = opts.format
	}
	if opts.output != "" {
		cfg.Diagnostics.Output = opts.output
	}
	if opts.history || opts.historyList > 0 {
		cfg.History.Enabled = true
	}
	if opts.metrics != "" {
		cfg.Observability.MetricsAddress = opts.metrics
	}
	if opts.noColor {
		off := false
		cfg.Diagnostics.Color = &off
	}
}
