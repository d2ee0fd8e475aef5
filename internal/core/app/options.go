package app

import (
	"fmt"
	"log/slog"

	"nameres/internal/core/config"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/resolve"
)

// ResolveOptions derives resolver options for one crate. The crate edition
// overrides the project edition.
func ResolveOptions(cfg *config.Config, crate config.Crate, log *slog.Logger) (resolve.Options, error) {
	opts := resolve.DefaultOptions()
	opts.Logger = log

	edition := cfg.Resolve.Edition
	if crate.Edition != "" {
		edition = crate.Edition
	}
	ed, err := resolve.ParseEdition(edition)
	if err != nil {
		return resolve.Options{}, err
	}
	opts.Edition = ed

	if cfg.Resolve.NoPrelude {
		opts.PreludeCrate = ""
		opts.PreludePath = nil
	} else {
		opts.PreludeCrate = cfg.Resolve.PreludeCrate
		if len(cfg.Resolve.PreludePath) > 0 {
			opts.PreludePath = append([]string(nil), cfg.Resolve.PreludePath...)
		}
	}
	opts.ExternPrelude = append([]string(nil), cfg.Resolve.ExternPrelude...)
	opts.MaxPasses = cfg.Resolve.MaxPasses

	levels := map[string]string{
		diag.LintUnusedImports:         cfg.Lints.UnusedImports,
		diag.LintUnusedQualifications:  cfg.Lints.UnusedQualifications,
		diag.LintDuplicateMacroExports: cfg.Lints.DuplicateMacroExports,
		diag.LintLegacyCtorVisibility:  cfg.Lints.LegacyCtorVisibility,
	}
	for lint, raw := range levels {
		if raw == "" {
			continue
		}
		lvl, err := diag.ParseLevel(raw)
		if err != nil {
			return resolve.Options{}, fmt.Errorf("lint %s: %w", lint, err)
		}
		opts.Lints[lint] = lvl
	}
	return opts, nil
}
