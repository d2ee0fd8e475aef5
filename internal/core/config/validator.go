package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

var (
	validFormats = map[string]bool{"text": true, "json": true, "yaml": true, "sarif": true}
	validLevels  = map[string]bool{"allow": true, "warn": true, "deny": true}
)

func validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateResolve,
		validateLints,
		validateDiagnostics,
		validateCrates,
		validateHistory,
		validateWatch,
		validateObservability,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validEdition(s string) bool {
	return s == "2015" || s == "2018"
}

func validateResolve(cfg *Config) error {
	if !validEdition(cfg.Resolve.Edition) {
		return fmt.Errorf("resolve.edition must be 2015 or 2018, got %q", cfg.Resolve.Edition)
	}
	if cfg.Resolve.MaxPasses < 0 {
		return fmt.Errorf("resolve.max_passes must be >= 0, got %d", cfg.Resolve.MaxPasses)
	}
	for _, seg := range cfg.Resolve.PreludePath {
		if strings.TrimSpace(seg) == "" || strings.Contains(seg, "::") {
			return fmt.Errorf("resolve.prelude_path segments must be single names, got %q", seg)
		}
	}
	return nil
}

func validateLints(cfg *Config) error {
	levels := map[string]string{
		"unused_imports":                cfg.Lints.UnusedImports,
		"unused_qualifications":         cfg.Lints.UnusedQualifications,
		"duplicate_macro_exports":       cfg.Lints.DuplicateMacroExports,
		"legacy_constructor_visibility": cfg.Lints.LegacyCtorVisibility,
	}
	for name, level := range levels {
		if !validLevels[strings.ToLower(strings.TrimSpace(level))] {
			return fmt.Errorf("lints.%s must be one of: allow, warn, deny; got %q", name, level)
		}
	}
	return nil
}

func validateDiagnostics(cfg *Config) error {
	if !validFormats[cfg.Diagnostics.Format] {
		return fmt.Errorf("diagnostics.format must be one of: text, json, yaml, sarif; got %q", cfg.Diagnostics.Format)
	}
	return validateGlobs("diagnostics.exclude_files", cfg.Diagnostics.ExcludeFiles)
}

func validateGlobs(key string, patterns []string) error {
	for _, p := range patterns {
		if _, err := glob.Compile(filepath.ToSlash(p), '/'); err != nil {
			return fmt.Errorf("%s: invalid pattern %q: %w", key, p, err)
		}
	}
	return nil
}

func validateCrates(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Crates))
	for i, c := range cfg.Crates {
		ref := fmt.Sprintf("crates[%d]", i)
		if c.Name == "" {
			return fmt.Errorf("%s.name must not be empty", ref)
		}
		if !isIdent(c.Name) {
			return fmt.Errorf("%s.name %q is not a valid crate name", ref, c.Name)
		}
		if c.Root == "" {
			return fmt.Errorf("%s.root must not be empty", ref)
		}
		if c.Edition != "" && !validEdition(c.Edition) {
			return fmt.Errorf("%s.edition must be 2015 or 2018, got %q", ref, c.Edition)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate crate name %q", c.Name)
		}
		seen[c.Name] = true
	}
	for i, c := range cfg.Crates {
		aliases := make(map[string]bool, len(c.Externs))
		for _, ext := range c.Externs {
			alias, name := SplitExtern(ext)
			if !seen[name] {
				return fmt.Errorf("crates[%d].externs references unknown crate %q", i, name)
			}
			if name == c.Name {
				return fmt.Errorf("crates[%d] cannot depend on itself", i)
			}
			if !isIdent(alias) {
				return fmt.Errorf("crates[%d].externs alias %q is not a valid crate name", i, alias)
			}
			if aliases[alias] {
				return fmt.Errorf("crates[%d].externs lists %q twice", i, alias)
			}
			aliases[alias] = true
		}
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	if cfg.History.Retention < 0 {
		return fmt.Errorf("history.retention must be >= 0")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0")
	}
	if cfg.Watch.MaxRerunsPerSec < 0 {
		return fmt.Errorf("watch.max_reruns_per_second must be > 0")
	}
	if err := validateGlobs("watch.exclude_dirs", cfg.Watch.ExcludeDirs); err != nil {
		return err
	}
	return validateGlobs("watch.exclude_files", cfg.Watch.ExcludeFiles)
}

func validateObservability(cfg *Config) error {
	if addr := strings.TrimSpace(cfg.Observability.MetricsAddress); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("observability.metrics_address %q: %w", addr, err)
		}
	}
	if r := cfg.Observability.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("observability.sample_ratio must be within [0, 1], got %v", r)
	}
	return nil
}
