package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"nameres/internal/core/errors"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeInternal
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "read config"), errors.CtxPath, path)
	}
	return Parse(string(data), path)
}

// Parse decodes TOML data. path is only used in error context.
func Parse(data, path string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.AddContext(
			errors.Newf(errors.CodeValidationError, "unknown config keys: %s", strings.Join(keys, ", ")),
			errors.CtxPath, path)
	}

	applyDefaults(&cfg)
	normalize(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid config"), errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to DefaultConfig.
func LoadOrDefault(path string) (*Config, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), false, nil
		}
		return nil, false, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "stat config"), errors.CtxPath, path)
	}
	cfg, err := Load(path)
	return cfg, err == nil, err
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = ".nameres"
	}

	if strings.TrimSpace(cfg.Resolve.Edition) == "" {
		cfg.Resolve.Edition = "2015"
	}
	if cfg.Resolve.PreludeCrate == "" && !cfg.Resolve.NoPrelude {
		cfg.Resolve.PreludeCrate = "std"
	}
	if len(cfg.Resolve.PreludePath) == 0 {
		cfg.Resolve.PreludePath = []string{"prelude", "v1"}
	}

	if cfg.Lints.UnusedImports == "" {
		cfg.Lints.UnusedImports = "warn"
	}
	if cfg.Lints.UnusedQualifications == "" {
		cfg.Lints.UnusedQualifications = "allow"
	}
	if cfg.Lints.DuplicateMacroExports == "" {
		cfg.Lints.DuplicateMacroExports = "warn"
	}
	if cfg.Lints.LegacyCtorVisibility == "" {
		cfg.Lints.LegacyCtorVisibility = "deny"
	}

	if strings.TrimSpace(cfg.Diagnostics.Format) == "" {
		cfg.Diagnostics.Format = "text"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "history.db"
	}
	if cfg.History.BusyTime <= 0 {
		cfg.History.BusyTime = 5 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.MaxRerunsPerSec == 0 {
		cfg.Watch.MaxRerunsPerSec = 2
	}
	if len(cfg.Watch.ExcludeDirs) == 0 {
		cfg.Watch.ExcludeDirs = []string{".git", "target", ".nameres"}
	}
	if len(cfg.Watch.IncludeExtensions) == 0 {
		cfg.Watch.IncludeExtensions = []string{".rs", ".toml"}
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "nameres"
	}
	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1
	}
}

func normalize(cfg *Config) {
	cfg.Resolve.Edition = strings.TrimSpace(cfg.Resolve.Edition)
	cfg.Diagnostics.Format = strings.ToLower(strings.TrimSpace(cfg.Diagnostics.Format))
	cfg.Diagnostics.Suppress = trimAll(cfg.Diagnostics.Suppress)
	cfg.Resolve.ExternPrelude = trimAll(cfg.Resolve.ExternPrelude)
	for i := range cfg.Crates {
		c := &cfg.Crates[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Root = filepath.ToSlash(strings.TrimSpace(c.Root))
		c.Edition = strings.TrimSpace(c.Edition)
		c.Externs = trimAll(c.Externs)
	}
	for i, ext := range cfg.Watch.IncludeExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Watch.IncludeExtensions[i] = ext
	}
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitExtern splits an `alias=name` extern entry.
func SplitExtern(entry string) (alias, name string) {
	if a, n, ok := strings.Cut(entry, "="); ok {
		return strings.TrimSpace(a), strings.TrimSpace(n)
	}
	return entry, entry
}
