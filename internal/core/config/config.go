// Package config loads nameres.toml.
package config

import (
	"time"
)

const DefaultFile = "nameres.toml"

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Resolve       Resolve       `toml:"resolve"`
	Lints         Lints         `toml:"lints"`
	Diagnostics   Diagnostics   `toml:"diagnostics"`
	Crates        []Crate       `toml:"crates"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
}

type Resolve struct {
	Edition       string   `toml:"edition"`
	PreludeCrate  string   `toml:"prelude_crate"`
	PreludePath   []string `toml:"prelude_path"`
	NoPrelude     bool     `toml:"no_prelude"`
	ExternPrelude []string `toml:"extern_prelude"`
	MaxPasses     int      `toml:"max_passes"`
}

// Lints holds one level per lint: allow, warn or deny.
type Lints struct {
	UnusedImports         string `toml:"unused_imports"`
	UnusedQualifications  string `toml:"unused_qualifications"`
	DuplicateMacroExports string `toml:"duplicate_macro_exports"`
	LegacyCtorVisibility  string `toml:"legacy_constructor_visibility"`
}

type Diagnostics struct {
	Format       string   `toml:"format"`
	Suppress     []string `toml:"suppress"`
	ExcludeFiles []string `toml:"exclude_files"`
	Color        *bool    `toml:"color"`
	Output       string   `toml:"output"`
}

// Crate is one compilation unit. Externs name other configured crates the
// crate may depend on; an entry `alias=name` renames.
type Crate struct {
	Name    string   `toml:"name"`
	Root    string   `toml:"root"`
	Edition string   `toml:"edition"`
	Externs []string `toml:"externs"`
	// Library crates are only resolved as dependencies.
	Library bool `toml:"library"`
}

type History struct {
	Enabled   bool          `toml:"enabled"`
	Path      string        `toml:"path"`
	Retention time.Duration `toml:"retention"`
	BusyTime  time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Debounce          time.Duration `toml:"debounce"`
	ExcludeDirs       []string      `toml:"exclude_dirs"`
	ExcludeFiles      []string      `toml:"exclude_files"`
	MaxRerunsPerSec   float64       `toml:"max_reruns_per_second"`
	ReloadConfig      *bool         `toml:"reload_config"`
	ClearScreenOnRun  bool          `toml:"clear_screen"`
	IncludeExtensions []string      `toml:"include_extensions"`
}

type Observability struct {
	MetricsAddress string  `toml:"metrics_address"`
	OTLPEndpoint   string  `toml:"otlp_endpoint"`
	ServiceName    string  `toml:"service_name"`
	SampleRatio    float64 `toml:"sample_ratio"`
	Insecure       bool    `toml:"insecure"`
}

// DefaultConfig is the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// ColorEnabled reports whether text output may use ANSI styling.
func (c *Config) ColorEnabled() bool {
	return c.Diagnostics.Color == nil || *c.Diagnostics.Color
}

// ReloadEnabled reports whether watch mode reloads the config file.
func (c *Config) ReloadEnabled() bool {
	return c.Watch.ReloadConfig == nil || *c.Watch.ReloadConfig
}

// Crate returns the configured crate with the given name.
func (c *Config) Crate(name string) (Crate, bool) {
	for _, cr := range c.Crates {
		if cr.Name == name {
			return cr, true
		}
	}
	return Crate{}, false
}

// RootCrates are the crates resolved as the local crate of a run.
func (c *Config) RootCrates() []Crate {
	var out []Crate
	for _, cr := range c.Crates {
		if !cr.Library {
			out = append(out, cr)
		}
	}
	return out
}
