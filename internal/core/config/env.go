package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: NAMERES_[SECTION]_[KEY] (e.g., NAMERES_RESOLVE_EDITION).
func ApplyEnvOverrides(cfg *Config) {
	// Resolve
	setEnvString(&cfg.Resolve.Edition, "NAMERES_RESOLVE_EDITION")
	setEnvString(&cfg.Resolve.PreludeCrate, "NAMERES_RESOLVE_PRELUDE_CRATE")
	setEnvInt(&cfg.Resolve.MaxPasses, "NAMERES_RESOLVE_MAX_PASSES")

	// Diagnostics
	setEnvString(&cfg.Diagnostics.Format, "NAMERES_DIAGNOSTICS_FORMAT")

	// History
	setEnvBool(&cfg.History.Enabled, "NAMERES_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "NAMERES_HISTORY_PATH")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "NAMERES_WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "NAMERES_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "NAMERES_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "NAMERES_OBSERVABILITY_SERVICE_NAME")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
