package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nameres_parse_seconds",
		Help:    "Time spent parsing the source files of a crate.",
		Buckets: prometheus.DefBuckets,
	}, []string{"crate"})

	ResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nameres_resolve_seconds",
		Help:    "Time spent resolving names in a crate.",
		Buckets: prometheus.DefBuckets,
	}, []string{"crate"})

	FixedPointPasses = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nameres_fixed_point_passes",
		Help:    "Import fixed-point passes needed per run.",
		Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 32},
	})

	MacroExpansions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nameres_macro_expansions_total",
		Help: "Total number of macro invocations expanded.",
	})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nameres_diagnostics_total",
		Help: "Diagnostics reported, by kind and severity.",
	}, []string{"kind", "severity"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nameres_runs_total",
		Help: "Resolution runs, by outcome (ok, errors, failed).",
	}, []string{"outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nameres_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nameres_watcher_throttled_total",
		Help: "Re-runs delayed by the watch rate limiter.",
	})

	HistoryWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nameres_history_writes_total",
		Help: "Run history writes, by result.",
	}, []string{"result"})
)
