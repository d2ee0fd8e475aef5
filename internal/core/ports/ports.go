package ports

import (
	"context"
	"io"
	"time"

	"nameres/internal/data/history"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/resolve"
)

// HistoryStore abstracts run persistence for trend and listing workflows.
type HistoryStore interface {
	SaveRun(ctx context.Context, run history.Run) error
	ListRuns(ctx context.Context, crate string, limit int) ([]history.Run, error)
}

type EnqueueResult string

const (
	EnqueueAccepted EnqueueResult = "accepted"
	EnqueueDropped  EnqueueResult = "dropped"
)

// DefEntry is one resolved path, emitted by -dump-defs.
type DefEntry struct {
	Node       uint32 `json:"node" yaml:"node"`
	Def        string `json:"def" yaml:"def"`
	Unresolved int    `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// RunReport is everything a driving adapter needs to present one crate.
type RunReport struct {
	RunID       string            `json:"run_id" yaml:"run_id"`
	Crate       string            `json:"crate" yaml:"crate"`
	Root        string            `json:"root" yaml:"root"`
	Edition     string            `json:"edition" yaml:"edition"`
	Files       []string          `json:"files" yaml:"files"`
	StartedAt   time.Time         `json:"started_at" yaml:"started_at"`
	Duration    time.Duration     `json:"duration_ns" yaml:"duration_ns"`
	Stats       resolve.Stats     `json:"stats" yaml:"stats"`
	Diagnostics []diag.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	Defs        []DefEntry        `json:"defs,omitempty" yaml:"defs,omitempty"`
	// Suppressed counts diagnostics dropped by the configured filter.
	Suppressed int `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
}

func (r RunReport) ErrorCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.IsError() {
			n++
		}
	}
	return n
}

func (r RunReport) WarningCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == diag.SeverityWarning {
			n++
		}
	}
	return n
}

// Reporter renders finished runs in one output format.
type Reporter interface {
	Name() string
	Render(w io.Writer, reports []RunReport) error
}

// ResolveRequest selects configured crates by name and ad-hoc crates by
// root file. Both empty means every root crate in the config.
type ResolveRequest struct {
	Crates   []string
	Roots    []string
	DumpDefs bool
}

// ResolveService is the driving port over parse + resolve use cases.
type ResolveService interface {
	Resolve(ctx context.Context, req ResolveRequest) ([]RunReport, error)
	History(ctx context.Context, crate string, limit int) ([]history.Run, error)
}

// WatchUpdate is emitted after every watch-triggered re-run.
type WatchUpdate struct {
	Trigger []string
	Reports []RunReport
	Err     error
}
