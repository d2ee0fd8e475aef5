package history

import (
	"sort"
	"time"
)

// SchemaVersion is the latest migration version understood by this build.
const SchemaVersion = 1

// Run is one persisted resolution of a crate.
type Run struct {
	ID        string
	Crate     string
	Edition   string
	StartedAt time.Time
	Duration  time.Duration

	Passes        int
	Directives    int
	Expansions    int
	Modules       int
	Bindings      int
	Indeterminate int

	Errors   int
	Warnings int
	// Codes counts emitted diagnostics by error code.
	Codes map[string]int
}

// Delta summarizes how diagnostics changed between two runs of a crate.
type Delta struct {
	Introduced []string
	Fixed      []string
	ErrorDiff  int
}

// Compare reports codes present in cur but not prev and the reverse.
func Compare(prev, cur Run) Delta {
	d := Delta{ErrorDiff: cur.Errors - prev.Errors}
	for code := range cur.Codes {
		if prev.Codes[code] == 0 {
			d.Introduced = append(d.Introduced, code)
		}
	}
	for code := range prev.Codes {
		if cur.Codes[code] == 0 {
			d.Fixed = append(d.Fixed, code)
		}
	}
	sort.Strings(d.Introduced)
	sort.Strings(d.Fixed)
	return d
}
