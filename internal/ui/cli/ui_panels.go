package cli

import (
	"fmt"
	"strings"
	"time"

	"nameres/internal/data/history"

	"github.com/charmbracelet/lipgloss"
)

func renderHelp(m model) string {
	keys := "Keys: tab panel | / filter | t history overlay | q quit"
	if m.mode == panelDiagnostics {
		keys = "Keys: tab panel | / filter | o open source | t history overlay | q quit"
	}
	return statusStyle.Render(keys)
}

// renderDiagnosticDetail shows labels, notes and help of the highlighted row.
func renderDiagnosticDetail(m model) string {
	entry, ok := selectedEntry(m)
	if !ok {
		if len(m.reports) == 0 {
			return statusStyle.Render("Waiting for the first run.")
		}
		return statusStyle.Render("No diagnostics.")
	}
	d := entry.diag
	lines := []string{
		severityStyle(d.IsError()).Render(d.Header()),
		fmt.Sprintf("  --> %s (%s)", d.Span.String(), entry.crate),
	}
	for _, l := range d.Labels {
		lines = append(lines, fmt.Sprintf("  label %s: %s", l.Span.String(), l.Message))
	}
	for _, n := range d.Notes {
		lines = append(lines, "  = note: "+n)
	}
	for _, s := range d.Suggestions {
		hint := "  = help: " + s.Message
		if s.Replacement != "" {
			hint += fmt.Sprintf(": `%s`", s.Replacement)
		}
		lines = append(lines, hint)
	}
	if d.Lint != "" {
		lines = append(lines, fmt.Sprintf("  = note: `%s` is %s", d.Lint, d.Severity.String()))
	}
	return strings.Join(lines, "\n")
}

func renderCratePanel(m model) string {
	summary := m.crateList.View()
	if len(m.reports) == 0 {
		return summary + "\n\n" + statusStyle.Render("No crates resolved yet.")
	}
	idx := 0
	if it, ok := m.crateList.SelectedItem().(item); ok && it.idx < len(m.reports) {
		idx = it.idx
	}
	rep := m.reports[idx]
	lines := []string{
		"Selected Crate",
		fmt.Sprintf("  Name: %s (edition %s)", rep.Crate, rep.Edition),
		fmt.Sprintf("  Root: %s", rep.Root),
		fmt.Sprintf("  Files: %d", len(rep.Files)),
		fmt.Sprintf("  Modules: %d | Bindings: %d", rep.Stats.Modules, rep.Stats.Bindings),
		fmt.Sprintf("  Directives: %d | Macro expansions: %d", rep.Stats.Directives, rep.Stats.Expansions),
		fmt.Sprintf("  Fixed-point passes: %d | Indeterminate: %d", rep.Stats.Passes, rep.Stats.Indeterminate),
		fmt.Sprintf("  Errors: %d | Warnings: %d | Suppressed: %d", rep.ErrorCount(), rep.WarningCount(), rep.Suppressed),
		fmt.Sprintf("  Took: %s", rep.Duration.Round(time.Millisecond)),
	}
	if len(m.trigger) > 0 {
		lines = append(lines, "  Triggered by: "+strings.Join(m.trigger, ", "))
	}
	return summary + "\n\n" + strings.Join(lines, "\n")
}

func renderHistoryOverlay(m model) string {
	if m.svc == nil {
		return statusStyle.Render("History overlay unavailable.")
	}
	if m.historyErr != "" {
		return statusStyle.Render("History overlay unavailable (" + m.historyErr + "). Enable -history to record runs.")
	}
	if m.history == nil {
		return statusStyle.Render("Loading history...")
	}
	lines := []string{"History Overlay"}
	for _, crate := range m.crateNames() {
		runs := m.history[crate]
		if len(runs) == 0 {
			lines = append(lines, fmt.Sprintf("  %s: no recorded runs", crate))
			continue
		}
		last := runs[0]
		lines = append(lines, fmt.Sprintf("  %s: %d runs | last %s | errors %d | warnings %d",
			crate, len(runs), last.StartedAt.Local().Format("15:04:05"), last.Errors, last.Warnings))
		if len(runs) > 1 {
			lines = append(lines, "    since previous: "+formatDelta(history.Compare(runs[1], last)))
		}
	}
	return strings.Join(lines, "\n")
}

func severityStyle(isError bool) lipgloss.Style {
	if isError {
		return errorStyle
	}
	return warningStyle
}
