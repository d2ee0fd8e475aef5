package formats

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"nameres/internal/core/ports"
	"nameres/internal/engine/diag"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Bold(true)
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Bold(true)
	gutterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true)
	messageStyle = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
)

// Text renders diagnostics the way a compiler prints them, followed by a
// one-line summary per crate.
type Text struct {
	Color    bool
	ReadFile func(path string) ([]byte, error)
}

func (Text) Name() string { return "text" }

func (t Text) Render(w io.Writer, reports []ports.RunReport) error {
	var b strings.Builder
	sources := make(map[string][]string)
	for _, rep := range reports {
		for _, d := range rep.Diagnostics {
			t.writeDiagnostic(&b, d, sources)
		}
		for _, e := range rep.Defs {
			b.WriteString(fmt.Sprintf("def %d -> %s", e.Node, e.Def))
			if e.Unresolved > 0 {
				b.WriteString(fmt.Sprintf(" (+%d unresolved)", e.Unresolved))
			}
			b.WriteString("\n")
		}
		b.WriteString(t.summary(rep))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (t Text) paint(s lipgloss.Style, text string) string {
	if !t.Color {
		return text
	}
	return s.Render(text)
}

func (t Text) writeDiagnostic(b *strings.Builder, d diag.Diagnostic, sources map[string][]string) {
	head := d.Severity.String()
	if d.Code != "" {
		head += "[" + d.Code + "]"
	}
	b.WriteString(t.paint(severityStyle(d.Severity), head))
	b.WriteString(t.paint(messageStyle, ": "+d.Message))
	b.WriteString("\n")

	width := len(strconv.Itoa(d.Span.Line))
	pad := strings.Repeat(" ", width)
	if !d.Span.IsDummy() {
		b.WriteString(pad + t.paint(gutterStyle, "--> ") + d.Span.String() + "\n")
		t.writeSnippet(b, d.Span.File, d.Span.Line, d.Span.Col, d.Span.Hi-d.Span.Lo, "", pad, sources)
	}
	for _, l := range d.Labels {
		if l.Span.File == d.Span.File && !l.Span.IsDummy() {
			t.writeSnippet(b, l.Span.File, l.Span.Line, l.Span.Col, l.Span.Hi-l.Span.Lo, l.Message, pad, sources)
			continue
		}
		b.WriteString(pad + t.paint(gutterStyle, " = ") + l.Message)
		if !l.Span.IsDummy() {
			b.WriteString(" at " + l.Span.String())
		}
		b.WriteString("\n")
	}
	for _, n := range d.Notes {
		b.WriteString(pad + t.paint(gutterStyle, " = ") + t.paint(messageStyle, "note") + ": " + n + "\n")
	}
	for _, s := range d.Suggestions {
		line := pad + t.paint(gutterStyle, " = ") + t.paint(messageStyle, "help") + ": " + s.Message
		if s.Replacement != "" {
			line += ": `" + s.Replacement + "`"
		}
		b.WriteString(line + "\n")
	}
	if d.Lint != "" && d.Kind == diag.KindLint {
		b.WriteString(pad + t.paint(gutterStyle, " = ") + t.paint(statusStyle, "lint "+d.Lint) + "\n")
	}
	b.WriteString("\n")
}

// writeSnippet prints the source line with a caret run under the span.
// Missing sources are skipped silently.
func (t Text) writeSnippet(b *strings.Builder, file string, line, col, length int, label, pad string, sources map[string][]string) {
	if t.ReadFile == nil || line <= 0 {
		return
	}
	lines, ok := sources[file]
	if !ok {
		data, err := t.ReadFile(file)
		if err == nil {
			lines = strings.Split(string(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))), "\n")
		}
		sources[file] = lines
	}
	if line > len(lines) {
		return
	}
	text := lines[line-1]
	start := col - 1
	if start < 0 || start > len(text) {
		return
	}
	if length < 1 {
		length = 1
	}
	if start+length > len(text) {
		length = max(1, len(text)-start)
	}
	num := fmt.Sprintf("%*d", len(pad), line)
	bar := t.paint(gutterStyle, " | ")
	b.WriteString(pad + bar + "\n")
	b.WriteString(t.paint(gutterStyle, num) + bar + text + "\n")
	marker := strings.Repeat("^", length)
	if label != "" {
		marker += " " + label
	}
	// Tabs keep their width so the carets line up.
	lead := strings.Map(func(r rune) rune {
		if r == '\t' {
			return '\t'
		}
		return ' '
	}, text[:start])
	b.WriteString(pad + bar + lead + t.paint(errorStyle, marker) + "\n")
}

func (t Text) summary(rep ports.RunReport) string {
	errs, warns := rep.ErrorCount(), rep.WarningCount()
	stats := fmt.Sprintf("(%d files, %d passes, %d expansions, %s)",
		len(rep.Files), rep.Stats.Passes, rep.Stats.Expansions, rep.Duration.Round(time.Microsecond))
	if rep.Suppressed > 0 {
		stats += fmt.Sprintf(" %d suppressed", rep.Suppressed)
	}
	var status string
	switch {
	case errs > 0:
		status = t.paint(errorStyle, fmt.Sprintf("%s: %s, %s", rep.Crate, plural(errs, "error"), plural(warns, "warning")))
	case warns > 0:
		status = t.paint(warningStyle, fmt.Sprintf("%s: %s", rep.Crate, plural(warns, "warning")))
	default:
		status = t.paint(successStyle, rep.Crate+": ok")
	}
	return status + " " + t.paint(statusStyle, stats)
}

func severityStyle(s diag.Severity) lipgloss.Style {
	switch s {
	case diag.SeverityError:
		return errorStyle
	case diag.SeverityWarning:
		return warningStyle
	}
	return noteStyle
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
