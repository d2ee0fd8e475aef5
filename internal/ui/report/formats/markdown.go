package formats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"nameres/internal/core/ports"
)

// collapseAfter is the diagnostic count above which a crate's table is
// folded into a <details> block.
const collapseAfter = 10

// Markdown renders a summary suitable for CI job pages.
type Markdown struct{}

func (Markdown) Name() string { return "markdown" }

func (m Markdown) Render(w io.Writer, reports []ports.RunReport) error {
	var b strings.Builder
	b.WriteString("# Name Resolution Report\n\n")
	b.WriteString("| Crate | Edition | Errors | Warnings | Passes | Expansions | Duration |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for _, rep := range reports {
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %s |\n",
			rep.Crate, rep.Edition, rep.ErrorCount(), rep.WarningCount(),
			rep.Stats.Passes, rep.Stats.Expansions, rep.Duration.Round(time.Microsecond)))
	}
	b.WriteString("\n")

	for _, rep := range reports {
		if len(rep.Diagnostics) == 0 {
			continue
		}
		b.WriteString("## " + rep.Crate + "\n\n")
		rows := make([]string, 0, len(rep.Diagnostics))
		for _, d := range rep.Diagnostics {
			rows = append(rows, fmt.Sprintf("| %s | %s | %s | `%s:%d:%d` |\n",
				d.Severity, nonEmpty(ruleID(d), "-"), mdEscape(d.Message), d.Span.File, d.Span.Line, d.Span.Col))
		}
		m.writeTableWithCollapse(&b,
			fmt.Sprintf("%d diagnostics", len(rows)),
			len(rows) > collapseAfter,
			[]string{"| Severity | Code | Message | Location |\n", "| --- | --- | --- | --- |\n"},
			rows,
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (Markdown) writeTableWithCollapse(b *strings.Builder, summary string, collapse bool, header, rows []string) {
	if collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapse {
		b.WriteString("</details>\n\n")
	}
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
