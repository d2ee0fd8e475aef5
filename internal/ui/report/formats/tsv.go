package formats

import (
	"fmt"
	"io"
	"strings"

	"nameres/internal/core/ports"
)

// TSV writes one diagnostic per line.
type TSV struct{}

func (TSV) Name() string { return "tsv" }

func (TSV) Render(w io.Writer, reports []ports.RunReport) error {
	var buf strings.Builder
	buf.WriteString("Crate\tSeverity\tCode\tFile\tLine\tColumn\tMessage\n")
	for _, rep := range reports {
		for _, d := range rep.Diagnostics {
			buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				rep.Crate,
				d.Severity,
				ruleID(d),
				d.Span.File,
				d.Span.Line,
				d.Span.Col,
				tsvEscape(d.Message),
			))
		}
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

func tsvEscape(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}
