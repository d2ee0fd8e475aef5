// Package diag holds the structured diagnostics produced by resolution and
// the sink that batches, sorts and deduplicates them.
package diag

import (
	"fmt"
	"nameres/internal/engine/ast"
	"strings"
)

// Kind is the stable category of a diagnostic.
type Kind string

const (
	KindUnresolved       Kind = "unresolved"
	KindAmbiguous        Kind = "ambiguous"
	KindConflict         Kind = "conflict"
	KindIllegalUse       Kind = "illegal-use"
	KindPrivacy          Kind = "privacy"
	KindUnresolvedImport Kind = "unresolved-import"
	KindLint             Kind = "lint"
	// KindSyntax is produced by the parser, never by the resolver.
	KindSyntax Kind = "syntax"
)

type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	}
	return "unknown"
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "note":
		*s = SeverityNote
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

type Applicability string

const (
	MachineApplicable Applicability = "machine-applicable"
	MaybeIncorrect    Applicability = "maybe-incorrect"
	HasPlaceholders   Applicability = "has-placeholders"
	Unspecified       Applicability = "unspecified"
)

type Label struct {
	Span    ast.Span `json:"span" yaml:"span"`
	Message string   `json:"message" yaml:"message"`
}

// Suggestion replaces the text at Span with Replacement. An empty span with
// Lo == Hi is an insertion.
type Suggestion struct {
	Message       string        `json:"message" yaml:"message"`
	Span          ast.Span      `json:"span" yaml:"span"`
	Replacement   string        `json:"replacement" yaml:"replacement"`
	Applicability Applicability `json:"applicability" yaml:"applicability"`
}

type Diagnostic struct {
	Code        string       `json:"code,omitempty" yaml:"code,omitempty"`
	Kind        Kind         `json:"kind" yaml:"kind"`
	Severity    Severity     `json:"severity" yaml:"severity"`
	Message     string       `json:"message" yaml:"message"`
	Span        ast.Span     `json:"span" yaml:"span"`
	Labels      []Label      `json:"labels,omitempty" yaml:"labels,omitempty"`
	Notes       []string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	// Lint is the lint name for KindLint diagnostics.
	Lint string `json:"lint,omitempty" yaml:"lint,omitempty"`
}

func Errorf(kind Kind, code string, sp ast.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Kind: kind, Severity: SeverityError, Message: fmt.Sprintf(format, args...), Span: sp}
}

// Lintf builds a warning for the named lint. The collector may raise or drop
// it according to the configured level.
func Lintf(lint string, sp ast.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: KindLint, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Span: sp, Lint: lint}
}

func (d *Diagnostic) Label(sp ast.Span, format string, args ...any) *Diagnostic {
	d.Labels = append(d.Labels, Label{Span: sp, Message: fmt.Sprintf(format, args...)})
	return d
}

func (d *Diagnostic) Note(format string, args ...any) *Diagnostic {
	d.Notes = append(d.Notes, fmt.Sprintf(format, args...))
	return d
}

func (d *Diagnostic) Suggest(msg string, sp ast.Span, replacement string, app Applicability) *Diagnostic {
	d.Suggestions = append(d.Suggestions, Suggestion{Message: msg, Span: sp, Replacement: replacement, Applicability: app})
	return d
}

func (d Diagnostic) IsError() bool { return d.Severity == SeverityError }

// Header renders the first line, e.g. "error[E0425]: cannot find value `x`".
func (d Diagnostic) Header() string {
	var b strings.Builder
	b.WriteString(d.Severity.String())
	if d.Code != "" {
		b.WriteString("[" + d.Code + "]")
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

func (d Diagnostic) String() string {
	return d.Span.String() + ": " + d.Header()
}

// Less is the total order used by Finalize.
func (d Diagnostic) Less(o Diagnostic) bool {
	if d.Span != o.Span {
		return d.Span.Less(o.Span)
	}
	if d.Code != o.Code {
		return d.Code < o.Code
	}
	if d.Message != o.Message {
		return d.Message < o.Message
	}
	return d.Kind < o.Kind
}

func (d Diagnostic) key() string {
	return fmt.Sprintf("%s|%d|%d|%s|%s|%s", d.Span.File, d.Span.Lo, d.Span.Hi, d.Code, d.Kind, d.Message)
}
