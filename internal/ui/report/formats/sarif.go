package formats

import (
	"encoding/json"
	"io"
	"path/filepath"
	"sort"

	"nameres/internal/core/ports"
	"nameres/internal/engine/diag"
	"nameres/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool        `json:"tool"`
	AutomationDetails *sarifAutomation `json:"automationDetails,omitempty"`
	Results           []sarifResult    `json:"results"`
}

type sarifAutomation struct {
	ID string `json:"id"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID           string          `json:"ruleId"`
	Level            string          `json:"level"`
	Message          sarifMessage    `json:"message"`
	Locations        []sarifLocation `json:"locations,omitempty"`
	RelatedLocations []sarifLocation `json:"relatedLocations,omitempty"`
	Fixes            []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
	Message          *sarifMessage         `json:"message,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
	ByteOffset  int `json:"byteOffset"`
	ByteLength  int `json:"byteLength"`
}

type sarifFix struct {
	Description     sarifMessage          `json:"description"`
	ArtifactChanges []sarifArtifactChange `json:"artifactChanges"`
}

type sarifArtifactChange struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Replacements     []sarifReplacement    `json:"replacements"`
}

type sarifReplacement struct {
	DeletedRegion   sarifRegion  `json:"deletedRegion"`
	InsertedContent sarifMessage `json:"insertedContent"`
}

// SARIF writes one SARIF run per crate. File URIs are relative to
// ProjectRoot; absolute paths are never included so reports are safe to
// share.
type SARIF struct {
	ProjectRoot string
}

func (SARIF) Name() string { return "sarif" }

func (s SARIF) Render(w io.Writer, reports []ports.RunReport) error {
	doc := sarifReport{Schema: sarifSchema, Version: sarifVersion, Runs: make([]sarifRun, 0, len(reports))}
	for _, rep := range reports {
		doc.Runs = append(doc.Runs, s.run(rep))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (s SARIF) run(rep ports.RunReport) sarifRun {
	results := make([]sarifResult, 0, len(rep.Diagnostics))
	for _, d := range rep.Diagnostics {
		res := sarifResult{
			RuleID:  ruleID(d),
			Level:   sarifLevel(d.Severity),
			Message: sarifMessage{Text: d.Message},
		}
		if !d.Span.IsDummy() {
			res.Locations = []sarifLocation{s.location(d.Span.File, d.Span.Line, d.Span.Col, d.Span.Lo, d.Span.Hi, "")}
		}
		for _, l := range d.Labels {
			if l.Span.IsDummy() {
				continue
			}
			res.RelatedLocations = append(res.RelatedLocations, s.location(l.Span.File, l.Span.Line, l.Span.Col, l.Span.Lo, l.Span.Hi, l.Message))
		}
		for _, sg := range d.Suggestions {
			if sg.Span.IsDummy() {
				continue
			}
			res.Fixes = append(res.Fixes, sarifFix{
				Description: sarifMessage{Text: sg.Message},
				ArtifactChanges: []sarifArtifactChange{{
					ArtifactLocation: s.artifact(sg.Span.File),
					Replacements: []sarifReplacement{{
						DeletedRegion:   sarifRegion{ByteOffset: sg.Span.Lo, ByteLength: sg.Span.Hi - sg.Span.Lo},
						InsertedContent: sarifMessage{Text: sg.Replacement},
					}},
				}},
			})
		}
		results = append(results, res)
	}

	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:    "nameres",
			Version: version.Version,
			Rules:   buildSARIFRules(rep.Diagnostics),
		}},
		Results: results,
	}
	if rep.RunID != "" {
		run.AutomationDetails = &sarifAutomation{ID: rep.Crate + "/" + rep.RunID}
	}
	return run
}

func (s SARIF) artifact(file string) sarifArtifactLocation {
	return sarifArtifactLocation{URI: relativeURI(s.ProjectRoot, file), URIBaseID: "%SRCROOT%"}
}

func (s SARIF) location(file string, line, col, lo, hi int, msg string) sarifLocation {
	loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{ArtifactLocation: s.artifact(file)}}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: line, StartColumn: col, ByteOffset: lo, ByteLength: hi - lo}
	}
	if msg != "" {
		loc.Message = &sarifMessage{Text: msg}
	}
	return loc
}

// ruleID is the error code, the lint name, or the diagnostic kind.
func ruleID(d diag.Diagnostic) string {
	switch {
	case d.Code != "":
		return d.Code
	case d.Lint != "":
		return d.Lint
	}
	return string(d.Kind)
}

// buildSARIFRules returns only the rules that are relevant for the given findings.
func buildSARIFRules(diags []diag.Diagnostic) []sarifRule {
	byID := make(map[string]sarifRule)
	for _, d := range diags {
		id := ruleID(d)
		if _, ok := byID[id]; ok {
			continue
		}
		byID[id] = sarifRule{
			ID:               id,
			Name:             string(d.Kind),
			ShortDescription: sarifMessage{Text: ruleDescription(d)},
			DefaultConfig:    sarifRuleDefaultConfig{Level: sarifLevel(d.Severity)},
		}
	}
	rules := make([]sarifRule, 0, len(byID))
	for _, r := range byID {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

func ruleDescription(d diag.Diagnostic) string {
	if d.Lint != "" {
		return "Lint " + d.Lint + "."
	}
	return "Name resolution: " + string(d.Kind) + "."
}

func sarifLevel(s diag.Severity) string {
	switch s {
	case diag.SeverityError:
		return "error"
	case diag.SeverityWarning:
		return "warning"
	}
	return "note"
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot. If the path is already relative or projectRoot is
// empty, the original path (with forward slashes) is returned.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(projectRoot, filePath)
		if err == nil {
			filePath = rel
		}
	}
	// SARIF URIs use forward slashes.
	return filepath.ToSlash(filePath)
}
