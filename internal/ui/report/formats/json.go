package formats

import (
	"encoding/json"
	"io"

	"nameres/internal/core/ports"

	"gopkg.in/yaml.v3"
)

type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Render(w io.Writer, reports []ports.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(nonNil(reports))
}

type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) Render(w io.Writer, reports []ports.RunReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(nonNil(reports)); err != nil {
		return err
	}
	return enc.Close()
}

func nonNil(reports []ports.RunReport) []ports.RunReport {
	if reports == nil {
		return []ports.RunReport{}
	}
	return reports
}
