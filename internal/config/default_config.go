package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"text/template"

	"github.com/ludo-technologies/cloneval/domain"
)

// defaultConfigTmpl contains the embedded default configuration template
//
//go:embed default_config.toml.tmpl
var defaultConfigTmpl string

// DefaultConfigValues holds all values used to render the default config template.
// All values are sourced from the domain package to ensure a single source of truth.
type DefaultConfigValues struct {
	ToolTimeoutSeconds   int
	MaxReportedPairs     int
	SampleSize           int
	MinClasses           int
	ConfidenceLevel      string
	OracleTimeoutSeconds int
}

func newDefaultConfigValues() DefaultConfigValues {
	return DefaultConfigValues{
		ToolTimeoutSeconds:   domain.DefaultToolTimeoutSeconds,
		MaxReportedPairs:     domain.DefaultMaxReportedPairs,
		SampleSize:           domain.DefaultRecallSampleSize,
		MinClasses:           domain.DefaultMinSampleClasses,
		ConfidenceLevel:      strconv.FormatFloat(domain.DefaultConfidenceLevel, 'f', -1, 64),
		OracleTimeoutSeconds: domain.DefaultOracleTimeoutSeconds,
	}
}

// GenerateDefaultConfigTOML renders the default config template with domain values
// and returns the resulting TOML string.
func GenerateDefaultConfigTOML() (string, error) {
	tmpl, err := template.New("default_config").Parse(defaultConfigTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse default config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newDefaultConfigValues()); err != nil {
		return "", fmt.Errorf("failed to render default config template: %w", err)
	}

	return buf.String(), nil
}
