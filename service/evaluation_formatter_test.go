package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/cloneval/domain"
)

func sampleResponse() *domain.EvaluationResponse {
	return &domain.EvaluationResponse{
		RunID:       "run-1",
		Tool:        "nicad",
		GeneratedAt: "2025-01-01T00:00:00Z",
		Version:     "dev",
		DurationMs:  1500,
		ToolMs:      900,
		Result: &domain.RunResult{
			Strata: []domain.StratumResult{
				{
					Type: domain.Type1,
					MetricSummary: domain.MetricSummary{
						TruePositives:            3,
						FalsePositives:           1,
						Precision:                domain.Computed(0.75),
						RecallEstimate:           domain.Computed(0.5),
						RecallConfidenceInterval: domain.Interval{Lower: 0.2, Upper: 0.8, Computable: true},
						F1:                       domain.Computed(0.6),
					},
					KnownClasses:   2,
					KnownPairs:     4,
					SampledClasses: 2,
					SampledPairs:   4,
					CoveredPairs:   2,
				},
				{
					Type: domain.Type2,
					MetricSummary: domain.MetricSummary{
						Precision:      domain.NotComputable(domain.CaveatNoResolvedPairs),
						RecallEstimate: domain.NotComputable(domain.CaveatNoKnownClasses),
						F1:             domain.NotComputable(domain.CaveatNoPrecision),
					},
					Caveat: domain.CaveatNoKnownClasses,
				},
			},
			Overall: domain.MetricSummary{
				TruePositives:            3,
				FalsePositives:           1,
				UnresolvedCount:          2,
				Precision:                domain.Computed(0.75),
				RecallEstimate:           domain.Computed(0.5),
				RecallConfidenceInterval: domain.Interval{Lower: 0.2, Upper: 0.8, Computable: true},
				F1:                       domain.Computed(0.6),
			},
			ReportedPairs:   5,
			RawRecords:      7,
			DuplicatePairs:  1,
			SelfPairs:       1,
			UnmappedPairs:   2,
			Seed:            42,
			ConfidenceLevel: 0.95,
			IntervalMethod:  domain.IntervalWilson,
			Caveats:         []string{"T2: no known clone classes"},
		},
	}
}

func TestEvaluationFormatter_Text(t *testing.T) {
	out, err := NewEvaluationFormatter().Format(sampleResponse(), domain.OutputFormatText, false)
	require.NoError(t, err)

	assert.Contains(t, out, "Clone Detector Evaluation Report")
	assert.Contains(t, out, "nicad")
	assert.Contains(t, out, "95% (wilson)")
	assert.Contains(t, out, "PER STRATUM")
	assert.Contains(t, out, "[0.200, 0.800]")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "T2: no known clone classes")
	assert.NotContains(t, out, "RECALL SAMPLING")
}

func TestEvaluationFormatter_TextDetails(t *testing.T) {
	out, err := NewEvaluationFormatter().Format(sampleResponse(), domain.OutputFormatText, true)
	require.NoError(t, err)
	assert.Contains(t, out, "RECALL SAMPLING")
	assert.Contains(t, out, "DETECTOR OUTPUT")
	assert.Contains(t, out, "Raw records")
}

func TestEvaluationFormatter_JSON(t *testing.T) {
	out, err := NewEvaluationFormatter().Format(sampleResponse(), domain.OutputFormatJSON, false)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])

	result := decoded["result"].(map[string]any)
	strata := result["strata"].([]any)
	require.Len(t, strata, 2)
	assert.Equal(t, "T1", strata[0].(map[string]any)["stratum"])

	precision := strata[1].(map[string]any)["precision"].(map[string]any)
	assert.Equal(t, false, precision["computable"])
	assert.Equal(t, domain.CaveatNoResolvedPairs, precision["reason"])
}

func TestEvaluationFormatter_YAML(t *testing.T) {
	out, err := NewEvaluationFormatter().Format(sampleResponse(), domain.OutputFormatYAML, false)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	result := decoded["result"].(map[string]any)
	assert.Equal(t, 42, result["seed"])
	strata := result["strata"].([]any)
	assert.Equal(t, 3, strata[0].(map[string]any)["true_positives"])
}

func TestEvaluationFormatter_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEvaluationFormatter().Write(sampleResponse(), domain.OutputFormatCSV, false, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "T1", rows[1][0])
	assert.Equal(t, "0.750000", rows[1][4])
	assert.Equal(t, "0.200000", rows[1][6])
	assert.Equal(t, "", rows[2][4], "non-computable metrics are empty")
	assert.Equal(t, "overall", rows[3][0])
	assert.Equal(t, "2", rows[3][3])
}

func TestEvaluationFormatter_Errors(t *testing.T) {
	f := NewEvaluationFormatter()

	_, err := f.Format(sampleResponse(), domain.OutputFormat("xml"), false)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeUnsupportedFormat))

	_, err = f.Format(&domain.EvaluationResponse{}, domain.OutputFormatText, false)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeOutputError))
}

func TestEvaluationFormatter_ReferenceSummary(t *testing.T) {
	summary := &domain.ReferenceSummary{
		Fragments:     4,
		DeclaredPairs: 3,
		Judgments:     map[string]int{"true": 3, "false": 0, "unknown": 0},
		Strata: []domain.StratumSummary{
			{Type: domain.Type1, Classes: 1, Fragments: 3, KnownPairs: 3, LargestClass: 3},
		},
	}
	f := NewEvaluationFormatter()

	var text bytes.Buffer
	require.NoError(t, f.WriteReferenceSummary(summary, domain.OutputFormatText, &text))
	assert.Contains(t, text.String(), "Clone Reference Summary")
	assert.Contains(t, text.String(), "Declared pairs")

	var buf bytes.Buffer
	require.NoError(t, f.WriteReferenceSummary(summary, domain.OutputFormatCSV, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "T1,1,3,3,3", lines[1])

	buf.Reset()
	require.NoError(t, f.WriteReferenceSummary(summary, domain.OutputFormatJSON, &buf))
	assert.Contains(t, buf.String(), `"declared_pairs": 3`)
}
