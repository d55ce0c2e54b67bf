package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/stats"
)

func recallFor(t *testing.T, st domain.SimilarityType, covered, sampled int, known int64) domain.StratumRecall {
	t.Helper()
	est, iv, err := stats.Proportion(covered, sampled, 0.95, domain.IntervalWilson)
	require.NoError(t, err)
	return domain.StratumRecall{
		Type:           st,
		KnownClasses:   1,
		KnownPairs:     known,
		SampledClasses: 1,
		SampledPairs:   sampled,
		CoveredPairs:   covered,
		Estimate:       est,
		Interval:       iv,
	}
}

func emptyRecall() *domain.RecallResult {
	r := &domain.RecallResult{
		Strata:          make(map[domain.SimilarityType]domain.StratumRecall),
		ConfidenceLevel: 0.95,
		Method:          domain.IntervalWilson,
	}
	for _, st := range domain.SimilarityTypes {
		r.Strata[st] = domain.StratumRecall{Type: st, Estimate: domain.NotComputable(domain.CaveatNoKnownClasses), Caveat: domain.CaveatNoKnownClasses}
	}
	return r
}

func TestAggregate_SingleStratum(t *testing.T) {
	rec := emptyRecall()
	rec.Strata[domain.Type1] = recallFor(t, domain.Type1, 1, 3, 3)

	res, err := Aggregate(Input{
		Validation: &domain.ValidationResult{Strata: map[domain.SimilarityType]domain.StratumCounts{
			domain.Type1: {TruePositives: 1},
		}},
		Recall: rec,
		Tool:   &domain.ToolOutput{Pairs: make([]domain.ReportedPair, 1), RawRecords: 1},
		Seed:   42,
	})
	require.NoError(t, err)

	t1 := res.Stratum(domain.Type1)
	require.NotNil(t, t1)
	assert.Equal(t, 1, t1.TruePositives)
	assert.Equal(t, domain.Computed(1), t1.Precision)
	assert.InDelta(t, 1.0/3.0, t1.RecallEstimate.Value, 1e-9)
	assert.InDelta(t, 0.5, t1.F1.Value, 1e-9)

	assert.InDelta(t, 1.0/3.0, res.Overall.RecallEstimate.Value, 1e-9)
	assert.True(t, res.Overall.RecallConfidenceInterval.Contains(res.Overall.RecallEstimate.Value))
	assert.Equal(t, uint64(42), res.Seed)
	assert.Len(t, res.Strata, len(domain.SimilarityTypes))
}

func TestAggregate_UnmappedPairsAreUnresolved(t *testing.T) {
	res, err := Aggregate(Input{
		Validation: &domain.ValidationResult{Strata: map[domain.SimilarityType]domain.StratumCounts{}},
		Recall:     emptyRecall(),
		Tool: &domain.ToolOutput{
			RawRecords: 1,
			Unmapped:   []domain.UnmappedPair{{Reason: "no fragment"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Overall.TruePositives)
	assert.Equal(t, 0, res.Overall.FalsePositives)
	assert.Equal(t, 1, res.Overall.UnresolvedCount)
	assert.Equal(t, 1, res.UnmappedPairs)
	assert.False(t, res.Overall.Precision.Computable)
	assert.Equal(t, domain.CaveatNoResolvedPairs, res.Overall.Precision.Reason)
	assert.Contains(t, res.Caveats, "1 reported pairs could not be mapped to fragments")
}

func TestAggregate_UnknownPairsExcludedFromPrecision(t *testing.T) {
	res, err := Aggregate(Input{
		Validation: &domain.ValidationResult{Strata: map[domain.SimilarityType]domain.StratumCounts{
			domain.Type2:        {TruePositives: 3, FalsePositives: 1},
			domain.Unclassified: {Unresolved: 1},
		}},
		Recall: emptyRecall(),
		Tool:   &domain.ToolOutput{Pairs: make([]domain.ReportedPair, 5)},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.75, res.Overall.Precision.Value, 1e-12)
	assert.Equal(t, 1, res.Overall.UnresolvedCount)

	last := res.Strata[len(res.Strata)-1]
	assert.Equal(t, domain.Unclassified, last.Type)
	assert.False(t, last.Precision.Computable)
	assert.False(t, last.RecallEstimate.Computable)
	assert.Equal(t, domain.CaveatNoPopulation, last.RecallEstimate.Reason)
}

func TestAggregate_RecallWeightedByPopulation(t *testing.T) {
	rec := emptyRecall()
	rec.Strata[domain.Type1] = recallFor(t, domain.Type1, 10, 10, 900)
	rec.Strata[domain.WeaklyType3Type4] = recallFor(t, domain.WeaklyType3Type4, 0, 100, 100)

	res, err := Aggregate(Input{
		Validation: &domain.ValidationResult{Strata: map[domain.SimilarityType]domain.StratumCounts{}},
		Recall:     rec,
		Tool:       &domain.ToolOutput{},
	})
	require.NoError(t, err)

	// 0.9*1.0 + 0.1*0.0, regardless of the larger WT3/T4 sample
	assert.InDelta(t, 0.9, res.Overall.RecallEstimate.Value, 1e-12)
	assert.False(t, res.Overall.F1.Computable)
	assert.Equal(t, domain.CaveatNoPrecision, res.Overall.F1.Reason)
}

func TestAggregate_F1(t *testing.T) {
	tests := []struct {
		name string
		p, r domain.Ratio
		want domain.Ratio
	}{
		{"both computable", domain.Computed(0.5), domain.Computed(1), domain.Computed(2.0 / 3.0)},
		{"both zero", domain.Computed(0), domain.Computed(0), domain.Computed(0)},
		{"no precision", domain.NotComputable("x"), domain.Computed(1), domain.NotComputable(domain.CaveatNoPrecision)},
		{"no recall", domain.Computed(1), domain.NotComputable("x"), domain.NotComputable(domain.CaveatNoRecall)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f1(tt.p, tt.r)
			assert.Equal(t, tt.want.Computable, got.Computable)
			assert.InDelta(t, tt.want.Value, got.Value, 1e-12)
			assert.Equal(t, tt.want.Reason, got.Reason)
		})
	}
}

func TestAggregate_PrecisionInUnitInterval(t *testing.T) {
	for tp := 0; tp < 5; tp++ {
		for fp := 0; fp < 5; fp++ {
			p := precision(tp, fp)
			if tp+fp == 0 {
				assert.False(t, p.Computable)
				continue
			}
			assert.GreaterOrEqual(t, p.Value, 0.0)
			assert.LessOrEqual(t, p.Value, 1.0)
		}
	}
}

func TestAggregate_MissingInput(t *testing.T) {
	_, err := Aggregate(Input{})
	assert.True(t, domain.HasCode(err, domain.ErrCodeAnalysisError))
}
