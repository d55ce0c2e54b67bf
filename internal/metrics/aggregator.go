// Package metrics merges validator and estimator outputs into a RunResult.
package metrics

import (
	"fmt"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/stats"
)

// Input is everything one run contributes to its RunResult.
type Input struct {
	Validation *domain.ValidationResult
	Recall     *domain.RecallResult
	Tool       *domain.ToolOutput
	Seed       uint64
}

// Aggregate builds the RunResult. Strata come in taxonomy order, followed by
// the Unclassified bucket when any reported pair fell into it. Overall
// precision pools resolved counts; overall recall weights each computable
// stratum by its known population, not its sample size.
func Aggregate(in Input) (*domain.RunResult, error) {
	if in.Validation == nil || in.Recall == nil || in.Tool == nil {
		return nil, domain.NewAnalysisError("aggregation needs validation, recall and tool results", nil)
	}

	res := &domain.RunResult{
		ReportedPairs:    len(in.Tool.Pairs),
		RawRecords:       in.Tool.RawRecords,
		DuplicatePairs:   in.Tool.DuplicatePairs,
		SelfPairs:        in.Tool.SelfPairs,
		UnmappedPairs:    len(in.Tool.Unmapped),
		EscalatedPairs:   in.Validation.EscalatedPairs,
		EscalationFailed: in.Validation.EscalationFailed,
		Seed:             in.Seed,
		ConfidenceLevel:  in.Recall.ConfidenceLevel,
		IntervalMethod:   in.Recall.Method,
	}

	var weighted []stats.StratumEstimate
	var overall domain.MetricSummary
	for _, t := range domain.SimilarityTypes {
		counts := in.Validation.Strata[t]
		rec := in.Recall.Strata[t]
		sr := stratumResult(t, counts, rec)
		res.Strata = append(res.Strata, sr)
		addCounts(&overall, counts)

		if rec.Estimate.Computable && rec.SampledPairs > 0 {
			weighted = append(weighted, stats.StratumEstimate{
				Weight: float64(rec.KnownPairs),
				P:      rec.Estimate.Value,
				N:      rec.SampledPairs,
			})
		}
		if sr.Caveat != "" {
			res.Caveats = append(res.Caveats, fmt.Sprintf("%s: %s", t, sr.Caveat))
		}
	}

	if counts, ok := in.Validation.Strata[domain.Unclassified]; ok {
		sr := stratumResult(domain.Unclassified, counts, domain.StratumRecall{
			Type:     domain.Unclassified,
			Estimate: domain.NotComputable(domain.CaveatNoPopulation),
		})
		res.Strata = append(res.Strata, sr)
		addCounts(&overall, counts)
	}

	overall.UnresolvedCount += len(in.Tool.Unmapped)
	overall.Precision = precision(overall.TruePositives, overall.FalsePositives)

	recall, iv, err := stats.Stratified(weighted, in.Recall.ConfidenceLevel)
	if err != nil {
		return nil, domain.NewAnalysisError("cannot combine stratum recall", err)
	}
	overall.RecallEstimate = recall
	overall.RecallConfidenceInterval = iv
	overall.F1 = f1(overall.Precision, overall.RecallEstimate)
	res.Overall = overall

	if n := len(in.Tool.Unmapped); n > 0 {
		res.Caveats = append(res.Caveats, fmt.Sprintf("%d reported pairs could not be mapped to fragments", n))
	}
	if overall.UnresolvedCount > 0 {
		res.Caveats = append(res.Caveats, fmt.Sprintf("%d pairs unresolved and excluded from precision", overall.UnresolvedCount))
	}
	return res, nil
}

func addCounts(s *domain.MetricSummary, c domain.StratumCounts) {
	s.TruePositives += c.TruePositives
	s.FalsePositives += c.FalsePositives
	s.UnresolvedCount += c.Unresolved
}

func stratumResult(t domain.SimilarityType, c domain.StratumCounts, r domain.StratumRecall) domain.StratumResult {
	sr := domain.StratumResult{
		Type:           t,
		KnownClasses:   r.KnownClasses,
		KnownPairs:     r.KnownPairs,
		SampledClasses: r.SampledClasses,
		SampledPairs:   r.SampledPairs,
		CoveredPairs:   r.CoveredPairs,
		EscalatedPairs: c.Escalated,
		Caveat:         r.Caveat,
	}
	sr.TruePositives = c.TruePositives
	sr.FalsePositives = c.FalsePositives
	sr.UnresolvedCount = c.Unresolved
	sr.Precision = precision(c.TruePositives, c.FalsePositives)
	sr.RecallEstimate = r.Estimate
	if !sr.RecallEstimate.Computable && sr.RecallEstimate.Reason == "" {
		sr.RecallEstimate = domain.NotComputable(domain.CaveatNoRecall)
	}
	sr.RecallConfidenceInterval = r.Interval
	sr.F1 = f1(sr.Precision, sr.RecallEstimate)
	return sr
}

// precision is TP / (TP + FP), undefined when nothing was resolved.
func precision(tp, fp int) domain.Ratio {
	if tp+fp == 0 {
		return domain.NotComputable(domain.CaveatNoResolvedPairs)
	}
	return domain.Computed(float64(tp) / float64(tp+fp))
}

// f1 is the harmonic mean of precision and recall, defined only when both are.
func f1(p, r domain.Ratio) domain.Ratio {
	switch {
	case !p.Computable:
		return domain.NotComputable(domain.CaveatNoPrecision)
	case !r.Computable:
		return domain.NotComputable(domain.CaveatNoRecall)
	case p.Value+r.Value == 0:
		return domain.Computed(0)
	default:
		return domain.Computed(2 * p.Value * r.Value / (p.Value + r.Value))
	}
}
