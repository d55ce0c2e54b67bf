// Package stats holds the interval estimators and seeded sampling used by
// the recall estimator and the metrics aggregator.
package stats

import (
	"fmt"
	"math"

	"github.com/ludo-technologies/cloneval/domain"
)

// ZScore returns the two-sided normal quantile for a confidence level,
// e.g. 1.95996 for 0.95.
func ZScore(level float64) (float64, error) {
	if level <= 0 || level >= 1 || math.IsNaN(level) {
		return 0, fmt.Errorf("confidence level must be in (0, 1), got %v", level)
	}
	return math.Sqrt2 * math.Erfinv(level), nil
}

// Proportion computes a point estimate and interval for successes out of n
// trials with the given method. n == 0 yields a non-computable result.
func Proportion(successes, n int, level float64, method domain.IntervalMethod) (domain.Ratio, domain.Interval, error) {
	if n <= 0 {
		return domain.NotComputable("empty sample"), domain.Interval{}, nil
	}
	if successes < 0 || successes > n {
		return domain.Ratio{}, domain.Interval{}, fmt.Errorf("successes %d out of range for n=%d", successes, n)
	}
	z, err := ZScore(level)
	if err != nil {
		return domain.Ratio{}, domain.Interval{}, err
	}

	p := float64(successes) / float64(n)
	var iv domain.Interval
	switch method {
	case domain.IntervalNormal:
		iv = Normal(p, n, z)
	case domain.IntervalWilson, "":
		iv = Wilson(p, n, z)
	default:
		return domain.Ratio{}, domain.Interval{}, fmt.Errorf("unknown interval method %q", method)
	}
	return domain.Computed(p), iv, nil
}

// Wilson returns the Wilson score interval for proportion p over n trials.
func Wilson(p float64, n int, z float64) domain.Interval {
	if n <= 0 {
		return domain.Interval{}
	}
	nf := float64(n)
	z2 := z * z
	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / denom
	return clampAround(center-half, center+half, p)
}

// Normal returns the normal-approximation (Wald) interval for proportion p
// over n trials.
func Normal(p float64, n int, z float64) domain.Interval {
	if n <= 0 {
		return domain.Interval{}
	}
	half := z * math.Sqrt(p*(1-p)/float64(n))
	return clampAround(p-half, p+half, p)
}

// StratumEstimate is one stratum's contribution to a stratified estimate.
type StratumEstimate struct {
	Weight float64
	P      float64
	N      int
}

// Stratified combines per-stratum proportions into a weighted mean with a
// normal-approximation interval. Strata with zero weight or n are skipped.
func Stratified(strata []StratumEstimate, level float64) (domain.Ratio, domain.Interval, error) {
	z, err := ZScore(level)
	if err != nil {
		return domain.Ratio{}, domain.Interval{}, err
	}

	var total float64
	for _, s := range strata {
		if s.Weight > 0 && s.N > 0 {
			total += s.Weight
		}
	}
	if total == 0 {
		return domain.NotComputable("no stratum with a computable estimate"), domain.Interval{}, nil
	}

	var point, variance float64
	for _, s := range strata {
		if s.Weight <= 0 || s.N <= 0 {
			continue
		}
		w := s.Weight / total
		point += w * s.P
		variance += w * w * s.P * (1 - s.P) / float64(s.N)
	}
	point = clamp01(point)
	half := z * math.Sqrt(variance)
	return domain.Computed(point), clampAround(point-half, point+half, point), nil
}

// clampAround clamps [lo, hi] to [0, 1] and widens it to contain p.
func clampAround(lo, hi, p float64) domain.Interval {
	lo = math.Min(clamp01(lo), p)
	hi = math.Max(clamp01(hi), p)
	return domain.Interval{Lower: lo, Upper: hi, Computable: true}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
