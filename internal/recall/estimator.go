// Package recall estimates per-stratum recall by sampling known clone
// classes and checking which of their pairs a detector reported.
package recall

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/stats"
)

// Options configures an Estimator.
type Options struct {
	Seed               uint64
	SampleSize         int
	MinClasses         int
	AllowPartialSample bool
	ConfidenceLevel    float64
	Method             domain.IntervalMethod
	Logger             *slog.Logger
}

// OptionsFromConfig converts sampling configuration into estimator options.
// cfg must have been validated.
func OptionsFromConfig(cfg domain.SamplingConfig, logger *slog.Logger) Options {
	var seed uint64
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	return Options{
		Seed:               seed,
		SampleSize:         cfg.SampleSize,
		MinClasses:         cfg.MinClasses,
		AllowPartialSample: cfg.PartialSampleAllowed(),
		ConfidenceLevel:    cfg.ConfidenceLevel,
		Method:             cfg.IntervalMethod,
		Logger:             logger,
	}
}

// Estimator is the recall estimator. It only reads the model and the
// reported pairs, so one Estimator may serve concurrent calls.
type Estimator struct {
	model domain.ReferenceModel
	opts  Options
}

// New creates an estimator over model.
func New(model domain.ReferenceModel, opts Options) *Estimator {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = domain.DefaultRecallSampleSize
	}
	if opts.MinClasses <= 0 {
		opts.MinClasses = domain.DefaultMinSampleClasses
	}
	if opts.ConfidenceLevel == 0 {
		opts.ConfidenceLevel = domain.DefaultConfidenceLevel
	}
	if opts.Method == "" {
		opts.Method = domain.IntervalWilson
	}
	return &Estimator{model: model, opts: opts}
}

// Estimate samples every stratum in parallel. Each stratum draws from its
// own generator seeded by (seed, stratum) and shares nothing mutable with
// the others. A stratum that cannot be sampled is reported as not
// computable with a caveat; only cancellation and invalid options fail the
// call.
func (e *Estimator) Estimate(ctx context.Context, reported []domain.ReportedPair) (*domain.RecallResult, error) {
	if _, err := stats.ZScore(e.opts.ConfidenceLevel); err != nil {
		return nil, domain.NewInvalidInputError("invalid confidence level", err)
	}

	covered := make(map[domain.PairKey]struct{}, len(reported))
	for _, p := range reported {
		covered[p.Key] = struct{}{}
	}

	results := make([]domain.StratumRecall, len(domain.SimilarityTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range domain.SimilarityTypes {
		g.Go(func() error {
			r, err := e.estimateStratum(gctx, t, covered)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &domain.RecallResult{
		Strata:          make(map[domain.SimilarityType]domain.StratumRecall, len(results)),
		ConfidenceLevel: e.opts.ConfidenceLevel,
		Method:          e.opts.Method,
	}
	for _, r := range results {
		out.Strata[r.Type] = r
	}
	return out, nil
}

func (e *Estimator) estimateStratum(ctx context.Context, t domain.SimilarityType, covered map[domain.PairKey]struct{}) (domain.StratumRecall, error) {
	classes := e.model.ClassesOf(t)
	r := domain.StratumRecall{
		Type:         t,
		KnownClasses: len(classes),
		KnownPairs:   e.model.Population(t),
	}

	n := len(classes)
	k := e.opts.SampleSize
	switch {
	case n == 0:
		r.Estimate = domain.NotComputable(domain.CaveatNoKnownClasses)
		r.Caveat = domain.CaveatNoKnownClasses
		return r, nil
	case n < e.opts.MinClasses, n < k && !e.opts.AllowPartialSample:
		required := e.opts.MinClasses
		if n >= required {
			required = k
		}
		err := domain.NewInsufficientSampleError(t, n, required)
		e.opts.Logger.Warn("recall not computable", "stratum", t, "error", err)
		r.Estimate = domain.NotComputable(domain.CaveatInsufficient)
		r.Caveat = err.Error()
		return r, nil
	case n < k:
		k = n
		r.Caveat = domain.CaveatPartialSample
	}

	rng := stats.NewRand(e.opts.Seed, stats.StreamRecallBase+uint64(t))
	sample := stats.SampleIndices(rng, n, k)

	for _, idx := range sample {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		class := &classes[idx]
		r.SampledClasses++
		class.Pairs(func(key domain.PairKey) bool {
			r.SampledPairs++
			if _, ok := covered[key]; ok {
				r.CoveredPairs++
			}
			return true
		})
	}

	est, iv, err := stats.Proportion(r.CoveredPairs, r.SampledPairs, e.opts.ConfidenceLevel, e.opts.Method)
	if err != nil {
		return r, err
	}
	r.Estimate = est
	r.Interval = iv

	e.opts.Logger.Debug("recall sampled",
		"stratum", t,
		"classes", n,
		"sampled_classes", r.SampledClasses,
		"sampled_pairs", r.SampledPairs,
		"covered", r.CoveredPairs)
	return r, nil
}
