// Package validator classifies reported pairs against the reference model
// and escalates unknown pairs to an oracle within a fixed budget.
package validator

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/oracle"
	"github.com/ludo-technologies/cloneval/internal/stats"
)

// outcome is how the escalation policy settled an unknown pair.
type outcome struct {
	judgment  domain.Judgment
	typ       domain.SimilarityType
	escalated bool
	failed    bool
}

// Options configures a Validator.
type Options struct {
	Seed       uint64
	MaxWorkers int
	Logger     *slog.Logger
	Progress   domain.ProgressManager
}

// Validator is the pairwise validator. Each unknown pair is settled at most
// once per Validator; later calls reuse the cached outcome.
type Validator struct {
	model    domain.ReferenceModel
	oracle   domain.Oracle
	seed     uint64
	workers  int
	logger   *slog.Logger
	progress domain.ProgressManager

	mu    sync.Mutex
	cache map[domain.PairKey]outcome
}

// New creates a validator. A nil oracle never resolves anything.
func New(model domain.ReferenceModel, o domain.Oracle, opts Options) *Validator {
	if o == nil {
		o = oracle.None{}
	}
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{
		model:    model,
		oracle:   o,
		seed:     opts.Seed,
		workers:  workers,
		logger:   logger,
		progress: opts.Progress,
		cache:    make(map[domain.PairKey]outcome),
	}
}

type pending struct {
	key domain.PairKey
	typ domain.SimilarityType
}

// Validate classifies every pair. Confirmed-true pairs are true positives,
// confirmed-false pairs false positives. Unknown pairs are escalated while
// budget remains, in an order fixed by the seed; the rest are unresolved and
// excluded from precision. Oracle failures are logged and count as
// unresolved. Only context cancellation is returned as an error.
func (v *Validator) Validate(ctx context.Context, pairs []domain.ReportedPair, budget *oracle.Budget) (*domain.ValidationResult, error) {
	if budget == nil {
		budget = oracle.NewBudget(0)
	}
	result := &domain.ValidationResult{
		Strata:          make(map[domain.SimilarityType]domain.StratumCounts),
		ClassifiedPairs: len(pairs),
	}

	var unknown []pending
	for _, p := range pairs {
		j, t := v.model.Judge(p.Key)
		switch j {
		case domain.JudgmentTrue, domain.JudgmentFalse:
			record(result, outcome{judgment: j, typ: t})
		default:
			unknown = append(unknown, pending{key: p.Key, typ: t})
		}
	}

	fresh := make([]pending, 0, len(unknown))
	v.mu.Lock()
	for _, u := range unknown {
		if o, ok := v.cache[u.key]; ok {
			record(result, o)
			continue
		}
		fresh = append(fresh, u)
	}
	v.mu.Unlock()

	escalate, skipped := v.selectEscalations(fresh, budget)
	for _, u := range skipped {
		o := outcome{judgment: domain.JudgmentUnknown, typ: u.typ}
		v.store(u.key, o)
		record(result, o)
	}

	outcomes, err := v.escalate(ctx, escalate)
	if err != nil {
		return nil, err
	}
	for i, u := range escalate {
		v.store(u.key, outcomes[i])
		record(result, outcomes[i])
	}

	result.BudgetRemaining = budget.Remaining()
	v.logger.Debug("validation finished",
		"pairs", len(pairs),
		"unknown", len(unknown),
		"escalated", len(escalate),
		"budget_remaining", result.BudgetRemaining)
	return result, nil
}

// selectEscalations orders pairs by key, shuffles them with the escalation
// stream of the seed and takes budget in that order.
func (v *Validator) selectEscalations(fresh []pending, budget *oracle.Budget) (escalate, skipped []pending) {
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].key.Less(fresh[j].key) })
	r := stats.NewRand(v.seed, stats.StreamEscalation)
	stats.Shuffle(r, len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })

	for i, u := range fresh {
		if !budget.TryAcquire() {
			skipped = append(skipped, fresh[i:]...)
			break
		}
		escalate = append(escalate, u)
	}
	return escalate, skipped
}

// escalate asks the oracle about each pair concurrently.
func (v *Validator) escalate(ctx context.Context, items []pending) ([]outcome, error) {
	outcomes := make([]outcome, len(items))
	if len(items) == 0 {
		return outcomes, nil
	}

	if v.progress != nil {
		v.progress.Initialize(len(items))
		v.progress.Start()
	}
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, u := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = v.ask(gctx, u)
			if v.progress != nil {
				v.progress.Update(int(done.Add(1)), len(items))
			}
			return nil
		})
	}
	err := g.Wait()
	if v.progress != nil {
		v.progress.Complete(err == nil)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (v *Validator) ask(ctx context.Context, u pending) outcome {
	first := v.model.Fragment(u.key.A)
	second := v.model.Fragment(u.key.B)
	o := outcome{judgment: domain.JudgmentUnknown, typ: u.typ, escalated: true}
	if first == nil || second == nil {
		o.failed = true
		return o
	}

	verdict, err := v.oracle.Judge(ctx, first, second)
	if err != nil {
		v.logger.Warn("oracle failed", "a", first.ID, "b", second.ID, "error", err)
		o.failed = true
		return o
	}
	o.judgment = verdict.Judgment
	if verdict.Type.IsStratum() {
		o.typ = verdict.Type
	}
	return o
}

func (v *Validator) store(key domain.PairKey, o outcome) {
	v.mu.Lock()
	v.cache[key] = o
	v.mu.Unlock()
}

// Cached returns the number of settled unknown pairs
func (v *Validator) Cached() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.cache)
}

// record adds one settled pair to the counts of its stratum.
func record(result *domain.ValidationResult, o outcome) {
	c := result.Strata[o.typ]
	switch o.judgment {
	case domain.JudgmentTrue:
		c.TruePositives++
	case domain.JudgmentFalse:
		c.FalsePositives++
	default:
		c.Unresolved++
	}
	if o.escalated {
		c.Escalated++
		result.EscalatedPairs++
	}
	if o.failed {
		result.EscalationFailed++
	}
	result.Strata[o.typ] = c
}
