package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/adapter"
	"github.com/ludo-technologies/cloneval/internal/metrics"
	"github.com/ludo-technologies/cloneval/internal/oracle"
	"github.com/ludo-technologies/cloneval/internal/recall"
	"github.com/ludo-technologies/cloneval/internal/reference"
	"github.com/ludo-technologies/cloneval/internal/validator"
	"github.com/ludo-technologies/cloneval/internal/version"
)

// EvaluationServiceImpl implements the domain.EvaluationService interface.
//
// A run goes through five stages: load the corpus index and reference model,
// set up the oracle, run the detector, validate and estimate recall
// concurrently, then aggregate. Configuration errors surface before the
// detector starts; any fatal error aborts before a RunResult exists.
type EvaluationServiceImpl struct {
	logger     *slog.Logger
	progress   domain.ProgressManager
	references *ReferenceLoader
	newAdapter func(resolver adapter.FragmentResolver, logger *slog.Logger) domain.ToolAdapter
	newOracle  func(cfg domain.OracleConfig, logger *slog.Logger) (domain.Oracle, error)
	now        func() time.Time
}

var _ domain.EvaluationService = (*EvaluationServiceImpl)(nil)

// NewEvaluationService creates a new evaluation service.
// logger and progress may be nil.
func NewEvaluationService(logger *slog.Logger, progress domain.ProgressManager) *EvaluationServiceImpl {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EvaluationServiceImpl{
		logger:     logger,
		progress:   progress,
		references: NewReferenceLoader(),
		newAdapter: func(resolver adapter.FragmentResolver, logger *slog.Logger) domain.ToolAdapter {
			return adapter.NewRunner(resolver, logger)
		},
		newOracle: oracle.New,
		now:       time.Now,
	}
}

// Evaluate runs the full pipeline for req
func (s *EvaluationServiceImpl) Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResponse, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := s.now()
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID, "tool", req.Tool.DisplayName())

	model, err := s.loadReference(ctx, req, logger)
	if err != nil {
		return nil, err
	}

	orc, err := s.newOracle(req.Oracle, logger)
	if err != nil {
		return nil, err
	}

	toolCfg := req.Tool
	toolCfg.CorpusRoot = req.CorpusRoot
	logger.Info("running detector", "command", toolCfg.Command, "timeout", toolCfg.Timeout())
	toolOut, err := s.newAdapter(model, logger).Run(ctx, toolCfg)
	if err != nil {
		return nil, err
	}
	logger.Info("detector finished",
		"duration", toolOut.Duration,
		"records", toolOut.RawRecords,
		"pairs", len(toolOut.Pairs),
		"unmapped", len(toolOut.Unmapped))

	seed := *req.Sampling.Seed
	budget := oracle.NewBudget(*req.Oracle.EscalationBudget)

	v := validator.New(model, orc, validator.Options{
		Seed:       seed,
		MaxWorkers: req.MaxWorkers,
		Logger:     logger,
		Progress:   s.progress,
	})
	est := recall.New(model, recall.OptionsFromConfig(req.Sampling, logger))

	var (
		validation *domain.ValidationResult
		recallRes  *domain.RecallResult
	)
	executor := NewParallelExecutor()
	executor.SetTimeout(0)
	err = executor.Execute(ctx, []domain.ExecutableTask{
		NewSimpleTask("validate", true, func(ctx context.Context) (interface{}, error) {
			res, err := v.Validate(ctx, toolOut.Pairs, budget)
			validation = res
			return res, err
		}),
		NewSimpleTask("recall", true, func(ctx context.Context) (interface{}, error) {
			res, err := est.Estimate(ctx, toolOut.Pairs)
			recallRes = res
			return res, err
		}),
	})
	if err != nil {
		return nil, err
	}

	result, err := metrics.Aggregate(metrics.Input{
		Validation: validation,
		Recall:     recallRes,
		Tool:       toolOut,
		Seed:       seed,
	})
	if err != nil {
		return nil, err
	}

	end := s.now()
	logger.Info("evaluation finished",
		"precision", result.Overall.Precision.Value,
		"recall", result.Overall.RecallEstimate.Value,
		"escalated", result.EscalatedPairs,
		"duration", end.Sub(start))

	return &domain.EvaluationResponse{
		RunID:       runID,
		Tool:        req.Tool.DisplayName(),
		GeneratedAt: end.UTC().Format(time.RFC3339),
		Version:     version.Version,
		DurationMs:  end.Sub(start).Milliseconds(),
		ToolMs:      toolOut.Duration.Milliseconds(),
		Result:      result,
	}, nil
}

// InspectReference loads the corpus index and ground truth named by req and
// summarizes them. Only the corpus and reference fields are used.
func (s *EvaluationServiceImpl) InspectReference(ctx context.Context, req domain.EvaluationRequest) (*domain.ReferenceSummary, error) {
	if req.CorpusIndexPath == "" {
		return nil, domain.NewValidationError("corpus index path cannot be empty")
	}
	if req.ReferencePath == "" {
		return nil, domain.NewValidationError("reference path cannot be empty")
	}
	model, err := s.loadReference(ctx, req, s.logger)
	if err != nil {
		return nil, err
	}
	return model.Summary(), nil
}

func (s *EvaluationServiceImpl) loadReference(ctx context.Context, req domain.EvaluationRequest, logger *slog.Logger) (*reference.Model, error) {
	store, err := LoadCorpusIndex(req.CorpusIndexPath, req.IncludePatterns, req.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded corpus index", "path", req.CorpusIndexPath, "fragments", store.Len(), "filtered", store.Filtered())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model, err := s.references.Load(store, req.ReferencePath)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded reference", "path", req.ReferencePath, "declared_pairs", model.DeclaredPairs())
	return model, ctx.Err()
}
