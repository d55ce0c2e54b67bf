package app

import (
	"context"
	"fmt"
	"io"

	"github.com/ludo-technologies/cloneval/domain"
	svc "github.com/ludo-technologies/cloneval/service"
)

// ReferenceUseCase loads a ground truth and reports what it contains
// without running any detector.
type ReferenceUseCase struct {
	service      domain.EvaluationService
	formatter    domain.ReferenceSummaryFormatter
	configLoader domain.EvaluationConfigurationLoader
	output       domain.ReportWriter
}

// NewReferenceUseCase creates a new reference use case
func NewReferenceUseCase(
	service domain.EvaluationService,
	formatter domain.ReferenceSummaryFormatter,
	configLoader domain.EvaluationConfigurationLoader,
) *ReferenceUseCase {
	return &ReferenceUseCase{
		service:      service,
		formatter:    formatter,
		configLoader: configLoader,
		output:       svc.NewFileOutputWriter(nil),
	}
}

// Execute inspects the reference and writes the summary
func (uc *ReferenceUseCase) Execute(ctx context.Context, req domain.EvaluationRequest) error {
	finalReq, summary, err := uc.inspect(ctx, req)
	if err != nil {
		return err
	}

	var out io.Writer
	if finalReq.OutputPath == "" {
		out = finalReq.OutputWriter
	}
	if err := uc.output.Write(out, finalReq.OutputPath, finalReq.OutputFormat, func(w io.Writer) error {
		return uc.formatter.WriteReferenceSummary(summary, finalReq.OutputFormat, w)
	}); err != nil {
		return keepCode(err, domain.NewOutputError, "failed to write output")
	}
	return nil
}

// InspectAndReturn returns the summary without formatting it
func (uc *ReferenceUseCase) InspectAndReturn(ctx context.Context, req domain.EvaluationRequest) (*domain.ReferenceSummary, error) {
	_, summary, err := uc.inspect(ctx, req)
	return summary, err
}

func (uc *ReferenceUseCase) inspect(ctx context.Context, req domain.EvaluationRequest) (domain.EvaluationRequest, *domain.ReferenceSummary, error) {
	if uc.service == nil {
		return req, nil, fmt.Errorf("evaluation service is required")
	}
	finalReq, err := loadAndMergeConfig(uc.configLoader, req)
	if err != nil {
		return req, nil, keepCode(err, domain.NewConfigError, "failed to load configuration")
	}

	summary, err := uc.service.InspectReference(ctx, finalReq)
	if err != nil {
		return finalReq, nil, keepCode(err, domain.NewAnalysisError, "reference inspection failed")
	}
	return finalReq, summary, nil
}
