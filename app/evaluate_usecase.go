package app

import (
	"context"
	"fmt"
	"io"

	"github.com/ludo-technologies/cloneval/domain"
	svc "github.com/ludo-technologies/cloneval/service"
)

// EvaluateUseCase orchestrates one detector evaluation: configuration,
// the evaluation pipeline and report output.
type EvaluateUseCase struct {
	service      domain.EvaluationService
	formatter    domain.EvaluationOutputFormatter
	configLoader domain.EvaluationConfigurationLoader
	output       domain.ReportWriter
}

// NewEvaluateUseCase creates a new evaluate use case
func NewEvaluateUseCase(
	service domain.EvaluationService,
	formatter domain.EvaluationOutputFormatter,
	configLoader domain.EvaluationConfigurationLoader,
) *EvaluateUseCase {
	return &EvaluateUseCase{
		service:      service,
		formatter:    formatter,
		configLoader: configLoader,
		output:       svc.NewFileOutputWriter(nil),
	}
}

// Execute runs the evaluation and writes the report
func (uc *EvaluateUseCase) Execute(ctx context.Context, req domain.EvaluationRequest) error {
	finalReq, response, err := uc.run(ctx, req)
	if err != nil {
		return err
	}

	var out io.Writer
	if finalReq.OutputPath == "" {
		out = finalReq.OutputWriter
	}
	if err := uc.output.Write(out, finalReq.OutputPath, finalReq.OutputFormat, func(w io.Writer) error {
		return uc.formatter.Write(response, finalReq.OutputFormat, finalReq.ShowDetails, w)
	}); err != nil {
		return keepCode(err, domain.NewOutputError, "failed to write output")
	}
	return nil
}

// EvaluateAndReturn runs the evaluation and returns the response without
// formatting it
func (uc *EvaluateUseCase) EvaluateAndReturn(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResponse, error) {
	_, response, err := uc.run(ctx, req)
	return response, err
}

func (uc *EvaluateUseCase) run(ctx context.Context, req domain.EvaluationRequest) (domain.EvaluationRequest, *domain.EvaluationResponse, error) {
	finalReq, err := uc.loadAndMergeConfig(req)
	if err != nil {
		return req, nil, keepCode(err, domain.NewConfigError, "failed to load configuration")
	}
	if err := finalReq.Validate(); err != nil {
		return finalReq, nil, err
	}

	response, err := uc.service.Evaluate(ctx, finalReq)
	if err != nil {
		return finalReq, nil, keepCode(err, domain.NewAnalysisError, "evaluation failed")
	}
	return finalReq, response, nil
}

// loadAndMergeConfig loads configuration from file and merges with request
func (uc *EvaluateUseCase) loadAndMergeConfig(req domain.EvaluationRequest) (domain.EvaluationRequest, error) {
	return loadAndMergeConfig(uc.configLoader, req)
}

func loadAndMergeConfig(loader domain.EvaluationConfigurationLoader, req domain.EvaluationRequest) (domain.EvaluationRequest, error) {
	if loader == nil {
		return req, nil
	}

	configReq, err := loader.LoadConfig(req.ConfigPath)
	if err != nil {
		if req.ConfigPath != "" {
			return req, fmt.Errorf("failed to load config from %s: %w", req.ConfigPath, err)
		}
		return req, err
	}
	if configReq == nil {
		return req, nil
	}

	// Merge config with request (explicit flags take precedence)
	merged := loader.MergeConfig(configReq, &req)
	return *merged, nil
}

// keepCode wraps err unless it already carries a domain error code, so the
// original category survives up to the CLI.
func keepCode(err error, wrap func(string, error) error, message string) error {
	if domain.CodeOf(err) != "" {
		return err
	}
	return wrap(message, err)
}

// EvaluateUseCaseBuilder provides a builder pattern for creating EvaluateUseCase
type EvaluateUseCaseBuilder struct {
	service      domain.EvaluationService
	formatter    domain.EvaluationOutputFormatter
	configLoader domain.EvaluationConfigurationLoader
	output       domain.ReportWriter
}

// NewEvaluateUseCaseBuilder creates a new builder
func NewEvaluateUseCaseBuilder() *EvaluateUseCaseBuilder {
	return &EvaluateUseCaseBuilder{}
}

// WithService sets the evaluation service
func (b *EvaluateUseCaseBuilder) WithService(service domain.EvaluationService) *EvaluateUseCaseBuilder {
	b.service = service
	return b
}

// WithFormatter sets the output formatter
func (b *EvaluateUseCaseBuilder) WithFormatter(formatter domain.EvaluationOutputFormatter) *EvaluateUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithConfigLoader sets the configuration loader
func (b *EvaluateUseCaseBuilder) WithConfigLoader(configLoader domain.EvaluationConfigurationLoader) *EvaluateUseCaseBuilder {
	b.configLoader = configLoader
	return b
}

// WithOutputWriter sets the report writer
func (b *EvaluateUseCaseBuilder) WithOutputWriter(output domain.ReportWriter) *EvaluateUseCaseBuilder {
	b.output = output
	return b
}

// Build creates the EvaluateUseCase with the configured dependencies
func (b *EvaluateUseCaseBuilder) Build() (*EvaluateUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("evaluation service is required")
	}
	if b.formatter == nil {
		return nil, fmt.Errorf("output formatter is required")
	}

	uc := NewEvaluateUseCase(b.service, b.formatter, b.configLoader)
	if b.output != nil {
		uc.output = b.output
	}
	return uc, nil
}
