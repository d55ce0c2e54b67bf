package mcp

import (
	"io"
	"log/slog"

	"github.com/ludo-technologies/cloneval/app"
	"github.com/ludo-technologies/cloneval/service"
)

// Dependencies aggregates the shared services required by MCP handlers.
type Dependencies struct {
	logger     *slog.Logger
	configPath string
}

// NewDependencies constructs the dependency set with sane defaults.
func NewDependencies(logger *slog.Logger, configPath string) *Dependencies {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dependencies{
		logger:     logger,
		configPath: configPath,
	}
}

// ConfigPath returns the configured config file path (may be empty to trigger discovery).
func (d *Dependencies) ConfigPath() string {
	return d.configPath
}

// BuildEvaluateUseCase assembles a fresh EvaluateUseCase. explicit names the
// settings the tool call supplied; only those override the config file.
func (d *Dependencies) BuildEvaluateUseCase(explicit map[string]bool) (*app.EvaluateUseCase, error) {
	return app.NewEvaluateUseCaseBuilder().
		WithService(service.NewEvaluationService(d.logger, nil)).
		WithFormatter(service.NewEvaluationFormatter()).
		WithConfigLoader(service.NewEvaluationConfigurationLoader(explicit)).
		Build()
}

// BuildReferenceUseCase assembles a fresh ReferenceUseCase.
func (d *Dependencies) BuildReferenceUseCase(explicit map[string]bool) *app.ReferenceUseCase {
	return app.NewReferenceUseCase(
		service.NewEvaluationService(d.logger, nil),
		service.NewEvaluationFormatter(),
		service.NewEvaluationConfigurationLoader(explicit),
	)
}
