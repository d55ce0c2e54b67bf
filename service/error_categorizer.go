package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ludo-technologies/cloneval/domain"
)

// ErrorCategorizerImpl implements the ErrorCategorizer interface
type ErrorCategorizerImpl struct {
	codes    map[string]domain.ErrorCategory
	patterns []categoryPatterns
}

type categoryPatterns struct {
	category domain.ErrorCategory
	patterns []string
}

// NewErrorCategorizer creates a new error categorizer
func NewErrorCategorizer() domain.ErrorCategorizer {
	return &ErrorCategorizerImpl{
		codes:    initializeErrorCodes(),
		patterns: initializeErrorPatterns(),
	}
}

func initializeErrorCodes() map[string]domain.ErrorCategory {
	return map[string]domain.ErrorCategory{
		domain.ErrCodeInvalidInput:        domain.ErrorCategoryInput,
		domain.ErrCodeFileNotFound:        domain.ErrorCategoryInput,
		domain.ErrCodeConfigError:         domain.ErrorCategoryConfig,
		domain.ErrCodeUnsupportedFormat:   domain.ErrorCategoryConfig,
		domain.ErrCodeMalformedReference:  domain.ErrorCategoryReference,
		domain.ErrCodeToolTimeout:         domain.ErrorCategoryTimeout,
		domain.ErrCodeToolCrash:           domain.ErrorCategoryTool,
		domain.ErrCodeToolOutputLimit:     domain.ErrorCategoryTool,
		domain.ErrCodeMalformedToolOutput: domain.ErrorCategoryTool,
		domain.ErrCodeAnalysisError:       domain.ErrorCategoryProcessing,
		domain.ErrCodeOutputError:         domain.ErrorCategoryOutput,
	}
}

// initializeErrorPatterns covers errors that do not carry a domain code.
// Order matters: the first matching category wins.
func initializeErrorPatterns() []categoryPatterns {
	return []categoryPatterns{
		{domain.ErrorCategoryTimeout, []string{
			"timeout",
			"timed out",
			"deadline",
		}},
		{domain.ErrorCategoryConfig, []string{
			"config",
			"toml",
			"unknown configuration keys",
		}},
		{domain.ErrorCategoryOutput, []string{
			"write",
			"output",
		}},
		{domain.ErrorCategoryInput, []string{
			"no such file",
			"file not found",
			"permission denied",
			"not a directory",
		}},
	}
}

// Categorize determines the category of an error
func (ec *ErrorCategorizerImpl) Categorize(err error) *domain.CategorizedError {
	if err == nil {
		return nil
	}

	if code := domain.CodeOf(err); code != "" {
		if category, ok := ec.codes[code]; ok {
			return &domain.CategorizedError{
				Category: category,
				Message:  ec.getCategoryMessage(category),
				Original: err,
			}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.CategorizedError{
			Category: domain.ErrorCategoryTimeout,
			Message:  ec.getCategoryMessage(domain.ErrorCategoryTimeout),
			Original: err,
		}
	}

	errMsg := strings.ToLower(err.Error())
	for _, cp := range ec.patterns {
		if containsAnyPattern(errMsg, cp.patterns) {
			return &domain.CategorizedError{
				Category: cp.category,
				Message:  ec.getCategoryMessage(cp.category),
				Original: err,
			}
		}
	}

	return &domain.CategorizedError{
		Category: domain.ErrorCategoryUnknown,
		Message:  err.Error(),
		Original: err,
	}
}

// GetRecoverySuggestions returns recovery suggestions for an error category
func (ec *ErrorCategorizerImpl) GetRecoverySuggestions(category domain.ErrorCategory) []string {
	suggestions := map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"Check that the corpus index, reference and working directory exist",
			"Use absolute paths if relative paths are causing issues",
			"Ensure you have read permissions for the input files",
		},
		domain.ErrorCategoryConfig: {
			"Verify .cloneval.toml keys and values",
			"Try: cloneval init to generate a valid config file",
			"Set the required seed and escalation_budget, or pass --seed and --budget",
		},
		domain.ErrorCategoryReference: {
			"Fix the listed reference entries; the first offending lines are shown",
			"Every fragment id must appear in the corpus index as path:start-end",
			"Confirmed-true pairs need a similarity type",
			"Try: cloneval reference to inspect the ground truth",
		},
		domain.ErrorCategoryTool: {
			"Run the detector command by hand in the working directory",
			"Check the captured stderr above for the detector's own error",
			"Verify output_format matches what the detector prints",
			"Raise max_reported_pairs if the detector legitimately reports more pairs",
		},
		domain.ErrorCategoryTimeout: {
			"Increase timeout_seconds in the [tool] section",
			"Restrict the corpus with include/exclude patterns",
		},
		domain.ErrorCategoryOutput: {
			"Check write permissions for the output path",
			"Ensure the output format is one of text, json, yaml or csv",
		},
		domain.ErrorCategoryProcessing: {
			"Run with --verbose for detailed progress information",
			"Check that the confidence level and sampling settings are valid",
		},
		domain.ErrorCategoryUnknown: {
			"Run with --verbose for detailed error information",
			"Report the issue if it persists",
		},
	}

	if sug, ok := suggestions[category]; ok {
		return sug
	}
	return []string{"Check the error message for more details"}
}

// getCategoryMessage returns a user-friendly message for an error category
func (ec *ErrorCategorizerImpl) getCategoryMessage(category domain.ErrorCategory) string {
	messages := map[domain.ErrorCategory]string{
		domain.ErrorCategoryInput:      "Failed to read evaluation inputs",
		domain.ErrorCategoryConfig:     "Configuration file or settings error",
		domain.ErrorCategoryReference:  "The ground-truth reference could not be loaded",
		domain.ErrorCategoryTool:       "The clone detector failed",
		domain.ErrorCategoryTimeout:    "The clone detector timed out",
		domain.ErrorCategoryOutput:     "Failed to generate or write output",
		domain.ErrorCategoryProcessing: "Error while computing metrics",
		domain.ErrorCategoryUnknown:    "An unexpected error occurred",
	}

	if msg, ok := messages[category]; ok {
		return msg
	}
	return "An error occurred"
}

// containsAnyPattern checks if a string contains any of the given patterns
func containsAnyPattern(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(str, pattern) {
			return true
		}
	}
	return false
}
