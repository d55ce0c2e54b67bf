package domain

import (
	"errors"
	"fmt"
	"time"
)

// DomainError represents errors in the domain layer
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

func (e DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e DomainError) Unwrap() error {
	return e.Cause
}

// Domain error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeAnalysisError     = "ANALYSIS_ERROR"
	ErrCodeConfigError       = "CONFIG_ERROR"
	ErrCodeOutputError       = "OUTPUT_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"

	// Evaluation taxonomy. The first five abort a run; the last two are
	// recovered locally and surface as counts or flags in the RunResult.
	ErrCodeMalformedReference  = "MALFORMED_REFERENCE"
	ErrCodeToolTimeout         = "TOOL_TIMEOUT"
	ErrCodeToolCrash           = "TOOL_CRASH"
	ErrCodeToolOutputLimit     = "TOOL_OUTPUT_LIMIT"
	ErrCodeMalformedToolOutput = "MALFORMED_TOOL_OUTPUT"
	ErrCodeUnresolvedFragment  = "UNRESOLVED_FRAGMENT"
	ErrCodeInsufficientSample  = "INSUFFICIENT_SAMPLE"
)

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) error {
	return DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether any error in err's chain is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var de DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Cause
	}
	return false
}

// CodeOf returns the code of the outermost DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidInput, message, cause)
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string, cause error) error {
	return NewDomainError(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path), cause)
}

// NewAnalysisError creates an analysis error
func NewAnalysisError(message string, cause error) error {
	return NewDomainError(ErrCodeAnalysisError, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) error {
	return NewDomainError(ErrCodeConfigError, message, cause)
}

// NewOutputError creates an output error
func NewOutputError(message string, cause error) error {
	return NewDomainError(ErrCodeOutputError, message, cause)
}

// NewUnsupportedFormatError creates an unsupported format error
func NewUnsupportedFormatError(format string) error {
	return NewDomainError(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported format: %s", format), nil)
}

// NewValidationError creates a validation error
func NewValidationError(message string) error {
	return NewDomainError(ErrCodeInvalidInput, message, nil)
}

// NewMalformedReferenceError reports ground-truth data that cannot be loaded.
func NewMalformedReferenceError(message string, cause error) error {
	return NewDomainError(ErrCodeMalformedReference, message, cause)
}

// NewToolTimeoutError reports a detector run aborted after its wall-clock budget.
func NewToolTimeoutError(command string, timeout time.Duration) error {
	return NewDomainError(ErrCodeToolTimeout,
		fmt.Sprintf("tool %q exceeded timeout of %s and was terminated", command, timeout), nil)
}

// NewToolCrashError reports a detector process that failed or could not start.
func NewToolCrashError(command string, cause error) error {
	return NewDomainError(ErrCodeToolCrash, fmt.Sprintf("tool %q failed", command), cause)
}

// NewToolOutputLimitError reports a detector that produced more records than allowed.
func NewToolOutputLimitError(limit int) error {
	return NewDomainError(ErrCodeToolOutputLimit,
		fmt.Sprintf("tool reported more than %d pairs", limit), nil)
}

// NewMalformedToolOutputError reports a record the adapter could not parse.
func NewMalformedToolOutputError(line int, cause error) error {
	return NewDomainError(ErrCodeMalformedToolOutput,
		fmt.Sprintf("malformed tool output at record %d", line), cause)
}

// NewUnresolvedFragmentError reports a tool endpoint that maps to no known fragment.
func NewUnresolvedFragmentError(path string, start, end int) error {
	return NewDomainError(ErrCodeUnresolvedFragment,
		fmt.Sprintf("no fragment matches %s:%d-%d", path, start, end), nil)
}

// NewInsufficientSampleError reports a stratum that cannot support the configured sample.
func NewInsufficientSampleError(stratum SimilarityType, available, required int) error {
	return NewDomainError(ErrCodeInsufficientSample,
		fmt.Sprintf("stratum %s has %d known classes, %d required", stratum, available, required), nil)
}
