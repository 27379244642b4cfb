package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// RunError represents a failure detected during pipeline execution.
//
// Run errors include:
//   - Unknown job or method: configuration lookup failed
//   - Template missing: a declared template file does not exist
//   - Execution failure: non-zero exit or timeout from the external tool
//   - Parse failure: output parsing failed under the "fail" policy
//
// RunError carries structured fields for diagnostics; the Run that
// triggered it is always left in the terminal "error" state.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// Job names the job definition involved, when known.
	Job string

	// Method names the resolved method, when resolution got that far.
	Method string

	// Stderr holds captured diagnostics from the external tool, for
	// execution failures.
	Stderr string
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeUnknownJob indicates no definition matches the job name.
	ErrCodeUnknownJob RunErrorCode = "UNKNOWN_JOB"

	// ErrCodeNoMethods indicates the definition declares zero methods.
	ErrCodeNoMethods RunErrorCode = "NO_METHODS"

	// ErrCodeUnknownMethod indicates the resolved method has no
	// configuration in the definition.
	ErrCodeUnknownMethod RunErrorCode = "UNKNOWN_METHOD"

	// ErrCodeTemplateMissing indicates a declared template file could
	// not be read.
	ErrCodeTemplateMissing RunErrorCode = "TEMPLATE_MISSING"

	// ErrCodeExecFailed indicates the external tool exited non-zero.
	ErrCodeExecFailed RunErrorCode = "EXEC_FAILED"

	// ErrCodeExecTimeout indicates the external tool exceeded the
	// effective timeout and was terminated.
	ErrCodeExecTimeout RunErrorCode = "EXEC_TIMEOUT"

	// ErrCodeParseFailed indicates output parsing failed and the
	// definition's parse policy is "fail".
	ErrCodeParseFailed RunErrorCode = "PARSE_FAILED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	switch {
	case e.Job != "" && e.Method != "":
		return fmt.Sprintf("%s: %s (job=%s, method=%s)", e.Code, e.Message, e.Job, e.Method)
	case e.Job != "":
		return fmt.Sprintf("%s: %s (job=%s)", e.Code, e.Message, e.Job)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsTimeout reports whether err is a timeout run error.
// Uses errors.As to handle wrapped errors.
func IsTimeout(err error) bool {
	var re *RunError
	return errors.As(err, &re) && re.Code == ErrCodeExecTimeout
}

// IsConfigError reports whether err stems from configuration lookup
// (unknown job, no methods, unknown method).
func IsConfigError(err error) bool {
	var re *RunError
	if !errors.As(err, &re) {
		return false
	}
	switch re.Code {
	case ErrCodeUnknownJob, ErrCodeNoMethods, ErrCodeUnknownMethod:
		return true
	}
	return false
}

// NewUnknownMethodError creates a RunError listing the valid methods.
func NewUnknownMethodError(job, method string, known []string) *RunError {
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)
	return &RunError{
		Code:    ErrCodeUnknownMethod,
		Message: fmt.Sprintf("no configuration for method %q (known: %s)", method, strings.Join(sorted, ", ")),
		Job:     job,
		Method:  method,
	}
}

// NewNoMethodsError creates a RunError for a definition with zero methods.
func NewNoMethodsError(job string) *RunError {
	return &RunError{
		Code:    ErrCodeNoMethods,
		Message: "definition declares no methods",
		Job:     job,
	}
}
