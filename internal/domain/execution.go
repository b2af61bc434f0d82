package domain

import "fmt"

// Classification splits execution failures into the two retry classes the
// engine understands.
type Classification string

const (
	// ClassificationTransient marks failures expected to succeed on retry
	// (throttling, timeouts, network blips).
	ClassificationTransient Classification = "transient"
	// ClassificationPermanent marks failures that will not succeed without
	// external intervention (missing principal, explicit deny).
	ClassificationPermanent Classification = "permanent"
)

// ExecutionResult is the success outcome of one target-platform action.
type ExecutionResult struct {
	// ProviderReference is the platform's own identifier for the executed
	// action, kept for audit traceability.
	ProviderReference string
}

// ExecutionError is the failure outcome of one target-platform action,
// classified by the execution adapter. The engine only consumes the
// classification; Code and Detail feed the audit trail.
type ExecutionError struct {
	Class  Classification
	Code   string
	Detail string
}

func (e *ExecutionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s execution failure [%s]: %s", e.Class, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s execution failure: %s", e.Class, e.Detail)
}

// Transient reports whether the failure is worth retrying.
func (e *ExecutionError) Transient() bool {
	return e.Class == ClassificationTransient
}

// ErrExecutionTransient creates a transient ExecutionError.
func ErrExecutionTransient(code, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Class: ClassificationTransient, Code: code, Detail: fmt.Sprintf(format, args...)}
}

// ErrExecutionPermanent creates a permanent ExecutionError.
func ErrExecutionPermanent(code, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Class: ClassificationPermanent, Code: code, Detail: fmt.Sprintf(format, args...)}
}
