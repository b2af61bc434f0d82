// Package domain defines core types, ports, and errors for the
// request-lifecycle engine.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AccessDeniedError indicates the acting identity may not touch the row.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource or an
// illegal status transition).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// PersistenceError indicates the state store could not complete a
// transaction. No partial write is left behind when one is returned.
type PersistenceError struct {
	Message string
}

func (e *PersistenceError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrPersistence creates a PersistenceError with a formatted message.
func ErrPersistence(format string, args ...interface{}) *PersistenceError {
	return &PersistenceError{Message: fmt.Sprintf(format, args...)}
}
