// Package errors holds the infrastructure error taxonomy shared by the data layer,
// adapters and the HTTP boundary. Domain outcomes live in internal/domain/auth.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorises an AppError.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict"
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeInternal   ErrorCode = "internal"
	// ErrCodeUnavailable marks a backing store (PostgreSQL, Redis) that could not be reached.
	ErrCodeUnavailable ErrorCode = "unavailable"
	ErrCodeTimeout     ErrorCode = "timeout"
	ErrCodeCanceled    ErrorCode = "canceled"
)

// AppError carries a code, a client-safe message and an optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input for validation errors.
	Field string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ValidationField reports invalid input for field. message is shown to clients.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Unavailable wraps a connectivity failure of the named dependency.
// It returns nil for a nil cause.
func Unavailable(dependency string, cause error) error {
	if cause == nil {
		return nil
	}
	return &AppError{Code: ErrCodeUnavailable, Message: dependency + " unavailable", Cause: cause}
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsConflict(err error) bool    { return CodeOf(err) == ErrCodeConflict }
func IsValidation(err error) bool  { return CodeOf(err) == ErrCodeValidation }
func IsInternal(err error) bool    { return CodeOf(err) == ErrCodeInternal }
func IsUnavailable(err error) bool { return CodeOf(err) == ErrCodeUnavailable }
func IsTimeout(err error) bool     { return CodeOf(err) == ErrCodeTimeout }

// GetField returns the offending field of a validation error, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
