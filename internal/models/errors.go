package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeSelfActionForbidden = "SELF_ACTION_FORBIDDEN"
	CodeValidation          = "VALIDATION_ERROR"
	CodeStoreFailure        = "STORE_FAILURE"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewUnauthenticatedError() *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: "Unauthenticated",
	}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewSelfActionError(message string) *AppError {
	return &AppError{
		Code:    CodeSelfActionForbidden,
		Message: message,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewStoreError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeStoreFailure,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the AppError code carried by err, or CodeStoreFailure for
// anything unclassified.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStoreFailure
}

// ErrorMessage returns the user-facing message for err. Causes wrapped inside an
// AppError are not exposed.
func ErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
