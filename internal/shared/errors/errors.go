package errors

import (
	"errors"
	"fmt"
)

// Error types for the different failure domains of the service
type ErrorType string

const (
	ErrorTypeConfiguration  ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeInfrastructure ErrorType = "INFRASTRUCTURE_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeConflict       ErrorType = "CONFLICT_ERROR"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
)

// Common application errors
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrMissingSetting = errors.New("missing required setting")
)

// Document store errors
var (
	ErrInvalidCollectionID = errors.New("invalid collection ID")
	ErrInvalidDocumentID   = errors.New("invalid document ID")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrBatchCommitted      = errors.New("batch already committed")
)

// Counter email errors
var (
	ErrEmptyEmail     = errors.New("email is empty")
	ErrMalformedEmail = errors.New("email has no '@' separator")
	ErrEmptyLocalPart = errors.New("email local-part is empty")
)

// Scheduling errors
var (
	ErrRunInProgress = errors.New("reset run already in progress")
	ErrLockNotHeld   = errors.New("run lock not held")
)

// AppError represents a custom application error with context
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewConfigurationError creates a startup configuration error
func NewConfigurationError(message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, message)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message)
}

// NewInfrastructureError creates an infrastructure error
func NewInfrastructureError(message string) *AppError {
	return NewAppError(ErrorTypeInfrastructure, message)
}

// NewNotFoundError creates a not found error for a document path
func NewNotFoundError(path string) *AppError {
	return NewAppError(ErrorTypeNotFound, fmt.Sprintf("%s not found", path)).
		WithCause(ErrDocumentNotFound).
		WithDetail("path", path)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrorTypeConflict, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message)
}

// WrapError wraps an error with context
func WrapError(err error, message string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeNotFound {
		return true
	}
	return errors.Is(err, ErrDocumentNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeValidation {
		return true
	}
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidCollectionID) || errors.Is(err, ErrInvalidDocumentID)
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeConfiguration {
		return true
	}
	return errors.Is(err, ErrMissingSetting)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeConflict {
		return true
	}
	return errors.Is(err, ErrRunInProgress)
}
