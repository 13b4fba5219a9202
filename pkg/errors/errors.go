package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeFormat        ErrorType = "format"
	ErrorTypeFile          ErrorType = "file"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeCache         ErrorType = "cache"
)

// MatroskaError represents a structured error with context
type MatroskaError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *MatroskaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *MatroskaError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *MatroskaError) WithContext(key string, value interface{}) *MatroskaError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsType reports whether err, or any error it wraps, is a MatroskaError of
// type t.
func IsType(err error, t ErrorType) bool {
	var me *MatroskaError
	return errors.As(err, &me) && me.Type == t
}

func newError(t ErrorType, message string, cause error) *MatroskaError {
	return &MatroskaError{
		Type:    t,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *MatroskaError {
	return newError(ErrorTypeValidation, message, cause)
}

// NewFormatError reports a stream that does not parse as Matroska
func NewFormatError(message string, cause error) *MatroskaError {
	return newError(ErrorTypeFormat, message, cause)
}

// NewFileError creates a new file-related error
func NewFileError(message string, cause error) *MatroskaError {
	return newError(ErrorTypeFile, message, cause)
}

// NewConfigurationError creates a new configuration-related error
func NewConfigurationError(message string, cause error) *MatroskaError {
	return newError(ErrorTypeConfiguration, message, cause)
}

// NewCacheError creates a new cue cache error
func NewCacheError(message string, cause error) *MatroskaError {
	return newError(ErrorTypeCache, message, cause)
}
