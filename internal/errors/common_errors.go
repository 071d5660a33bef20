package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeInput      ErrorType = "INPUT"
	ErrTypeSchema     ErrorType = "SCHEMA"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeOutput     ErrorType = "OUTPUT"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
)

// Pipeline failure reasons. Stage results carry one of these instead of
// returning an error to the caller.
var (
	ErrMissingInput   = errors.New("input file missing")
	ErrMissingColumns = errors.New("required columns missing")
	ErrRowConversion  = errors.New("row conversion failed")
	ErrOutputWrite    = errors.New("output write failed")
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewMissingInputError reports an input file that does not exist
func NewMissingInputError(path string) *AppError {
	return NewAppError(ErrTypeInput, "cannot open input", ErrMissingInput).WithContext("path", path)
}

// NewMissingColumnsError reports the header columns a file lacks
func NewMissingColumnsError(path string, columns []string) *AppError {
	return NewAppError(ErrTypeSchema, fmt.Sprintf("missing %v", columns), ErrMissingColumns).
		WithContext("path", path).
		WithContext("columns", columns)
}

// NewRowError reports a data row that could not be converted
func NewRowError(line int, field string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, fmt.Sprintf("line %d: field %s", line, field), errors.Join(ErrRowConversion, cause)).
		WithContext("line", line).
		WithContext("field", field)
}

// NewOutputError reports a failed output write
func NewOutputError(target string, cause error) *AppError {
	return NewAppError(ErrTypeOutput, fmt.Sprintf("writing %s", target), errors.Join(ErrOutputWrite, cause)).
		WithContext("target", target)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether err wraps an AppError of type t
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}
