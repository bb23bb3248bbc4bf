// Package errors provides structured error types for popreader.
// All errors include a category, code, message, and retryable flag so that
// callers can tell an aborted load from a normal lookup miss.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the stage that produced them.
type ErrorCategory string

const (
	ErrCategoryIngest   ErrorCategory = "INGEST"
	ErrCategoryStore    ErrorCategory = "STORE"
	ErrCategoryIO       ErrorCategory = "IO"
	ErrCategoryQuery    ErrorCategory = "QUERY"
	ErrCategoryConfig   ErrorCategory = "CONFIG"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Ingest codes
	CodeMalformedRow = "MALFORMED_ROW"

	// Store codes
	CodeTruncatedRecord = "TRUNCATED_RECORD"
	CodeCorruptStore    = "CORRUPT_STORE"

	// IO codes
	CodeIOUnavailable  = "IO_UNAVAILABLE"
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"

	// Query codes
	CodeNotFound = "NOT_FOUND"

	// Config codes
	CodeInvalidConfig = "INVALID_CONFIG"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Sentinel values for errors.Is matching. Only category and code are compared.
var (
	ErrMalformedRow    = New(ErrCategoryIngest, CodeMalformedRow, "malformed row")
	ErrTruncatedRecord = New(ErrCategoryStore, CodeTruncatedRecord, "truncated record")
	ErrCorruptStore    = New(ErrCategoryStore, CodeCorruptStore, "corrupt store")
	ErrIOUnavailable   = New(ErrCategoryIO, CodeIOUnavailable, "io unavailable")
	ErrNotFound        = New(ErrCategoryQuery, CodeNotFound, "not found")
	ErrInvalidConfig   = New(ErrCategoryConfig, CodeInvalidConfig, "invalid configuration")
)

// PopError is the structured error type used throughout the system.
type PopError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *PopError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *PopError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *PopError) Is(target error) bool {
	var t *PopError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new PopError.
func New(category ErrorCategory, code, message string) *PopError {
	return &PopError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new PopError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *PopError {
	return &PopError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *PopError) WithDetails(details map[string]interface{}) *PopError {
	cp := *e
	cp.Details = details
	return &cp
}

// Detail returns a single detail value, or nil.
func (e *PopError) Detail(key string) interface{} {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var pe *PopError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a PopError.
func GetCategory(err error) ErrorCategory {
	var pe *PopError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a PopError.
func GetCode(err error) string {
	var pe *PopError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// isRetryable marks transient object storage failures as retryable.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryIO && code == CodeUploadFailed:
		return true
	case category == ErrCategoryIO && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

// NewMalformedRow reports an input line whose numeric fields do not parse.
func NewMalformedRow(line int, field, raw string, cause error) *PopError {
	msg := fmt.Sprintf("line %d: field %q does not parse", line, field)
	return Wrap(ErrCategoryIngest, CodeMalformedRow, msg, cause).WithDetails(map[string]interface{}{
		"line":  line,
		"field": field,
		"raw":   raw,
	})
}

// NewTruncatedRecord reports a record cut short at the given byte offset.
func NewTruncatedRecord(offset int64, field string, cause error) *PopError {
	msg := fmt.Sprintf("record truncated at byte %d while reading %s", offset, field)
	return Wrap(ErrCategoryStore, CodeTruncatedRecord, msg, cause).WithDetails(map[string]interface{}{
		"offset": offset,
		"field":  field,
	})
}

func NewCorruptStore(message string, cause error) *PopError {
	return Wrap(ErrCategoryStore, CodeCorruptStore, message, cause)
}

func NewIOUnavailable(path string, cause error) *PopError {
	return Wrap(ErrCategoryIO, CodeIOUnavailable, fmt.Sprintf("cannot open %s", path), cause).
		WithDetails(map[string]interface{}{"path": path})
}

func NewStorageError(code, message string, cause error) *PopError {
	return Wrap(ErrCategoryIO, code, message, cause)
}

func NewConfigError(message string) *PopError {
	return New(ErrCategoryConfig, CodeInvalidConfig, message)
}

func NewNotFound(id int32) *PopError {
	return New(ErrCategoryQuery, CodeNotFound, fmt.Sprintf("no municipality with id %d", id)).
		WithDetails(map[string]interface{}{"id": id})
}

func NewInternalError(message string, cause error) *PopError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
