// Package errors provides structured error handling for netsweep operations.
// It defines error codes, error types, and utilities for creating and
// inspecting errors raised during target resolution, scanning, and GeoIP
// enrichment.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"

	// Scanning errors.
	CodeScanFailed    ErrorCode = "SCAN_FAILED"
	CodeTargetInvalid ErrorCode = "TARGET_INVALID"

	// Target resolution errors.
	CodeResolveFailed ErrorCode = "RESOLVE_FAILED"
	CodeFileNotFound  ErrorCode = "FILE_NOT_FOUND"

	// GeoIP lookup errors.
	CodeFetchFailed ErrorCode = "FETCH_FAILED"
	CodeRateLimited ErrorCode = "RATE_LIMITED"
	CodeBadStatus   ErrorCode = "BAD_STATUS"
)

// ScanError represents an error that occurred while running a scan batch.
type ScanError struct {
	Code    ErrorCode
	Message string
	Batch   int
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Batch >= 0 {
		return fmt.Sprintf("[%s] %s (batch: %d)", e.Code, e.Message, e.Batch)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{Code: code, Message: message, Batch: -1}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Batch: -1, Cause: err}
}

// WrapScanErrorWithBatch wraps an error with the index of the failed batch.
func WrapScanErrorWithBatch(code ErrorCode, message string, batch int, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Batch: batch, Cause: err}
}

// FetchError represents a GeoIP provider lookup failure.
type FetchError struct {
	Code    ErrorCode
	Message string
	IP      string
	Status  int
	Cause   error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.IP != "" {
		return fmt.Sprintf("[%s] %s (ip: %s)", e.Code, e.Message, e.IP)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewFetchError creates a new GeoIP fetch error for an IP.
func NewFetchError(code ErrorCode, message, ip string) *FetchError {
	return &FetchError{Code: code, Message: message, IP: ip}
}

// WrapFetchError wraps an existing error as a GeoIP fetch error.
func WrapFetchError(code ErrorCode, message, ip string, err error) *FetchError {
	return &FetchError{Code: code, Message: message, IP: ip, Cause: err}
}

// ErrRateLimited creates a fetch error for an HTTP 429 response.
func ErrRateLimited(ip string) *FetchError {
	return &FetchError{Code: CodeRateLimited, Message: "provider rate limit hit", IP: ip, Status: 429}
}

// ErrBadStatus creates a fetch error for a non-success HTTP status.
func ErrBadStatus(ip string, status int) *FetchError {
	return &FetchError{
		Code:    CodeBadStatus,
		Message: fmt.Sprintf("provider returned HTTP %d", status),
		IP:      ip,
		Status:  status,
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{Code: code, Message: message}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{Code: code, Message: message, Field: field, Value: value}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{Code: code, Message: message, Cause: err}
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "Required configuration field missing", field, nil)
}

// ResolveError represents a target resolution failure.
type ResolveError struct {
	Code    ErrorCode
	Message string
	Source  string
	Cause   error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s (source: %s)", e.Code, e.Message, e.Source)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ResolveError) Unwrap() error {
	return e.Cause
}

// WrapResolveError wraps an error from a target source.
func WrapResolveError(code ErrorCode, message, source string, err error) *ResolveError {
	return &ResolveError{Code: code, Message: message, Source: source, Cause: err}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *ScanError:
		return e.Code
	case *FetchError:
		return e.Code
	case *ConfigError:
		return e.Code
	case *ResolveError:
		return e.Code
	}
	return CodeUnknown
}
