package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Manifest errors
	ErrManifestParse  ErrorCode = "MANIFEST_PARSE"
	ErrManifestSchema ErrorCode = "MANIFEST_SCHEMA"
	ErrManifestAccess ErrorCode = "MANIFEST_ACCESS"

	// Resolution errors
	ErrProfileNotFound ErrorCode = "PROFILE_NOT_FOUND"
	ErrPackageNotFound ErrorCode = "PACKAGE_NOT_FOUND"
	ErrNoConfig        ErrorCode = "NO_CONFIG"
	ErrNoBackend       ErrorCode = "NO_BACKEND"

	// Backend errors
	ErrBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrBackendUnknown     ErrorCode = "BACKEND_UNKNOWN"
	ErrInstallFailed      ErrorCode = "INSTALL_FAILED"
	ErrInstallTimeout     ErrorCode = "INSTALL_TIMEOUT"
	ErrRepoAdd            ErrorCode = "REPO_ADD"

	// Verification and interaction errors
	ErrVerifyMissing ErrorCode = "VERIFY_MISSING"
	ErrUserAbort     ErrorCode = "USER_ABORT"

	// Retry log errors
	ErrRetryLogRead  ErrorCode = "RETRYLOG_READ"
	ErrRetryLogWrite ErrorCode = "RETRYLOG_WRITE"
)

// DotpkgError represents a structured error with code and details
type DotpkgError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *DotpkgError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DotpkgError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *DotpkgError) Is(target error) bool {
	var targetErr *DotpkgError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new DotpkgError with the given code and message
func New(code ErrorCode, message string) *DotpkgError {
	return &DotpkgError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new DotpkgError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DotpkgError {
	return &DotpkgError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a DotpkgError
func Wrap(err error, code ErrorCode, message string) *DotpkgError {
	if err == nil {
		return nil
	}
	return &DotpkgError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *DotpkgError {
	if err == nil {
		return nil
	}
	return &DotpkgError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *DotpkgError) WithDetail(key string, value interface{}) *DotpkgError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *DotpkgError) WithDetails(details map[string]interface{}) *DotpkgError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var dpErr *DotpkgError
	if errors.As(err, &dpErr) {
		return dpErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a DotpkgError
func GetErrorCode(err error) ErrorCode {
	var dpErr *DotpkgError
	if errors.As(err, &dpErr) {
		return dpErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a DotpkgError
func GetErrorDetails(err error) map[string]interface{} {
	var dpErr *DotpkgError
	if errors.As(err, &dpErr) {
		return dpErr.Details
	}
	return nil
}
