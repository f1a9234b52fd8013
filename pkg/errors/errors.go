package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application-level error with HTTP status code
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeUnauthorized          = "unauthorized"
	ErrCodeForbidden             = "forbidden"
	ErrCodeNotFound              = "not_found"
	ErrCodeBadRequest            = "bad_request"
	ErrCodeConflict              = "conflict"
	ErrCodeInternalError         = "internal_error"
	ErrCodeSigningUnavailable    = "signing_unavailable"
	ErrCodeAuthenticationFailure = "authentication_failure"
	ErrCodeMalformedEnvelope     = "malformed_envelope"
	ErrCodeLedgerUnavailable     = "ledger_unavailable"
	ErrCodeLedgerRejected        = "ledger_rejected"
	ErrCodeStorageUnavailable    = "storage_unavailable"
)

// Predefined errors
var (
	ErrUnauthorized = &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       ErrCodeForbidden,
		Message:    "Access denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       ErrCodeNotFound,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       ErrCodeBadRequest,
		Message:    "Invalid request parameters",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalError = &AppError{
		Code:       ErrCodeInternalError,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrConflict = &AppError{
		Code:       ErrCodeConflict,
		Message:    "Request conflict",
		StatusCode: http.StatusConflict,
	}
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewWithDetail creates a new AppError with additional detail
func NewWithDetail(code, message, detail string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Detail:     detail,
		StatusCode: statusCode,
	}
}

// SigningUnavailable indicates the wallet's signing capability could not
// produce a signature (locked wallet, user rejection, capability absent,
// or signing timeout). Never auto-retried.
func SigningUnavailable(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeSigningUnavailable,
		Message:    "Wallet signing unavailable",
		Detail:     detail,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// AuthenticationFailure indicates GCM tag verification failed: the envelope
// was tampered with or the wrong key was used. The detail never contains
// key material.
func AuthenticationFailure() *AppError {
	return &AppError{
		Code:       ErrCodeAuthenticationFailure,
		Message:    "Envelope authentication failed",
		StatusCode: http.StatusBadRequest,
	}
}

// MalformedEnvelope indicates the envelope bytes do not satisfy the minimum
// IV+TAG layout; rejected before any cryptographic work.
func MalformedEnvelope(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeMalformedEnvelope,
		Message:    "Malformed ciphertext envelope",
		Detail:     detail,
		StatusCode: http.StatusBadRequest,
	}
}

// LedgerUnavailable indicates the consent ledger could not be reached.
// The approval is aborted and the grant stays REQUESTED; callers may retry.
func LedgerUnavailable(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeLedgerUnavailable,
		Message:    "Consent ledger unavailable",
		Detail:     detail,
		StatusCode: http.StatusBadGateway,
	}
}

// LedgerRejected indicates the consent ledger refused the approval event.
func LedgerRejected(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeLedgerRejected,
		Message:    "Consent ledger rejected the approval",
		Detail:     detail,
		StatusCode: http.StatusBadGateway,
	}
}

// StorageUnavailable indicates the ciphertext store could not complete an
// operation.
func StorageUnavailable(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeStorageUnavailable,
		Message:    "Ciphertext store unavailable",
		Detail:     detail,
		StatusCode: http.StatusBadGateway,
	}
}

// Conflict creates a conflict error with detail, used for concurrent
// approval races on the same grant.
func Conflict(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeConflict,
		Message:    "Request conflict",
		Detail:     detail,
		StatusCode: http.StatusConflict,
	}
}

// Unauthorized creates an unauthorized error with detail.
func Unauthorized(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    "Authentication required",
		Detail:     detail,
		StatusCode: http.StatusUnauthorized,
	}
}

// Forbidden creates a forbidden error with detail.
func Forbidden(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeForbidden,
		Message:    "Access denied",
		Detail:     detail,
		StatusCode: http.StatusForbidden,
	}
}

// NotFound creates a not found error with detail.
func NotFound(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeNotFound,
		Message:    "Resource not found",
		Detail:     detail,
		StatusCode: http.StatusNotFound,
	}
}

// BadRequest creates a bad request error with detail.
func BadRequest(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeBadRequest,
		Message:    "Invalid request parameters",
		Detail:     detail,
		StatusCode: http.StatusBadRequest,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == code
}
