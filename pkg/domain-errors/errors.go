// Package domainerrors provides coded errors for the service API surface.
//
// Stores return sentinel errors (pkg/platform/sentinel) for infrastructure
// facts; services translate those into coded errors here so handlers can map
// them to HTTP statuses without string matching. Every rejected operation
// surfaces a specific code, never a generic failure.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and transports.
type Code string

const (
	// Generic codes.
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal"
	CodeInvariantViolation Code = "invariant_violation"

	// Compliance gating.
	CodeNotRegistered Code = "not_registered"
	CodeNotCompliant  Code = "not_compliant"

	// Accounting preconditions.
	CodeInvalidAmount         Code = "invalid_amount"
	CodeInsufficientBalance   Code = "insufficient_balance"
	CodeInsufficientAllowance Code = "insufficient_allowance"
	CodeQuotaExceeded         Code = "quota_exceeded"

	// Marketplace state machine.
	CodeNotActive           Code = "not_active"
	CodeNotSeller           Code = "not_seller"
	CodeInsufficientPayment Code = "insufficient_payment"
)

// Error carries a code, a caller-facing message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the code from err, walking the wrap chain. Non-coded errors
// report CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// MessageOf extracts the caller-facing message, falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ToHTTPStatus maps a code to the status handlers should write.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeInvalidAmount:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeNotSeller:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeNotActive, CodeInvariantViolation:
		return http.StatusConflict
	case CodeNotRegistered, CodeNotCompliant:
		return http.StatusForbidden
	case CodeInsufficientBalance, CodeInsufficientAllowance,
		CodeQuotaExceeded, CodeInsufficientPayment:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
