// Package errors defines the unified error taxonomy for dispatch
// operations. Backend-specific failures are mapped to these kinds before
// they reach any caller.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error kinds, from the caller's point of view.
const (
	// KindValidation marks a malformed request, rejected before the quota
	// check and never billed.
	KindValidation = "validation_error"

	// KindQuotaExceeded marks a request denied by the daily quota. It is
	// terminal for the call and carries the remaining allowance and reset
	// time so the caller can render an upgrade prompt.
	KindQuotaExceeded = "quota_exceeded"

	// KindTransientProvider marks a network/timeout/5xx failure. It is
	// handled internally by the fallback controller and only surfaces if
	// the fallback fails too.
	KindTransientProvider = "transient_provider_error"

	// KindPermanentProvider marks a provider 4xx (malformed request,
	// content policy). Never retried.
	KindPermanentProvider = "permanent_provider_error"

	// KindServiceUnavailable means both the primary and the fallback
	// backend failed. Terminal; the caller should allow a manual retry.
	KindServiceUnavailable = "service_unavailable"
)

// ServiceError is the standardized error returned by the dispatcher.
type ServiceError struct {
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	Backend    string    `json:"backend,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Retryable  bool      `json:"-"`
	Remaining  int       `json:"remaining,omitempty"`
	ResetAt    time.Time `json:"reset_at,omitempty"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("[%s] %s (backend=%s, code=%d)", e.Kind, e.Message, e.Backend, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *ServiceError {
	return &ServiceError{
		Kind:       KindValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewQuotaExceededError creates a quota error carrying the remaining
// allowance and the next reset boundary.
func NewQuotaExceededError(remaining int, resetAt time.Time) *ServiceError {
	return &ServiceError{
		Kind:       KindQuotaExceeded,
		Message:    "daily request quota exceeded",
		StatusCode: http.StatusTooManyRequests,
		Remaining:  remaining,
		ResetAt:    resetAt,
	}
}

// NewTransientError creates a transient provider error.
func NewTransientError(backend, message string, statusCode int) *ServiceError {
	return &ServiceError{
		Kind:       KindTransientProvider,
		Message:    message,
		Backend:    backend,
		StatusCode: statusCode,
		Retryable:  true,
	}
}

// NewPermanentError creates a permanent provider error.
func NewPermanentError(backend, message string, statusCode int) *ServiceError {
	return &ServiceError{
		Kind:       KindPermanentProvider,
		Message:    message,
		Backend:    backend,
		StatusCode: statusCode,
	}
}

// NewUnavailableError creates a terminal service-unavailable error.
func NewUnavailableError(backend, message string) *ServiceError {
	return &ServiceError{
		Kind:       KindServiceUnavailable,
		Message:    message,
		Backend:    backend,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// IsTransient reports whether err is a transient provider error, i.e.
// eligible for the fallback path.
func IsTransient(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind == KindTransientProvider
	}
	return false
}

// IsQuotaExceeded reports whether err is a quota denial.
func IsQuotaExceeded(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind == KindQuotaExceeded
	}
	return false
}

// FromStatusCode maps a provider HTTP status to a transient or permanent
// error. Timeouts (408), rate limits (429) and all 5xx are transient;
// other 4xx are permanent.
func FromStatusCode(backend string, statusCode int, message string) *ServiceError {
	switch {
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests,
		statusCode >= 500:
		return NewTransientError(backend, message, statusCode)
	default:
		return NewPermanentError(backend, message, statusCode)
	}
}
