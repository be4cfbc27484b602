package llmcore

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failure by where it happened and how it must be handled.
type Kind string

const (
	// KindProviderNotFound means the provider id is not in the registry.
	KindProviderNotFound Kind = "provider_not_found"

	// KindModelNotFound means the provider exists but does not offer the model.
	KindModelNotFound Kind = "model_not_found"

	// KindParameterValidation means an override had the wrong type, was out of
	// range, was not one of the allowed choices, or named an unknown parameter.
	KindParameterValidation Kind = "parameter_validation"

	// KindProviderRejected is a non-retryable client-side rejection from upstream.
	// Examples: invalid API key, malformed request, content policy violation.
	KindProviderRejected Kind = "provider_rejected"

	// KindProviderTransportError is a retryable network failure, rate limit or 5xx.
	KindProviderTransportError Kind = "provider_transport_error"

	// KindProviderTimeout means a deadline or the job poll budget ran out.
	KindProviderTimeout Kind = "provider_timeout"

	// KindJobFailed means an async job reached a failed or cancelled state.
	KindJobFailed Kind = "job_failed"

	// KindStreamAborted means a stream ended early, by the consumer or upstream.
	KindStreamAborted Kind = "stream_aborted"

	// KindCancelled means the caller cancelled a non-streaming call.
	KindCancelled Kind = "cancelled"

	// KindConfiguration means the call cannot be routed with the current setup,
	// for example missing credentials or a backend without job support.
	KindConfiguration Kind = "configuration"
)

// Error is the error value returned by every operation in this module.
type Error struct {
	Kind       Kind
	Msg        string
	Code       int           // HTTP status code, 0 if not applicable
	RetryDelay time.Duration // from Retry-After header, 0 if not available
	Cause      error         // underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable returns true if the failure is transient and the call may be repeated.
func (e *Error) Retryable() bool {
	return e.Kind == KindProviderTransportError
}

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *Error) StatusCode() int {
	return e.Code
}

// RetryAfter returns the suggested retry delay, or 0 if not available.
func (e *Error) RetryAfter() time.Duration {
	return e.RetryDelay
}

// NewError creates an error of the given kind.
func NewError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Errorf creates an error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NewTransportError creates a retryable transport error.
func NewTransportError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Kind:  KindProviderTransportError,
		Msg:   msg,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewTransportErrorWithRetry creates a retryable transport error with a suggested retry delay.
func NewTransportErrorWithRetry(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	return &Error{
		Kind:       KindProviderTransportError,
		Msg:        msg,
		Code:       statusCode,
		RetryDelay: retryAfter,
		Cause:      cause,
	}
}

// NewRejectedError creates a non-retryable upstream rejection.
func NewRejectedError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Kind:  KindProviderRejected,
		Msg:   msg,
		Code:  statusCode,
		Cause: cause,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusCodeOf returns the HTTP status code from an *Error, or 0.
func StatusCodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode()
	}
	return 0
}

// RetryAfterOf returns the retry delay from an *Error, or 0.
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter()
	}
	return 0
}
