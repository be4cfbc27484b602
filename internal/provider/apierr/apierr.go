// Package apierr maps provider HTTP failures onto llmcore error kinds.
package apierr

import (
	"net/http"
	"strconv"
	"time"

	ai "github.com/spetersoncode/llmcore"
)

// FromStatus builds the error for a failed HTTP exchange. Rate limits and
// server errors are transport errors and may be retried; every other
// status is a rejection.
func FromStatus(msg string, code int, retryAfter time.Duration, cause error) error {
	if Transient(code) {
		if retryAfter > 0 {
			return ai.NewTransportErrorWithRetry(msg, code, retryAfter, cause)
		}
		return ai.NewTransportError(msg, code, cause)
	}
	return ai.NewRejectedError(msg, code, cause)
}

// Transient returns true for status codes worth retrying.
func Transient(code int) bool {
	switch {
	case code == http.StatusTooManyRequests:
		return true // Rate limited
	case code == http.StatusRequestTimeout:
		return true
	case code >= 500 && code < 600:
		return true // Server error
	default:
		return false
	}
}

// RetryAfter extracts the Retry-After duration from an HTTP response.
// Returns 0 if the header is not present or cannot be parsed.
func RetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	return ParseRetryAfter(resp.Header.Get("Retry-After"))
}

// ParseRetryAfter parses a Retry-After header value, given either in
// seconds or as an HTTP date.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	// Try parsing as seconds (most common)
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	// Try parsing as HTTP-date (RFC 7231)
	if t, err := http.ParseTime(header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return 0
}
