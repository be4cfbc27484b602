package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/internal/provider/apierr"
)

// IsTransient reports whether err is worth another attempt.
//
// An *llmcore.Error decides by its kind: only KindProviderTransportError is
// transient. Errors that never went through an adapter are judged by HTTP
// status when they carry one, then by network error type, then by message.
// Context cancellation and deadlines are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var ae *ai.Error
	if errors.As(err, &ae) {
		return ae.Retryable()
	}

	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) && sc.StatusCode() > 0 {
		return apierr.Transient(sc.StatusCode())
	}

	return networkTransient(err)
}

var transientErrnos = []error{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED, syscall.ETIMEDOUT, syscall.EPIPE}

// transientMessages catch wrapped SDK errors that lost their type.
var transientMessages = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"timeout",
	"temporarily unavailable",
	"service unavailable",
	"too many requests",
	"rate limit",
	"bad gateway",
}

func networkTransient(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
