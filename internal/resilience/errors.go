// Package resilience provides retry and circuit breaker support for the
// external feed, geocoding, and directions clients.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an error as retryable regardless of its shape.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps an error so IsTransient reports true for it. The status
// code is informational, for logging.
func Transient(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether an error is worth retrying: explicit
// TransientError wrappers, timeouts, and common connection-level failures.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// Last resort for errors flattened to strings by intermediate layers.
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{
		"timeout",
		"connection reset",
		"temporarily unavailable",
		"too many requests",
		"status 429",
		"status 502",
		"status 503",
	} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
