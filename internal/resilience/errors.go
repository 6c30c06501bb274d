package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// TransientError wraps an error that is safe to retry (e.g., 429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsThrottled reports whether err carries a rate-limit or overload status.
func IsThrottled(err error) bool {
	var te *TransientError
	if !errors.As(err, &te) {
		return false
	}
	return te.StatusCode == 429 || te.StatusCode == 529
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"overloaded",
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, a per-call deadline, or a network fault that usually
// clears on its own. Cancellation of the caller's context is never
// transient.
func IsTransient(err error) bool {
	if err == nil || eris.Is(err, context.Canceled) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	if eris.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	default:
		return false
	}
}

// Error kinds reported with failed pages.
const (
	KindTransient = "transient"
	KindPermanent = "permanent"
	KindTimeout   = "timeout"
	KindOpen      = "circuit_open"
)

// Kind labels err for logs and run metadata.
func Kind(err error) string {
	switch {
	case eris.Is(err, ErrCircuitOpen):
		return KindOpen
	case eris.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case IsTransient(err):
		return KindTransient
	default:
		return KindPermanent
	}
}
