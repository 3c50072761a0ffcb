// Package resilience classifies errors into the two kinds the job runtime
// cares about (precondition failures that must not be retried, and
// transient failures that may) and provides bounded retry for side
// channels that sit outside the runtime, such as audit writes.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// NonRetriableType is the application error type registered with the job
// runtime's retry policy so that precondition failures stop retries
// immediately.
const NonRetriableType = "NonRetriable"

// NonRetriableError marks a precondition failure: the current committed
// state makes the operation impossible, so retrying cannot help.
type NonRetriableError struct {
	Err error
}

func (e *NonRetriableError) Error() string {
	return e.Err.Error()
}

func (e *NonRetriableError) Unwrap() error {
	return e.Err
}

// NonRetriable wraps err as a precondition failure. Returns nil for nil.
func NonRetriable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetriableError{Err: err}
}

// IsNonRetriable reports whether any error in the chain is a precondition
// failure.
func IsNonRetriable(err error) bool {
	var nr *NonRetriableError
	return errors.As(err, &nr)
}

// TransientError wraps an error that is safe to retry (network timeout,
// connection reset, transient database failure).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps an error as explicitly retriable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient network patterns.
// A non-retriable error is never transient, whatever it wraps.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsNonRetriable(err) {
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

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for wrapped driver errors.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"i/o timeout",
		"server closed idle connection",
		"conn busy",
		"too many clients",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
