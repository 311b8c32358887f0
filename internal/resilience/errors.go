// Package resilience retries warehouse statements that fail for transient
// reasons such as lock contention or dropped connections.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an error as safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// transientPatterns are lower-cased fragments of driver messages that
// indicate the statement can be re-issued unchanged.
var transientPatterns = []string{
	// SQLite lock contention.
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"sqlite_locked",
	// Postgres and network.
	"connection reset by peer",
	"broken pipe",
	"i/o timeout",
	"conn closed",
	"unexpected eof",
	"too many clients already",
	"the database system is starting up",
	"could not serialize access",
	"deadlock detected",
}

// IsTransient reports whether err (or anything it wraps) is a TransientError,
// a network timeout, a connection reset, or a known lock/contention message.
func IsTransient(err error) bool {
	if err == nil {
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

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
