package execution

import (
	"errors"
	"fmt"
)

// Deterministic rejections.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPositionOpen      = errors.New("a position is already open")
	ErrTradingDisabled   = errors.New("automated trading is disabled")
)

// Simulated venue failures.
var (
	ErrServiceUnavailable = errors.New("503 service unavailable")
	ErrRateLimited        = errors.New("api rate limit exceeded")
	ErrTimeout            = errors.New("network timeout")
	ErrSyncError          = errors.New("order book synchronization error")
)

// transientCatalog is the set a simulated failure is drawn from.
var transientCatalog = []error{
	ErrServiceUnavailable,
	ErrRateLimited,
	ErrTimeout,
	ErrSyncError,
}

// ValidationError is a deterministic rejection of a request. It is never retried.
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation: %v", e.Err)
	}
	return fmt.Sprintf("validation: %v: %s", e.Err, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func rejectf(err error, format string, args ...any) *ValidationError {
	return &ValidationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

// TransientError is a simulated venue failure. The request had no effect and the
// caller may retry it.
type TransientError struct {
	Op  Operation
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a simulated venue failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// InvariantViolation signals a programming defect such as opening a second position.
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Detail
}
