package domain

import (
	"errors"
	"fmt"
)

// TransientError marks an external failure (auth hiccup, transport blip)
// that should skip the affected step of the current tick but never stop
// the daemon loop.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is, or wraps, a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// OrderError is an exchange rejection of an order. It carries the
// exchange-provided reason; retry policy belongs to the exchange adapter,
// not the core.
type OrderError struct {
	Symbol string
	Reason string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order rejected for %s: %s", e.Symbol, e.Reason)
}

// IsOrderError reports whether err is, or wraps, an OrderError.
func IsOrderError(err error) bool {
	var oe *OrderError
	return errors.As(err, &oe)
}
