package retry

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidPolicy is wrapped by every error returned from Policy.Validate.
	ErrInvalidPolicy = errors.New("retry: invalid policy")

	// ErrNoResult is returned when an async operation closes its result channel without sending a value.
	ErrNoResult = errors.New("retry: operation produced no result")
)

// Kind classifies an error returned by an operation.
type Kind int

const (
	// KindOperation is an ordinary failure. It is retried by default.
	KindOperation Kind = iota
	// KindNonRetryable is a failure marked with NonRetryable.
	KindNonRetryable
	// KindCancellation is a failure caused by context cancellation or an expired deadline.
	// It is never retried.
	KindCancellation
)

func (k Kind) String() string {
	switch k {
	case KindOperation:
		return "operation"
	case KindNonRetryable:
		return "non-retryable"
	case KindCancellation:
		return "cancellation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Classify returns the kind of err. Cancellation takes precedence over the non-retryable marker.
func Classify(err error) Kind {
	switch {
	case IsCancellation(err):
		return KindCancellation
	case IsNonRetryable(err):
		return KindNonRetryable
	default:
		return KindOperation
	}
}

// IsCancellation reports whether err was caused by a cancelled context or an expired deadline.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}
