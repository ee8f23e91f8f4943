// Package retry runs fallible calls, such as LLM requests made from
// inside a node, with exponential backoff.
//
// Only transient failures are retried. An error is transient when it was
// wrapped with Transient, or when it reports Temporary() or Timeout()
// (net.Error does). Everything else, including context cancellation, is
// permanent and returned on the first attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
)

// Category says whether retrying can help.
type Category int

const (
	// Permanent errors fail the call immediately.
	Permanent Category = iota
	// Transient errors are retried until the policy gives up.
	Transient
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// categorized marks an error with a category.
type categorized struct {
	err      error
	category Category
}

func (e *categorized) Error() string { return e.err.Error() }
func (e *categorized) Unwrap() error { return e.err }

// MarkTransient marks err as worth retrying.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &categorized{err: err, category: Transient}
}

// MarkPermanent marks err as not worth retrying, overriding any
// Temporary or Timeout method it has.
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &categorized{err: err, category: Permanent}
}

// Categorize classifies err.
func Categorize(err error) Category {
	if err == nil {
		return Permanent
	}

	var c *categorized
	if errors.As(err, &c) {
		return c.category
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Permanent
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return Transient
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return Transient
	}
	return Permanent
}

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	return Categorize(err) == Transient
}

// ExhaustedError is returned when every attempt failed with a transient
// error.
type ExhaustedError struct {
	// Attempts is the number of calls made.
	Attempts int
	// Err is the last error.
	Err error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last error.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}
