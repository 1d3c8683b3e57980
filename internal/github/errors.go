package github

import (
	"errors"
	"fmt"
	"time"
)

// StructuralError means the API rejected the payload itself: an identical
// retry fails identically, so callers must change the request instead of
// retrying it. GitHub signals this with 422.
type StructuralError struct {
	StatusCode int
	Message    string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("review API rejected payload (status %d): %s", e.StatusCode, e.Message)
}

// TransientError means server state, not the payload, caused the failure:
// rate limits, 5xx responses, and network errors. RetryAfter carries the
// server's wait hint when one was provided.
type TransientError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient API failure: %v", e.Err)
	}
	return fmt.Sprintf("transient API failure (status %d): %s", e.StatusCode, e.Message)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsStructural reports whether err is a structural payload rejection.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
