package domain

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a deliberate user stop. It must stay distinguishable
// from failures so callers don't render an error state after a cancel.
var ErrCancelled = errors.New("cancelled")

// ErrNotConfigured means a provider is missing credentials or not selected.
// Never retried; the user has to fix configuration.
var ErrNotConfigured = errors.New("provider not configured")

// TransientError wraps a failure worth retrying at the poll layer
// (timeouts, 5xx, connection resets).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RunFailedError is a terminal scrape failure: the upstream run reported a
// failure status, the submission was rejected, or retries were exhausted.
// Resubmitting the same query is the only recovery.
type RunFailedError struct {
	RunID  string
	Status string
	Reason string
}

func (e *RunFailedError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("scrape run %s terminated with status %s: %s", e.RunID, e.Status, e.Reason)
	}
	return fmt.Sprintf("scrape run failed: %s", e.Reason)
}

// BudgetError is a pre-flight credit rejection. No provider call has been
// made when this is returned.
type BudgetError struct {
	Remaining float64
	Needed    float64
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("insufficient credits: need ~%.1f, have %.1f", e.Needed, e.Remaining)
}
