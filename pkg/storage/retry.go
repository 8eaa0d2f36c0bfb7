package storage

import (
	"context"
	"errors"
	"time"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 25 * time.Millisecond
)

// Retry runs op up to three times with doubling backoff, for backends whose
// failures are often transient (lost connections, lock timeouts). Domain
// errors and context cancellation abort immediately; a failure that
// exhausts the budget is wrapped in UnavailableError.
func Retry(ctx context.Context, op func() error) error {
	var err error
	delay := retryBaseDelay

	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == retryAttempts-1 {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return UnavailableError{Err: err}
		}
		delay *= 2
	}

	return UnavailableError{Err: err}
}

// retryable reports whether the error could plausibly clear on a retry.
// The typed domain errors are deterministic and never retried.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var (
		validation ValidationError
		notFound   NotFoundError
		conflict   ConflictError
	)
	if errors.As(err, &validation) || errors.As(err, &notFound) || errors.As(err, &conflict) {
		return false
	}

	return true
}
