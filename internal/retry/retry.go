// SPDX-License-Identifier: MPL-2.0

// Package retry re-runs operations that fail with transient network errors.
package retry

import (
	"context"
	"fmt"
	"time"
)

// DefaultPolicy retries three times starting at 500ms.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseBackoff: 500 * time.Millisecond}

// Policy bounds how often and how slowly an operation is retried.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// Do runs op until it succeeds, fails permanently, or the policy is
// exhausted. The delay doubles after each attempt. ctx is checked between
// attempts so an abandoned operation stops immediately.
//
// Errors for which IsTransient returns false are returned at once. On
// exhaustion the last error is returned.
func Do(ctx context.Context, p Policy, op func(attempt int) error) error {
	return WithBackoff(ctx, p.MaxAttempts, p.BaseBackoff, func(attempt int) (bool, error) {
		err := op(attempt)
		return IsTransient(err), err
	})
}

// WithBackoff retries op up to maxAttempts times with exponential backoff.
//
// op returns (shouldRetry bool, err error). If shouldRetry is false, err is
// returned immediately (nil on success, non-nil on permanent failure).
func WithBackoff(
	ctx context.Context,
	maxAttempts int,
	baseBackoff time.Duration,
	op func(attempt int) (retry bool, err error),
) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			timer := time.NewTimer(baseBackoff * time.Duration(1<<(attempt-1)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-timer.C:
			}
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}
