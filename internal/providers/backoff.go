/**
 * @description
 * Bounded retry-with-backoff for outbound provider calls.
 * Explicitly loop-based with an attempt counter so memory stays bounded under
 * long retry storms and attempt counts are independently testable.
 *
 * @dependencies
 * - backend/internal/logger
 * - standard "context", "time"
 */

package providers

import (
	"context"
	"errors"
	"time"

	"github.com/soletrack-project/backend/internal/logger"
)

// RetryPolicy bounds the retry loop around one logical provider call.
type RetryPolicy struct {
	BaseDelay  time.Duration // first backoff step; doubles each retry
	MaxRetries int           // retries after the initial attempt
}

// DefaultRetryPolicy matches the pipeline config defaults.
var DefaultRetryPolicy = RetryPolicy{BaseDelay: 500 * time.Millisecond, MaxRetries: 4}

// Delay returns the backoff before retry number n (1-based), honoring a
// rate-limit hint when the provider supplied one.
func (p RetryPolicy) Delay(n int, err error) time.Duration {
	var rl *RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
	}
	return d
}

// DoWithRetry runs attempt until it succeeds, fails terminally, or the policy
// is exhausted. Returns the number of attempts actually made alongside the
// final error.
func DoWithRetry(ctx context.Context, policy RetryPolicy, attempt func(ctx context.Context) error) (int, error) {
	attempts := 0
	var err error

	for try := 0; try <= policy.MaxRetries; try++ {
		if cerr := ctxErr(ctx); cerr != nil {
			return attempts, cerr
		}

		attempts++
		err = attempt(ctx)
		if err == nil {
			return attempts, nil
		}
		if !IsRetryable(err) {
			return attempts, err
		}
		if try == policy.MaxRetries {
			break
		}

		delay := policy.Delay(try+1, err)
		logger.Info("retryable provider error (attempt %d/%d, backing off %s): %v",
			attempts, policy.MaxRetries+1, delay, err)

		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(delay):
		}
	}

	return attempts, err
}
