package services

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy caps how often a rate-limited operation is reattempted.
// MaxAttempts counts every invocation, including the first. The delay is
// a fixed interval: FatSecret's throttle resets on a ~60s window, so
// exponential growth buys nothing here.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 4,
	Delay:       60 * time.Second,
}

// ExecuteWithRetry runs op, retrying only rate-limited failures until the
// attempt budget runs out. The wait between attempts suspends just the
// calling goroutine and honors ctx cancellation, so resolutions for other
// ids keep flowing while one id cools down.
func ExecuteWithRetry[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for remaining := attempts; remaining > 0; remaining-- {
		out, err := op()
		if err == nil {
			return out, nil
		}
		if !IsRateLimited(err) {
			return zero, err
		}
		lastErr = err
		if remaining > 1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(policy.Delay):
			}
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %v", ErrRateLimitExhausted, attempts, lastErr)
}
