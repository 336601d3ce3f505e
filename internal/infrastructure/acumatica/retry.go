package acumatica

import (
	"context"
	"time"
)

// RetryPolicy bounds a retry loop: at most MaxAttempts tries, exponential
// delay starting at BaseDelay, retrying only when Retryable returns true.
// Login and detail fetches carry different policies: logins retry transient
// 5xx failures, detail fetches are skip-and-record instead of retried to
// bound run duration.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(error) bool
}

// LoginRetryPolicy retries transient upstream failures during login.
func LoginRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Retryable:   IsRetryable,
	}
}

// NoRetryPolicy performs a single attempt.
func NoRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// Retry runs fn under the policy, sleeping with exponential backoff between
// attempts. The last error is returned when attempts are exhausted or the
// error is not retryable.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if policy.Retryable == nil || !policy.Retryable(err) || attempt == attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
