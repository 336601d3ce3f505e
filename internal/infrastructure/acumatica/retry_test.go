package acumatica

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Retryable: IsRetryable}

	t.Run("retries transient failures until success", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), policy, func() error {
			attempts++
			if attempts < 3 {
				return &StatusError{Code: 503}
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("stops at the attempt cap", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), policy, func() error {
			attempts++
			return &StatusError{Code: 500}
		})

		require.Error(t, err)
		assert.Equal(t, 3, attempts)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 500, statusErr.Code)
	})

	t.Run("non-retryable errors fail immediately", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), policy, func() error {
			attempts++
			return errors.New("bad credentials")
		})

		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("cancelled context aborts the backoff wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Retry(ctx, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute, Retryable: IsRetryable}, func() error {
			return &StatusError{Code: 502}
		})

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("single-attempt policy never sleeps", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), NoRetryPolicy(), func() error {
			attempts++
			return &StatusError{Code: 500}
		})

		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&StatusError{Code: 500}))
	assert.True(t, IsRetryable(&StatusError{Code: 503}))
	assert.False(t, IsRetryable(&StatusError{Code: 401}))
	assert.False(t, IsRetryable(errors.New("plain error")))
	assert.False(t, IsRetryable(nil))
}
