package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed invocation keys to prevent duplicate
// processing. The external scheduler re-invokes sync and backfill triggers
// with no exactly-once guarantee, so triggers that accept an idempotency key
// mark it here before starting work.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources.
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling.
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed keys. After this duration the
	// same key is accepted again.
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled.
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     time.Hour,
		Enabled: true,
	}
}
