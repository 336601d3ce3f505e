package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	t.Run("first mark succeeds, second is rejected", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		first, err := store.MarkProcessed(context.Background(), "sync:invoice:run-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, first)

		second, err := store.MarkProcessed(context.Background(), "sync:invoice:run-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, second)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(context.Background(), "sync:payment:run-2", time.Millisecond)
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)

		again, err := store.MarkProcessed(context.Background(), "sync:payment:run-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, again)
	})

	t.Run("concurrent marks admit exactly one caller", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		const workers = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		admitted := 0

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.MarkProcessed(context.Background(), "sync:all:run-3", time.Minute)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, admitted)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	t.Run("reports marked keys until expiry", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		processed, err := store.IsProcessed(context.Background(), "unknown")
		require.NoError(t, err)
		assert.False(t, processed)

		_, err = store.MarkProcessed(context.Background(), "backfill:applications:run-4", 10*time.Millisecond)
		require.NoError(t, err)

		processed, err = store.IsProcessed(context.Background(), "backfill:applications:run-4")
		require.NoError(t, err)
		assert.True(t, processed)

		time.Sleep(20 * time.Millisecond)

		processed, err = store.IsProcessed(context.Background(), "backfill:applications:run-4")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	t.Run("cleanup drops expired entries", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		for i := 0; i < 5; i++ {
			_, err := store.MarkProcessed(context.Background(), fmt.Sprintf("key-%d", i), time.Millisecond)
			require.NoError(t, err)
		}
		assert.Equal(t, 5, store.Size())

		time.Sleep(5 * time.Millisecond)
		store.cleanup()

		assert.Equal(t, 0, store.Size())
	})
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	t.Run("close is idempotent", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()

		assert.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}
