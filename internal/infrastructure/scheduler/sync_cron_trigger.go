// Package scheduler provides the optional in-process trigger that runs sync
// and backfill on an interval. Deployments that drive the engine purely from
// an external scheduler leave it disabled.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arflow/backend/internal/application/syncer"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/domain/syncstate"
)

// SyncRunner runs incremental sync for all entity types
type SyncRunner interface {
	SyncAll(ctx context.Context, req syncer.SyncRequest) []*syncer.SyncSummary
}

// BackfillRunner runs one bounded backfill batch
type BackfillRunner interface {
	Run(ctx context.Context, jobType syncstate.JobType, req syncer.BackfillRequest) *syncer.BackfillSummary
}

// SyncCronTriggerConfig holds configuration for the sync cron trigger
type SyncCronTriggerConfig struct {
	// SyncInterval is how often a full sync of all entity types runs
	SyncInterval time.Duration

	// JobTimeout bounds one scheduled run
	JobTimeout time.Duration

	// BackfillEnabled also advances the backfill jobs one batch per tick
	BackfillEnabled bool
}

// DefaultSyncCronTriggerConfig returns default configuration
func DefaultSyncCronTriggerConfig() SyncCronTriggerConfig {
	return SyncCronTriggerConfig{
		SyncInterval: 30 * time.Minute,
		JobTimeout:   25 * time.Minute,
	}
}

// SyncCronTrigger periodically invokes the sync engine. Each tick is
// deduplicated through the idempotency store so two instances sharing a
// store do not run the same window twice.
type SyncCronTrigger struct {
	config      SyncCronTriggerConfig
	syncer      SyncRunner
	backfiller  BackfillRunner
	idempotency shared.IdempotencyStore
	logger      *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncCronTrigger creates a new sync cron trigger. backfiller may be nil
// when backfill is driven externally.
func NewSyncCronTrigger(
	config SyncCronTriggerConfig,
	syncRunner SyncRunner,
	backfillRunner BackfillRunner,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *SyncCronTrigger {
	return &SyncCronTrigger{
		config:      config,
		syncer:      syncRunner,
		backfiller:  backfillRunner,
		idempotency: idempotency,
		logger:      logger,
	}
}

// Start starts the cron trigger
func (c *SyncCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Sync cron trigger started",
		zap.Duration("sync_interval", c.config.SyncInterval),
		zap.Bool("backfill_enabled", c.config.BackfillEnabled),
	)

	return nil
}

// Stop stops the cron trigger and waits for an in-flight run to finish
func (c *SyncCronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Sync cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop triggers a run every SyncInterval
func (c *SyncCronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.SyncInterval)
	defer ticker.Stop()

	// Run immediately on start
	c.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runOnce(ctx)
		}
	}
}

// runOnce runs one scheduled sync (and optionally one backfill batch),
// guarded by the idempotency store.
func (c *SyncCronTrigger) runOnce(ctx context.Context) {
	key := c.windowKey(time.Now())

	admitted, err := c.idempotency.MarkProcessed(ctx, key, c.config.SyncInterval)
	if err != nil {
		// A broken dedup store should not stop syncing; the engine's
		// upserts are idempotent anyway.
		c.logger.Warn("Idempotency check failed, running anyway",
			zap.String("key", key),
			zap.Error(err),
		)
	} else if !admitted {
		c.logger.Debug("Sync window already claimed", zap.String("key", key))
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, c.config.JobTimeout)
	defer cancel()

	summaries := c.syncer.SyncAll(runCtx, syncer.SyncRequest{})
	for _, summary := range summaries {
		if summary != nil && !summary.Success {
			c.logger.Warn("Scheduled sync reported failure",
				zap.String("entity_type", summary.EntityType),
				zap.String("error", summary.Error),
			)
		}
	}

	if c.config.BackfillEnabled && c.backfiller != nil {
		for _, jobType := range []syncstate.JobType{
			syncstate.JobPaymentApplications,
			syncstate.JobPaymentAttachments,
		} {
			result := c.backfiller.Run(runCtx, jobType, syncer.BackfillRequest{})
			if result != nil && !result.Success {
				c.logger.Warn("Scheduled backfill batch failed",
					zap.String("job_type", string(jobType)),
					zap.String("error", result.Error),
				)
			}
		}
	}
}

// windowKey buckets time into SyncInterval-sized windows so every instance
// computes the same key for the same tick.
func (c *SyncCronTrigger) windowKey(now time.Time) string {
	window := now.Unix() / int64(c.config.SyncInterval.Seconds())
	return fmt.Sprintf("sync:all:%d", window)
}

// IsRunning reports whether the trigger loop is active
func (c *SyncCronTrigger) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}
