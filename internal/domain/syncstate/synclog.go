package syncstate

import (
	"time"

	"github.com/google/uuid"
)

// SyncLog is one append-only row per sync invocation, kept for historical
// observability. The sync engine writes these and never reads them back.
type SyncLog struct {
	ID           uuid.UUID
	EntityType   string
	Success      bool
	Created      int
	Updated      int
	TotalFetched int
	ErrorCount   int
	DurationMs   int64
	// TestMode marks dry runs triggered with the test-mode override.
	TestMode bool
	RanAt    time.Time
}

// NewSyncLog creates a log row for a finished invocation.
func NewSyncLog(entityType string, success bool, created, updated, totalFetched, errorCount int, duration time.Duration, testMode bool) *SyncLog {
	return &SyncLog{
		ID:           uuid.New(),
		EntityType:   entityType,
		Success:      success,
		Created:      created,
		Updated:      updated,
		TotalFetched: totalFetched,
		ErrorCount:   errorCount,
		DurationMs:   duration.Milliseconds(),
		TestMode:     testMode,
		RanAt:        time.Now(),
	}
}
