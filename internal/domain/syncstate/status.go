package syncstate

import (
	"time"

	"github.com/arflow/backend/internal/domain/shared"
)

// RunState is the lifecycle state of the latest sync run for an entity type.
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
)

const (
	// MaxStoredErrors bounds the error list persisted with a run.
	MaxStoredErrors = 150
	// MaxReturnedErrors bounds the error list returned to the caller.
	MaxReturnedErrors = 10
)

// SyncStatus is the single durable status row per entity type. It is mutated
// at the start (running) and end (completed or failed) of every run so
// external monitoring never sees a stale running state indefinitely.
type SyncStatus struct {
	shared.BaseEntity

	// EntityType is "customer", "invoice" or "payment".
	EntityType string
	State      RunState
	// LookbackMinutes is the incremental window: the run fetches records
	// modified after now minus this many minutes.
	LookbackMinutes int
	LastRunAt       *time.Time
	LastSuccessAt   *time.Time
	Created         int
	Updated         int
	TotalFetched    int
	// Errors is the bounded per-record error list of the last run.
	Errors     []string
	LastError  string
	DurationMs int64
}

// NewSyncStatus creates an idle status row for an entity type.
func NewSyncStatus(entityType string, lookbackMinutes int) *SyncStatus {
	return &SyncStatus{
		BaseEntity:      shared.NewBaseEntity(),
		EntityType:      entityType,
		State:           RunStateIdle,
		LookbackMinutes: lookbackMinutes,
	}
}

// BeginRun marks the status row running and clears the previous counts.
func (s *SyncStatus) BeginRun() {
	now := time.Now()
	s.State = RunStateRunning
	s.LastRunAt = &now
	s.Created = 0
	s.Updated = 0
	s.TotalFetched = 0
	s.Errors = nil
	s.LastError = ""
	s.DurationMs = 0
}

// CompleteRun records a finished run. The error list is truncated to
// MaxStoredErrors before persisting.
func (s *SyncStatus) CompleteRun(created, updated, totalFetched int, errs []string, duration time.Duration) {
	now := time.Now()
	s.State = RunStateCompleted
	s.LastSuccessAt = &now
	s.Created = created
	s.Updated = updated
	s.TotalFetched = totalFetched
	s.Errors = TruncateErrors(errs, MaxStoredErrors)
	s.DurationMs = duration.Milliseconds()
	if len(errs) > 0 {
		s.LastError = errs[len(errs)-1]
	}
}

// FailRun records a run that aborted before completing.
func (s *SyncStatus) FailRun(err error, duration time.Duration) {
	s.State = RunStateFailed
	s.LastError = err.Error()
	s.DurationMs = duration.Milliseconds()
}

// TruncateErrors bounds an error list to at most max entries.
func TruncateErrors(errs []string, max int) []string {
	if len(errs) <= max {
		return errs
	}
	return errs[:max]
}
