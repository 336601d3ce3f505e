package syncstate

import (
	"time"

	"github.com/arflow/backend/internal/domain/shared"
)

// JobType identifies a long-running backfill job.
type JobType string

const (
	// JobPaymentApplications relinks application history for every payment.
	JobPaymentApplications JobType = "payment_applications"
	// JobPaymentAttachments records (and optionally archives) files attached
	// to every payment.
	JobPaymentAttachments JobType = "payment_attachments"
)

// IsValid reports whether the job type is known.
func (j JobType) IsValid() bool {
	switch j {
	case JobPaymentApplications, JobPaymentAttachments:
		return true
	default:
		return false
	}
}

// BackfillProgress is the single durable progress row per backfill job type.
// Each scheduler invocation processes one bounded batch starting from the
// persisted cursor, so the job resumes after partial failure instead of
// restarting. The cursor is the full natural key of the last processed
// payment: a reference number alone is only unique within a doc type, and
// natural-key order is stable under concurrent inserts, unlike a row offset.
type BackfillProgress struct {
	shared.BaseEntity

	JobType    JobType
	TotalItems int
	// LastProcessedRef and LastProcessedDocType form the keyset cursor: the
	// natural key of the last payment already processed. An empty ref means
	// the job has not started.
	LastProcessedRef     string
	LastProcessedDocType string
	ItemsProcessed       int
	ApplicationsFound    int
	AttachmentsFound     int
	ErrorsCount          int
	// LastError is sticky: a failed batch records it but the job stays
	// resumable rather than entering a terminal failed state.
	LastError   string
	IsRunning   bool
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewBackfillProgress creates an unstarted progress row.
func NewBackfillProgress(jobType JobType) *BackfillProgress {
	return &BackfillProgress{
		BaseEntity: shared.NewBaseEntity(),
		JobType:    jobType,
	}
}

// Start records the total item count on the first invocation.
func (b *BackfillProgress) Start(totalItems int) {
	now := time.Now()
	b.TotalItems = totalItems
	b.StartedAt = &now
	b.IsRunning = true
}

// ApplyBatch folds one processed batch into the counters and advances the
// cursor to the natural key of the batch's last payment.
func (b *BackfillProgress) ApplyBatch(processed, applicationsFound, attachmentsFound, errCount int, lastRef, lastDocType, lastError string) {
	b.ItemsProcessed += processed
	b.ApplicationsFound += applicationsFound
	b.AttachmentsFound += attachmentsFound
	b.ErrorsCount += errCount
	if lastRef != "" {
		b.LastProcessedRef = lastRef
		b.LastProcessedDocType = lastDocType
	}
	if lastError != "" {
		b.LastError = lastError
	}
	b.IsRunning = false
}

// Complete marks the job finished. Further invocations short-circuit.
func (b *BackfillProgress) Complete() {
	now := time.Now()
	b.CompletedAt = &now
	b.IsRunning = false
}

// IsCompleted reports whether the job already ran to the end.
func (b *BackfillProgress) IsCompleted() bool {
	return b.CompletedAt != nil
}
