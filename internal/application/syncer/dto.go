package syncer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/arflow/backend/internal/domain/syncstate"
)

// SyncRequest is the optional-override body accepted by every sync trigger.
// Absent fields fall back to the persisted status row and configuration.
type SyncRequest struct {
	// LookbackMinutes overrides the incremental window for this run only.
	LookbackMinutes *int `json:"lookbackMinutes,omitempty" binding:"omitempty,min=1,max=10080"`
	// BatchSize overrides the page size for this run only.
	BatchSize *int `json:"batchSize,omitempty" binding:"omitempty,min=1,max=500"`
	// Skip starts pagination at an offset, for manual repair runs.
	Skip int `json:"skip,omitempty" binding:"omitempty,min=0"`
	// TestMode fetches and maps without persisting anything.
	TestMode bool `json:"testMode,omitempty"`
	// Credentials runs against an explicit credential set instead of the
	// stored active one. The one-off session is logged out after the run and
	// never cached.
	Credentials *CredentialInput `json:"credentials,omitempty"`
}

// SyncSummary is the run outcome returned to the trigger caller. Business
// failures are reported with Success=false in a 200 response so callers
// branch on the body, not the HTTP status.
type SyncSummary struct {
	Success      bool     `json:"success"`
	EntityType   string   `json:"entityType"`
	Created      int      `json:"created"`
	Updated      int      `json:"updated"`
	TotalFetched int      `json:"totalFetched"`
	// Errors is truncated to the first few per-record failures; the full
	// bounded list lives on the status row.
	Errors     []string `json:"errors"`
	DurationMs int64    `json:"durationMs"`
	TestMode   bool     `json:"testMode,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// newFailedSummary builds the run-level-failure shape of a summary.
func newFailedSummary(entityType string, err error, duration time.Duration) *SyncSummary {
	return &SyncSummary{
		Success:    false,
		EntityType: entityType,
		Errors:     []string{},
		Error:      err.Error(),
		DurationMs: duration.Milliseconds(),
	}
}

// BackfillRequest is the optional-override body accepted by backfill triggers.
type BackfillRequest struct {
	BatchSize *int `json:"batchSize,omitempty" binding:"omitempty,min=1,max=200"`
}

// BackfillSummary is the outcome of one backfill batch invocation.
type BackfillSummary struct {
	Success              bool   `json:"success"`
	JobType              string `json:"jobType"`
	AlreadyCompleted     bool   `json:"alreadyCompleted,omitempty"`
	Completed            bool   `json:"completed"`
	ItemsProcessed       int    `json:"itemsProcessed"`
	TotalItems           int    `json:"totalItems"`
	BatchProcessed       int    `json:"batchProcessed"`
	ApplicationsFound    int    `json:"applicationsFound"`
	AttachmentsFound     int    `json:"attachmentsFound"`
	ErrorsCount          int    `json:"errorsCount"`
	LastProcessedRef     string `json:"lastProcessedRef,omitempty"`
	LastProcessedDocType string `json:"lastProcessedDocType,omitempty"`
	DurationMs           int64  `json:"durationMs"`
	Error                string `json:"error,omitempty"`
}

// BackfillProgressView is the durable progress row shaped for the status
// endpoint.
type BackfillProgressView struct {
	JobType              string     `json:"jobType"`
	TotalItems           int        `json:"totalItems"`
	ItemsProcessed       int        `json:"itemsProcessed"`
	ApplicationsFound    int        `json:"applicationsFound"`
	AttachmentsFound     int        `json:"attachmentsFound"`
	ErrorsCount          int        `json:"errorsCount"`
	LastProcessedRef     string     `json:"lastProcessedRef,omitempty"`
	LastProcessedDocType string     `json:"lastProcessedDocType,omitempty"`
	LastError            string     `json:"lastError,omitempty"`
	IsRunning            bool       `json:"isRunning"`
	Completed            bool       `json:"completed"`
	StartedAt            *time.Time `json:"startedAt,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

// OrphanedApplication is one diagnostics row: an application whose invoice
// reference has no local invoice yet.
type OrphanedApplication struct {
	PaymentRefNbr   string          `json:"paymentRefNbr"`
	InvoiceRefNbr   string          `json:"invoiceRefNbr"`
	DocType         string          `json:"docType"`
	AmountPaid      decimal.Decimal `json:"amountPaid"`
	ApplicationDate *time.Time      `json:"applicationDate,omitempty"`
}

// OrphanReport is the orphaned-application diagnostics response.
type OrphanReport struct {
	Count   int                   `json:"count"`
	Orphans []OrphanedApplication `json:"orphans"`
}

// StatusView is one sync-status row shaped for the status endpoint.
type StatusView struct {
	EntityType      string             `json:"entityType"`
	State           syncstate.RunState `json:"state"`
	LookbackMinutes int                `json:"lookbackMinutes"`
	LastRunAt       *time.Time         `json:"lastRunAt,omitempty"`
	LastSuccessAt   *time.Time         `json:"lastSuccessAt,omitempty"`
	Created         int                `json:"created"`
	Updated         int                `json:"updated"`
	TotalFetched    int                `json:"totalFetched"`
	Errors          []string           `json:"errors"`
	LastError       string             `json:"lastError,omitempty"`
	DurationMs      int64              `json:"durationMs"`
}
