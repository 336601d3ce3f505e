package syncer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/acumatica"
)

// ArchiveStore persists attachment bytes to object storage and returns the
// storage key. Implemented by the S3 store; a nil store keeps metadata only.
type ArchiveStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// BackfillConfig carries the tunables of a backfill batch.
type BackfillConfig struct {
	// BatchSize bounds how many payments one invocation processes.
	BatchSize int
	// ItemDelay is the pause between per-item ERP calls.
	ItemDelay time.Duration
}

// DefaultBackfillConfig returns the production defaults.
func DefaultBackfillConfig() BackfillConfig {
	return BackfillConfig{
		BatchSize: 25,
		ItemDelay: 150 * time.Millisecond,
	}
}

// BackfillService walks the full local payment set in bounded batches,
// repairing application links or recording attachments. Progress is durable:
// each invocation resumes from the persisted (reference, doc type) cursor, so
// the external scheduler can re-invoke freely with no exactly-once guarantee.
type BackfillService struct {
	sessions    *SessionManager
	gateway     ERPGateway
	linker      *ApplicationLinker
	payments    receivable.PaymentRepository
	attachments receivable.AttachmentRepository
	changeLog   receivable.ChangeLogRepository
	progress    syncstate.BackfillRepository
	archive     ArchiveStore
	logger      *zap.Logger
	config      BackfillConfig
}

// NewBackfillService creates a backfill service. archive may be nil, in
// which case attachment bytes are not copied and only metadata is recorded.
func NewBackfillService(
	sessions *SessionManager,
	gateway ERPGateway,
	linker *ApplicationLinker,
	payments receivable.PaymentRepository,
	attachments receivable.AttachmentRepository,
	changeLog receivable.ChangeLogRepository,
	progress syncstate.BackfillRepository,
	archive ArchiveStore,
	logger *zap.Logger,
	config BackfillConfig,
) *BackfillService {
	return &BackfillService{
		sessions:    sessions,
		gateway:     gateway,
		linker:      linker,
		payments:    payments,
		attachments: attachments,
		changeLog:   changeLog,
		progress:    progress,
		archive:     archive,
		logger:      logger,
		config:      config,
	}
}

// Run processes one bounded batch of the given backfill job. A completed job
// short-circuits with alreadyCompleted and performs zero ERP calls.
func (s *BackfillService) Run(ctx context.Context, jobType syncstate.JobType, req BackfillRequest) *BackfillSummary {
	start := time.Now()

	if !jobType.IsValid() {
		return &BackfillSummary{
			JobType:    string(jobType),
			Error:      fmt.Sprintf("unknown backfill job type %q", jobType),
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	progress, err := s.progress.GetOrCreate(ctx, jobType)
	if err != nil {
		return s.failedSummary(jobType, fmt.Errorf("failed to load backfill progress: %w", err), start)
	}

	if progress.IsCompleted() {
		return &BackfillSummary{
			Success:              true,
			JobType:              string(jobType),
			AlreadyCompleted:     true,
			Completed:            true,
			ItemsProcessed:       progress.ItemsProcessed,
			TotalItems:           progress.TotalItems,
			LastProcessedRef:     progress.LastProcessedRef,
			LastProcessedDocType: progress.LastProcessedDocType,
			DurationMs:           time.Since(start).Milliseconds(),
		}
	}

	if progress.StartedAt == nil {
		total, err := s.payments.Count(ctx)
		if err != nil {
			return s.failedSummary(jobType, fmt.Errorf("failed to count payments: %w", err), start)
		}
		progress.Start(int(total))
	} else {
		progress.IsRunning = true
	}
	if err := s.progress.Save(ctx, progress); err != nil {
		return s.failedSummary(jobType, fmt.Errorf("failed to persist backfill progress: %w", err), start)
	}

	batchSize := s.config.BatchSize
	if req.BatchSize != nil {
		batchSize = *req.BatchSize
	}

	batch, err := s.payments.ListAfterRef(ctx, progress.LastProcessedRef, receivable.DocType(progress.LastProcessedDocType), batchSize)
	if err != nil {
		return s.recordRunError(ctx, progress, jobType, fmt.Errorf("failed to list payments after cursor: %w", err), start)
	}

	if len(batch) == 0 {
		progress.Complete()
		if err := s.progress.Save(ctx, progress); err != nil {
			s.logger.Error("Failed to persist backfill completion", zap.Error(err))
		}
		return &BackfillSummary{
			Success:              true,
			JobType:              string(jobType),
			Completed:            true,
			ItemsProcessed:       progress.ItemsProcessed,
			TotalItems:           progress.TotalItems,
			LastProcessedRef:     progress.LastProcessedRef,
			LastProcessedDocType: progress.LastProcessedDocType,
			DurationMs:           time.Since(start).Milliseconds(),
		}
	}

	session, credential, err := s.sessions.GetSession(ctx, false)
	if err != nil {
		return s.recordRunError(ctx, progress, jobType, err, start)
	}
	ep := acumatica.Endpoint{BaseURL: credential.BaseURL, Version: credential.EndpointVersion}

	var applicationsFound, attachmentsFound, errCount int
	var lastErr string
	for i := range batch {
		payment := &batch[i]

		var itemErr error
		switch jobType {
		case syncstate.JobPaymentApplications:
			linked, err := s.linker.Relink(ctx, ep, session.Cookie, payment, nil)
			applicationsFound += linked
			itemErr = err
		case syncstate.JobPaymentAttachments:
			found, err := s.recordAttachments(ctx, ep, session.Cookie, payment)
			attachmentsFound += found
			itemErr = err
		}
		if itemErr != nil {
			errCount++
			lastErr = itemErr.Error()
			s.logger.Warn("Backfill item failed",
				zap.String("job_type", string(jobType)),
				zap.String("payment_ref", payment.ReferenceNbr),
				zap.Error(itemErr),
			)
		}

		if s.config.ItemDelay > 0 && i < len(batch)-1 {
			select {
			case <-ctx.Done():
				return s.recordRunError(ctx, progress, jobType, ctx.Err(), start)
			case <-time.After(s.config.ItemDelay):
			}
		}
	}

	last := batch[len(batch)-1]
	progress.ApplyBatch(len(batch), applicationsFound, attachmentsFound, errCount, last.ReferenceNbr, last.DocType.String(), lastErr)
	if len(batch) < batchSize {
		// The cursor reached the end of the payment set.
		progress.Complete()
	}
	if err := s.progress.Save(ctx, progress); err != nil {
		s.logger.Error("Failed to persist backfill progress", zap.Error(err))
	}

	s.logger.Info("Backfill batch finished",
		zap.String("job_type", string(jobType)),
		zap.Int("batch_processed", len(batch)),
		zap.Int("items_processed", progress.ItemsProcessed),
		zap.Int("total_items", progress.TotalItems),
		zap.String("cursor_ref", progress.LastProcessedRef),
		zap.String("cursor_doc_type", progress.LastProcessedDocType),
		zap.Bool("completed", progress.IsCompleted()),
	)

	return &BackfillSummary{
		Success:              true,
		JobType:              string(jobType),
		Completed:            progress.IsCompleted(),
		ItemsProcessed:       progress.ItemsProcessed,
		TotalItems:           progress.TotalItems,
		BatchProcessed:       len(batch),
		ApplicationsFound:    applicationsFound,
		AttachmentsFound:     attachmentsFound,
		ErrorsCount:          errCount,
		LastProcessedRef:     progress.LastProcessedRef,
		LastProcessedDocType: progress.LastProcessedDocType,
		DurationMs:           time.Since(start).Milliseconds(),
	}
}

// Progress returns the durable progress row for the job. A job that never
// ran reports zero counters.
func (s *BackfillService) Progress(ctx context.Context, jobType syncstate.JobType) (*BackfillProgressView, error) {
	if !jobType.IsValid() {
		return nil, fmt.Errorf("unknown backfill job type %q", jobType)
	}
	progress, err := s.progress.GetOrCreate(ctx, jobType)
	if err != nil {
		return nil, fmt.Errorf("failed to load backfill progress: %w", err)
	}
	return &BackfillProgressView{
		JobType:              string(progress.JobType),
		TotalItems:           progress.TotalItems,
		ItemsProcessed:       progress.ItemsProcessed,
		ApplicationsFound:    progress.ApplicationsFound,
		AttachmentsFound:     progress.AttachmentsFound,
		ErrorsCount:          progress.ErrorsCount,
		LastProcessedRef:     progress.LastProcessedRef,
		LastProcessedDocType: progress.LastProcessedDocType,
		LastError:            progress.LastError,
		IsRunning:            progress.IsRunning,
		Completed:            progress.IsCompleted(),
		StartedAt:            progress.StartedAt,
		CompletedAt:          progress.CompletedAt,
	}, nil
}

// recordAttachments fetches the payment's files list and upserts a metadata
// row per file, optionally archiving the bytes to object storage.
func (s *BackfillService) recordAttachments(ctx context.Context, ep acumatica.Endpoint, cookie string, payment *receivable.Payment) (int, error) {
	detail, err := s.gateway.Detail(ctx, ep, cookie, "Payment", payment.DocType.String(), payment.ReferenceNbr, "files")
	if err != nil {
		return 0, fmt.Errorf("payment %s: files fetch failed: %w", payment.ReferenceNbr, err)
	}

	files := detail.Records("files")
	recorded := 0
	for _, file := range files {
		fileID := firstString(file, "id", "ID")
		fileName := firstString(file, "filename", "Filename", "Name")
		if fileID == "" {
			continue
		}

		attachment := receivable.NewAttachment(receivable.EntityPayment, payment.ReferenceNbr, payment.DocType, fileID, fileName)

		if s.archive != nil {
			if href := firstString(file, "href", "Href"); href != "" {
				body, contentType, err := s.gateway.GetFile(ctx, ep.BaseURL, cookie, href)
				if err != nil {
					s.logger.Warn("Attachment download failed, keeping metadata only",
						zap.String("payment_ref", payment.ReferenceNbr),
						zap.String("file_id", fileID),
						zap.Error(err),
					)
				} else {
					key := fmt.Sprintf("attachments/payments/%s/%s-%s", payment.ReferenceNbr, fileID, fileName)
					storageKey, err := s.archive.Put(ctx, key, body, contentType)
					if err != nil {
						s.logger.Warn("Attachment archive failed, keeping metadata only",
							zap.String("payment_ref", payment.ReferenceNbr),
							zap.String("file_id", fileID),
							zap.Error(err),
						)
					} else {
						attachment.StorageKey = storageKey
						attachment.SizeBytes = int64(len(body))
					}
				}
			}
		}

		if err := s.attachments.Upsert(ctx, attachment); err != nil {
			return recorded, fmt.Errorf("payment %s: attachment upsert failed: %w", payment.ReferenceNbr, err)
		}
		recorded++

		entry := receivable.NewChangeLogEntry(receivable.EntityPayment, payment.ReferenceNbr, receivable.ActionAttachmentFetched)
		entry.NewValue = fileName
		if err := s.changeLog.Append(ctx, entry); err != nil {
			s.logger.Warn("Failed to append attachment-fetched entry",
				zap.String("payment_ref", payment.ReferenceNbr),
				zap.Error(err),
			)
		}
	}
	return recorded, nil
}

func (s *BackfillService) failedSummary(jobType syncstate.JobType, err error, start time.Time) *BackfillSummary {
	return &BackfillSummary{
		JobType:    string(jobType),
		Error:      err.Error(),
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// recordRunError persists the sticky error so the job stays resumable, then
// reports the failure.
func (s *BackfillService) recordRunError(ctx context.Context, progress *syncstate.BackfillProgress, jobType syncstate.JobType, err error, start time.Time) *BackfillSummary {
	progress.ApplyBatch(0, 0, 0, 1, "", "", err.Error())
	if saveErr := s.progress.Save(ctx, progress); saveErr != nil {
		s.logger.Error("Failed to persist backfill error", zap.Error(saveErr))
	}
	summary := s.failedSummary(jobType, err, start)
	summary.ItemsProcessed = progress.ItemsProcessed
	summary.TotalItems = progress.TotalItems
	summary.LastProcessedRef = progress.LastProcessedRef
	summary.LastProcessedDocType = progress.LastProcessedDocType
	return summary
}
