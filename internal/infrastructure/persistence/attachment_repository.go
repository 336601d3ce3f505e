package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormAttachmentRepository implements receivable.AttachmentRepository using GORM
type GormAttachmentRepository struct {
	db *gorm.DB
}

// NewGormAttachmentRepository creates a new GormAttachmentRepository
func NewGormAttachmentRepository(db *gorm.DB) *GormAttachmentRepository {
	return &GormAttachmentRepository{db: db}
}

// Upsert inserts the attachment or refreshes the row with the same
// (reference_nbr, file_id). Backfill runs revisit documents, so replays
// must not fail on the unique index.
func (r *GormAttachmentRepository) Upsert(ctx context.Context, attachment *receivable.Attachment) error {
	var existing models.AttachmentModel
	err := r.db.WithContext(ctx).
		Where("reference_nbr = ? AND file_id = ?", attachment.ReferenceNbr, attachment.FileID).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		var model models.AttachmentModel
		model.FromDomain(attachment)
		return r.db.WithContext(ctx).Create(&model).Error
	}

	// Keep the stored row's identity; refresh the mutable metadata.
	return r.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"file_name":   attachment.FileName,
		"storage_key": attachment.StorageKey,
		"size_bytes":  attachment.SizeBytes,
		"fetched_at":  attachment.FetchedAt,
		"updated_at":  attachment.UpdatedAt,
	}).Error
}

// ListByReference returns attachments recorded for a document
func (r *GormAttachmentRepository) ListByReference(ctx context.Context, refNbr string) ([]receivable.Attachment, error) {
	var rows []models.AttachmentModel
	if err := r.db.WithContext(ctx).
		Where("reference_nbr = ?", refNbr).
		Order("file_name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	attachments := make([]receivable.Attachment, len(rows))
	for i := range rows {
		attachments[i] = *rows[i].ToDomain()
	}
	return attachments, nil
}

// Ensure GormAttachmentRepository implements AttachmentRepository
var _ receivable.AttachmentRepository = (*GormAttachmentRepository)(nil)
