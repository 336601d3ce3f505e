package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormChangeLogRepository implements receivable.ChangeLogRepository using GORM
type GormChangeLogRepository struct {
	db *gorm.DB
}

// NewGormChangeLogRepository creates a new GormChangeLogRepository
func NewGormChangeLogRepository(db *gorm.DB) *GormChangeLogRepository {
	return &GormChangeLogRepository{db: db}
}

// Append writes one audit entry. The table is append-only.
func (r *GormChangeLogRepository) Append(ctx context.Context, entry *receivable.ChangeLogEntry) error {
	var model models.ChangeLogModel
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListByReference returns the audit trail of one record, newest first
func (r *GormChangeLogRepository) ListByReference(ctx context.Context, entityType receivable.EntityType, refNbr string, limit int) ([]receivable.ChangeLogEntry, error) {
	var rows []models.ChangeLogModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND reference_nbr = ?", string(entityType), refNbr).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]receivable.ChangeLogEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

// Ensure GormChangeLogRepository implements ChangeLogRepository
var _ receivable.ChangeLogRepository = (*GormChangeLogRepository)(nil)
