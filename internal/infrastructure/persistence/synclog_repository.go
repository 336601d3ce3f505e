package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements syncstate.LogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Append writes one invocation log row
func (r *GormSyncLogRepository) Append(ctx context.Context, log *syncstate.SyncLog) error {
	var model models.SyncLogModel
	model.FromDomain(log)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Ensure GormSyncLogRepository implements LogRepository
var _ syncstate.LogRepository = (*GormSyncLogRepository)(nil)
