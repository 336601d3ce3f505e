package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormApplicationRepository implements receivable.ApplicationRepository using GORM
type GormApplicationRepository struct {
	db *gorm.DB
}

// NewGormApplicationRepository creates a new GormApplicationRepository
func NewGormApplicationRepository(db *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: db}
}

// ReplaceForPayment deletes every application row of the payment and inserts
// the fresh set in a single transaction, so readers never observe a partially
// replaced join.
func (r *GormApplicationRepository) ReplaceForPayment(ctx context.Context, paymentID uuid.UUID, applications []receivable.PaymentApplication) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payment_id = ?", paymentID).
			Delete(&models.PaymentApplicationModel{}).Error; err != nil {
			return err
		}
		if len(applications) == 0 {
			return nil
		}
		rows := make([]models.PaymentApplicationModel, len(applications))
		for i := range applications {
			rows[i].FromDomain(&applications[i])
		}
		return tx.Create(&rows).Error
	})
}

// ListByPayment returns the current application rows for a payment
func (r *GormApplicationRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]receivable.PaymentApplication, error) {
	var rows []models.PaymentApplicationModel
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("invoice_ref_nbr ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainApplications(rows), nil
}

// ListOrphaned returns applications whose invoice natural key has no matching
// local invoice row yet. The join matches on (reference_nbr, doc_type): an
// invoice ref is only unique within a doc type, so a ref match alone could
// hide an orphan behind a same-ref document of another type.
func (r *GormApplicationRepository) ListOrphaned(ctx context.Context, limit int) ([]receivable.PaymentApplication, error) {
	var rows []models.PaymentApplicationModel
	if err := r.db.WithContext(ctx).
		Table("payment_invoice_applications AS app").
		Joins("LEFT JOIN acumatica_invoices AS inv ON inv.reference_nbr = app.invoice_ref_nbr AND inv.doc_type = app.doc_type").
		Where("inv.id IS NULL").
		Order("app.invoice_ref_nbr ASC").
		Limit(limit).
		Select("app.*").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainApplications(rows), nil
}

func toDomainApplications(rows []models.PaymentApplicationModel) []receivable.PaymentApplication {
	applications := make([]receivable.PaymentApplication, len(rows))
	for i := range rows {
		applications[i] = *rows[i].ToDomain()
	}
	return applications
}

// Ensure GormApplicationRepository implements ApplicationRepository
var _ receivable.ApplicationRepository = (*GormApplicationRepository)(nil)
