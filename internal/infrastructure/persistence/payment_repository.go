package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements receivable.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByNaturalKey finds a payment by (normalized reference number, doc type)
func (r *GormPaymentRepository) FindByNaturalKey(ctx context.Context, refNbr string, docType receivable.DocType) (*receivable.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("reference_nbr = ? AND doc_type = ?", refNbr, string(docType)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, receivable.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new payment row
func (r *GormPaymentRepository) Create(ctx context.Context, payment *receivable.Payment) error {
	var model models.PaymentModel
	model.FromDomain(payment)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return receivable.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// Update rewrites an existing payment row
func (r *GormPaymentRepository) Update(ctx context.Context, payment *receivable.Payment) error {
	var model models.PaymentModel
	model.FromDomain(payment)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Count returns the number of payment rows
func (r *GormPaymentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).Count(&count).Error
	return count, err
}

// ListAfterRef returns up to limit payments whose natural key sorts strictly
// after the (afterRef, afterDocType) cursor, ordered by (reference_nbr,
// doc_type). A reference number can repeat across doc types, so the keyset
// comparison covers both columns; keyset order stays stable under concurrent
// inserts, unlike a row offset.
func (r *GormPaymentRepository) ListAfterRef(ctx context.Context, afterRef string, afterDocType receivable.DocType, limit int) ([]receivable.Payment, error) {
	var paymentModels []models.PaymentModel
	query := r.db.WithContext(ctx).
		Order("reference_nbr ASC, doc_type ASC").
		Limit(limit)
	if afterRef != "" {
		query = query.Where(
			"reference_nbr > ? OR (reference_nbr = ? AND doc_type > ?)",
			afterRef, afterRef, string(afterDocType),
		)
	}
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	payments := make([]receivable.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, nil
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ receivable.PaymentRepository = (*GormPaymentRepository)(nil)
