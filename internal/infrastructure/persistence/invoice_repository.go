package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements receivable.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByNaturalKey finds an invoice by (normalized reference number, doc type)
func (r *GormInvoiceRepository) FindByNaturalKey(ctx context.Context, refNbr string, docType receivable.DocType) (*receivable.Invoice, error) {
	var model models.InvoiceModel
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

// Create inserts a new invoice row. The natural-key unique constraint makes
// concurrent create races surface as ErrDuplicateKey.
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *receivable.Invoice) error {
	var model models.InvoiceModel
	model.FromDomain(invoice)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return receivable.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// Update rewrites an existing invoice row
func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *receivable.Invoice) error {
	var model models.InvoiceModel
	model.FromDomain(invoice)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Count returns the number of invoice rows
func (r *GormInvoiceRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Count(&count).Error
	return count, err
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ receivable.InvoiceRepository = (*GormInvoiceRepository)(nil)
