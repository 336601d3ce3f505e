package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arflow/backend/internal/domain/receivable"
)

// CustomerModel is the persistence model for the Customer mirror entity.
type CustomerModel struct {
	BaseModel
	CustomerID   string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_acumatica_customers_customer_id"`
	CustomerName string          `gorm:"type:varchar(200)"`
	Email        string          `gorm:"type:varchar(200)"`
	Phone        string          `gorm:"type:varchar(50)"`
	Status       string          `gorm:"type:varchar(30);index"`
	Balance      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Terms        string          `gorm:"type:varchar(50)"`
	RawData      string          `gorm:"type:jsonb"`
	LastSyncAt   time.Time       `gorm:"index"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "acumatica_customers"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *receivable.Customer {
	return &receivable.Customer{
		BaseEntity:   m.BaseModel.ToDomain(),
		CustomerID:   m.CustomerID,
		CustomerName: m.CustomerName,
		Email:        m.Email,
		Phone:        m.Phone,
		Status:       m.Status,
		Balance:      m.Balance,
		Terms:        m.Terms,
		RawData:      m.RawData,
		LastSyncAt:   m.LastSyncAt,
	}
}

// FromDomain populates the persistence model from a domain Customer entity.
func (m *CustomerModel) FromDomain(c *receivable.Customer) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.CustomerID = c.CustomerID
	m.CustomerName = c.CustomerName
	m.Email = c.Email
	m.Phone = c.Phone
	m.Status = c.Status
	m.Balance = c.Balance
	m.Terms = c.Terms
	m.RawData = c.RawData
	m.LastSyncAt = c.LastSyncAt
}

// InvoiceModel is the persistence model for the Invoice mirror entity.
// The natural key (reference_nbr, doc_type) carries a unique constraint so
// concurrent upserts cannot create duplicate rows.
type InvoiceModel struct {
	BaseModel
	ReferenceNbr string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_acumatica_invoices_natural_key,priority:1"`
	DocType      string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_acumatica_invoices_natural_key,priority:2"`
	CustomerID   string          `gorm:"type:varchar(50);index"`
	Status       string          `gorm:"type:varchar(30);index"`
	Date         *time.Time      `gorm:""`
	DueDate      *time.Time      `gorm:"index"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Balance      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Description  string          `gorm:"type:text"`
	RawData      string          `gorm:"type:jsonb"`
	LastSyncAt   time.Time       `gorm:"index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "acumatica_invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *receivable.Invoice {
	return &receivable.Invoice{
		BaseEntity:   m.BaseModel.ToDomain(),
		ReferenceNbr: m.ReferenceNbr,
		DocType:      receivable.DocType(m.DocType),
		CustomerID:   m.CustomerID,
		Status:       m.Status,
		Date:         m.Date,
		DueDate:      m.DueDate,
		Amount:       m.Amount,
		Balance:      m.Balance,
		Description:  m.Description,
		RawData:      m.RawData,
		LastSyncAt:   m.LastSyncAt,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(i *receivable.Invoice) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.ReferenceNbr = i.ReferenceNbr
	m.DocType = string(i.DocType)
	m.CustomerID = i.CustomerID
	m.Status = i.Status
	m.Date = i.Date
	m.DueDate = i.DueDate
	m.Amount = i.Amount
	m.Balance = i.Balance
	m.Description = i.Description
	m.RawData = i.RawData
	m.LastSyncAt = i.LastSyncAt
}

// PaymentModel is the persistence model for the Payment mirror entity.
type PaymentModel struct {
	BaseModel
	ReferenceNbr     string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_acumatica_payments_natural_key,priority:1"`
	DocType          string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_acumatica_payments_natural_key,priority:2"`
	CustomerID       string          `gorm:"type:varchar(50);index"`
	Status           string          `gorm:"type:varchar(30);index"`
	ApplicationDate  *time.Time      `gorm:""`
	PaymentAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnappliedBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentMethod    string          `gorm:"type:varchar(50)"`
	Description      string          `gorm:"type:text"`
	RawData          string          `gorm:"type:jsonb"`
	LastSyncAt       time.Time       `gorm:"index"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "acumatica_payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *receivable.Payment {
	return &receivable.Payment{
		BaseEntity:       m.BaseModel.ToDomain(),
		ReferenceNbr:     m.ReferenceNbr,
		DocType:          receivable.DocType(m.DocType),
		CustomerID:       m.CustomerID,
		Status:           m.Status,
		ApplicationDate:  m.ApplicationDate,
		PaymentAmount:    m.PaymentAmount,
		UnappliedBalance: m.UnappliedBalance,
		PaymentMethod:    m.PaymentMethod,
		Description:      m.Description,
		RawData:          m.RawData,
		LastSyncAt:       m.LastSyncAt,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *receivable.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.ReferenceNbr = p.ReferenceNbr
	m.DocType = string(p.DocType)
	m.CustomerID = p.CustomerID
	m.Status = p.Status
	m.ApplicationDate = p.ApplicationDate
	m.PaymentAmount = p.PaymentAmount
	m.UnappliedBalance = p.UnappliedBalance
	m.PaymentMethod = p.PaymentMethod
	m.Description = p.Description
	m.RawData = p.RawData
	m.LastSyncAt = p.LastSyncAt
}

// PaymentApplicationModel is the persistence model for the payment-to-invoice
// join rows. Rows are replaced per payment, never updated in place.
type PaymentApplicationModel struct {
	BaseModel
	PaymentID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentRefNbr   string          `gorm:"type:varchar(20);not null;index"`
	InvoiceRefNbr   string          `gorm:"type:varchar(20);not null;index"`
	DocType         string          `gorm:"type:varchar(30);not null"`
	AmountPaid      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Balance         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ApplicationDate *time.Time      `gorm:""`
	DueDate         *time.Time      `gorm:""`
	Description     string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentApplicationModel) TableName() string {
	return "payment_invoice_applications"
}

// ToDomain converts the persistence model to a domain PaymentApplication.
func (m *PaymentApplicationModel) ToDomain() *receivable.PaymentApplication {
	return &receivable.PaymentApplication{
		BaseEntity:      m.BaseModel.ToDomain(),
		PaymentID:       m.PaymentID,
		PaymentRefNbr:   m.PaymentRefNbr,
		InvoiceRefNbr:   m.InvoiceRefNbr,
		DocType:         receivable.DocType(m.DocType),
		AmountPaid:      m.AmountPaid,
		Balance:         m.Balance,
		ApplicationDate: m.ApplicationDate,
		DueDate:         m.DueDate,
		Description:     m.Description,
	}
}

// FromDomain populates the persistence model from a domain PaymentApplication.
func (m *PaymentApplicationModel) FromDomain(a *receivable.PaymentApplication) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.PaymentID = a.PaymentID
	m.PaymentRefNbr = a.PaymentRefNbr
	m.InvoiceRefNbr = a.InvoiceRefNbr
	m.DocType = string(a.DocType)
	m.AmountPaid = a.AmountPaid
	m.Balance = a.Balance
	m.ApplicationDate = a.ApplicationDate
	m.DueDate = a.DueDate
	m.Description = a.Description
}

// ChangeLogModel is the persistence model for the append-only audit trail.
type ChangeLogModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	EntityType   string    `gorm:"type:varchar(20);not null;index:idx_sync_change_log_entity,priority:1"`
	ReferenceNbr string    `gorm:"type:varchar(50);not null;index:idx_sync_change_log_entity,priority:2"`
	ActionType   string    `gorm:"type:varchar(30);not null;index"`
	OldValue     string    `gorm:"type:varchar(100)"`
	NewValue     string    `gorm:"type:varchar(100)"`
	Snapshot     string    `gorm:"type:jsonb"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ChangeLogModel) TableName() string {
	return "sync_change_log"
}

// ToDomain converts the persistence model to a domain ChangeLogEntry.
func (m *ChangeLogModel) ToDomain() *receivable.ChangeLogEntry {
	return &receivable.ChangeLogEntry{
		ID:           m.ID,
		EntityType:   receivable.EntityType(m.EntityType),
		ReferenceNbr: m.ReferenceNbr,
		ActionType:   receivable.ActionType(m.ActionType),
		OldValue:     m.OldValue,
		NewValue:     m.NewValue,
		Snapshot:     m.Snapshot,
		CreatedAt:    m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain ChangeLogEntry.
func (m *ChangeLogModel) FromDomain(e *receivable.ChangeLogEntry) {
	m.ID = e.ID
	m.EntityType = string(e.EntityType)
	m.ReferenceNbr = e.ReferenceNbr
	m.ActionType = string(e.ActionType)
	m.OldValue = e.OldValue
	m.NewValue = e.NewValue
	m.Snapshot = e.Snapshot
	m.CreatedAt = e.CreatedAt
}

// AttachmentModel is the persistence model for attachment metadata.
type AttachmentModel struct {
	BaseModel
	EntityType   string    `gorm:"type:varchar(20);not null"`
	ReferenceNbr string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_acumatica_attachments_file,priority:1"`
	DocType      string    `gorm:"type:varchar(30);not null"`
	FileID       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_acumatica_attachments_file,priority:2"`
	FileName     string    `gorm:"type:varchar(255)"`
	StorageKey   string    `gorm:"type:varchar(500)"`
	SizeBytes    int64     `gorm:"not null;default:0"`
	FetchedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AttachmentModel) TableName() string {
	return "acumatica_attachments"
}

// ToDomain converts the persistence model to a domain Attachment.
func (m *AttachmentModel) ToDomain() *receivable.Attachment {
	return &receivable.Attachment{
		BaseEntity:   m.BaseModel.ToDomain(),
		EntityType:   receivable.EntityType(m.EntityType),
		ReferenceNbr: m.ReferenceNbr,
		DocType:      receivable.DocType(m.DocType),
		FileID:       m.FileID,
		FileName:     m.FileName,
		StorageKey:   m.StorageKey,
		SizeBytes:    m.SizeBytes,
		FetchedAt:    m.FetchedAt,
	}
}

// FromDomain populates the persistence model from a domain Attachment.
func (m *AttachmentModel) FromDomain(a *receivable.Attachment) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.EntityType = string(a.EntityType)
	m.ReferenceNbr = a.ReferenceNbr
	m.DocType = string(a.DocType)
	m.FileID = a.FileID
	m.FileName = a.FileName
	m.StorageKey = a.StorageKey
	m.SizeBytes = a.SizeBytes
	m.FetchedAt = a.FetchedAt
}
