package receivable

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository persists local customer mirrors.
type CustomerRepository interface {
	// FindByCustomerID finds a customer by its natural key.
	// Returns ErrNotFound when absent.
	FindByCustomerID(ctx context.Context, customerID string) (*Customer, error)

	// Create inserts a new customer. Returns ErrDuplicateKey when the
	// natural key already exists.
	Create(ctx context.Context, customer *Customer) error

	// Update rewrites an existing customer row.
	Update(ctx context.Context, customer *Customer) error

	// Count returns the number of local customer rows.
	Count(ctx context.Context) (int64, error)
}

// InvoiceRepository persists local invoice mirrors.
type InvoiceRepository interface {
	// FindByNaturalKey finds an invoice by (doc type, normalized ref).
	// Returns ErrNotFound when absent.
	FindByNaturalKey(ctx context.Context, refNbr string, docType DocType) (*Invoice, error)

	// Create inserts a new invoice. Returns ErrDuplicateKey when the
	// natural key already exists.
	Create(ctx context.Context, invoice *Invoice) error

	// Update rewrites an existing invoice row.
	Update(ctx context.Context, invoice *Invoice) error

	// Count returns the number of local invoice rows.
	Count(ctx context.Context) (int64, error)
}

// PaymentRepository persists local payment mirrors.
type PaymentRepository interface {
	// FindByNaturalKey finds a payment by (doc type, normalized ref).
	// Returns ErrNotFound when absent.
	FindByNaturalKey(ctx context.Context, refNbr string, docType DocType) (*Payment, error)

	// Create inserts a new payment. Returns ErrDuplicateKey when the
	// natural key already exists.
	Create(ctx context.Context, payment *Payment) error

	// Update rewrites an existing payment row.
	Update(ctx context.Context, payment *Payment) error

	// Count returns the number of local payment rows.
	Count(ctx context.Context) (int64, error)

	// ListAfterRef returns up to limit payments whose natural key
	// (reference_nbr, doc_type) sorts strictly after the cursor, ordered by
	// that key. An empty afterRef starts from the beginning. Used by backfill
	// jobs; a reference number alone is only unique within a doc type, so the
	// cursor carries both parts. Keyset order stays stable under concurrent
	// inserts.
	ListAfterRef(ctx context.Context, afterRef string, afterDocType DocType, limit int) ([]Payment, error)
}

// ApplicationRepository persists the payment-to-invoice join rows.
type ApplicationRepository interface {
	// ReplaceForPayment atomically deletes every application row of the
	// payment and inserts the fresh set, so the join table always mirrors
	// the ERP's current application history.
	ReplaceForPayment(ctx context.Context, paymentID uuid.UUID, applications []PaymentApplication) error

	// ListByPayment returns the current application rows for a payment.
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]PaymentApplication, error)

	// ListOrphaned returns applications whose invoice reference has no local
	// invoice row yet, for the orphan diagnostics report.
	ListOrphaned(ctx context.Context, limit int) ([]PaymentApplication, error)
}

// ChangeLogRepository persists the append-only audit trail.
type ChangeLogRepository interface {
	// Append writes one entry. Entries are never updated or deleted.
	Append(ctx context.Context, entry *ChangeLogEntry) error

	// ListByReference returns the audit trail of one record, newest first.
	ListByReference(ctx context.Context, entityType EntityType, refNbr string, limit int) ([]ChangeLogEntry, error)
}

// AttachmentRepository persists attachment metadata rows.
type AttachmentRepository interface {
	// Upsert inserts the attachment or refreshes an existing row with the
	// same (reference_nbr, file_id).
	Upsert(ctx context.Context, attachment *Attachment) error

	// ListByReference returns attachments recorded for a document.
	ListByReference(ctx context.Context, refNbr string) ([]Attachment, error)
}
