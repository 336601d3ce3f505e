package receivable

import (
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Invoice is the local mirror of an Acumatica AR document of an invoice-like
// type. The natural key is (doc type, normalized reference number).
type Invoice struct {
	shared.BaseEntity

	// ReferenceNbr is the normalized (zero-padded) reference number.
	ReferenceNbr string
	// DocType discriminates reference numbers that repeat across types.
	DocType DocType
	// CustomerID is the Acumatica customer the invoice belongs to.
	CustomerID string
	// Status is the upstream document status (Open, Closed, Balanced, ...).
	Status string
	// Date is the document date.
	Date *time.Time
	// DueDate is the payment due date.
	DueDate *time.Time
	// Amount is the original document amount.
	Amount decimal.Decimal
	// Balance is the remaining open balance.
	Balance decimal.Decimal
	// Description is the upstream document description.
	Description string
	// RawData is the full upstream record as JSON.
	RawData string
	// LastSyncAt is when this row was last written by a sync run.
	LastSyncAt time.Time
}

// NewInvoice creates an invoice with a normalized natural key.
func NewInvoice(refNbr string, docType DocType) *Invoice {
	return &Invoice{
		BaseEntity:   shared.NewBaseEntity(),
		ReferenceNbr: NormalizeRefNbr(refNbr),
		DocType:      docType,
		Amount:       decimal.Zero,
		Balance:      decimal.Zero,
	}
}

// IsClosed reports whether the invoice status denotes a settled document.
func (i *Invoice) IsClosed() bool {
	return IsClosedStatus(i.Status)
}
