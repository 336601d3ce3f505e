package receivable

import (
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Payment is the local mirror of an Acumatica AR payment-side document
// (payment, prepayment, voided payment or credit memo). The natural key is
// (doc type, normalized reference number).
type Payment struct {
	shared.BaseEntity

	// ReferenceNbr is the normalized (zero-padded) reference number.
	ReferenceNbr string
	// DocType discriminates reference numbers that repeat across types.
	DocType DocType
	// CustomerID is the Acumatica customer the payment belongs to.
	CustomerID string
	// Status is the upstream document status (Open, Closed, Voided, ...).
	Status string
	// ApplicationDate is the date the payment was applied.
	ApplicationDate *time.Time
	// PaymentAmount is the total payment amount.
	PaymentAmount decimal.Decimal
	// UnappliedBalance is the portion not yet applied to any document.
	UnappliedBalance decimal.Decimal
	// PaymentMethod is the upstream payment method code.
	PaymentMethod string
	// Description is the upstream document description.
	Description string
	// RawData is the full upstream record as JSON.
	RawData string
	// LastSyncAt is when this row was last written by a sync run.
	LastSyncAt time.Time
}

// NewPayment creates a payment with a normalized natural key.
func NewPayment(refNbr string, docType DocType) *Payment {
	return &Payment{
		BaseEntity:       shared.NewBaseEntity(),
		ReferenceNbr:     NormalizeRefNbr(refNbr),
		DocType:          docType,
		PaymentAmount:    decimal.Zero,
		UnappliedBalance: decimal.Zero,
	}
}

// IsOpen reports whether the payment still has unapplied balance upstream.
// Open payments expose their pending applications under DocumentsToApply
// instead of ApplicationHistory.
func (p *Payment) IsOpen() bool {
	return !IsClosedStatus(p.Status)
}
