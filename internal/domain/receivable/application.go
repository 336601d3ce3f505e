package receivable

import (
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentApplication links one payment to one invoice it was applied
// against, mirroring a single entry of the payment's upstream application
// history. For a given payment the stored set must always equal the ERP's
// current view, so refreshes replace the whole set instead of appending.
type PaymentApplication struct {
	shared.BaseEntity

	// PaymentID is the local payment row the application belongs to.
	PaymentID uuid.UUID
	// PaymentRefNbr is the normalized reference number of the payment.
	PaymentRefNbr string
	// InvoiceRefNbr is the normalized reference number of the applied
	// invoice. The invoice row may not exist locally yet; the link is a
	// valid forward reference that heals once the invoice sync catches up.
	InvoiceRefNbr string
	// DocType is the document type of the applied document.
	DocType DocType
	// AmountPaid is the amount applied against the invoice.
	AmountPaid decimal.Decimal
	// Balance is the invoice balance reported alongside the application.
	Balance decimal.Decimal
	// ApplicationDate is when the application was made.
	ApplicationDate *time.Time
	// DueDate is the applied invoice's due date.
	DueDate *time.Time
	// Description is the upstream application description.
	Description string
}

// NewPaymentApplication creates an application row with normalized keys.
func NewPaymentApplication(paymentID uuid.UUID, paymentRef, invoiceRef string, docType DocType) *PaymentApplication {
	return &PaymentApplication{
		BaseEntity:    shared.NewBaseEntity(),
		PaymentID:     paymentID,
		PaymentRefNbr: NormalizeRefNbr(paymentRef),
		InvoiceRefNbr: NormalizeRefNbr(invoiceRef),
		DocType:       docType,
		AmountPaid:    decimal.Zero,
		Balance:       decimal.Zero,
	}
}
