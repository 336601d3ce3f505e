package receivable

// DocType is the Acumatica document type discriminator. A reference number
// is only unique within a document type, so the natural key of an invoice or
// payment is always (doc type, normalized reference number).
type DocType string

const (
	DocTypeInvoice       DocType = "Invoice"
	DocTypeDebitMemo     DocType = "Debit Memo"
	DocTypeCreditMemo    DocType = "Credit Memo"
	DocTypePayment       DocType = "Payment"
	DocTypePrepayment    DocType = "Prepayment"
	DocTypeVoidedPayment DocType = "Voided Payment"
	DocTypeRefund        DocType = "Customer Refund"
)

// IsInvoiceLike reports whether an application-history entry with this doc
// type links the payment to an invoice. Credit memos apply against the
// receivable side too, but they are tracked as their own payment document
// type and stay out of the payment-to-invoice join.
func (d DocType) IsInvoiceLike() bool {
	switch d {
	case DocTypeInvoice, DocTypeDebitMemo:
		return true
	default:
		return false
	}
}

// String returns the string representation of the document type.
func (d DocType) String() string {
	return string(d)
}
