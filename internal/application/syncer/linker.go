package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/infrastructure/acumatica"
)

// ApplicationLinker maintains the payment-to-invoice join table. For every
// synced payment it resolves the ERP's current application set and replaces
// the stored rows wholesale, so the join table never accumulates stale
// links.
type ApplicationLinker struct {
	gateway      ERPGateway
	applications receivable.ApplicationRepository
	invoices     receivable.InvoiceRepository
	changeLog    receivable.ChangeLogRepository
	logger       *zap.Logger
}

// NewApplicationLinker creates a linker.
func NewApplicationLinker(
	gateway ERPGateway,
	applications receivable.ApplicationRepository,
	invoices receivable.InvoiceRepository,
	changeLog receivable.ChangeLogRepository,
	logger *zap.Logger,
) *ApplicationLinker {
	return &ApplicationLinker{
		gateway:      gateway,
		applications: applications,
		invoices:     invoices,
		changeLog:    changeLog,
		logger:       logger,
	}
}

// Relink resolves the payment's current application history and replaces the
// stored join rows. listRecord is the record the payment arrived in; when it
// already carries the nested details no extra ERP call is made. Closed
// payments expose ApplicationHistory, open ones DocumentsToApply; both are
// tried before giving up.
func (l *ApplicationLinker) Relink(ctx context.Context, ep acumatica.Endpoint, cookie string, payment *receivable.Payment, listRecord acumatica.Record) (int, error) {
	entries, err := l.resolveEntries(ctx, ep, cookie, payment, listRecord)
	if err != nil {
		return 0, err
	}

	applications := l.buildApplications(ctx, payment, entries)
	if err := l.applications.ReplaceForPayment(ctx, payment.ID, applications); err != nil {
		return 0, fmt.Errorf("payment %s: failed to replace applications: %w", payment.ReferenceNbr, err)
	}

	// One audit entry per stored link; a payment with no applications leaves
	// no trail.
	for i := range applications {
		entry := receivable.NewChangeLogEntry(receivable.EntityPayment, payment.ReferenceNbr, receivable.ActionApplicationFetched)
		entry.NewValue = applications[i].InvoiceRefNbr
		if err := l.changeLog.Append(ctx, entry); err != nil {
			l.logger.Warn("Failed to append application-fetched entry",
				zap.String("payment_ref", payment.ReferenceNbr),
				zap.String("invoice_ref", applications[i].InvoiceRefNbr),
				zap.Error(err),
			)
		}
	}

	return len(applications), nil
}

// resolveEntries finds the nested application records, preferring what the
// list fetch already expanded over a dedicated detail fetch.
func (l *ApplicationLinker) resolveEntries(ctx context.Context, ep acumatica.Endpoint, cookie string, payment *receivable.Payment, listRecord acumatica.Record) ([]acumatica.Record, error) {
	detailField := "ApplicationHistory"
	if payment.IsOpen() {
		detailField = "DocumentsToApply"
	}

	if listRecord != nil {
		if entries := listRecord.Records(detailField); len(entries) > 0 {
			return entries, nil
		}
	}

	detail, err := l.gateway.Detail(ctx, ep, cookie, "Payment", payment.DocType.String(), payment.ReferenceNbr, detailField)
	if err != nil {
		if errors.Is(err, acumatica.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("payment %s: detail fetch failed: %w", payment.ReferenceNbr, err)
	}

	if entries := detail.Records(detailField); len(entries) > 0 {
		return entries, nil
	}

	// The ERP is inconsistent about which side a partially-applied payment
	// reports; fall through to the other field before concluding there are
	// no applications.
	other := "DocumentsToApply"
	if detailField == "DocumentsToApply" {
		other = "ApplicationHistory"
	}
	detail, err = l.gateway.Detail(ctx, ep, cookie, "Payment", payment.DocType.String(), payment.ReferenceNbr, other)
	if err != nil {
		if errors.Is(err, acumatica.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("payment %s: detail fetch failed: %w", payment.ReferenceNbr, err)
	}
	return detail.Records(other), nil
}

// buildApplications projects nested entries into join rows, keeping only
// entries that apply against an invoice-like document and logging forward
// references to invoices not yet synced locally.
func (l *ApplicationLinker) buildApplications(ctx context.Context, payment *receivable.Payment, entries []acumatica.Record) []receivable.PaymentApplication {
	applications := make([]receivable.PaymentApplication, 0, len(entries))
	for _, entry := range entries {
		invoiceRef := firstString(entry, "DisplayRefNbr", "ReferenceNbr", "AdjdRefNbr")
		if invoiceRef == "" {
			l.logger.Warn("Application entry has no invoice reference",
				zap.String("payment_ref", payment.ReferenceNbr),
			)
			continue
		}

		docType := receivable.DocType(firstString(entry, "DisplayDocType", "DocType", "AdjdDocType"))
		if docType == "" {
			docType = receivable.DocTypeInvoice
		}
		if !docType.IsInvoiceLike() {
			continue
		}

		application := receivable.NewPaymentApplication(payment.ID, payment.ReferenceNbr, invoiceRef, docType)
		normalized := MapApplicationEntry(entry)
		application.AmountPaid = normalized.Decimal("amount_paid")
		application.Balance = normalized.Decimal("balance")
		application.ApplicationDate = normalized.Time("application_date")
		application.DueDate = normalized.Time("due_date")
		application.Description = normalized.String("description")
		applications = append(applications, *application)

		if _, err := l.invoices.FindByNaturalKey(ctx, application.InvoiceRefNbr, docType); errors.Is(err, receivable.ErrNotFound) {
			// Forward reference: invoice sync has not caught up yet. The
			// link is stored anyway and heals once the invoice arrives.
			l.logger.Warn("Application references invoice not yet synced",
				zap.String("payment_ref", payment.ReferenceNbr),
				zap.String("invoice_ref", application.InvoiceRefNbr),
			)
		}
	}
	return applications
}

// applicationFieldMap maps nested application-entry fields, covering both
// the ApplicationHistory and DocumentsToApply shapes. Ordered: the first
// present ERP field wins for a shared local name.
var applicationFieldMap = []fieldMapping{
	{"AmountPaid", "amount_paid"},
	{"Balance", "balance"},
	{"ApplicationDate", "application_date"},
	{"DueDate", "due_date"},
	{"Description", "description"},
	{"DocDesc", "description"},
}

// MapApplicationEntry normalizes one nested application record.
func MapApplicationEntry(entry acumatica.Record) NormalizedRecord {
	normalized := NormalizedRecord{}
	for _, field := range applicationFieldMap {
		value, ok := entry.Value(field.erpName)
		if !ok || value == nil {
			continue
		}
		if _, exists := normalized[field.localName]; exists {
			continue
		}
		normalized[field.localName] = coerceValue(field.localName, value)
	}
	return normalized
}

func firstString(record acumatica.Record, keys ...string) string {
	for _, key := range keys {
		if s := record.StringValue(key); s != "" {
			return s
		}
	}
	return ""
}
