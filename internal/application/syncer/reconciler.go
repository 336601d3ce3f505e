package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arflow/backend/internal/domain/receivable"
)

// Action is the outcome of reconciling one record.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// ReconcileResult reports what reconciling one record did.
type ReconcileResult struct {
	Action       Action
	ReferenceNbr string
}

// Reconciler upserts mapped records by natural key and emits change-log
// entries describing each transition. Inserts race-tolerantly: a duplicate-
// key failure means another invocation inserted first, so the reconciler
// re-reads and updates instead.
type Reconciler struct {
	customers receivable.CustomerRepository
	invoices  receivable.InvoiceRepository
	payments  receivable.PaymentRepository
	changeLog receivable.ChangeLogRepository
	logger    *zap.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(
	customers receivable.CustomerRepository,
	invoices receivable.InvoiceRepository,
	payments receivable.PaymentRepository,
	changeLog receivable.ChangeLogRepository,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		customers: customers,
		invoices:  invoices,
		payments:  payments,
		changeLog: changeLog,
		logger:    logger,
	}
}

// fieldSnapshot is the key-business-field snapshot attached to change-log
// entries.
type fieldSnapshot struct {
	Status  string          `json:"status"`
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"`
}

func (s fieldSnapshot) JSON() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

// ReconcileCustomer upserts one customer by its customer ID.
func (r *Reconciler) ReconcileCustomer(ctx context.Context, incoming *receivable.Customer) (ReconcileResult, error) {
	existing, err := r.customers.FindByCustomerID(ctx, incoming.CustomerID)
	switch {
	case err == nil:
		return r.updateCustomer(ctx, existing, incoming)
	case errors.Is(err, receivable.ErrNotFound):
		if createErr := r.customers.Create(ctx, incoming); createErr != nil {
			if errors.Is(createErr, receivable.ErrDuplicateKey) {
				existing, err = r.customers.FindByCustomerID(ctx, incoming.CustomerID)
				if err != nil {
					return ReconcileResult{}, fmt.Errorf("customer %s: lost insert race and re-read failed: %w", incoming.CustomerID, err)
				}
				return r.updateCustomer(ctx, existing, incoming)
			}
			return ReconcileResult{}, fmt.Errorf("customer %s: insert failed: %w", incoming.CustomerID, createErr)
		}
		r.appendLog(ctx, receivable.EntityCustomer, incoming.CustomerID, receivable.ActionCreated, "", incoming.Status,
			fieldSnapshot{Status: incoming.Status, Balance: incoming.Balance})
		return ReconcileResult{Action: ActionCreated, ReferenceNbr: incoming.CustomerID}, nil
	default:
		return ReconcileResult{}, fmt.Errorf("customer %s: lookup failed: %w", incoming.CustomerID, err)
	}
}

func (r *Reconciler) updateCustomer(ctx context.Context, existing, incoming *receivable.Customer) (ReconcileResult, error) {
	oldStatus := existing.Status

	existing.CustomerName = incoming.CustomerName
	existing.Email = incoming.Email
	existing.Phone = incoming.Phone
	existing.Status = incoming.Status
	existing.Balance = incoming.Balance
	existing.Terms = incoming.Terms
	existing.RawData = incoming.RawData
	existing.LastSyncAt = time.Now()
	existing.Touch()

	if err := r.customers.Update(ctx, existing); err != nil {
		return ReconcileResult{}, fmt.Errorf("customer %s: update failed: %w", existing.CustomerID, err)
	}

	action := receivable.ActionUpdated
	if oldStatus != existing.Status {
		action = receivable.ActionStatusChanged
	}
	r.appendLog(ctx, receivable.EntityCustomer, existing.CustomerID, action, oldStatus, existing.Status,
		fieldSnapshot{Status: existing.Status, Balance: existing.Balance})
	return ReconcileResult{Action: ActionUpdated, ReferenceNbr: existing.CustomerID}, nil
}

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

// ReconcileInvoice upserts one invoice by (doc type, normalized ref).
func (r *Reconciler) ReconcileInvoice(ctx context.Context, incoming *receivable.Invoice) (ReconcileResult, error) {
	existing, err := r.invoices.FindByNaturalKey(ctx, incoming.ReferenceNbr, incoming.DocType)
	switch {
	case err == nil:
		return r.updateInvoice(ctx, existing, incoming)
	case errors.Is(err, receivable.ErrNotFound):
		if createErr := r.invoices.Create(ctx, incoming); createErr != nil {
			if errors.Is(createErr, receivable.ErrDuplicateKey) {
				existing, err = r.invoices.FindByNaturalKey(ctx, incoming.ReferenceNbr, incoming.DocType)
				if err != nil {
					return ReconcileResult{}, fmt.Errorf("invoice %s: lost insert race and re-read failed: %w", incoming.ReferenceNbr, err)
				}
				return r.updateInvoice(ctx, existing, incoming)
			}
			return ReconcileResult{}, fmt.Errorf("invoice %s: insert failed: %w", incoming.ReferenceNbr, createErr)
		}
		r.appendLog(ctx, receivable.EntityInvoice, incoming.ReferenceNbr, receivable.ActionCreated, "", incoming.Status,
			fieldSnapshot{Status: incoming.Status, Amount: incoming.Amount, Balance: incoming.Balance})
		return ReconcileResult{Action: ActionCreated, ReferenceNbr: incoming.ReferenceNbr}, nil
	default:
		return ReconcileResult{}, fmt.Errorf("invoice %s: lookup failed: %w", incoming.ReferenceNbr, err)
	}
}

func (r *Reconciler) updateInvoice(ctx context.Context, existing, incoming *receivable.Invoice) (ReconcileResult, error) {
	oldStatus := existing.Status

	existing.CustomerID = incoming.CustomerID
	existing.Status = incoming.Status
	existing.Date = incoming.Date
	existing.DueDate = incoming.DueDate
	existing.Amount = incoming.Amount
	existing.Balance = incoming.Balance
	existing.Description = incoming.Description
	existing.RawData = incoming.RawData
	existing.LastSyncAt = time.Now()
	existing.Touch()

	if err := r.invoices.Update(ctx, existing); err != nil {
		return ReconcileResult{}, fmt.Errorf("invoice %s: update failed: %w", existing.ReferenceNbr, err)
	}

	action := receivable.ClassifyStatusChange(oldStatus, existing.Status)
	r.appendLog(ctx, receivable.EntityInvoice, existing.ReferenceNbr, action, oldStatus, existing.Status,
		fieldSnapshot{Status: existing.Status, Amount: existing.Amount, Balance: existing.Balance})
	return ReconcileResult{Action: ActionUpdated, ReferenceNbr: existing.ReferenceNbr}, nil
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

// ReconcilePayment upserts one payment by (doc type, normalized ref) and
// returns the persisted row so the application linker can use its ID.
func (r *Reconciler) ReconcilePayment(ctx context.Context, incoming *receivable.Payment) (*receivable.Payment, ReconcileResult, error) {
	existing, err := r.payments.FindByNaturalKey(ctx, incoming.ReferenceNbr, incoming.DocType)
	switch {
	case err == nil:
		result, err := r.updatePayment(ctx, existing, incoming)
		return existing, result, err
	case errors.Is(err, receivable.ErrNotFound):
		if createErr := r.payments.Create(ctx, incoming); createErr != nil {
			if errors.Is(createErr, receivable.ErrDuplicateKey) {
				existing, err = r.payments.FindByNaturalKey(ctx, incoming.ReferenceNbr, incoming.DocType)
				if err != nil {
					return nil, ReconcileResult{}, fmt.Errorf("payment %s: lost insert race and re-read failed: %w", incoming.ReferenceNbr, err)
				}
				result, err := r.updatePayment(ctx, existing, incoming)
				return existing, result, err
			}
			return nil, ReconcileResult{}, fmt.Errorf("payment %s: insert failed: %w", incoming.ReferenceNbr, createErr)
		}
		r.appendLog(ctx, receivable.EntityPayment, incoming.ReferenceNbr, receivable.ActionCreated, "", incoming.Status,
			fieldSnapshot{Status: incoming.Status, Amount: incoming.PaymentAmount, Balance: incoming.UnappliedBalance})
		return incoming, ReconcileResult{Action: ActionCreated, ReferenceNbr: incoming.ReferenceNbr}, nil
	default:
		return nil, ReconcileResult{}, fmt.Errorf("payment %s: lookup failed: %w", incoming.ReferenceNbr, err)
	}
}

func (r *Reconciler) updatePayment(ctx context.Context, existing, incoming *receivable.Payment) (ReconcileResult, error) {
	oldStatus := existing.Status

	existing.CustomerID = incoming.CustomerID
	existing.Status = incoming.Status
	existing.ApplicationDate = incoming.ApplicationDate
	existing.PaymentAmount = incoming.PaymentAmount
	existing.UnappliedBalance = incoming.UnappliedBalance
	existing.PaymentMethod = incoming.PaymentMethod
	existing.Description = incoming.Description
	existing.RawData = incoming.RawData
	existing.LastSyncAt = time.Now()
	existing.Touch()

	if err := r.payments.Update(ctx, existing); err != nil {
		return ReconcileResult{}, fmt.Errorf("payment %s: update failed: %w", existing.ReferenceNbr, err)
	}

	action := receivable.ClassifyStatusChange(oldStatus, existing.Status)
	r.appendLog(ctx, receivable.EntityPayment, existing.ReferenceNbr, action, oldStatus, existing.Status,
		fieldSnapshot{Status: existing.Status, Amount: existing.PaymentAmount, Balance: existing.UnappliedBalance})
	return ReconcileResult{Action: ActionUpdated, ReferenceNbr: existing.ReferenceNbr}, nil
}

// appendLog writes one audit entry. Audit failures are logged, never fatal:
// the upsert already committed.
func (r *Reconciler) appendLog(ctx context.Context, entityType receivable.EntityType, refNbr string, action receivable.ActionType, oldValue, newValue string, snapshot fieldSnapshot) {
	entry := receivable.NewChangeLogEntry(entityType, refNbr, action)
	if oldValue != newValue || action == receivable.ActionCreated {
		entry.OldValue = oldValue
		entry.NewValue = newValue
	}
	entry.Snapshot = snapshot.JSON()

	if err := r.changeLog.Append(ctx, entry); err != nil {
		r.logger.Warn("Failed to append change-log entry",
			zap.String("entity_type", string(entityType)),
			zap.String("reference_nbr", refNbr),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}
