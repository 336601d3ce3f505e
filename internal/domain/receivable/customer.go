package receivable

import (
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Customer is the local mirror of an Acumatica customer. The natural key is
// the Acumatica customer ID; the raw upstream record is retained verbatim in
// RawData for audit and forward compatibility.
type Customer struct {
	shared.BaseEntity

	// CustomerID is the Acumatica customer identifier (natural key).
	CustomerID string
	// CustomerName is the display name.
	CustomerName string
	Email        string
	Phone        string
	// Status is the upstream status (Active, Inactive, Hold, ...).
	Status string
	// Balance is the outstanding receivable balance.
	Balance decimal.Decimal
	// Terms is the payment terms code.
	Terms string
	// RawData is the full upstream record as JSON.
	RawData string
	// LastSyncAt is when this row was last written by a sync run.
	LastSyncAt time.Time
}

// NewCustomer creates a customer with the given natural key.
func NewCustomer(customerID string) *Customer {
	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		CustomerID: customerID,
		Balance:    decimal.Zero,
	}
}
