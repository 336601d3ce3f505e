package receivable

import (
	"time"

	"github.com/google/uuid"
)

// ActionType classifies a single sync action for the change log.
type ActionType string

const (
	ActionCreated            ActionType = "created"
	ActionUpdated            ActionType = "updated"
	ActionClosed             ActionType = "closed"
	ActionReopened           ActionType = "reopened"
	ActionStatusChanged      ActionType = "status_changed"
	ActionApplicationFetched ActionType = "application_fetched"
	ActionAttachmentFetched  ActionType = "attachment_fetched"
)

// EntityType names the synced entity a change-log entry refers to.
type EntityType string

const (
	EntityCustomer EntityType = "customer"
	EntityInvoice  EntityType = "invoice"
	EntityPayment  EntityType = "payment"
)

// ChangeLogEntry is an append-only audit record of one create/update/link
// action performed by the sync engine. Entries are write-once: the engine
// never updates or deletes them.
type ChangeLogEntry struct {
	ID         uuid.UUID
	EntityType EntityType
	// ReferenceNbr is the normalized natural key of the affected record
	// (customer ID for customers).
	ReferenceNbr string
	ActionType   ActionType
	// OldValue and NewValue carry the status transition for update-type
	// entries; empty otherwise.
	OldValue string
	NewValue string
	// Snapshot is a JSON snapshot of the key business fields after the
	// action (status, amount, balance).
	Snapshot  string
	CreatedAt time.Time
}

// NewChangeLogEntry creates an audit entry for the given action.
func NewChangeLogEntry(entityType EntityType, refNbr string, action ActionType) *ChangeLogEntry {
	return &ChangeLogEntry{
		ID:           uuid.New(),
		EntityType:   entityType,
		ReferenceNbr: refNbr,
		ActionType:   action,
		CreatedAt:    time.Now(),
	}
}

// closedStatuses are the upstream statuses that denote a settled document.
var closedStatuses = map[string]bool{
	"Closed": true,
	"Voided": true,
}

// IsClosedStatus reports whether an upstream document status is terminal.
func IsClosedStatus(status string) bool {
	return closedStatuses[status]
}

// ClassifyStatusChange maps an old/new status pair to the change-log action
// describing the transition. Equal statuses classify as a generic update.
func ClassifyStatusChange(oldStatus, newStatus string) ActionType {
	switch {
	case oldStatus == newStatus:
		return ActionUpdated
	case !IsClosedStatus(oldStatus) && IsClosedStatus(newStatus):
		return ActionClosed
	case IsClosedStatus(oldStatus) && !IsClosedStatus(newStatus):
		return ActionReopened
	default:
		return ActionStatusChanged
	}
}
