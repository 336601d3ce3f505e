package receivable

import "errors"

var (
	// ErrNotFound is returned when no local record matches a natural key.
	ErrNotFound = errors.New("receivable: record not found")

	// ErrDuplicateKey is returned when an insert violates a natural-key
	// unique constraint. Callers treat it as "lost the insert race" and
	// fall back to an update.
	ErrDuplicateKey = errors.New("receivable: duplicate natural key")

	// ErrMissingReferenceNbr is returned when an upstream record carries no
	// reference number. The record cannot be reconciled and is skipped.
	ErrMissingReferenceNbr = errors.New("receivable: record has no reference number")

	// ErrMissingCustomerID is returned when an upstream customer record
	// carries no customer ID.
	ErrMissingCustomerID = errors.New("receivable: record has no customer id")
)
