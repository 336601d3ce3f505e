package syncstate

import (
	"context"

	"github.com/google/uuid"
)

// CredentialRepository persists Acumatica credential sets.
type CredentialRepository interface {
	// FindActive returns the active credential set.
	// Returns ErrNoActiveCredential when none is configured.
	FindActive(ctx context.Context) (*Credential, error)

	// FindByID returns a credential set by id. Returns ErrNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Credential, error)

	// Save creates or updates a credential set.
	Save(ctx context.Context, credential *Credential) error

	// List returns all credential sets, active first.
	List(ctx context.Context) ([]Credential, error)
}

// SessionRepository persists cached Acumatica sessions.
type SessionRepository interface {
	// FindUsable returns the most recent valid, unexpired session for the
	// credential set. Returns ErrNotFound when there is none.
	FindUsable(ctx context.Context, credentialID uuid.UUID) (*Session, error)

	// ListValid returns every session still marked valid for the credential
	// set, regardless of expiry. Used by forced renewal to log out each one.
	ListValid(ctx context.Context, credentialID uuid.UUID) ([]Session, error)

	// Save creates or updates a session row.
	Save(ctx context.Context, session *Session) error

	// InvalidateAll marks every session of the credential set invalid.
	InvalidateAll(ctx context.Context, credentialID uuid.UUID) error
}

// StatusRepository persists the per-entity-type sync status rows.
type StatusRepository interface {
	// GetOrCreate returns the status row for the entity type, creating an
	// idle row with the given default lookback when absent.
	GetOrCreate(ctx context.Context, entityType string, defaultLookbackMinutes int) (*SyncStatus, error)

	// Save rewrites a status row.
	Save(ctx context.Context, status *SyncStatus) error

	// List returns all status rows.
	List(ctx context.Context) ([]SyncStatus, error)
}

// LogRepository appends per-invocation sync log rows. Output only: the sync
// engine never reads these back.
type LogRepository interface {
	Append(ctx context.Context, log *SyncLog) error
}

// BackfillRepository persists backfill progress rows.
type BackfillRepository interface {
	// GetOrCreate returns the progress row for the job type, creating an
	// unstarted row when absent.
	GetOrCreate(ctx context.Context, jobType JobType) (*BackfillProgress, error)

	// Save rewrites a progress row.
	Save(ctx context.Context, progress *BackfillProgress) error
}
