package syncstate

import (
	"time"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a cached session cookie is trusted. It is
// deliberately shorter than Acumatica's real server-side timeout so a cookie
// never outlives its session.
const DefaultSessionTTL = 20 * time.Minute

// Session is one cached Acumatica session cookie. Sessions are shared across
// concurrent callers and replaced wholesale: a renewal invalidates the old
// row and creates a new one, never mutates the cookie in place. Concurrent
// creation is tolerated (last writer wins); the ERP is the source of truth
// for its own concurrent-session limits.
type Session struct {
	shared.BaseEntity

	CredentialID uuid.UUID
	// Cookie is the concatenated Set-Cookie header values from login,
	// replayed verbatim as the Cookie header.
	Cookie     string
	ExpiresAt  time.Time
	IsValid    bool
	LastUsedAt time.Time
}

// NewSession creates a valid session expiring after ttl.
func NewSession(credentialID uuid.UUID, cookie string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		BaseEntity:   shared.NewBaseEntity(),
		CredentialID: credentialID,
		Cookie:       cookie,
		ExpiresAt:    now.Add(ttl),
		IsValid:      true,
		LastUsedAt:   now,
	}
}

// Usable reports whether the session can be handed to a caller at the given
// time.
func (s *Session) Usable(now time.Time) bool {
	return s.IsValid && now.Before(s.ExpiresAt)
}

// Touch refreshes the last-used timestamp.
func (s *Session) Touch() {
	s.LastUsedAt = time.Now()
}

// Invalidate marks the session unusable, e.g. after a 401 or forced renewal.
func (s *Session) Invalidate() {
	s.IsValid = false
}
