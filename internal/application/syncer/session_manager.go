package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/acumatica"
)

// defaultRenewalWait is how long a forced renewal waits after logging out
// cached sessions, so the ERP releases the session slots before the new
// login.
const defaultRenewalWait = 2 * time.Second

// SessionManager owns the shared Acumatica session: it hands out a cached
// cookie while fresh and performs login/renewal otherwise. State lives in
// the session table, not in memory, so concurrent stateless invocations
// share one session. Concurrent renewal races are tolerated (last writer
// wins); the ERP enforces its own concurrent-session limits.
type SessionManager struct {
	credentials syncstate.CredentialRepository
	sessions    syncstate.SessionRepository
	gateway     ERPGateway
	logger      *zap.Logger

	ttl         time.Duration
	renewalWait time.Duration
}

// SessionManagerOption is a functional option for configuring the manager.
type SessionManagerOption func(*SessionManager)

// WithSessionTTL overrides the cached-session lifetime.
func WithSessionTTL(ttl time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		m.ttl = ttl
	}
}

// WithRenewalWait overrides the pause between forced logout and re-login.
// Tests set this to zero.
func WithRenewalWait(wait time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		m.renewalWait = wait
	}
}

// NewSessionManager creates a session manager.
func NewSessionManager(
	credentials syncstate.CredentialRepository,
	sessions syncstate.SessionRepository,
	gateway ERPGateway,
	logger *zap.Logger,
	opts ...SessionManagerOption,
) *SessionManager {
	m := &SessionManager{
		credentials: credentials,
		sessions:    sessions,
		gateway:     gateway,
		logger:      logger,
		ttl:         syncstate.DefaultSessionTTL,
		renewalWait: defaultRenewalWait,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetSession returns a usable session for the active credential set. A
// cached, unexpired, valid session is reused unless forceNew is set; a
// forced renewal logs out every cached session first. Login failures caused
// by the ERP's concurrent-session cap surface as ErrSessionLimitReached.
func (m *SessionManager) GetSession(ctx context.Context, forceNew bool) (*syncstate.Session, *syncstate.Credential, error) {
	credential, err := m.credentials.FindActive(ctx)
	if err != nil {
		return nil, nil, err
	}

	if !forceNew {
		cached, err := m.sessions.FindUsable(ctx, credential.ID)
		if err == nil {
			cached.Touch()
			if err := m.sessions.Save(ctx, cached); err != nil {
				m.logger.Warn("Failed to refresh session last-used timestamp",
					zap.String("session_id", cached.ID.String()),
					zap.Error(err),
				)
			}
			return cached, credential, nil
		}
		if !errors.Is(err, syncstate.ErrNotFound) {
			return nil, nil, fmt.Errorf("failed to look up cached session: %w", err)
		}
	} else {
		if err := m.retireCachedSessions(ctx, credential); err != nil {
			return nil, nil, err
		}
	}

	session, err := m.login(ctx, credential)
	if err != nil {
		return nil, nil, err
	}
	return session, credential, nil
}

// EphemeralSession logs in with explicit credentials, bypassing both the
// stored credential set and the session cache. The caller owns the cookie
// and must log it out.
func (m *SessionManager) EphemeralSession(ctx context.Context, creds acumatica.Credentials) (string, error) {
	var cookie string
	err := acumatica.Retry(ctx, acumatica.LoginRetryPolicy(), func() error {
		var loginErr error
		cookie, loginErr = m.gateway.Login(ctx, creds)
		return loginErr
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("One-off Acumatica session created", zap.String("base_url", creds.BaseURL))
	return cookie, nil
}

// Invalidate marks a session unusable after the ERP rejected its cookie.
func (m *SessionManager) Invalidate(ctx context.Context, session *syncstate.Session) error {
	session.Invalidate()
	return m.sessions.Save(ctx, session)
}

// retireCachedSessions logs out every valid cached session (best effort) and
// marks them invalid, then waits for the ERP to release the slots.
func (m *SessionManager) retireCachedSessions(ctx context.Context, credential *syncstate.Credential) error {
	valid, err := m.sessions.ListValid(ctx, credential.ID)
	if err != nil {
		return fmt.Errorf("failed to list cached sessions: %w", err)
	}

	for i := range valid {
		if err := m.gateway.Logout(ctx, credential.BaseURL, valid[i].Cookie); err != nil {
			m.logger.Warn("Logout of cached session failed",
				zap.String("session_id", valid[i].ID.String()),
				zap.Error(err),
			)
		}
	}

	if err := m.sessions.InvalidateAll(ctx, credential.ID); err != nil {
		return fmt.Errorf("failed to invalidate cached sessions: %w", err)
	}

	if len(valid) > 0 && m.renewalWait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.renewalWait):
		}
	}
	return nil
}

// login authenticates with bounded retry (transient 5xx only) and persists
// the fresh session. Prior sessions for the credential set are invalidated
// so at most one is handed out going forward.
func (m *SessionManager) login(ctx context.Context, credential *syncstate.Credential) (*syncstate.Session, error) {
	creds := acumatica.Credentials{
		BaseURL:         credential.BaseURL,
		Username:        credential.Username,
		Password:        credential.Password,
		Company:         credential.Company,
		Branch:          credential.Branch,
		EndpointVersion: credential.EndpointVersion,
	}

	var cookie string
	err := acumatica.Retry(ctx, acumatica.LoginRetryPolicy(), func() error {
		var loginErr error
		cookie, loginErr = m.gateway.Login(ctx, creds)
		return loginErr
	})
	if err != nil {
		return nil, err
	}

	if err := m.sessions.InvalidateAll(ctx, credential.ID); err != nil {
		m.logger.Warn("Failed to invalidate prior sessions after login",
			zap.String("credential_id", credential.ID.String()),
			zap.Error(err),
		)
	}

	session := syncstate.NewSession(credential.ID, cookie, m.ttl)
	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	m.logger.Info("Acumatica session created",
		zap.String("credential_id", credential.ID.String()),
		zap.Time("expires_at", session.ExpiresAt),
	)
	return session, nil
}
