package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arflow/backend/internal/domain/syncstate"
)

type sessionFixture struct {
	credential *syncstate.Credential
	sessions   *fakeSessionRepo
	gateway    *MockGateway
	sut        *SessionManager
}

func newSessionFixture() *sessionFixture {
	credential := syncstate.NewCredential("https://erp.example.com", "sync-user", "secret")
	credential.EndpointVersion = "24.200.001"

	f := &sessionFixture{
		credential: credential,
		sessions:   newFakeSessionRepo(),
		gateway:    new(MockGateway),
	}
	f.sut = NewSessionManager(
		newFakeCredentialRepo(credential),
		f.sessions,
		f.gateway,
		zap.NewNop(),
		WithRenewalWait(0),
	)
	return f
}

func TestSessionManager_ReusesCachedSession(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.gateway.On("Login", mock.Anything, mock.Anything).Return("cookie-1", nil).Once()

	first, _, err := f.sut.GetSession(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "cookie-1", first.Cookie)

	second, _, err := f.sut.GetSession(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first.Cookie, second.Cookie)
	assert.Equal(t, first.ID, second.ID)

	f.gateway.AssertNumberOfCalls(t, "Login", 1)
}

func TestSessionManager_ExpiredSessionTriggersLogin(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	expired := syncstate.NewSession(f.credential.ID, "stale", -time.Minute)
	require.NoError(t, f.sessions.Save(ctx, expired))

	f.gateway.On("Login", mock.Anything, mock.Anything).Return("fresh", nil).Once()

	session, _, err := f.sut.GetSession(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "fresh", session.Cookie)
}

func TestSessionManager_ForceNewLogsOutEachCachedSession(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	require.NoError(t, f.sessions.Save(ctx, syncstate.NewSession(f.credential.ID, "old-1", time.Hour)))
	require.NoError(t, f.sessions.Save(ctx, syncstate.NewSession(f.credential.ID, "old-2", time.Hour)))

	f.gateway.On("Logout", mock.Anything, f.credential.BaseURL, "old-1").Return(nil).Once()
	f.gateway.On("Logout", mock.Anything, f.credential.BaseURL, "old-2").Return(nil).Once()
	f.gateway.On("Login", mock.Anything, mock.Anything).Return("fresh", nil).Once()

	session, _, err := f.sut.GetSession(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "fresh", session.Cookie)
	f.gateway.AssertExpectations(t)

	// Only the fresh session remains valid.
	valid, err := f.sessions.ListValid(ctx, f.credential.ID)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, "fresh", valid[0].Cookie)
}

func TestSessionManager_SessionLimitSurfaces(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.gateway.On("Login", mock.Anything, mock.Anything).Return("", syncstate.ErrSessionLimitReached)

	_, _, err := f.sut.GetSession(ctx, false)
	assert.ErrorIs(t, err, syncstate.ErrSessionLimitReached)
	// Capacity errors must not be retried blindly.
	f.gateway.AssertNumberOfCalls(t, "Login", 1)
}

func TestSessionManager_NoActiveCredential(t *testing.T) {
	f := newSessionFixture()
	f.sut = NewSessionManager(newFakeCredentialRepo(nil), f.sessions, f.gateway, zap.NewNop())

	_, _, err := f.sut.GetSession(context.Background(), false)
	assert.ErrorIs(t, err, syncstate.ErrNoActiveCredential)
}

func TestSessionManager_InvalidateMarksSessionUnusable(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.gateway.On("Login", mock.Anything, mock.Anything).Return("cookie-1", nil).Once()
	session, _, err := f.sut.GetSession(ctx, false)
	require.NoError(t, err)

	require.NoError(t, f.sut.Invalidate(ctx, session))

	_, err = f.sessions.FindUsable(ctx, f.credential.ID)
	assert.ErrorIs(t, err, syncstate.ErrNotFound)
}
