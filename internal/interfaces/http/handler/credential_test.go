package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arflow/backend/internal/application/syncer"
	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/interfaces/http/dto"
)

type fakeCredentialService struct {
	views     []syncer.CredentialView
	created   *syncer.CredentialView
	createErr error
	deactErr  error
	testErr   error

	lastInput  syncer.CredentialInput
	lastDeact  uuid.UUID
	testCalled bool
}

func (f *fakeCredentialService) List(ctx context.Context) ([]syncer.CredentialView, error) {
	return f.views, nil
}

func (f *fakeCredentialService) Create(ctx context.Context, input syncer.CredentialInput) (*syncer.CredentialView, error) {
	f.lastInput = input
	return f.created, f.createErr
}

func (f *fakeCredentialService) Deactivate(ctx context.Context, id uuid.UUID) error {
	f.lastDeact = id
	return f.deactErr
}

func (f *fakeCredentialService) TestConnection(ctx context.Context, input syncer.CredentialInput) error {
	f.testCalled = true
	f.lastInput = input
	return f.testErr
}

func newCredentialRouter(service CredentialService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewCredentialHandler(service).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

const validCredentialBody = `{
	"baseUrl": "https://erp.example.com",
	"username": "sync-bot",
	"password": "secret",
	"endpointVersion": "24.200.001"
}`

func TestCredentialHandler_List(t *testing.T) {
	service := &fakeCredentialService{views: []syncer.CredentialView{
		{ID: uuid.New(), BaseURL: "https://erp.example.com", Username: "sync-bot", IsActive: true},
	}}
	router := newCredentialRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/credentials", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	// Passwords never leave the service layer
	assert.NotContains(t, w.Body.String(), "password")
}

func TestCredentialHandler_Create(t *testing.T) {
	t.Run("stores and returns 201", func(t *testing.T) {
		service := &fakeCredentialService{created: &syncer.CredentialView{
			ID:       uuid.New(),
			BaseURL:  "https://erp.example.com",
			Username: "sync-bot",
			IsActive: true,
		}}
		router := newCredentialRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/credentials", strings.NewReader(validCredentialBody))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "sync-bot", service.lastInput.Username)
	})

	t.Run("missing required fields rejected", func(t *testing.T) {
		service := &fakeCredentialService{}
		router := newCredentialRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/credentials", strings.NewReader(`{"username": "sync-bot"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeValidation)
		assert.Contains(t, w.Body.String(), "baseurl")
		assert.Contains(t, w.Body.String(), "password")
	})

	t.Run("malformed url rejected with field detail", func(t *testing.T) {
		service := &fakeCredentialService{}
		router := newCredentialRouter(service)

		w := httptest.NewRecorder()
		body := `{"baseUrl": "not a url", "username": "sync-bot", "password": "secret", "endpointVersion": "24.200.001"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/credentials", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "must be a valid URL")
	})
}

func TestCredentialHandler_TestConnection(t *testing.T) {
	t.Run("reports connected", func(t *testing.T) {
		service := &fakeCredentialService{}
		router := newCredentialRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/credentials/test", strings.NewReader(validCredentialBody))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, service.testCalled)
		assert.Contains(t, w.Body.String(), `"connected":true`)
	})

	t.Run("rejected login maps to upstream auth error", func(t *testing.T) {
		service := &fakeCredentialService{testErr: syncstate.ErrLoginFailed}
		router := newCredentialRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/credentials/test", strings.NewReader(validCredentialBody))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeUpstreamAuth)
	})

	t.Run("session limit maps to 503", func(t *testing.T) {
		service := &fakeCredentialService{testErr: syncstate.ErrSessionLimitReached}
		router := newCredentialRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/credentials/test", strings.NewReader(validCredentialBody))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeSessionLimit)
	})
}

func TestCredentialHandler_Deactivate(t *testing.T) {
	t.Run("deactivates by id", func(t *testing.T) {
		service := &fakeCredentialService{}
		router := newCredentialRouter(service)

		id := uuid.New()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/credentials/"+id.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, id, service.lastDeact)
	})

	t.Run("invalid uuid rejected", func(t *testing.T) {
		service := &fakeCredentialService{}
		router := newCredentialRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/credentials/not-a-uuid", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		service := &fakeCredentialService{deactErr: syncstate.ErrNotFound}
		router := newCredentialRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/credentials/"+uuid.NewString(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeNotFound)
	})
}
