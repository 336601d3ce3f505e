package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arflow/backend/internal/application/syncer"
	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/interfaces/http/dto"
)

type fakeSyncService struct {
	lastReq   syncer.SyncRequest
	summary   *syncer.SyncSummary
	summaries []*syncer.SyncSummary
	statuses  []syncer.StatusView
	statusErr error
}

func (f *fakeSyncService) SyncCustomers(ctx context.Context, req syncer.SyncRequest) *syncer.SyncSummary {
	f.lastReq = req
	return f.summary
}

func (f *fakeSyncService) SyncInvoices(ctx context.Context, req syncer.SyncRequest) *syncer.SyncSummary {
	f.lastReq = req
	return f.summary
}

func (f *fakeSyncService) SyncPayments(ctx context.Context, req syncer.SyncRequest) *syncer.SyncSummary {
	f.lastReq = req
	return f.summary
}

func (f *fakeSyncService) SyncAll(ctx context.Context, req syncer.SyncRequest) []*syncer.SyncSummary {
	f.lastReq = req
	return f.summaries
}

func (f *fakeSyncService) Statuses(ctx context.Context) ([]syncer.StatusView, error) {
	return f.statuses, f.statusErr
}

func newSyncRouter(service SyncService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewSyncHandler(service).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func TestSyncHandler_Triggers(t *testing.T) {
	t.Run("empty body runs with defaults", func(t *testing.T) {
		service := &fakeSyncService{summary: &syncer.SyncSummary{Success: true, EntityType: "customer", Created: 2}}
		router := newSyncRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/customers", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var summary syncer.SyncSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.True(t, summary.Success)
		assert.Equal(t, 2, summary.Created)
		assert.Nil(t, service.lastReq.LookbackMinutes)
	})

	t.Run("override body is passed through", func(t *testing.T) {
		service := &fakeSyncService{summary: &syncer.SyncSummary{Success: true, EntityType: "invoice"}}
		router := newSyncRouter(service)

		body := `{"lookbackMinutes": 120, "batchSize": 50, "testMode": true}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/invoices", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, service.lastReq.LookbackMinutes)
		assert.Equal(t, 120, *service.lastReq.LookbackMinutes)
		require.NotNil(t, service.lastReq.BatchSize)
		assert.Equal(t, 50, *service.lastReq.BatchSize)
		assert.True(t, service.lastReq.TestMode)
	})

	t.Run("credential override is passed through", func(t *testing.T) {
		service := &fakeSyncService{summary: &syncer.SyncSummary{Success: true, EntityType: "invoice"}}
		router := newSyncRouter(service)

		body := `{"credentials": {"baseUrl": "https://sandbox.example.com", "username": "probe", "password": "secret", "endpointVersion": "23.200.001"}}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/invoices", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, service.lastReq.Credentials)
		assert.Equal(t, "probe", service.lastReq.Credentials.Username)
	})

	t.Run("incomplete credential override is rejected", func(t *testing.T) {
		service := &fakeSyncService{summary: &syncer.SyncSummary{Success: true}}
		router := newSyncRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/invoices", strings.NewReader(`{"credentials": {"username": "probe"}}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("business failure stays a 200 with success false", func(t *testing.T) {
		service := &fakeSyncService{summary: &syncer.SyncSummary{
			Success:    false,
			EntityType: "payment",
			Error:      "no active credential configured",
		}}
		router := newSyncRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/payments", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var summary syncer.SyncSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.False(t, summary.Success)
		assert.Equal(t, "no active credential configured", summary.Error)
	})

	t.Run("out of range override is rejected", func(t *testing.T) {
		service := &fakeSyncService{summary: &syncer.SyncSummary{Success: true}}
		router := newSyncRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/customers", strings.NewReader(`{"lookbackMinutes": 0}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeBadRequest)
	})

	t.Run("sync all returns one summary per entity", func(t *testing.T) {
		service := &fakeSyncService{summaries: []*syncer.SyncSummary{
			{Success: true, EntityType: "customer"},
			{Success: true, EntityType: "invoice"},
			{Success: false, EntityType: "payment", Error: "timeout"},
		}}
		router := newSyncRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/all", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var summaries []syncer.SyncSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
		require.Len(t, summaries, 3)
		assert.Equal(t, "payment", summaries[2].EntityType)
		assert.False(t, summaries[2].Success)
	})
}

func TestSyncHandler_Status(t *testing.T) {
	t.Run("returns status rows", func(t *testing.T) {
		service := &fakeSyncService{statuses: []syncer.StatusView{
			{EntityType: "customer", State: syncstate.RunStateCompleted, LookbackMinutes: 60},
			{EntityType: "invoice", State: syncstate.RunStateIdle, LookbackMinutes: 60},
		}}
		router := newSyncRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})

	t.Run("repository failure becomes 500", func(t *testing.T) {
		service := &fakeSyncService{statusErr: errors.New("connection refused")}
		router := newSyncRouter(service)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInternal)
	})
}
