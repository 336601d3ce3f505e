package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arflow/backend/internal/application/syncer"
)

// SyncService is the slice of the sync application service the handler needs
type SyncService interface {
	SyncCustomers(ctx context.Context, req syncer.SyncRequest) *syncer.SyncSummary
	SyncInvoices(ctx context.Context, req syncer.SyncRequest) *syncer.SyncSummary
	SyncPayments(ctx context.Context, req syncer.SyncRequest) *syncer.SyncSummary
	SyncAll(ctx context.Context, req syncer.SyncRequest) []*syncer.SyncSummary
	Statuses(ctx context.Context) ([]syncer.StatusView, error)
}

// SyncHandler exposes the sync trigger and status endpoints. Triggers run
// synchronously: the response body is the run summary, and business failures
// come back as 200 with success=false so callers branch on the body.
type SyncHandler struct {
	BaseHandler
	service SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/customers", h.SyncCustomers)
		sync.POST("/invoices", h.SyncInvoices)
		sync.POST("/payments", h.SyncPayments)
		sync.POST("/all", h.SyncAll)
		sync.GET("/status", h.Status)
	}
}

// SyncCustomers triggers an incremental customer sync
func (h *SyncHandler) SyncCustomers(c *gin.Context) {
	req, ok := h.bindSyncRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.SyncCustomers(c.Request.Context(), req))
}

// SyncInvoices triggers an incremental invoice sync
func (h *SyncHandler) SyncInvoices(c *gin.Context) {
	req, ok := h.bindSyncRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.SyncInvoices(c.Request.Context(), req))
}

// SyncPayments triggers an incremental payment sync
func (h *SyncHandler) SyncPayments(c *gin.Context) {
	req, ok := h.bindSyncRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.SyncPayments(c.Request.Context(), req))
}

// SyncAll triggers all three entity syncs in order and returns one summary
// per entity type
func (h *SyncHandler) SyncAll(c *gin.Context) {
	req, ok := h.bindSyncRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.SyncAll(c.Request.Context(), req))
}

// Status returns the persisted status row for every entity type
func (h *SyncHandler) Status(c *gin.Context) {
	statuses, err := h.service.Statuses(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statuses)
}

// bindSyncRequest parses the optional override body. An empty body means
// run with persisted and configured defaults.
func (h *SyncHandler) bindSyncRequest(c *gin.Context) (syncer.SyncRequest, bool) {
	var req syncer.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return syncer.SyncRequest{}, true
		}
		h.BadRequest(c, "invalid sync request: "+err.Error())
		return req, false
	}
	return req, true
}
