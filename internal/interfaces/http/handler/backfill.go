package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arflow/backend/internal/application/syncer"
	"github.com/arflow/backend/internal/domain/syncstate"
)

// BackfillService is the slice of the backfill application service the
// handler needs
type BackfillService interface {
	Run(ctx context.Context, jobType syncstate.JobType, req syncer.BackfillRequest) *syncer.BackfillSummary
	Progress(ctx context.Context, jobType syncstate.JobType) (*syncer.BackfillProgressView, error)
}

// BackfillHandler exposes the bounded backfill batch triggers. Each call
// advances the named job by one batch and reports the new cursor position.
type BackfillHandler struct {
	BaseHandler
	service BackfillService
}

// NewBackfillHandler creates a new BackfillHandler
func NewBackfillHandler(service BackfillService) *BackfillHandler {
	return &BackfillHandler{service: service}
}

// RegisterRoutes registers backfill routes
func (h *BackfillHandler) RegisterRoutes(rg *gin.RouterGroup) {
	backfill := rg.Group("/backfill")
	{
		backfill.POST("/payment-applications", h.runJob(syncstate.JobPaymentApplications))
		backfill.POST("/payment-attachments", h.runJob(syncstate.JobPaymentAttachments))
		backfill.GET("/payment-applications", h.progress(syncstate.JobPaymentApplications))
		backfill.GET("/payment-attachments", h.progress(syncstate.JobPaymentAttachments))
	}
}

// progress reports the durable cursor and counters without advancing the job
func (h *BackfillHandler) progress(jobType syncstate.JobType) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := h.service.Progress(c.Request.Context(), jobType)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, view)
	}
}

func (h *BackfillHandler) runJob(jobType syncstate.JobType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req syncer.BackfillRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			h.BadRequest(c, "invalid backfill request: "+err.Error())
			return
		}
		c.JSON(http.StatusOK, h.service.Run(c.Request.Context(), jobType, req))
	}
}
