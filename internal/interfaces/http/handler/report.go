package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arflow/backend/internal/application/syncer"
)

const (
	defaultOrphanLimit = 100
	maxOrphanLimit     = 1000
)

// ReportService is the slice of the report application service the handler needs
type ReportService interface {
	OrphanedApplications(ctx context.Context, limit int) (*syncer.OrphanReport, error)
}

// ReportHandler serves reconciliation diagnostics
type ReportHandler struct {
	BaseHandler
	service ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// RegisterRoutes registers report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.GET("/orphaned-applications", h.OrphanedApplications)
	}
}

// OrphanedApplications lists payment applications whose invoice reference
// has no synced invoice yet
func (h *ReportHandler) OrphanedApplications(c *gin.Context) {
	limit := defaultOrphanLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxOrphanLimit {
			h.BadRequest(c, "limit must be an integer between 1 and 1000")
			return
		}
		limit = parsed
	}

	report, err := h.service.OrphanedApplications(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
