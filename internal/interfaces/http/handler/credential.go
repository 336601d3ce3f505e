package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arflow/backend/internal/application/syncer"
	"github.com/arflow/backend/internal/interfaces/http/dto"
)

// CredentialService is the slice of the credential application service the
// handler needs
type CredentialService interface {
	List(ctx context.Context) ([]syncer.CredentialView, error)
	Create(ctx context.Context, input syncer.CredentialInput) (*syncer.CredentialView, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	TestConnection(ctx context.Context, input syncer.CredentialInput) error
}

// CredentialHandler manages the ERP credential sets used by sync runs
type CredentialHandler struct {
	BaseHandler
	service CredentialService
}

// NewCredentialHandler creates a new CredentialHandler
func NewCredentialHandler(service CredentialService) *CredentialHandler {
	return &CredentialHandler{service: service}
}

// RegisterRoutes registers credential routes
func (h *CredentialHandler) RegisterRoutes(rg *gin.RouterGroup) {
	credentials := rg.Group("/credentials")
	{
		credentials.GET("", h.List)
		credentials.POST("", h.Create)
		credentials.POST("/test", h.TestConnection)
		credentials.DELETE("/:id", h.Deactivate)
	}
}

// List returns every credential set with passwords redacted, active first
func (h *CredentialHandler) List(c *gin.Context) {
	views, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// Create stores a new credential set and makes it the active one
func (h *CredentialHandler) Create(c *gin.Context) {
	var input syncer.CredentialInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindingError(c, err)
		return
	}

	view, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, view)
}

// TestConnection verifies a credential set against the ERP without saving it
func (h *CredentialHandler) TestConnection(c *gin.Context) {
	var input syncer.CredentialInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindingError(c, err)
		return
	}

	if err := h.service.TestConnection(c.Request.Context(), input); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"connected": true})
}

// Deactivate marks a credential set unusable for future runs
func (h *CredentialHandler) Deactivate(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "invalid credential id")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "invalid credential id")
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
