package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/acumatica"
	"github.com/arflow/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the gin context key set by the RequestID middleware
const RequestIDKey = "request_id"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindingError sends a 400 response for a failed request binding. Validator
// failures carry per-field details; anything else is reported as-is.
func (h *BaseHandler) BindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]dto.ValidationDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   strings.ToLower(fe.Field()),
				Message: validationMessage(fe),
			})
		}
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", getRequestID(c), details))
		return
	}
	h.BadRequest(c, err.Error())
}

// validationMessage renders a human-readable message for a field failure
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed validation: " + fe.Tag()
	}
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps known domain and upstream errors to HTTP responses.
// Anything unrecognized becomes a 500 without leaking the error text.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := errorCode(err)
	if code == dto.ErrCodeInternal {
		h.InternalError(c, "An unexpected error occurred")
		return
	}
	h.Error(c, dto.GetHTTPStatus(code), code, err.Error())
}

// errorCode classifies an error into a response code
func errorCode(err error) string {
	switch {
	case errors.Is(err, receivable.ErrNotFound), errors.Is(err, syncstate.ErrNotFound):
		return dto.ErrCodeNotFound
	case errors.Is(err, receivable.ErrDuplicateKey):
		return dto.ErrCodeAlreadyExists
	case errors.Is(err, syncstate.ErrNoActiveCredential):
		return dto.ErrCodeNoActiveCredential
	case errors.Is(err, syncstate.ErrSessionLimitReached):
		return dto.ErrCodeSessionLimit
	case errors.Is(err, syncstate.ErrLoginFailed), errors.Is(err, acumatica.ErrUnauthorized):
		return dto.ErrCodeUpstreamAuth
	case errors.Is(err, acumatica.ErrUpstreamFormat):
		return dto.ErrCodeUpstreamFormat
	default:
		return dto.ErrCodeInternal
	}
}
