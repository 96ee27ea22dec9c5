package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/logger"
	"github.com/shiphub/backend/internal/infrastructure/scheduler"
	"github.com/shiphub/backend/internal/interfaces/http/dto"
	"github.com/shiphub/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID returns the request ID assigned by the logging middleware
func getRequestID(c *gin.Context) string {
	if id := c.Writer.Header().Get(logger.RequestIDHeader); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// getUserID returns the authenticated user or uuid.Nil
func getUserID(c *gin.Context) uuid.UUID {
	return middleware.GetJWTUserID(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Accepted sends a 202 response for work that continues in the background
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain and scheduler errors to HTTP responses.
// Anything unrecognized is logged and reported as an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, integration.ErrOrderNotFound):
		h.NotFound(c, "Order not found")
	case errors.Is(err, integration.ErrShipperProfileNotFound):
		h.NotFound(c, "Shipper profile not found")
	case errors.Is(err, scheduler.ErrJobNotFound):
		h.NotFound(c, "Sync job not found")
	case errors.Is(err, integration.ErrInvalidUserID):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid user ID")
	case errors.Is(err, integration.ErrUnsupportedMarketplace):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Unsupported marketplace")
	case errors.Is(err, integration.ErrSyncInProgress):
		h.ErrorWithCode(c, dto.ErrCodeSyncInProgress, "A sync is already running for this user")
	case errors.Is(err, integration.ErrLabelRequestInvalid):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeValidation, err.Error())
	case errors.Is(err, integration.ErrLabelServiceFailed):
		h.ErrorWithCode(c, dto.ErrCodeUpstream, "Label service failed")
	case errors.Is(err, integration.ErrLabelEndpointNotConfigured):
		h.ErrorWithCode(c, dto.ErrCodeNotConfigured, "Label service is not configured")
	case errors.Is(err, scheduler.ErrSweepInProgress):
		h.ErrorWithCode(c, dto.ErrCodeSyncInProgress, "A shipping sweep is already running")
	case errors.Is(err, scheduler.ErrSweepDisabled):
		h.ErrorWithCode(c, dto.ErrCodeNotConfigured, "Shipping sync is not enabled")
	case errors.Is(err, scheduler.ErrJobQueueFull), errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.ErrorWithCode(c, dto.ErrCodeQueueFull, "Sync queue is unavailable, try again later")
	default:
		logger.FromContext(c.Request.Context()).Error("Unhandled request error", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
	}
}
