package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/logger"
	"github.com/shiphub/backend/internal/infrastructure/scheduler"
	"github.com/shiphub/backend/internal/interfaces/http/dto"
	"github.com/shiphub/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withUser simulates the JWT middleware for an authenticated caller
func withUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTUserIDKey, userID)
		c.Next()
	}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	t.Run("prefers the response header", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set(logger.RequestIDHeader, "from-request")
		c.Header(logger.RequestIDHeader, "from-middleware")

		assert.Equal(t, "from-middleware", getRequestID(c))
	})

	t.Run("falls back to the request header", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set(logger.RequestIDHeader, "from-request")

		assert.Equal(t, "from-request", getRequestID(c))
	})
}

func TestBaseHandler_SuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.SuccessWithMeta(c, []string{"a"}, 41, 2, 20)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(41), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"order not found", integration.ErrOrderNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"wrapped order not found", fmt.Errorf("load: %w", integration.ErrOrderNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"shipper profile missing", integration.ErrShipperProfileNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"job not found", scheduler.ErrJobNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"invalid user", integration.ErrInvalidUserID, http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"unsupported marketplace", integration.ErrUnsupportedMarketplace, http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"sync in progress", integration.ErrSyncInProgress, http.StatusConflict, dto.ErrCodeSyncInProgress},
		{"label invalid", fmt.Errorf("%w: shipTo.zip required", integration.ErrLabelRequestInvalid), http.StatusUnprocessableEntity, dto.ErrCodeValidation},
		{"label service failed", integration.ErrLabelServiceFailed, http.StatusBadGateway, dto.ErrCodeUpstream},
		{"label not configured", integration.ErrLabelEndpointNotConfigured, http.StatusServiceUnavailable, dto.ErrCodeNotConfigured},
		{"queue full", scheduler.ErrJobQueueFull, http.StatusServiceUnavailable, dto.ErrCodeQueueFull},
		{"scheduler stopped", scheduler.ErrSchedulerNotRunning, http.StatusServiceUnavailable, dto.ErrCodeQueueFull},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Header(logger.RequestIDHeader, "req-1")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestBaseHandler_HandleError_Nil(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.HandleError(c, nil)

	assert.Zero(t, w.Body.Len())
}
