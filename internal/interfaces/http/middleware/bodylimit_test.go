package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiphub/backend/internal/interfaces/http/dto"
)

// bodyLimitRouter echoes the request body length, or 413 when reading it
// trips the limit.
func bodyLimitRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/api/v1/sync/orders", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeRequestTooLarge, "read limit"))
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(len(body)))
	})
	router.GET("/api/v1/orders", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestBodyLimit_WithinLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders", strings.NewReader(`{"async":true}`))
	w := httptest.NewRecorder()
	bodyLimitRouter(64).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.EqualValues(t, 14, resp.Data)
}

func TestBodyLimit_RejectsDeclaredLength(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders", strings.NewReader(strings.Repeat("x", 200)))
	w := httptest.NewRecorder()
	bodyLimitRouter(100).ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
	assert.Equal(t, dto.GetHTTPStatus(resp.Error.Code), w.Code)
}

func TestBodyLimit_CapsStreamingBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders", strings.NewReader(strings.Repeat("x", 100)))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	bodyLimitRouter(50).ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
}

func TestBodyLimit_IgnoresBodylessRequests(t *testing.T) {
	w := httptest.NewRecorder()
	bodyLimitRouter(1).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
