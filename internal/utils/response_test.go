package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, "BAD_REQUEST"},
		{http.StatusNotFound, "NOT_FOUND"},
		{http.StatusServiceUnavailable, "RADIO_NOT_READY"},
		{http.StatusTeapot, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		c, w := newContext()
		c.Set(RequestIDKey, "req-42")

		ErrorResponse(c, tt.status, "failed", errors.New("details"))

		var res APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, tt.status, w.Code)
		assert.False(t, res.Success)
		assert.Equal(t, tt.code, res.Error.Code)
		assert.Equal(t, "details", res.Error.Details)
		assert.Equal(t, "req-42", res.RequestID)
	}
}

func TestSuccessResponse(t *testing.T) {
	c, w := newContext()

	SuccessResponse(c, http.StatusCreated, "created", gin.H{"id": "1"})

	var res APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, res.Success)
	assert.Nil(t, res.Error)
	assert.Empty(t, res.RequestID)
	assert.Equal(t, map[string]interface{}{"id": "1"}, res.Data)
}

func TestNotFoundResponse(t *testing.T) {
	c, w := newContext()

	NotFoundResponse(c, "suspension lease", "missing", nil)

	var res APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SUSPENSION_LEASE_NOT_FOUND", res.Error.Code)
	assert.Empty(t, res.Error.Details)
}
