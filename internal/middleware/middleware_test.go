package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ble-discovery-service/internal/config"
	"ble-discovery-service/internal/utils"
)

func newEngine(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(RecoveryMiddleware(logger))
	engine.Use(RequestIDMiddleware())
	engine.Use(LoggingMiddleware(utils.NewServiceLogger(logger, "http-server")))
	engine.Use(CORSMiddleware(&config.SecurityConfig{AllowedOrigins: []string{"http://ui.local"}}))

	engine.GET("/ok", func(c *gin.Context) {
		utils.SuccessResponse(c, http.StatusOK, "ok", nil)
	})
	engine.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	return engine
}

func TestRequestIDMiddleware_GeneratesAndEchoes(t *testing.T) {
	engine := newEngine(zap.NewNop())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestLoggingMiddleware_LogsRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	engine := newEngine(zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("API request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/ok", fields["path"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status_code"])
}

func TestRecoveryMiddleware_ReturnsEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	engine := newEngine(zap.New(core))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")

	entries := logs.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, w.Header().Get(RequestIDHeader), entries[0].ContextMap()["request_id"])
}

func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	engine := newEngine(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Origin", "http://ui.local")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "http://ui.local", w.Header().Get("Access-Control-Allow-Origin"))
}
