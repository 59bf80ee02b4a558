// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"ble-discovery-service/internal/utils"
)

// LoggingMiddleware writes one access log entry per request
func LoggingMiddleware(logger *utils.ServiceLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime)

		requestLogger := logger
		if requestID := utils.GetRequestID(c); requestID != "" {
			requestLogger = logger.WithRequestID(requestID)
		}

		requestLogger.LogAPIRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Request.UserAgent(),
			c.ClientIP(),
			c.Writer.Status(),
			duration,
		)
	}
}
