// internal/utils/response.go
package utils

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

// APIResponse is the envelope of every REST response
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError represents error information
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: GetRequestID(c),
	})
}

// ErrorResponse sends an error response with a code derived from the status
func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	errorResponse(c, statusCode, getErrorCode(statusCode), message, err)
}

// NotFoundResponse sends a 404 whose code names the missing resource,
// e.g. "lease" becomes LEASE_NOT_FOUND.
func NotFoundResponse(c *gin.Context, resource, message string, err error) {
	code := strings.ToUpper(strings.ReplaceAll(resource, " ", "_")) + "_NOT_FOUND"
	errorResponse(c, http.StatusNotFound, code, message, err)
}

// ValidationErrorResponse sends validation error response
func ValidationErrorResponse(c *gin.Context, errors map[string]string) {
	c.JSON(http.StatusBadRequest, APIResponse{
		Success: false,
		Message: "Validation failed",
		Error: &APIError{
			Code:    "VALIDATION_ERROR",
			Message: "Request validation failed",
		},
		Data:      gin.H{"validation_errors": errors},
		Timestamp: time.Now(),
		RequestID: GetRequestID(c),
	})
}

// GetRequestID returns the request ID stored by the request ID middleware
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

func errorResponse(c *gin.Context, statusCode int, code, message string, err error) {
	apiError := &APIError{
		Code:    code,
		Message: message,
	}
	if err != nil {
		apiError.Details = err.Error()
	}

	c.JSON(statusCode, APIResponse{
		Success:   false,
		Message:   message,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: GetRequestID(c),
	})
}

// getErrorCode returns error code based on HTTP status
func getErrorCode(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusInternalServerError:
		return "INTERNAL_SERVER_ERROR"
	case http.StatusServiceUnavailable:
		return "RADIO_NOT_READY"
	default:
		return "UNKNOWN_ERROR"
	}
}
