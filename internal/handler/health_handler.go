// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ble-discovery-service/internal/config"
	"ble-discovery-service/internal/service"
	"ble-discovery-service/internal/utils"
)

// ClientCounter reports the number of connected stream clients
type ClientCounter interface {
	ClientCount() int
}

// HealthHandler handles health check requests
type HealthHandler struct {
	discoveryService *service.DiscoveryService
	clients          ClientCounter
	config           *config.Config
	logger           *utils.ServiceLogger
	startedAt        time.Time
}

// NewHealthHandler creates a new health handler. clients may be nil.
func NewHealthHandler(discoveryService *service.DiscoveryService, clients ClientCounter, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		discoveryService: discoveryService,
		clients:          clients,
		config:           config,
		logger:           utils.NewServiceLogger(logger, "health-handler"),
		startedAt:        time.Now(),
	}
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Get overall service health including the BLE radio state. A radio that is not ready degrades the service but does not make it unhealthy.
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy or degraded"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := h.discoveryService.Status(c.Request.Context())

	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).String(),
		Checks:    make(map[string]CheckResult),
	}

	if status.DriverReady {
		health.Checks["radio"] = CheckResult{
			Status:  "healthy",
			Message: "BLE radio ready",
			Data:    map[string]interface{}{"driver": status.Driver},
		}
	} else {
		health.Status = "degraded"
		health.Checks["radio"] = CheckResult{
			Status:  "unhealthy",
			Message: "BLE radio not ready",
			Data:    map[string]interface{}{"driver": status.Driver},
		}
	}

	health.Checks["discovery"] = CheckResult{
		Status: "healthy",
		Data: map[string]interface{}{
			"desired":     status.Desired,
			"scanning":    status.Scanning,
			"suspensions": status.Suspensions,
		},
	}

	if h.clients != nil {
		health.Checks["stream"] = CheckResult{
			Status: "healthy",
			Data:   map[string]interface{}{"clients": h.clients.ClientCount()},
		}
	}

	c.JSON(http.StatusOK, health)
}

// ReadinessCheck for Kubernetes readiness probe
// @Summary Readiness check
// @Description Check if the BLE radio is ready to scan
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is ready"
// @Failure 503 {object} object{status=string,reason=string} "Service is not ready"
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if !h.discoveryService.DriverReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "BLE radio not ready",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
// @Summary Liveness check
// @Description Check if service is alive
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is alive"
// @Router /live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
