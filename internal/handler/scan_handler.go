// internal/handler/scan_handler.go
package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ble-discovery-service/internal/model"
	"ble-discovery-service/internal/repository"
	"ble-discovery-service/internal/service"
	"ble-discovery-service/internal/utils"
)

// ScanHandler handles BLE discovery requests
type ScanHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "scan-handler"),
	}
}

// StartScan requests BLE discovery
// @Summary Start discovery
// @Description Request BLE discovery. Scanning begins once the radio is ready and no suspension is active.
// @Tags Scan
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.ScanStatus} "Discovery requested"
// @Router /scan/start [post]
func (h *ScanHandler) StartScan(c *gin.Context) {
	h.discoveryService.StartDiscovery()
	utils.SuccessResponse(c, http.StatusOK, "Discovery requested", h.discoveryService.Status(c.Request.Context()))
}

// StopScan withdraws the discovery request
// @Summary Stop discovery
// @Description Withdraw the discovery request and stop the radio
// @Tags Scan
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.ScanStatus} "Discovery stopped"
// @Router /scan/stop [post]
func (h *ScanHandler) StopScan(c *gin.Context) {
	h.discoveryService.StopDiscovery()
	utils.SuccessResponse(c, http.StatusOK, "Discovery stopped", h.discoveryService.Status(c.Request.Context()))
}

// GetStatus returns the discovery status
// @Summary Discovery status
// @Description Get the requested and radio-confirmed scan state, suspensions and counters
// @Tags Scan
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.ScanStatus} "Status retrieved"
// @Router /scan/status [get]
func (h *ScanHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Status retrieved", h.discoveryService.Status(c.Request.Context()))
}

// CreateSuspension suspends discovery
// @Summary Suspend discovery
// @Description Suspend discovery until the returned lease is deleted. Suspensions nest.
// @Tags Scan
// @Accept json
// @Produce json
// @Param request body SuspendRequest false "Suspension request"
// @Success 201 {object} utils.APIResponse{data=model.SuspensionLease} "Discovery suspended"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /scan/suspensions [post]
func (h *ScanHandler) CreateSuspension(c *gin.Context) {
	var req SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	lease := h.discoveryService.Suspend(req.Reason)
	utils.SuccessResponse(c, http.StatusCreated, "Discovery suspended", lease)
}

// ListSuspensions lists outstanding suspension leases
// @Summary List suspensions
// @Tags Scan
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.SuspensionLease} "Suspensions retrieved"
// @Router /scan/suspensions [get]
func (h *ScanHandler) ListSuspensions(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Suspensions retrieved", h.discoveryService.ListSuspensions())
}

// DeleteSuspension releases a suspension lease
// @Summary Resume discovery
// @Description Release one suspension lease. Discovery resumes when no lease is left.
// @Tags Scan
// @Produce json
// @Param id path string true "Lease ID"
// @Success 200 {object} utils.APIResponse "Suspension released"
// @Failure 400 {object} utils.APIResponse "Invalid lease ID"
// @Failure 404 {object} utils.APIResponse "Lease not found"
// @Router /scan/suspensions/{id} [delete]
func (h *ScanHandler) DeleteSuspension(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid lease ID", err)
		return
	}

	if err := h.discoveryService.Resume(id); err != nil {
		if errors.Is(err, service.ErrLeaseNotFound) {
			utils.NotFoundResponse(c, "lease", "Suspension lease not found", err)
			return
		}
		h.logger.Error("Failed to release suspension", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to release suspension", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Suspension released", gin.H{"id": id})
}

// ListDevices lists recently discovered devices
// @Summary List discovered devices
// @Description List recently seen peripherals, newest first
// @Tags Devices
// @Produce json
// @Param status query string false "Connection status" Enums(ADVERTISING, CONNECTED, DISCONNECTED)
// @Param min_rssi query int false "Minimum RSSI in dBm"
// @Param limit query int false "Maximum number of devices"
// @Success 200 {object} utils.APIResponse{data=object{count=int,devices=[]model.DiscoveredDevice}} "Devices retrieved"
// @Failure 400 {object} utils.APIResponse "Invalid query"
// @Router /scan/devices [get]
func (h *ScanHandler) ListDevices(c *gin.Context) {
	filter, validationErrors := parseDeviceFilter(c)
	if len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	devices, err := h.discoveryService.RecentDevices(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list devices", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list devices", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved", gin.H{
		"count":   len(devices),
		"devices": devices,
	})
}

// GetDevice returns one discovered device
// @Summary Get discovered device
// @Tags Devices
// @Produce json
// @Param address path string true "Device address"
// @Success 200 {object} utils.APIResponse{data=model.DiscoveredDevice} "Device retrieved"
// @Failure 404 {object} utils.APIResponse "Device not found"
// @Router /scan/devices/{address} [get]
func (h *ScanHandler) GetDevice(c *gin.Context) {
	device, err := h.discoveryService.GetDevice(c.Request.Context(), c.Param("address"))
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			utils.NotFoundResponse(c, "device", "Device not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get device", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved", device)
}

func parseDeviceFilter(c *gin.Context) (*repository.DeviceFilter, map[string]string) {
	filter := &repository.DeviceFilter{}
	validationErrors := make(map[string]string)

	if status := c.Query("status"); status != "" {
		s := model.DeviceStatus(status)
		switch s {
		case model.DeviceStatusAdvertising, model.DeviceStatusConnected, model.DeviceStatusDisconnected:
			filter.Status = &s
		default:
			validationErrors["status"] = "must be one of ADVERTISING, CONNECTED, DISCONNECTED"
		}
	}

	if raw := c.Query("min_rssi"); raw != "" {
		rssi, err := strconv.Atoi(raw)
		if err != nil {
			validationErrors["min_rssi"] = "must be an integer"
		} else {
			filter.MinRSSI = &rssi
		}
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			validationErrors["limit"] = "must be a non-negative integer"
		} else {
			filter.Limit = limit
		}
	}

	return filter, validationErrors
}

// SuspendRequest represents a suspension request. The body is optional.
type SuspendRequest struct {
	Reason string `json:"reason"`
}
