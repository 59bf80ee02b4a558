package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ble-discovery-service/internal/config"
	"ble-discovery-service/internal/discovery"
	"ble-discovery-service/internal/discovery/discoverytest"
	"ble-discovery-service/internal/repository"
	"ble-discovery-service/internal/service"
)

type testEnv struct {
	router    *gin.Engine
	radio     *discoverytest.FakeRadio
	scheduler *discoverytest.ManualScheduler
	service   *service.DiscoveryService
	bus       *EventBus
	ws        *WebSocketHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	cfg := &config.Config{
		App:  config.AppConfig{Name: "ble-discovery-service", Version: "test"},
		Scan: config.ScanConfig{SuspendOnConnect: true},
	}

	bus := NewEventBus(logger)
	go bus.Start()

	radio := discoverytest.NewFakeRadio()
	scheduler := discoverytest.NewManualScheduler()
	controller := discovery.NewScanController(radio, logger,
		discovery.WithScheduler(scheduler),
		discovery.WithStateListener(service.StatePublisher(bus)),
	)

	repo, err := repository.NewDeviceRepository(32, logger)
	require.NoError(t, err)
	svc := service.NewDiscoveryService(controller, radio, repo, bus, cfg, logger)

	scanHandler := NewScanHandler(svc, logger)
	wsHandler := NewWebSocketHandler(svc, bus, nil, logger)
	healthHandler := NewHealthHandler(svc, wsHandler, cfg, logger)

	router := gin.New()
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/ws/discoveries", wsHandler.HandleDiscoveryConnection)

	scan := router.Group("/api/v1/scan")
	scan.POST("/start", scanHandler.StartScan)
	scan.POST("/stop", scanHandler.StopScan)
	scan.GET("/status", scanHandler.GetStatus)
	scan.POST("/suspensions", scanHandler.CreateSuspension)
	scan.GET("/suspensions", scanHandler.ListSuspensions)
	scan.DELETE("/suspensions/:id", scanHandler.DeleteSuspension)
	scan.GET("/devices", scanHandler.ListDevices)
	scan.GET("/devices/:address", scanHandler.GetDevice)

	t.Cleanup(func() {
		wsHandler.Close()
		svc.Close()
		controller.Close()
		bus.Stop()
	})

	return &testEnv{router: router, radio: radio, scheduler: scheduler, service: svc, bus: bus, ws: wsHandler}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func statusOf(t *testing.T, env *testEnv) service.ScanStatus {
	t.Helper()

	w := env.do(t, http.MethodGet, "/api/v1/scan/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status service.ScanStatus
	decode(t, w, &status)
	return status
}
