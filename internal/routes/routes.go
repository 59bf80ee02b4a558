// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"ble-discovery-service/internal/config"
	"ble-discovery-service/internal/handler"
	"ble-discovery-service/internal/middleware"
	"ble-discovery-service/internal/service"
	"ble-discovery-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	discoveryService *service.DiscoveryService
	eventBus         *handler.EventBus
	wsHandler        *handler.WebSocketHandler
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	discoveryService *service.DiscoveryService,
	eventBus *handler.EventBus,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		discoveryService: discoveryService,
		eventBus:         eventBus,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if r.config.IsDebugEnabled() {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// Close stops the WebSocket event forwarding
func (r *Router) Close() {
	if r.wsHandler != nil {
		r.wsHandler.Close()
	}
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	r.wsHandler = handler.NewWebSocketHandler(r.discoveryService, r.eventBus, r.config.Security.AllowedOrigins, r.logger)
	healthHandler := handler.NewHealthHandler(r.discoveryService, r.wsHandler, r.config, r.logger)
	scanHandler := handler.NewScanHandler(r.discoveryService, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addScanRoutes(apiV1, scanHandler)

	r.addWebSocketRoutes(router, r.wsHandler)
	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addScanRoutes sets up discovery control routes
func (r *Router) addScanRoutes(api *gin.RouterGroup, handler *handler.ScanHandler) {
	scan := api.Group("/scan")
	{
		scan.POST("/start", handler.StartScan)
		scan.POST("/stop", handler.StopScan)
		scan.GET("/status", handler.GetStatus)

		suspensions := scan.Group("/suspensions")
		{
			suspensions.POST("", handler.CreateSuspension)
			suspensions.GET("", handler.ListSuspensions)
			suspensions.DELETE("/:id", handler.DeleteSuspension)
		}

		scan.GET("/devices", handler.ListDevices)
		scan.GET("/devices/:address", handler.GetDevice)
	}
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine, handler *handler.WebSocketHandler) {
	ws := router.Group("/ws")
	{
		ws.GET("/discoveries", handler.HandleDiscoveryConnection)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
