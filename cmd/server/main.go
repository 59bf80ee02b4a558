// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "ble-discovery-service/docs"
	"ble-discovery-service/internal/config"
	"ble-discovery-service/internal/discovery"
	"ble-discovery-service/internal/driver"
	"ble-discovery-service/internal/handler"
	"ble-discovery-service/internal/repository"
	"ble-discovery-service/internal/routes"
	"ble-discovery-service/internal/service"
	"ble-discovery-service/internal/utils"
	pkgdriver "ble-discovery-service/pkg/driver"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server
	router *routes.Router

	driverRegistry *driver.Registry
	radio          pkgdriver.Radio
	controller     *discovery.ScanController
	eventBus       *handler.EventBus

	deviceRepo       repository.DeviceRepository
	discoveryService *service.DiscoveryService
}

// @title BLE Discovery Service API
// @version 1.0.0
// @description Controls BLE peripheral discovery and streams discovered devices

// @contact.name BLE Discovery Service API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	defer utils.LogPanic(app.logger)

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, cfg.App.Name)
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeDriverRegistry(); err != nil {
		return nil, fmt.Errorf("failed to initialize driver registry: %w", err)
	}

	if err := app.initializeRadio(); err != nil {
		return nil, fmt.Errorf("failed to initialize radio: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeDriverRegistry sets up the radio driver registry
func (app *Application) initializeDriverRegistry() error {
	app.driverRegistry = driver.NewRegistry(app.logger)
	driver.RegisterDefaultDrivers(app.driverRegistry, app.logger)

	if !app.driverRegistry.IsSupported(app.config.Scan.Driver) {
		return fmt.Errorf("unsupported radio driver %q", app.config.Scan.Driver)
	}
	return nil
}

// initializeRadio creates and opens the configured radio driver
func (app *Application) initializeRadio() error {
	radio, err := app.driverRegistry.CreateRadio(app.config.Scan.Driver, &app.config.Scan)
	if err != nil {
		return err
	}

	if err := radio.Open(context.Background()); err != nil {
		return fmt.Errorf("failed to open radio %q: %w", radio.Name(), err)
	}

	app.radio = radio
	app.logger.Info("Radio driver opened", zap.String("driver", radio.Name()))
	return nil
}

// initializeServices creates the scan controller and the discovery service
func (app *Application) initializeServices() error {
	app.eventBus = handler.NewEventBus(app.logger)

	app.controller = discovery.NewScanController(app.radio, app.logger,
		discovery.WithRetryInterval(app.config.Scan.RetryInterval),
		discovery.WithStateListener(service.StatePublisher(app.eventBus)),
	)

	deviceRepo, err := repository.NewDeviceRepository(app.config.Scan.DeviceCacheSize, app.logger)
	if err != nil {
		return err
	}
	app.deviceRepo = deviceRepo

	app.discoveryService = service.NewDiscoveryService(
		app.controller,
		app.radio,
		app.deviceRepo,
		app.eventBus,
		app.config,
		app.logger,
	)

	app.logger.Info("Services initialized successfully",
		zap.Duration("retry_interval", app.config.Scan.RetryInterval),
		zap.Bool("suspend_on_connect", app.config.Scan.SuspendOnConnect),
	)
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	app.router = routes.NewRouter(
		app.config,
		app.logger,
		app.discoveryService,
		app.eventBus,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      app.router.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)

	return nil
}

// Start runs the HTTP server and blocks until a shutdown signal arrives
func (app *Application) Start() error {
	go app.eventBus.Start()

	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	if app.config.Scan.AutoStart {
		app.discoveryService.StartDiscovery()
	}

	app.waitForShutdown()
	return nil
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown stops the server first, then discovery, then the radio
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, app.config.App.Name)
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		utils.LogError(app.logger, "HTTP server shutdown error", err)
	} else {
		app.logger.Info("HTTP server stopped")
	}
	app.router.Close()

	app.discoveryService.Close()
	if err := app.controller.Close(); err != nil {
		utils.LogError(app.logger, "Scan controller close error", err)
	}

	if err := app.radio.Close(); err != nil {
		utils.LogError(app.logger, "Radio close error", err, zap.String("driver", app.radio.Name()))
	} else {
		app.logger.Info("Radio closed")
	}

	app.eventBus.Stop()

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}
