// internal/driver/registry_init.go
package driver

import (
	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"ble-discovery-service/internal/config"
	"ble-discovery-service/internal/driver/noop"
	"ble-discovery-service/internal/driver/tinygo"
	"ble-discovery-service/pkg/driver"
)

// RegisterDefaultDrivers registers all built-in radio drivers
func RegisterDefaultDrivers(registry *Registry, logger *zap.Logger) {
	registry.Register(tinygo.DriverName, func(cfg *config.ScanConfig, logger *zap.Logger) (driver.Radio, error) {
		return tinygo.NewDriver(bluetooth.DefaultAdapter, cfg.EnableRetryInterval, logger), nil
	})

	registry.Register(noop.DriverName, func(cfg *config.ScanConfig, logger *zap.Logger) (driver.Radio, error) {
		return noop.NewDriver(logger), nil
	})

	logger.Info("Radio drivers registered", zap.Strings("drivers", registry.ListDrivers()))
}
