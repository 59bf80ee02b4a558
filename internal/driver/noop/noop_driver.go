// internal/driver/noop/noop_driver.go
package noop

import (
	"context"

	"go.uber.org/zap"

	"ble-discovery-service/pkg/driver"
)

// DriverName is the registry name of the noop driver
const DriverName = "noop"

// Driver is a radio that never becomes ready. It lets the service run on
// hosts without a Bluetooth adapter.
type Driver struct {
	logger *zap.Logger
}

// NewDriver creates a noop driver
func NewDriver(logger *zap.Logger) *Driver {
	return &Driver{logger: logger.With(zap.String("component", "noop-driver"))}
}

func (d *Driver) Name() string { return DriverName }

func (d *Driver) Open(ctx context.Context) error {
	d.logger.Warn("Using noop BLE driver, discovery will never start")
	return nil
}

func (d *Driver) StartScanning() {}

func (d *Driver) StopScanning() {}

func (d *Driver) Ready() bool { return false }

func (d *Driver) SetEventHandler(handler driver.EventHandler) {}

func (d *Driver) SetConnectionHandler(handler driver.ConnectionHandler) {}

func (d *Driver) Close() error { return nil }
