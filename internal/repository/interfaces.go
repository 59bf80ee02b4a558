// internal/repository/interfaces.go
package repository

import (
	"context"

	"ble-discovery-service/internal/model"
	"ble-discovery-service/pkg/driver"
)

// DeviceRepository defines access to recently discovered devices
type DeviceRepository interface {
	// Upsert records an advertisement and returns the merged device record
	Upsert(ctx context.Context, peripheral driver.Peripheral) (*model.DiscoveredDevice, error)
	GetByAddress(ctx context.Context, address string) (*model.DiscoveredDevice, error)
	UpdateStatus(ctx context.Context, address string, status model.DeviceStatus) error

	// List returns devices ordered from most to least recently seen
	List(ctx context.Context, filter *DeviceFilter) ([]*model.DiscoveredDevice, error)
	Count(ctx context.Context) int
	Clear(ctx context.Context)
}

// DeviceFilter narrows List results
type DeviceFilter struct {
	Status  *model.DeviceStatus
	MinRSSI *int
	Limit   int
}
