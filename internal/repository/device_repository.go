// internal/repository/device_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"ble-discovery-service/internal/model"
	"ble-discovery-service/pkg/driver"
)

// ErrDeviceNotFound is returned when no device with the address is cached
var ErrDeviceNotFound = errors.New("device not found")

// deviceRepository implements DeviceRepository with a bounded LRU cache.
// Only the most recently seen devices are kept.
type deviceRepository struct {
	cache  *lru.Cache
	mu     sync.Mutex
	logger *zap.Logger
}

// NewDeviceRepository creates a device repository holding at most size devices
func NewDeviceRepository(size int, logger *zap.Logger) (DeviceRepository, error) {
	repo := &deviceRepository{
		logger: logger,
	}

	cache, err := lru.NewWithEvict(size, repo.onEvicted)
	if err != nil {
		return nil, fmt.Errorf("failed to create device cache: %w", err)
	}
	repo.cache = cache

	return repo, nil
}

func (r *deviceRepository) onEvicted(key interface{}, _ interface{}) {
	r.logger.Debug("Evicted device from cache", zap.Any("address", key))
}

// Upsert records an advertisement and returns a copy of the merged record
func (r *deviceRepository) Upsert(ctx context.Context, peripheral driver.Peripheral) (*model.DiscoveredDevice, error) {
	if peripheral.Address == "" {
		return nil, fmt.Errorf("peripheral address is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var device *model.DiscoveredDevice
	if value, ok := r.cache.Get(peripheral.Address); ok {
		device = value.(*model.DiscoveredDevice)
		device.Observe(peripheral)
	} else {
		device = model.NewDiscoveredDevice(peripheral)
		r.cache.Add(peripheral.Address, device)
	}

	copied := *device
	return &copied, nil
}

// GetByAddress retrieves a device without refreshing its recency
func (r *deviceRepository) GetByAddress(ctx context.Context, address string) (*model.DiscoveredDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, ok := r.cache.Peek(address)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, address)
	}

	copied := *value.(*model.DiscoveredDevice)
	return &copied, nil
}

// UpdateStatus sets the connection status of a cached device
func (r *deviceRepository) UpdateStatus(ctx context.Context, address string, status model.DeviceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, ok := r.cache.Peek(address)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, address)
	}

	value.(*model.DiscoveredDevice).Status = status
	return nil
}

// List returns cached devices, newest first
func (r *deviceRepository) List(ctx context.Context, filter *DeviceFilter) ([]*model.DiscoveredDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Keys are ordered oldest to newest
	keys := r.cache.Keys()
	devices := make([]*model.DiscoveredDevice, 0, len(keys))

	for i := len(keys) - 1; i >= 0; i-- {
		value, ok := r.cache.Peek(keys[i])
		if !ok {
			continue
		}
		device := value.(*model.DiscoveredDevice)

		if filter != nil {
			if filter.Status != nil && device.Status != *filter.Status {
				continue
			}
			if filter.MinRSSI != nil && device.RSSI < *filter.MinRSSI {
				continue
			}
		}

		copied := *device
		devices = append(devices, &copied)

		if filter != nil && filter.Limit > 0 && len(devices) >= filter.Limit {
			break
		}
	}

	return devices, nil
}

// Count returns the number of cached devices
func (r *deviceRepository) Count(ctx context.Context) int {
	return r.cache.Len()
}

// Clear removes every cached device
func (r *deviceRepository) Clear(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Purge()
	r.logger.Info("Device cache cleared")
}
