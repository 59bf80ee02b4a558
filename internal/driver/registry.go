// internal/driver/registry.go
package driver

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ble-discovery-service/internal/config"
	"ble-discovery-service/pkg/driver"
)

// RadioFactory creates a radio driver from the scan configuration
type RadioFactory func(cfg *config.ScanConfig, logger *zap.Logger) (driver.Radio, error)

// Registry manages radio driver registration and creation
type Registry struct {
	drivers map[string]RadioFactory
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewRegistry creates a new driver registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		drivers: make(map[string]RadioFactory),
		logger:  logger,
	}
}

// Register registers a driver factory under name
func (r *Registry) Register(name string, factory RadioFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drivers[name] = factory
	r.logger.Info("Driver registered", zap.String("driver", name))
}

// CreateRadio creates the radio registered under name
func (r *Registry) CreateRadio(name string, cfg *config.ScanConfig) (driver.Radio, error) {
	r.mu.RLock()
	factory, exists := r.drivers[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no driver registered with name %q", name)
	}

	radio, err := factory(cfg, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver %q: %w", name, err)
	}
	return radio, nil
}

// ListDrivers returns the registered driver names, sorted
func (r *Registry) ListDrivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSupported checks if a driver name is registered
func (r *Registry) IsSupported(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.drivers[name]
	return exists
}
