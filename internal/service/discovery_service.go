// internal/service/discovery_service.go
package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ble-discovery-service/internal/config"
	"ble-discovery-service/internal/discovery"
	"ble-discovery-service/internal/model"
	"ble-discovery-service/internal/repository"
	"ble-discovery-service/internal/utils"
	"ble-discovery-service/pkg/driver"
)

// ErrLeaseNotFound is returned when resuming an unknown or already released lease
var ErrLeaseNotFound = errors.New("suspension lease not found")

const eventSource = "discovery-service"

// EventPublisher receives events produced by the discovery service
type EventPublisher interface {
	Publish(event model.Event)
}

// DiscoveryService exposes the scan controller to remote callers. It turns
// anonymous Suspend/Resume pairs into named leases, keeps the recently seen
// devices and publishes discovery events.
type DiscoveryService struct {
	controller       *discovery.ScanController
	radio            driver.Radio
	deviceRepo       repository.DeviceRepository
	publisher        EventPublisher
	config           *config.Config
	logger           *utils.ServiceLogger
	peripheralLogger *utils.PeripheralLogger

	mu               sync.Mutex
	leases           map[uuid.UUID]*model.SuspensionLease
	connectionLeases map[string]uuid.UUID

	unsubscribe func()
}

// NewDiscoveryService creates a discovery service and subscribes it to the
// controller's discovered peripherals.
func NewDiscoveryService(
	controller *discovery.ScanController,
	radio driver.Radio,
	deviceRepo repository.DeviceRepository,
	publisher EventPublisher,
	config *config.Config,
	logger *zap.Logger,
) *DiscoveryService {
	ds := &DiscoveryService{
		controller:       controller,
		radio:            radio,
		deviceRepo:       deviceRepo,
		publisher:        publisher,
		config:           config,
		logger:           utils.NewServiceLogger(logger, "discovery-service"),
		peripheralLogger: utils.NewPeripheralLogger(logger),
		leases:           make(map[uuid.UUID]*model.SuspensionLease),
		connectionLeases: make(map[string]uuid.UUID),
	}

	ds.unsubscribe = controller.Subscribe(ds.onDiscovered)
	radio.SetConnectionHandler(ds.HandleConnection)

	return ds
}

// StatePublisher returns a controller state listener that publishes every
// state change as a scan state event.
func StatePublisher(publisher EventPublisher) discovery.StateListener {
	return func(state discovery.ControllerState) {
		publisher.Publish(model.NewEvent(model.EventScanStateChanged, eventSource, model.ScanStateEventData{
			Desired:      state.Desired,
			Scanning:     state.Scanning,
			Suspensions:  state.Suspensions,
			RetryPending: state.RetryPending,
		}))
	}
}

// StartDiscovery requests discovery
func (ds *DiscoveryService) StartDiscovery() {
	ds.logger.Info("Discovery start requested")
	ds.controller.Start()
}

// StopDiscovery withdraws the discovery request
func (ds *DiscoveryService) StopDiscovery() {
	ds.logger.Info("Discovery stop requested")
	ds.controller.Stop()
}

// Suspend pauses discovery until the returned lease is resumed
func (ds *DiscoveryService) Suspend(reason string) *model.SuspensionLease {
	return ds.suspend(reason, "")
}

func (ds *DiscoveryService) suspend(reason, address string) *model.SuspensionLease {
	if reason == "" {
		reason = "unspecified"
	}

	lease := &model.SuspensionLease{
		ID:        uuid.New(),
		Reason:    reason,
		Address:   address,
		CreatedAt: time.Now(),
	}

	ds.mu.Lock()
	if address != "" {
		// One lease per connected address
		if _, held := ds.connectionLeases[address]; held {
			ds.mu.Unlock()
			return nil
		}
		ds.connectionLeases[address] = lease.ID
	}
	ds.leases[lease.ID] = lease
	ds.mu.Unlock()

	ds.controller.Suspend()

	ds.logger.Info("Discovery suspended",
		zap.String("lease_id", lease.ID.String()),
		zap.String("reason", reason),
	)
	ds.publish(model.EventSuspensionChanged, model.SuspensionEventData{Lease: *lease})

	copied := *lease
	return &copied
}

// Resume releases a suspension lease. Each lease can be released once.
func (ds *DiscoveryService) Resume(id uuid.UUID) error {
	ds.mu.Lock()
	lease, ok := ds.leases[id]
	if ok {
		delete(ds.leases, id)
		if lease.Address != "" {
			delete(ds.connectionLeases, lease.Address)
		}
	}
	ds.mu.Unlock()

	if !ok {
		return ErrLeaseNotFound
	}

	ds.controller.Resume()

	ds.logger.Info("Discovery suspension released",
		zap.String("lease_id", id.String()),
		zap.String("reason", lease.Reason),
	)
	ds.publish(model.EventSuspensionChanged, model.SuspensionEventData{Lease: *lease, Released: true})

	return nil
}

// ListSuspensions returns the outstanding leases, oldest first
func (ds *DiscoveryService) ListSuspensions() []*model.SuspensionLease {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	leases := make([]*model.SuspensionLease, 0, len(ds.leases))
	for _, lease := range ds.leases {
		copied := *lease
		leases = append(leases, &copied)
	}

	sort.Slice(leases, func(i, j int) bool {
		return leases[i].CreatedAt.Before(leases[j].CreatedAt)
	})
	return leases
}

// Status returns the controller and driver state
func (ds *DiscoveryService) Status(ctx context.Context) *ScanStatus {
	state := ds.controller.State()

	ds.mu.Lock()
	activeLeases := len(ds.leases)
	ds.mu.Unlock()

	return &ScanStatus{
		Desired:       state.Desired,
		Scanning:      state.Scanning,
		Suspensions:   state.Suspensions,
		RetryPending:  state.RetryPending,
		Driver:        ds.radio.Name(),
		DriverReady:   ds.controller.RadioReady(),
		ActiveLeases:  activeLeases,
		CachedDevices: ds.deviceRepo.Count(ctx),
		Stats:         ds.controller.Stats(),
	}
}

// RecentDevices returns the recently seen devices, newest first
func (ds *DiscoveryService) RecentDevices(ctx context.Context, filter *repository.DeviceFilter) ([]*model.DiscoveredDevice, error) {
	return ds.deviceRepo.List(ctx, filter)
}

// GetDevice returns one recently seen device
func (ds *DiscoveryService) GetDevice(ctx context.Context, address string) (*model.DiscoveredDevice, error) {
	return ds.deviceRepo.GetByAddress(ctx, address)
}

// DriverReady reports whether the radio can scan
func (ds *DiscoveryService) DriverReady() bool {
	return ds.controller.RadioReady()
}

// HandleConnection reacts to a central connecting to or leaving a peripheral.
// With suspend_on_connect every connected address holds one suspension lease
// until it disconnects.
func (ds *DiscoveryService) HandleConnection(address string, connected bool) {
	ds.peripheralLogger.LogConnection(address, connected)

	ctx := context.Background()
	status := model.DeviceStatusDisconnected
	eventType := model.EventDeviceDisconnected
	if connected {
		status = model.DeviceStatusConnected
		eventType = model.EventDeviceConnected
	}
	if err := ds.deviceRepo.UpdateStatus(ctx, address, status); err != nil && !errors.Is(err, repository.ErrDeviceNotFound) {
		ds.logger.Warn("Failed to update device status", zap.String("address", address), zap.Error(err))
	}
	ds.publish(eventType, model.ConnectionEventData{Address: address, Connected: connected})

	if !ds.config.Scan.SuspendOnConnect {
		return
	}

	if connected {
		ds.suspend("connection", address)
		return
	}

	ds.mu.Lock()
	id, held := ds.connectionLeases[address]
	ds.mu.Unlock()
	if !held {
		return
	}

	if err := ds.Resume(id); err != nil && !errors.Is(err, ErrLeaseNotFound) {
		ds.logger.Warn("Failed to resume after disconnect", zap.String("address", address), zap.Error(err))
	}
}

// Close releases the controller subscription
func (ds *DiscoveryService) Close() {
	if ds.unsubscribe != nil {
		ds.unsubscribe()
	}
}

func (ds *DiscoveryService) onDiscovered(peripheral driver.Peripheral) {
	device, err := ds.deviceRepo.Upsert(context.Background(), peripheral)
	if err != nil {
		ds.logger.Warn("Ignoring peripheral", zap.String("address", peripheral.Address), zap.Error(err))
		return
	}

	ds.peripheralLogger.LogDiscovered(device.Address, device.Name, device.RSSI)
	ds.publish(model.EventPeripheralDiscovered, device)
}

func (ds *DiscoveryService) publish(eventType model.EventType, data interface{}) {
	if ds.publisher == nil {
		return
	}
	ds.publisher.Publish(model.NewEvent(eventType, eventSource, data))
}

// ScanStatus represents the discovery status returned to API callers
type ScanStatus struct {
	Desired       bool                      `json:"desired"`
	Scanning      bool                      `json:"scanning"`
	Suspensions   int                       `json:"suspensions"`
	RetryPending  bool                      `json:"retry_pending"`
	Driver        string                    `json:"driver"`
	DriverReady   bool                      `json:"driver_ready"`
	ActiveLeases  int                       `json:"active_leases"`
	CachedDevices int                       `json:"cached_devices"`
	Stats         discovery.ControllerStats `json:"stats"`
}
