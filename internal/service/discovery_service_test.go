package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ble-discovery-service/internal/config"
	"ble-discovery-service/internal/discovery"
	"ble-discovery-service/internal/discovery/discoverytest"
	"ble-discovery-service/internal/model"
	"ble-discovery-service/internal/repository"
	"ble-discovery-service/pkg/driver"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(event model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(eventType model.EventType) []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var events []model.Event
	for _, e := range p.events {
		if e.Type == eventType {
			events = append(events, e)
		}
	}
	return events
}

type fixture struct {
	service    *DiscoveryService
	controller *discovery.ScanController
	radio      *discoverytest.FakeRadio
	scheduler  *discoverytest.ManualScheduler
	publisher  *recordingPublisher
}

func newFixture(t *testing.T, suspendOnConnect bool) *fixture {
	t.Helper()

	radio := discoverytest.NewFakeRadio()
	radio.SetReady(true)
	scheduler := discoverytest.NewManualScheduler()
	publisher := &recordingPublisher{}

	controller := discovery.NewScanController(radio, zap.NewNop(),
		discovery.WithScheduler(scheduler),
		discovery.WithStateListener(StatePublisher(publisher)),
	)

	repo, err := repository.NewDeviceRepository(16, zap.NewNop())
	require.NoError(t, err)

	cfg := &config.Config{Scan: config.ScanConfig{SuspendOnConnect: suspendOnConnect}}
	svc := NewDiscoveryService(controller, radio, repo, publisher, cfg, zap.NewNop())
	t.Cleanup(func() {
		svc.Close()
		controller.Close()
	})

	return &fixture{service: svc, controller: controller, radio: radio, scheduler: scheduler, publisher: publisher}
}

func TestDiscoveryService_StartStop(t *testing.T) {
	f := newFixture(t, false)

	f.service.StartDiscovery()
	assert.Equal(t, 1, f.radio.StartCount())
	assert.True(t, f.service.Status(context.Background()).Desired)

	f.service.StopDiscovery()
	assert.Equal(t, 1, f.radio.StopCount())
	assert.False(t, f.service.Status(context.Background()).Desired)
}

func TestDiscoveryService_SuspendLease(t *testing.T) {
	f := newFixture(t, false)
	f.service.StartDiscovery()

	lease := f.service.Suspend("pairing")
	require.NotNil(t, lease)
	assert.Equal(t, "pairing", lease.Reason)
	assert.Equal(t, 1, f.controller.State().Suspensions)
	assert.Len(t, f.service.ListSuspensions(), 1)

	require.NoError(t, f.service.Resume(lease.ID))
	assert.Equal(t, 0, f.controller.State().Suspensions)
	assert.Equal(t, 2, f.radio.StartCount())

	assert.ErrorIs(t, f.service.Resume(lease.ID), ErrLeaseNotFound, "a lease resumes at most once")
	assert.Equal(t, 0, f.controller.State().Suspensions)
}

func TestDiscoveryService_ResumeUnknownLease(t *testing.T) {
	f := newFixture(t, false)

	assert.ErrorIs(t, f.service.Resume(uuid.New()), ErrLeaseNotFound)
}

func TestDiscoveryService_SuspendDefaultsReason(t *testing.T) {
	f := newFixture(t, false)

	lease := f.service.Suspend("")
	assert.Equal(t, "unspecified", lease.Reason)
}

func TestDiscoveryService_SuspensionEvents(t *testing.T) {
	f := newFixture(t, false)

	lease := f.service.Suspend("maintenance")
	require.NoError(t, f.service.Resume(lease.ID))

	events := f.publisher.ofType(model.EventSuspensionChanged)
	require.Len(t, events, 2)
	assert.False(t, events[0].Data.(model.SuspensionEventData).Released)
	assert.True(t, events[1].Data.(model.SuspensionEventData).Released)
}

func TestDiscoveryService_CachesAndPublishesDiscoveries(t *testing.T) {
	f := newFixture(t, false)
	f.service.StartDiscovery()

	f.radio.EmitDiscovered(driver.Peripheral{Address: "AA:BB", Name: "Sensor", RSSI: -55})
	f.radio.EmitDiscovered(driver.Peripheral{Address: "CC:DD", RSSI: -80})

	devices, err := f.service.RecentDevices(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "CC:DD", devices[0].Address)

	events := f.publisher.ofType(model.EventPeripheralDiscovered)
	require.Len(t, events, 2)
	device := events[0].Data.(*model.DiscoveredDevice)
	assert.Equal(t, "Sensor", device.Name)

	status := f.service.Status(context.Background())
	assert.Equal(t, 2, status.CachedDevices)
	assert.Equal(t, uint64(2), status.Stats.Discovered)
}

func TestDiscoveryService_PublishesScanState(t *testing.T) {
	f := newFixture(t, false)

	f.service.StartDiscovery()
	f.radio.EmitScanStarted()

	events := f.publisher.ofType(model.EventScanStateChanged)
	require.Len(t, events, 2)
	last := events[1].Data.(model.ScanStateEventData)
	assert.True(t, last.Scanning)
	assert.True(t, last.Desired)
}

func TestDiscoveryService_Status(t *testing.T) {
	f := newFixture(t, false)
	f.service.StartDiscovery()
	f.service.Suspend("test")

	status := f.service.Status(context.Background())
	assert.Equal(t, "fake", status.Driver)
	assert.True(t, status.DriverReady)
	assert.True(t, status.Desired)
	assert.Equal(t, 1, status.Suspensions)
	assert.Equal(t, 1, status.ActiveLeases)
}

func TestDiscoveryService_SuspendOnConnect(t *testing.T) {
	f := newFixture(t, true)
	f.service.StartDiscovery()
	f.radio.EmitDiscovered(driver.Peripheral{Address: "AA:BB"})

	f.radio.EmitConnection("AA:BB", true)
	f.radio.EmitConnection("AA:BB", true)
	assert.Equal(t, 1, f.controller.State().Suspensions, "one suspension per connected address")
	assert.Equal(t, 1, f.radio.StopCount())

	device, err := f.service.GetDevice(context.Background(), "AA:BB")
	require.NoError(t, err)
	assert.Equal(t, model.DeviceStatusConnected, device.Status)

	f.radio.EmitConnection("EE:FF", true)
	assert.Equal(t, 2, f.controller.State().Suspensions)

	f.radio.EmitConnection("AA:BB", false)
	f.radio.EmitConnection("AA:BB", false)
	assert.Equal(t, 1, f.controller.State().Suspensions)

	f.radio.EmitConnection("EE:FF", false)
	assert.Equal(t, 0, f.controller.State().Suspensions)
	assert.Empty(t, f.service.ListSuspensions())
	assert.Equal(t, 2, f.radio.StartCount())
}

func TestDiscoveryService_ConnectWithoutSuspendOnConnect(t *testing.T) {
	f := newFixture(t, false)
	f.service.StartDiscovery()

	f.radio.EmitConnection("AA:BB", true)

	assert.Equal(t, 0, f.controller.State().Suspensions)
	assert.Len(t, f.publisher.ofType(model.EventDeviceConnected), 1)
}

func TestDiscoveryService_CloseUnsubscribes(t *testing.T) {
	f := newFixture(t, false)
	f.service.Close()

	f.radio.EmitDiscovered(driver.Peripheral{Address: "AA:BB"})

	devices, err := f.service.RecentDevices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, devices)
}
