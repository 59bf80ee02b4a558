package tinygo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"ble-discovery-service/pkg/driver"
)

const waitFor = 2 * time.Second

var errNotScanning = errors.New("bluetooth: there is no scan in progress")

// fakeAdapter registers a scan only once registered is closed, the way BlueZ
// does after its discovery calls returned.
type fakeAdapter struct {
	registered chan struct{}

	mu        sync.Mutex
	powered   bool
	known     bool
	cancel    chan struct{}
	scans     int
	stopCalls int
}

func newFakeAdapter() *fakeAdapter {
	registered := make(chan struct{})
	close(registered)
	return &fakeAdapter{registered: registered, powered: true, known: true}
}

func (a *fakeAdapter) Enable() error { return nil }

func (a *fakeAdapter) SetConnectHandler(func(device bluetooth.Device, connected bool)) {}

func (a *fakeAdapter) Scan(func(*bluetooth.Adapter, bluetooth.ScanResult)) error {
	a.mu.Lock()
	a.scans++
	a.mu.Unlock()

	<-a.registered

	cancel := make(chan struct{})
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	<-cancel
	return nil
}

func (a *fakeAdapter) StopScan() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopCalls++
	if a.cancel == nil {
		return errNotScanning
	}
	close(a.cancel)
	a.cancel = nil
	return nil
}

func (a *fakeAdapter) Powered() (bool, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.powered, a.known
}

func (a *fakeAdapter) setPowered(powered bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.powered = powered
}

func (a *fakeAdapter) counts() (scans, stops int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scans, a.stopCalls
}

type recordingHandler struct {
	mu      sync.Mutex
	started int
	stopped int
}

func (h *recordingHandler) OnDiscovered(driver.Peripheral) {}

func (h *recordingHandler) OnScanStarted() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started++
}

func (h *recordingHandler) OnScanStopped() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped++
}

func (h *recordingHandler) counts() (started, stopped int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started, h.stopped
}

func newTestDriver(t *testing.T, adapter *fakeAdapter) (*Driver, *recordingHandler) {
	t.Helper()

	d := newDriver(adapter, 5*time.Millisecond, zap.NewNop())
	d.settleDelay = 20 * time.Millisecond
	d.stopRetryInterval = 2 * time.Millisecond
	d.stopTimeout = 500 * time.Millisecond
	d.closeTimeout = time.Second

	handler := &recordingHandler{}
	d.SetEventHandler(handler)

	require.NoError(t, d.Open(context.Background()))
	require.Eventually(t, d.Ready, waitFor, time.Millisecond)
	return d, handler
}

func (d *Driver) scanRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.run != nil
}

func TestDriver_ConfirmsAndStopsScan(t *testing.T) {
	adapter := newFakeAdapter()
	d, handler := newTestDriver(t, adapter)

	d.StartScanning()
	assert.Eventually(t, func() bool {
		started, _ := handler.counts()
		return started == 1
	}, waitFor, time.Millisecond)

	d.StopScanning()
	assert.Eventually(t, func() bool {
		_, stopped := handler.counts()
		return stopped == 1
	}, waitFor, time.Millisecond)
	assert.False(t, d.scanRunning())

	require.NoError(t, d.Close())
}

func TestDriver_StopBeforeScanRegistered(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.registered = make(chan struct{})
	d, handler := newTestDriver(t, adapter)

	d.StartScanning()
	require.Eventually(t, func() bool {
		scans, _ := adapter.counts()
		return scans == 1
	}, waitFor, time.Millisecond)

	d.StopScanning()
	require.Eventually(t, func() bool {
		_, stops := adapter.counts()
		return stops >= 2
	}, waitFor, time.Millisecond)
	assert.True(t, d.scanRunning())

	close(adapter.registered)
	assert.Eventually(t, func() bool { return !d.scanRunning() }, waitFor, time.Millisecond)

	started, stopped := handler.counts()
	assert.Zero(t, started)
	assert.Zero(t, stopped)
	require.NoError(t, d.Close())
}

func TestDriver_StartIgnoredWhileScanRuns(t *testing.T) {
	adapter := newFakeAdapter()
	d, _ := newTestDriver(t, adapter)

	d.StartScanning()
	d.StartScanning()
	require.Eventually(t, d.scanRunning, waitFor, time.Millisecond)

	scans, _ := adapter.counts()
	assert.Equal(t, 1, scans)
	require.NoError(t, d.Close())
}

func TestDriver_ReadinessFollowsPower(t *testing.T) {
	adapter := newFakeAdapter()
	d, _ := newTestDriver(t, adapter)

	adapter.setPowered(false)
	assert.Eventually(t, func() bool { return !d.Ready() }, waitFor, time.Millisecond)

	d.StartScanning()
	assert.False(t, d.scanRunning())

	adapter.setPowered(true)
	assert.Eventually(t, d.Ready, waitFor, time.Millisecond)
	require.NoError(t, d.Close())
}

func TestDriver_CloseIsBounded(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.registered = make(chan struct{})
	d, _ := newTestDriver(t, adapter)
	d.stopTimeout = 20 * time.Millisecond
	d.closeTimeout = 50 * time.Millisecond

	d.StartScanning()
	require.Eventually(t, func() bool {
		scans, _ := adapter.counts()
		return scans == 1
	}, waitFor, time.Millisecond)

	assert.Error(t, d.Close())

	close(adapter.registered)
	assert.Eventually(t, func() bool { return adapter.StopScan() == nil }, waitFor, time.Millisecond)
}
