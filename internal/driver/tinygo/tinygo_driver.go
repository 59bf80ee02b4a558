// internal/driver/tinygo/tinygo_driver.go
package tinygo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"ble-discovery-service/pkg/driver"
)

// DriverName is the registry name of the tinygo bluetooth driver
const DriverName = "tinygo"

const (
	defaultEnableInterval = 2 * time.Second
	// A Scan call still blocked after this delay has registered with the stack.
	defaultSettleDelay       = 250 * time.Millisecond
	defaultStopRetryInterval = 20 * time.Millisecond
	defaultStopTimeout       = 5 * time.Second
	defaultCloseTimeout      = 10 * time.Second
)

// Adapter is the part of bluetooth.Adapter the driver uses
type Adapter interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
	SetConnectHandler(handler func(device bluetooth.Device, connected bool))

	// Powered reports the adapter power state. known is false when the
	// platform cannot tell.
	Powered() (powered, known bool)
}

type systemAdapter struct {
	*bluetooth.Adapter
}

func (a systemAdapter) Powered() (bool, bool) {
	return adapterPowered(a.Adapter)
}

// Driver adapts a tinygo bluetooth.Adapter to driver.Radio.
//
// bluetooth.Adapter.Scan blocks for the lifetime of a scan, so every scan runs
// on its own goroutine. Scan-started is reported once the scan delivered a
// result or Scan has been blocked for the settle delay; scan-stopped is only
// reported for a scan that was reported started.
//
// StopScan fails until Scan has registered with the stack, so a stop request
// keeps retrying StopScan until it succeeds, the scan ends or the stop
// timeout expires.
type Driver struct {
	adapter           Adapter
	enableInterval    time.Duration
	settleDelay       time.Duration
	stopRetryInterval time.Duration
	stopTimeout       time.Duration
	closeTimeout      time.Duration
	logger            *zap.Logger

	ready atomic.Bool

	// stopMu orders StopScan attempts against the end of a scan, so a stale
	// stop can never hit the next scan.
	stopMu sync.Mutex

	mu          sync.Mutex
	handler     driver.EventHandler
	connHandler driver.ConnectionHandler
	run         *scanRun
	closed      bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// scanRun is one Scan call
type scanRun struct {
	handler  driver.EventHandler
	done     chan struct{}
	stopping atomic.Bool

	mu       sync.Mutex
	started  bool
	finished bool
}

// NewDriver creates a driver for adapter. enableInterval is the delay between
// two readiness checks of the adapter.
func NewDriver(adapter *bluetooth.Adapter, enableInterval time.Duration, logger *zap.Logger) *Driver {
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}
	return newDriver(systemAdapter{adapter}, enableInterval, logger)
}

func newDriver(adapter Adapter, enableInterval time.Duration, logger *zap.Logger) *Driver {
	if enableInterval <= 0 {
		enableInterval = defaultEnableInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{
		adapter:           adapter,
		enableInterval:    enableInterval,
		settleDelay:       defaultSettleDelay,
		stopRetryInterval: defaultStopRetryInterval,
		stopTimeout:       defaultStopTimeout,
		closeTimeout:      defaultCloseTimeout,
		logger:            logger.With(zap.String("component", "tinygo-driver")),
	}
}

// Name returns the registry name
func (d *Driver) Name() string {
	return DriverName
}

// Open installs the connect handler and starts watching the adapter in the
// background. The driver reports Ready once the adapter is enabled and powered.
func (d *Driver) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("driver %s is closed", DriverName)
	}
	if d.cancel != nil {
		return fmt.Errorf("driver %s already open", DriverName)
	}

	d.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		d.mu.Lock()
		h := d.connHandler
		d.mu.Unlock()

		if h != nil {
			h(device.Address.String(), connected)
		}
	})

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.enableLoop(runCtx)

	return nil
}

// enableLoop enables the adapter while it is not ready and re-checks its
// power state while it is.
func (d *Driver) enableLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.enableInterval)
	defer ticker.Stop()

	for {
		d.refreshReadiness()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Driver) refreshReadiness() {
	if !d.ready.Load() {
		if err := d.adapter.Enable(); err != nil {
			d.logger.Debug("BLE adapter not ready", zap.Error(err))
			return
		}
	}

	powered, known := d.adapter.Powered()
	ready := powered || !known

	switch wasReady := d.ready.Swap(ready); {
	case ready && !wasReady:
		d.logger.Info("BLE adapter enabled")
	case !ready && wasReady:
		d.logger.Warn("BLE adapter powered off")
	case !ready:
		d.logger.Debug("BLE adapter enabled but powered off")
	}
}

// Ready reports whether the adapter is enabled and powered
func (d *Driver) Ready() bool {
	return d.ready.Load()
}

// SetEventHandler sets the receiver of scan notifications
func (d *Driver) SetEventHandler(handler driver.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

// SetConnectionHandler sets the receiver of connection events
func (d *Driver) SetConnectionHandler(handler driver.ConnectionHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connHandler = handler
}

// StartScanning starts a scan goroutine unless one is already running
func (d *Driver) StartScanning() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.run != nil || d.closed || !d.ready.Load() {
		return
	}
	run := &scanRun{handler: d.handler, done: make(chan struct{})}
	d.run = run

	d.wg.Add(1)
	go d.scan(run)
}

func (d *Driver) scan(run *scanRun) {
	defer d.wg.Done()

	settle := time.AfterFunc(d.settleDelay, func() {
		if !run.stopping.Load() {
			run.confirm()
		}
	})

	err := d.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		// Runs on the Scan goroutine, so StopScan cannot miss the registration.
		if run.stopping.Load() {
			d.adapter.StopScan()
			return
		}
		run.confirm()
		if run.handler != nil {
			run.handler.OnDiscovered(toPeripheral(result))
		}
	})
	settle.Stop()
	if err != nil {
		d.logger.Warn("BLE scan ended with error", zap.Error(err))
		// Force the enable loop to re-check the adapter before the next scan.
		d.ready.Store(false)
	}

	d.stopMu.Lock()
	close(run.done)
	d.stopMu.Unlock()

	d.mu.Lock()
	d.run = nil
	d.mu.Unlock()

	run.finish()
}

// StopScanning stops the running scan, if any. The stop is carried out in the
// background.
func (d *Driver) StopScanning() {
	d.mu.Lock()
	defer d.mu.Unlock()

	run := d.run
	if run == nil || !run.stopping.CompareAndSwap(false, true) {
		return
	}

	d.wg.Add(1)
	go d.stopLoop(run)
}

func (d *Driver) stopLoop(run *scanRun) {
	defer d.wg.Done()

	deadline := time.NewTimer(d.stopTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(d.stopRetryInterval)
	defer ticker.Stop()

	for {
		stopped, err := d.tryStop(run)
		if stopped {
			return
		}

		select {
		case <-run.done:
			return
		case <-deadline.C:
			d.logger.Warn("BLE scan did not stop in time",
				zap.Duration("timeout", d.stopTimeout),
				zap.Error(err),
			)
			return
		case <-ticker.C:
		}
	}
}

// tryStop calls StopScan unless run already ended
func (d *Driver) tryStop(run *scanRun) (bool, error) {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()

	select {
	case <-run.done:
		return true, nil
	default:
	}

	if err := d.adapter.StopScan(); err != nil {
		return false, err
	}
	return true, nil
}

// Close stops scanning and the enable loop. It waits at most the close
// timeout for the scan goroutine; a scan the stack never released is
// reported as an error and left behind.
func (d *Driver) Close() error {
	d.StopScanning()

	d.mu.Lock()
	d.closed = true
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(d.closeTimeout):
		return fmt.Errorf("driver %s: scan did not stop within %s", DriverName, d.closeTimeout)
	}
}

// confirm reports scan-started once
func (r *scanRun) confirm() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started || r.finished {
		return
	}
	r.started = true
	if r.handler != nil {
		r.handler.OnScanStarted()
	}
}

// finish reports scan-stopped if scan-started was reported
func (r *scanRun) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished = true
	if r.started && r.handler != nil {
		r.handler.OnScanStopped()
	}
}

func toPeripheral(result bluetooth.ScanResult) driver.Peripheral {
	return driver.Peripheral{
		Address:           result.Address.String(),
		Name:              result.LocalName(),
		RSSI:              int(result.RSSI),
		AdvertisementData: result.Bytes(),
		SeenAt:            time.Now(),
	}
}
