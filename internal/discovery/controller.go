// internal/discovery/controller.go
package discovery

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"ble-discovery-service/pkg/driver"
)

// DefaultRetryInterval is the delay between two reconciliation attempts
const DefaultRetryInterval = 1000 * time.Millisecond

// DiscoveredHandler receives every peripheral reported by the radio
type DiscoveredHandler func(peripheral driver.Peripheral)

// StateListener is called after an operation or radio notification changed
// the controller state. Listeners run outside the controller lock, so two
// concurrent changes may be observed out of order; State is authoritative.
type StateListener func(state ControllerState)

// ControllerState is a point-in-time view of the controller
type ControllerState struct {
	Desired      bool `json:"desired"`
	Scanning     bool `json:"scanning"`
	Suspensions  int  `json:"suspensions"`
	RetryPending bool `json:"retry_pending"`
}

// ControllerStats counts reconciliation decisions and radio traffic
type ControllerStats struct {
	Reconciliations  uint64 `json:"reconciliations"`
	StartRequests    uint64 `json:"start_requests"`
	StopRequests     uint64 `json:"stop_requests"`
	RetriesScheduled uint64 `json:"retries_scheduled"`
	Discovered       uint64 `json:"discovered"`
}

// ScanController keeps BLE discovery running while it is wanted, not
// suspended and the radio is ready.
//
// Callers express intent with Start and Stop and pause discovery with
// reentrant Suspend/Resume pairs. The radio's own notifications are the only
// source of truth for whether a scan is actually running; a retry timer
// re-evaluates the situation every retry interval while scanning is wanted but
// not confirmed.
type ScanController struct {
	radio         driver.RadioDriver
	scheduler     Scheduler
	retryInterval time.Duration
	logger        *zap.Logger
	stateListener StateListener

	mu             sync.Mutex
	desired        bool
	driverScanning bool
	suspensions    int
	retry          Timer
	retrySeq       uint64
	closed         bool
	stats          ControllerStats

	subMu       sync.RWMutex
	subscribers []subscriber
	nextSubID   uint64
}

type subscriber struct {
	id      uint64
	handler DiscoveredHandler
}

// Option configures a ScanController
type Option func(*ScanController)

// WithScheduler replaces the scheduler used for retries
func WithScheduler(scheduler Scheduler) Option {
	return func(c *ScanController) {
		c.scheduler = scheduler
	}
}

// WithRetryInterval overrides DefaultRetryInterval
func WithRetryInterval(interval time.Duration) Option {
	return func(c *ScanController) {
		if interval > 0 {
			c.retryInterval = interval
		}
	}
}

// WithStateListener registers a listener for state changes
func WithStateListener(listener StateListener) Option {
	return func(c *ScanController) {
		c.stateListener = listener
	}
}

// NewScanController creates a controller bound to radio and registers itself
// as the radio's event handler.
func NewScanController(radio driver.RadioDriver, logger *zap.Logger, opts ...Option) *ScanController {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ScanController{
		radio:         radio,
		scheduler:     SystemScheduler,
		retryInterval: DefaultRetryInterval,
		logger:        logger.With(zap.String("component", "scan-controller")),
	}
	for _, opt := range opts {
		opt(c)
	}

	radio.SetEventHandler(radioEvents{c})
	return c
}

// Start requests discovery. It is a no-op if discovery is already wanted.
func (c *ScanController) Start() {
	c.mutate(func() {
		if c.desired || c.closed {
			return
		}
		c.desired = true
		c.logger.Info("BLE discovery requested")
		c.reconcile("start")
	})
}

// Stop withdraws the discovery request and always asks the radio to stop,
// regardless of suspensions or readiness. It is a no-op if discovery is not wanted.
func (c *ScanController) Stop() {
	c.mutate(func() {
		if !c.desired {
			return
		}
		c.desired = false
		c.cancelRetry()
		c.requestStop()
	})
}

// Suspend pauses discovery. Suspensions nest; the radio is only asked to stop
// on the first one.
func (c *ScanController) Suspend() {
	c.mutate(func() {
		c.suspensions++
		c.logger.Info("Changed BLE discovery suspension counter", zap.Int("suspensions", c.suspensions))

		if c.suspensions == 1 && !c.closed {
			c.requestStop()
		}
	})
}

// Resume lifts one suspension. Discovery is reconciled once the last
// suspension is lifted. Resume without a matching Suspend is a no-op.
func (c *ScanController) Resume() {
	c.mutate(func() {
		if c.suspensions == 0 {
			return
		}
		c.suspensions--
		c.logger.Info("Changed BLE discovery suspension counter", zap.Int("suspensions", c.suspensions))

		if c.suspensions == 0 {
			c.reconcile("resume")
		}
	})
}

// IsScanning reports the radio-confirmed scan state, not the caller's intent.
func (c *ScanController) IsScanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.driverScanning
}

// State returns a snapshot of the controller state
func (c *ScanController) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *ScanController) stateLocked() ControllerState {
	return ControllerState{
		Desired:      c.desired,
		Scanning:     c.driverScanning,
		Suspensions:  c.suspensions,
		RetryPending: c.retry != nil,
	}
}

// mutate runs fn under the state lock and notifies the state listener if the
// state changed.
func (c *ScanController) mutate(fn func()) {
	c.mu.Lock()
	before := c.stateLocked()
	fn()
	after := c.stateLocked()
	c.mu.Unlock()

	if c.stateListener != nil && before != after {
		c.stateListener(after)
	}
}

// Stats returns a snapshot of the decision counters
func (c *ScanController) Stats() ControllerStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// RadioReady reports the radio's live readiness
func (c *ScanController) RadioReady() bool {
	return c.radio.Ready()
}

// Subscribe registers handler for discovered peripherals. The returned
// function removes the subscription.
func (c *ScanController) Subscribe(handler DiscoveredHandler) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscriber{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(id) })
	}
}

func (c *ScanController) unsubscribe(id uint64) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for i, s := range c.subscribers {
		if s.id == id {
			c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
			return
		}
	}
}

// Close stops discovery if it is wanted and cancels the pending retry. After
// Close the radio is never asked to start or stop again.
func (c *ScanController) Close() error {
	c.mutate(func() {
		if c.closed {
			return
		}
		if c.desired {
			c.desired = false
			c.requestStop()
		}
		c.cancelRetry()
		c.closed = true
	})
	return nil
}

// reconcile decides whether to ask the radio to scan. Callers hold c.mu.
func (c *ScanController) reconcile(trigger string) {
	c.stats.Reconciliations++

	if !c.desired || c.closed {
		return
	}

	if c.driverScanning {
		return
	}

	if c.suspensions > 0 {
		c.logger.Debug("BLE discovery suspended, deferring scan",
			zap.String("trigger", trigger),
			zap.Int("suspensions", c.suspensions),
		)
		c.scheduleRetry()
		return
	}

	if c.radio.Ready() {
		c.logger.Info("Starting to scan for BLE devices", zap.String("trigger", trigger))
		c.stats.StartRequests++
		c.radio.StartScanning()
	} else {
		c.logger.Debug("BLE radio not ready, deferring scan", zap.String("trigger", trigger))
	}

	c.scheduleRetry()
}

// requestStop asks the radio to stop scanning. Callers hold c.mu.
func (c *ScanController) requestStop() {
	c.logger.Info("Stopping BLE device discovery")
	c.stats.StopRequests++
	c.radio.StopScanning()
}

// scheduleRetry arms the retry timer unless one is already pending. Callers hold c.mu.
func (c *ScanController) scheduleRetry() {
	if c.retry != nil || c.closed {
		return
	}

	c.retrySeq++
	seq := c.retrySeq
	c.retry = c.scheduler.AfterFunc(c.retryInterval, func() {
		c.onRetry(seq)
	})
	c.stats.RetriesScheduled++
}

// cancelRetry disarms the pending retry. A callback that already fired is
// discarded by onRetry because its sequence number no longer matches.
func (c *ScanController) cancelRetry() {
	if c.retry == nil {
		return
	}
	c.retry.Stop()
	c.retry = nil
	c.retrySeq++
}

func (c *ScanController) onRetry(seq uint64) {
	c.mutate(func() {
		if seq != c.retrySeq || c.retry == nil {
			return
		}
		c.retry = nil
		c.reconcile("retry")
	})
}

func (c *ScanController) onDiscovered(peripheral driver.Peripheral) {
	c.mu.Lock()
	c.stats.Discovered++
	c.mu.Unlock()

	c.subMu.RLock()
	subscribers := make([]subscriber, len(c.subscribers))
	copy(subscribers, c.subscribers)
	c.subMu.RUnlock()

	for _, s := range subscribers {
		s.handler(peripheral)
	}
}

func (c *ScanController) onScanStarted() {
	c.mutate(func() {
		c.logger.Info("Started scanning for BLE devices")
		c.driverScanning = true
	})
}

func (c *ScanController) onScanStopped() {
	c.mutate(func() {
		c.logger.Info("Stopped scanning for BLE devices")
		c.driverScanning = false

		// Some radios stop scanning by themselves once a connection is
		// established. Restart on the next retry tick, never immediately.
		if c.desired {
			c.scheduleRetry()
		}
	})
}

// radioEvents keeps the notification entry points off the public API
type radioEvents struct {
	c *ScanController
}

func (e radioEvents) OnDiscovered(peripheral driver.Peripheral) { e.c.onDiscovered(peripheral) }
func (e radioEvents) OnScanStarted()                            { e.c.onScanStarted() }
func (e radioEvents) OnScanStopped()                            { e.c.onScanStopped() }
