// Package discoverytest provides a fake radio and a manually driven scheduler
// for exercising the scan controller without hardware or wall-clock time.
package discoverytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"ble-discovery-service/internal/discovery"
	"ble-discovery-service/pkg/driver"
)

// FakeRadio records scan requests and lets tests inject radio notifications.
type FakeRadio struct {
	mu          sync.Mutex
	ready       bool
	starts      int
	stops       int
	handler     driver.EventHandler
	connHandler driver.ConnectionHandler
}

// NewFakeRadio returns a radio that is not ready yet
func NewFakeRadio() *FakeRadio {
	return &FakeRadio{}
}

func (r *FakeRadio) Name() string { return "fake" }

func (r *FakeRadio) Open(ctx context.Context) error { return nil }

func (r *FakeRadio) Close() error { return nil }

func (r *FakeRadio) StartScanning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
}

func (r *FakeRadio) StopScanning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

func (r *FakeRadio) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *FakeRadio) SetEventHandler(handler driver.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

func (r *FakeRadio) SetConnectionHandler(handler driver.ConnectionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connHandler = handler
}

// SetReady simulates the radio powering on or off
func (r *FakeRadio) SetReady(ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = ready
}

// StartCount returns the number of StartScanning calls
func (r *FakeRadio) StartCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

// StopCount returns the number of StopScanning calls
func (r *FakeRadio) StopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

// EmitDiscovered delivers a discovery notification
func (r *FakeRadio) EmitDiscovered(peripheral driver.Peripheral) {
	if h := r.eventHandler(); h != nil {
		h.OnDiscovered(peripheral)
	}
}

// EmitScanStarted delivers a scan-started notification
func (r *FakeRadio) EmitScanStarted() {
	if h := r.eventHandler(); h != nil {
		h.OnScanStarted()
	}
}

// EmitScanStopped delivers a scan-stopped notification
func (r *FakeRadio) EmitScanStopped() {
	if h := r.eventHandler(); h != nil {
		h.OnScanStopped()
	}
}

// EmitConnection delivers a connection event
func (r *FakeRadio) EmitConnection(address string, connected bool) {
	r.mu.Lock()
	h := r.connHandler
	r.mu.Unlock()
	if h != nil {
		h(address, connected)
	}
}

func (r *FakeRadio) eventHandler() driver.EventHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

// ManualScheduler is a discovery.Scheduler whose clock only moves on Advance.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

// NewManualScheduler returns a scheduler at time zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc schedules f to run once the clock has advanced by d
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) discovery.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTimer{s: s, at: s.now + d, seq: s.seq, fn: f}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock forward by d, running every due function in
// deadline order. Functions scheduled by a running function fire within the
// same call if they fall due before the new time.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		sort.SliceStable(s.tasks, func(i, j int) bool {
			if s.tasks[i].at == s.tasks[j].at {
				return s.tasks[i].seq < s.tasks[j].seq
			}
			return s.tasks[i].at < s.tasks[j].at
		})
		if len(s.tasks) == 0 || s.tasks[0].at > target {
			s.now = target
			s.mu.Unlock()
			return
		}
		next := s.tasks[0]
		s.tasks = s.tasks[1:]
		s.now = next.at
		s.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of scheduled, not yet fired functions
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for i, task := range t.s.tasks {
		if task == t {
			t.s.tasks = append(t.s.tasks[:i], t.s.tasks[i+1:]...)
			t.stopped = true
			return true
		}
	}
	return false
}
