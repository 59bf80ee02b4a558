// pkg/driver/interfaces.go
package driver

import "context"

// RadioDriver is the capability set the scan controller needs from a BLE radio stack.
//
// StartScanning and StopScanning are fire-and-forget: the outcome is reported
// later through EventHandler.OnScanStarted / OnScanStopped. Implementations must
// deliver notifications from their own goroutines and never synchronously from
// inside StartScanning or StopScanning.
type RadioDriver interface {
	// Scan control
	StartScanning()
	StopScanning()

	// Ready reports whether the radio is powered on and able to scan.
	Ready() bool

	// Event handling
	SetEventHandler(handler EventHandler)
}

// Radio is a RadioDriver with an explicit lifecycle, as built by the driver registry.
type Radio interface {
	RadioDriver

	// Name returns the registry name of the driver
	Name() string

	// Open brings the radio up. Readiness may be reached asynchronously after Open returns.
	Open(ctx context.Context) error

	// Connection events
	SetConnectionHandler(handler ConnectionHandler)

	// Cleanup
	Close() error
}

// EventHandler receives asynchronous radio notifications
type EventHandler interface {
	OnDiscovered(peripheral Peripheral)
	OnScanStarted()
	OnScanStopped()
}

// ConnectionHandler is called whenever a peripheral connects or disconnects
type ConnectionHandler func(address string, connected bool)
