// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventPeripheralDiscovered EventType = "PERIPHERAL_DISCOVERED"
	EventScanStateChanged     EventType = "SCAN_STATE_CHANGED"
	EventSuspensionChanged    EventType = "SUSPENSION_CHANGED"
	EventDeviceConnected      EventType = "DEVICE_CONNECTED"
	EventDeviceDisconnected   EventType = "DEVICE_DISCONNECTED"
)

// Event represents an event in the system
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates an event stamped with a fresh ID and the current time
func NewEvent(eventType EventType, source string, data interface{}) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// ScanStateEventData describes a change of the scan controller state
type ScanStateEventData struct {
	Desired      bool `json:"desired"`
	Scanning     bool `json:"scanning"`
	Suspensions  int  `json:"suspensions"`
	RetryPending bool `json:"retry_pending"`
}

// SuspensionEventData describes a suspension being taken or released
type SuspensionEventData struct {
	Lease    SuspensionLease `json:"lease"`
	Released bool            `json:"released"`
}

// ConnectionEventData describes a central connecting to or leaving a peripheral
type ConnectionEventData struct {
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
}
