// internal/model/device.go
package model

import (
	"time"

	"github.com/google/uuid"

	"ble-discovery-service/pkg/driver"
)

// DeviceStatus represents the connection state of a discovered device
type DeviceStatus string

const (
	DeviceStatusAdvertising  DeviceStatus = "ADVERTISING"
	DeviceStatusConnected    DeviceStatus = "CONNECTED"
	DeviceStatusDisconnected DeviceStatus = "DISCONNECTED"
)

// DiscoveredDevice represents a peripheral seen by the radio
type DiscoveredDevice struct {
	Address           string       `json:"address"`
	Name              string       `json:"name,omitempty"`
	RSSI              int          `json:"rssi"`
	AdvertisementData []byte       `json:"advertisement_data,omitempty"`
	Status            DeviceStatus `json:"status"`
	FirstSeen         time.Time    `json:"first_seen"`
	LastSeen          time.Time    `json:"last_seen"`
	SeenCount         int          `json:"seen_count"`
}

// NewDiscoveredDevice creates a device record from its first advertisement
func NewDiscoveredDevice(peripheral driver.Peripheral) *DiscoveredDevice {
	seenAt := peripheral.SeenAt
	if seenAt.IsZero() {
		seenAt = time.Now()
	}

	return &DiscoveredDevice{
		Address:           peripheral.Address,
		Name:              peripheral.Name,
		RSSI:              peripheral.RSSI,
		AdvertisementData: peripheral.AdvertisementData,
		Status:            DeviceStatusAdvertising,
		FirstSeen:         seenAt,
		LastSeen:          seenAt,
		SeenCount:         1,
	}
}

// Observe merges a later advertisement into the record. A peripheral that
// stops sending its local name keeps the last one seen.
func (d *DiscoveredDevice) Observe(peripheral driver.Peripheral) {
	seenAt := peripheral.SeenAt
	if seenAt.IsZero() {
		seenAt = time.Now()
	}

	if peripheral.Name != "" {
		d.Name = peripheral.Name
	}
	d.RSSI = peripheral.RSSI
	if len(peripheral.AdvertisementData) > 0 {
		d.AdvertisementData = peripheral.AdvertisementData
	}
	d.LastSeen = seenAt
	d.SeenCount++
}

// SuspensionLease is a handle to one outstanding discovery suspension
type SuspensionLease struct {
	ID        uuid.UUID `json:"id"`
	Reason    string    `json:"reason"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
