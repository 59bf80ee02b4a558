// internal/driver/tinygo/power_linux.go
//go:build linux

package tinygo

import "tinygo.org/x/bluetooth"

// adapterPowered reads the BlueZ Powered property
func adapterPowered(adapter *bluetooth.Adapter) (powered, known bool) {
	switch adapter.State() {
	case bluetooth.AdapterStatePoweredOn:
		return true, true
	case bluetooth.AdapterStatePoweredOff:
		return false, true
	default:
		return false, false
	}
}
