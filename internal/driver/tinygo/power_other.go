// internal/driver/tinygo/power_other.go
//go:build !linux

package tinygo

import "tinygo.org/x/bluetooth"

// adapterPowered is unknown where the stack exposes no power state; readiness
// then falls back to Enable and scan errors.
func adapterPowered(*bluetooth.Adapter) (powered, known bool) {
	return false, false
}
