// pkg/driver/types.go
package driver

import "time"

// Peripheral is a single discovery record reported by the radio. It is passed
// through the scan controller unmodified.
type Peripheral struct {
	Address           string    `json:"address"`
	Name              string    `json:"name,omitempty"`
	RSSI              int       `json:"rssi"`
	AdvertisementData []byte    `json:"advertisement_data,omitempty"`
	SeenAt            time.Time `json:"seen_at"`
}

// DisplayName returns the advertised local name, or the address if the
// peripheral did not advertise one.
func (p Peripheral) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Address
}
