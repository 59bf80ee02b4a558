package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ble-discovery-service/internal/config"
	"ble-discovery-service/internal/driver/noop"
	"ble-discovery-service/internal/driver/tinygo"
)

func TestRegisterDefaultDrivers(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	RegisterDefaultDrivers(registry, zap.NewNop())

	assert.Equal(t, []string{noop.DriverName, tinygo.DriverName}, registry.ListDrivers())
	assert.True(t, registry.IsSupported("tinygo"))
	assert.False(t, registry.IsSupported("bluez"))
}

func TestRegistry_CreateRadio(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	RegisterDefaultDrivers(registry, zap.NewNop())

	radio, err := registry.CreateRadio(noop.DriverName, &config.ScanConfig{})
	require.NoError(t, err)
	assert.Equal(t, noop.DriverName, radio.Name())

	require.NoError(t, radio.Open(context.Background()))
	assert.False(t, radio.Ready(), "noop radio never becomes ready")
	assert.NoError(t, radio.Close())
}

func TestRegistry_CreateRadioUnknown(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	_, err := registry.CreateRadio("bluez", &config.ScanConfig{})
	assert.Error(t, err)
}
