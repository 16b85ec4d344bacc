package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultsWhenEnvUnset(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "host-1", cfg.Host.Name)
	assert.Equal(t, 8080, cfg.Host.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Devices)
}

func TestLoad_ReadsHostOverrides(t *testing.T) {
	t.Setenv("HOST_NAME", "lab-host")
	t.Setenv("HOST_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "lab-host", cfg.Host.Name)
	assert.Equal(t, 9090, cfg.Host.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("HOST_PORT", "not-a-number")
	cfg := Load()
	assert.Equal(t, 8080, cfg.Host.Port)
}

func TestLoad_SkipsDeviceBlocksWithoutAName(t *testing.T) {
	t.Setenv("DEVICE1_MODEL", "pixel-7")
	cfg := Load()
	assert.Empty(t, cfg.Devices, "a device block with no name is not a device")
}

func TestLoad_AssemblesDeclaredDeviceBlocksInOrder(t *testing.T) {
	t.Setenv("DEVICE1_NAME", "living-room-tv")
	t.Setenv("DEVICE1_MODEL", "roku-ultra")
	t.Setenv("DEVICE1_IP", "192.168.1.10")
	t.Setenv("DEVICE1_VIDEO", "true")
	t.Setenv("DEVICE2_NAME", "bedroom-tv")

	cfg := Load()
	assert.Len(t, cfg.Devices, 2)
	assert.Equal(t, "living-room-tv", cfg.Devices[0].Name)
	assert.Equal(t, "roku-ultra", cfg.Devices[0].Model)
	assert.Equal(t, "192.168.1.10", cfg.Devices[0].IP)
	assert.True(t, cfg.Devices[0].Video)
	assert.Equal(t, 1, cfg.Devices[0].Index)
	assert.Equal(t, "bedroom-tv", cfg.Devices[1].Name)
	assert.Equal(t, 2, cfg.Devices[1].Index)
}

func TestLoad_InvalidBoolFallsBackToDefault(t *testing.T) {
	t.Setenv("DEVICE1_NAME", "tv")
	t.Setenv("DEVICE1_VIDEO", "not-a-bool")
	cfg := Load()
	assert.Len(t, cfg.Devices, 1)
	assert.False(t, cfg.Devices[0].Video)
}
