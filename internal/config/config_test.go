package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cockpitvm.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
bootloader_pin = 4
flash_base_addr = 0x0801F800
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, uint8(4), cfg.BootloaderPin)
	require.Equal(t, uint32(0x0801F800), cfg.FlashBaseAddr)
	// untouched fields keep Default()'s values
	require.Equal(t, uint32(30000), cfg.SessionTimeoutMs)
	require.True(t, cfg.EnableResourceTracking)
	require.Equal(t, ModeProduction, cfg.InitialMode)
}

func TestLoadOverridesAllFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cockpitvm.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
session_timeout_ms = 5000
frame_timeout_ms = 1000
enable_debug_output = true
enable_resource_tracking = false
enable_emergency_recovery = true
initial_mode = "debug"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, uint32(5000), cfg.SessionTimeoutMs)
	require.True(t, cfg.EnableDebugOutput)
	require.False(t, cfg.EnableResourceTracking)
	require.True(t, cfg.EnableEmergencyRecovery)
	require.Equal(t, ModeDebug, cfg.InitialMode)
	require.True(t, cfg.StartupConfig().DebugStack)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/cockpitvm.toml")
	require.Error(t, err)
}
