// config.go - TOML-backed startup configuration (§6 "Configuration"):
// the block read at start-up and projected onto startup.Config and
// bootloader.Config. Grounded on the domain-nearest pack repo configuring an
// emulator/VM via TOML (lookbusy1344-arm_emulator) rather than the
// teacher's own flag-based cmd/ie32to64, which has no persistent config at
// all.

package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/cockpit-vm/cockpitvm/bootloader"
	"github.com/cockpit-vm/cockpitvm/startup"
)

// Mode selects debug vs production defaults (§6 "initial_mode").
type Mode string

const (
	ModeProduction Mode = "production"
	ModeDebug      Mode = "debug"
)

// File is the on-disk shape of a CockpitVM startup configuration TOML
// file, mirroring §6's configuration table field for field.
type File struct {
	SessionTimeoutMs        uint32 `toml:"session_timeout_ms"`
	FrameTimeoutMs          uint32 `toml:"frame_timeout_ms"`
	EnableDebugOutput       bool   `toml:"enable_debug_output"`
	EnableResourceTracking  bool   `toml:"enable_resource_tracking"`
	EnableEmergencyRecovery bool   `toml:"enable_emergency_recovery"`
	InitialMode             Mode   `toml:"initial_mode"`

	BootloaderPin     uint8  `toml:"bootloader_pin"`
	FlashBaseAddr     uint32 `toml:"flash_base_addr"`
	FlashPageSize     int    `toml:"flash_page_size"`
	InstructionBudget int    `toml:"instruction_budget"`

	ServerVersion      uint16 `toml:"server_version"`
	TargetFlashAddress uint32 `toml:"target_flash_address"`
	Capabilities       uint32 `toml:"capabilities"`
}

// Default matches §6's stated defaults: 30s session timeout, 2500ms frame
// timeout (the midpoint of the 2-3s range), resource tracking on,
// production mode, emergency recovery off.
func Default() File {
	return File{
		SessionTimeoutMs:       30000,
		FrameTimeoutMs:         2500,
		EnableResourceTracking: true,
		InitialMode:            ModeProduction,
		FlashPageSize:          2048,
		ServerVersion:          1,
	}
}

// Load parses a TOML configuration file at path, starting from Default()
// so any field the file omits keeps its documented default rather than
// zeroing out.
func Load(path string) (File, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return File{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// BootloaderConfig projects the parts of File that configure a
// bootloader.Session.
func (f File) BootloaderConfig() bootloader.Config {
	return bootloader.Config{
		SessionTimeoutMs:        f.SessionTimeoutMs,
		FrameTimeoutMs:          f.FrameTimeoutMs,
		EnableDebugOutput:       f.EnableDebugOutput,
		EnableResourceTracking:  f.EnableResourceTracking,
		EnableEmergencyRecovery: f.EnableEmergencyRecovery,
		ServerVersion:           f.ServerVersion,
		FlashPageSize:           uint16(f.FlashPageSize),
		TargetFlashAddress:      f.TargetFlashAddress,
		Capabilities:            f.Capabilities,
	}
}

// StartupConfig projects the parts of File that configure the boot arbiter.
// Logger is not part of the TOML file (it is constructed at process
// start-up); callers that want the observer sink installed must set
// cfg.Logger on the returned value themselves.
func (f File) StartupConfig() startup.Config {
	return startup.Config{
		BootloaderPin:     f.BootloaderPin,
		FlashBaseAddr:     f.FlashBaseAddr,
		FlashPageSize:     f.FlashPageSize,
		InstructionBudget: f.InstructionBudget,
		DebugStack:        f.InitialMode == ModeDebug,
		EnableDebugOutput: f.EnableDebugOutput,
	}
}
