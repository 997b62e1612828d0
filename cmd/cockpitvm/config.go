package main

import (
	"github.com/cockpit-vm/cockpitvm/bootloader"
	"github.com/cockpit-vm/cockpitvm/internal/config"
	"github.com/cockpit-vm/cockpitvm/internal/telemetry"
	"github.com/cockpit-vm/cockpitvm/startup"
)

// loadStartupConfig reads the TOML configuration block at path (§6) and
// projects it to a startup.Config, installing a telemetry.Logger when the
// file asks for debug output. Returns a zero Logger-less config unchanged
// by the caller's own flag defaults when path is empty.
func loadStartupConfig(path string) (startup.Config, *telemetry.Logger, error) {
	if path == "" {
		return startup.Config{}, nil, nil
	}
	file, err := config.Load(path)
	if err != nil {
		return startup.Config{}, nil, err
	}
	cfg := file.StartupConfig()

	var log *telemetry.Logger
	if cfg.EnableDebugOutput {
		log, err = telemetry.NewDevelopment()
		if err != nil {
			return startup.Config{}, nil, err
		}
		cfg.Logger = log
	}
	return cfg, log, nil
}

// loadBootloaderConfig is the bootloader.Config counterpart of
// loadStartupConfig, used by `flash` when --config is set.
func loadBootloaderConfig(path string) (bootloader.Config, error) {
	if path == "" {
		return bootloader.DefaultConfig(), nil
	}
	file, err := config.Load(path)
	if err != nil {
		return bootloader.Config{}, err
	}
	return file.BootloaderConfig(), nil
}
