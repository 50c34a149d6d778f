package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"fluxkit/internal/flux"
)

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir" env:"FLUXKIT_STATE_DIR"`
	LogDir   string `toml:"log_dir"`
	LockDir  string `toml:"lock_dir"`
}

// Drive selects the flux controller and the drive attached to it.
type Drive struct {
	// Device is a serial device path, "auto" to discover one, or "sim" for
	// the in-memory simulator.
	Device             string  `toml:"device" env:"FLUXKIT_DEVICE"`
	Letter             string  `toml:"letter" env:"FLUXKIT_DRIVE"`
	SampleRateMHz      float64 `toml:"sample_rate_mhz"`
	WaitTimeoutSeconds int     `toml:"wait_timeout_seconds"`
}

// Write holds the default track range for write and erase sessions.
type Write struct {
	StartCyl    int  `toml:"start_cyl"`
	EndCyl      int  `toml:"end_cyl"`
	SingleSided bool `toml:"single_sided"`
}

// History configures the session history database.
type History struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	KeepReadback bool   `toml:"keep_readback"`
}

// Simulator configures the in-memory drive.
type Simulator struct {
	RPM       float64 `toml:"rpm"`
	Cylinders int     `toml:"cylinders"`
	// VerifyFaults corrupts this many readbacks per track before reads
	// become clean again.
	VerifyFaults int `toml:"verify_faults"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"FLUXKIT_LOG_FORMAT"`
	Level  string `toml:"level" env:"FLUXKIT_LOG_LEVEL"`
}

// Config encapsulates all configuration values for fluxkit.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Drive     Drive     `toml:"drive"`
	Write     Write     `toml:"write"`
	History   History   `toml:"history"`
	Simulator Simulator `toml:"simulator"`
	Logging   Logging   `toml:"logging"`
}

// SampleRate returns the controller sample clock.
func (c *Config) SampleRate() flux.TickRate {
	return flux.TickRate(c.Drive.SampleRateMHz)
}

// Sides returns how many heads a session covers.
func (c *Config) Sides() int {
	if c.Write.SingleSided {
		return 1
	}
	return 2
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
