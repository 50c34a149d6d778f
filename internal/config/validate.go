package config

import (
	"errors"
	"fmt"
	"slices"

	"fluxkit/internal/fault"
)

var driveLetters = []string{"A", "B", "0", "1", "2"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateDrive,
		c.validateWrite,
		c.validateSimulator,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", fault.ErrConfiguration, err)
		}
	}
	return nil
}

func (c *Config) validateDrive() error {
	if !slices.Contains(driveLetters, c.Drive.Letter) {
		return fmt.Errorf("drive.letter %q must be one of A, B, 0, 1, 2", c.Drive.Letter)
	}
	if c.Drive.SampleRateMHz <= 0 {
		return errors.New("drive.sample_rate_mhz must be positive")
	}
	return nil
}

func (c *Config) validateWrite() error {
	if c.Write.StartCyl < 0 {
		return errors.New("write.start_cyl must be non-negative")
	}
	if c.Write.EndCyl < c.Write.StartCyl {
		return fmt.Errorf("write.end_cyl %d is before write.start_cyl %d", c.Write.EndCyl, c.Write.StartCyl)
	}
	if c.Write.EndCyl > MaxCylinder {
		return fmt.Errorf("write.end_cyl must be at most %d", MaxCylinder)
	}
	return nil
}

func (c *Config) validateSimulator() error {
	if c.Simulator.RPM <= 0 {
		return errors.New("simulator.rpm must be positive")
	}
	if c.Simulator.Cylinders <= 0 {
		return errors.New("simulator.cylinders must be positive")
	}
	if c.Simulator.VerifyFaults < 0 {
		return errors.New("simulator.verify_faults must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
