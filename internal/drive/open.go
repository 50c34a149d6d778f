package drive

import (
	"fmt"
	"log/slog"

	"fluxkit/internal/config"
	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
	"fluxkit/internal/logging"
	"fluxkit/internal/writer"
)

// Device names with special meaning in configuration.
const (
	DeviceSim  = "sim"
	DeviceAuto = "auto"
)

// Device is an opened, locked controller with a drive selected.
type Device struct {
	Path      string
	Letter    Letter
	Rate      flux.TickRate
	Transport writer.Transport
	// Sim is set when Transport is the simulated drive.
	Sim  *Sim
	lock *Lock
}

// Close releases the device lock.
func (d *Device) Close() error {
	return d.lock.Release()
}

// Open resolves the configured device, takes its lock, and selects the
// configured drive.
func Open(cfg *config.Config, logger *slog.Logger) (*Device, error) {
	logger = logging.NewComponentLogger(logger, "drive")
	letter, err := ParseLetter(cfg.Drive.Letter)
	if err != nil {
		return nil, err
	}

	path := cfg.Drive.Device
	if path == DeviceAuto {
		ports, err := ListPorts(DefaultSysfsRoot)
		if err != nil {
			return nil, fault.Wrap(fault.ErrTransport, "drive", "discover", "list serial ports", err)
		}
		p, err := FindPort(ports, nil)
		if err != nil {
			return nil, err
		}
		path = p.Device
		logger.Info("flux controller discovered", logging.String("device", path))
	}
	if path != DeviceSim {
		if err := CheckAccess(path); err != nil {
			return nil, err
		}
	}

	lock, err := AcquireLock(cfg.Paths.LockDir, path)
	if err != nil {
		return nil, err
	}

	if path != DeviceSim {
		_ = lock.Release()
		return nil, fault.Wrap(fault.ErrTransport, "drive", "open", fmt.Sprintf("no wire protocol for %s; set drive.device = %q to use the simulated drive", path, DeviceSim), nil)
	}

	sim := NewSim(SimOptions{
		RPM:          cfg.Simulator.RPM,
		Rate:         cfg.SampleRate(),
		Cylinders:    cfg.Simulator.Cylinders,
		VerifyFaults: cfg.Simulator.VerifyFaults,
	})
	logger.Debug("simulated drive ready",
		logging.String("drive", letter.String()),
		logging.String("bus", letter.Bus.String()),
		logging.Uint64("revolution_ticks", sim.RevolutionTicks()),
	)
	return &Device{
		Path:      path,
		Letter:    letter,
		Rate:      cfg.SampleRate(),
		Transport: sim,
		Sim:       sim,
		lock:      lock,
	}, nil
}
