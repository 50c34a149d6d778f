package config

const (
	defaultConfigPath         = "~/.config/fluxkit/config.toml"
	defaultStateDir           = "~/.local/share/fluxkit"
	defaultLogDir             = "~/.local/share/fluxkit/logs"
	defaultLockDir            = "~/.local/share/fluxkit/locks"
	defaultHistoryFile        = "history.db"
	defaultDevice             = "sim"
	defaultDriveLetter        = "A"
	defaultSampleRateMHz      = 72
	defaultWaitTimeoutSeconds = 30
	defaultStartCyl           = 0
	defaultEndCyl             = 81
	defaultSimulatorRPM       = 300
	defaultSimulatorCylinders = 84
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"

	// MaxCylinder is the highest cylinder an SCP container can address.
	MaxCylinder = 83
)

// Default returns a Config populated with fluxkit defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			LockDir:  defaultLockDir,
		},
		Drive: Drive{
			Device:             defaultDevice,
			Letter:             defaultDriveLetter,
			SampleRateMHz:      defaultSampleRateMHz,
			WaitTimeoutSeconds: defaultWaitTimeoutSeconds,
		},
		Write: Write{
			StartCyl: defaultStartCyl,
			EndCyl:   defaultEndCyl,
		},
		History: History{
			Enabled:      true,
			KeepReadback: true,
		},
		Simulator: Simulator{
			RPM:       defaultSimulatorRPM,
			Cylinders: defaultSimulatorCylinders,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
