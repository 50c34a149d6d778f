package testsupport

import (
	"path/filepath"
	"testing"

	"fluxkit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = base
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LockDir = filepath.Join(base, "locks")
	cfgVal.History.Path = filepath.Join(base, "history.db")
	cfgVal.Drive.Device = "sim"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithTrackRange sets the default session range.
func WithTrackRange(startCyl, endCyl int, singleSided bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Write.StartCyl = startCyl
		b.cfg.Write.EndCyl = endCyl
		b.cfg.Write.SingleSided = singleSided
	}
}

// WithSimulator overrides the simulated drive's speed and fault injection.
func WithSimulator(rpm float64, verifyFaults int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Simulator.RPM = rpm
		b.cfg.Simulator.VerifyFaults = verifyFaults
	}
}

// WithoutHistory disables the session history database.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.StateDir
}
