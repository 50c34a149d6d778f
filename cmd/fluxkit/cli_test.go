package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fluxkit/internal/config"
	"fluxkit/internal/flux"
	"fluxkit/internal/history"
	"fluxkit/internal/scp"
	"fluxkit/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	data, err := config.Encode(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	configPath := filepath.Join(base, "fluxkit.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func latestSession(t *testing.T, cfg *config.Config) history.Session {
	t.Helper()
	store := testsupport.MustOpenHistory(t, cfg)
	sessions, err := store.ListSessions(context.Background(), 1)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("ListSessions = %v, %v", sessions, err)
	}
	return sessions[0]
}

func TestConfigInitShowAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "sample_rate_mhz = 72.0")
	requireContains(t, out, env.cfg.History.Path)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected config init to refuse overwriting without --overwrite")
	}
}

func TestSCPInfoAndDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.scp")
	testsupport.WriteSCP(t, path, 2, map[int]*flux.Flux{0: testsupport.SampleFlux(), 3: testsupport.SampleFlux()})

	out, _, err := runCLI(t, []string{"scp", "info", path}, "")
	if err != nil {
		t.Fatalf("scp info: %v", err)
	}
	requireContains(t, out, "[OK]")
	requireContains(t, out, "0-3")
	requireContains(t, out, "0.01 1.75")
	requireContains(t, out, "1.1")

	out, _, err = runCLI(t, []string{"scp", "dump", "--track", "3", path}, "")
	if err != nil {
		t.Fatalf("scp dump: %v", err)
	}
	// The 70000-tick interval needs an overflow word, so revolution 1 holds
	// three 16-bit samples for two intervals.
	requireContains(t, out, "Revolution 1: index at 1,760.000 µs, 3 samples")
	requireContains(t, out, "       2      5.000 BAD\n")
	requireContains(t, out, "       3   1750.000 BAD\n")
	requireContains(t, out, "Total: 4 samples, 4 suspect (100.00%)")

	out, _, err = runCLI(t, []string{"scp", "dump", "--track", "1", path}, "")
	if err != nil {
		t.Fatalf("scp dump empty track: %v", err)
	}
	requireContains(t, out, "Track 1 was not captured")
}

func TestSCPDumpRejectsCorruptCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.scp")
	if err := os.WriteFile(path, []byte("not a capture"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := runCLI(t, []string{"scp", "dump", path}, ""); err == nil {
		t.Fatal("expected error for corrupt capture")
	}
}

func TestEncodeErasePattern(t *testing.T) {
	out, _, err := runCLI(t, []string{"encode", "erase-pattern"}, "")
	if err != nil {
		t.Fatalf("encode erase-pattern: %v", err)
	}
	requireContains(t, out, "1,680")
	requireContains(t, out, "Intervals:           826")
	requireContains(t, out, "241,920 ticks (3,360.000 µs)")

	out, _, err = runCLI(t, []string{"encode", "hex", "0x4489", "--rate", "1", "--show"}, "")
	if err != nil {
		t.Fatalf("encode hex: %v", err)
	}
	requireContains(t, out, "4 8 6 8 6\n")

	if _, _, err := runCLI(t, []string{"encode", "hex", "0000"}, ""); err == nil {
		t.Fatal("expected error for a pattern with no transitions")
	}
}

func TestParseHexBytes(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
		ok   bool
	}{
		{"0x4489", []byte{0x44, 0x89}, true},
		{"44 89 aa", []byte{0x44, 0x89, 0xaa}, true},
		{"448", nil, false},
		{"zz", nil, false},
		{"0x", nil, false},
	}
	for _, tt := range tests {
		got, err := parseHexBytes(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("parseHexBytes(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
		}
		if tt.ok && !bytes.Equal(got, tt.want) {
			t.Fatalf("parseHexBytes(%q) = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestResampleNormalisesRPM(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "slow.scp")
	intervals := make([]uint32, 50_500)
	for i := range intervals {
		intervals[i] = 160
	}
	testsupport.WriteSCP(t, in, 1, map[int]*flux.Flux{0: flux.New([]float64{8_080_000}, intervals, flux.SCPRate)})

	env := setupCLITestEnv(t)
	out := filepath.Join(dir, "nominal.scp")
	stdout, _, err := runCLI(t, []string{"resample", in, out, "--rpm", "300"}, env.configPath)
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	requireContains(t, stdout, "297.03")
	requireContains(t, stdout, "Wrote 1 tracks at 300 RPM")

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	track, err := scp.ParseCapture(data, 0, true)
	if err != nil {
		t.Fatalf("ParseCapture: %v", err)
	}
	if track.Revolutions[0].Duration != 8_000_000 {
		t.Fatalf("revolution = %d ticks", track.Revolutions[0].Duration)
	}
}

func TestWriteImageToSimulatedDrive(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "disk.scp")
	testsupport.WriteSCP(t, path, 2, map[int]*flux.Flux{0: testsupport.NominalFlux(2), 1: testsupport.NominalFlux(2)})

	out, _, err := runCLI(t, []string{"write", path}, env.configPath)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	requireContains(t, out, "2 (2 written, 0 erased)")
	requireContains(t, out, "all tracks done")

	sess := latestSession(t, env.cfg)
	if sess.Command != "write" || sess.Status != history.StatusCompleted || sess.Image != path {
		t.Fatalf("unexpected session %+v", sess)
	}

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, sess.ID[:8])
	requireContains(t, out, "completed")
}

func TestEraseVerifiesPatternAndKeepsReadback(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSimulator(300, 1))

	out, _, err := runCLI(t, []string{"erase", "--end-cyl", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("erase: %v", err)
	}
	requireContains(t, out, "4 (4 written, 0 erased)")

	sess := latestSession(t, env.cfg)
	out, _, err = runCLI(t, []string{"history", "show", sess.ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "erase pattern (200000 µs revolution)")
	requireContains(t, out, "1.1")
	requireContains(t, out, "yes")

	export := filepath.Join(env.baseDir, "readback.scp")
	out, _, err = runCLI(t, []string{"history", "readback", sess.ID, "1.1", "--out", export}, env.configPath)
	if err != nil {
		t.Fatalf("history readback: %v", err)
	}
	requireContains(t, out, "Revolution 0: 200.00ms")
	data, err := os.ReadFile(export)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if _, err := scp.ParseCapture(data, scp.TrackIndex(1, 1), true); err != nil {
		t.Fatalf("exported readback does not parse: %v", err)
	}
}

func TestEraseFailsWhenVerifyNeverPasses(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSimulator(300, 5))

	out, _, err := runCLI(t, []string{"erase", "--end-cyl", "0", "--single-sided"}, env.configPath)
	if err == nil {
		t.Fatal("expected erase to fail")
	}
	requireContains(t, err.Error(), "track 0.0")
	requireContains(t, out, "[ERROR]")

	sess := latestSession(t, env.cfg)
	if sess.Status != history.StatusFailed || sess.ErrorKind != "verify_mismatch" {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestBlankEraseWithoutHistory(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutHistory())

	out, _, err := runCLI(t, []string{"erase", "--blank", "--end-cyl", "0", "--single-sided"}, env.configPath)
	if err != nil {
		t.Fatalf("erase --blank: %v", err)
	}
	requireContains(t, out, "1 (0 written, 1 erased)")
	if _, err := os.Stat(env.cfg.History.Path); !os.IsNotExist(err) {
		t.Fatalf("history database created while disabled: %v", err)
	}
}

func TestDeviceListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"device", "list", "--sysfs", t.TempDir()}, env.configPath)
	if err != nil {
		t.Fatalf("device list: %v", err)
	}
	requireContains(t, out, "No USB serial ports found")
}

func TestLogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	path := filepath.Join(env.cfg.Paths.LogDir, "fluxkit.log")
	if err := os.WriteFile(path, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "second\nthird\n" {
		t.Fatalf("logs output = %q", out)
	}
}

func TestParseTrackID(t *testing.T) {
	tests := []struct {
		in   string
		want flux.TrackID
		ok   bool
	}{
		{"0.0", flux.TrackID{}, true},
		{"79.1", flux.TrackID{Cyl: 79, Head: 1}, true},
		{"3", flux.TrackID{}, false},
		{"3.2", flux.TrackID{}, false},
		{"-1.0", flux.TrackID{}, false},
	}
	for _, tt := range tests {
		got, err := parseTrackID(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("parseTrackID(%q) = %v, %v", tt.in, got, err)
		}
	}
}
