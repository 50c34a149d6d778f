package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fluxkit/internal/config"
	"fluxkit/internal/logging"
)

func openLogger(t *testing.T, format, level string) (*slog.Logger, func() string) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: format, Level: level, Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logger, buf.String
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")
	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log file missing record: %q", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	logger, read := openLogger(t, "console", "info")
	ctx := logging.WithTrack(logging.WithSession(context.Background(), "1a2b3c4d-5e6f"), "3.1")

	logging.WithContext(ctx, logging.NewComponentLogger(logger, "writer")).Info("track verified", logging.Int("writes", 2))

	out := read()
	if !strings.Contains(out, "INFO [writer] Session 1a2b3c4d · Track 3.1 – track verified") {
		t.Fatalf("unexpected header in %q", out)
	}
	if !strings.Contains(out, "    - Writes: 2") {
		t.Fatalf("missing field line in %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("info logs should not carry source, got %q", out)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logger, read := openLogger(t, "console", "debug")
	logger.Debug("probe", logging.String("event_type", "probe"))

	out := read()
	if !strings.Contains(out, "logger_test.go:") {
		t.Fatalf("expected source location in debug output, got %q", out)
	}
	if !strings.Contains(out, "    event_type: probe") {
		t.Fatalf("expected raw key in debug output, got %q", out)
	}
}

func TestJSONLoggerUsesStableKeys(t *testing.T) {
	logger, read := openLogger(t, "json", "info")
	ctx := logging.WithSession(context.Background(), "abc")
	logging.WithContext(ctx, logger).Info("calibrated", logging.Float64("drive_ticks", 14400000))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg", logging.FieldSessionID, "drive_ticks"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("missing key %q in %v", key, entry)
		}
	}
	if entry["level"] != "info" {
		t.Fatalf("level = %v", entry["level"])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logger, read := openLogger(t, "json", "info")
	logging.WarnWithContext(context.Background(), logger, "verify retry", "verify_retry", logging.Error(errors.New("mismatch")))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry[logging.FieldEventType] != "verify_retry" {
		t.Fatalf("event_type = %v", entry[logging.FieldEventType])
	}
	if _, ok := entry[logging.FieldErrorHint]; !ok {
		t.Fatal("missing error_hint")
	}
	if _, ok := entry[logging.FieldImpact]; !ok {
		t.Fatal("missing impact")
	}
}

func TestContextFields(t *testing.T) {
	if fields := logging.ContextFields(context.Background()); len(fields) != 0 {
		t.Fatalf("expected no fields, got %v", fields)
	}
	ctx := logging.WithTrack(logging.WithSession(context.Background(), "s1"), "0.0")
	fields := logging.ContextFields(ctx)
	if len(fields) != 2 || fields[0].Key != logging.FieldSessionID || fields[1].Key != logging.FieldTrack {
		t.Fatalf("unexpected fields %v", fields)
	}
	if got := logging.FormatSubject("", "12.0"); got != "Track 12.0" {
		t.Fatalf("FormatSubject = %q", got)
	}
}

func TestProgressSampler(t *testing.T) {
	s := logging.NewProgressSampler(25)
	var logged []int
	for done := 1; done <= 8; done++ {
		if s.ShouldLog(done, 8) {
			logged = append(logged, done)
		}
	}
	want := []int{1, 2, 4, 6, 8}
	if len(logged) != len(want) {
		t.Fatalf("logged %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged %v, want %v", logged, want)
		}
	}
}
