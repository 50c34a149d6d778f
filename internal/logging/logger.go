package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fluxkit/internal/config"
)

// LogFileName is the file NewFromConfig appends to inside paths.log_dir.
const LogFileName = "fluxkit.log"

// Options describes how New builds a logger.
type Options struct {
	// Level is debug, info, warn or error. Anything else means info.
	Level string
	// Format is console (default) or json.
	Format string
	// Console receives every record. Nil means stderr; io.Discard silences it.
	Console io.Writer
	// File, when set, is opened for append and receives every record too.
	File string
	// Source adds file:line to each record. Debug level implies it.
	Source bool
}

// New builds a logger writing to opts.Console and, when set, opts.File.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	source := opts.Source || level.Level() <= slog.LevelDebug

	var build func(io.Writer, *slog.LevelVar, bool) slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		build = newPrettyHandler
	case "json":
		build = newJSONHandler
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	if opts.File != "" {
		file, err := openAppend(opts.File)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(out, file)
	}
	return slog.New(build(out, level, source)), nil
}

// NewFromConfig logs to stderr and <paths.log_dir>/fluxkit.log. Console
// output stays off stdout so command output can be piped.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if cfg.Paths.LogDir != "" {
		opts.File = filepath.Join(cfg.Paths.LogDir, LogFileName)
	}
	return New(opts)
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
