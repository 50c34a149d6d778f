package logging

import (
	"context"
	"log/slog"
)

const (
	defaultErrorHint = "rerun with log level debug and check the drive connection"
	defaultImpact    = "session continued"
)

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. A nil logger
// becomes a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning carrying event_type, error_hint and impact.
// Fields missing from attrs get defaults.
func WarnWithContext(ctx context.Context, logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	event(ctx, logger, slog.LevelWarn, msg, eventType, attrs)
}

// ErrorWithContext logs an error carrying event_type and error_hint.
func ErrorWithContext(ctx context.Context, logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	event(ctx, logger, slog.LevelError, msg, eventType, attrs)
}

func event(ctx context.Context, logger *slog.Logger, level slog.Level, msg, eventType string, attrs []Attr) {
	if logger == nil {
		return
	}
	if !hasKey(attrs, FieldEventType) {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !hasKey(attrs, FieldErrorHint) {
		attrs = append(attrs, String(FieldErrorHint, defaultErrorHint))
	}
	if level == slog.LevelWarn && !hasKey(attrs, FieldImpact) {
		attrs = append(attrs, String(FieldImpact, defaultImpact))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	WithContext(ctx, logger).LogAttrs(ctx, level, msg, attrs...)
}
