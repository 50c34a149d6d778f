package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID identifies one write or erase session.
	FieldSessionID = "session_id"
	// FieldTrack identifies a physical track as "cyl.head".
	FieldTrack = "track"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	sessionKey contextKey = iota
	trackKey
)

// WithSession tags ctx with a session identifier.
func WithSession(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, id)
}

// SessionFromContext returns the session identifier stored in ctx.
func SessionFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionKey).(string)
	return id, ok && id != ""
}

// WithTrack tags ctx with the track currently being processed.
func WithTrack(ctx context.Context, track string) context.Context {
	return context.WithValue(ctx, trackKey, track)
}

// TrackFromContext returns the track stored in ctx.
func TrackFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	track, ok := ctx.Value(trackKey).(string)
	return track, ok && track != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 2)
	if id, ok := SessionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	if track, ok := TrackFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTrack, track))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
