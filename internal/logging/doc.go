// Package logging assembles structured slog loggers and formatting helpers
// used across fluxkit.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so the write path can tag every line
// with the session and track it belongs to. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
