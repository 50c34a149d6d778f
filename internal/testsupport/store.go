package testsupport

import (
	"context"
	"testing"

	"fluxkit/internal/config"
	"fluxkit/internal/history"
	"fluxkit/internal/writer"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StartSession creates a running session for tests using the provided store.
func StartSession(t testing.TB, store *history.Store, command string, rng writer.Range) *history.Session {
	t.Helper()

	sess, err := store.StartSession(context.Background(), history.Session{
		Command: command,
		Device:  "sim",
		Range:   rng,
	})
	if err != nil {
		t.Fatalf("store.StartSession: %v", err)
	}
	return sess
}
