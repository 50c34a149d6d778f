package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fluxkit/internal/config"
	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
	"fluxkit/internal/writer"
)

// timeLayout keeps timestamps fixed width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a session or readback does not exist.
var ErrNotFound = errors.New("not found")

// Store manages session history backed by SQLite.
type Store struct {
	db    *sql.DB
	path  string
	codec *readbackCodec
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.History.Path
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("%w: history.path is empty", fault.ErrConfiguration)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	codec, err := newReadbackCodec()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store := &Store{db: db, path: dbPath, codec: codec}
	if err := store.initSchema(context.Background()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.codec != nil {
		s.codec.close()
	}
	return s.db.Close()
}

// StartSession inserts a running session and assigns its identifier.
func (s *Store) StartSession(ctx context.Context, sess Session) (*Session, error) {
	sess.ID = uuid.NewString()
	sess.Status = StatusRunning
	sess.StartedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (
            id, command, device, image, start_cyl, end_cyl, sides, status, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.Command,
		sess.Device,
		nullableString(sess.Image),
		sess.Range.StartCyl,
		sess.Range.EndCyl,
		sess.Range.Sides,
		sess.Status,
		sess.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &sess, nil
}

// FinishSession stores the session outcome. A nil sessionErr marks it completed.
func (s *Store) FinishSession(ctx context.Context, id string, driveTicks float64, sum writer.Summary, sessionErr error) error {
	status := StatusCompleted
	var kind, message any
	if sessionErr != nil {
		status = StatusFailed
		kind = fault.Kind(sessionErr)
		message = sessionErr.Error()
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions
         SET drive_ticks = ?, status = ?, error_kind = ?, error_message = ?,
             tracks = ?, written = ?, erased = ?, retries = ?, finished_at = ?
         WHERE id = ?`,
		nullableFloat(driveTicks),
		status,
		kind,
		message,
		sum.Tracks,
		sum.Written,
		sum.Erased,
		sum.Retries,
		time.Now().UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish session %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetSession returns the session whose identifier starts with prefix.
func (s *Store) GetSession(ctx context.Context, prefix string) (*Session, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("session id is empty")
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id LIKE ? || '%' ORDER BY started_at LIMIT 2`,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	switch len(sessions) {
	case 0:
		return nil, fmt.Errorf("session %s: %w", prefix, ErrNotFound)
	case 1:
		return &sessions[0], nil
	default:
		return nil, fmt.Errorf("session prefix %q is ambiguous", prefix)
	}
}

// ListSessions returns the most recent sessions first. limit <= 0 lists all.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// SessionTracks returns a session's tracks in write order.
func (s *Store) SessionTracks(ctx context.Context, id string) ([]Track, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE session_id = ? ORDER BY cyl, head`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

// Readback decodes the stored readback snapshot of one track.
func (s *Store) Readback(ctx context.Context, id string, track flux.TrackID) (*flux.Flux, error) {
	var blob []byte
	err := s.db.QueryRowContext(
		ctx,
		`SELECT readback FROM tracks WHERE session_id = ? AND cyl = ? AND head = ?`,
		id, track.Cyl, track.Head,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && blob == nil) {
		return nil, fmt.Errorf("readback for %s track %s: %w", id, track, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get readback: %w", err)
	}
	return s.codec.decode(blob)
}

// Prune deletes finished sessions started before cutoff together with their
// tracks.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const match = `started_at < ? AND status != ?`
	args := []any{cutoff.UTC().Format(timeLayout), StatusRunning}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE session_id IN (SELECT id FROM sessions WHERE `+match+`)`, args...); err != nil {
		return 0, fmt.Errorf("prune tracks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE `+match, args...)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return n, nil
}

func (s *Store) insertTrack(ctx context.Context, sessionID string, res writer.TrackResult, readback []byte) error {
	var kind, message, blob any
	if res.Err != nil {
		kind = fault.Kind(res.Err)
		message = res.Err.Error()
	}
	if readback != nil {
		blob = readback
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO tracks (
            session_id, cyl, head, action, writes, duration_ms,
            error_kind, error_message, readback, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		res.Track.Cyl,
		res.Track.Head,
		string(res.Action),
		res.Writes,
		res.Duration.Milliseconds(),
		kind,
		message,
		blob,
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert track %s: %w", res.Track, err)
	}
	return nil
}
