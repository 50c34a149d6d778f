package history

import (
	"database/sql"
	"fmt"
	"time"

	"fluxkit/internal/writer"
)

const sessionColumns = "id, command, device, image, start_cyl, end_cyl, sides, drive_ticks, status, error_kind, error_message, tracks, written, erased, retries, started_at, finished_at"

const trackColumns = "session_id, cyl, head, action, writes, duration_ms, error_kind, error_message, readback IS NOT NULL, recorded_at"

func scanSessions(rows *sql.Rows) ([]Session, error) {
	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		sess         Session
		status       string
		image        sql.NullString
		driveTicks   sql.NullFloat64
		errorKind    sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&sess.ID,
		&sess.Command,
		&sess.Device,
		&image,
		&sess.Range.StartCyl,
		&sess.Range.EndCyl,
		&sess.Range.Sides,
		&driveTicks,
		&status,
		&errorKind,
		&errorMessage,
		&sess.Summary.Tracks,
		&sess.Summary.Written,
		&sess.Summary.Erased,
		&sess.Summary.Retries,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	sess.Image = image.String
	sess.DriveTicks = driveTicks.Float64
	sess.Status = Status(status)
	sess.ErrorKind = errorKind.String
	sess.ErrorMessage = errorMessage.String
	sess.StartedAt = parseTime(startedRaw)
	sess.FinishedAt = parseTime(finishedRaw.String)
	return &sess, nil
}

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*Track, error) {
	var (
		t            Track
		action       string
		durationMS   int64
		errorKind    sql.NullString
		errorMessage sql.NullString
		recordedRaw  string
	)
	if err := scanner.Scan(
		&t.SessionID,
		&t.Track.Cyl,
		&t.Track.Head,
		&action,
		&t.Writes,
		&durationMS,
		&errorKind,
		&errorMessage,
		&t.HasReadback,
		&recordedRaw,
	); err != nil {
		return nil, err
	}
	t.Action = writer.Action(action)
	t.Duration = time.Duration(durationMS) * time.Millisecond
	t.ErrorKind = errorKind.String
	t.ErrorMessage = errorMessage.String
	t.RecordedAt = parseTime(recordedRaw)
	return &t, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
