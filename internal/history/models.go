package history

import (
	"time"

	"fluxkit/internal/flux"
	"fluxkit/internal/writer"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Session summarises one write or erase run.
type Session struct {
	ID           string
	Command      string
	Device       string
	Image        string
	Range        writer.Range
	DriveTicks   float64
	Status       Status
	ErrorKind    string
	ErrorMessage string
	Summary      writer.Summary
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Track is the stored outcome of one track.
type Track struct {
	SessionID    string
	Track        flux.TrackID
	Action       writer.Action
	Writes       int
	Duration     time.Duration
	ErrorKind    string
	ErrorMessage string
	// HasReadback reports whether a readback snapshot was stored.
	HasReadback bool
	RecordedAt  time.Time
}
