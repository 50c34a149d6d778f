package history

import (
	"context"

	"fluxkit/internal/writer"
)

// Recorder stores track results of one session as they arrive.
type Recorder struct {
	store        *Store
	sessionID    string
	keepReadback bool
}

// Recorder returns a writer.Recorder bound to sessionID. keepReadback stores
// the last verify readback of each track.
func (s *Store) Recorder(sessionID string, keepReadback bool) *Recorder {
	return &Recorder{store: s, sessionID: sessionID, keepReadback: keepReadback}
}

// RecordTrack implements writer.Recorder.
func (r *Recorder) RecordTrack(ctx context.Context, res writer.TrackResult) error {
	var blob []byte
	if r.keepReadback && res.Readback != nil {
		blob = r.store.codec.encode(res.Readback)
	}
	return r.store.insertTrack(ctx, r.sessionID, res, blob)
}

var _ writer.Recorder = (*Recorder)(nil)
