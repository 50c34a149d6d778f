package writer

import (
	"context"
	"fmt"

	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
)

const (
	// MaxRetries bounds rewrites after a verify mismatch; a track is written
	// at most MaxRetries+1 times.
	MaxRetries = 3
	// VerifyReads bounds readbacks per verify pass.
	VerifyReads = 2
)

// VerifyFunc checks the track just written, reading back through r.
type VerifyFunc func(ctx context.Context, r flux.Reader) error

// Outcome describes one write/verify loop.
type Outcome struct {
	Writes   int
	Readback *flux.Flux
}

// WriteVerifyTrack writes intervals to the current track and, when verify is
// non-nil, verifies the result. Verify mismatches trigger a rewrite up to
// maxRetries times; exhausting them, or any other error, is returned at once.
func WriteVerifyTrack(ctx context.Context, t Transport, intervals []uint32, terminateAtIndex bool, verify VerifyFunc, maxRetries int) (Outcome, error) {
	var out Outcome
	for retry := 0; ; retry++ {
		if err := t.Write(ctx, intervals, terminateAtIndex); err != nil {
			return out, transportError("write", err)
		}
		out.Writes++
		if verify == nil {
			return out, nil
		}

		reader := NewVerifyReader(t, VerifyReads)
		err := verify(ctx, reader)
		if last := reader.Last(); last != nil {
			out.Readback = last
		}
		if err == nil {
			return out, nil
		}
		if !fault.Retryable(err) {
			return out, err
		}
		if retry >= maxRetries {
			return out, fault.Wrap(fault.ErrVerifyMismatch, "verify", "", fmt.Sprintf("gave up after %d writes", out.Writes), err)
		}
	}
}
