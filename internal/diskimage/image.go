// Package diskimage supplies the track sources a write session consumes.
//
// An Image yields one Track per physical track, or reports the track blank.
// Tracks that can check their own readback also implement Verifier; the
// write controller probes for it per track.
package diskimage

import (
	"context"

	"fluxkit/internal/flux"
)

// Track is one track's worth of flux to write.
type Track interface {
	Flux() (*flux.Flux, error)
}

// Verifier is implemented by tracks that can validate a readback of
// themselves. Implementations read through r, which bounds how many
// readbacks they may take, and return an error wrapping
// fault.ErrVerifyMismatch when the medium does not hold the expected data.
type Verifier interface {
	Verify(ctx context.Context, r flux.Reader) error
}

// Image is a source of tracks. ok is false for blank tracks.
type Image interface {
	Track(cyl, head int) (t Track, ok bool, err error)
}

// Blank reports every track blank, so writing it bulk-erases the disk.
type Blank struct{}

func (Blank) Track(int, int) (Track, bool, error) { return nil, false, nil }
