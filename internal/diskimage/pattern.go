package diskimage

import (
	"context"
	"fmt"

	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
)

const (
	// DefaultRevolutionMicros is one revolution at 300 RPM.
	DefaultRevolutionMicros = 200_000
	// fillMicros is the interval used to pad the pattern to a full revolution.
	fillMicros = 4
	// syncSpacing is the bit distance between the pattern's two sync words.
	syncSpacing = 64
)

// Pattern writes the reference erase pattern to every track and verifies it
// by locating both sync words in the readback.
type Pattern struct {
	revolution float64
}

// NewPattern returns a Pattern laid out for a revolution of revolutionMicros.
// Zero selects DefaultRevolutionMicros.
func NewPattern(revolutionMicros float64) *Pattern {
	if revolutionMicros <= 0 {
		revolutionMicros = DefaultRevolutionMicros
	}
	return &Pattern{revolution: revolutionMicros}
}

func (p *Pattern) Track(int, int) (Track, bool, error) {
	return &patternTrack{revolution: p.revolution}, true, nil
}

type patternTrack struct {
	revolution float64
}

// Flux returns the pattern at the reference rate followed by 4 µs fill up to
// the end of the revolution.
func (t *patternTrack) Flux() (*flux.Flux, error) {
	intervals, err := flux.EncodeBits(flux.ErasePattern())
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, x := range intervals {
		total += float64(x)
	}
	for total+fillMicros <= t.revolution {
		intervals = append(intervals, fillMicros)
		total += fillMicros
	}
	return flux.New([]float64{t.revolution}, intervals, flux.ReferenceRate), nil
}

// Verify reads single revolutions until one carries both sync words. The
// reader's bound turns repeated failures into a verify mismatch.
func (t *patternTrack) Verify(ctx context.Context, r flux.Reader) error {
	sync := flux.BitsFromBytes(flux.SyncBytes)
	for {
		f, err := r.ReadTrack(ctx, 1)
		if err != nil {
			return err
		}
		if len(f.IndexList) == 0 {
			return fault.Wrap(fault.ErrVerifyMismatch, "verify", "pattern", "readback has no index pulse", nil)
		}
		// Scale the PLL clock by how far the drive's revolution strays from
		// the one the pattern was laid out for.
		clock := flux.DefaultClock * (f.IndexList[0] / f.SampleRate.Hz()) / (t.revolution / 1e6)
		revs, err := flux.DecodeBitcells(f, clock)
		if err != nil {
			return fault.Wrap(fault.ErrVerifyMismatch, "verify", "pattern", "decode readback", err)
		}
		if len(revs) > 0 && hasSyncPair(revs[0].Search(sync)) {
			return nil
		}
	}
}

func hasSyncPair(hits []int) bool {
	for i := 1; i < len(hits); i++ {
		if hits[i]-hits[i-1] == syncSpacing {
			return true
		}
	}
	return false
}

// String describes the pattern for logs.
func (p *Pattern) String() string {
	return fmt.Sprintf("erase pattern (%.0f µs revolution)", p.revolution)
}
