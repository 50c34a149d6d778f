package flux_test

import (
	"errors"
	"math"
	"testing"

	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
)

func erasePatternFlux(t *testing.T) ([]uint32, flux.Bits) {
	t.Helper()
	bits := flux.ErasePattern()
	ref, err := flux.EncodeBits(bits)
	if err != nil {
		t.Fatalf("EncodeBits returned error: %v", err)
	}
	out, err := flux.Rescale(ref, flux.ReferenceRate.RatioTo(flux.DefaultDriveRate))
	if err != nil {
		t.Fatalf("Rescale returned error: %v", err)
	}
	return out, bits
}

func TestDecodeBitcellsRecoversEncodedPattern(t *testing.T) {
	intervals, bits := erasePatternFlux(t)
	// 100 µs of slack after the pattern keeps the index past the final bit.
	index := float64(sum(intervals)) + 100*float64(flux.DefaultDriveRate)
	revs, err := flux.DecodeBitcells(flux.New([]float64{index}, intervals, flux.DefaultDriveRate), flux.DefaultClock)
	if err != nil {
		t.Fatalf("DecodeBitcells returned error: %v", err)
	}
	if len(revs) != 1 {
		t.Fatalf("expected 1 revolution, got %d", len(revs))
	}
	got := revs[0]
	if len(got) < len(bits) {
		t.Fatalf("decoded %d bits, want at least %d", len(got), len(bits))
	}
	for i := range bits {
		if got[i] != bits[i] {
			t.Fatalf("bit %d differs", i)
		}
	}
	hits := got.Search(flux.BitsFromBytes(flux.SyncBytes))
	if len(hits) != 2 || hits[0] != 1600 || hits[1] != 1664 {
		t.Fatalf("unexpected sync positions %v", hits)
	}
}

func TestDecodeBitcellsToleratesJitterAndSpeed(t *testing.T) {
	intervals, _ := erasePatternFlux(t)
	skewed := make([]uint32, len(intervals))
	for i, x := range intervals {
		v := math.Round(float64(x) * 1.05)
		if i%2 == 0 {
			v -= 3
		} else {
			v += 3
		}
		skewed[i] = uint32(v)
	}
	index := float64(sum(skewed)) + 100*float64(flux.DefaultDriveRate)
	revs, err := flux.DecodeBitcells(flux.New([]float64{index}, skewed, flux.DefaultDriveRate), flux.DefaultClock)
	if err != nil {
		t.Fatalf("DecodeBitcells returned error: %v", err)
	}
	if hits := revs[0].Search(flux.BitsFromBytes(flux.SyncBytes)); len(hits) != 2 {
		t.Fatalf("expected both sync marks, got %v", hits)
	}
}

func TestDecodeBitcellsSplitsRevolutions(t *testing.T) {
	intervals, _ := erasePatternFlux(t)
	slack := uint32(100 * flux.DefaultDriveRate)
	rev := float64(sum(intervals)) + float64(slack)
	two := append(append(append([]uint32{}, intervals...), slack), intervals...)
	revs, err := flux.DecodeBitcells(flux.New([]float64{rev, rev}, two, flux.DefaultDriveRate), flux.DefaultClock)
	if err != nil {
		t.Fatalf("DecodeBitcells returned error: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("expected 2 revolutions, got %d", len(revs))
	}
	for i, r := range revs {
		if hits := r.Search(flux.BitsFromBytes(flux.SyncBytes)); len(hits) != 2 {
			t.Fatalf("revolution %d: unexpected sync positions %v", i, hits)
		}
	}
}

func TestDecodeBitcellsRequiresIndex(t *testing.T) {
	_, err := flux.DecodeBitcells(flux.New(nil, []uint32{144}, flux.DefaultDriveRate), flux.DefaultClock)
	if !errors.Is(err, fault.ErrInvalidEncoderInput) {
		t.Fatalf("expected ErrInvalidEncoderInput, got %v", err)
	}
}
