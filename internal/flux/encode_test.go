package flux_test

import (
	"errors"
	"math"
	"testing"

	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
)

func sum(intervals []uint32) uint64 {
	var total uint64
	for _, x := range intervals {
		total += uint64(x)
	}
	return total
}

func TestEncodeBitsPreservesTicksWhenEndingInOne(t *testing.T) {
	sequences := []flux.Bits{
		{true},
		flux.BitsFromBytes(flux.SyncBytes),
		flux.BitsFromBytes([]byte{0xaa, 0x55, 0x01}),
		flux.ErasePattern(),
	}
	for _, bits := range sequences {
		out, err := flux.EncodeBits(bits)
		if err != nil {
			t.Fatalf("EncodeBits returned error: %v", err)
		}
		if got, want := sum(out), uint64(2*len(bits)); got != want {
			t.Fatalf("total ticks = %d, want %d", got, want)
		}
		if len(out) != bits.Ones() {
			t.Fatalf("interval count = %d, want %d", len(out), bits.Ones())
		}
	}
}

func TestEncodeBitsIntervals(t *testing.T) {
	out, err := flux.EncodeBits(flux.BitsFromBytes(flux.SyncBytes))
	if err != nil {
		t.Fatalf("EncodeBits returned error: %v", err)
	}
	want := []uint32{4, 8, 6, 8, 6}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestEncodeBitsFlushesTrailingZeros(t *testing.T) {
	for _, k := range []int{1, 5, 16} {
		bits := flux.Concat(flux.Bits{false, true}, flux.Zeros(k))
		out, err := flux.EncodeBits(bits)
		if err != nil {
			t.Fatalf("EncodeBits returned error: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2 intervals, got %v", out)
		}
		if out[1] != uint32(2*k) {
			t.Fatalf("final interval = %d, want %d", out[1], 2*k)
		}
		if sum(out) != uint64(2*len(bits)) {
			t.Fatalf("total ticks = %d, want %d", sum(out), 2*len(bits))
		}
	}
}

func TestEncodeBitsRejectsSequencesWithoutTransitions(t *testing.T) {
	for _, bits := range []flux.Bits{nil, {}, flux.Zeros(32)} {
		out, err := flux.EncodeBits(bits)
		if !errors.Is(err, fault.ErrInvalidEncoderInput) {
			t.Fatalf("expected ErrInvalidEncoderInput, got %v", err)
		}
		if out != nil {
			t.Fatalf("expected no output, got %v", out)
		}
	}
}

func TestRescaleToTransportClock(t *testing.T) {
	ratio := flux.ReferenceRate.RatioTo(flux.DefaultDriveRate)
	out, err := flux.Rescale([]uint32{4, 6, 8}, ratio)
	if err != nil {
		t.Fatalf("Rescale returned error: %v", err)
	}
	want := []uint32{288, 432, 576}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}

	out, err = flux.Rescale([]uint32{3, 5}, 0.5)
	if err != nil {
		t.Fatalf("Rescale returned error: %v", err)
	}
	if out[0] != 2 || out[1] != 3 {
		t.Fatalf("expected rounding to nearest, got %v", out)
	}
}

func TestRescaleRejectsBadInput(t *testing.T) {
	for _, ratio := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := flux.Rescale([]uint32{1}, ratio); !errors.Is(err, fault.ErrInvalidEncoderInput) {
			t.Fatalf("ratio %v: expected ErrInvalidEncoderInput, got %v", ratio, err)
		}
	}
	if _, err := flux.Rescale([]uint32{math.MaxUint32}, 2); !errors.Is(err, fault.ErrInvalidEncoderInput) {
		t.Fatalf("expected overflow rejection, got %v", err)
	}
}

func TestErasePatternLayout(t *testing.T) {
	bits := flux.ErasePattern()
	if len(bits) != 100*16+16+16+2*16+16 {
		t.Fatalf("unexpected pattern length %d", len(bits))
	}
	hits := bits.Search(flux.BitsFromBytes(flux.SyncBytes))
	if len(hits) != 2 || hits[0] != 1600 || hits[1] != 1664 {
		t.Fatalf("unexpected sync positions %v", hits)
	}
}
