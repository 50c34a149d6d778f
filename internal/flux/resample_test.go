package flux_test

import (
	"errors"
	"math"
	"slices"
	"testing"

	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
)

func TestResampleConstantIntervalsStayWithinCarryBound(t *testing.T) {
	cases := []struct {
		name      string
		v         uint32
		n         int
		src, dest float64
	}{
		{"scp to drive", 160, 5000, 8_000_000, 14_400_000},
		{"slow source", 288, 1000, 14_600_000, 14_400_000},
		{"fast source", 288, 1000, 14_200_000, 14_400_000},
		{"odd factor", 7, 333, 3, 7},
		{"identity", 100, 10, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := make([]uint32, tc.n)
			for i := range in {
				in[i] = tc.v
			}
			out, err := flux.Resample(in, tc.src, tc.dest)
			if err != nil {
				t.Fatalf("Resample returned error: %v", err)
			}
			if len(out) != len(in) {
				t.Fatalf("length = %d, want %d", len(out), len(in))
			}
			factor := tc.dest / tc.src
			ideal := math.Round(float64(tc.n) * float64(tc.v) * factor)
			if diff := math.Abs(float64(sum(out)) - ideal); diff > 1 {
				t.Fatalf("total = %d, ideal %.0f (diff %.0f)", sum(out), ideal, diff)
			}
			each := math.Round(float64(tc.v) * factor)
			for i, x := range out {
				if math.Abs(float64(x)-each) > 1 {
					t.Fatalf("interval %d = %d, want within 1 of %.0f", i, x, each)
				}
			}
		})
	}
}

func TestResampleTracksRunningTotal(t *testing.T) {
	in := []uint32{100, 150, 203, 97, 400, 1, 0, 77, 256, 129}
	src, dest := 8_000_123.0, 14_400_000.0
	out, err := flux.Resample(in, src, dest)
	if err != nil {
		t.Fatalf("Resample returned error: %v", err)
	}
	factor := dest / src
	var exact float64
	var got uint64
	for i := range in {
		exact += float64(in[i]) * factor
		got += uint64(out[i])
		if math.Abs(float64(got)-exact) > 0.5+1e-9 {
			t.Fatalf("running total drifted at %d: got %d, exact %.3f", i, got, exact)
		}
	}
}

func TestResampleRoundTrip(t *testing.T) {
	in := make([]uint32, 0, 2000)
	for i := 0; i < 2000; i++ {
		in = append(in, uint32(140+(i*37)%300))
	}
	for _, factor := range []float64{1.8, 0.97, 1.03, 2.5} {
		there, err := flux.Resample(in, 1, factor)
		if err != nil {
			t.Fatalf("Resample returned error: %v", err)
		}
		back, err := flux.Resample(there, factor, 1)
		if err != nil {
			t.Fatalf("Resample returned error: %v", err)
		}
		diff := math.Abs(float64(sum(back)) - float64(sum(in)))
		if diff > float64(len(in)) {
			t.Fatalf("factor %v: round trip drifted by %.0f ticks", factor, diff)
		}
	}
}

func TestResampleRejectsBadTicks(t *testing.T) {
	for _, pair := range [][2]float64{{0, 1}, {1, 0}, {-5, 1}, {math.NaN(), 1}, {1, math.Inf(1)}} {
		if _, err := flux.Resample([]uint32{1}, pair[0], pair[1]); !errors.Is(err, fault.ErrInvalidEncoderInput) {
			t.Fatalf("ticks %v: expected ErrInvalidEncoderInput, got %v", pair, err)
		}
	}
	if _, err := flux.Resample([]uint32{math.MaxUint32}, 1, 2); !errors.Is(err, fault.ErrInvalidEncoderInput) {
		t.Fatalf("expected overflow rejection, got %v", err)
	}
}

func TestNormaliseRPMScalesEachRevolution(t *testing.T) {
	in := make([]uint32, 400)
	for i := range in {
		in[i] = 1000
	}
	// 1 MHz clock: 300 RPM is 200000 ticks per revolution.
	f := flux.New([]float64{210_000, 190_000}, in, flux.ReferenceRate)
	out, err := flux.NormaliseRPM(f, 300)
	if err != nil {
		t.Fatalf("NormaliseRPM returned error: %v", err)
	}
	for _, idx := range out.IndexList {
		if idx != 200_000 {
			t.Fatalf("unexpected index list %v", out.IndexList)
		}
	}
	if diff := math.Abs(float64(out.TotalTicks()) - 400_000); diff > 1 {
		t.Fatalf("total = %d, want 400000", out.TotalTicks())
	}
	if out.Intervals[0] != 952 || out.Intervals[len(out.Intervals)-1] != 1053 {
		t.Fatalf("unexpected scaling: first %d last %d", out.Intervals[0], out.Intervals[len(out.Intervals)-1])
	}
}

func TestNormaliseRPMSplitsStraddlingInterval(t *testing.T) {
	f := flux.New([]float64{1500, 3000}, []uint32{1000, 1000, 1000}, flux.ReferenceRate)
	out, err := flux.NormaliseRPM(f, 60e6/2000)
	if err != nil {
		t.Fatalf("NormaliseRPM returned error: %v", err)
	}
	// Second interval: 500 ticks before the index at factor 4/3 and 500
	// after at factor 2/3.
	if len(out.Intervals) != 3 {
		t.Fatalf("unexpected intervals %v", out.Intervals)
	}
	if out.Intervals[0] != 1333 || out.Intervals[1] != 1000 {
		t.Fatalf("unexpected intervals %v", out.Intervals)
	}
}

func TestNormaliseRPMRejectsOverflow(t *testing.T) {
	// 0.001 RPM at 1 MHz is 6e10 ticks per revolution.
	f := flux.New([]float64{10}, []uint32{10}, flux.ReferenceRate)
	if _, err := flux.NormaliseRPM(f, 0.001); !errors.Is(err, fault.ErrInvalidEncoderInput) {
		t.Fatalf("expected overflow rejection, got %v", err)
	}
}

func TestNormaliseRPMNeverEmitsZeroIntervals(t *testing.T) {
	// Shrinking a 1,000,000 tick revolution to 1000 ticks scales every
	// 1-tick interval to a thousandth of a tick.
	f := flux.New([]float64{1_000_000}, []uint32{1, 1, 1}, flux.ReferenceRate)
	out, err := flux.NormaliseRPM(f, 60_000)
	if err != nil {
		t.Fatalf("NormaliseRPM returned error: %v", err)
	}
	if !slices.Equal(out.Intervals, []uint32{1, 1, 1}) {
		t.Fatalf("intervals = %v, want [1 1 1]", out.Intervals)
	}
}

func TestNormaliseRPMRequiresIndex(t *testing.T) {
	if _, err := flux.NormaliseRPM(flux.New(nil, []uint32{1}, flux.ReferenceRate), 300); !errors.Is(err, fault.ErrInvalidEncoderInput) {
		t.Fatalf("expected ErrInvalidEncoderInput, got %v", err)
	}
}
