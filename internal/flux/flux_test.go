package flux_test

import (
	"strings"
	"testing"

	"fluxkit/internal/flux"
)

func TestTickRateConversions(t *testing.T) {
	if got := flux.SCPRate.RatioTo(flux.DefaultDriveRate); got != 1.8 {
		t.Fatalf("RatioTo = %v, want 1.8", got)
	}
	if got := flux.SCPRate.Microseconds(160); got != 4 {
		t.Fatalf("Microseconds = %v, want 4", got)
	}
	if got := flux.DefaultDriveRate.Hz(); got != 72e6 {
		t.Fatalf("Hz = %v", got)
	}
}

func TestFluxIndexOffsetsAndSummary(t *testing.T) {
	f := flux.New([]float64{14_400_000, 14_400_720}, []uint32{288, 432}, flux.DefaultDriveRate)
	offsets := f.IndexOffsets()
	if len(offsets) != 2 || offsets[0] != 14_400_000 || offsets[1] != 28_800_720 {
		t.Fatalf("unexpected offsets %v", offsets)
	}
	if f.TotalTicks() != 720 {
		t.Fatalf("TotalTicks = %d", f.TotalTicks())
	}
	if !f.TerminateAtIndex {
		t.Fatal("captures terminate at index by default")
	}
	summary := f.String()
	for _, want := range []string{"Sample Frequency: 72.000000 MHz", "Total Flux: 2", "Revolution 0: 200.00ms", "Revolution 1: 200.01ms"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary %q missing %q", summary, want)
		}
	}
}

func TestTrackIDString(t *testing.T) {
	if got := (flux.TrackID{Cyl: 79, Head: 1}).String(); got != "79.1" {
		t.Fatalf("String = %q", got)
	}
}
