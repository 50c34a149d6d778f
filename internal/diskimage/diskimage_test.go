package diskimage_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"fluxkit/internal/diskimage"
	"fluxkit/internal/drive"
	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
	"fluxkit/internal/logging"
	"fluxkit/internal/scp"
	"fluxkit/internal/writer"
)

func TestPatternFluxFillsOneRevolution(t *testing.T) {
	track, ok, err := diskimage.NewPattern(0).Track(5, 1)
	if err != nil || !ok {
		t.Fatalf("Track = %v, %v", ok, err)
	}
	f, err := track.Flux()
	if err != nil {
		t.Fatalf("Flux returned error: %v", err)
	}
	if f.SampleRate != flux.ReferenceRate || !slices.Equal(f.IndexList, []float64{diskimage.DefaultRevolutionMicros}) {
		t.Fatalf("unexpected flux header %s", f)
	}
	if f.TotalTicks() != diskimage.DefaultRevolutionMicros {
		t.Fatalf("pattern covers %d µs", f.TotalTicks())
	}
	if _, ok := track.(diskimage.Verifier); !ok {
		t.Fatal("pattern track does not verify itself")
	}
}

func writePattern(t *testing.T, opts drive.SimOptions, rng writer.Range) (*drive.Sim, writer.Summary, error) {
	t.Helper()
	sim := drive.NewSim(opts)
	c := writer.New(sim, opts.Rate, logging.NewNop())
	sum, err := c.WriteImage(context.Background(), diskimage.NewPattern(0), rng)
	return sim, sum, err
}

func TestPatternVerifiesOnSimulatedDrive(t *testing.T) {
	for _, rpm := range []float64{300, 360} {
		sim, sum, err := writePattern(t, drive.SimOptions{RPM: rpm, Rate: flux.DefaultDriveRate}, writer.Range{EndCyl: 1, Sides: 2})
		if err != nil {
			t.Fatalf("rpm %v: WriteImage returned error: %v", rpm, err)
		}
		if sum.Written != 4 || sum.Retries != 0 {
			t.Fatalf("rpm %v: unexpected summary %+v", rpm, sum)
		}
		if len(sim.Tracks()) != 4 {
			t.Fatalf("rpm %v: tracks written %v", rpm, sim.Tracks())
		}
	}
}

func TestPatternVerifyRereadsOnDropout(t *testing.T) {
	sim, sum, err := writePattern(t, drive.SimOptions{Rate: flux.DefaultDriveRate, VerifyFaults: 1}, writer.Range{EndCyl: 0, Sides: 1})
	if err != nil {
		t.Fatalf("WriteImage returned error: %v", err)
	}
	if sum.Retries != 0 || sim.Stats().Writes != 1 {
		t.Fatalf("summary %+v, stats %+v", sum, sim.Stats())
	}
}

func TestPatternVerifyFailsWhenEveryReadDropsOut(t *testing.T) {
	sim, _, err := writePattern(t, drive.SimOptions{Rate: flux.DefaultDriveRate, VerifyFaults: writer.VerifyReads}, writer.Range{EndCyl: 0, Sides: 1})
	if !errors.Is(err, fault.ErrVerifyMismatch) {
		t.Fatalf("expected ErrVerifyMismatch, got %v", err)
	}
	if got := sim.Stats().Writes; got != writer.MaxRetries+1 {
		t.Fatalf("expected %d writes, got %d", writer.MaxRetries+1, got)
	}
}

func TestBlankErasesEveryTrack(t *testing.T) {
	sim := drive.NewSim(drive.SimOptions{})
	_ = sim.Seek(context.Background(), 0, 0)
	_ = sim.Write(context.Background(), []uint32{1000, 1000}, true)

	c := writer.New(sim, flux.DefaultDriveRate, logging.NewNop())
	sum, err := c.WriteImage(context.Background(), diskimage.Blank{}, writer.Range{EndCyl: 0, Sides: 2})
	if err != nil {
		t.Fatalf("WriteImage returned error: %v", err)
	}
	if sum.Erased != 2 || len(sim.Tracks()) != 0 {
		t.Fatalf("summary %+v, tracks left %v", sum, sim.Tracks())
	}
}

func TestSCPImageServesTracks(t *testing.T) {
	b, err := scp.NewBuilder(2, 0)
	if err != nil {
		t.Fatalf("NewBuilder returned error: %v", err)
	}
	src := flux.New([]float64{200, 70200}, []uint32{100, 100, 200, 70000}, flux.SCPRate)
	for _, n := range []int{0, 3} {
		if err := b.AddTrack(n, src); err != nil {
			t.Fatalf("AddTrack returned error: %v", err)
		}
	}
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes returned error: %v", err)
	}
	img, err := diskimage.NewSCP(data)
	if err != nil {
		t.Fatalf("NewSCP returned error: %v", err)
	}
	if start, end := img.Cylinders(); start != 0 || end != 1 {
		t.Fatalf("Cylinders = %d..%d", start, end)
	}

	tests := []struct {
		cyl, head int
		ok        bool
	}{
		{0, 0, true},
		{0, 1, false},
		{1, 1, true},
		{90, 0, false},
	}
	for _, tt := range tests {
		track, ok, err := img.Track(tt.cyl, tt.head)
		if err != nil {
			t.Fatalf("Track(%d, %d) returned error: %v", tt.cyl, tt.head, err)
		}
		if ok != tt.ok {
			t.Fatalf("Track(%d, %d) ok = %v", tt.cyl, tt.head, ok)
		}
		if !ok {
			continue
		}
		f, err := track.Flux()
		if err != nil {
			t.Fatalf("Flux returned error: %v", err)
		}
		if !slices.Equal(f.Intervals, src.Intervals) || !slices.Equal(f.IndexList, src.IndexList) || !f.TerminateAtIndex {
			t.Fatalf("Track(%d, %d) flux = %v / %v", tt.cyl, tt.head, f.Intervals, f.IndexList)
		}
	}
}

func TestOpenSCPMissingFile(t *testing.T) {
	if _, err := diskimage.OpenSCP(t.TempDir() + "/missing.scp"); err == nil {
		t.Fatal("expected error for missing image")
	}
}
