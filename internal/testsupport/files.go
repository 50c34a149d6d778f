package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"fluxkit/internal/flux"
	"fluxkit/internal/scp"
)

// WriteSCP builds a container holding tracks (keyed by offset table slot)
// and writes it to path.
func WriteSCP(t testing.TB, path string, revs int, tracks map[int]*flux.Flux) []byte {
	t.Helper()

	b, err := scp.NewBuilder(revs, 0)
	if err != nil {
		t.Fatalf("scp.NewBuilder: %v", err)
	}
	for n, f := range tracks {
		if err := b.AddTrack(n, f); err != nil {
			t.Fatalf("AddTrack(%d): %v", n, err)
		}
	}
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("build container: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return data
}

// SampleFlux is a two-revolution capture at the SCP sample clock with
// intervals of 2.5, 2.5, 5 and 1750 µs.
func SampleFlux() *flux.Flux {
	return flux.New([]float64{200, 70200}, []uint32{100, 100, 200, 70000}, flux.SCPRate)
}

// NominalFlux is revs revolutions at 300 RPM on the SCP sample clock, filled
// with 4 µs intervals.
func NominalFlux(revs int) *flux.Flux {
	const (
		revTicks = 8_000_000
		interval = 160
	)
	index := make([]float64, revs)
	for i := range index {
		index[i] = revTicks
	}
	intervals := make([]uint32, revs*revTicks/interval)
	for i := range intervals {
		intervals[i] = interval
	}
	return flux.New(index, intervals, flux.SCPRate)
}
