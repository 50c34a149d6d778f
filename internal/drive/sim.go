package drive

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"fluxkit/internal/flux"
)

// SimOptions configures a simulated drive.
type SimOptions struct {
	RPM       float64
	Rate      flux.TickRate
	Cylinders int
	// VerifyFaults is how many reads after each write come back as a dropout
	// with no flux.
	VerifyFaults int
}

// SimStats counts commands served.
type SimStats struct {
	Seeks  int
	Erases int
	Writes int
	Reads  int
}

// Sim is an in-memory drive. Each track stores transition positions within
// one revolution; reads replay them revolution after revolution starting at
// the index pulse.
type Sim struct {
	mu       sync.Mutex
	opts     SimOptions
	revTicks uint64
	cyl      int
	head     int
	tracks   map[flux.TrackID][]uint64
	faults   map[flux.TrackID]int
	stats    SimStats
}

// NewSim returns a blank simulated drive.
func NewSim(opts SimOptions) *Sim {
	if opts.RPM <= 0 {
		opts.RPM = 300
	}
	if opts.Rate <= 0 {
		opts.Rate = flux.DefaultDriveRate
	}
	if opts.Cylinders <= 0 {
		opts.Cylinders = 84
	}
	return &Sim{
		opts:     opts,
		revTicks: uint64(math.Round(60 / opts.RPM * opts.Rate.Hz())),
		tracks:   make(map[flux.TrackID][]uint64),
		faults:   make(map[flux.TrackID]int),
	}
}

// RevolutionTicks returns the simulated ticks per revolution.
func (s *Sim) RevolutionTicks() uint64 {
	return s.revTicks
}

func (s *Sim) Seek(ctx context.Context, cyl, head int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cyl < 0 || cyl >= s.opts.Cylinders || head < 0 || head > 1 {
		return fmt.Errorf("seek %d.%d: outside drive geometry (%d cylinders)", cyl, head, s.opts.Cylinders)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cyl, s.head = cyl, head
	s.stats.Seeks++
	return nil
}

// Erase removes every transition within ticks of the index pulse.
func (s *Sim) Erase(ctx context.Context, ticks uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.current()
	kept := s.tracks[id][:0]
	for _, p := range s.tracks[id] {
		if p >= uint64(ticks) {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		delete(s.tracks, id)
	} else {
		s.tracks[id] = kept
	}
	delete(s.faults, id)
	s.stats.Erases++
	return nil
}

// Write replaces the current track. Flux past one revolution is dropped.
func (s *Sim) Write(ctx context.Context, intervals []uint32, _ bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(intervals) == 0 {
		return fmt.Errorf("write: no flux")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	positions := make([]uint64, 0, len(intervals))
	var pos uint64
	for _, x := range intervals {
		pos += uint64(x)
		if pos >= s.revTicks {
			break
		}
		positions = append(positions, pos)
	}
	id := s.current()
	s.tracks[id] = positions
	s.faults[id] = s.opts.VerifyFaults
	s.stats.Writes++
	return nil
}

// Read returns revs revolutions of the current track from the index pulse.
func (s *Sim) Read(ctx context.Context, revs int) (*flux.Flux, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if revs < 1 {
		return nil, fmt.Errorf("read: revolution count %d", revs)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Reads++

	id := s.current()
	positions := s.tracks[id]
	if s.faults[id] > 0 {
		s.faults[id]--
		positions = nil
	}

	index := make([]float64, revs)
	intervals := make([]uint32, 0, len(positions)*revs)
	var prev uint64
	for r := range revs {
		index[r] = float64(s.revTicks)
		base := uint64(r) * s.revTicks
		for _, p := range positions {
			intervals = append(intervals, uint32(base+p-prev))
			prev = base + p
		}
	}
	return flux.New(index, intervals, s.opts.Rate), nil
}

// Written returns the intervals stored on id, measured from the index pulse.
func (s *Sim) Written(id flux.TrackID) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	positions := s.tracks[id]
	out := make([]uint32, len(positions))
	var prev uint64
	for i, p := range positions {
		out[i] = uint32(p - prev)
		prev = p
	}
	return out
}

// Tracks lists the tracks holding flux.
func (s *Sim) Tracks() []flux.TrackID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]flux.TrackID, 0, len(s.tracks))
	for id := range s.tracks {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b flux.TrackID) int {
		if a.Cyl != b.Cyl {
			return a.Cyl - b.Cyl
		}
		return a.Head - b.Head
	})
	return out
}

// Stats returns command counts so far.
func (s *Sim) Stats() SimStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Sim) current() flux.TrackID {
	return flux.TrackID{Cyl: s.cyl, Head: s.head}
}
