package flux

import (
	"context"
	"fmt"
	"strings"
)

// TickRate is a sample clock expressed in ticks per microsecond.
type TickRate float64

const (
	// ReferenceRate is the encoder's unit: one tick per microsecond.
	ReferenceRate TickRate = 1
	// SCPRate is the fixed sample clock of SCP capture containers.
	SCPRate TickRate = 40
	// DefaultDriveRate is the sample clock of a 72 MHz flux controller.
	DefaultDriveRate TickRate = 72
)

// Hz returns the rate as a sample frequency.
func (r TickRate) Hz() float64 {
	return float64(r) * 1e6
}

// RatioTo returns how many ticks of target fit in one tick of r.
func (r TickRate) RatioTo(target TickRate) float64 {
	return float64(target) / float64(r)
}

// Microseconds converts a tick count at rate r to microseconds.
func (r TickRate) Microseconds(ticks float64) float64 {
	return ticks / float64(r)
}

// TrackID identifies a physical track.
type TrackID struct {
	Cyl  int
	Head int
}

func (t TrackID) String() string {
	return fmt.Sprintf("%d.%d", t.Cyl, t.Head)
}

// Flux is a captured or synthesized flux sequence.
//
// IndexList holds one entry per revolution: the ticks from one index pulse to
// the next. Intervals and IndexList share the SampleRate clock.
type Flux struct {
	Intervals        []uint32
	IndexList        []float64
	SampleRate       TickRate
	TerminateAtIndex bool
}

// New returns a Flux that terminates at the index pulse, the default for
// captures taken index-to-index.
func New(indexList []float64, intervals []uint32, rate TickRate) *Flux {
	return &Flux{
		Intervals:        intervals,
		IndexList:        indexList,
		SampleRate:       rate,
		TerminateAtIndex: true,
	}
}

// IndexOffsets returns the cumulative position of each index pulse.
func (f *Flux) IndexOffsets() []float64 {
	out := make([]float64, len(f.IndexList))
	total := 0.0
	for i, t := range f.IndexList {
		total += t
		out[i] = total
	}
	return out
}

// TotalTicks returns the sum of all intervals.
func (f *Flux) TotalTicks() uint64 {
	var total uint64
	for _, x := range f.Intervals {
		total += uint64(x)
	}
	return total
}

func (f *Flux) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sample Frequency: %f MHz\n", float64(f.SampleRate))
	fmt.Fprintf(&b, "Total Flux: %d", len(f.Intervals))
	for i, t := range f.IndexList {
		fmt.Fprintf(&b, "\nRevolution %d: %.2fms", i, t*1000/f.SampleRate.Hz())
	}
	return b.String()
}

// Reader reads back whole revolutions of the current track.
type Reader interface {
	ReadTrack(ctx context.Context, revs int) (*Flux, error)
}
