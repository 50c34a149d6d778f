package scp

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
)

// FlagIndexCued marks captures that start at an index pulse.
const FlagIndexCued = 0x01

// Builder assembles a container from flux captures.
type Builder struct {
	revs   int
	heads  uint8
	tracks map[int][]byte
}

// NewBuilder returns a Builder storing revs revolutions per track. heads
// follows Header.Heads.
func NewBuilder(revs int, heads uint8) (*Builder, error) {
	if revs < 1 || revs > math.MaxUint8 {
		return nil, fault.Wrap(fault.ErrMalformedCapture, "scp", "builder", fmt.Sprintf("revolution count %d out of range", revs), nil)
	}
	return &Builder{revs: revs, heads: heads, tracks: make(map[int][]byte)}, nil
}

// AddTrack stores f in offset table slot track, converting it to the
// container sample clock. Flux after the last stored index is dropped.
func (b *Builder) AddTrack(track int, f *flux.Flux) error {
	if track < 0 || track >= MaxTracks {
		return fault.Wrap(fault.ErrMalformedCapture, "scp", "add track", fmt.Sprintf("track %d out of range", track), nil)
	}
	if f == nil || len(f.IndexList) < b.revs {
		return fault.Wrap(fault.ErrMalformedCapture, "scp", "add track", fmt.Sprintf("track %d: need %d index pulses", track, b.revs), nil)
	}
	intervals := f.Intervals
	if f.SampleRate != flux.SCPRate {
		var err error
		intervals, err = flux.Resample(f.Intervals, float64(f.SampleRate), float64(flux.SCPRate))
		if err != nil {
			return err
		}
	}

	revs := make([]Revolution, b.revs)
	words := make([]uint16, 0, len(intervals))
	offset := uint32(trackHeaderSize + revEntrySize*b.revs)
	ratio := f.SampleRate.RatioTo(flux.SCPRate)

	pos, boundary := 0.0, 0.0
	i := 0
	for r := range revs {
		boundary += f.IndexList[r]
		start := len(words)
		for ; i < len(f.Intervals) && pos+float64(f.Intervals[i]) <= boundary; i++ {
			pos += float64(f.Intervals[i])
			var err error
			words, err = appendSample(words, intervals[i])
			if err != nil {
				return fault.Wrap(fault.ErrMalformedCapture, "scp", "add track", fmt.Sprintf("track %d", track), err)
			}
		}
		duration := math.Round(f.IndexList[r] * ratio)
		if duration < 0 || duration > math.MaxUint32 {
			return fault.Wrap(fault.ErrMalformedCapture, "scp", "add track", fmt.Sprintf("track %d: revolution %d too long", track, r), nil)
		}
		revs[r] = Revolution{
			Duration:   uint32(duration),
			Samples:    uint32(len(words) - start),
			DataOffset: offset + uint32(start*2),
		}
	}

	out := make([]byte, int(offset)+len(words)*2)
	copy(out, TrackSignature)
	out[3] = uint8(track)
	for r, rev := range revs {
		e := out[trackHeaderSize+r*revEntrySize:]
		binary.LittleEndian.PutUint32(e[0:4], rev.Duration)
		binary.LittleEndian.PutUint32(e[4:8], rev.Samples)
		binary.LittleEndian.PutUint32(e[8:12], rev.DataOffset)
	}
	for j, w := range words {
		binary.BigEndian.PutUint16(out[int(offset)+j*2:], w)
	}
	b.tracks[track] = out
	return nil
}

// appendSample writes v as 16-bit words, using 0x0000 overflow markers for
// values that do not fit.
func appendSample(words []uint16, v uint32) ([]uint16, error) {
	if v == 0 {
		return nil, fmt.Errorf("zero-length interval")
	}
	for v > math.MaxUint16 {
		words = append(words, 0)
		v -= overflowStep
	}
	if v == 0 {
		return nil, fmt.Errorf("interval is an exact multiple of %d ticks", overflowStep)
	}
	return append(words, uint16(v)), nil
}

// Bytes renders the container. Track slots never added stay empty.
func (b *Builder) Bytes() ([]byte, error) {
	if len(b.tracks) == 0 {
		return nil, fault.Wrap(fault.ErrMalformedCapture, "scp", "build", "no tracks added", nil)
	}
	numbers := make([]int, 0, len(b.tracks))
	for n := range b.tracks {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	h := &Header{
		Revolutions: b.revs,
		StartTrack:  numbers[0],
		EndTrack:    numbers[len(numbers)-1],
		Flags:       FlagIndexCued,
		Heads:       b.heads,
	}
	size := offsetTableEnd
	for _, n := range numbers {
		h.Offsets[n] = uint32(size)
		size += len(b.tracks[n])
	}
	out := make([]byte, 0, size)
	out = append(out, h.encode()...)
	for _, n := range numbers {
		out = append(out, b.tracks[n]...)
	}
	binary.LittleEndian.PutUint32(out[12:16], Checksum(out))
	return out, nil
}
