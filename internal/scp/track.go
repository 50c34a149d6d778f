package scp

import (
	"encoding/binary"
	"fmt"

	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
)

// overflowStep is added to the following sample for every 0x0000 sample.
const overflowStep = 0x10000

// Revolution summarises one captured revolution of a track.
type Revolution struct {
	// Duration is the index-to-index time in container ticks.
	Duration uint32
	// Samples is the number of 16-bit words holding this revolution's flux.
	Samples uint32
	// DataOffset is the byte offset of the first word, relative to the
	// track header.
	DataOffset uint32
}

// Microseconds returns the revolution duration in microseconds.
func (r Revolution) Microseconds() float64 {
	return flux.SCPRate.Microseconds(float64(r.Duration))
}

// Track is a parsed track. Samples is nil unless the flux stream was requested.
type Track struct {
	Number      int
	Empty       bool
	Revolutions []Revolution
	// IndexTimes holds the cumulative index timestamp of each revolution in
	// microseconds.
	IndexTimes []float64
	Samples    []uint32
}

// Microseconds converts every flux sample to microseconds.
func (t *Track) Microseconds() []float64 {
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = flux.SCPRate.Microseconds(float64(s))
	}
	return out
}

// Flux returns the track as a capture at the container sample clock. The
// track must have been parsed with its flux stream.
func (t *Track) Flux() (*flux.Flux, error) {
	if t.Empty {
		return nil, fault.Wrap(fault.ErrMalformedCapture, "scp", "track flux", fmt.Sprintf("track %d is empty", t.Number), nil)
	}
	if t.Samples == nil {
		return nil, fault.Wrap(fault.ErrMalformedCapture, "scp", "track flux", fmt.Sprintf("track %d parsed without samples", t.Number), nil)
	}
	index := make([]float64, len(t.Revolutions))
	for i, r := range t.Revolutions {
		index[i] = float64(r.Duration)
	}
	return flux.New(index, t.Samples, flux.SCPRate), nil
}

// ParseTrack decodes the track stored in offset table slot track. With
// withFlux unset only the revolution summaries are decoded.
func ParseTrack(data []byte, hdr *Header, track int, withFlux bool) (*Track, error) {
	if track < 0 || track >= MaxTracks {
		return nil, malformed("parse track", fmt.Sprintf("track %d out of range", track))
	}
	off := int(hdr.Offsets[track])
	if off == 0 {
		return &Track{Number: track, Empty: true}, nil
	}
	end := off + trackHeaderSize + revEntrySize*hdr.Revolutions
	if off < offsetTableEnd || end > len(data) {
		return nil, malformed("parse track", fmt.Sprintf("track %d header at %d runs past end of container", track, off))
	}
	th := data[off:end]
	if string(th[0:3]) != TrackSignature {
		return nil, malformed("parse track", fmt.Sprintf("track %d: bad signature %q", track, th[0:3]))
	}
	if int(th[3]) != track {
		return nil, malformed("parse track", fmt.Sprintf("track %d: header claims track %d", track, th[3]))
	}

	t := &Track{
		Number:      track,
		Revolutions: make([]Revolution, hdr.Revolutions),
		IndexTimes:  make([]float64, hdr.Revolutions),
	}
	total := 0.0
	for i := range t.Revolutions {
		e := th[trackHeaderSize+i*revEntrySize:]
		r := Revolution{
			Duration:   binary.LittleEndian.Uint32(e[0:4]),
			Samples:    binary.LittleEndian.Uint32(e[4:8]),
			DataOffset: binary.LittleEndian.Uint32(e[8:12]),
		}
		t.Revolutions[i] = r
		total += r.Microseconds()
		t.IndexTimes[i] = total
	}
	if !withFlux {
		return t, nil
	}

	first := t.Revolutions[0]
	last := t.Revolutions[len(t.Revolutions)-1]
	start := off + int(first.DataOffset)
	stop := off + int(last.DataOffset) + int(last.Samples)*2
	if start > stop || stop > len(data) {
		return nil, malformed("parse track", fmt.Sprintf("track %d: flux data %d-%d outside container", track, start, stop))
	}
	samples, err := decodeSamples(data[start:stop])
	if err != nil {
		return nil, fault.Wrap(fault.ErrMalformedCapture, "scp", "parse track", fmt.Sprintf("track %d", track), err)
	}
	t.Samples = samples
	return t, nil
}

func decodeSamples(raw []byte) ([]uint32, error) {
	out := make([]uint32, 0, len(raw)/2)
	var carry uint32
	for i := 0; i+1 < len(raw); i += 2 {
		v := uint32(binary.BigEndian.Uint16(raw[i:]))
		if v == 0 {
			if carry > ^uint32(0)-2*overflowStep {
				return nil, fmt.Errorf("overflow run at byte %d exceeds interval range", i)
			}
			carry += overflowStep
			continue
		}
		out = append(out, carry+v)
		carry = 0
	}
	if carry != 0 {
		return nil, fmt.Errorf("flux stream ends inside an overflow run of %d ticks", carry)
	}
	return out, nil
}

// Capture is a parsed container header over its raw bytes.
type Capture struct {
	Header *Header
	data   []byte
}

// Parse validates the container header. Tracks are decoded on demand.
func Parse(data []byte) (*Capture, error) {
	hdr, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	return &Capture{Header: hdr, data: data}, nil
}

// Track decodes one track of the capture.
func (c *Capture) Track(track int, withFlux bool) (*Track, error) {
	return ParseTrack(c.data, c.Header, track, withFlux)
}

// TrackNumbers lists the tracks the header declares.
func (c *Capture) TrackNumbers() []int {
	out := make([]int, 0, c.Header.EndTrack-c.Header.StartTrack+1)
	for i := c.Header.StartTrack; i <= c.Header.EndTrack; i++ {
		out = append(out, i)
	}
	return out
}

// ChecksumValid reports whether the stored checksum matches the data. A zero
// checksum means none was recorded and is always accepted.
func (c *Capture) ChecksumValid() bool {
	return c.Header.Checksum == 0 || c.Header.Checksum == Checksum(c.data)
}

// ParseCapture decodes the header of data and then the requested track.
func ParseCapture(data []byte, track int, withFlux bool) (*Track, error) {
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return c.Track(track, withFlux)
}
