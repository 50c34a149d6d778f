package scp

import (
	"encoding/binary"
	"fmt"

	"fluxkit/internal/fault"
)

const (
	// Signature opens every container.
	Signature = "SCP"
	// TrackSignature opens every per-track header.
	TrackSignature = "TRK"
	// HeaderSize is the size of the fixed global header.
	HeaderSize = 16
	// MaxTracks is the number of entries in the track offset table.
	MaxTracks = 168

	offsetTableEnd  = HeaderSize + MaxTracks*4
	trackHeaderSize = 4
	revEntrySize    = 12
)

// Header is the global container header plus its track offset table.
type Header struct {
	Version     uint8
	DiskType    uint8
	Revolutions int
	StartTrack  int
	EndTrack    int
	Flags       uint8
	CellWidth   uint8
	// Heads is 0 for double-sided captures, 1 or 2 when only one side was read.
	Heads      uint8
	Resolution uint8
	Checksum   uint32
	Offsets    [MaxTracks]uint32
}

// Sides reports how many sides the capture covers.
func (h *Header) Sides() int {
	if h.Heads == 0 {
		return 2
	}
	return 1
}

// TrackIndex maps a physical track to its offset table slot.
func TrackIndex(cyl, head int) int {
	return cyl*2 + head
}

// ParseHeader decodes the global header and offset table.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < offsetTableEnd {
		return nil, malformed("parse header", fmt.Sprintf("container is %d bytes, need at least %d", len(data), offsetTableEnd))
	}
	if string(data[0:3]) != Signature {
		return nil, malformed("parse header", fmt.Sprintf("bad signature %q", data[0:3]))
	}
	h := &Header{
		Version:     data[3],
		DiskType:    data[4],
		Revolutions: int(data[5]),
		StartTrack:  int(data[6]),
		EndTrack:    int(data[7]),
		Flags:       data[8],
		CellWidth:   data[9],
		Heads:       data[10],
		Resolution:  data[11],
		Checksum:    binary.LittleEndian.Uint32(data[12:16]),
	}
	if h.Revolutions == 0 {
		return nil, malformed("parse header", "revolution count is zero")
	}
	if h.EndTrack >= MaxTracks || h.StartTrack > h.EndTrack {
		return nil, malformed("parse header", fmt.Sprintf("track range %d-%d out of bounds", h.StartTrack, h.EndTrack))
	}
	for i := range h.Offsets {
		h.Offsets[i] = binary.LittleEndian.Uint32(data[HeaderSize+i*4:])
	}
	return h, nil
}

// Checksum returns the 32-bit byte sum the container header stores: every
// byte after the header.
func Checksum(data []byte) uint32 {
	var sum uint32
	if len(data) <= HeaderSize {
		return 0
	}
	for _, b := range data[HeaderSize:] {
		sum += uint32(b)
	}
	return sum
}

func (h *Header) encode() []byte {
	out := make([]byte, offsetTableEnd)
	copy(out, Signature)
	out[3] = h.Version
	out[4] = h.DiskType
	out[5] = uint8(h.Revolutions)
	out[6] = uint8(h.StartTrack)
	out[7] = uint8(h.EndTrack)
	out[8] = h.Flags
	out[9] = h.CellWidth
	out[10] = h.Heads
	out[11] = h.Resolution
	binary.LittleEndian.PutUint32(out[12:16], h.Checksum)
	for i, off := range h.Offsets {
		binary.LittleEndian.PutUint32(out[HeaderSize+i*4:], off)
	}
	return out
}

func malformed(operation, message string) error {
	return fault.Wrap(fault.ErrMalformedCapture, "scp", operation, message, nil)
}
