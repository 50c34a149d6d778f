package diskimage

import (
	"fmt"
	"os"

	"fluxkit/internal/flux"
	"fluxkit/internal/scp"
)

// SCP serves tracks from an SCP flux-capture container.
type SCP struct {
	capture *scp.Capture
}

// OpenSCP reads and validates the container at path.
func OpenSCP(path string) (*SCP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return NewSCP(data)
}

// NewSCP wraps an in-memory container.
func NewSCP(data []byte) (*SCP, error) {
	c, err := scp.Parse(data)
	if err != nil {
		return nil, err
	}
	return &SCP{capture: c}, nil
}

// Header exposes the container header.
func (s *SCP) Header() *scp.Header {
	return s.capture.Header
}

// Cylinders returns the first and last cylinder the container covers.
func (s *SCP) Cylinders() (start, end int) {
	h := s.capture.Header
	return h.StartTrack / 2, h.EndTrack / 2
}

// Track parses the requested track with its flux stream. Empty slots are blank.
func (s *SCP) Track(cyl, head int) (Track, bool, error) {
	idx := scp.TrackIndex(cyl, head)
	if idx >= scp.MaxTracks {
		return nil, false, nil
	}
	t, err := s.capture.Track(idx, true)
	if err != nil {
		return nil, false, err
	}
	if t.Empty {
		return nil, false, nil
	}
	f, err := t.Flux()
	if err != nil {
		return nil, false, err
	}
	return fluxTrack{f}, true, nil
}

type fluxTrack struct {
	f *flux.Flux
}

func (t fluxTrack) Flux() (*flux.Flux, error) { return t.f, nil }
