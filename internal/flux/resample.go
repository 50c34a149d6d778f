package flux

import (
	"math"

	"fluxkit/internal/fault"
)

// Resample rescales intervals captured on a drive turning once every
// sourceTicksPerRev ticks onto a drive turning once every destTicksPerRev.
//
// Rounding error is carried from each interval into the next, so the running
// total never drifts more than half a tick from the exact real-valued total.
func Resample(intervals []uint32, sourceTicksPerRev, destTicksPerRev float64) ([]uint32, error) {
	if !validTicks(sourceTicksPerRev) || !validTicks(destTicksPerRev) {
		return nil, fault.Wrap(fault.ErrInvalidEncoderInput, "resample", "", "ticks per revolution must be positive and finite", nil)
	}
	factor := destTicksPerRev / sourceTicksPerRev

	out := make([]uint32, 0, len(intervals))
	carry := 0.0
	for _, x := range intervals {
		y := float64(x)*factor + carry
		v := math.RoundToEven(y)
		carry = y - v
		if v > math.MaxUint32 {
			return nil, fault.Wrap(fault.ErrInvalidEncoderInput, "resample", "", "interval exceeds 32-bit range", nil)
		}
		if v < 0 {
			v = 0
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

// NormaliseRPM adjusts every revolution of f to last exactly one revolution
// at rpm. An interval that straddles an index pulse is split between the two
// revolutions' scale factors. Intervals after the last index are dropped.
func NormaliseRPM(f *Flux, rpm float64) (*Flux, error) {
	if f == nil || len(f.IndexList) == 0 {
		return nil, fault.Wrap(fault.ErrInvalidEncoderInput, "normalise", "", "capture has no index pulses", nil)
	}
	if !validTicks(rpm) {
		return nil, fault.Wrap(fault.ErrInvalidEncoderInput, "normalise", "", "rpm must be positive", nil)
	}
	target := 60 / rpm * f.SampleRate.Hz()

	pending := f.IndexList
	toIndex := pending[0]
	pending = pending[1:]
	factor := target / toIndex

	out := make([]uint32, 0, len(f.Intervals))
	carry := 0.0
	// emit rounds y with the running carry. Intervals are never zero, so a
	// value that rounds below one tick is stretched to one and the
	// difference is carried forward.
	emit := func(y float64) error {
		y += carry
		v := max(math.RoundToEven(y), 1)
		if v > math.MaxUint32 {
			return fault.Wrap(fault.ErrInvalidEncoderInput, "normalise", "", "interval exceeds 32-bit range", nil)
		}
		carry = y - v
		out = append(out, uint32(v))
		return nil
	}
	for _, raw := range f.Intervals {
		x := float64(raw)
		toIndex -= x
		if toIndex >= 0 {
			if err := emit(x * factor); err != nil {
				return nil, err
			}
			continue
		}
		if len(pending) == 0 {
			break
		}
		next := pending[0]
		pending = pending[1:]
		nextFactor := target / next
		// toIndex is negative: -toIndex ticks of x fall after the index.
		if err := emit((x+toIndex)*factor - toIndex*nextFactor); err != nil {
			return nil, err
		}
		toIndex += next
		factor = nextFactor
	}

	index := make([]float64, len(f.IndexList))
	for i := range index {
		index[i] = target
	}
	return &Flux{
		Intervals:        out,
		IndexList:        index,
		SampleRate:       f.SampleRate,
		TerminateAtIndex: f.TerminateAtIndex,
	}, nil
}

func validTicks(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
