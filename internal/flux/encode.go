package flux

import (
	"math"

	"fluxkit/internal/fault"
)

// BitTicks is the cost of one bitcell in ReferenceRate ticks.
const BitTicks = 2

var (
	// GapBytes fill the space between sync marks.
	GapBytes = []byte{0xaa, 0xaa}
	// SyncBytes is the MFM sync word 0x4489, which cannot occur in encoded data.
	SyncBytes = []byte{0x44, 0x89}
)

// EncodeBits converts a bit sequence to flux intervals in ReferenceRate ticks.
//
// Every bit costs BitTicks. A one bit closes the current interval; a trailing
// run of zeros is emitted as a final interval so no time is lost. A sequence
// without any one bit has no transition to end a write on and is rejected.
func EncodeBits(bits Bits) ([]uint32, error) {
	if bits.Ones() == 0 {
		return nil, fault.Wrap(fault.ErrInvalidEncoderInput, "encode", "bits", "sequence has no flux transitions", nil)
	}
	out := make([]uint32, 0, bits.Ones()+1)
	var ticks uint32
	for _, bit := range bits {
		ticks += BitTicks
		if bit {
			out = append(out, ticks)
			ticks = 0
		}
	}
	if ticks != 0 {
		out = append(out, ticks)
	}
	return out, nil
}

// Rescale multiplies every interval by ratio, rounding each to the nearest
// tick. Use ReferenceRate.RatioTo(rate) to move encoder output onto a
// transport's clock.
func Rescale(intervals []uint32, ratio float64) ([]uint32, error) {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
		return nil, fault.Wrap(fault.ErrInvalidEncoderInput, "encode", "rescale", "ratio must be positive and finite", nil)
	}
	out := make([]uint32, len(intervals))
	for i, x := range intervals {
		v := math.Round(float64(x) * ratio)
		if v > math.MaxUint32 {
			return nil, fault.Wrap(fault.ErrInvalidEncoderInput, "encode", "rescale", "interval exceeds 32-bit range", nil)
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// ErasePattern returns the reference track pattern: a long gap, a sync mark,
// a short zero run, a short gap and a second sync mark.
func ErasePattern() Bits {
	gap := BitsFromBytes(GapBytes)
	sync := BitsFromBytes(SyncBytes)
	return Concat(
		gap.Repeat(100),
		sync,
		Zeros(16),
		gap.Repeat(2),
		sync,
	)
}
