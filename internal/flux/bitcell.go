package flux

import "fluxkit/internal/fault"

// PLL tuning for bitcell recovery.
const (
	// DefaultClock is the nominal bitcell period in seconds (2 µs, DD MFM).
	DefaultClock = 2e-6
	// ClockMaxAdjust bounds the PLL clock to ±10% of nominal.
	ClockMaxAdjust = 0.10
	// PeriodAdjust is the fraction of phase error folded into the clock period.
	PeriodAdjust = 0.05
	// PhaseAdjust is the fraction of phase error absorbed by shifting the window.
	PhaseAdjust = 0.60
	// inSyncZeros is the longest zero run after which the PLL still trusts
	// the phase error.
	inSyncZeros = 3
)

// DecodeBitcells recovers one bit sequence per revolution from f.
//
// clock is the nominal bitcell period in seconds. The PLL follows speed
// variation within ClockMaxAdjust and drifts back to nominal across long
// zero runs, where phase information is unreliable.
func DecodeBitcells(f *Flux, clock float64) ([]Bits, error) {
	if f == nil || len(f.IndexList) == 0 {
		return nil, fault.Wrap(fault.ErrInvalidEncoderInput, "bitcell", "", "capture has no index pulses", nil)
	}
	if !validTicks(clock) {
		return nil, fault.Wrap(fault.ErrInvalidEncoderInput, "bitcell", "", "clock must be positive", nil)
	}
	freq := f.SampleRate.Hz()
	nominal := clock
	clockMin := nominal * (1 - ClockMaxAdjust)
	clockMax := nominal * (1 + ClockMaxAdjust)

	indexes := f.IndexList
	toIndex := indexes[0] / freq
	indexes = indexes[1:]

	var revs []Bits
	bits := Bits{}
	ticks := 0.0

	// A final interval as long as the whole capture guarantees every index
	// is crossed before the input runs dry.
	var tail float64
	for _, t := range f.IndexList {
		tail += t
	}
	next := func(i int) float64 {
		if i < len(f.Intervals) {
			return float64(f.Intervals[i])
		}
		return tail
	}

	for i := 0; i <= len(f.Intervals); i++ {
		ticks += next(i) / freq
		if ticks < clock/2 {
			continue
		}

		zeros := 0
		for {
			toIndex -= clock
			if toIndex < 0 {
				revs = append(revs, bits)
				if len(indexes) == 0 {
					return revs, nil
				}
				toIndex += indexes[0] / freq
				indexes = indexes[1:]
				bits = Bits{}
			}

			ticks -= clock
			if ticks >= clock/2 {
				zeros++
				bits = append(bits, false)
				continue
			}
			bits = append(bits, true)
			break
		}

		if zeros <= inSyncZeros {
			clock += ticks * PeriodAdjust
		} else {
			clock += (nominal - clock) * PeriodAdjust
		}
		clock = min(max(clock, clockMin), clockMax)
		ticks *= 1 - PhaseAdjust
	}
	return revs, nil
}
