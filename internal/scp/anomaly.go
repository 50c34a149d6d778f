package scp

// Anomaly classifies a single flux interval against MFM bitcell timings.
type Anomaly int

const (
	Nominal Anomaly = iota
	Suspect
)

func (a Anomaly) String() string {
	if a == Suspect {
		return "suspect"
	}
	return "nominal"
}

// Timing windows in microseconds. Valid double-density intervals sit near 4,
// 6 and 8 µs; anything shorter than ShortestCell, longer than LongestCell or
// strictly inside one of the gaps between the valid lengths is suspect.
const (
	ShortestCell  = 3.6
	FirstGapLow   = 4.4
	FirstGapHigh  = 5.4
	SecondGapLow  = 6.6
	SecondGapHigh = 7.2
	LongestCell   = 8.8
)

// Classify returns the anomaly class of an interval of us microseconds.
func Classify(us float64) Anomaly {
	switch {
	case us < ShortestCell,
		us > FirstGapLow && us < FirstGapHigh,
		us > SecondGapLow && us < SecondGapHigh,
		us > LongestCell:
		return Suspect
	default:
		return Nominal
	}
}

// CountSuspect returns how many of the given intervals are suspect.
func CountSuspect(us []float64) int {
	n := 0
	for _, x := range us {
		if Classify(x) == Suspect {
			n++
		}
	}
	return n
}
