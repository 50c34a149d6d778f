package drive

import (
	"fmt"
	"strings"

	"fluxkit/internal/fault"
)

// Bus is the drive cable convention.
type Bus int

const (
	BusIBMPC Bus = iota + 1
	BusShugart
)

func (b Bus) String() string {
	switch b {
	case BusIBMPC:
		return "IBM PC"
	case BusShugart:
		return "Shugart"
	default:
		return "unknown"
	}
}

// Letter selects one drive on the controller's cable.
type Letter struct {
	Bus  Bus
	Unit int
}

func (l Letter) String() string {
	if l.Bus == BusIBMPC {
		return string(rune('A' + l.Unit))
	}
	return fmt.Sprintf("%d", l.Unit)
}

var letters = map[string]Letter{
	"A": {BusIBMPC, 0},
	"B": {BusIBMPC, 1},
	"0": {BusShugart, 0},
	"1": {BusShugart, 1},
	"2": {BusShugart, 2},
}

// ParseLetter accepts A or B for an IBM PC cable and 0, 1 or 2 for a
// Shugart bus.
func ParseLetter(s string) (Letter, error) {
	l, ok := letters[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return Letter{}, fault.Wrap(fault.ErrConfiguration, "drive", "", fmt.Sprintf("invalid drive letter %q", s), nil)
	}
	return l, nil
}
