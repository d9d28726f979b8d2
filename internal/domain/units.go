package domain

import "fmt"

// TimeUnit selects the unit used for reported times and rates.
type TimeUnit string

// Supported time units.
const (
	TimeUnitNanosecond  TimeUnit = "ns"
	TimeUnitMicrosecond TimeUnit = "us"
)

// ParseTimeUnit validates a unit string.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch TimeUnit(s) {
	case TimeUnitNanosecond, TimeUnitMicrosecond:
		return TimeUnit(s), nil
	default:
		return "", fmt.Errorf("unknown time unit %q (want ns or us)", s)
	}
}

// FromPicoseconds converts a trajectory time (ps) to the unit.
func (u TimeUnit) FromPicoseconds(ps float64) float64 {
	switch u {
	case TimeUnitNanosecond:
		return ps / 1e3
	default:
		return ps / 1e6
	}
}
