package carbon

import (
	"fmt"
	"strings"
)

// EnergySource is the dominant energy source a factory reported for a month.
// The zero value means the source was not reported.
type EnergySource string

const (
	EnergySourceUnknown   EnergySource = ""
	EnergySourceCoal      EnergySource = "coal"
	EnergySourceGrid      EnergySource = "grid"
	EnergySourceRenewable EnergySource = "renewable"
)

// EnergySources returns the reportable sources in the order the generator
// draws them.
func EnergySources() []EnergySource {
	return []EnergySource{EnergySourceCoal, EnergySourceGrid, EnergySourceRenewable}
}

// ParseEnergySource maps a source name to its EnergySource. An empty or
// "NaN" cell is the unreported source.
func ParseEnergySource(s string) (EnergySource, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "nan", "none":
		return EnergySourceUnknown, nil
	case string(EnergySourceCoal), string(EnergySourceGrid), string(EnergySourceRenewable):
		return EnergySource(v), nil
	}
	return EnergySourceUnknown, fmt.Errorf("%w: unknown energy source %q", ErrMalformedRecord, s)
}

// Multiplier returns the adjustment applied to monthly emissions.
// Coal is 20% dirtier than the grid baseline and renewables 30% cleaner.
func (e EnergySource) Multiplier() float64 {
	switch e {
	case EnergySourceCoal:
		return 1.2
	case EnergySourceRenewable:
		return 0.7
	default:
		return 1.0
	}
}
