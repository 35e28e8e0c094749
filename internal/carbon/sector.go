package carbon

import (
	"fmt"
	"strings"
)

// Sector is the closed set of industrial sectors the auditor supports.
// The zero value is not a valid sector.
type Sector int

const (
	SectorSteel Sector = iota + 1
	SectorTextile
	SectorElectronics
)

// EmissionFactor holds the accounting coefficients for one sector in kg CO2.
type EmissionFactor struct {
	ProductionPerTon float64
	EnergyPerMWh     float64
}

// sectorSpec is everything the pipeline knows about a sector.
type sectorSpec struct {
	name   string
	prefix string // factory id prefix used by the pure synthetic generator
	factor EmissionFactor

	// Seasonality of monthly production.
	amplitude float64
	phase     float64

	// syntheticMultiplier diversifies generated emissions. It is unrelated
	// to the accounting coefficients in factor.
	syntheticMultiplier float64

	// Normal distribution of anchored monthly production (tons).
	productionMean float64
	productionSD   float64

	// Uniform ranges for the pure synthetic base values.
	baseProduction [2]float64
	baseEnergy     [2]float64
}

var sectorSpecs = map[Sector]sectorSpec{
	SectorSteel: {
		name:                "Steel",
		prefix:              "STEEL",
		factor:              EmissionFactor{ProductionPerTon: 2.5, EnergyPerMWh: 0.6},
		amplitude:           0.15,
		phase:               3,
		syntheticMultiplier: 1.15,
		productionMean:      1500,
		productionSD:        300,
		baseProduction:      [2]float64{1000, 1500},
		baseEnergy:          [2]float64{4500, 6000},
	},
	SectorTextile: {
		name:                "Textile",
		prefix:              "TEX",
		factor:              EmissionFactor{ProductionPerTon: 1.2, EnergyPerMWh: 0.4},
		amplitude:           0.20,
		phase:               10,
		syntheticMultiplier: 1.00,
		productionMean:      600,
		productionSD:        120,
		baseProduction:      [2]float64{300, 500},
		baseEnergy:          [2]float64{700, 1000},
	},
	SectorElectronics: {
		name:                "Electronics",
		prefix:              "ELEC",
		factor:              EmissionFactor{ProductionPerTon: 1.8, EnergyPerMWh: 0.5},
		amplitude:           0.18,
		phase:               8,
		syntheticMultiplier: 0.85,
		productionMean:      250,
		productionSD:        60,
		baseProduction:      [2]float64{200, 400},
		baseEnergy:          [2]float64{1000, 1500},
	},
}

// Sectors returns every supported sector in declaration order.
func Sectors() []Sector {
	return []Sector{SectorSteel, SectorTextile, SectorElectronics}
}

// ParseSector maps a sector name (case-insensitive) to its Sector.
// Unknown names return an error wrapping ErrUnknownSector.
func ParseSector(name string) (Sector, error) {
	trimmed := strings.TrimSpace(name)
	for _, s := range Sectors() {
		if strings.EqualFold(sectorSpecs[s].name, trimmed) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSector, name)
}

// Valid reports whether s is one of the supported sectors.
func (s Sector) Valid() bool {
	_, ok := sectorSpecs[s]
	return ok
}

func (s Sector) String() string {
	if spec, ok := sectorSpecs[s]; ok {
		return spec.name
	}
	return fmt.Sprintf("Sector(%d)", int(s))
}

// EmissionFactor returns the accounting coefficients for s.
// Returns (EmissionFactor{}, false) for an invalid sector.
func (s Sector) EmissionFactor() (EmissionFactor, bool) {
	spec, ok := sectorSpecs[s]
	return spec.factor, ok
}

// Seasonality returns the amplitude and phase month of the sector's
// production cycle. Invalid sectors have no seasonality.
func (s Sector) Seasonality() (amplitude, phase float64) {
	spec, ok := sectorSpecs[s]
	if !ok {
		return 0, 0
	}
	return spec.amplitude, spec.phase
}

// SyntheticMultiplier returns the generator-side emission scaling for s,
// or 0 for an invalid sector.
func (s Sector) SyntheticMultiplier() float64 {
	return sectorSpecs[s].syntheticMultiplier
}

// ProductionDistribution returns the mean and standard deviation of anchored
// monthly production in tons.
func (s Sector) ProductionDistribution() (mean, sd float64) {
	spec := sectorSpecs[s]
	return spec.productionMean, spec.productionSD
}

// BaseRanges returns the uniform [min, max] ranges of the pure synthetic
// base production (tons) and energy (MWh).
func (s Sector) BaseRanges() (production, energy [2]float64) {
	spec := sectorSpecs[s]
	return spec.baseProduction, spec.baseEnergy
}

// IDPrefix returns the short sector tag used in synthetic factory ids.
func (s Sector) IDPrefix() string {
	return sectorSpecs[s].prefix
}

// MarshalText implements encoding.TextMarshaler.
func (s Sector) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSector, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sector) UnmarshalText(text []byte) error {
	parsed, err := ParseSector(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
