// Package generator produces synthetic monthly factory records and, for
// exercising the cleaning stage, deliberately corrupted copies of them.
//
// Every generator and injector draws from a *rand.Rand handed to it by the
// caller. There is no package-level random state: the same seed and inputs
// always reproduce the same records.
package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/rs/zerolog"

	"github.com/rshade/carbontrace/internal/carbon"
	"github.com/rshade/carbontrace/internal/intensity"
)

// DefaultFactories is the number of factories generated when unset.
const DefaultFactories = 50

// energySourceWeights is the draw distribution over carbon.EnergySources().
var energySourceWeights = []float64{0.4, 0.5, 0.1}

// pureSectorMix splits pure synthetic factories 20/15/15 per 50.
var pureSectorMix = map[carbon.Sector]float64{
	carbon.SectorSteel:       0.4,
	carbon.SectorTextile:     0.3,
	carbon.SectorElectronics: 0.3,
}

// Options configures a Generator.
type Options struct {
	// Factories is the number of factories to synthesize. Zero means DefaultFactories.
	Factories int

	// Countries are the geographic anchors drawn uniformly per factory.
	// Empty means every country in the intensity table.
	Countries []string

	// SectorWeights assigns sectors by explicit distribution. Nil means
	// uniform for anchored generation and a 40/30/30 split otherwise.
	SectorWeights map[carbon.Sector]float64
}

// Generator synthesizes a year of monthly records per factory.
type Generator struct {
	rng         *rand.Rand
	intensities intensity.Table
	countries   []string
	weights     []float64 // indexed like carbon.Sectors(); nil means uniform
	factories   int
	logger      zerolog.Logger
}

// NewRand returns a deterministic random source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// NewUnseededRand returns a random source seeded from the runtime's entropy.
func NewUnseededRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// New creates a Generator. When intensities is non-empty the records are
// anchored to country intensity and carry emissions; otherwise they are
// purely randomized within sector ranges and carry no country or emissions.
//
// Returns an error wrapping carbon.ErrDataUnavailable if a requested country
// has no intensity, or carbon.ErrUnknownSector for a bad sector weight.
func New(rng *rand.Rand, intensities intensity.Table, opts Options, logger zerolog.Logger) (*Generator, error) {
	if rng == nil {
		return nil, fmt.Errorf("generator: nil random source")
	}

	g := &Generator{
		rng:         rng,
		intensities: intensities,
		factories:   opts.Factories,
		logger:      logger,
	}
	if g.factories <= 0 {
		g.factories = DefaultFactories
	}

	if len(intensities) > 0 {
		g.countries = slices.Clone(opts.Countries)
		if len(g.countries) == 0 {
			g.countries = intensities.Countries()
		}
		for _, c := range g.countries {
			if _, ok := intensities.Lookup(c); !ok {
				return nil, fmt.Errorf("%w: no intensity for anchor country %q", carbon.ErrDataUnavailable, c)
			}
		}
	}

	weights := opts.SectorWeights
	if weights == nil && !g.Anchored() {
		weights = pureSectorMix
	}
	if weights != nil {
		w, err := normalizeWeights(weights)
		if err != nil {
			return nil, err
		}
		g.weights = w
	}

	return g, nil
}

// Anchored reports whether records are anchored to country intensity.
func (g *Generator) Anchored() bool {
	return len(g.intensities) > 0
}

// Generate returns Factories × 12 records ordered by factory, then month.
func (g *Generator) Generate() []carbon.MonthlyRecord {
	var records []carbon.MonthlyRecord
	if g.Anchored() {
		records = g.generateAnchored()
	} else {
		records = g.generatePure()
	}

	g.logger.Debug().
		Bool("anchored", g.Anchored()).
		Int("factories", g.factories).
		Int("rows", len(records)).
		Msg("generated synthetic records")

	return records
}

type factory struct {
	id      string
	sector  carbon.Sector
	country string
}

// generateAnchored assigns every factory first, then fills its months, so the
// factory roster does not depend on how many months are drawn.
func (g *Generator) generateAnchored() []carbon.MonthlyRecord {
	roster := make([]factory, g.factories)
	for i := range roster {
		roster[i] = factory{
			id:      fmt.Sprintf("FAC_%03d", i+1),
			sector:  g.pickSector(),
			country: g.countries[g.rng.IntN(len(g.countries))],
		}
	}

	records := make([]carbon.MonthlyRecord, 0, len(roster)*carbon.MonthsPerYear)
	for _, f := range roster {
		baseIntensity := g.intensities[f.country]
		mean, sd := f.sector.ProductionDistribution()

		for month := 1; month <= carbon.MonthsPerYear; month++ {
			production := mean + sd*g.rng.NormFloat64()
			production = math.Max(production*carbon.SeasonalFactor(month, f.sector), carbon.ProductionFloorTons)

			energy := production * g.uniform(carbon.MinEnergyPerTon, carbon.MaxEnergyPerTon)
			emissions := carbon.CalculateSyntheticEmissionsKg(energy, baseIntensity, f.sector)

			records = append(records, carbon.MonthlyRecord{
				FactoryID:       f.id,
				Sector:          f.sector,
				Country:         f.country,
				Month:           month,
				ProductionTons:  production,
				EnergyUsedMWh:   carbon.Some(energy),
				EnergySource:    g.pickEnergySource(),
				RawMaterialTons: carbon.Some(production * g.uniform(carbon.MinRawMaterialRatio, carbon.MaxRawMaterialRatio)),
				CO2EmissionsKg:  carbon.Some(emissions),
			})
		}
	}
	return records
}

// generatePure draws a base production and energy per factory and varies
// each month by ±15%.
func (g *Generator) generatePure() []carbon.MonthlyRecord {
	counts := allocate(g.factories, g.weights)

	records := make([]carbon.MonthlyRecord, 0, g.factories*carbon.MonthsPerYear)
	for i, sector := range carbon.Sectors() {
		prodRange, energyRange := sector.BaseRanges()
		for n := 1; n <= counts[i]; n++ {
			id := fmt.Sprintf("FAC_%s_%02d", sector.IDPrefix(), n)
			baseProduction := g.uniform(prodRange[0], prodRange[1])
			baseEnergy := g.uniform(energyRange[0], energyRange[1])

			for month := 1; month <= carbon.MonthsPerYear; month++ {
				production := baseProduction * g.uniform(0.85, 1.15)
				energy := baseEnergy * g.uniform(0.85, 1.15)

				records = append(records, carbon.MonthlyRecord{
					FactoryID:       id,
					Sector:          sector,
					Month:           month,
					ProductionTons:  production,
					EnergyUsedMWh:   carbon.Some(energy),
					EnergySource:    g.pickEnergySource(),
					RawMaterialTons: carbon.Some(production * g.uniform(carbon.MinRawMaterialRatio, carbon.MaxRawMaterialRatio)),
				})
			}
		}
	}
	return records
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) pickSector() carbon.Sector {
	sectors := carbon.Sectors()
	if g.weights == nil {
		return sectors[g.rng.IntN(len(sectors))]
	}
	return sectors[weightedIndex(g.rng, g.weights)]
}

func (g *Generator) pickEnergySource() carbon.EnergySource {
	return carbon.EnergySources()[weightedIndex(g.rng, energySourceWeights)]
}

// weightedIndex draws an index with probability proportional to weights.
func weightedIndex(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	x := rng.Float64() * total
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}

// normalizeWeights turns a sector weight map into a slice indexed like
// carbon.Sectors(), summing to 1.
func normalizeWeights(weights map[carbon.Sector]float64) ([]float64, error) {
	out := make([]float64, len(carbon.Sectors()))
	var total float64
	for sector, w := range weights {
		if !sector.Valid() {
			return nil, fmt.Errorf("%w: sector weight for %s", carbon.ErrUnknownSector, sector)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("generator: invalid weight %v for %s", w, sector)
		}
		out[int(sector)-1] = w
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("generator: sector weights sum to zero")
	}
	for i := range out {
		out[i] /= total
	}
	return out, nil
}

// allocate splits n factories across sectors by weight, flooring each share
// and handing the remainder out in sector order.
func allocate(n int, weights []float64) []int {
	counts := make([]int, len(weights))
	assigned := 0
	for i, w := range weights {
		counts[i] = int(math.Floor(w*float64(n) + 1e-9))
		assigned += counts[i]
	}
	for i := 0; assigned < n; i = (i + 1) % len(counts) {
		if weights[i] > 0 {
			counts[i]++
			assigned++
		}
	}
	return counts
}
