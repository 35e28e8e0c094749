package generator

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/rs/zerolog"

	"github.com/rshade/carbontrace/internal/carbon"
)

// DefaultInjectorSeed keeps dirty-data injection reproducible across runs.
const DefaultInjectorSeed = 42

// MaxInjectedRows bounds InjectorOptions.Duplicates and Outliers.
const MaxInjectedRows = 1_000_000

// InjectorOptions configures the corruption applied by an Injector.
type InjectorOptions struct {
	// MissingFraction of rows get their energy value blanked, 0 to 1.
	MissingFraction float64

	// Duplicates is the number of rows appended again. Exactly this many
	// are appended to any non-empty input.
	Duplicates int

	// Outliers is the number of distinct rows whose energy is multiplied by
	// OutlierFactor, capped at the row count.
	Outliers int

	// OutlierFactor is the magnitude of an injected outlier.
	OutlierFactor float64
}

// DefaultInjectorOptions returns 5% missing energy, 15 duplicates and 5
// threefold energy outliers.
func DefaultInjectorOptions() InjectorOptions {
	return InjectorOptions{
		MissingFraction: 0.05,
		Duplicates:      15,
		Outliers:        5,
		OutlierFactor:   3,
	}
}

// InjectionStats reports what an Injector changed.
type InjectionStats struct {
	Missing    int
	Duplicates int
	Outliers   int
}

// Injector corrupts clean datasets to exercise the cleaning stage. It is
// test and demo support only; real audit input never passes through it.
type Injector struct {
	rng    *rand.Rand
	opts   InjectorOptions
	logger zerolog.Logger
}

// NewInjector creates an Injector drawing from rng. Out-of-range options are
// clamped: the fraction to [0, 1], counts to [0, MaxInjectedRows], and a
// non-positive OutlierFactor to the default.
func NewInjector(rng *rand.Rand, opts InjectorOptions, logger zerolog.Logger) *Injector {
	opts.MissingFraction = carbon.Clamp(opts.MissingFraction, 0, 1)
	opts.Duplicates = min(max(opts.Duplicates, 0), MaxInjectedRows)
	opts.Outliers = min(max(opts.Outliers, 0), MaxInjectedRows)
	if opts.OutlierFactor <= 0 {
		opts.OutlierFactor = DefaultInjectorOptions().OutlierFactor
	}
	return &Injector{rng: rng, opts: opts, logger: logger}
}

// Inject returns a corrupted copy of records; the input is not modified.
//
// In order: a sample of rows loses its energy value, Duplicates rows are
// appended again, and a sample of the resulting rows has its energy scaled by
// OutlierFactor. Duplicate sources are distinct while Duplicates does not
// exceed the row count; beyond that every row is repeated once and the rest
// are drawn with replacement. A row whose energy is already missing stays
// missing when chosen as an outlier.
func (i *Injector) Inject(records []carbon.MonthlyRecord) ([]carbon.MonthlyRecord, InjectionStats) {
	var stats InjectionStats

	dirty := slices.Clone(records)

	n := len(dirty)
	missing := int(math.Round(i.opts.MissingFraction * float64(n)))
	for _, idx := range i.sample(n, missing) {
		dirty[idx].EnergyUsedMWh = carbon.Missing()
		stats.Missing++
	}

	for _, idx := range i.sampleRepeating(n, i.opts.Duplicates) {
		dirty = append(dirty, dirty[idx])
		stats.Duplicates++
	}

	for _, idx := range i.sample(len(dirty), i.opts.Outliers) {
		if dirty[idx].EnergyUsedMWh.Valid {
			dirty[idx].EnergyUsedMWh.Value *= i.opts.OutlierFactor
		}
		stats.Outliers++
	}

	i.logger.Debug().
		Int("rows_in", len(records)).
		Int("rows_out", len(dirty)).
		Int("missing", stats.Missing).
		Int("duplicates", stats.Duplicates).
		Int("outliers", stats.Outliers).
		Msg("injected dirty data")

	return dirty, stats
}

// sample returns k distinct indices in [0, n), k capped at n.
func (i *Injector) sample(n, k int) []int {
	k = min(k, n)
	if k <= 0 {
		return nil
	}
	return i.rng.Perm(n)[:k]
}

// sampleRepeating returns k indices in [0, n). The first min(k, n) are
// distinct; the rest are drawn with replacement. It returns nil when n is 0.
func (i *Injector) sampleRepeating(n, k int) []int {
	if n <= 0 || k <= 0 {
		return nil
	}
	idx := i.sample(n, k)
	for len(idx) < k {
		idx = append(idx, i.rng.IntN(n))
	}
	return idx
}
