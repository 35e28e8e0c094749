// Package cleaning turns a raw or corrupted record set into audit-ready
// records: exact duplicates removed, missing energy imputed, emissions
// recomputed from country intensity, and positivity enforced.
package cleaning

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rshade/carbontrace/internal/carbon"
	"github.com/rshade/carbontrace/internal/intensity"
)

// Violation is one row that failed post-cleaning validation.
type Violation struct {
	// Row is the zero-based index in the deduplicated record set.
	Row       int
	FactoryID string
	Month     int
	Reason    string
}

func (v Violation) String() string {
	return fmt.Sprintf("row %d (%s month %d): %s", v.Row, v.FactoryID, v.Month, v.Reason)
}

// IntegrityError lists every row that failed validation. It matches
// carbon.ErrDataIntegrity with errors.Is.
type IntegrityError struct {
	Violations []Violation
}

func (e *IntegrityError) Error() string {
	const shown = 5
	parts := make([]string, 0, min(len(e.Violations), shown))
	for i, v := range e.Violations {
		if i == shown {
			break
		}
		parts = append(parts, v.String())
	}
	msg := fmt.Sprintf("%s: %d row(s) failed validation: %s", carbon.ErrDataIntegrity, len(e.Violations), strings.Join(parts, "; "))
	if len(e.Violations) > shown {
		msg += fmt.Sprintf("; and %d more", len(e.Violations)-shown)
	}
	return msg
}

func (e *IntegrityError) Unwrap() error {
	return carbon.ErrDataIntegrity
}

// Stats counts what a cleaning run changed.
type Stats struct {
	RowsIn            int
	DuplicatesRemoved int
	Imputed           int
}

// Result is the output of a successful cleaning run.
type Result struct {
	Records []carbon.CleanRecord

	// MeanAbsIntensityDeviation is the mean of |IntensityDiff| over Records.
	MeanAbsIntensityDeviation float64

	Stats Stats
}

// Cleaner cleans records against a country intensity table.
type Cleaner struct {
	intensities intensity.Table
	logger      zerolog.Logger
}

// NewCleaner creates a Cleaner. The table is not copied and must not be
// modified while the Cleaner is in use.
func NewCleaner(intensities intensity.Table, logger zerolog.Logger) *Cleaner {
	return &Cleaner{intensities: intensities, logger: logger}
}

// Clean removes exact duplicates (first occurrence wins), imputes missing
// energy with the mean energy of the same sector, recomputes emissions as
// energy × intensity[country] × sector multiplier, and derives diagnostics.
//
// Any row left with non-positive production, energy or emissions, an unknown
// country, or a sector with nothing to impute from fails the whole run with
// an *IntegrityError naming every such row. No row is dropped silently.
//
// Cleaning a Result's records again yields the same records.
func (c *Cleaner) Clean(records []carbon.MonthlyRecord) (Result, error) {
	stats := Stats{RowsIn: len(records)}

	unique := Deduplicate(records)
	stats.DuplicatesRemoved = len(records) - len(unique)

	means := sectorEnergyMeans(unique)

	out := make([]carbon.CleanRecord, 0, len(unique))
	var violations []Violation
	var deviation float64

	for i, r := range unique {
		violate := func(reason string) {
			violations = append(violations, Violation{Row: i, FactoryID: r.FactoryID, Month: r.Month, Reason: reason})
		}

		if !r.EnergyUsedMWh.Valid {
			mean, ok := means[r.Sector]
			if !ok {
				violate(fmt.Sprintf("missing energy and no %s rows to impute from", r.Sector))
				continue
			}
			r.EnergyUsedMWh = carbon.Some(mean)
			stats.Imputed++
		}

		baseline, ok := c.intensities.Lookup(r.Country)
		if !ok {
			violate(fmt.Sprintf("no intensity for country %q", r.Country))
			continue
		}
		if !r.Sector.Valid() {
			violate(carbon.ErrUnknownSector.Error())
			continue
		}

		energy := r.EnergyUsedMWh.Value
		emissions := carbon.CalculateSyntheticEmissionsKg(energy, baseline, r.Sector)
		r.CO2EmissionsKg = carbon.Some(emissions)

		if reason := positivity(r.ProductionTons, energy, emissions); reason != "" {
			violate(reason)
			continue
		}

		clean := carbon.CleanRecord{
			MonthlyRecord:  r,
			EmissionPerMWh: emissions / energy,
			EnergyPerTon:   energy / r.ProductionTons,
		}
		clean.IntensityDiff = clean.EmissionPerMWh - baseline
		deviation += math.Abs(clean.IntensityDiff)
		out = append(out, clean)
	}

	if len(violations) > 0 {
		c.logger.Error().
			Int("violations", len(violations)).
			Int("rows", len(unique)).
			Msg("cleaned data failed validation")
		return Result{}, &IntegrityError{Violations: violations}
	}

	result := Result{Records: out, Stats: stats}
	if len(out) > 0 {
		result.MeanAbsIntensityDeviation = deviation / float64(len(out))
	}

	c.logger.Info().
		Int("rows_in", stats.RowsIn).
		Int("duplicates_removed", stats.DuplicatesRemoved).
		Int("imputed", stats.Imputed).
		Int("rows_out", len(out)).
		Float64("mean_abs_intensity_deviation", result.MeanAbsIntensityDeviation).
		Msg("cleaned records")

	return result, nil
}

// Deduplicate returns records with exact duplicates removed, preserving the
// order of first occurrences.
func Deduplicate(records []carbon.MonthlyRecord) []carbon.MonthlyRecord {
	seen := make(map[carbon.MonthlyRecord]struct{}, len(records))
	out := make([]carbon.MonthlyRecord, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// MonthlyRecords strips diagnostics, returning the underlying monthly records.
func (r Result) MonthlyRecords() []carbon.MonthlyRecord {
	out := make([]carbon.MonthlyRecord, len(r.Records))
	for i, c := range r.Records {
		out[i] = c.MonthlyRecord
	}
	return out
}

func sectorEnergyMeans(records []carbon.MonthlyRecord) map[carbon.Sector]float64 {
	type acc struct {
		sum   float64
		count int
	}
	sums := make(map[carbon.Sector]*acc)
	for _, r := range records {
		if !r.EnergyUsedMWh.Valid {
			continue
		}
		a := sums[r.Sector]
		if a == nil {
			a = &acc{}
			sums[r.Sector] = a
		}
		a.sum += r.EnergyUsedMWh.Value
		a.count++
	}

	means := make(map[carbon.Sector]float64, len(sums))
	for s, a := range sums {
		means[s] = a.sum / float64(a.count)
	}
	return means
}

func positivity(production, energy, emissions float64) string {
	var bad []string
	if !(production > 0) || math.IsInf(production, 0) {
		bad = append(bad, fmt.Sprintf("production_tons=%g", production))
	}
	if !(energy > 0) || math.IsInf(energy, 0) {
		bad = append(bad, fmt.Sprintf("energy_used_mwh=%g", energy))
	}
	if !(emissions > 0) || math.IsInf(emissions, 0) {
		bad = append(bad, fmt.Sprintf("co2_emissions_kg=%g", emissions))
	}
	if len(bad) == 0 {
		return ""
	}
	return "not strictly positive: " + strings.Join(bad, ", ")
}
