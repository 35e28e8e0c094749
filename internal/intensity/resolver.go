// Package intensity derives per-country emission intensity (kg CO2 per MWh)
// from a historical reference dataset such as the Our World in Data CO2 file.
package intensity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rshade/carbontrace/internal/carbon"
)

// DefaultRateColumn is the reference dataset column holding the
// per-unit-energy emission rate.
const DefaultRateColumn = "co2_per_unit_energy"

// UnavailableError reports reference data that could not serve a request.
// It matches carbon.ErrDataUnavailable with errors.Is.
type UnavailableError struct {
	// Countries lists the requested countries with no qualifying observations.
	Countries []string

	// Reason describes a dataset-level failure (missing file or column).
	Reason string
}

func (e *UnavailableError) Error() string {
	if len(e.Countries) > 0 {
		return fmt.Sprintf("%s: no observations for %s", carbon.ErrDataUnavailable, strings.Join(e.Countries, ", "))
	}
	return fmt.Sprintf("%s: %s", carbon.ErrDataUnavailable, e.Reason)
}

func (e *UnavailableError) Unwrap() error {
	return carbon.ErrDataUnavailable
}

// Resolver averages reference observations into a Table.
type Resolver struct {
	// Countries is the allow-list. Empty means every country in the dataset.
	Countries []string

	// MinYear is the first year included in the mean.
	MinYear int

	// RateColumn names the per-unit-energy rate column (tonnes per unit energy).
	RateColumn string

	// Fallback supplies intensities for countries the dataset cannot.
	// Nil means a missing country is an error.
	Fallback Table

	logger zerolog.Logger
}

// NewResolver creates a Resolver with the default countries, minimum year and
// rate column, and no fallback.
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{
		Countries:  slices.Clone(carbon.DefaultCountries),
		MinYear:    carbon.DefaultMinYear,
		RateColumn: DefaultRateColumn,
		logger:     logger,
	}
}

// ResolveFile opens the reference dataset at path and resolves it.
// A missing file returns an *UnavailableError.
func (r *Resolver) ResolveFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &UnavailableError{Reason: fmt.Sprintf("open reference dataset: %v", err)}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			r.logger.Warn().Err(cerr).Str("path", path).Msg("failed to close reference dataset")
		}
	}()

	return r.Resolve(f)
}

// Resolve reads a reference dataset and returns one intensity per allowed
// country: the mean rate of observations from MinYear onward, × 1000.
//
// Rows with a blank or unparseable rate or year do not qualify. Countries
// without qualifying rows are taken from Fallback when present (logged at
// warn level); otherwise Resolve returns an *UnavailableError naming them.
func (r *Resolver) Resolve(src io.Reader) (Table, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &UnavailableError{Reason: "reference dataset is empty"}
		}
		return nil, fmt.Errorf("%w: read reference header: %v", carbon.ErrMalformedRecord, err)
	}

	rateColumn := strings.ToLower(strings.TrimSpace(r.RateColumn))
	if rateColumn == "" {
		rateColumn = DefaultRateColumn
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"country", "year", rateColumn} {
		if _, ok := cols[required]; !ok {
			return nil, &UnavailableError{Reason: fmt.Sprintf("reference dataset has no %q column", required)}
		}
	}

	allowed := make(map[string]bool, len(r.Countries))
	for _, c := range r.Countries {
		allowed[c] = true
	}

	type accumulator struct {
		sum   float64
		count int
	}
	acc := make(map[string]*accumulator)

	line := 1
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: reference dataset line %d: %v", carbon.ErrMalformedRecord, line, err)
		}

		country := field(record, cols["country"])
		if len(allowed) > 0 && !allowed[country] {
			continue
		}
		if country == "" {
			continue
		}

		year, ok := parseYear(field(record, cols["year"]))
		if !ok || year < r.MinYear {
			continue
		}

		rate, ok := parseRate(field(record, cols[rateColumn]))
		if !ok {
			skipped++
			continue
		}

		a := acc[country]
		if a == nil {
			a = &accumulator{}
			acc[country] = a
		}
		a.sum += rate
		a.count++
	}

	if skipped > 0 {
		r.logger.Debug().
			Int("rows", skipped).
			Str("column", rateColumn).
			Msg("skipped reference rows without a usable rate")
	}

	table := make(Table, len(acc))
	for country, a := range acc {
		table[country] = a.sum / float64(a.count) * carbon.TonnesToKg
	}

	var missing []string
	for _, country := range r.Countries {
		if _, ok := table[country]; ok {
			continue
		}
		if v, ok := r.Fallback.Lookup(country); ok {
			r.logger.Warn().
				Str("country", country).
				Float64("intensity_kg_per_mwh", v).
				Msg("no qualifying reference observations, using fallback intensity")
			table[country] = v
			continue
		}
		missing = append(missing, country)
	}
	if len(missing) > 0 {
		return nil, &UnavailableError{Countries: missing}
	}
	if len(table) == 0 {
		return nil, &UnavailableError{Reason: fmt.Sprintf("no observations from %d onward", r.MinYear)}
	}

	return table, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseYear accepts "2019" and the "2019.0" form spreadsheet exports produce.
func parseYear(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if y, err := strconv.Atoi(s); err == nil {
		return y, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func parseRate(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
