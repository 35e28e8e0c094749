// Package dataset reads and writes monthly factory records as CSV.
//
// Two column layouts exist. Generated data names production
// "production_tons"; data fed to the audit names it "monthly_production_tons".
// A file is read with exactly one layout, so an audit never silently runs on
// a generation-layout file.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rshade/carbontrace/internal/carbon"
)

// Layout selects the production column name.
type Layout int

const (
	// LayoutGeneration uses "production_tons".
	LayoutGeneration Layout = iota
	// LayoutAudit uses "monthly_production_tons".
	LayoutAudit
)

// Column names.
const (
	ColFactoryID      = "factory_id"
	ColSector         = "sector"
	ColCountry        = "country"
	ColMonth          = "month"
	ColProduction     = "production_tons"
	ColMonthlyProd    = "monthly_production_tons"
	ColEnergy         = "energy_used_mwh"
	ColEnergySource   = "energy_source_type"
	ColRawMaterial    = "raw_material_weight_tons"
	ColEmissions      = "co2_emissions_kg"
	ColEmissionPerMWh = "emission_per_mwh"
	ColEnergyPerTon   = "energy_per_ton"
	ColIntensityDiff  = "intensity_diff"
)

// ProductionColumn returns the production column name for l.
func (l Layout) ProductionColumn() string {
	if l == LayoutAudit {
		return ColMonthlyProd
	}
	return ColProduction
}

func (l Layout) String() string {
	if l == LayoutAudit {
		return "audit"
	}
	return "generation"
}

// ParseLayout maps "generation" or "audit" to its Layout.
func ParseLayout(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "generation":
		return LayoutGeneration, nil
	case "audit":
		return LayoutAudit, nil
	}
	return LayoutGeneration, fmt.Errorf("unknown layout %q (want generation or audit)", name)
}

// Columns returns the record header for l in write order.
func (l Layout) Columns() []string {
	return []string{
		ColFactoryID,
		ColSector,
		ColCountry,
		ColMonth,
		l.ProductionColumn(),
		ColEnergy,
		ColEnergySource,
		ColRawMaterial,
		ColEmissions,
	}
}

// DiagnosticColumns follow the record columns when writing cleaned records.
var DiagnosticColumns = []string{ColEmissionPerMWh, ColEnergyPerTon, ColIntensityDiff}

// RecordError reports a row that could not be parsed. It matches
// carbon.ErrMalformedRecord and the underlying cause with errors.Is.
type RecordError struct {
	// Line is the 1-based line number in the file; the header is line 1.
	Line int

	// Column is the offending column, empty for row-level problems.
	Column string

	Err error
}

func (e *RecordError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %s: %v", e.Line, carbon.ErrMalformedRecord, e.Err)
	}
	return fmt.Sprintf("line %d: %s: column %s: %v", e.Line, carbon.ErrMalformedRecord, e.Column, e.Err)
}

func (e *RecordError) Unwrap() []error {
	return []error{carbon.ErrMalformedRecord, e.Err}
}

// missingCell reports whether a cell denotes an absent value.
func missingCell(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "null", "none":
		return true
	}
	return false
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func parseQuantity(s string) (carbon.Quantity, error) {
	if missingCell(s) {
		return carbon.Missing(), nil
	}
	v, err := parseFloat(s)
	if err != nil {
		return carbon.Missing(), err
	}
	return carbon.Some(v), nil
}

// parseMonth accepts "3" and the "3.0" form spreadsheet exports produce.
func parseMonth(s string) (int, error) {
	s = strings.TrimSpace(s)
	if m, err := strconv.Atoi(s); err == nil {
		return m, nil
	}
	f, err := parseFloat(s)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid month %q", s)
	}
	return int(f), nil
}

// formatFloat renders the shortest representation that reads back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatQuantity(q carbon.Quantity) string {
	if !q.Valid {
		return ""
	}
	return formatFloat(q.Value)
}
