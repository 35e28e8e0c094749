// Package report rolls audited factory states up into summaries, the audit
// summary CSV, and the reporting payload consumed by presentation layers.
package report

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/rshade/carbontrace/internal/audit"
	"github.com/rshade/carbontrace/internal/carbon"
)

// SummaryColumns is the header of the audit summary CSV.
var SummaryColumns = []string{
	"factory_id",
	"sector",
	"total_emissions_kg",
	"max_monthly_emissions_kg",
	"alerts_count",
}

// FactorySummary is one factory's year-to-date row.
type FactorySummary struct {
	FactoryID             string
	Sector                carbon.Sector
	TotalEmissionsKg      float64
	MaxMonthlyEmissionsKg float64
	AlertsCount           int
}

// Violator is a factory with at least one ALERT month.
type Violator struct {
	FactoryID        string  `json:"factory_id"`
	TotalEmissionsKg float64 `json:"total"`
	AlertsCount      int     `json:"alerts"`
}

// Summary aggregates a whole audit run.
type Summary struct {
	TotalFactories   int
	TotalEmissionsKg float64

	// TotalAlerts counts (factory, month) pairs with an ALERT result, not
	// distinct alerted factories.
	TotalAlerts int

	// Factories keeps the order of the states passed to Summarize.
	Factories []FactorySummary

	// Violators is sorted by total emissions descending, ties by factory id.
	Violators []Violator
}

// Summarize aggregates factory states after a run.
func Summarize(states []*audit.FactoryAuditState) Summary {
	s := Summary{
		TotalFactories: len(states),
		Factories:      make([]FactorySummary, 0, len(states)),
	}

	var total float64
	for _, st := range states {
		fs := FactorySummary{
			FactoryID:             st.FactoryID(),
			Sector:                st.Sector(),
			TotalEmissionsKg:      st.TotalEmissionsKg(),
			MaxMonthlyEmissionsKg: st.MaxMonthlyEmissionsKg(),
			AlertsCount:           st.AlertsCount(),
		}
		s.Factories = append(s.Factories, fs)

		total += fs.TotalEmissionsKg
		s.TotalAlerts += fs.AlertsCount
		if fs.AlertsCount > 0 {
			s.Violators = append(s.Violators, Violator{
				FactoryID:        fs.FactoryID,
				TotalEmissionsKg: fs.TotalEmissionsKg,
				AlertsCount:      fs.AlertsCount,
			})
		}
	}
	s.TotalEmissionsKg = carbon.Round2(total)

	slices.SortStableFunc(s.Violators, func(a, b Violator) int {
		if c := cmp.Compare(b.TotalEmissionsKg, a.TotalEmissionsKg); c != 0 {
			return c
		}
		return cmp.Compare(a.FactoryID, b.FactoryID)
	})
	return s
}

// TopViolators returns at most n violators with the highest totals.
func (s Summary) TopViolators(n int) []Violator {
	if n <= 0 {
		return nil
	}
	return slices.Clone(s.Violators[:min(n, len(s.Violators))])
}

// WriteSummaryCSV writes one row per factory with emissions fixed to 2
// decimals.
func WriteSummaryCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryColumns); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for _, f := range s.Factories {
		row := []string{
			f.FactoryID,
			f.Sector.String(),
			carbon.FormatKg(f.TotalEmissionsKg),
			carbon.FormatKg(f.MaxMonthlyEmissionsKg),
			strconv.Itoa(f.AlertsCount),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write summary row %s: %w", f.FactoryID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}
	return nil
}
