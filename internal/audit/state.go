// Package audit implements per-factory emission accounting: monthly emissions
// from sector coefficients, a running total, and cap alerts.
package audit

import (
	"fmt"
	"math"
	"slices"

	"github.com/rshade/carbontrace/internal/carbon"
)

// Status is the cap status of one monthly result.
type Status string

const (
	StatusOK    Status = "OK"
	StatusAlert Status = "ALERT"
)

// State is the lifecycle state of a factory within a run. OverCap is terminal.
type State string

const (
	StateActive  State = "ACTIVE"
	StateOverCap State = "OVER-CAP"
)

// MonthInput is one month of production data for RecordMonth.
type MonthInput struct {
	Month          int
	ProductionTons float64
	EnergyUsedMWh  float64

	// EnergySource adjusts the month's emissions; unknown means no adjustment.
	EnergySource carbon.EnergySource

	// RawMaterialTons is carried for reporting and does not affect emissions.
	RawMaterialTons carbon.Quantity
}

// MonthlyResult is the outcome of one accounting step. Emission values are
// rounded to 2 decimals; the running total is kept unrounded internally.
type MonthlyResult struct {
	FactoryID          string
	Sector             carbon.Sector
	Month              int
	MonthlyEmissionsKg float64
	TotalEmissionsKg   float64
	Status             Status

	// AlertMessage is non-empty iff Status is StatusAlert.
	AlertMessage string
}

// FactoryAuditState accumulates one factory's emissions over an audit run.
// It is not safe for concurrent use; a run gives each state to one goroutine.
type FactoryAuditState struct {
	factoryID string
	sector    carbon.Sector
	factor    carbon.EmissionFactor
	capKg     float64

	totalKg   float64
	state     State
	lastMonth int
	history   []MonthlyResult
}

// NewFactoryAuditState creates the state for one factory. It returns an
// error wrapping carbon.ErrUnknownSector for a sector with no emission factor.
func NewFactoryAuditState(factoryID string, sector carbon.Sector, capKg float64) (*FactoryAuditState, error) {
	factor, ok := sector.EmissionFactor()
	if !ok {
		return nil, fmt.Errorf("factory %s: %w: %s", factoryID, carbon.ErrUnknownSector, sector)
	}
	if math.IsNaN(capKg) || capKg < 0 {
		return nil, fmt.Errorf("factory %s: invalid carbon cap %v", factoryID, capKg)
	}
	return &FactoryAuditState{
		factoryID: factoryID,
		sector:    sector,
		factor:    factor,
		capKg:     capKg,
		state:     StateActive,
		history:   make([]MonthlyResult, 0, carbon.MonthsPerYear),
	}, nil
}

// RecordMonth accounts for one month and returns its result.
//
// Monthly emissions are production × ProductionPerTon + energy × EnergyPerMWh,
// scaled by the energy source multiplier. Once the running total exceeds the
// cap the factory is over cap and every later month is an alert.
//
// Months must not go backwards. A month outside 1 to 12, a month earlier than
// the last recorded one, or a negative or non-finite quantity returns an
// error wrapping carbon.ErrMalformedRecord and leaves the state unchanged.
//
// Repeating the last recorded month is accepted and adds to the total again,
// which happens when a scaled outlier keeps a duplicated row from being
// deduplicated. Callers that need strictly increasing months can compare
// in.Month with LastMonth first; the Engine logs a warning for each repeat.
func (s *FactoryAuditState) RecordMonth(in MonthInput) (MonthlyResult, error) {
	if err := s.validate(in); err != nil {
		return MonthlyResult{}, err
	}

	monthly := carbon.CalculateMonthlyEmissionsKg(s.factor, in.ProductionTons, in.EnergyUsedMWh, in.EnergySource)
	s.totalKg += monthly
	s.lastMonth = in.Month

	if s.totalKg > s.capKg {
		s.state = StateOverCap
	}

	result := MonthlyResult{
		FactoryID:          s.factoryID,
		Sector:             s.sector,
		Month:              in.Month,
		MonthlyEmissionsKg: carbon.Round2(monthly),
		TotalEmissionsKg:   carbon.Round2(s.totalKg),
		Status:             StatusOK,
	}
	if s.state == StateOverCap {
		result.Status = StatusAlert
		result.AlertMessage = fmt.Sprintf("Carbon cap exceeded! Total: %.0f kg CO2 (cap: %.0f kg)", s.totalKg, s.capKg)
	}

	s.history = append(s.history, result)
	return result, nil
}

func (s *FactoryAuditState) validate(in MonthInput) error {
	if in.Month < 1 || in.Month > carbon.MonthsPerYear {
		return fmt.Errorf("factory %s: %w: month %d outside 1-%d", s.factoryID, carbon.ErrMalformedRecord, in.Month, carbon.MonthsPerYear)
	}
	if in.Month < s.lastMonth {
		return fmt.Errorf("factory %s: %w: month %d recorded after month %d", s.factoryID, carbon.ErrMalformedRecord, in.Month, s.lastMonth)
	}
	if err := s.checkQuantity(in.Month, "production_tons", in.ProductionTons); err != nil {
		return err
	}
	return s.checkQuantity(in.Month, "energy_used_mwh", in.EnergyUsedMWh)
}

func (s *FactoryAuditState) checkQuantity(month int, name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("factory %s month %d: %w: %s=%v", s.factoryID, month, carbon.ErrMalformedRecord, name, v)
	}
	return nil
}

// FactoryID returns the factory identifier.
func (s *FactoryAuditState) FactoryID() string { return s.factoryID }

// Sector returns the factory's sector.
func (s *FactoryAuditState) Sector() carbon.Sector { return s.sector }

// CapKg returns the configured carbon cap.
func (s *FactoryAuditState) CapKg() float64 { return s.capKg }

// State returns ACTIVE until the cap is first exceeded, then OVER-CAP.
func (s *FactoryAuditState) State() State { return s.state }

// LastMonth returns the most recently recorded month, or 0.
func (s *FactoryAuditState) LastMonth() int { return s.lastMonth }

// TotalEmissionsKg returns the running total rounded to 2 decimals.
func (s *FactoryAuditState) TotalEmissionsKg() float64 {
	return carbon.Round2(s.totalKg)
}

// AlertsCount returns the number of recorded months with an ALERT status.
func (s *FactoryAuditState) AlertsCount() int {
	n := 0
	for _, r := range s.history {
		if r.Status == StatusAlert {
			n++
		}
	}
	return n
}

// MaxMonthlyEmissionsKg returns the largest single-month result, or 0 with no
// history.
func (s *FactoryAuditState) MaxMonthlyEmissionsKg() float64 {
	var peak float64
	for _, r := range s.history {
		peak = max(peak, r.MonthlyEmissionsKg)
	}
	return peak
}

// History returns a copy of the recorded results in recording order.
func (s *FactoryAuditState) History() []MonthlyResult {
	return slices.Clone(s.history)
}
