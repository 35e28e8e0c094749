package carbon

// Quantity is an optional measurement. Valid is false when the source left
// the value blank. Missing values are never represented as NaN so records
// stay comparable with ==.
type Quantity struct {
	Value float64
	Valid bool
}

// Some returns a present Quantity.
func Some(v float64) Quantity {
	return Quantity{Value: v, Valid: true}
}

// Missing returns an absent Quantity.
func Missing() Quantity {
	return Quantity{}
}

// Or returns the value, or def when the quantity is missing.
func (q Quantity) Or(def float64) float64 {
	if !q.Valid {
		return def
	}
	return q.Value
}

// MonthlyRecord is one factory's production and energy data for one month.
// It is comparable; two records are exact duplicates iff they are ==.
type MonthlyRecord struct {
	// FactoryID is the stable factory identifier (e.g., "FAC_001").
	FactoryID string

	// Sector determines emission coefficients and seasonality.
	Sector Sector

	// Country is the geographic anchor used to look up intensity. Optional.
	Country string

	// Month is the calendar month, 1 to 12.
	Month int

	// ProductionTons is the month's production output.
	ProductionTons float64

	// EnergyUsedMWh may be missing before cleaning.
	EnergyUsedMWh Quantity

	// EnergySource is the dominant source reported for the month. Optional.
	EnergySource EnergySource

	// RawMaterialTons is the raw material weight consumed. Optional.
	RawMaterialTons Quantity

	// CO2EmissionsKg is derived. Input values are discarded by cleaning.
	CO2EmissionsKg Quantity
}

// CleanRecord is a MonthlyRecord that passed cleaning, with the diagnostic
// fields computed from its recomputed emissions.
type CleanRecord struct {
	MonthlyRecord

	// EmissionPerMWh is CO2EmissionsKg / EnergyUsedMWh.
	EmissionPerMWh float64

	// EnergyPerTon is EnergyUsedMWh / ProductionTons.
	EnergyPerTon float64

	// IntensityDiff is EmissionPerMWh minus the country's baseline intensity.
	IntensityDiff float64
}
