// Package carbon holds the domain vocabulary shared by every stage of the
// emission audit: sectors and their coefficients, energy sources, monthly
// records and the sentinel errors.
package carbon

const (
	// TonnesToKg converts the reference dataset's per-unit-energy rate to
	// kg CO2 per MWh.
	TonnesToKg = 1000.0

	// DefaultMinYear is the first year of reference observations averaged
	// into a country's intensity.
	DefaultMinYear = 2018

	// ProductionFloorTons is the minimum synthetic monthly production after
	// seasonal scaling. Keeps generated rows strictly positive.
	ProductionFloorTons = 10.0

	// MinEnergyPerTon and MaxEnergyPerTon bound the uniform MWh-per-ton
	// multiplier the generator applies to production.
	MinEnergyPerTon = 2.5
	MaxEnergyPerTon = 4.5

	// MinRawMaterialRatio and MaxRawMaterialRatio bound raw material weight
	// as a multiple of production.
	MinRawMaterialRatio = 1.1
	MaxRawMaterialRatio = 1.3

	// MonthsPerYear is the audit period length.
	MonthsPerYear = 12
)

// DefaultCountries is the allow-list of industrial economies used when no
// other list is configured.
var DefaultCountries = []string{"India", "China", "Germany", "United States", "Japan"}
