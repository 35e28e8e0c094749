package carbon

// CalculateMonthlyEmissionsKg applies the sector accounting formula to one
// month of activity.
//
// The calculation:
//  1. Production emissions = production (t) × factor.ProductionPerTon
//  2. Energy emissions = energy (MWh) × factor.EnergyPerMWh
//  3. Monthly emissions = (1 + 2) × source multiplier (coal 1.2, renewable 0.7, else 1.0)
//
// Returns kg CO2, unrounded.
func CalculateMonthlyEmissionsKg(factor EmissionFactor, productionTons, energyMWh float64, source EnergySource) float64 {
	emissions := productionTons*factor.ProductionPerTon + energyMWh*factor.EnergyPerMWh
	return emissions * source.Multiplier()
}

// CalculateSyntheticEmissionsKg estimates emissions from energy use and the
// country's grid intensity, scaled by the sector's synthetic multiplier.
// This is the formula the generator uses and the cleaner recomputes; it is
// not the accounting formula.
func CalculateSyntheticEmissionsKg(energyMWh, intensityKgPerMWh float64, sector Sector) float64 {
	return energyMWh * intensityKgPerMWh * sector.SyntheticMultiplier()
}
