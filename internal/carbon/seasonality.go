package carbon

import "math"

// SeasonalFactor returns the production multiplier for a month:
//
//	1 + amplitude × sin(2π × (month − phase) / 12)
//
// using the sector's amplitude and phase. Invalid sectors return 1.0.
// The result always lies in [1 − amplitude, 1 + amplitude].
func SeasonalFactor(month int, sector Sector) float64 {
	if !sector.Valid() {
		return 1.0
	}
	amplitude, phase := sector.Seasonality()
	return 1 + amplitude*math.Sin(2*math.Pi*(float64(month)-phase)/MonthsPerYear)
}

// Clamp restricts a value to the range [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
