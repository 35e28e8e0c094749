package intensity

import (
	"maps"
	"slices"
)

// Table maps a country to its emission intensity in kg CO2 per MWh.
// Treat a resolved Table as read-only; use Clone before modifying.
type Table map[string]float64

// Lookup returns the intensity for country. A nil Table has no entries.
func (t Table) Lookup(country string) (float64, bool) {
	v, ok := t[country]
	return v, ok
}

// Countries returns the table's countries sorted alphabetically.
func (t Table) Countries() []string {
	return slices.Sorted(maps.Keys(t))
}

// Clone returns an independent copy of t.
func (t Table) Clone() Table {
	return maps.Clone(t)
}
