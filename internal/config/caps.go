package config

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/rshade/carbontrace/internal/carbon"
)

// CapTable resolves sector caps for the audit engine. It is safe for
// concurrent use.
type CapTable struct {
	caps       map[carbon.Sector]float64
	defaultCap float64
	logger     zerolog.Logger

	mu     sync.Mutex
	warned map[carbon.Sector]bool
}

// Caps builds a CapTable from c. Call Validate first; sector names that do
// not parse are ignored here.
func (c *Config) Caps(logger zerolog.Logger) *CapTable {
	t := &CapTable{
		caps:       make(map[carbon.Sector]float64, len(c.CapsBySector)),
		defaultCap: c.DefaultCapKg,
		logger:     logger,
		warned:     make(map[carbon.Sector]bool),
	}
	if t.defaultCap <= 0 {
		t.defaultCap = DefaultCapKg
	}
	for name, capKg := range c.CapsBySector {
		if sector, err := carbon.ParseSector(name); err == nil {
			t.caps[sector] = capKg
		}
	}
	return t
}

// CapFor returns the sector's configured cap. An unconfigured sector gets the
// default cap, and the first lookup for it logs a warning.
func (t *CapTable) CapFor(sector carbon.Sector) float64 {
	if capKg, ok := t.caps[sector]; ok {
		return capKg
	}

	t.mu.Lock()
	first := !t.warned[sector]
	t.warned[sector] = true
	t.mu.Unlock()

	if first {
		t.logger.Warn().
			Str("sector", sector.String()).
			Float64("default_cap_kg", t.defaultCap).
			Msg("no carbon cap configured for sector, using default")
	}
	return t.defaultCap
}

// FallbackSectors returns the sectors that have used the default cap so far,
// in declaration order.
func (t *CapTable) FallbackSectors() []carbon.Sector {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []carbon.Sector
	for _, s := range carbon.Sectors() {
		if t.warned[s] {
			out = append(out, s)
		}
	}
	return out
}
