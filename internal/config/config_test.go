package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbontrace/internal/carbon"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultCapKg, cfg.DefaultCapKg)
	assert.Equal(t, carbon.DefaultCountries, cfg.Intensity.Countries)
	assert.Nil(t, cfg.Generator.Seed)
	assert.Equal(t, uint64(42), cfg.Injector.Seed)
	assert.Equal(t, 0.05, cfg.Injector.MissingFraction)
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "carbontrace.yaml",
			content: `caps_by_sector:
  Steel: 80000
  Textile: 20000
  Electronics: 9000
generator:
  factories: 10
  seed: 7
audit:
  workers: 4
`,
		},
		{
			name: "json",
			file: "sectors.json",
			content: `{
  "caps_by_sector": {"Steel": 80000, "Textile": 20000, "Electronics": 9000},
  "generator": {"factories": 10, "seed": 7},
  "audit": {"workers": 4}
}`,
		},
		{
			name: "toml",
			file: "carbontrace.toml",
			content: `[caps_by_sector]
Steel = 80000.0
Textile = 20000.0
Electronics = 9000.0

[generator]
factories = 10
seed = 7

[audit]
workers = 4
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, 80000.0, cfg.CapsBySector["Steel"])
			assert.Equal(t, 9000.0, cfg.CapsBySector["Electronics"])
			assert.Equal(t, 10, cfg.Generator.Factories)
			require.NotNil(t, cfg.Generator.Seed)
			assert.Equal(t, uint64(7), *cfg.Generator.Seed)
			assert.Equal(t, 4, cfg.Audit.Workers)

			// Untouched sections keep their defaults.
			assert.Equal(t, carbon.DefaultMinYear, cfg.Intensity.MinYear)
			assert.True(t, cfg.Injector.Enabled)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown extension", "config.ini", "x=1", "unsupported config format"},
		{"unknown key", "c.yaml", "caps: {}\n", "caps"},
		{"unknown sector", "c.json", `{"caps_by_sector": {"Plastics": 10}}`, "unknown sector"},
		{"negative cap", "c.yaml", "caps_by_sector:\n  Steel: -1\n", "caps_by_sector.Steel"},
		{"bad fraction", "c.toml", "[injector]\nmissing_fraction = 1.5\n", "missing_fraction"},
		{"too many duplicates", "c.yaml", "injector:\n  duplicates: 1000001\n", "injector.duplicates"},
		{"negative outliers", "c.toml", "[injector]\noutliers = -1\n", "injector.outliers"},
		{"bad level", "c.yaml", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "c.yaml", "logging:\n  format: xml\n", "logging.format"},
		{"zero weights", "c.yaml", "generator:\n  sector_weights:\n    Steel: 0\n", "sector_weights"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyPathAndEmptyFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)

	cfg, err = Load(writeConfig(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvSeed, "2026")
	t.Setenv(EnvWorkers, "3")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg := Default()
	cfg.ApplyEnv(zerolog.Nop())

	require.NotNil(t, cfg.Generator.Seed)
	assert.Equal(t, uint64(2026), *cfg.Generator.Seed)
	assert.Equal(t, 3, cfg.Audit.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnv_InvalidValuesWarnAndKeepDefaults(t *testing.T) {
	t.Setenv(EnvSeed, "-4")
	t.Setenv(EnvWorkers, "many")
	t.Setenv(EnvLogLevel, "chatty")

	var buf bytes.Buffer
	cfg := Default()
	cfg.ApplyEnv(zerolog.New(&buf))

	assert.Nil(t, cfg.Generator.Seed)
	assert.Zero(t, cfg.Audit.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 3, strings.Count(buf.String(), `"level":"warn"`))
	assert.Contains(t, buf.String(), EnvWorkers)
}

func TestSectorWeights(t *testing.T) {
	cfg := Default()
	w, err := cfg.SectorWeights()
	require.NoError(t, err)
	assert.Nil(t, w)

	cfg.Generator.SectorWeights = map[string]float64{"steel": 2, "Textile": 1}
	w, err = cfg.SectorWeights()
	require.NoError(t, err)
	assert.Equal(t, map[carbon.Sector]float64{carbon.SectorSteel: 2, carbon.SectorTextile: 1}, w)
}

func TestCapTable(t *testing.T) {
	cfg := Default()
	delete(cfg.CapsBySector, "Electronics")

	var buf bytes.Buffer
	caps := cfg.Caps(zerolog.New(&buf))

	assert.Equal(t, 60_000.0, caps.CapFor(carbon.SectorSteel))
	assert.Equal(t, 15_000.0, caps.CapFor(carbon.SectorTextile))
	assert.Empty(t, buf.String(), "configured sectors do not warn")
	assert.Empty(t, caps.FallbackSectors())

	assert.Equal(t, DefaultCapKg, caps.CapFor(carbon.SectorElectronics))
	assert.Equal(t, DefaultCapKg, caps.CapFor(carbon.SectorElectronics))

	assert.Equal(t, 1, strings.Count(buf.String(), "no carbon cap configured"), "warns once per sector")
	assert.Contains(t, buf.String(), `"sector":"Electronics"`)
	assert.Equal(t, []carbon.Sector{carbon.SectorElectronics}, caps.FallbackSectors())
}

func TestCapTable_ConcurrentFallback(t *testing.T) {
	cfg := Default()
	cfg.CapsBySector = nil

	var buf syncBuffer
	caps := cfg.Caps(zerolog.New(&buf))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, s := range carbon.Sectors() {
				assert.Equal(t, DefaultCapKg, caps.CapFor(s))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, strings.Count(buf.String(), "no carbon cap configured"))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
