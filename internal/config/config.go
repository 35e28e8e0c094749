// Package config loads carbontrace settings from YAML, JSON or TOML files and
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rshade/carbontrace/internal/carbon"
	"github.com/rshade/carbontrace/internal/generator"
	"github.com/rshade/carbontrace/internal/intensity"
)

// Environment overrides.
const (
	EnvSeed     = "CARBONTRACE_SEED"
	EnvWorkers  = "CARBONTRACE_WORKERS"
	EnvLogLevel = "CARBONTRACE_LOG_LEVEL"
)

// DefaultCapKg is the cap applied to a sector with no configured cap.
const DefaultCapKg = 1_000_000.0

// Config is the complete carbontrace configuration.
type Config struct {
	// CapsBySector maps sector names to annual carbon caps in kg.
	CapsBySector map[string]float64 `yaml:"caps_by_sector" json:"caps_by_sector" toml:"caps_by_sector"`

	// DefaultCapKg applies to sectors missing from CapsBySector.
	DefaultCapKg float64 `yaml:"default_cap_kg" json:"default_cap_kg" toml:"default_cap_kg"`

	Intensity IntensityConfig `yaml:"intensity" json:"intensity" toml:"intensity"`
	Generator GeneratorConfig `yaml:"generator" json:"generator" toml:"generator"`
	Injector  InjectorConfig  `yaml:"injector" json:"injector" toml:"injector"`
	Audit     AuditConfig     `yaml:"audit" json:"audit" toml:"audit"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging" toml:"logging"`
}

// IntensityConfig controls the intensity resolver.
type IntensityConfig struct {
	Countries  []string `yaml:"countries" json:"countries" toml:"countries"`
	MinYear    int      `yaml:"min_year" json:"min_year" toml:"min_year"`
	RateColumn string   `yaml:"rate_column" json:"rate_column" toml:"rate_column"`

	// EmbeddedFallback fills countries the reference file lacks from the
	// bundled reference dataset.
	EmbeddedFallback bool `yaml:"embedded_fallback" json:"embedded_fallback" toml:"embedded_fallback"`
}

// GeneratorConfig controls synthetic record generation.
type GeneratorConfig struct {
	Factories int `yaml:"factories" json:"factories" toml:"factories"`

	// Seed makes generation reproducible. Nil draws a fresh seed per run.
	Seed *uint64 `yaml:"seed" json:"seed" toml:"seed"`

	// SectorWeights optionally replaces uniform sector assignment.
	SectorWeights map[string]float64 `yaml:"sector_weights" json:"sector_weights" toml:"sector_weights"`
}

// InjectorConfig controls dirty-data injection.
type InjectorConfig struct {
	Enabled         bool    `yaml:"enabled" json:"enabled" toml:"enabled"`
	Seed            uint64  `yaml:"seed" json:"seed" toml:"seed"`
	MissingFraction float64 `yaml:"missing_fraction" json:"missing_fraction" toml:"missing_fraction"`
	Duplicates      int     `yaml:"duplicates" json:"duplicates" toml:"duplicates"`
	Outliers        int     `yaml:"outliers" json:"outliers" toml:"outliers"`
	OutlierFactor   float64 `yaml:"outlier_factor" json:"outlier_factor" toml:"outlier_factor"`
}

// AuditConfig controls the accounting engine.
type AuditConfig struct {
	// Workers bounds concurrently audited factories. Zero means one per CPU.
	Workers int `yaml:"workers" json:"workers" toml:"workers"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" toml:"level"`

	// Format is "auto", "console" or "json". Auto picks console output on a
	// terminal.
	Format string `yaml:"format" json:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	inj := generator.DefaultInjectorOptions()
	return Config{
		CapsBySector: map[string]float64{
			carbon.SectorSteel.String():       60_000,
			carbon.SectorTextile.String():     15_000,
			carbon.SectorElectronics.String(): 10_000,
		},
		DefaultCapKg: DefaultCapKg,
		Intensity: IntensityConfig{
			Countries:        slices.Clone(carbon.DefaultCountries),
			MinYear:          carbon.DefaultMinYear,
			RateColumn:       intensity.DefaultRateColumn,
			EmbeddedFallback: true,
		},
		Generator: GeneratorConfig{
			Factories: generator.DefaultFactories,
		},
		Injector: InjectorConfig{
			Enabled:         true,
			Seed:            generator.DefaultInjectorSeed,
			MissingFraction: inj.MissingFraction,
			Duplicates:      inj.Duplicates,
			Outliers:        inj.Outliers,
			OutlierFactor:   inj.OutlierFactor,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads the file at path over Default and validates the result. The
// format follows the extension: .yaml/.yml, .json or .toml. Unknown keys are
// rejected. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := decode(path, raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func decode(path string, raw []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .json or .toml)", ext)
	}
}

// ApplyEnv applies environment overrides. Invalid values are logged at warn
// level and ignored.
func (c *Config) ApplyEnv(logger zerolog.Logger) {
	if v, ok := os.LookupEnv(EnvSeed); ok && v != "" {
		if seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			c.Generator.Seed = &seed
		} else {
			logger.Warn().Str("value", v).Msgf("invalid %s, ignoring", EnvSeed)
		}
	}

	if v, ok := os.LookupEnv(EnvWorkers); ok && v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			c.Audit.Workers = n
		} else {
			logger.Warn().Str("value", v).Msgf("invalid %s, ignoring", EnvWorkers)
		}
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(v))); err == nil {
			c.Logging.Level = strings.ToLower(strings.TrimSpace(v))
		} else {
			logger.Warn().Str("value", v).Msgf("invalid %s, ignoring", EnvLogLevel)
		}
	}
}

// SectorWeights returns the configured generator sector weights, or nil.
func (c *Config) SectorWeights() (map[carbon.Sector]float64, error) {
	if len(c.Generator.SectorWeights) == 0 {
		return nil, nil
	}
	out := make(map[carbon.Sector]float64, len(c.Generator.SectorWeights))
	for name, w := range c.Generator.SectorWeights {
		sector, err := carbon.ParseSector(name)
		if err != nil {
			return nil, fmt.Errorf("generator.sector_weights: %w", err)
		}
		out[sector] = w
	}
	return out, nil
}

// InjectorOptions converts the injector settings.
func (c *Config) InjectorOptions() generator.InjectorOptions {
	return generator.InjectorOptions{
		MissingFraction: c.Injector.MissingFraction,
		Duplicates:      c.Injector.Duplicates,
		Outliers:        c.Injector.Outliers,
		OutlierFactor:   c.Injector.OutlierFactor,
	}
}
