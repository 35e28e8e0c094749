package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rshade/carbontrace/internal/carbon"
	"github.com/rshade/carbontrace/internal/generator"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCaps(); err != nil {
		return err
	}
	if err := c.validateIntensity(); err != nil {
		return err
	}
	if err := c.validateGenerator(); err != nil {
		return err
	}
	if err := c.validateInjector(); err != nil {
		return err
	}
	if c.Audit.Workers < 0 {
		return errors.New("audit.workers must be >= 0")
	}
	return c.validateLogging()
}

func (c *Config) validateCaps() error {
	for name, capKg := range c.CapsBySector {
		if _, err := carbon.ParseSector(name); err != nil {
			return fmt.Errorf("caps_by_sector: %w", err)
		}
		if !finite(capKg) || capKg < 0 {
			return fmt.Errorf("caps_by_sector.%s must be a non-negative number, got %v", name, capKg)
		}
	}
	if !finite(c.DefaultCapKg) || c.DefaultCapKg <= 0 {
		return fmt.Errorf("default_cap_kg must be positive, got %v", c.DefaultCapKg)
	}
	return nil
}

func (c *Config) validateIntensity() error {
	if c.Intensity.MinYear < 0 {
		return errors.New("intensity.min_year must be >= 0")
	}
	for _, country := range c.Intensity.Countries {
		if strings.TrimSpace(country) == "" {
			return errors.New("intensity.countries must not contain empty names")
		}
	}
	return nil
}

func (c *Config) validateGenerator() error {
	if c.Generator.Factories < 0 {
		return errors.New("generator.factories must be >= 0")
	}
	var total float64
	for name, w := range c.Generator.SectorWeights {
		if _, err := carbon.ParseSector(name); err != nil {
			return fmt.Errorf("generator.sector_weights: %w", err)
		}
		if !finite(w) || w < 0 {
			return fmt.Errorf("generator.sector_weights.%s must be a non-negative number, got %v", name, w)
		}
		total += w
	}
	if len(c.Generator.SectorWeights) > 0 && total <= 0 {
		return errors.New("generator.sector_weights must not all be zero")
	}
	return nil
}

func (c *Config) validateInjector() error {
	inj := c.Injector
	if !finite(inj.MissingFraction) || inj.MissingFraction < 0 || inj.MissingFraction > 1 {
		return errors.New("injector.missing_fraction must be between 0 and 1")
	}
	if inj.Duplicates < 0 || inj.Outliers < 0 {
		return errors.New("injector.duplicates and injector.outliers must be >= 0")
	}
	if inj.Duplicates > generator.MaxInjectedRows || inj.Outliers > generator.MaxInjectedRows {
		return fmt.Errorf("injector.duplicates and injector.outliers must be <= %d", generator.MaxInjectedRows)
	}
	if !finite(inj.OutlierFactor) || inj.OutlierFactor <= 0 {
		return errors.New("injector.outlier_factor must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "", "auto", "console", "json":
		return nil
	}
	return fmt.Errorf("logging.format must be auto, console or json, got %q", c.Logging.Format)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
