package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rshade/carbontrace/internal/carbon"
)

// Write writes records with the given layout's header. Values are written at
// full precision, so writing the same records always yields the same bytes.
func Write(w io.Writer, layout Layout, records []carbon.MonthlyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(layout.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range records {
		if err := cw.Write(recordRow(&records[i])); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteClean writes cleaned records in the audit layout followed by the
// diagnostic columns.
func WriteClean(w io.Writer, records []carbon.CleanRecord) error {
	cw := csv.NewWriter(w)
	header := append(LayoutAudit.Columns(), DiagnosticColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range records {
		r := &records[i]
		row := append(recordRow(&r.MonthlyRecord),
			formatFloat(r.EmissionPerMWh),
			formatFloat(r.EnergyPerTon),
			formatFloat(r.IntensityDiff),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes records to path, creating parent directories.
func WriteFile(path string, layout Layout, records []carbon.MonthlyRecord) error {
	return writeFile(path, func(w io.Writer) error {
		return Write(w, layout, records)
	})
}

// WriteCleanFile writes cleaned records to path, creating parent directories.
func WriteCleanFile(path string, records []carbon.CleanRecord) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteClean(w, records)
	})
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func recordRow(r *carbon.MonthlyRecord) []string {
	return []string{
		r.FactoryID,
		r.Sector.String(),
		r.Country,
		strconv.Itoa(r.Month),
		formatFloat(r.ProductionTons),
		formatQuantity(r.EnergyUsedMWh),
		string(r.EnergySource),
		formatQuantity(r.RawMaterialTons),
		formatQuantity(r.CO2EmissionsKg),
	}
}
