package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rshade/carbontrace/internal/carbon"
)

// ReadOptions controls Read.
type ReadOptions struct {
	Layout Layout

	// SkipMalformed collects unparseable rows in ReadResult.Skipped instead
	// of failing on the first one.
	SkipMalformed bool
}

// ReadResult holds the parsed records and, with SkipMalformed, the rows that
// were skipped.
type ReadResult struct {
	Records []carbon.MonthlyRecord
	Skipped []*RecordError
}

// ReadFile reads the record CSV at path.
func ReadFile(path string, opts ReadOptions) (ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReadResult{}, fmt.Errorf("open records %s: %w", path, err)
	}
	defer f.Close()

	res, err := Read(f, opts)
	if err != nil {
		return ReadResult{}, fmt.Errorf("read records %s: %w", path, err)
	}
	return res, nil
}

// Read parses a record CSV. The header must contain factory_id, sector,
// month, energy_used_mwh and the layout's production column; a missing column
// fails with a *RecordError on line 1. Optional columns may be absent, and
// empty or "NaN" cells are missing values.
func Read(src io.Reader, opts ReadOptions) (ReadResult, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ReadResult{}, &RecordError{Line: 1, Err: errors.New("empty file")}
		}
		return ReadResult{}, &RecordError{Line: 1, Err: err}
	}

	cols, err := indexHeader(header, opts.Layout)
	if err != nil {
		return ReadResult{}, err
	}

	var res ReadResult
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A broken quote or similar leaves the rest of the file unreliable.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return ReadResult{}, &RecordError{Line: parseErr.StartLine, Err: parseErr.Err}
			}
			return ReadResult{}, fmt.Errorf("read records: %w", err)
		}
		line, _ := reader.FieldPos(0)

		rec, err := cols.parse(row)
		if err != nil {
			var recErr *RecordError
			if !errors.As(err, &recErr) {
				recErr = &RecordError{Err: err}
			}
			recErr.Line = line
			if !opts.SkipMalformed {
				return ReadResult{}, recErr
			}
			res.Skipped = append(res.Skipped, recErr)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// columns maps field names to row indexes; -1 marks an absent optional column.
type columns struct {
	factoryID, sector, country, month int
	production, energy, source        int
	rawMaterial, emissions            int
	productionName                    string
}

func indexHeader(header []string, layout Layout) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	lookup := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}

	prod := layout.ProductionColumn()
	for _, required := range []string{ColFactoryID, ColSector, ColMonth, prod, ColEnergy} {
		if _, ok := idx[required]; ok {
			continue
		}
		err := fmt.Errorf("missing required column for %s layout", layout)
		if required == ColMonthlyProd {
			if _, ok := idx[ColProduction]; ok {
				err = fmt.Errorf("found %s; audit input must use %s", ColProduction, ColMonthlyProd)
			}
		}
		return columns{}, &RecordError{Line: 1, Column: required, Err: err}
	}

	return columns{
		factoryID:      lookup(ColFactoryID),
		sector:         lookup(ColSector),
		country:        lookup(ColCountry),
		month:          lookup(ColMonth),
		production:     lookup(prod),
		energy:         lookup(ColEnergy),
		source:         lookup(ColEnergySource),
		rawMaterial:    lookup(ColRawMaterial),
		emissions:      lookup(ColEmissions),
		productionName: prod,
	}, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columns) parse(row []string) (carbon.MonthlyRecord, error) {
	fail := func(col string, err error) (carbon.MonthlyRecord, error) {
		return carbon.MonthlyRecord{}, &RecordError{Column: col, Err: err}
	}

	rec := carbon.MonthlyRecord{
		FactoryID: cell(row, c.factoryID),
		Country:   cell(row, c.country),
	}
	if rec.FactoryID == "" {
		return fail(ColFactoryID, errors.New("empty factory id"))
	}

	var err error
	if rec.Sector, err = carbon.ParseSector(cell(row, c.sector)); err != nil {
		return fail(ColSector, err)
	}
	if rec.Month, err = parseMonth(cell(row, c.month)); err != nil {
		return fail(ColMonth, err)
	}

	prod := cell(row, c.production)
	if missingCell(prod) {
		return fail(c.productionName, errors.New("missing value"))
	}
	if rec.ProductionTons, err = parseFloat(prod); err != nil {
		return fail(c.productionName, err)
	}

	if rec.EnergyUsedMWh, err = parseQuantity(cell(row, c.energy)); err != nil {
		return fail(ColEnergy, err)
	}
	if rec.EnergySource, err = carbon.ParseEnergySource(cell(row, c.source)); err != nil {
		return fail(ColEnergySource, err)
	}
	if rec.RawMaterialTons, err = parseQuantity(cell(row, c.rawMaterial)); err != nil {
		return fail(ColRawMaterial, err)
	}
	if rec.CO2EmissionsKg, err = parseQuantity(cell(row, c.emissions)); err != nil {
		return fail(ColEmissions, err)
	}
	return rec, nil
}
