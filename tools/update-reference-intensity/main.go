// Package main refreshes the embedded reference intensity dataset.
//
// The tool downloads the Our World in Data CO2 dataset, keeps the rows for the
// requested countries from the minimum year onward, and writes the columns the
// intensity resolver reads to internal/intensity/data/reference_intensity.csv.
//
// Usage:
//
//	go run ./tools/update-reference-intensity [--out-dir DIR] [--countries LIST] [--min-year YEAR]
//
// Flags:
//
//	--source     Dataset URL (default: OWID co2-data on GitHub)
//	--out-dir    Output directory (default: ./internal/intensity/data)
//	--countries  Comma-separated countries (default: the auditor's default countries)
//	--min-year   First year kept (default: 2018)
//	--validate   Require a usable rate for every requested country
package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rshade/carbontrace/internal/carbon"
)

const (
	// owidDataURL is the raw GitHub URL of the OWID CO2 dataset.
	// Source: https://github.com/owid/co2-data
	// License: CC BY 4.0
	owidDataURL = "https://raw.githubusercontent.com/owid/co2-data/master/owid-co2-data.csv"

	outputFileName = "reference_intensity.csv"
)

// outputColumns is the header written, in order.
var outputColumns = []string{"country", "year", "iso_code", "co2", "co2_per_unit_energy"}

// filterStats describes one filtering pass.
type filterStats struct {
	Rows  int
	Rated map[string]int // usable co2_per_unit_energy rows per country
}

func main() {
	source := flag.String("source", owidDataURL, "Reference dataset URL")
	outDir := flag.String("out-dir", "./internal/intensity/data", "Output directory for the CSV file")
	countryList := flag.String("countries", strings.Join(carbon.DefaultCountries, ","), "Comma-separated countries to keep")
	minYear := flag.Int("min-year", carbon.DefaultMinYear, "First year to keep")
	validate := flag.Bool("validate", true, "Require a usable rate for every requested country")
	flag.Parse()

	countries := splitList(*countryList)
	if len(countries) == 0 {
		fmt.Fprintln(os.Stderr, "Error: --countries is empty")
		os.Exit(1)
	}

	fmt.Println("Fetching reference CO2 dataset...")
	fmt.Printf("Source: %s\n", *source)

	data, err := fetch(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching dataset: %v\n", err)
		os.Exit(1)
	}

	var out bytes.Buffer
	stats, err := filterReference(bytes.NewReader(data), &out, countries, *minYear)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error filtering dataset: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Kept %d rows for %d countries from %d onward\n", stats.Rows, len(countries), *minYear)

	if *validate {
		if err := validateStats(stats, countries); err != nil {
			fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Validation passed")
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	outPath := filepath.Join(*outDir, outputFileName)
	if err := os.WriteFile(outPath, out.Bytes(), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully wrote %s (%d bytes)\n", outPath, out.Len())
}

func fetch(url string) ([]byte, error) {
	client := &http.Client{
		Timeout: 60 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// filterReference copies the rows of src for countries with year >= minYear
// to w, reduced to outputColumns. Columns missing from src are written blank,
// except country, year and co2_per_unit_energy, which are required.
func filterReference(src io.Reader, w io.Writer, countries []string, minYear int) (filterStats, error) {
	stats := filterStats{Rated: make(map[string]int, len(countries))}

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return stats, fmt.Errorf("failed to read CSV header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"country", "year", "co2_per_unit_energy"} {
		if _, ok := index[required]; !ok {
			return stats, fmt.Errorf("dataset has no %q column", required)
		}
	}

	keep := make(map[string]bool, len(countries))
	for _, c := range countries {
		keep[c] = true
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(outputColumns); err != nil {
		return stats, err
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read CSV row: %w", err)
		}

		country := column(record, index, "country")
		if !keep[country] {
			continue
		}
		year, err := strconv.Atoi(column(record, index, "year"))
		if err != nil || year < minYear {
			continue
		}

		row := make([]string, len(outputColumns))
		for i, name := range outputColumns {
			row[i] = column(record, index, name)
		}
		if err := writer.Write(row); err != nil {
			return stats, err
		}
		stats.Rows++

		if rate, err := strconv.ParseFloat(column(record, index, "co2_per_unit_energy"), 64); err == nil && rate >= 0 {
			stats.Rated[country]++
		}
	}

	writer.Flush()
	return stats, writer.Error()
}

// validateStats checks every requested country has at least one usable rate.
func validateStats(stats filterStats, countries []string) error {
	var missing []string
	for _, c := range countries {
		if stats.Rated[c] == 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("no usable co2_per_unit_energy rows for %s", strings.Join(missing, ", "))
	}
	return nil
}

func column(record []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
