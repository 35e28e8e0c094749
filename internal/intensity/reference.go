package intensity

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Reference observations for the default countries, a subset of the Our
// World in Data CO2 dataset. Refresh with:
//
//	go run ./tools/update-reference-intensity
//
//go:embed data/reference_intensity.csv
var referenceCSV string

var (
	logger = zerolog.Nop()

	defaultTable     Table
	defaultTableErr  error
	defaultTableOnce sync.Once
)

// SetLogger sets the logger used while resolving the embedded reference data.
func SetLogger(l zerolog.Logger) {
	logger = l
}

func resolveDefaultTable() {
	defaultTable, defaultTableErr = NewResolver(logger).Resolve(strings.NewReader(referenceCSV))
	if defaultTableErr != nil {
		logger.Error().Err(defaultTableErr).Msg("failed to resolve embedded reference intensity data")
	}
}

// DefaultTable returns the intensity table resolved from the embedded
// reference data with the default countries and minimum year. It is parsed
// once; each call returns a fresh copy.
func DefaultTable() (Table, error) {
	defaultTableOnce.Do(resolveDefaultTable)
	if defaultTableErr != nil {
		return nil, defaultTableErr
	}
	return defaultTable.Clone(), nil
}

// ReferenceCSV returns the raw embedded reference dataset.
func ReferenceCSV() string {
	return referenceCSV
}
