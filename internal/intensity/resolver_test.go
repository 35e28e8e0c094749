package intensity

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbontrace/internal/carbon"
)

const smallOWID = `country,year,co2_per_unit_energy
India,2017,0.900
India,2020,0.7
India,2021,0.5
China,2020,0.8
China,2022,
France,2020,0.1
`

func TestResolver_Resolve_MeanFromMinYear(t *testing.T) {
	r := NewResolver(zerolog.Nop())
	r.Countries = []string{"India", "China"}

	table, err := r.Resolve(strings.NewReader(smallOWID))
	require.NoError(t, err)

	// 2017 excluded by MinYear; blank China 2022 rate does not qualify.
	assert.InDelta(t, 600.0, table["India"], 1e-9)
	assert.InDelta(t, 800.0, table["China"], 1e-9)
	_, hasFrance := table.Lookup("France")
	assert.False(t, hasFrance, "countries outside the allow-list are ignored")
}

func TestResolver_Resolve_MissingCountry(t *testing.T) {
	r := NewResolver(zerolog.Nop())
	r.Countries = []string{"India", "Japan", "Germany"}

	table, err := r.Resolve(strings.NewReader(smallOWID))

	require.Error(t, err)
	assert.Nil(t, table)
	assert.True(t, errors.Is(err, carbon.ErrDataUnavailable))

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, []string{"Japan", "Germany"}, unavailable.Countries)
}

func TestResolver_Resolve_Fallback(t *testing.T) {
	r := NewResolver(zerolog.Nop())
	r.Countries = []string{"India", "Japan"}
	r.Fallback = Table{"Japan": 226.5}

	table, err := r.Resolve(strings.NewReader(smallOWID))
	require.NoError(t, err)

	assert.InDelta(t, 600.0, table["India"], 1e-9)
	assert.Equal(t, 226.5, table["Japan"])
}

func TestResolver_Resolve_AllCountriesWhenNoAllowList(t *testing.T) {
	r := NewResolver(zerolog.Nop())
	r.Countries = nil

	table, err := r.Resolve(strings.NewReader(smallOWID))
	require.NoError(t, err)

	assert.Equal(t, []string{"China", "France", "India"}, table.Countries())
}

func TestResolver_Resolve_DatasetProblems(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "empty dataset",
			input:   "",
			wantErr: carbon.ErrDataUnavailable,
		},
		{
			name:    "missing rate column",
			input:   "country,year,co2\nIndia,2020,100\n",
			wantErr: carbon.ErrDataUnavailable,
		},
		{
			name:    "no rows after min year",
			input:   "country,year,co2_per_unit_energy\nIndia,2001,0.5\n",
			wantErr: carbon.ErrDataUnavailable,
		},
		{
			name:    "broken quoting",
			input:   "country,year,co2_per_unit_energy\n\"India,2020,0.5\n",
			wantErr: carbon.ErrMalformedRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(zerolog.Nop())
			r.Countries = []string{"India"}

			_, err := r.Resolve(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolver_Resolve_CustomRateColumnAndFloatYears(t *testing.T) {
	input := "Country,Year,Rate\nGermany,2019.0,0.2\nGermany,2020.0,0.4\nGermany,2020.5,9\n"
	r := NewResolver(zerolog.Nop())
	r.Countries = []string{"Germany"}
	r.RateColumn = "rate"

	table, err := r.Resolve(strings.NewReader(input))
	require.NoError(t, err)
	assert.InDelta(t, 300.0, table["Germany"], 1e-9)
}

func TestResolver_ResolveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "owid.csv")
	require.NoError(t, os.WriteFile(path, []byte(smallOWID), 0o600))

	r := NewResolver(zerolog.Nop())
	r.Countries = []string{"India"}

	table, err := r.ResolveFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 600.0, table["India"], 1e-9)

	_, err = r.ResolveFile(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, carbon.ErrDataUnavailable)
}

func TestDefaultTable(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	assert.Equal(t, []string{"China", "Germany", "India", "Japan", "United States"}, table.Countries())

	// India 2018-2023: mean(0.273, 0.270, 0.266, 0.268, 0.267, 0.265) × 1000
	assert.InDelta(t, 268.1667, table["India"], 1e-3)

	for country, v := range table {
		assert.Greater(t, v, 100.0, "%s intensity should be a plausible kg/MWh value", country)
		assert.Less(t, v, 1000.0, "%s intensity should be a plausible kg/MWh value", country)
	}

	// Callers get their own copy.
	table["India"] = 0
	again, err := DefaultTable()
	require.NoError(t, err)
	assert.NotZero(t, again["India"])
}
