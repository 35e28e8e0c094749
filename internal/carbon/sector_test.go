package carbon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSector(t *testing.T) {
	tests := []struct {
		in   string
		want Sector
	}{
		{"Steel", SectorSteel},
		{"textile", SectorTextile},
		{" ELECTRONICS ", SectorElectronics},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSector(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}

	_, err := ParseSector("Cement")
	assert.ErrorIs(t, err, ErrUnknownSector)
}

func TestSector_EmissionFactor(t *testing.T) {
	expected := map[Sector]EmissionFactor{
		SectorSteel:       {ProductionPerTon: 2.5, EnergyPerMWh: 0.6},
		SectorTextile:     {ProductionPerTon: 1.2, EnergyPerMWh: 0.4},
		SectorElectronics: {ProductionPerTon: 1.8, EnergyPerMWh: 0.5},
	}
	for sector, want := range expected {
		got, ok := sector.EmissionFactor()
		require.True(t, ok, sector.String())
		assert.Equal(t, want, got, sector.String())
	}

	_, ok := Sector(0).EmissionFactor()
	assert.False(t, ok)
	_, ok = Sector(42).EmissionFactor()
	assert.False(t, ok)
}

func TestSector_Strings(t *testing.T) {
	assert.Equal(t, "Steel", SectorSteel.String())
	assert.Equal(t, "Textile", SectorTextile.String())
	assert.Equal(t, "Electronics", SectorElectronics.String())
	assert.Equal(t, "Sector(9)", Sector(9).String())
	assert.Len(t, Sectors(), 3)
}

func TestSector_TextRoundTrip(t *testing.T) {
	text, err := SectorTextile.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Textile", string(text))

	var s Sector
	require.NoError(t, s.UnmarshalText([]byte("electronics")))
	assert.Equal(t, SectorElectronics, s)

	assert.ErrorIs(t, s.UnmarshalText([]byte("Paper")), ErrUnknownSector)
	_, err = Sector(0).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownSector)
}

func TestSector_SyntheticMultiplier(t *testing.T) {
	assert.Equal(t, 1.15, SectorSteel.SyntheticMultiplier())
	assert.Equal(t, 1.00, SectorTextile.SyntheticMultiplier())
	assert.Equal(t, 0.85, SectorElectronics.SyntheticMultiplier())
}

func TestSector_GeneratorRanges(t *testing.T) {
	for _, s := range Sectors() {
		mean, sd := s.ProductionDistribution()
		assert.Greater(t, mean, 0.0, s.String())
		assert.Greater(t, sd, 0.0, s.String())

		prod, energy := s.BaseRanges()
		assert.Less(t, prod[0], prod[1], s.String())
		assert.Less(t, energy[0], energy[1], s.String())
		assert.NotEmpty(t, s.IDPrefix())
	}
}
