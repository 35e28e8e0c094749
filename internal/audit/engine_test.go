package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbontrace/internal/carbon"
)

type capTable map[carbon.Sector]float64

func (c capTable) CapFor(sector carbon.Sector) float64 {
	if v, ok := c[sector]; ok {
		return v
	}
	return 1_000_000
}

func steelMonth(id string, month int) carbon.MonthlyRecord {
	return carbon.MonthlyRecord{
		FactoryID:      id,
		Sector:         carbon.SectorSteel,
		Month:          month,
		ProductionTons: 1000,
		EnergyUsedMWh:  carbon.Some(4000),
	}
}

func TestEngine_Run_GroupsAndOrders(t *testing.T) {
	records := []carbon.MonthlyRecord{
		steelMonth("FAC_B", 2),
		steelMonth("FAC_A", 1),
		steelMonth("FAC_B", 1),
		steelMonth("FAC_A", 2),
		steelMonth("FAC_B", 3),
	}

	run, err := NewEngine(capTable{}, 2, zerolog.Nop()).Run(context.Background(), records)
	require.NoError(t, err)

	_, err = uuid.Parse(run.ID)
	require.NoError(t, err)

	require.Len(t, run.Factories, 2)
	assert.Equal(t, "FAC_B", run.Factories[0].FactoryID(), "first-seen order")
	assert.Equal(t, "FAC_A", run.Factories[1].FactoryID())
	assert.Equal(t, 14700.0, run.Factories[0].TotalEmissionsKg())
	assert.Equal(t, 9800.0, run.Factories[1].TotalEmissionsKg())

	require.Len(t, run.Results, 5)
	var order []string
	for _, r := range run.Results {
		order = append(order, fmt.Sprintf("%s/%d", r.FactoryID, r.Month))
	}
	assert.Equal(t, []string{"FAC_B/1", "FAC_B/2", "FAC_B/3", "FAC_A/1", "FAC_A/2"}, order)
}

func TestEngine_Run_UsesSectorCaps(t *testing.T) {
	records := []carbon.MonthlyRecord{
		{FactoryID: "FAC_T", Sector: carbon.SectorTextile, Month: 1, ProductionTons: 1000, EnergyUsedMWh: carbon.Some(4000)},
		{FactoryID: "FAC_T", Sector: carbon.SectorTextile, Month: 2, ProductionTons: 1000, EnergyUsedMWh: carbon.Some(4000)},
		steelMonth("FAC_S", 1),
	}

	run, err := NewEngine(capTable{carbon.SectorTextile: 5000}, 1, zerolog.Nop()).Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 5000.0, run.Factories[0].CapKg())
	assert.Equal(t, StateOverCap, run.Factories[0].State())
	assert.Equal(t, 1_000_000.0, run.Factories[1].CapKg())
	assert.Equal(t, StatusAlert, run.Results[1].Status)
}

func TestEngine_Run_DeterministicAcrossWorkers(t *testing.T) {
	var records []carbon.MonthlyRecord
	for f := range 40 {
		for month := carbon.MonthsPerYear; month >= 1; month-- {
			r := steelMonth(fmt.Sprintf("FAC_%03d", f+1), month)
			r.ProductionTons = float64(100 + f*10 + month)
			r.EnergySource = carbon.EnergySources()[(f+month)%3]
			records = append(records, r)
		}
	}

	caps := capTable{carbon.SectorSteel: 60_000}
	serial, err := NewEngine(caps, 1, zerolog.Nop()).Run(context.Background(), records)
	require.NoError(t, err)
	parallel, err := NewEngine(caps, 8, zerolog.Nop()).Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, serial.Results, parallel.Results)
	assert.NotEqual(t, serial.ID, parallel.ID)
}

func TestEngine_Run_Errors(t *testing.T) {
	tests := []struct {
		name    string
		records []carbon.MonthlyRecord
		wantErr error
	}{
		{
			name: "conflicting sector",
			records: []carbon.MonthlyRecord{
				steelMonth("FAC_A", 1),
				{FactoryID: "FAC_A", Sector: carbon.SectorTextile, Month: 2, ProductionTons: 1, EnergyUsedMWh: carbon.Some(1)},
			},
			wantErr: carbon.ErrMalformedRecord,
		},
		{
			name:    "unknown sector",
			records: []carbon.MonthlyRecord{{FactoryID: "FAC_A", Month: 1, EnergyUsedMWh: carbon.Some(1)}},
			wantErr: carbon.ErrUnknownSector,
		},
		{
			name:    "missing energy",
			records: []carbon.MonthlyRecord{{FactoryID: "FAC_A", Sector: carbon.SectorSteel, Month: 1, ProductionTons: 1}},
			wantErr: carbon.ErrMalformedRecord,
		},
		{
			name:    "month out of range",
			records: []carbon.MonthlyRecord{steelMonth("FAC_A", 14)},
			wantErr: carbon.ErrMalformedRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := NewEngine(capTable{}, 2, zerolog.Nop()).Run(context.Background(), tt.records)
			assert.Nil(t, run)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEngine_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(capTable{}, 1, zerolog.Nop()).Run(ctx, []carbon.MonthlyRecord{steelMonth("FAC_A", 1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Run_Empty(t *testing.T) {
	run, err := NewEngine(capTable{}, 0, zerolog.Nop()).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, run.Factories)
	assert.Empty(t, run.Results)
}

func TestInput(t *testing.T) {
	in := Input(carbon.MonthlyRecord{
		Month:           3,
		ProductionTons:  10,
		EnergySource:    carbon.EnergySourceCoal,
		RawMaterialTons: carbon.Some(12),
	})
	assert.Equal(t, MonthInput{
		Month:           3,
		ProductionTons:  10,
		EnergySource:    carbon.EnergySourceCoal,
		RawMaterialTons: carbon.Some(12),
	}, in)
}
