package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbontrace/internal/carbon"
	"github.com/rshade/carbontrace/internal/report"
)

func sampleSummary() report.Summary {
	return report.Summary{
		TotalFactories:   2,
		TotalEmissionsKg: 23100,
		TotalAlerts:      3,
		Factories: []report.FactorySummary{
			{FactoryID: "FAC_001", Sector: carbon.SectorSteel, TotalEmissionsKg: 14700},
			{FactoryID: "FAC_002", Sector: carbon.SectorTextile, TotalEmissionsKg: 8400, AlertsCount: 3},
		},
		Violators: []report.Violator{{FactoryID: "FAC_002", TotalEmissionsKg: 8400, AlertsCount: 3}},
	}
}

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder()
	r.ObserveRows(StageRaw, 600)
	r.ObserveRows(StageDirty, 615)
	r.ObserveStage(StageCleaned, 1500*time.Millisecond)
	r.ObserveDeviation(12.5)
	r.ObserveSummary(sampleSummary())

	assert.Equal(t, 600.0, testutil.ToFloat64(r.rows.WithLabelValues(StageRaw)))
	assert.Equal(t, 615.0, testutil.ToFloat64(r.rows.WithLabelValues(StageDirty)))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.stageDuration.WithLabelValues(StageCleaned)))
	assert.Equal(t, 12.5, testutil.ToFloat64(r.deviation))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.factories))
	assert.Equal(t, 23100.0, testutil.ToFloat64(r.emissions))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.alerts))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.violators))
	assert.Equal(t, 8400.0, testutil.ToFloat64(r.factoryEmission.WithLabelValues("FAC_002", "Textile")))
	assert.Positive(t, testutil.ToFloat64(r.lastRun))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveRows(StageCleaned, 600)
	r.ObserveSummary(sampleSummary())

	path := filepath.Join(t.TempDir(), "out", "metrics.prom")
	require.NoError(t, r.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, `carbontrace_rows{stage="cleaned"} 600`)
	assert.Contains(t, text, `carbontrace_factory_emissions_kg{factory_id="FAC_001",sector="Steel"} 14700`)
	assert.Contains(t, text, "# HELP carbontrace_alert_months")
}
