package report

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/rshade/carbontrace/internal/carbon"
)

// StageCounts are the row counts observed at each pipeline stage.
type StageCounts struct {
	Raw     int
	Dirty   int
	Cleaned int
}

// PayloadSummary is the aggregate block of a Payload.
type PayloadSummary struct {
	RowsRaw                int      `json:"rows_raw"`
	RowsDirty              int      `json:"rows_dirty"`
	RowsCleaned            int      `json:"rows_cleaned"`
	Countries              []string `json:"countries"`
	Sectors                []string `json:"sectors"`
	MeanIntensityDeviation float64  `json:"mean_intensity_deviation"`
	TotalFactories         int      `json:"total_factories"`
	TotalEmissionsAll      float64  `json:"total_emissions_all"`
	TotalAlerts            int      `json:"total_alerts"`
}

// Payload is the reporting document handed to presentation layers.
type Payload struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	CleanedCSV      string `json:"cleaned_csv,omitempty"`
	AuditSummaryCSV string `json:"audit_summary_csv,omitempty"`

	Summary   PayloadSummary `json:"summary"`
	Violators []Violator     `json:"violators"`
}

// NewPayload assembles a payload from a run summary and pipeline statistics.
func NewPayload(runID string, s Summary, counts StageCounts, countries []string, meanDeviation float64) Payload {
	sectors := make([]string, 0, len(carbon.Sectors()))
	for _, sec := range carbon.Sectors() {
		sectors = append(sectors, sec.String())
	}

	violators := s.Violators
	if violators == nil {
		violators = []Violator{}
	}
	if countries == nil {
		countries = []string{}
	}

	return Payload{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Summary: PayloadSummary{
			RowsRaw:                counts.Raw,
			RowsDirty:              counts.Dirty,
			RowsCleaned:            counts.Cleaned,
			Countries:              countries,
			Sectors:                sectors,
			MeanIntensityDeviation: meanDeviation,
			TotalFactories:         s.TotalFactories,
			TotalEmissionsAll:      s.TotalEmissionsKg,
			TotalAlerts:            s.TotalAlerts,
		},
		Violators: violators,
	}
}

// WritePayload encodes p as indented JSON.
func WritePayload(w io.Writer, p Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return nil
}
