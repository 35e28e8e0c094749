// Package metrics records pipeline statistics in a Prometheus registry and
// writes them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rshade/carbontrace/internal/report"
)

const namespace = "carbontrace"

// Stage names used as label values.
const (
	StageRaw     = "raw"
	StageDirty   = "dirty"
	StageCleaned = "cleaned"
)

// Recorder holds the metrics of one pipeline run.
type Recorder struct {
	registry *prometheus.Registry

	rows            *prometheus.GaugeVec
	stageDuration   *prometheus.GaugeVec
	factories       prometheus.Gauge
	emissions       prometheus.Gauge
	alerts          prometheus.Gauge
	violators       prometheus.Gauge
	factoryEmission *prometheus.GaugeVec
	deviation       prometheus.Gauge
	lastRun         prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows",
			Help:      "Records present after each pipeline stage.",
		}, []string{"stage"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
		}, []string{"stage"}),
		factories: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "factories_audited",
			Help:      "Factories audited in the last run.",
		}),
		emissions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "emissions_kg",
			Help:      "Sum of all factories' cumulative emissions in kg CO2.",
		}),
		alerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_months",
			Help:      "Factory months with an ALERT status.",
		}),
		violators: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "violators",
			Help:      "Factories with at least one ALERT month.",
		}),
		factoryEmission: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "factory_emissions_kg",
			Help:      "Cumulative emissions per factory in kg CO2.",
		}, []string{"factory_id", "sector"}),
		deviation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_intensity_deviation",
			Help:      "Mean absolute deviation of cleaned emission intensity from the country baseline.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run completed.",
		}),
	}

	r.registry.MustRegister(
		r.rows,
		r.stageDuration,
		r.factories,
		r.emissions,
		r.alerts,
		r.violators,
		r.factoryEmission,
		r.deviation,
		r.lastRun,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRows records the row count after a stage.
func (r *Recorder) ObserveRows(stage string, rows int) {
	r.rows.WithLabelValues(stage).Set(float64(rows))
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// ObserveDeviation records the mean absolute intensity deviation.
func (r *Recorder) ObserveDeviation(v float64) {
	r.deviation.Set(v)
}

// ObserveSummary records audit totals and per-factory emissions.
func (r *Recorder) ObserveSummary(s report.Summary) {
	r.factories.Set(float64(s.TotalFactories))
	r.emissions.Set(s.TotalEmissionsKg)
	r.alerts.Set(float64(s.TotalAlerts))
	r.violators.Set(float64(len(s.Violators)))
	for _, f := range s.Factories {
		r.factoryEmission.WithLabelValues(f.FactoryID, f.Sector.String()).Set(f.TotalEmissionsKg)
	}
	r.lastRun.SetToCurrentTime()
}

// WriteTextfile writes the registry to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
