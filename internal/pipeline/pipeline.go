// Package pipeline runs the whole audit end to end: resolve intensities,
// generate or load records, inject dirty data, clean, audit, and write every
// report artifact to an output directory.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/carbontrace/internal/audit"
	"github.com/rshade/carbontrace/internal/carbon"
	"github.com/rshade/carbontrace/internal/cleaning"
	"github.com/rshade/carbontrace/internal/config"
	"github.com/rshade/carbontrace/internal/dataset"
	"github.com/rshade/carbontrace/internal/generator"
	"github.com/rshade/carbontrace/internal/intensity"
	"github.com/rshade/carbontrace/internal/metrics"
	"github.com/rshade/carbontrace/internal/report"
)

// Output file names inside Options.OutDir.
const (
	CleanedFile = "cleaned_factory_emissions.csv"
	SummaryFile = "audit_summary.csv"
	PayloadFile = "report.json"
	MetricsFile = "metrics.prom"
)

// Options selects the inputs of one run.
type Options struct {
	// OutDir receives every output file. Required.
	OutDir string

	// ReferencePath is the reference intensity CSV. Empty uses the embedded
	// reference dataset.
	ReferencePath string

	// ProductionPath is a generation-layout record CSV used instead of
	// synthetic records. Empty means generate.
	ProductionPath string

	// Seed overrides the configured generator seed.
	Seed *uint64

	// SkipInjection disables dirty-data injection regardless of config.
	SkipInjection bool
}

// Files lists the paths written by a run.
type Files struct {
	CleanedCSV  string
	SummaryCSV  string
	PayloadJSON string
	Metrics     string
}

// Result is everything a run produced.
type Result struct {
	RunID       string
	Intensities intensity.Table
	Counts      report.StageCounts
	Injection   generator.InjectionStats
	Cleaning    cleaning.Result
	Audit       *audit.Run
	Summary     report.Summary
	Payload     report.Payload
	Files       Files
}

// Pipeline wires configured components together.
type Pipeline struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// New creates a Pipeline. cfg should already be validated.
func New(cfg *config.Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// Run executes every stage in order. Any stage failure aborts the run; files
// written before the failure are left in place.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.OutDir == "" {
		return nil, fmt.Errorf("pipeline: output directory is required")
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	rec := metrics.NewRecorder()
	res := &Result{}
	stage := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		rec.ObserveStage(name, time.Since(start))
		return err
	}

	if err := stage("intensity", func() (err error) {
		res.Intensities, err = p.ResolveIntensities(opts.ReferencePath)
		return err
	}); err != nil {
		return nil, err
	}

	var raw []carbon.MonthlyRecord
	if err := stage("load", func() (err error) {
		raw, err = p.loadRecords(res.Intensities, opts)
		return err
	}); err != nil {
		return nil, err
	}
	res.Counts.Raw = len(raw)
	rec.ObserveRows(metrics.StageRaw, len(raw))

	dirty := raw
	if p.cfg.Injector.Enabled && !opts.SkipInjection {
		injector := generator.NewInjector(generator.NewRand(p.cfg.Injector.Seed), p.cfg.InjectorOptions(), p.logger)
		dirty, res.Injection = injector.Inject(raw)
	}
	res.Counts.Dirty = len(dirty)
	rec.ObserveRows(metrics.StageDirty, len(dirty))

	if err := stage("clean", func() (err error) {
		res.Cleaning, err = cleaning.NewCleaner(res.Intensities, p.logger).Clean(dirty)
		return err
	}); err != nil {
		return nil, err
	}
	res.Counts.Cleaned = len(res.Cleaning.Records)
	rec.ObserveRows(metrics.StageCleaned, res.Counts.Cleaned)
	rec.ObserveDeviation(res.Cleaning.MeanAbsIntensityDeviation)

	res.Files = Files{
		CleanedCSV:  filepath.Join(opts.OutDir, CleanedFile),
		SummaryCSV:  filepath.Join(opts.OutDir, SummaryFile),
		PayloadJSON: filepath.Join(opts.OutDir, PayloadFile),
		Metrics:     filepath.Join(opts.OutDir, MetricsFile),
	}
	if err := dataset.WriteCleanFile(res.Files.CleanedCSV, res.Cleaning.Records); err != nil {
		return nil, err
	}

	engine := audit.NewEngine(p.cfg.Caps(p.logger), p.cfg.Audit.Workers, p.logger)
	if err := stage("audit", func() (err error) {
		res.Audit, err = engine.Run(ctx, res.Cleaning.MonthlyRecords())
		return err
	}); err != nil {
		return nil, err
	}
	res.RunID = res.Audit.ID
	res.Summary = report.Summarize(res.Audit.Factories)
	rec.ObserveSummary(res.Summary)

	if err := writeTo(res.Files.SummaryCSV, func(w io.Writer) error {
		return report.WriteSummaryCSV(w, res.Summary)
	}); err != nil {
		return nil, err
	}

	res.Payload = report.NewPayload(res.RunID, res.Summary, res.Counts,
		res.Intensities.Countries(), res.Cleaning.MeanAbsIntensityDeviation)
	res.Payload.CleanedCSV = res.Files.CleanedCSV
	res.Payload.AuditSummaryCSV = res.Files.SummaryCSV
	if err := writeTo(res.Files.PayloadJSON, func(w io.Writer) error {
		return report.WritePayload(w, res.Payload)
	}); err != nil {
		return nil, err
	}

	if err := rec.WriteTextfile(res.Files.Metrics); err != nil {
		return nil, err
	}

	p.logger.Info().
		Str("run_id", res.RunID).
		Int("rows_raw", res.Counts.Raw).
		Int("rows_dirty", res.Counts.Dirty).
		Int("rows_cleaned", res.Counts.Cleaned).
		Int("factories", res.Summary.TotalFactories).
		Int("alerts", res.Summary.TotalAlerts).
		Str("out_dir", opts.OutDir).
		Msg("pipeline complete")

	return res, nil
}

// ResolveIntensities resolves the configured countries from the reference
// CSV at path, or from the embedded dataset when path is empty.
func (p *Pipeline) ResolveIntensities(path string) (intensity.Table, error) {
	resolver := intensity.NewResolver(p.logger)
	resolver.Countries = p.cfg.Intensity.Countries
	resolver.MinYear = p.cfg.Intensity.MinYear
	resolver.RateColumn = p.cfg.Intensity.RateColumn

	if p.cfg.Intensity.EmbeddedFallback && path != "" {
		fallback, err := intensity.DefaultTable()
		if err != nil {
			return nil, err
		}
		resolver.Fallback = fallback
	}

	if path == "" {
		return resolver.Resolve(strings.NewReader(intensity.ReferenceCSV()))
	}
	return resolver.ResolveFile(path)
}

func (p *Pipeline) loadRecords(table intensity.Table, opts Options) ([]carbon.MonthlyRecord, error) {
	if opts.ProductionPath != "" {
		res, err := dataset.ReadFile(opts.ProductionPath, dataset.ReadOptions{Layout: dataset.LayoutGeneration})
		if err != nil {
			return nil, err
		}
		p.logger.Info().
			Str("path", opts.ProductionPath).
			Int("rows", len(res.Records)).
			Msg("loaded production records")
		return res.Records, nil
	}

	g, err := p.NewGenerator(table, opts.Seed)
	if err != nil {
		return nil, err
	}
	return g.Generate(), nil
}

// NewGenerator builds a generator from config. seed overrides the configured
// seed; with neither, the generator is seeded from runtime entropy.
func (p *Pipeline) NewGenerator(table intensity.Table, seed *uint64) (*generator.Generator, error) {
	if seed == nil {
		seed = p.cfg.Generator.Seed
	}
	rng := generator.NewUnseededRand()
	if seed != nil {
		rng = generator.NewRand(*seed)
	}

	weights, err := p.cfg.SectorWeights()
	if err != nil {
		return nil, err
	}
	return generator.New(rng, table, generator.Options{
		Factories:     p.cfg.Generator.Factories,
		SectorWeights: weights,
	}, p.logger)
}

func writeTo(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
