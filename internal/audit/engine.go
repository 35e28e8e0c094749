package audit

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/carbontrace/internal/carbon"
)

// CapSource supplies the carbon cap for a sector.
type CapSource interface {
	CapFor(sector carbon.Sector) float64
}

// Run is the outcome of auditing one record set.
type Run struct {
	// ID identifies the run in logs and reporting payloads.
	ID string

	// Factories holds one state per factory in first-seen order.
	Factories []*FactoryAuditState

	// Results holds every monthly result, grouped by factory in the order of
	// Factories, then by month.
	Results []MonthlyResult
}

// Engine audits record sets, one FactoryAuditState per factory.
type Engine struct {
	caps    CapSource
	workers int
	logger  zerolog.Logger
}

// NewEngine creates an Engine. workers bounds how many factories are audited
// concurrently; values below 1 mean runtime.GOMAXPROCS(0).
func NewEngine(caps CapSource, workers int, logger zerolog.Logger) *Engine {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{caps: caps, workers: workers, logger: logger}
}

type factoryStream struct {
	state   *FactoryAuditState
	records []carbon.MonthlyRecord
	results []MonthlyResult
}

// Run groups records by factory, orders each factory's records by month
// (stable, so repeated months keep input order) and accounts for them.
// Factories are independent and audited in parallel; each factory's stream is
// consumed by exactly one goroutine, so the outcome does not depend on the
// worker count.
//
// Records of one factory that disagree on sector, or lack an energy value,
// fail the run with an error wrapping carbon.ErrMalformedRecord.
func (e *Engine) Run(ctx context.Context, records []carbon.MonthlyRecord) (*Run, error) {
	start := time.Now()
	run := &Run{ID: uuid.NewString()}
	logger := e.logger.With().Str("run_id", run.ID).Logger()

	streams, err := e.group(records)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, s := range streams {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return e.audit(logger, s)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	run.Factories = make([]*FactoryAuditState, len(streams))
	run.Results = make([]MonthlyResult, 0, len(records))
	alerts := 0
	for i, s := range streams {
		run.Factories[i] = s.state
		run.Results = append(run.Results, s.results...)
		alerts += s.state.AlertsCount()
	}

	logger.Info().
		Int("factories", len(run.Factories)).
		Int("records", len(run.Results)).
		Int("alerts", alerts).
		Int("workers", e.workers).
		Dur("duration", time.Since(start)).
		Msg("audit complete")

	return run, nil
}

// group splits records into per-factory streams in first-seen order and
// creates each factory's state with its sector cap.
func (e *Engine) group(records []carbon.MonthlyRecord) ([]*factoryStream, error) {
	var streams []*factoryStream
	byID := make(map[string]*factoryStream)

	for _, r := range records {
		s, ok := byID[r.FactoryID]
		if !ok {
			state, err := NewFactoryAuditState(r.FactoryID, r.Sector, e.caps.CapFor(r.Sector))
			if err != nil {
				return nil, err
			}
			s = &factoryStream{state: state}
			byID[r.FactoryID] = s
			streams = append(streams, s)
		} else if r.Sector != s.state.Sector() {
			return nil, fmt.Errorf("factory %s: %w: sector %s conflicts with %s",
				r.FactoryID, carbon.ErrMalformedRecord, r.Sector, s.state.Sector())
		}
		s.records = append(s.records, r)
	}

	for _, s := range streams {
		slices.SortStableFunc(s.records, func(a, b carbon.MonthlyRecord) int {
			return a.Month - b.Month
		})
	}
	return streams, nil
}

func (e *Engine) audit(logger zerolog.Logger, s *factoryStream) error {
	s.results = make([]MonthlyResult, 0, len(s.records))
	for _, r := range s.records {
		if !r.EnergyUsedMWh.Valid {
			return fmt.Errorf("factory %s month %d: %w: missing energy_used_mwh",
				r.FactoryID, r.Month, carbon.ErrMalformedRecord)
		}
		if len(s.results) > 0 && r.Month == s.state.LastMonth() {
			logger.Warn().
				Str("factory_id", r.FactoryID).
				Int("month", r.Month).
				Msg("month recorded more than once")
		}

		result, err := s.state.RecordMonth(Input(r))
		if err != nil {
			return err
		}
		s.results = append(s.results, result)
	}

	if s.state.State() == StateOverCap {
		logger.Debug().
			Str("factory_id", s.state.FactoryID()).
			Float64("total_emissions_kg", s.state.TotalEmissionsKg()).
			Float64("cap_kg", s.state.CapKg()).
			Int("alerts", s.state.AlertsCount()).
			Msg("factory over cap")
	}
	return nil
}

// Input converts a record into a MonthInput. A missing energy value becomes 0.
func Input(r carbon.MonthlyRecord) MonthInput {
	return MonthInput{
		Month:           r.Month,
		ProductionTons:  r.ProductionTons,
		EnergyUsedMWh:   r.EnergyUsedMWh.Or(0),
		EnergySource:    r.EnergySource,
		RawMaterialTons: r.RawMaterialTons,
	}
}
