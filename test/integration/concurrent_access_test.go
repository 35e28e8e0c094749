// Package integration exercises the packages together through their public
// APIs.
//
// This file contains concurrent access tests for shared, read-only state:
// the embedded reference table, the cap table, and engines sharing inputs.
//
// Run with: go test ./test/integration/... -v -run Concurrent
package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbontrace/internal/audit"
	"github.com/rshade/carbontrace/internal/carbon"
	"github.com/rshade/carbontrace/internal/config"
	"github.com/rshade/carbontrace/internal/generator"
	"github.com/rshade/carbontrace/internal/intensity"
	"github.com/rshade/carbontrace/internal/report"
)

const (
	// numGoroutines is the number of concurrent goroutines for stress testing.
	numGoroutines = 150

	// numIterations is the number of iterations per goroutine.
	numIterations = 10
)

// TestConcurrentAccess_DefaultTable verifies the embedded reference table
// resolves once and is shared safely.
func TestConcurrentAccess_DefaultTable(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines)
	results := make(chan float64, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, err := intensity.DefaultTable()
			if err != nil {
				errs <- err
				return
			}
			v, _ := table.Lookup("India")
			results <- v
		}()
	}

	wg.Wait()
	close(errs)
	close(results)

	require.Empty(t, errs)
	var first float64
	count := 0
	for v := range results {
		if count == 0 {
			first = v
		}
		assert.Equal(t, first, v)
		count++
	}
	assert.Equal(t, numGoroutines, count)
	assert.Positive(t, first)
}

// TestConcurrentAccess_Engines verifies independent engine runs over the same
// input slice produce identical summaries.
func TestConcurrentAccess_Engines(t *testing.T) {
	table, err := intensity.DefaultTable()
	require.NoError(t, err)
	g, err := generator.New(generator.NewRand(8), table, generator.Options{Factories: 20}, zerolog.Nop())
	require.NoError(t, err)
	records := g.Generate()

	cfg := config.Default()
	caps := cfg.Caps(zerolog.Nop())

	var wg sync.WaitGroup
	summaries := make(chan report.Summary, numGoroutines)
	errs := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(workers int) {
			defer wg.Done()
			run, err := audit.NewEngine(caps, workers, zerolog.Nop()).Run(context.Background(), records)
			if err != nil {
				errs <- err
				return
			}
			summaries <- report.Summarize(run.Factories)
		}(i%4 + 1)
	}

	wg.Wait()
	close(errs)
	close(summaries)

	require.Empty(t, errs)
	var first *report.Summary
	for s := range summaries {
		if first == nil {
			first = &s
			continue
		}
		assert.Equal(t, *first, s)
	}
	require.NotNil(t, first)
	assert.Equal(t, 20, first.TotalFactories)
}

// TestConcurrentAccess_CapTable verifies cap lookups from many goroutines.
func TestConcurrentAccess_CapTable(t *testing.T) {
	cfg := config.Default()
	delete(cfg.CapsBySector, carbon.SectorElectronics.String())
	caps := cfg.Caps(zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numIterations; j++ {
				assert.Equal(t, 60_000.0, caps.CapFor(carbon.SectorSteel))
				assert.Equal(t, config.DefaultCapKg, caps.CapFor(carbon.SectorElectronics))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []carbon.Sector{carbon.SectorElectronics}, caps.FallbackSectors())
}
