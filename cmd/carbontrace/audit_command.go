package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rshade/carbontrace/internal/audit"
	"github.com/rshade/carbontrace/internal/carbon"
	"github.com/rshade/carbontrace/internal/dataset"
	"github.com/rshade/carbontrace/internal/report"
)

const defaultTopViolators = 3

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var (
		input         string
		summaryOut    string
		top           int
		skipMalformed bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit an audit-layout record CSV against the sector carbon caps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			read, err := dataset.ReadFile(input, dataset.ReadOptions{
				Layout:        dataset.LayoutAudit,
				SkipMalformed: skipMalformed,
			})
			if err != nil {
				return err
			}
			for _, skipped := range read.Skipped {
				ctx.logger.Warn().Err(skipped).Msg("skipped malformed record")
			}

			engine := audit.NewEngine(cfg.Caps(ctx.logger), cfg.Audit.Workers, ctx.logger)
			run, err := engine.Run(cmd.Context(), read.Records)
			if err != nil {
				return err
			}
			summary := report.Summarize(run.Factories)

			if summaryOut != "" {
				if err := writeSummary(summaryOut, summary); err != nil {
					return err
				}
				ctx.logger.Info().Str("path", summaryOut).Msg("wrote audit summary")
			}

			printSummary(cmd.OutOrStdout(), run.ID, summary, top)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Audit-layout record CSV")
	cmd.Flags().StringVar(&summaryOut, "summary-out", "", "Write the audit summary CSV to this path")
	cmd.Flags().IntVar(&top, "top", defaultTopViolators, "Number of top violators to show")
	cmd.Flags().BoolVar(&skipMalformed, "skip-malformed", false, "Skip unparseable rows instead of failing")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func writeSummary(path string, s report.Summary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return report.WriteSummaryCSV(f, s)
}

func printSummary(w io.Writer, runID string, s report.Summary, top int) {
	fmt.Fprintf(w, "Run:              %s\n", runID)
	fmt.Fprintf(w, "Factories:        %d\n", s.TotalFactories)
	fmt.Fprintf(w, "Total emissions:  %s kg CO2\n", carbon.FormatKg(s.TotalEmissionsKg))
	fmt.Fprintf(w, "Alert months:     %d\n", s.TotalAlerts)

	violators := s.TopViolators(top)
	if len(violators) == 0 {
		fmt.Fprintln(w, "No factory exceeded its cap.")
		return
	}

	rows := make([][]string, 0, len(violators))
	for i, v := range violators {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			v.FactoryID,
			carbon.FormatKg(v.TotalEmissionsKg),
			strconv.Itoa(v.AlertsCount),
		})
	}
	fmt.Fprintln(w, "Top violators:")
	fmt.Fprintln(w, renderTable(
		[]column{numericColumn("#"), textColumn("Factory"), numericColumn("Total kg CO2"), numericColumn("Alerts")},
		rows,
	))
}
