package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/carbontrace/internal/pipeline"
)

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options
	var seed uint64

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Generate or load records, clean them, audit them and write every report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("seed") {
				opts.Seed = &seed
			}

			res, err := pipeline.New(ctx.config, ctx.logger).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rows:             raw %d, dirty %d, cleaned %d\n",
				res.Counts.Raw, res.Counts.Dirty, res.Counts.Cleaned)
			fmt.Fprintf(out, "Mean intensity deviation: %.2f kg CO2/MWh\n", res.Cleaning.MeanAbsIntensityDeviation)
			printSummary(out, res.RunID, res.Summary, defaultTopViolators)
			fmt.Fprintln(out, renderTable(
				[]column{textColumn("Output"), textColumn("Path")},
				[][]string{
					{"Cleaned records", res.Files.CleanedCSV},
					{"Audit summary", res.Files.SummaryCSV},
					{"Report payload", res.Files.PayloadJSON},
					{"Metrics", res.Files.Metrics},
				},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out-dir", "o", "", "Directory for every output file")
	cmd.Flags().StringVar(&opts.ReferencePath, "reference", "", "Reference intensity CSV (default: embedded dataset)")
	cmd.Flags().StringVar(&opts.ProductionPath, "production", "", "Generation-layout record CSV to use instead of synthetic records")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Generator seed")
	cmd.Flags().BoolVar(&opts.SkipInjection, "no-inject", false, "Skip dirty-data injection")
	_ = cmd.MarkFlagRequired("out-dir")

	return cmd
}
