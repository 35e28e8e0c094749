package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rshade/carbontrace/internal/pipeline"
)

func newIntensityCommand(ctx *commandContext) *cobra.Command {
	var reference string

	cmd := &cobra.Command{
		Use:   "intensity",
		Short: "Show per-country emission intensity in kg CO2 per MWh",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := pipeline.New(ctx.config, ctx.logger).ResolveIntensities(reference)
			if err != nil {
				return err
			}

			countries := table.Countries()
			rows := make([][]string, 0, len(countries))
			for _, country := range countries {
				rows = append(rows, []string{country, strconv.FormatFloat(table[country], 'f', 2, 64)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{textColumn("Country"), numericColumn("kg CO2/MWh")},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&reference, "reference", "", "Reference intensity CSV (default: embedded dataset)")
	return cmd
}
