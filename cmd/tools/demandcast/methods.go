package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/demandcast/demandcast/internal/analytics"
	"github.com/demandcast/demandcast/internal/analytics/forecast"
)

// methodsCmd prints the registered forecast methods and grain limits
func methodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List forecast methods and grains",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintln(w, "METHOD\tNAME\tSTOCHASTIC")
			for _, m := range forecast.ListForecasters() {
				fmt.Fprintf(w, "%s\t%s\t%t\n", m, m.DisplayName(), m.Stochastic())
			}
			fmt.Fprintln(w)

			fmt.Fprintln(w, "GRAIN\tHORIZON\tDEFAULT\tMIN PERIODS")
			for _, g := range analytics.Grains {
				lo, hi := g.HorizonBounds()
				fmt.Fprintf(w, "%s\t%d-%d\t%d\t%d\n", g, lo, hi, g.DefaultHorizon(), g.MinPeriods())
			}
			return w.Flush()
		},
	}
}
