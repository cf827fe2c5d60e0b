package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/demandcast/demandcast/internal/aggregation"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/report"
	"github.com/demandcast/demandcast/internal/services"
)

type forecastOptions struct {
	input      string
	output     string
	chart      string
	jsonOut    bool
	cpuProfile string
	config     models.ForecastConfig
	seed       uint64
}

// forecastCmd runs one forecast over a CSV file
func forecastCmd() *cobra.Command {
	opts := &forecastOptions{}

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast demand from a CSV file",
		Long: `Reads a CSV with a date column and a demand column (quantity, total_amount,
sales or demand), aggregates it to the requested grain and writes the forecast
as CSV. An optional product_id column can be filtered with --group.`,
		Example: `  demandcast forecast --input sales.csv --method holt_winters --grain Monthly --horizon 6
  cat sales.csv | demandcast forecast --input - --chart forecast.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("seed") {
				seed := opts.seed
				opts.config.Seed = &seed
			}
			if opts.cpuProfile != "" {
				defer profile.Start(profile.CPUProfile, profile.ProfilePath(opts.cpuProfile), profile.Quiet).Stop()
			}
			return runForecast(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Input CSV file, - for stdin")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "Forecast CSV file, - for stdout")
	cmd.Flags().StringVar(&opts.chart, "chart", "", "Write an HTML chart of history and forecast")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Write the full result as JSON instead of CSV")
	cmd.Flags().StringVar(&opts.cpuProfile, "cpuprofile", "", "Write a CPU profile to this directory")
	addConfigFlags(cmd, &opts.config)
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Seed for the random walk noise")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func addConfigFlags(cmd *cobra.Command, fc *models.ForecastConfig) {
	cmd.Flags().StringVarP(&fc.Method, "method", "m", "", "Forecast method id or display name")
	cmd.Flags().StringVarP(&fc.Grain, "grain", "g", "", "Daily, Weekly, Monthly or Yearly")
	cmd.Flags().IntVar(&fc.Horizon, "horizon", 0, "Periods to forecast (0 uses the grain default)")
	cmd.Flags().IntVar(&fc.ConfidenceLevel, "confidence", 0, "Confidence level: 80, 85, 90, 95 or 99")
	cmd.Flags().IntVar(&fc.SeasonalityPeriods, "seasonality", 0, "Holt-Winters season length")
	cmd.Flags().Float64Var(&fc.Alpha, "alpha", 0, "Exponential smoothing factor in (0,1)")
	cmd.Flags().StringVar(&fc.Group, "group", "", "Only forecast rows with this product_id")
}

func runForecast(ctx context.Context, opts *forecastOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	table, err := readTable(opts.input, stdin)
	if err != nil {
		return err
	}

	svc := services.NewForecastService(logger, cfg.Forecast, nil)
	result, err := svc.Run(ctx, models.ForecastRequest{Table: table, Config: opts.config})
	if err != nil {
		return describe(err)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}

	out, closeOut, err := openOutput(opts.output, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if err := report.WriteForecastCSV(out, result.Forecast); err != nil {
		return err
	}

	if opts.chart != "" {
		f, err := os.Create(opts.chart)
		if err != nil {
			return fmt.Errorf("failed to create chart file: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := report.RenderForecast(f, result); err != nil {
			return err
		}
	}

	fmt.Fprintf(stderr, "%s: %d %s, average %.2f, total %.2f\n",
		result.Method, result.Horizon, result.Grain.Unit(), result.Summary.Average, result.Summary.Total)
	return nil
}

// groupsCmd lists the product_id values of a CSV file
func groupsCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List product groups in a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readTable(input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			groups, err := aggregation.Groups(table)
			if err != nil {
				return describe(services.FromAggregationError(err))
			}
			for _, g := range groups {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input CSV file, - for stdin")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func readTable(path string, stdin io.Reader) (models.Table, error) {
	if path == "-" {
		return report.ReadTable(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = f.Close() }()
	return report.ReadTable(f)
}

func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// describe flattens a service error into a single line for the terminal
func describe(err error) error {
	se := services.AsServiceError(err)
	if len(se.Details) == 0 {
		return fmt.Errorf("%s: %s", se.Code, se.Message)
	}
	return fmt.Errorf("%s: %s %v", se.Code, se.Message, se.Details)
}
