// Command demandcast runs forecasts from CSV files and submits forecast jobs
// to the message queue.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/logging"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "demandcast",
		Short:         "Demand forecasting from sales history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")

	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(groupsCmd())
	rootCmd.AddCommand(methodsCmd())
	rootCmd.AddCommand(submitCmd())

	return rootCmd
}

// loadConfig loads configuration and a logger that never writes to stdout,
// so stdout stays free for command output
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := cfg.Logging
	if logCfg.OutputPath == "" || logCfg.OutputPath == "stdout" {
		logCfg.OutputPath = "stderr"
	}
	logCfg.Format = "console"
	if verbose {
		logCfg.Level = "debug"
	} else {
		logCfg.Level = "warn"
	}

	logger, err := logging.NewFromConfig(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.SetGlobal(logger)
	return cfg, logger, nil
}
