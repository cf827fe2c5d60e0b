package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/demandcast/demandcast/internal/jobs"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/queue"
)

// submitCmd publishes a CSV file as a forecast job on the configured queue
func submitCmd() *cobra.Command {
	var (
		input   string
		byGroup bool
		fc      models.ForecastConfig
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a forecast job to the queue",
		Long: `Publishes the CSV as a forecast job on queue.request_subject. A forecaster
service with the queue worker enabled publishes the result on
queue.result_subject. The job ID is printed on stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			table, err := readTable(input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			codec, err := jobs.NewCodec(cfg.Queue.Compression)
			if err != nil {
				return err
			}

			q, err := queue.NewQueue(cfg.Queue)
			if err != nil {
				return fmt.Errorf("failed to connect to queue: %w", err)
			}
			defer func() { _ = q.Close() }()

			job := jobs.NewJob(models.ForecastRequest{Table: table, Config: fc}, byGroup)
			if err := jobs.Submit(cmd.Context(), q, codec, cfg.Queue.RequestSubject, job); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), job.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input CSV file, - for stdin")
	cmd.Flags().BoolVar(&byGroup, "by-group", false, "Forecast every product_id separately")
	addConfigFlags(cmd, &fc)
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
