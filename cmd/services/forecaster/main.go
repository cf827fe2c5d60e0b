package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/handlers"
	"github.com/demandcast/demandcast/internal/jobs"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/metrics"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/router"
	"github.com/demandcast/demandcast/internal/services"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Forecaster service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)
	handlers.Version = Version

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	forecastService := services.NewForecastService(logger, cfg.Forecast, m)
	logger.Info("Forecast service initialized",
		"default_method", cfg.Forecast.DefaultMethod,
		"default_grain", cfg.Forecast.DefaultGrain,
		"max_workers", cfg.Forecast.MaxWorkers)

	// Start the queue job worker when enabled
	var (
		queueClient queue.Queue
		worker      *jobs.Worker
	)
	if cfg.Queue.Enabled {
		logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
		queueClient, err = queue.NewQueue(cfg.Queue)
		if err != nil {
			logger.Fatal("Failed to connect to Queue", "error", err)
		}
		defer func() { _ = queueClient.Close() }()

		worker, err = jobs.NewWorker(logger, queueClient, forecastService, cfg.Queue, m)
		if err != nil {
			logger.Fatal("Failed to create job worker", "error", err)
		}
		if err := worker.Start(); err != nil {
			logger.Fatal("Failed to start job worker", "error", err)
		}
	} else {
		logger.Info("Queue worker disabled")
	}

	app := router.New(logger, forecastService, m, *cfg)

	// Start server in goroutine
	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if worker != nil {
		if err := worker.Stop(); err != nil {
			logger.Error("Failed to stop job worker", "error", err)
		}
	}

	// Graceful shutdown with 10 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
