package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/reconcile"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/cli"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/config"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/logging"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	flags := cli.ParseReconcileFlags()

	cfg := config.LoadOrEnvWithPath(*configFile)

	// Setup logging
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "reconcile")

	apiKey := cfg.GetAPIKey(cfg.Nibo.APIKey, "NIBO_API_KEY", "NIBO_APIKEY")
	if apiKey == "" {
		logger.Error("NIBO_API_KEY environment variable not set")
		os.Exit(1)
	}

	// Initialize storage
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	// Initialize Nibo client
	client := nibo.New(nibo.Config{
		APIKey:  apiKey,
		UserID:  cfg.Nibo.UserID,
		BaseURL: cfg.Nibo.BaseURL,
		Timeout: time.Duration(cfg.Nibo.TimeoutSeconds) * time.Second,
	}, logger, store)

	// Resolve config defaults for flags left at zero
	opts := flags.ToOptions()
	if opts.Threshold == 0 {
		opts.Threshold = cfg.Reconcile.Threshold
	}
	if opts.LookbackDays == 0 {
		opts.LookbackDays = cfg.Reconcile.LookbackDays
	}
	if opts.MaxCandidates == 0 {
		opts.MaxCandidates = cfg.Reconcile.MaxCandidates
	}
	opts.AllowFileReuse = cfg.Reconcile.AllowFileReuse
	if flags.Verbose {
		opts.Progress = func(phase string) {
			logger.Debug("phase", slog.String("phase", phase))
		}
	}

	cli.PrintHeader(flags.Kind, flags.DryRun)
	cli.PrintConfiguration(flags.Kind, opts.Threshold, opts.LookbackDays, opts.MaxCandidates)

	orchestrator := reconcile.NewOrchestrator(client, store, logger)

	result, err := orchestrator.Run(context.Background(), opts)
	if err != nil {
		logger.Error("Reconcile failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cli.PrintProposals(result)
	cli.PrintRunSummary(result, store, flags.DryRun)
}
