package cli

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/reconcile"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/service"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/config"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/logging"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port    int
	Verbose bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags() *ServeFlags {
	flags := &ServeFlags{}
	flag.IntVar(&flags.Port, "port", 8080, "Port to listen on")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// RunServe runs the API server.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	// Set up logging
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	// Initialize storage
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// Nibo client with outbound call logging
	niboLogger := logging.NewLoggerWithSystem(loggingCfg, "nibo")
	client := nibo.New(nibo.Config{
		APIKey:  cfg.GetAPIKey(cfg.Nibo.APIKey, "NIBO_API_KEY", "NIBO_APIKEY"),
		UserID:  cfg.Nibo.UserID,
		BaseURL: cfg.Nibo.BaseURL,
		Timeout: time.Duration(cfg.Nibo.TimeoutSeconds) * time.Second,
	}, niboLogger, store)

	// Reconcile job service
	reconcileLogger := logging.NewLoggerWithSystem(loggingCfg, "reconcile")
	orchestrator := reconcile.NewOrchestrator(client, store, reconcileLogger)
	reconcileService := service.NewReconcileService(cfg, orchestrator, reconcileLogger)
	reconcileService.StartBackgroundCleanup(5 * time.Minute)
	defer reconcileService.StopBackgroundCleanup()

	// Create API config
	apiCfg := api.Config{
		Port:             flags.Port,
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		DefaultThreshold: cfg.Reconcile.Threshold,
		AllowFileReuse:   cfg.Reconcile.AllowFileReuse,
	}

	// Create and start server
	server := api.NewServer(apiCfg, store, client, reconcileService, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
