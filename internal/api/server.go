package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/handlers"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/middleware"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/service"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// NiboClient is the slice of the Nibo adapter the API needs.
type NiboClient interface {
	handlers.Uploader
	handlers.ScheduleSearcher
	handlers.Attacher
}

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string

	// Matching defaults for the synchronous proposals endpoint.
	DefaultThreshold int
	AllowFileReuse   bool
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:             8080,
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		DefaultThreshold: 50,
		AllowFileReuse:   true,
	}
}

// Server is the HTTP API server.
type Server struct {
	config           Config
	router           chi.Router
	httpServer       *http.Server
	logger           *slog.Logger
	repo             storage.Repository
	nibo             NiboClient
	reconcileService *service.ReconcileService
}

// NewServer creates a new API server.
// If reconcileService is nil, reconcile job endpoints will not be available.
func NewServer(cfg Config, repo storage.Repository, niboClient NiboClient, reconcileService *service.ReconcileService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:           cfg,
		router:           chi.NewRouter(),
		logger:           logger,
		repo:             repo,
		nibo:             niboClient,
		reconcileService: reconcileService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// CORS
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Files
		filesHandler := handlers.NewFilesHandler(s.repo, s.nibo)
		r.Post("/files", filesHandler.Upload)
		r.Get("/files", filesHandler.List)

		// Schedules (search proxy)
		schedulesHandler := handlers.NewSchedulesHandler(s.nibo)
		r.Get("/schedules", schedulesHandler.Search)

		// Proposals (synchronous matching pass)
		proposalsHandler := handlers.NewProposalsHandler(s.repo, s.nibo, s.config.DefaultThreshold, s.config.AllowFileReuse)
		r.Post("/proposals", proposalsHandler.Propose)

		// Attachments
		attachmentsHandler := handlers.NewAttachmentsHandler(s.repo, s.nibo)
		r.Post("/attachments", attachmentsHandler.Confirm)
		r.Get("/attachments", attachmentsHandler.List)
		r.Delete("/attachments", attachmentsHandler.Clear)

		// Reconcile runs (historical)
		runsHandler := handlers.NewRunsHandler(s.repo)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)

		// Stats
		statsHandler := handlers.NewStatsHandler(s.repo)
		r.Get("/stats", statsHandler.Get)

		// Reconcile operations (live jobs)
		if s.reconcileService != nil {
			reconcileHandler := handlers.NewReconcileHandler(s.reconcileService)
			r.Post("/reconcile", reconcileHandler.Start)
			r.Get("/reconcile", reconcileHandler.ListAll)
			r.Get("/reconcile/active", reconcileHandler.ListActive)
			r.Get("/reconcile/{jobId}", reconcileHandler.GetStatus)
			r.Delete("/reconcile/{jobId}", reconcileHandler.Cancel)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
