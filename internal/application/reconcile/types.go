package reconcile

import (
	"context"
	"log/slog"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// Client is the slice of the Nibo API the orchestrator needs.
type Client interface {
	SearchSchedules(ctx context.Context, params nibo.SearchParams) ([]matcher.Schedule, error)
	AttachFiles(ctx context.Context, kind nibo.Kind, scheduleID string, fileIDs []string) error
}

// Options holds reconcile run configuration
type Options struct {
	Kind          nibo.Kind
	Threshold     int
	StakeholderID string // optional stakeholder context for scoring
	DryRun        bool
	LookbackDays  int
	MaxCandidates int
	// AllowFileReuse keeps already-attached files in the available set
	// so one document can back multiple schedules.
	AllowFileReuse bool

	// Progress is called as the run moves between phases (optional).
	Progress func(phase string)
}

// Result holds reconcile run results
type Result struct {
	RunID            int64
	FilesConsidered  int
	SchedulesFetched int
	Proposals        []matcher.Proposal
	ConfirmedCount   int
	ErrorCount       int
	Errors           []error
}

// Orchestrator runs the reconcile process
type Orchestrator struct {
	client  Client
	storage storage.Repository
	logger  *slog.Logger
}

// NewOrchestrator creates a new reconcile orchestrator
func NewOrchestrator(client Client, store storage.Repository, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:  client,
		storage: store,
		logger:  logger,
	}
}
