package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/reconcile"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/config"
)

// JobStatus represents the current state of a reconcile job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without progress
	// updates before being considered stale.
	DefaultJobStaleThreshold = 15 * time.Minute

	// DefaultJobMaxDuration is the maximum time a job can run before
	// being forcefully marked as failed.
	DefaultJobMaxDuration = time.Hour
)

// ReconcileRequest holds parameters for starting a reconcile job.
type ReconcileRequest struct {
	Kind           nibo.Kind
	Threshold      int // 0 = config default
	StakeholderID  string
	DryRun         bool
	LookbackDays   int   // 0 = config default
	MaxCandidates  int   // 0 = config default
	AllowFileReuse *bool // nil = config default
}

// JobProgress holds real-time progress information.
type JobProgress struct {
	CurrentPhase string // "pending", "fetching_files", "fetching_schedules", "matching", "attaching", "completed", "failed"
	LastUpdate   time.Time
}

// Job represents a running or completed reconcile job.
type Job struct {
	ID          string
	Kind        nibo.Kind
	Status      JobStatus
	Request     ReconcileRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    JobProgress
	Result      *reconcile.Result
	Error       error
	cancelFunc  context.CancelFunc
}

// Runner executes a reconcile pass. Satisfied by reconcile.Orchestrator.
type Runner interface {
	Run(ctx context.Context, opts reconcile.Options) (*reconcile.Result, error)
}

// ReconcileService manages asynchronous reconcile jobs.
type ReconcileService struct {
	cfg    *config.Config
	runner Runner
	logger *slog.Logger

	// Job management
	jobs      map[string]*Job
	jobsMutex sync.RWMutex

	// Kind-level locking (only one reconcile per schedule kind at a time)
	kindLocks  map[nibo.Kind]*sync.Mutex
	locksMutex sync.Mutex

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewReconcileService creates a new reconcile service.
func NewReconcileService(cfg *config.Config, runner Runner, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{
		cfg:       cfg,
		runner:    runner,
		logger:    logger,
		jobs:      make(map[string]*Job),
		kindLocks: make(map[nibo.Kind]*sync.Mutex),
	}
}

// StartReconcile starts a new reconcile job asynchronously.
// Note: The passed context is NOT used as the parent for the background job.
// Background jobs use context.Background() to avoid being cancelled when the
// HTTP request completes. Use CancelJob() to cancel a running job.
func (s *ReconcileService) StartReconcile(_ context.Context, req ReconcileRequest) (string, error) {
	if !req.Kind.Valid() {
		return "", fmt.Errorf("invalid schedule kind: %q", req.Kind)
	}

	// Only one job per kind at a time
	if !s.tryLockKind(req.Kind) {
		return "", fmt.Errorf("reconcile already running for kind: %s", req.Kind)
	}

	jobID := uuid.NewString()

	// Cancellable context from Background - NOT from the request context.
	jobCtx, cancel := context.WithCancel(context.Background())

	job := &Job{
		ID:         jobID,
		Kind:       req.Kind,
		Status:     StatusPending,
		Request:    req,
		StartedAt:  time.Now(),
		cancelFunc: cancel,
		Progress:   JobProgress{CurrentPhase: "pending", LastUpdate: time.Now()},
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, job)

	s.logger.Info("reconcile job started",
		"job_id", jobID,
		"kind", req.Kind,
		"dry_run", req.DryRun,
	)

	return jobID, nil
}

// GetJob retrieves a reconcile job by ID.
func (s *ReconcileService) GetJob(jobID string) (*Job, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// ListActiveJobs returns all running or pending jobs.
func (s *ReconcileService) ListActiveJobs() []*Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	var active []*Job
	for _, job := range s.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			active = append(active, job)
		}
	}
	return active
}

// ListAllJobs returns all jobs (for debugging/monitoring).
func (s *ReconcileService) ListAllJobs() []*Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelJob cancels a running reconcile job.
func (s *ReconcileService) CancelJob(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	job.Progress.CurrentPhase = "cancelled"
	job.Progress.LastUpdate = now

	s.logger.Info("reconcile job cancelled", "job_id", jobID)
	return nil
}

// runJob executes the reconcile job in a background goroutine.
func (s *ReconcileService) runJob(ctx context.Context, job *Job) {
	defer s.unlockKind(job.Kind)

	s.updateJobStatus(job.ID, StatusRunning, "initializing")

	opts := s.buildOptions(job.Request)
	opts.Progress = func(phase string) {
		s.updateJobPhase(job.ID, phase)
	}

	result, err := s.runner.Run(ctx, opts)
	if err != nil {
		if ctx.Err() == context.Canceled {
			// Already marked as cancelled in CancelJob
			return
		}
		s.failJob(job.ID, err)
		return
	}

	s.completeJob(job.ID, result)
}

// buildOptions resolves request parameters against config defaults.
func (s *ReconcileService) buildOptions(req ReconcileRequest) reconcile.Options {
	opts := reconcile.Options{
		Kind:           req.Kind,
		Threshold:      req.Threshold,
		StakeholderID:  req.StakeholderID,
		DryRun:         req.DryRun,
		LookbackDays:   req.LookbackDays,
		MaxCandidates:  req.MaxCandidates,
		AllowFileReuse: true,
	}
	if s.cfg != nil {
		if opts.Threshold == 0 {
			opts.Threshold = s.cfg.Reconcile.Threshold
		}
		if opts.LookbackDays == 0 {
			opts.LookbackDays = s.cfg.Reconcile.LookbackDays
		}
		if opts.MaxCandidates == 0 {
			opts.MaxCandidates = s.cfg.Reconcile.MaxCandidates
		}
		opts.AllowFileReuse = s.cfg.Reconcile.AllowFileReuse
	}
	if req.AllowFileReuse != nil {
		opts.AllowFileReuse = *req.AllowFileReuse
	}
	return opts
}

// updateJobStatus updates a job's status and current phase.
func (s *ReconcileService) updateJobStatus(jobID string, status JobStatus, phase string) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		job.Status = status
		job.Progress.CurrentPhase = phase
		job.Progress.LastUpdate = time.Now()
	}
}

// updateJobPhase updates job progress from the orchestrator callback.
func (s *ReconcileService) updateJobPhase(jobID string, phase string) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		job.Progress.CurrentPhase = phase
		job.Progress.LastUpdate = time.Now()
	}
}

// completeJob marks a job as completed with results.
func (s *ReconcileService) completeJob(jobID string, result *reconcile.Result) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.Result = result
		job.Progress.CurrentPhase = "completed"
		job.Progress.LastUpdate = now
		s.logger.Info("reconcile job completed",
			"job_id", jobID,
			"run_id", result.RunID,
			"proposals", len(result.Proposals),
			"confirmed", result.ConfirmedCount,
			"errors", result.ErrorCount,
		)
	}
}

// failJob marks a job as failed with an error.
func (s *ReconcileService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = err
		job.Progress = JobProgress{
			CurrentPhase: "failed",
			LastUpdate:   now,
		}
		s.logger.Error("reconcile job failed", "job_id", jobID, "error", err)
	}
}

// tryLockKind attempts to acquire the lock for a schedule kind.
func (s *ReconcileService) tryLockKind(kind nibo.Kind) bool {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if _, exists := s.kindLocks[kind]; !exists {
		s.kindLocks[kind] = &sync.Mutex{}
	}
	return s.kindLocks[kind].TryLock()
}

// unlockKind releases the lock for a schedule kind.
func (s *ReconcileService) unlockKind(kind nibo.Kind) {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if lock, exists := s.kindLocks[kind]; exists {
		lock.Unlock()
	}
}

// CleanupOldJobs removes completed jobs older than the specified duration.
func (s *ReconcileService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.Status == StatusCompleted || job.Status == StatusFailed || job.Status == StatusCancelled {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(s.jobs, id)
				removed++
			}
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old reconcile jobs", "removed", removed)
	}
	return removed
}

// MarkStaleJobsAsFailed finds jobs that appear to be stuck and marks them
// as failed. A job is stale when it has been running longer than maxDuration
// or its Progress.LastUpdate is older than staleThreshold. This covers a
// goroutine that panicked without updating job status and in-memory jobs
// orphaned by a restart.
func (s *ReconcileService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0

	for id, job := range s.jobs {
		if job.Status != StatusRunning && job.Status != StatusPending {
			continue
		}

		isStale := false
		reason := ""

		if now.Sub(job.StartedAt) > maxDuration {
			isStale = true
			reason = fmt.Sprintf("exceeded max duration of %v (started %v ago)", maxDuration, now.Sub(job.StartedAt).Round(time.Second))
		}

		if !isStale && now.Sub(job.Progress.LastUpdate) > staleThreshold {
			isStale = true
			reason = fmt.Sprintf("no progress update for %v (threshold: %v)", now.Sub(job.Progress.LastUpdate).Round(time.Second), staleThreshold)
		}

		if isStale {
			if job.cancelFunc != nil {
				job.cancelFunc()
			}

			job.Status = StatusFailed
			job.CompletedAt = &now
			job.Error = fmt.Errorf("job marked as stale: %s", reason)
			job.Progress.CurrentPhase = "failed"
			job.Progress.LastUpdate = now

			s.releaseKindLockUnsafe(job.Kind)

			s.logger.Warn("marked stale job as failed",
				"job_id", id,
				"kind", job.Kind,
				"reason", reason,
				"started_at", job.StartedAt,
			)

			marked++
		}
	}

	return marked
}

// releaseKindLockUnsafe releases a kind lock regardless of current state.
// MUST only be called while holding jobsMutex to avoid races.
func (s *ReconcileService) releaseKindLockUnsafe(kind nibo.Kind) {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if lock, exists := s.kindLocks[kind]; exists {
		// TryLock then Unlock ensures we don't panic if already unlocked
		lock.TryLock()
		lock.Unlock()
	}
}

// IsJobStale checks if a specific job is considered stale.
func (s *ReconcileService) IsJobStale(jobID string, staleThreshold, maxDuration time.Duration) bool {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return false
	}

	if job.Status != StatusRunning && job.Status != StatusPending {
		return false
	}

	now := time.Now()
	return now.Sub(job.StartedAt) > maxDuration || now.Sub(job.Progress.LastUpdate) > staleThreshold
}

// StartBackgroundCleanup starts a background goroutine that periodically
// marks stale jobs as failed and removes old completed jobs. Call
// StopBackgroundCleanup to stop it.
func (s *ReconcileService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		s.logger.Info("background job cleanup started",
			"check_interval", checkInterval,
			"stale_threshold", DefaultJobStaleThreshold,
			"max_duration", DefaultJobMaxDuration,
		)

		for {
			select {
			case <-s.cleanupStop:
				s.logger.Info("background job cleanup stopped")
				return
			case <-ticker.C:
				staleMarked := s.MarkStaleJobsAsFailed(DefaultJobStaleThreshold, DefaultJobMaxDuration)
				if staleMarked > 0 {
					s.logger.Info("marked stale jobs as failed", "count", staleMarked)
				}

				cleaned := s.CleanupOldJobs(24 * time.Hour)
				if cleaned > 0 {
					s.logger.Debug("cleaned up old jobs", "count", cleaned)
				}
			}
		}
	}()
}

// StopBackgroundCleanup stops the background cleanup goroutine.
// This method blocks until the cleanup goroutine has fully stopped.
func (s *ReconcileService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}
	close(s.cleanupStop)
	<-s.cleanupDone
}
