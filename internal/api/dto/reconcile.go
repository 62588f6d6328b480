package dto

// StartReconcileRequest is the request body for starting a reconcile job.
type StartReconcileRequest struct {
	Kind          string `json:"kind"` // "debit" or "credit"
	Threshold     int    `json:"threshold"`
	StakeholderID string `json:"stakeholder_id"`
	DryRun        bool   `json:"dry_run"`
	LookbackDays  int    `json:"lookback_days"`
	MaxCandidates int    `json:"max_candidates"`
	// AllowFileReuse overrides the config default when set.
	AllowFileReuse *bool `json:"allow_file_reuse"`
}

// StartReconcileResponse is returned when a reconcile job is started.
type StartReconcileResponse struct {
	JobID  string `json:"job_id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

// JobResponse represents a reconcile job's status.
type JobResponse struct {
	JobID       string              `json:"job_id"`
	Kind        string              `json:"kind"`
	Status      string              `json:"status"`
	DryRun      bool                `json:"dry_run"`
	StartedAt   string              `json:"started_at"`
	CompletedAt *string             `json:"completed_at,omitempty"`
	Progress    JobProgressResponse `json:"progress"`
	Result      *JobResultResponse  `json:"result,omitempty"`
	Error       *string             `json:"error,omitempty"`
}

// JobProgressResponse represents real-time job progress.
type JobProgressResponse struct {
	CurrentPhase string `json:"current_phase"`
	LastUpdate   string `json:"last_update"`
}

// JobResultResponse represents the final reconcile result.
type JobResultResponse struct {
	RunID            int64 `json:"run_id"`
	FilesConsidered  int   `json:"files_considered"`
	SchedulesFetched int   `json:"schedules_fetched"`
	ProposalCount    int   `json:"proposal_count"`
	ConfirmedCount   int   `json:"confirmed_count"`
	ErrorCount       int   `json:"error_count"`
}

// ActiveJobsResponse lists active reconcile jobs.
type ActiveJobsResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// AllJobsResponse lists all reconcile jobs (including completed).
type AllJobsResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}
