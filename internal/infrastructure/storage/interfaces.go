package storage

// Repository defines the complete ledger interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	FileRepository
	AttachmentRepository
	RunRepository
	APICallRepository
	Close() error
}

// FileRepository tracks uploaded documents
type FileRepository interface {
	// SaveFile records a successfully uploaded file
	SaveFile(file *StoredFile) error

	// GetFile retrieves a file by its Nibo file id (nil if absent)
	GetFile(fileID string) (*StoredFile, error)

	// ListFiles returns files matching the given filters
	ListFiles(filters FileFilters) ([]*StoredFile, error)
}

// FileFilters defines filters for listing files
type FileFilters struct {
	// AvailableOnly excludes files that already have a confirmed
	// attachment. Only meaningful when file reuse is disabled.
	AvailableOnly bool
	Limit         int // Max results (0 = default 100)
}

// AttachmentRepository tracks confirmed (file, schedule) pairs
type AttachmentRepository interface {
	// SaveAttachment records a confirmed attachment.
	// Returns ErrDuplicateAttachment if the pair already exists.
	SaveAttachment(att *Attachment) error

	// HasAttachment reports whether the (file, schedule) pair is confirmed
	HasAttachment(fileID, scheduleID string) (bool, error)

	// ListAttachments returns confirmed attachments, newest first
	ListAttachments(limit int) ([]*Attachment, error)

	// AttachedFileIDs returns the set of file ids with at least one attachment
	AttachedFileIDs() (map[string]bool, error)

	// AttachedScheduleIDs returns the set of schedule ids with at least one attachment
	AttachedScheduleIDs() (map[string]bool, error)

	// ClearAttachments wipes the whole confirmed history and returns
	// the number of rows removed
	ClearAttachments() (int64, error)

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)
}

// RunRepository tracks reconcile runs
type RunRepository interface {
	// StartReconcileRun records the start of a run and returns the run ID
	StartReconcileRun(kind string, threshold int, dryRun bool) (int64, error)

	// CompleteReconcileRun records the completion of a run
	CompleteReconcileRun(runID int64, counts RunCounts) error

	// ListReconcileRuns returns recent runs, newest first
	ListReconcileRuns(limit int) ([]ReconcileRun, error)

	// GetReconcileRun retrieves a run by ID (nil if absent)
	GetReconcileRun(runID int64) (*ReconcileRun, error)
}

// RunCounts holds the outcome counters of a completed run
type RunCounts struct {
	FilesConsidered  int
	SchedulesFetched int
	Proposals        int
	Confirmed        int
	Errors           int
}

// APICallRepository handles outbound API call logging
type APICallRepository interface {
	// LogAPICall logs an API call to the database
	LogAPICall(call *APICall) error
}
