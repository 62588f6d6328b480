package storage

import (
	"sort"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	files       map[string]*StoredFile
	attachments []*Attachment
	runs        map[int64]*ReconcileRun
	apiCalls    []APICall
	nextFileID  int64
	nextAttID   int64
	nextRunID   int64

	// Hooks for test assertions
	SaveFileCalled       bool
	LastSavedFile        *StoredFile
	SaveAttachmentCalled bool
	LastSavedAttachment  *Attachment
	StartRunCalled       bool
	LogAPICallCalled     bool
	ClearCalled          bool

	// Error injection for testing error paths
	SaveFileErr       error
	ListFilesErr      error
	SaveAttachmentErr error
	ListAttachErr     error
	StartRunErr       error
	CompleteRunErr    error
	StatsErr          error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		files:      make(map[string]*StoredFile),
		runs:       make(map[int64]*ReconcileRun),
		apiCalls:   make([]APICall, 0),
		nextFileID: 1,
		nextAttID:  1,
		nextRunID:  1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close is a no-op for the mock
func (m *MockRepository) Close() error { return nil }

// SaveFile records a file in memory
func (m *MockRepository) SaveFile(file *StoredFile) error {
	m.SaveFileCalled = true
	m.LastSavedFile = file
	if m.SaveFileErr != nil {
		return m.SaveFileErr
	}
	file.ID = m.nextFileID
	m.nextFileID++
	m.files[file.FileID] = file
	return nil
}

// GetFile retrieves a file by Nibo file id
func (m *MockRepository) GetFile(fileID string) (*StoredFile, error) {
	return m.files[fileID], nil
}

// ListFiles returns files matching the filters, newest first
func (m *MockRepository) ListFiles(filters FileFilters) ([]*StoredFile, error) {
	if m.ListFilesErr != nil {
		return nil, m.ListFilesErr
	}

	attached := map[string]bool{}
	if filters.AvailableOnly {
		attached, _ = m.AttachedFileIDs()
	}

	files := make([]*StoredFile, 0, len(m.files))
	for _, f := range m.files {
		if filters.AvailableOnly && attached[f.FileID] {
			continue
		}
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].UploadedAt.Equal(files[j].UploadedAt) {
			return files[i].ID > files[j].ID
		}
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// SaveAttachment records an attachment, enforcing pair uniqueness
func (m *MockRepository) SaveAttachment(att *Attachment) error {
	m.SaveAttachmentCalled = true
	m.LastSavedAttachment = att
	if m.SaveAttachmentErr != nil {
		return m.SaveAttachmentErr
	}

	for _, existing := range m.attachments {
		if existing.FileID == att.FileID && existing.ScheduleID == att.ScheduleID {
			return ErrDuplicateAttachment
		}
	}

	if att.ConfirmedAt.IsZero() {
		att.ConfirmedAt = time.Now().UTC()
	}
	att.ID = m.nextAttID
	m.nextAttID++
	m.attachments = append(m.attachments, att)
	return nil
}

// HasAttachment reports whether the pair is confirmed
func (m *MockRepository) HasAttachment(fileID, scheduleID string) (bool, error) {
	for _, att := range m.attachments {
		if att.FileID == fileID && att.ScheduleID == scheduleID {
			return true, nil
		}
	}
	return false, nil
}

// ListAttachments returns attachments, newest first
func (m *MockRepository) ListAttachments(limit int) ([]*Attachment, error) {
	if m.ListAttachErr != nil {
		return nil, m.ListAttachErr
	}
	if limit <= 0 {
		limit = 100
	}

	out := make([]*Attachment, len(m.attachments))
	copy(out, m.attachments)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AttachedFileIDs returns the set of attached file ids
func (m *MockRepository) AttachedFileIDs() (map[string]bool, error) {
	ids := make(map[string]bool)
	for _, att := range m.attachments {
		ids[att.FileID] = true
	}
	return ids, nil
}

// AttachedScheduleIDs returns the set of attached schedule ids
func (m *MockRepository) AttachedScheduleIDs() (map[string]bool, error) {
	ids := make(map[string]bool)
	for _, att := range m.attachments {
		ids[att.ScheduleID] = true
	}
	return ids, nil
}

// ClearAttachments wipes the confirmed history
func (m *MockRepository) ClearAttachments() (int64, error) {
	m.ClearCalled = true
	n := int64(len(m.attachments))
	m.attachments = nil
	return n, nil
}

// GetStats returns aggregates over the in-memory data
func (m *MockRepository) GetStats() (*Stats, error) {
	if m.StatsErr != nil {
		return nil, m.StatsErr
	}

	stats := &Stats{
		TotalFiles:       len(m.files),
		TotalAttachments: len(m.attachments),
		TotalRuns:        len(m.runs),
		KindStats:        make(map[string]KindStats),
	}

	totalScore := 0
	kindScores := make(map[string]int)
	for _, att := range m.attachments {
		totalScore += att.Score
		switch att.Origin {
		case OriginAuto:
			stats.AutoCount++
		case OriginManual:
			stats.ManualCount++
		}
		ks := stats.KindStats[att.ScheduleKind]
		ks.Count++
		stats.KindStats[att.ScheduleKind] = ks
		kindScores[att.ScheduleKind] += att.Score
	}
	if len(m.attachments) > 0 {
		stats.AverageScore = float64(totalScore) / float64(len(m.attachments))
	}
	for kind, ks := range stats.KindStats {
		ks.AverageScore = float64(kindScores[kind]) / float64(ks.Count)
		stats.KindStats[kind] = ks
	}
	return stats, nil
}

// StartReconcileRun records a run start
func (m *MockRepository) StartReconcileRun(kind string, threshold int, dryRun bool) (int64, error) {
	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return 0, m.StartRunErr
	}
	id := m.nextRunID
	m.nextRunID++
	m.runs[id] = &ReconcileRun{
		ID:        id,
		Kind:      kind,
		Threshold: threshold,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Status:    "running",
	}
	return id, nil
}

// CompleteReconcileRun records a run completion
func (m *MockRepository) CompleteReconcileRun(runID int64, counts RunCounts) error {
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return nil
	}
	run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	run.FilesConsidered = counts.FilesConsidered
	run.SchedulesFetched = counts.SchedulesFetched
	run.ProposalCount = counts.Proposals
	run.ConfirmedCount = counts.Confirmed
	run.ErrorCount = counts.Errors
	run.Status = "completed"
	if counts.Errors > 0 {
		run.Status = "completed_with_errors"
	}
	return nil
}

// ListReconcileRuns returns runs, newest first
func (m *MockRepository) ListReconcileRuns(limit int) ([]ReconcileRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs := make([]ReconcileRun, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetReconcileRun retrieves a run by ID
func (m *MockRepository) GetReconcileRun(runID int64) (*ReconcileRun, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	clone := *run
	return &clone, nil
}

// LogAPICall records an API call
func (m *MockRepository) LogAPICall(call *APICall) error {
	m.LogAPICallCalled = true
	m.apiCalls = append(m.apiCalls, *call)
	return nil
}

// APICalls returns all logged calls (test helper)
func (m *MockRepository) APICalls() []APICall {
	return m.apiCalls
}

// AddFile seeds a file directly (test helper)
func (m *MockRepository) AddFile(file *StoredFile) {
	if file.ID == 0 {
		file.ID = m.nextFileID
		m.nextFileID++
	}
	m.files[file.FileID] = file
}

// AddAttachment seeds an attachment directly (test helper)
func (m *MockRepository) AddAttachment(att *Attachment) {
	if att.ID == 0 {
		att.ID = m.nextAttID
		m.nextAttID++
	}
	m.attachments = append(m.attachments, att)
}
