package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateAttachment is returned when a (file, schedule) pair is
// confirmed a second time.
var ErrDuplicateAttachment = errors.New("attachment already exists for this file and schedule")

// Storage provides SQLite database access for the reconciliation ledger.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveFile records a successfully uploaded file
func (s *Storage) SaveFile(file *StoredFile) error {
	query := `
	INSERT INTO uploaded_files (file_id, name, size, content_type, uploaded_at)
	VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		file.FileID,
		file.Name,
		file.Size,
		file.ContentType,
		file.UploadedAt,
	)
	if err != nil {
		return err
	}

	file.ID, _ = result.LastInsertId()
	return nil
}

// GetFile retrieves a file by its Nibo file id
func (s *Storage) GetFile(fileID string) (*StoredFile, error) {
	query := `
	SELECT id, file_id, name, size, content_type, uploaded_at
	FROM uploaded_files WHERE file_id = ?
	`

	file := &StoredFile{}
	err := s.db.QueryRow(query, fileID).Scan(
		&file.ID,
		&file.FileID,
		&file.Name,
		&file.Size,
		&file.ContentType,
		&file.UploadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

// ListFiles returns files matching the given filters, newest first
func (s *Storage) ListFiles(filters FileFilters) ([]*StoredFile, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	var query strings.Builder
	query.WriteString(`
	SELECT id, file_id, name, size, content_type, uploaded_at
	FROM uploaded_files
	`)
	if filters.AvailableOnly {
		query.WriteString(` WHERE file_id NOT IN (SELECT file_id FROM attachments)`)
	}
	query.WriteString(` ORDER BY uploaded_at DESC, id DESC LIMIT ?`)

	rows, err := s.db.Query(query.String(), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*StoredFile, 0)
	for rows.Next() {
		file := &StoredFile{}
		if err := rows.Scan(
			&file.ID,
			&file.FileID,
			&file.Name,
			&file.Size,
			&file.ContentType,
			&file.UploadedAt,
		); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// SaveAttachment records a confirmed attachment
func (s *Storage) SaveAttachment(att *Attachment) error {
	if att.ConfirmedAt.IsZero() {
		att.ConfirmedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO attachments
	(file_id, schedule_id, schedule_kind, origin, score, rationale_json, confirmed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		att.FileID,
		att.ScheduleID,
		att.ScheduleKind,
		att.Origin,
		att.Score,
		att.RationaleJSON,
		att.ConfirmedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateAttachment
		}
		return err
	}

	att.ID, _ = result.LastInsertId()
	return nil
}

// HasAttachment reports whether the (file, schedule) pair is confirmed
func (s *Storage) HasAttachment(fileID, scheduleID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`
	SELECT COUNT(*) FROM attachments WHERE file_id = ? AND schedule_id = ?
	`, fileID, scheduleID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListAttachments returns confirmed attachments, newest first
func (s *Storage) ListAttachments(limit int) ([]*Attachment, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
	SELECT id, file_id, schedule_id, schedule_kind, origin, score, rationale_json, confirmed_at
	FROM attachments ORDER BY confirmed_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	attachments := make([]*Attachment, 0)
	for rows.Next() {
		att := &Attachment{}
		if err := rows.Scan(
			&att.ID,
			&att.FileID,
			&att.ScheduleID,
			&att.ScheduleKind,
			&att.Origin,
			&att.Score,
			&att.RationaleJSON,
			&att.ConfirmedAt,
		); err != nil {
			return nil, err
		}
		// Rationale is optional enrichment; unmarshal errors are ignored
		if att.RationaleJSON != "" {
			_ = json.Unmarshal([]byte(att.RationaleJSON), &att.Rationale)
		}
		attachments = append(attachments, att)
	}
	return attachments, rows.Err()
}

// AttachedFileIDs returns the set of file ids with at least one attachment
func (s *Storage) AttachedFileIDs() (map[string]bool, error) {
	return s.idSet(`SELECT DISTINCT file_id FROM attachments`)
}

// AttachedScheduleIDs returns the set of schedule ids with at least one attachment
func (s *Storage) AttachedScheduleIDs() (map[string]bool, error) {
	return s.idSet(`SELECT DISTINCT schedule_id FROM attachments`)
}

func (s *Storage) idSet(query string) (map[string]bool, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ClearAttachments wipes the whole confirmed history
func (s *Storage) ClearAttachments() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM attachments`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetStats returns aggregate statistics
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{
		KindStats: make(map[string]KindStats),
	}

	err := s.db.QueryRow(`SELECT COUNT(*) FROM uploaded_files`).Scan(&stats.TotalFiles)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN origin = 'auto' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN origin = 'manual' THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(score), 0)
	FROM attachments
	`).Scan(&stats.TotalAttachments, &stats.AutoCount, &stats.ManualCount, &stats.AverageScore)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM reconcile_runs`).Scan(&stats.TotalRuns)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
	SELECT schedule_kind, COUNT(*), COALESCE(AVG(score), 0)
	FROM attachments GROUP BY schedule_kind
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var kind string
		var ks KindStats
		if err := rows.Scan(&kind, &ks.Count, &ks.AverageScore); err != nil {
			return nil, err
		}
		stats.KindStats[kind] = ks
	}

	return stats, rows.Err()
}

// StartReconcileRun records the start of a run and returns the run ID
func (s *Storage) StartReconcileRun(kind string, threshold int, dryRun bool) (int64, error) {
	result, err := s.db.Exec(`
	INSERT INTO reconcile_runs (kind, threshold, dry_run, status)
	VALUES (?, ?, ?, 'running')
	`, kind, threshold, dryRun)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CompleteReconcileRun records the completion of a run
func (s *Storage) CompleteReconcileRun(runID int64, counts RunCounts) error {
	status := "completed"
	if counts.Errors > 0 {
		status = "completed_with_errors"
	}

	_, err := s.db.Exec(`
	UPDATE reconcile_runs
	SET completed_at = CURRENT_TIMESTAMP,
	    files_considered = ?,
	    schedules_fetched = ?,
	    proposal_count = ?,
	    confirmed_count = ?,
	    error_count = ?,
	    status = ?
	WHERE id = ?
	`, counts.FilesConsidered, counts.SchedulesFetched, counts.Proposals,
		counts.Confirmed, counts.Errors, status, runID)
	return err
}

// ListReconcileRuns returns recent runs, newest first
func (s *Storage) ListReconcileRuns(limit int) ([]ReconcileRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
	SELECT id, kind, started_at, completed_at, threshold, dry_run,
	       files_considered, schedules_fetched, proposal_count, confirmed_count,
	       error_count, status
	FROM reconcile_runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]ReconcileRun, 0)
	for rows.Next() {
		var run ReconcileRun
		var startedAt time.Time
		var completedAt sql.NullTime
		if err := rows.Scan(
			&run.ID,
			&run.Kind,
			&startedAt,
			&completedAt,
			&run.Threshold,
			&run.DryRun,
			&run.FilesConsidered,
			&run.SchedulesFetched,
			&run.ProposalCount,
			&run.ConfirmedCount,
			&run.ErrorCount,
			&run.Status,
		); err != nil {
			return nil, err
		}
		run.StartedAt = startedAt.UTC().Format(time.RFC3339)
		if completedAt.Valid {
			run.CompletedAt = completedAt.Time.UTC().Format(time.RFC3339)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetReconcileRun retrieves a run by ID
func (s *Storage) GetReconcileRun(runID int64) (*ReconcileRun, error) {
	run := &ReconcileRun{}
	var startedAt time.Time
	var completedAt sql.NullTime
	err := s.db.QueryRow(`
	SELECT id, kind, started_at, completed_at, threshold, dry_run,
	       files_considered, schedules_fetched, proposal_count, confirmed_count,
	       error_count, status
	FROM reconcile_runs WHERE id = ?
	`, runID).Scan(
		&run.ID,
		&run.Kind,
		&startedAt,
		&completedAt,
		&run.Threshold,
		&run.DryRun,
		&run.FilesConsidered,
		&run.SchedulesFetched,
		&run.ProposalCount,
		&run.ConfirmedCount,
		&run.ErrorCount,
		&run.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.StartedAt = startedAt.UTC().Format(time.RFC3339)
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time.UTC().Format(time.RFC3339)
	}
	return run, nil
}

// LogAPICall logs an outbound API call to the database
func (s *Storage) LogAPICall(call *APICall) error {
	_, err := s.db.Exec(`
	INSERT INTO api_calls (run_id, method, url, status_code, error, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?)
	`, call.RunID, call.Method, call.URL, call.StatusCode, call.Error, call.DurationMs)
	return err
}
