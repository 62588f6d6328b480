package storage

import (
	"encoding/json"
	"time"
)

// Attachment origin values
const (
	OriginManual = "manual"
	OriginAuto   = "auto"
)

// StoredFile is an uploaded document tracked by the ledger.
// Created once on successful upload to Nibo, never mutated.
type StoredFile struct {
	ID          int64     `json:"id"`
	FileID      string    `json:"file_id"` // opaque id assigned by Nibo
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Attachment is a confirmed (file, schedule) pairing. The pair is
// unique; a file may appear against multiple schedules when reuse is
// allowed. Score and rationale are a snapshot of the proposal that was
// confirmed.
type Attachment struct {
	ID           int64     `json:"id"`
	FileID       string    `json:"file_id"`
	ScheduleID   string    `json:"schedule_id"`
	ScheduleKind string    `json:"schedule_kind"` // "debit" or "credit"
	Origin       string    `json:"origin"`        // "manual" or "auto"
	Score        int       `json:"score"`
	ConfirmedAt  time.Time `json:"confirmed_at"`

	Rationale     []string `json:"rationale"`
	RationaleJSON string   `json:"-"` // For DB storage
}

// SetRationale serializes the rationale for storage
func (a *Attachment) SetRationale(rationale []string) {
	a.Rationale = rationale
	if len(rationale) == 0 {
		a.RationaleJSON = ""
		return
	}
	data, _ := json.Marshal(rationale)
	a.RationaleJSON = string(data)
}

// ReconcileRun is one orchestrator pass over the available files
type ReconcileRun struct {
	ID               int64  `json:"id"`
	Kind             string `json:"kind"`
	StartedAt        string `json:"started_at"`
	CompletedAt      string `json:"completed_at,omitempty"`
	Threshold        int    `json:"threshold"`
	DryRun           bool   `json:"dry_run"`
	FilesConsidered  int    `json:"files_considered"`
	SchedulesFetched int    `json:"schedules_fetched"`
	ProposalCount    int    `json:"proposal_count"`
	ConfirmedCount   int    `json:"confirmed_count"`
	ErrorCount       int    `json:"error_count"`
	Status           string `json:"status"`
}

// APICall represents a logged outbound Nibo API call
type APICall struct {
	RunID      int64
	Method     string
	URL        string
	StatusCode int
	Error      string
	DurationMs int64
}

// Stats contains ledger-wide aggregates
type Stats struct {
	TotalFiles       int                  `json:"total_files"`
	TotalAttachments int                  `json:"total_attachments"`
	AutoCount        int                  `json:"auto_count"`
	ManualCount      int                  `json:"manual_count"`
	AverageScore     float64              `json:"average_score"`
	TotalRuns        int                  `json:"total_runs"`
	KindStats        map[string]KindStats `json:"kind_stats"`
}

// KindStats contains per-schedule-kind aggregates
type KindStats struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
}
