package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// FileResponse represents an uploaded file in API responses.
type FileResponse struct {
	ID          int64  `json:"id"`
	FileID      string `json:"file_id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
	UploadedAt  string `json:"uploaded_at"`
}

// FileListResponse is returned when listing files.
type FileListResponse struct {
	Files []FileResponse `json:"files"`
	Count int            `json:"count"`
}

// ScheduleResponse represents a financial schedule in API responses.
type ScheduleResponse struct {
	ScheduleID      string  `json:"schedule_id"`
	Description     string  `json:"description"`
	StakeholderID   string  `json:"stakeholder_id,omitempty"`
	StakeholderName string  `json:"stakeholder_name,omitempty"`
	DueDate         string  `json:"due_date,omitempty"`
	Value           float64 `json:"value"`
}

// ScheduleListResponse is returned when searching schedules.
type ScheduleListResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
	Count     int                `json:"count"`
}

// ProposalResponse represents one proposed (file, schedule) match.
type ProposalResponse struct {
	FileID     string   `json:"file_id"`
	FileName   string   `json:"file_name"`
	ScheduleID string   `json:"schedule_id"`
	Score      int      `json:"score"`
	Rationale  []string `json:"rationale"`
}

// ProposalListResponse is returned by a matching pass, ranked by score.
type ProposalListResponse struct {
	Proposals []ProposalResponse `json:"proposals"`
	Count     int                `json:"count"`
	Threshold int                `json:"threshold"`
}

// AttachmentResponse represents a confirmed attachment.
type AttachmentResponse struct {
	ID           int64    `json:"id"`
	FileID       string   `json:"file_id"`
	ScheduleID   string   `json:"schedule_id"`
	ScheduleKind string   `json:"schedule_kind"`
	Origin       string   `json:"origin"`
	Score        int      `json:"score"`
	Rationale    []string `json:"rationale,omitempty"`
	ConfirmedAt  string   `json:"confirmed_at"`
}

// AttachmentListResponse is returned when listing attachments.
type AttachmentListResponse struct {
	Attachments []AttachmentResponse `json:"attachments"`
	Count       int                  `json:"count"`
}

// ClearAttachmentsResponse reports how many rows were removed.
type ClearAttachmentsResponse struct {
	Removed int64 `json:"removed"`
}

// RunResponse represents a reconcile run in API responses.
type RunResponse struct {
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

// RunListResponse is returned when listing reconcile runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// KindStatsResponse is the per-schedule-kind aggregate.
type KindStatsResponse struct {
	Kind         string  `json:"kind"`
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	TotalFiles       int                 `json:"total_files"`
	TotalAttachments int                 `json:"total_attachments"`
	AutoCount        int                 `json:"auto_count"`
	ManualCount      int                 `json:"manual_count"`
	AverageScore     float64             `json:"average_score"`
	TotalRuns        int                 `json:"total_runs"`
	KindStats        []KindStatsResponse `json:"kind_stats"`
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
