package dto

// ScheduleSearchParams represents query parameters for searching schedules.
type ScheduleSearchParams struct {
	Kind     string  `json:"kind"` // "debit" or "credit"
	OpenOnly bool    `json:"open_only"`
	DaysBack int     `json:"days_back"`
	Search   string  `json:"search"` // substring match on the description
	MinValue float64 `json:"min_value"`
	MaxValue float64 `json:"max_value"`
	Limit    int     `json:"limit"`
}

// ProposeRequest is the request body for a synchronous matching pass.
// Nothing is persisted; the response is a ranked list of proposals.
type ProposeRequest struct {
	Kind          string `json:"kind"`
	Threshold     int    `json:"threshold"`      // 0 = config default
	StakeholderID string `json:"stakeholder_id"` // optional stakeholder context
	DaysBack      int    `json:"days_back"`
	Limit         int    `json:"limit"`
	// AllowFileReuse keeps already-attached files in the pass
	// (null = config default).
	AllowFileReuse *bool `json:"allow_file_reuse"`
}

// ConfirmAttachmentRequest is the request body for confirming a proposal.
type ConfirmAttachmentRequest struct {
	FileID     string   `json:"file_id"`
	ScheduleID string   `json:"schedule_id"`
	Kind       string   `json:"kind"`
	Score      int      `json:"score"`
	Rationale  []string `json:"rationale"`
}

// DefaultScheduleSearchParams returns default values for schedule searches.
func DefaultScheduleSearchParams() ScheduleSearchParams {
	return ScheduleSearchParams{
		OpenOnly: true,
		DaysBack: 60,
		Limit:    50,
	}
}
