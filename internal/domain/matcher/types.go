package matcher

import "time"

// File is an uploaded document as the matcher sees it: the opaque Nibo
// file id plus the metadata the scoring rules read.
type File struct {
	ID         string
	Name       string
	Size       int64
	UploadedAt time.Time
}

// Schedule is the canonical shape of a payable/receivable schedule.
// The Nibo adapter normalizes the API's heterogeneous JSON into this
// struct before the matcher ever sees it; every field is a read-only
// snapshot.
type Schedule struct {
	ID              string
	Description     string
	StakeholderID   string
	StakeholderName string
	DueDate         time.Time
	Value           float64
}

// Proposal is an unconfirmed candidate pairing of a file with a
// schedule, produced by ProposeMatches.
type Proposal struct {
	FileID     string
	FileName   string
	ScheduleID string
	Score      int
	Rationale  []string
}
