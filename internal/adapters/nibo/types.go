package nibo

import "time"

// Kind selects which schedule collection an operation targets.
type Kind string

// Schedule kinds. Debit schedules are payables, credit schedules are
// receivables.
const (
	KindDebit  Kind = "debit"
	KindCredit Kind = "credit"
)

// Valid reports whether k is a known schedule kind
func (k Kind) Valid() bool {
	return k == KindDebit || k == KindCredit
}

// SearchParams describes a schedule search.
// Zero values mean "no constraint".
type SearchParams struct {
	Kind        Kind
	OpenOnly    bool // only schedules not yet settled
	DueAfter    time.Time
	DueBefore   time.Time
	Description string // substring match on the description
	MinValue    float64
	MaxValue    float64
	OrderBy     string // e.g. "dueDate"
	Limit       int    // 0 = API default
}

// UploadResult is the outcome of a file upload
type UploadResult struct {
	FileID string
	Name   string
	Size   int64
}
