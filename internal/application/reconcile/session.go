package reconcile

import (
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// Session is the explicit snapshot a matching pass runs over: the
// available files, the candidate schedules and the already-confirmed
// pairs. It is built by the caller and never mutated by the matcher.
type Session struct {
	AvailableFiles     []matcher.File
	CandidateSchedules []matcher.Schedule
}

// BuildSession loads the available files from the ledger and pairs them
// with the given candidate schedules. When allowFileReuse is false,
// files that already have a confirmed attachment are excluded.
func BuildSession(repo storage.Repository, schedules []matcher.Schedule, allowFileReuse bool) (*Session, error) {
	stored, err := repo.ListFiles(storage.FileFilters{AvailableOnly: !allowFileReuse})
	if err != nil {
		return nil, err
	}

	files := make([]matcher.File, 0, len(stored))
	for _, f := range stored {
		files = append(files, matcher.File{
			ID:         f.FileID,
			Name:       f.Name,
			Size:       f.Size,
			UploadedAt: f.UploadedAt,
		})
	}

	return &Session{
		AvailableFiles:     files,
		CandidateSchedules: schedules,
	}, nil
}

// FilterConfirmed removes proposals whose (file, schedule) pair is
// already confirmed in the ledger.
func FilterConfirmed(repo storage.Repository, proposals []matcher.Proposal) ([]matcher.Proposal, error) {
	filtered := make([]matcher.Proposal, 0, len(proposals))
	for _, p := range proposals {
		confirmed, err := repo.HasAttachment(p.FileID, p.ScheduleID)
		if err != nil {
			return nil, err
		}
		if confirmed {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}
