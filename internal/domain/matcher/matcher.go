// Package matcher pairs uploaded documents with Nibo payment/receipt
// schedules.
//
// Scoring is additive over three independent rules:
//   - stakeholder identity (+30)
//   - NF number extracted from both sides and equal (+70)
//   - fiscal keyword present in both file name and description (+10 each)
//
// Example usage:
//
//	m := matcher.New(matcher.DefaultConfig())
//	proposals := m.ProposeMatches(files, schedules, stakeholderID)
//	for _, p := range proposals {
//		// p.Score > threshold, best schedule for p.FileID
//	}
package matcher

import "sort"

// Config holds matcher configuration
type Config struct {
	// Threshold is the minimum score (exclusive) for a proposal.
	// A file whose best schedule scores <= Threshold yields nothing.
	Threshold int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Threshold: 50,
	}
}

// Matcher proposes file/schedule pairings
type Matcher struct {
	config Config
}

// New creates a matcher with the given config
func New(config Config) *Matcher {
	return &Matcher{config: config}
}

// ProposeMatches finds, for each file, the single best-scoring schedule
// strictly above the configured threshold.
//
// Files and schedules are scanned in input order. Ties between
// schedules keep the first one scanned (strict > comparison, no
// secondary key). The result is sorted by descending score with a
// stable sort, so equal scores preserve file processing order.
//
// Pure computation: no I/O, no shared state, safe to call repeatedly.
// Callers are responsible for excluding files and schedules that are
// already confirmed in the ledger.
func (m *Matcher) ProposeMatches(
	files []File,
	schedules []Schedule,
	expectedStakeholderID string,
) []Proposal {
	proposals := make([]Proposal, 0, len(files))

	for _, file := range files {
		var best *Proposal
		for _, schedule := range schedules {
			score, rationale := Score(schedule, file.Name, expectedStakeholderID)
			if score <= m.config.Threshold {
				continue
			}
			if best == nil || score > best.Score {
				best = &Proposal{
					FileID:     file.ID,
					FileName:   file.Name,
					ScheduleID: schedule.ID,
					Score:      score,
					Rationale:  rationale,
				}
			}
		}
		if best != nil {
			proposals = append(proposals, *best)
		}
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].Score > proposals[j].Score
	})

	return proposals
}
