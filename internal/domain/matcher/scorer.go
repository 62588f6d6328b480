package matcher

import (
	"fmt"
	"strings"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/extractor"
)

// Points awarded per rule.
const (
	stakeholderPoints = 30
	identifierPoints  = 70
	keywordPoints     = 10
)

// keywords is the fixed vocabulary scored for co-occurrence between a
// file name and a schedule description.
var keywords = []string{"NF", "DANFE", "FATURA", "BOLETO", "RECIBO", "NOTA"}

// Score computes the confidence that filename documents the given
// schedule. expectedStakeholderID may be empty when the caller has no
// stakeholder context.
//
// The score is additive with no cap; each rule fires independently.
// Missing inputs never error: a rule that cannot evaluate simply
// contributes zero. Rationale fragments come back in a fixed order
// (stakeholder, identifier, keywords) regardless of which rules fired.
func Score(schedule Schedule, filename string, expectedStakeholderID string) (int, []string) {
	score := 0
	var rationale []string

	if expectedStakeholderID != "" && schedule.StakeholderID == expectedStakeholderID {
		score += stakeholderPoints
		rationale = append(rationale, "stakeholder match")
	}

	descID, descOK := extractor.FromDescription(schedule.Description)
	fileID, fileOK := extractor.FromFilename(filename)
	if descOK && fileOK && descID == fileID {
		score += identifierPoints
		rationale = append(rationale, fmt.Sprintf("NF number %s in description and filename", descID))
	}

	upperName := strings.ToUpper(filename)
	upperDesc := strings.ToUpper(schedule.Description)
	for _, kw := range keywords {
		if strings.Contains(upperName, kw) && strings.Contains(upperDesc, kw) {
			score += keywordPoints
			rationale = append(rationale, fmt.Sprintf("keyword %q in description and filename", kw))
		}
	}

	return score, rationale
}
