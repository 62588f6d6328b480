// Package extractor pulls fiscal document numbers (NF numbers) out of
// free text.
//
// Two entry points exist because the inputs have different habits:
//   - FromDescription handles schedule descriptions, where the number is
//     usually announced by a label ("NF 3126473", "Nota Fiscal: 98765")
//   - FromFilename handles file names, which often carry leading
//     zero-padding or a prefix code ("00123456_boleto.pdf", "NF3126473.pdf")
//
// Example usage:
//
//	id, ok := extractor.FromDescription("Pagamento NF: 3126473 - servico")
//	if ok {
//		// id == "3126473"
//	}
package extractor

import (
	"regexp"
	"strings"
)

// Description patterns, most specific first. The first pattern that
// matches wins, scanning left-to-right within that pattern.
var descriptionPatterns = []*regexp.Regexp{
	// Explicit label followed by 5-9 digits. Longer labels come first in
	// the alternation so "NFe" is not consumed as "NF" + stray 'e'.
	regexp.MustCompile(`(?i)(?:NOTA\s+FISCAL|DANFE|NFE|NF)\s*:?\s*(\d{5,9})`),
	// Bare 9-digit run.
	regexp.MustCompile(`\b(\d{9})\b`),
	// Bare 6-8 digit run.
	regexp.MustCompile(`\b(\d{6,8})\b`),
}

// Filename patterns. Digit runs are taken as-is here and zero-stripped
// afterwards, since scanners pad numbers to a fixed width.
var filenamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{5,9})`),
	regexp.MustCompile(`(?i)NF(\d{5,9})`),
	regexp.MustCompile(`(?i)NFE(\d{5,9})`),
}

// FromDescription extracts an NF number from a schedule description.
// Returns false when no qualifying number is present.
func FromDescription(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, pattern := range descriptionPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// FromFilename extracts an NF number from a file name, stripping any
// leading zero-padding. Returns false when no qualifying number is
// present.
func FromFilename(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, pattern := range filenamePatterns {
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		digits := strings.TrimLeft(m[1], "0")
		if digits == "" {
			// All zeros is not a usable number; try the next pattern.
			continue
		}
		return digits, true
	}
	return "", false
}
