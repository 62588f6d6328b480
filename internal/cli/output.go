package cli

import (
	"fmt"
	"strings"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/reconcile"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(kind string, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Printf("nibo-reconcile: %s schedules (%s mode)\n", kind, mode)
}

// PrintConfiguration prints reconcile configuration
func PrintConfiguration(kind string, threshold, lookbackDays, maxCandidates int) {
	fmt.Printf("Kind: %s | Threshold: %d | Lookback: %d days", kind, threshold, lookbackDays)
	if maxCandidates > 0 {
		fmt.Printf(" | Max candidates: %d", maxCandidates)
	}
	fmt.Println()
}

// PrintProposals prints the ranked proposals of a pass
func PrintProposals(result *reconcile.Result) {
	if len(result.Proposals) == 0 {
		fmt.Println("\nNo matches above the threshold.")
		return
	}

	fmt.Printf("\nProposals (%d):\n", len(result.Proposals))
	for _, p := range result.Proposals {
		fmt.Printf("  %s -> %s (score %d)\n", p.FileName, p.ScheduleID, p.Score)
		for _, reason := range p.Rationale {
			fmt.Printf("      %s\n", reason)
		}
	}
}

// PrintRunSummary prints the reconcile result summary
func PrintRunSummary(result *reconcile.Result, store *storage.Storage, dryRun bool) {
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Summary: Files=%d Schedules=%d Proposals=%d Confirmed=%d Errors=%d\n",
		result.FilesConsidered,
		result.SchedulesFetched,
		len(result.Proposals),
		result.ConfirmedCount,
		result.ErrorCount)

	// Print errors if any
	if len(result.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, err := range result.Errors {
			fmt.Printf("  - %v\n", err)
		}
	}

	// Get stats from database
	if store != nil {
		stats, _ := store.GetStats()
		if stats != nil && stats.TotalAttachments > 0 {
			fmt.Printf("\nAll-Time Stats: Files=%d Attachments=%d Auto=%d Manual=%d AvgScore=%.1f\n",
				stats.TotalFiles,
				stats.TotalAttachments,
				stats.AutoCount,
				stats.ManualCount,
				stats.AverageScore)
		}
	}

	if !dryRun && result.ConfirmedCount > 0 {
		fmt.Println("\nReconcile completed successfully.")
	}
}
