package cli

import (
	"flag"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/reconcile"
)

// ReconcileFlags are the flags for the reconcile command
type ReconcileFlags struct {
	Kind          string
	Threshold     int
	StakeholderID string
	DryRun        bool
	LookbackDays  int
	MaxCandidates int
	Verbose       bool
}

// ParseReconcileFlags parses reconcile flags from the command line
func ParseReconcileFlags() ReconcileFlags {
	var flags ReconcileFlags
	flag.StringVar(&flags.Kind, "kind", "debit", "Schedule kind: debit or credit")
	flag.IntVar(&flags.Threshold, "threshold", 0, "Minimum score to confirm a match (0 = config default)")
	flag.StringVar(&flags.StakeholderID, "stakeholder", "", "Expected stakeholder id for scoring")
	flag.BoolVar(&flags.DryRun, "dry-run", false, "Propose matches without attaching")
	flag.IntVar(&flags.LookbackDays, "days", 0, "Schedule due-date lookback in days (0 = config default)")
	flag.IntVar(&flags.MaxCandidates, "max", 0, "Maximum candidate schedules (0 = config default)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// ToOptions converts ReconcileFlags to reconcile.Options
func (f ReconcileFlags) ToOptions() reconcile.Options {
	return reconcile.Options{
		Kind:          nibo.Kind(f.Kind),
		Threshold:     f.Threshold,
		StakeholderID: f.StakeholderID,
		DryRun:        f.DryRun,
		LookbackDays:  f.LookbackDays,
		MaxCandidates: f.MaxCandidates,
	}
}
