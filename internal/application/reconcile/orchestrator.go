package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// Run executes one reconcile pass: load available files, search
// schedules, propose matches and (unless dry-run) attach and record
// every proposal above the threshold.
//
// A failed file load or schedule search fails the run. Per-proposal
// attach failures are recorded as run errors and do not stop the pass.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("invalid schedule kind: %q", opts.Kind)
	}

	runID, err := o.storage.StartReconcileRun(string(opts.Kind), opts.Threshold, opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("failed to start reconcile run: %w", err)
	}

	result := &Result{RunID: runID}

	// Tag outbound API calls with this run when the client supports it.
	client := o.client
	if binder, ok := client.(interface{ BindRun(int64) *nibo.Client }); ok {
		client = binder.BindRun(runID)
	}

	o.logger.Info("reconcile run started",
		"run_id", runID,
		"kind", opts.Kind,
		"threshold", opts.Threshold,
		"dry_run", opts.DryRun,
	)

	o.reportPhase(opts, "fetching_files")

	schedules, session, err := o.fetchInputs(ctx, client, opts)
	if err != nil {
		result.ErrorCount = 1
		result.Errors = append(result.Errors, err)
		o.completeRun(runID, result)
		return result, err
	}
	result.FilesConsidered = len(session.AvailableFiles)
	result.SchedulesFetched = len(schedules)

	o.reportPhase(opts, "matching")

	m := matcher.New(matcher.Config{Threshold: opts.Threshold})
	proposals := m.ProposeMatches(session.AvailableFiles, session.CandidateSchedules, opts.StakeholderID)

	proposals, err = FilterConfirmed(o.storage, proposals)
	if err != nil {
		result.ErrorCount = 1
		result.Errors = append(result.Errors, err)
		o.completeRun(runID, result)
		return result, err
	}
	result.Proposals = proposals

	o.logger.Info("matching complete",
		"run_id", runID,
		"files", result.FilesConsidered,
		"schedules", result.SchedulesFetched,
		"proposals", len(proposals),
	)

	if opts.DryRun {
		o.logger.Info("dry run, skipping attach", "run_id", runID)
		o.completeRun(runID, result)
		return result, nil
	}

	o.reportPhase(opts, "attaching")

	for _, proposal := range proposals {
		if err := o.confirmProposal(ctx, client, opts.Kind, proposal); err != nil {
			o.logger.Error("failed to confirm proposal",
				"run_id", runID,
				"file_id", proposal.FileID,
				"schedule_id", proposal.ScheduleID,
				"error", err,
			)
			result.ErrorCount++
			result.Errors = append(result.Errors, err)
			continue
		}
		result.ConfirmedCount++
	}

	o.completeRun(runID, result)

	o.logger.Info("reconcile run finished",
		"run_id", runID,
		"confirmed", result.ConfirmedCount,
		"errors", result.ErrorCount,
	)

	return result, nil
}

// fetchInputs searches schedules and builds the session snapshot
func (o *Orchestrator) fetchInputs(ctx context.Context, client Client, opts Options) ([]matcher.Schedule, *Session, error) {
	params := nibo.SearchParams{
		Kind:     opts.Kind,
		OpenOnly: true,
		OrderBy:  "dueDate",
		Limit:    opts.MaxCandidates,
	}
	if opts.LookbackDays > 0 {
		params.DueAfter = time.Now().AddDate(0, 0, -opts.LookbackDays)
	}

	o.reportPhase(opts, "fetching_schedules")

	schedules, err := client.SearchSchedules(ctx, params)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search schedules: %w", err)
	}

	session, err := BuildSession(o.storage, schedules, opts.AllowFileReuse)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load available files: %w", err)
	}

	return schedules, session, nil
}

// confirmProposal attaches the file in Nibo and records the attachment
func (o *Orchestrator) confirmProposal(ctx context.Context, client Client, kind nibo.Kind, proposal matcher.Proposal) error {
	if err := client.AttachFiles(ctx, kind, proposal.ScheduleID, []string{proposal.FileID}); err != nil {
		return err
	}

	att := &storage.Attachment{
		FileID:       proposal.FileID,
		ScheduleID:   proposal.ScheduleID,
		ScheduleKind: string(kind),
		Origin:       storage.OriginAuto,
		Score:        proposal.Score,
	}
	att.SetRationale(proposal.Rationale)

	if err := o.storage.SaveAttachment(att); err != nil {
		return fmt.Errorf("attached in Nibo but failed to record: %w", err)
	}
	return nil
}

// completeRun persists final counters; failures only log
func (o *Orchestrator) completeRun(runID int64, result *Result) {
	err := o.storage.CompleteReconcileRun(runID, storage.RunCounts{
		FilesConsidered:  result.FilesConsidered,
		SchedulesFetched: result.SchedulesFetched,
		Proposals:        len(result.Proposals),
		Confirmed:        result.ConfirmedCount,
		Errors:           result.ErrorCount,
	})
	if err != nil {
		o.logger.Error("failed to complete reconcile run", "run_id", runID, "error", err)
	}
}

func (o *Orchestrator) reportPhase(opts Options, phase string) {
	if opts.Progress != nil {
		opts.Progress(phase)
	}
}
