package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/dto"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/service"
)

// ReconcileHandler handles reconcile job HTTP requests.
type ReconcileHandler struct {
	*Base
	reconcileService *service.ReconcileService
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(reconcileService *service.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{
		Base:             &Base{},
		reconcileService: reconcileService,
	}
}

// Start handles POST /api/reconcile - starts a new reconcile job.
func (h *ReconcileHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	kind := nibo.Kind(req.Kind)
	if !kind.Valid() {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("kind must be debit or credit"))
		return
	}

	serviceReq := service.ReconcileRequest{
		Kind:           kind,
		Threshold:      req.Threshold,
		StakeholderID:  req.StakeholderID,
		DryRun:         req.DryRun,
		LookbackDays:   req.LookbackDays,
		MaxCandidates:  req.MaxCandidates,
		AllowFileReuse: req.AllowFileReuse,
	}

	jobID, err := h.reconcileService.StartReconcile(r.Context(), serviceReq)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.NewAPIError("reconcile_conflict", err.Error()))
		return
	}

	response := dto.StartReconcileResponse{
		JobID:  jobID,
		Kind:   req.Kind,
		Status: "pending",
	}

	h.WriteJSON(w, http.StatusAccepted, response)
}

// GetStatus handles GET /api/reconcile/{jobId} - gets job status.
func (h *ReconcileHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.reconcileService.GetJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("reconcile job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toJobResponse(job))
}

// ListActive handles GET /api/reconcile/active - lists active jobs.
func (h *ReconcileHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	jobs := h.reconcileService.ListActiveJobs()

	response := dto.ActiveJobsResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// ListAll handles GET /api/reconcile - lists all jobs.
func (h *ReconcileHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	jobs := h.reconcileService.ListAllJobs()

	response := dto.AllJobsResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Cancel handles DELETE /api/reconcile/{jobId} - cancels a job.
func (h *ReconcileHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	if err := h.reconcileService.CancelJob(jobID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.NewAPIError("cancel_failed", err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Reconcile job cancelled successfully",
	})
}

// toJobResponse converts a service model to an API response.
func toJobResponse(job *service.Job) dto.JobResponse {
	response := dto.JobResponse{
		JobID:     job.ID,
		Kind:      string(job.Kind),
		Status:    string(job.Status),
		DryRun:    job.Request.DryRun,
		StartedAt: job.StartedAt.Format(time.RFC3339),
		Progress: dto.JobProgressResponse{
			CurrentPhase: job.Progress.CurrentPhase,
			LastUpdate:   job.Progress.LastUpdate.Format(time.RFC3339),
		},
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if job.Result != nil {
		response.Result = &dto.JobResultResponse{
			RunID:            job.Result.RunID,
			FilesConsidered:  job.Result.FilesConsidered,
			SchedulesFetched: job.Result.SchedulesFetched,
			ProposalCount:    len(job.Result.Proposals),
			ConfirmedCount:   job.Result.ConfirmedCount,
			ErrorCount:       job.Result.ErrorCount,
		}
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}
