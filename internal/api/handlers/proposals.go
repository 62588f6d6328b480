package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/dto"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/reconcile"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// ProposalsHandler runs synchronous matching passes. Nothing is
// persisted; the caller confirms individual proposals separately.
type ProposalsHandler struct {
	*Base
	searcher ScheduleSearcher

	defaultThreshold int
	defaultReuse     bool
}

// NewProposalsHandler creates a new proposals handler.
func NewProposalsHandler(repo storage.Repository, searcher ScheduleSearcher, defaultThreshold int, defaultReuse bool) *ProposalsHandler {
	return &ProposalsHandler{
		Base:             NewBase(repo),
		searcher:         searcher,
		defaultThreshold: defaultThreshold,
		defaultReuse:     defaultReuse,
	}
}

// Propose handles POST /api/proposals - matches the current available
// files against a schedule search and returns ranked proposals.
func (h *ProposalsHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req dto.ProposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	kind := nibo.Kind(req.Kind)
	if !kind.Valid() {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("kind must be debit or credit"))
		return
	}

	threshold := req.Threshold
	if threshold == 0 {
		threshold = h.defaultThreshold
	}
	allowReuse := h.defaultReuse
	if req.AllowFileReuse != nil {
		allowReuse = *req.AllowFileReuse
	}

	params := nibo.SearchParams{
		Kind:     kind,
		OpenOnly: true,
		OrderBy:  "dueDate",
		Limit:    req.Limit,
	}
	if req.DaysBack > 0 {
		params.DueAfter = time.Now().AddDate(0, 0, -req.DaysBack)
	}

	schedules, err := h.searcher.SearchSchedules(r.Context(), params)
	if err != nil {
		h.WriteError(w, http.StatusBadGateway, dto.NewAPIError("search_failed", err.Error()))
		return
	}

	session, err := reconcile.BuildSession(h.repo, schedules, allowReuse)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	m := matcher.New(matcher.Config{Threshold: threshold})
	proposals := m.ProposeMatches(session.AvailableFiles, session.CandidateSchedules, req.StakeholderID)

	proposals, err = reconcile.FilterConfirmed(h.repo, proposals)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.ProposalListResponse{
		Proposals: make([]dto.ProposalResponse, 0, len(proposals)),
		Count:     len(proposals),
		Threshold: threshold,
	}
	for _, p := range proposals {
		response.Proposals = append(response.Proposals, toProposalResponse(p))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// toProposalResponse converts a proposal to an API response.
func toProposalResponse(p matcher.Proposal) dto.ProposalResponse {
	return dto.ProposalResponse{
		FileID:     p.FileID,
		FileName:   p.FileName,
		ScheduleID: p.ScheduleID,
		Score:      p.Score,
		Rationale:  p.Rationale,
	}
}
