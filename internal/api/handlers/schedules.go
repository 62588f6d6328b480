package handlers

import (
	"net/http"
	"time"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/dto"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
)

// SchedulesHandler proxies schedule searches to Nibo.
type SchedulesHandler struct {
	*Base
	searcher ScheduleSearcher
}

// NewSchedulesHandler creates a new schedules handler.
func NewSchedulesHandler(searcher ScheduleSearcher) *SchedulesHandler {
	return &SchedulesHandler{
		Base:     &Base{},
		searcher: searcher,
	}
}

// Search handles GET /api/schedules - searches schedules by kind with
// optional filters.
func (h *SchedulesHandler) Search(w http.ResponseWriter, r *http.Request) {
	kind := nibo.Kind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("kind must be debit or credit"))
		return
	}

	defaults := dto.DefaultScheduleSearchParams()
	params := nibo.SearchParams{
		Kind:        kind,
		OpenOnly:    ParseBoolParam(r, "open_only", defaults.OpenOnly),
		Description: r.URL.Query().Get("search"),
		MinValue:    ParseFloatParam(r, "min_value", 0),
		MaxValue:    ParseFloatParam(r, "max_value", 0),
		OrderBy:     "dueDate",
		Limit:       ParseIntParam(r, "limit", defaults.Limit),
	}
	if daysBack := ParseIntParam(r, "days_back", defaults.DaysBack); daysBack > 0 {
		params.DueAfter = time.Now().AddDate(0, 0, -daysBack)
	}

	schedules, err := h.searcher.SearchSchedules(r.Context(), params)
	if err != nil {
		h.WriteError(w, http.StatusBadGateway, dto.NewAPIError("search_failed", err.Error()))
		return
	}

	response := dto.ScheduleListResponse{
		Schedules: make([]dto.ScheduleResponse, 0, len(schedules)),
		Count:     len(schedules),
	}
	for _, s := range schedules {
		response.Schedules = append(response.Schedules, toScheduleResponse(s))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// toScheduleResponse converts a schedule to an API response.
func toScheduleResponse(s matcher.Schedule) dto.ScheduleResponse {
	resp := dto.ScheduleResponse{
		ScheduleID:      s.ID,
		Description:     s.Description,
		StakeholderID:   s.StakeholderID,
		StakeholderName: s.StakeholderName,
		Value:           s.Value,
	}
	if !s.DueDate.IsZero() {
		resp.DueDate = s.DueDate.Format("2006-01-02")
	}
	return resp
}
