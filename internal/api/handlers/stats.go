package handlers

import (
	"net/http"
	"sort"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/dto"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// StatsHandler handles stats-related HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats - returns ledger-wide aggregates.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	// Convert the per-kind map to a sorted slice for stable output
	kinds := make([]dto.KindStatsResponse, 0, len(stats.KindStats))
	for kind, ks := range stats.KindStats {
		kinds = append(kinds, dto.KindStatsResponse{
			Kind:         kind,
			Count:        ks.Count,
			AverageScore: ks.AverageScore,
		})
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Kind < kinds[j].Kind })

	response := dto.StatsResponse{
		TotalFiles:       stats.TotalFiles,
		TotalAttachments: stats.TotalAttachments,
		AutoCount:        stats.AutoCount,
		ManualCount:      stats.ManualCount,
		AverageScore:     stats.AverageScore,
		TotalRuns:        stats.TotalRuns,
		KindStats:        kinds,
	}

	h.WriteJSON(w, http.StatusOK, response)
}
