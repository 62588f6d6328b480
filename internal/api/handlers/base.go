package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/dto"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// Uploader uploads a document to Nibo.
type Uploader interface {
	UploadFile(ctx context.Context, name string, data []byte, contentType string) (*nibo.UploadResult, error)
}

// ScheduleSearcher searches financial schedules in Nibo.
type ScheduleSearcher interface {
	SearchSchedules(ctx context.Context, params nibo.SearchParams) ([]matcher.Schedule, error)
}

// Attacher attaches uploaded files to a schedule in Nibo.
type Attacher interface {
	AttachFiles(ctx context.Context, kind nibo.Kind, scheduleID string, fileIDs []string) error
}

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseFloatParam parses a float query parameter with a default value.
func ParseFloatParam(r *http.Request, name string, defaultVal float64) float64 {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseBoolParam parses a boolean query parameter with a default value.
func ParseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}
