package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/dto"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// stubNibo satisfies api.NiboClient for router-level tests.
type stubNibo struct {
	schedules []matcher.Schedule
}

func (s *stubNibo) UploadFile(_ context.Context, name string, data []byte, _ string) (*nibo.UploadResult, error) {
	return &nibo.UploadResult{FileID: "file-1", Name: name, Size: int64(len(data))}, nil
}

func (s *stubNibo) SearchSchedules(_ context.Context, _ nibo.SearchParams) ([]matcher.Schedule, error) {
	return s.schedules, nil
}

func (s *stubNibo) AttachFiles(_ context.Context, _ nibo.Kind, _ string, _ []string) error {
	return nil
}

func newTestServer(t *testing.T) (*api.Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	server := api.NewServer(api.DefaultConfig(), repo, &stubNibo{}, nil, logger) // nil reconcileService for read-only tests
	return server, repo
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
}

func TestServer_FilesEndpoints(t *testing.T) {
	t.Run("GET /api/files returns files", func(t *testing.T) {
		server, repo := newTestServer(t)
		repo.AddFile(&storage.StoredFile{FileID: "f1", Name: "NF123456.pdf", UploadedAt: time.Now()})

		req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.FileListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, 1, response.Count)
	})
}

func TestServer_SchedulesEndpoint(t *testing.T) {
	t.Run("GET /api/schedules proxies the search", func(t *testing.T) {
		repo := storage.NewMockRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		client := &stubNibo{schedules: []matcher.Schedule{
			{ID: "s1", Description: "Pagamento NF 123456", Value: 1500},
		}}
		server := api.NewServer(api.DefaultConfig(), repo, client, nil, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/schedules?kind=debit", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.ScheduleListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		require.Equal(t, 1, response.Count)
		assert.Equal(t, "s1", response.Schedules[0].ScheduleID)
	})

	t.Run("GET /api/schedules without kind returns 400", func(t *testing.T) {
		server, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/api/schedules", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_RunsEndpoints(t *testing.T) {
	t.Run("GET /api/runs returns runs", func(t *testing.T) {
		server, repo := newTestServer(t)
		runID, _ := repo.StartReconcileRun("debit", 50, false)
		_ = repo.CompleteReconcileRun(runID, storage.RunCounts{Confirmed: 1})

		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, 1, response.Count)
	})

	t.Run("GET /api/runs/:id returns single run", func(t *testing.T) {
		server, repo := newTestServer(t)
		runID, _ := repo.StartReconcileRun("debit", 50, false)
		_ = repo.CompleteReconcileRun(runID, storage.RunCounts{})

		req := httptest.NewRequest(http.MethodGet, "/api/runs/1", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, int64(1), response.ID)
	})
}

func TestServer_ReconcileRoutesDisabledWithoutService(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reconcile", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("sets CORS headers for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("handles OPTIONS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/files", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
