package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/dto"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/reconcile"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/application/service"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// These tests run the full stack against a real SQLite database and a
// fake Nibo backend:
// HTTP request → Router → Handlers → Service/Orchestrator → Nibo client → fake API
//                                         ↘ Storage → SQLite
//
// This catches what mock-based tests miss: SQL NULL handling, JSON
// serialization through the whole pipeline, router configuration and
// the client's payload negotiation.

// fakeNiboBackend emulates the Nibo endpoints the client talks to.
type fakeNiboBackend struct {
	mu        sync.Mutex
	nextFile  int
	schedules []map[string]any
	attached  map[string][]string // schedule id -> file ids
}

func newFakeNiboBackend(schedules []map[string]any) *fakeNiboBackend {
	return &fakeNiboBackend{
		schedules: schedules,
		attached:  make(map[string][]string),
	}
}

func (b *fakeNiboBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			b.nextFile++
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"fileId":"nibo-file-%d"}`, b.nextFile)

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/schedules/"):
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"items": b.schedules})

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files/attach"):
			parts := strings.Split(r.URL.Path, "/")
			scheduleID := parts[len(parts)-3]
			body, _ := io.ReadAll(r.Body)
			var payload map[string]any
			_ = json.Unmarshal(body, &payload)
			if ids, ok := payload["filesIds"].([]any); ok {
				for _, id := range ids {
					b.attached[scheduleID] = append(b.attached[scheduleID], id.(string))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			// Unknown payload shape, the client should retry with another.
			w.WriteHeader(http.StatusUnprocessableEntity)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func createIntegrationServer(t *testing.T, schedules []map[string]any) (*httptest.Server, *fakeNiboBackend, *storage.Storage) {
	t.Helper()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "integration.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	backend := newFakeNiboBackend(schedules)
	niboSrv := httptest.NewServer(backend.handler())
	t.Cleanup(niboSrv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	client := nibo.New(nibo.Config{
		APIKey:  "test-key",
		BaseURL: niboSrv.URL,
	}, logger, store)

	orchestrator := reconcile.NewOrchestrator(client, store, logger)
	reconcileService := service.NewReconcileService(nil, orchestrator, logger)

	cfg := api.DefaultConfig()
	server := api.NewServer(cfg, store, client, reconcileService, logger)

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	return ts, backend, store
}

func uploadTestFile(t *testing.T, ts *httptest.Server, filename string, content []byte) dto.FileResponse {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(ts.URL+"/api/files", writer.FormDataContentType(), body)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var file dto.FileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&file))
	return file
}

func TestAPI_Integration_HealthCheck(t *testing.T) {
	ts, _, _ := createIntegrationServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health dto.HealthResponse
	err = json.NewDecoder(resp.Body).Decode(&health)
	require.NoError(t, err)

	assert.Equal(t, "ok", health.Status)
}

func TestAPI_Integration_UploadAndList(t *testing.T) {
	ts, _, _ := createIntegrationServer(t, nil)

	file := uploadTestFile(t, ts, "NF3126473.pdf", []byte("%PDF-1.4 test"))
	assert.Equal(t, "nibo-file-1", file.FileID)
	assert.Equal(t, "NF3126473.pdf", file.Name)

	resp, err := http.Get(ts.URL + "/api/files")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list dto.FileListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "nibo-file-1", list.Files[0].FileID)
}

func TestAPI_Integration_ScheduleSearch(t *testing.T) {
	ts, _, _ := createIntegrationServer(t, []map[string]any{
		{"scheduleId": "s1", "description": "Pagamento NF 3126473", "value": 1500.0},
		{"Id": "s2", "descricao": "Aluguel", "value": "2000.50"},
	})

	resp, err := http.Get(ts.URL + "/api/schedules?kind=debit")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list dto.ScheduleListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "s1", list.Schedules[0].ScheduleID)
	assert.Equal(t, 1500.0, list.Schedules[0].Value)
	// Heterogeneous shape normalized
	assert.Equal(t, "s2", list.Schedules[1].ScheduleID)
	assert.Equal(t, 2000.50, list.Schedules[1].Value)
}

func TestAPI_Integration_ManualConfirmFlow(t *testing.T) {
	ts, backend, _ := createIntegrationServer(t, []map[string]any{
		{"scheduleId": "s1", "description": "Pagamento NF 3126473"},
	})

	file := uploadTestFile(t, ts, "NF3126473.pdf", []byte("test"))

	// Matching pass proposes the pair.
	proposeBody, _ := json.Marshal(dto.ProposeRequest{Kind: "debit"})
	resp, err := http.Post(ts.URL+"/api/proposals", "application/json", bytes.NewReader(proposeBody))
	require.NoError(t, err)
	var proposals dto.ProposalListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&proposals))
	resp.Body.Close()

	require.Equal(t, 1, proposals.Count)
	proposal := proposals.Proposals[0]
	assert.Equal(t, file.FileID, proposal.FileID)
	assert.Equal(t, "s1", proposal.ScheduleID)
	assert.Equal(t, 80, proposal.Score)

	// Confirm it manually.
	confirmBody, _ := json.Marshal(dto.ConfirmAttachmentRequest{
		FileID:     proposal.FileID,
		ScheduleID: proposal.ScheduleID,
		Kind:       "debit",
		Score:      proposal.Score,
		Rationale:  proposal.Rationale,
	})
	resp, err = http.Post(ts.URL+"/api/attachments", "application/json", bytes.NewReader(confirmBody))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, []string{file.FileID}, backend.attached["s1"])

	// Confirming the same pair again conflicts.
	resp, err = http.Post(ts.URL+"/api/attachments", "application/json", bytes.NewReader(confirmBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// A second matching pass proposes nothing new.
	resp, err = http.Post(ts.URL+"/api/proposals", "application/json", bytes.NewReader(proposeBody))
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&proposals))
	resp.Body.Close()
	assert.Equal(t, 0, proposals.Count)
}

func TestAPI_Integration_ReconcileJob(t *testing.T) {
	ts, backend, store := createIntegrationServer(t, []map[string]any{
		{"scheduleId": "s1", "description": "Pagamento NF 3126473"},
		{"scheduleId": "s2", "description": "Pagamento diversos"},
	})

	file := uploadTestFile(t, ts, "NF3126473.pdf", []byte("test"))

	startBody, _ := json.Marshal(dto.StartReconcileRequest{Kind: "debit"})
	resp, err := http.Post(ts.URL+"/api/reconcile", "application/json", bytes.NewReader(startBody))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var started dto.StartReconcileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()
	require.NotEmpty(t, started.JobID)

	// Poll the job until it finishes.
	var job dto.JobResponse
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/api/reconcile/" + started.JobID)
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
		resp.Body.Close()
		if job.Status == "completed" || job.Status == "failed" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, "completed", job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, 1, job.Result.ConfirmedCount)
	assert.Zero(t, job.Result.ErrorCount)

	// Attachment went through the fake Nibo and into SQLite.
	assert.Equal(t, []string{file.FileID}, backend.attached["s1"])

	atts, err := store.ListAttachments(10)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, storage.OriginAuto, atts[0].Origin)
	assert.Equal(t, 80, atts[0].Score)

	// Run history shows the completed run.
	resp, err = http.Get(ts.URL + "/api/runs")
	require.NoError(t, err)
	var runs dto.RunListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	resp.Body.Close()

	require.Equal(t, 1, runs.Count)
	assert.Equal(t, "completed", runs.Runs[0].Status)
	assert.Equal(t, 1, runs.Runs[0].ConfirmedCount)

	// Stats reflect the attachment.
	resp, err = http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	var stats dto.StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()

	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, 1, stats.TotalAttachments)
	assert.Equal(t, 1, stats.AutoCount)
	assert.Equal(t, 1, stats.TotalRuns)
}

func TestAPI_Integration_CORS(t *testing.T) {
	ts, _, _ := createIntegrationServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/files", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
