package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/dto"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/handlers"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

func proposeRequest(t *testing.T, body dto.ProposeRequest) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/api/proposals", bytes.NewReader(data))
}

func TestProposalsHandler_Propose(t *testing.T) {
	t.Run("returns ranked proposals without persisting", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.AddFile(&storage.StoredFile{FileID: "f1", Name: "NF3126473.pdf", UploadedAt: time.Now()})
		repo.AddFile(&storage.StoredFile{FileID: "f2", Name: "recibo_99.pdf", UploadedAt: time.Now()})

		client := &fakeNibo{schedules: []matcher.Schedule{
			{ID: "s1", Description: "Pagamento NF 3126473"},
			{ID: "s2", Description: "Recibo aluguel"},
		}}

		handler := handlers.NewProposalsHandler(repo, client, 50, true)

		req := proposeRequest(t, dto.ProposeRequest{Kind: "debit"})
		rec := httptest.NewRecorder()

		handler.Propose(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.ProposalListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))

		require.Equal(t, 1, response.Count)
		assert.Equal(t, "f1", response.Proposals[0].FileID)
		assert.Equal(t, "s1", response.Proposals[0].ScheduleID)
		assert.Equal(t, 80, response.Proposals[0].Score)
		assert.Equal(t, 50, response.Threshold)

		// Nothing persisted by a matching pass.
		atts, _ := repo.ListAttachments(10)
		assert.Empty(t, atts)
	})

	t.Run("request threshold overrides default", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.AddFile(&storage.StoredFile{FileID: "f1", Name: "NF3126473.pdf", UploadedAt: time.Now()})

		client := &fakeNibo{schedules: []matcher.Schedule{
			{ID: "s1", Description: "Pagamento NF 3126473"},
		}}

		handler := handlers.NewProposalsHandler(repo, client, 50, true)

		// Score is 80; a threshold of 90 excludes it.
		req := proposeRequest(t, dto.ProposeRequest{Kind: "debit", Threshold: 90})
		rec := httptest.NewRecorder()

		handler.Propose(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.ProposalListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 0, response.Count)
		assert.Equal(t, 90, response.Threshold)
	})

	t.Run("excludes already-confirmed pairs", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.AddFile(&storage.StoredFile{FileID: "f1", Name: "NF3126473.pdf", UploadedAt: time.Now()})
		repo.AddAttachment(&storage.Attachment{FileID: "f1", ScheduleID: "s1", ScheduleKind: "debit", Origin: storage.OriginManual})

		client := &fakeNibo{schedules: []matcher.Schedule{
			{ID: "s1", Description: "Pagamento NF 3126473"},
		}}

		handler := handlers.NewProposalsHandler(repo, client, 50, true)

		req := proposeRequest(t, dto.ProposeRequest{Kind: "debit"})
		rec := httptest.NewRecorder()

		handler.Propose(rec, req)

		var response dto.ProposalListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 0, response.Count)
	})

	t.Run("returns 400 for invalid kind", func(t *testing.T) {
		handler := handlers.NewProposalsHandler(storage.NewMockRepository(), &fakeNibo{}, 50, true)

		req := proposeRequest(t, dto.ProposeRequest{Kind: "payable"})
		rec := httptest.NewRecorder()

		handler.Propose(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns 400 for invalid body", func(t *testing.T) {
		handler := handlers.NewProposalsHandler(storage.NewMockRepository(), &fakeNibo{}, 50, true)

		req := httptest.NewRequest(http.MethodPost, "/api/proposals", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()

		handler.Propose(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
