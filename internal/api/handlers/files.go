package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/dto"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// maxUploadSize caps multipart uploads at 32 MB.
const maxUploadSize = 32 << 20

// FilesHandler handles document upload and listing.
type FilesHandler struct {
	*Base
	uploader Uploader
}

// NewFilesHandler creates a new files handler.
func NewFilesHandler(repo storage.Repository, uploader Uploader) *FilesHandler {
	return &FilesHandler{
		Base:     NewBase(repo),
		uploader: uploader,
	}
}

// Upload handles POST /api/files - uploads a document to Nibo and
// records it in the ledger.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if len(data) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("file is empty"))
		return
	}

	contentType := header.Header.Get("Content-Type")

	result, err := h.uploader.UploadFile(r.Context(), header.Filename, data, contentType)
	if err != nil {
		h.WriteError(w, http.StatusBadGateway, dto.NewAPIError("upload_failed", err.Error()))
		return
	}

	stored := &storage.StoredFile{
		FileID:      result.FileID,
		Name:        header.Filename,
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedAt:  time.Now().UTC(),
	}
	if err := h.repo.SaveFile(stored); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, toFileResponse(stored))
}

// List handles GET /api/files - returns tracked files, newest first.
// With available=true, files that already have a confirmed attachment
// are excluded.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.FileFilters{
		AvailableOnly: ParseBoolParam(r, "available", false),
		Limit:         ParseIntParam(r, "limit", 100),
	}

	files, err := h.repo.ListFiles(filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.FileListResponse{
		Files: make([]dto.FileResponse, 0, len(files)),
		Count: len(files),
	}
	for _, f := range files {
		response.Files = append(response.Files, toFileResponse(f))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// toFileResponse converts a stored file to an API response.
func toFileResponse(f *storage.StoredFile) dto.FileResponse {
	return dto.FileResponse{
		ID:          f.ID,
		FileID:      f.FileID,
		Name:        f.Name,
		Size:        f.Size,
		ContentType: f.ContentType,
		UploadedAt:  f.UploadedAt.Format(time.RFC3339),
	}
}
