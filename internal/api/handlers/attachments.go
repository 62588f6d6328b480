package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/api/dto"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/storage"
)

// AttachmentsHandler handles manual confirmation and attachment history.
type AttachmentsHandler struct {
	*Base
	attacher Attacher
}

// NewAttachmentsHandler creates a new attachments handler.
func NewAttachmentsHandler(repo storage.Repository, attacher Attacher) *AttachmentsHandler {
	return &AttachmentsHandler{
		Base:     NewBase(repo),
		attacher: attacher,
	}
}

// Confirm handles POST /api/attachments - attaches the file to the
// schedule in Nibo and records the pair with manual origin.
func (h *AttachmentsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmAttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if req.FileID == "" || req.ScheduleID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("file_id and schedule_id are required"))
		return
	}
	kind := nibo.Kind(req.Kind)
	if !kind.Valid() {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("kind must be debit or credit"))
		return
	}

	// Reject a known duplicate before touching Nibo.
	exists, err := h.repo.HasAttachment(req.FileID, req.ScheduleID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if exists {
		h.WriteError(w, http.StatusConflict, dto.ConflictError("attachment already confirmed"))
		return
	}

	if err := h.attacher.AttachFiles(r.Context(), kind, req.ScheduleID, []string{req.FileID}); err != nil {
		h.WriteError(w, http.StatusBadGateway, dto.NewAPIError("attach_failed", err.Error()))
		return
	}

	att := &storage.Attachment{
		FileID:       req.FileID,
		ScheduleID:   req.ScheduleID,
		ScheduleKind: string(kind),
		Origin:       storage.OriginManual,
		Score:        req.Score,
	}
	att.SetRationale(req.Rationale)

	if err := h.repo.SaveAttachment(att); err != nil {
		if errors.Is(err, storage.ErrDuplicateAttachment) {
			h.WriteError(w, http.StatusConflict, dto.ConflictError("attachment already confirmed"))
			return
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, toAttachmentResponse(att))
}

// List handles GET /api/attachments - returns confirmed attachments,
// newest first.
func (h *AttachmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 100)

	atts, err := h.repo.ListAttachments(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.AttachmentListResponse{
		Attachments: make([]dto.AttachmentResponse, 0, len(atts)),
		Count:       len(atts),
	}
	for _, att := range atts {
		response.Attachments = append(response.Attachments, toAttachmentResponse(att))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Clear handles DELETE /api/attachments - wipes the confirmed history.
func (h *AttachmentsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.repo.ClearAttachments()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.ClearAttachmentsResponse{Removed: removed})
}

// toAttachmentResponse converts an attachment to an API response.
func toAttachmentResponse(att *storage.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:           att.ID,
		FileID:       att.FileID,
		ScheduleID:   att.ScheduleID,
		ScheduleKind: att.ScheduleKind,
		Origin:       att.Origin,
		Score:        att.Score,
		Rationale:    att.Rationale,
		ConfirmedAt:  att.ConfirmedAt.Format(time.RFC3339),
	}
}
