package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/erazemk/pregled/internal/imaging"
	"github.com/erazemk/pregled/internal/model"
	"github.com/erazemk/pregled/internal/qc"
	"github.com/erazemk/pregled/internal/store"
)

// SessionsHandler drives interactive inspection sessions.
type SessionsHandler struct {
	DB        *sql.DB
	Dashboard *qc.Dashboard
}

type startSessionRequest struct {
	ItemID string `json:"item_id"`
}

type startBulkRequest struct {
	ItemIDs []string `json:"item_ids"`
}

type sessionResponse struct {
	ID     string              `json:"id"`
	Single *qc.SessionView     `json:"single,omitempty"`
	Bulk   *qc.BulkSessionView `json:"bulk,omitempty"`
}

type applyRequest struct {
	Passed bool `json:"passed"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type submitResponse struct {
	ID       string        `json:"id"`
	Result   *model.Result `json:"result,omitempty"`
	Outcomes []qc.Outcome  `json:"outcomes,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// session is an open session of either kind.
type session struct {
	id     string
	single *qc.Session
	bulk   *qc.BulkSession
}

func (s session) view() sessionResponse {
	resp := sessionResponse{ID: s.id}
	if s.single != nil {
		v := s.single.View()
		resp.Single = &v
	} else {
		v := s.bulk.View()
		resp.Bulk = &v
	}
	return resp
}

func (h *SessionsHandler) lookup(w http.ResponseWriter, r *http.Request) (session, bool) {
	id := r.PathValue("id")
	reg := h.Dashboard.Sessions()
	if s, ok := reg.Single(id); ok {
		return session{id: id, single: s}, true
	}
	if b, ok := reg.Bulk(id); ok {
		return session{id: id, bulk: b}, true
	}
	jsonError(w, http.StatusNotFound, qc.ErrSessionNotFound.Error())
	return session{}, false
}

// Start handles POST /api/qc/sessions.
func (h *SessionsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.GetQCItem(r.Context(), h.DB, req.ItemID)
	if err != nil {
		slog.Error("failed to get qc item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if item.Status != model.QCStatusPending {
		jsonError(w, http.StatusConflict, "item is not pending inspection")
		return
	}

	id, s, err := h.Dashboard.StartSingle(r.Context(), *item)
	if err != nil {
		qcError(w, err, "failed to start inspection")
		return
	}

	slog.Info("inspection started", "session", id, "item", item.ID, "user", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusCreated, session{id: id, single: s}.view())
}

// StartBulk handles POST /api/qc/sessions/bulk.
func (h *SessionsHandler) StartBulk(w http.ResponseWriter, r *http.Request) {
	var req startBulkRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ItemIDs) == 0 {
		qcError(w, qc.ErrEmptySelection, "")
		return
	}

	items, err := store.GetQCItems(r.Context(), h.DB, req.ItemIDs)
	if err != nil {
		jsonError(w, http.StatusNotFound, err.Error())
		return
	}
	for _, it := range items {
		if it.Status != model.QCStatusPending {
			jsonError(w, http.StatusConflict, "item "+it.ID+" is not pending inspection")
			return
		}
	}

	id, b, err := h.Dashboard.StartBulk(r.Context(), items)
	if err != nil {
		qcError(w, err, "failed to start bulk inspection")
		return
	}

	slog.Info("bulk inspection started", "session", id, "items", len(items), "category", b.Category(),
		"user", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusCreated, session{id: id, bulk: b}.view())
}

// Get handles GET /api/qc/sessions/{id}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, s.view())
}

// SetResult handles PATCH /api/qc/sessions/{id}/results/{checklistItemId}.
func (h *SessionsHandler) SetResult(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if s.single == nil {
		jsonError(w, http.StatusBadRequest, "bulk sessions take per-item results")
		return
	}

	var p qc.Patch
	if err := decodeJSON(r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.single.SetResult(r.PathValue("checklistItemId"), p); err != nil {
		qcError(w, err, "failed to set result")
		return
	}
	jsonResponse(w, http.StatusOK, s.view())
}

// SetItemResult handles
// PATCH /api/qc/sessions/{id}/items/{itemId}/results/{checklistItemId}.
func (h *SessionsHandler) SetItemResult(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if s.bulk == nil {
		jsonError(w, http.StatusBadRequest, "not a bulk session")
		return
	}

	var p qc.Patch
	if err := decodeJSON(r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.bulk.SetItemResult(r.PathValue("itemId"), r.PathValue("checklistItemId"), p); err != nil {
		qcError(w, err, "failed to set result")
		return
	}
	jsonResponse(w, http.StatusOK, s.view())
}

// ApplyToAll handles POST /api/qc/sessions/{id}/apply/{checklistItemId}.
func (h *SessionsHandler) ApplyToAll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if s.bulk == nil {
		jsonError(w, http.StatusBadRequest, "not a bulk session")
		return
	}

	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.bulk.ApplyToAll(r.PathValue("checklistItemId"), req.Passed); err != nil {
		qcError(w, err, "failed to apply result")
		return
	}
	jsonResponse(w, http.StatusOK, s.view())
}

// SetNotes handles PUT /api/qc/sessions/{id}/notes.
func (h *SessionsHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req notesRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	if s.single != nil {
		err = s.single.SetNotes(req.Notes)
	} else {
		err = s.bulk.SetNotes(req.Notes)
	}
	if err != nil {
		qcError(w, err, "failed to set notes")
		return
	}
	jsonResponse(w, http.StatusOK, s.view())
}

// UploadPhoto handles POST /api/qc/sessions/{id}/photos/{checklistItemId}.
// Bulk sessions name the item in the item_id form field.
func (h *SessionsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	file, filename, ok := multipartPhoto(w, r)
	if !ok {
		return
	}
	defer file.Close()

	criterion := r.PathValue("checklistItemId")
	var url string
	var err error
	if s.single != nil {
		url, err = s.single.AttachPhoto(r.Context(), criterion, filename, file)
	} else {
		url, err = s.bulk.AttachItemPhoto(r.Context(), r.FormValue("item_id"), criterion, filename, file)
	}
	if err != nil {
		qcError(w, err, "failed to upload photo")
		return
	}

	resp := s.view()
	jsonResponse(w, http.StatusCreated, struct {
		PhotoURL string `json:"photo_url"`
		sessionResponse
	}{url, resp})
}

// Review handles POST /api/qc/sessions/{id}/review.
func (h *SessionsHandler) Review(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var err error
	if s.single != nil {
		err = s.single.Review()
	} else {
		err = s.bulk.Review()
	}
	if err != nil {
		qcError(w, err, "failed to review")
		return
	}
	jsonResponse(w, http.StatusOK, s.view())
}

// Submit handles POST /api/qc/sessions/{id}/submit.
func (h *SessionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if s.single != nil {
		result, err := s.single.Submit(r.Context())
		if err != nil {
			qcError(w, err, "failed to submit inspection")
			return
		}
		jsonResponse(w, http.StatusCreated, submitResponse{ID: s.id, Result: &result})
		return
	}

	outcomes, err := s.bulk.SubmitAll(r.Context())
	if err != nil {
		status := qcStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("failed to submit bulk inspection", "error", err)
		}
		jsonResponse(w, status, submitResponse{ID: s.id, Outcomes: outcomes, Error: err.Error()})
		return
	}
	jsonResponse(w, http.StatusCreated, submitResponse{ID: s.id, Outcomes: outcomes})
}

// Cancel handles DELETE /api/qc/sessions/{id}.
func (h *SessionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Dashboard.Sessions().Cancel(id); err != nil {
		qcError(w, err, "failed to cancel inspection")
		return
	}
	slog.Info("inspection cancelled", "session", id, "user", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "inspection cancelled"})
}

// multipartPhoto reads the "file" field of a multipart upload.
func multipartPhoto(w http.ResponseWriter, r *http.Request) (multipart.File, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, imaging.ErrTooLarge.Error())
			return nil, "", false
		}
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return nil, "", false
	}
	return file, header.Filename, true
}
