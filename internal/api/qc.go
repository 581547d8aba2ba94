package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/pregled/internal/model"
	"github.com/erazemk/pregled/internal/qc"
	"github.com/erazemk/pregled/internal/store"
)

// dateLayout is the format of the statistics range parameters.
const dateLayout = "2006-01-02"

// QCHandler serves the QC queue, checklists, statistics and direct result
// submission.
type QCHandler struct {
	DB        *sql.DB
	Backend   *store.Backend
	Resolver  *qc.Resolver
	Gateway   *qc.Gateway
	Dashboard *qc.Dashboard
}

type createQCItemRequest struct {
	ID           string     `json:"id"`
	ToolID       string     `json:"tool_id"`
	ToolName     string     `json:"tool_name"`
	ReturnDate   *time.Time `json:"return_date"`
	SerialNumber string     `json:"serial_number"`
	Category     string     `json:"category"`
	LastUsedBy   string     `json:"last_used_by"`
	ReturnReason string     `json:"return_reason"`
	Priority     string     `json:"priority"`
}

type historyResponse struct {
	Items []model.QCItem `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type bulkResultsRequest struct {
	Results []model.Result `json:"results"`
}

type outcomesResponse struct {
	Outcomes []qc.Outcome `json:"outcomes"`
	Error    string       `json:"error,omitempty"`
}

// Pending handles GET /api/qc/pending.
func (h *QCHandler) Pending(w http.ResponseWriter, r *http.Request) {
	items, err := h.Dashboard.LoadPending(r.Context())
	if err != nil {
		qcError(w, err, "failed to load pending items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// CreateItem handles POST /api/qc/items.
func (h *QCHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createQCItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ToolName == "" || req.Category == "" {
		jsonError(w, http.StatusBadRequest, "tool_name and category required")
		return
	}
	if req.Priority != "" && !model.ValidPriority(req.Priority) {
		jsonError(w, http.StatusBadRequest, "priority must be low, medium, or high")
		return
	}

	item := model.QCItem{
		ID:           req.ID,
		ToolID:       req.ToolID,
		ToolName:     req.ToolName,
		ReturnDate:   time.Now(),
		SerialNumber: req.SerialNumber,
		Category:     req.Category,
		LastUsedBy:   req.LastUsedBy,
		ReturnReason: req.ReturnReason,
		Priority:     req.Priority,
	}
	if item.ID == "" {
		item.ID = "qc-" + uuid.NewString()[:8]
	}
	if req.ReturnDate != nil {
		item.ReturnDate = *req.ReturnDate
	}

	created, err := store.CreateQCItem(r.Context(), h.DB, item)
	if err != nil {
		jsonError(w, http.StatusConflict, "item already exists")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("qc item registered", "user", claims.Username, "item", created.ID, "category", created.Category)
	h.Dashboard.Refresh(r.Context())
	jsonResponse(w, http.StatusCreated, created)
}

// GetItem handles GET /api/qc/items/{id}.
func (h *QCHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetQCItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get qc item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// ItemResult handles GET /api/qc/items/{id}/result: the newest stored result
// of an inspected item.
func (h *QCHandler) ItemResult(w http.ResponseWriter, r *http.Request) {
	id, err := store.LatestResultID(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to find item result", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get result")
		return
	}
	if id == "" {
		jsonError(w, http.StatusNotFound, "item has no result")
		return
	}
	h.writeResult(w, r, id)
}

// GetResult handles GET /api/qc/results/{id}.
func (h *QCHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, r.PathValue("id"))
}

func (h *QCHandler) writeResult(w http.ResponseWriter, r *http.Request, id string) {
	result, err := store.GetResult(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get result", "result", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get result")
		return
	}
	if result == nil {
		jsonError(w, http.StatusNotFound, "result not found")
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Categories handles GET /api/qc/categories.
func (h *QCHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list categories", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// Checklist handles GET /api/qc/checklist/{category}.
func (h *QCHandler) Checklist(w http.ResponseWriter, r *http.Request) {
	items, err := h.Resolver.Checklist(r.Context(), r.PathValue("category"))
	if err != nil {
		qcError(w, err, "failed to load checklist")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Statistics handles GET /api/qc/statistics?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *QCHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseDateRange(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.Dashboard.LoadStatistics(r.Context(), dateRange)
	if err != nil {
		qcError(w, err, "failed to load statistics")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// History handles GET /api/qc/history?page=N&limit=N.
func (h *QCHandler) History(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := min(queryInt(r, "limit", 20), 100)

	items, total, err := store.ListHistory(r.Context(), h.DB, page, limit)
	if err != nil {
		slog.Error("failed to list qc history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if items == nil {
		items = []model.QCItem{}
	}
	jsonResponse(w, http.StatusOK, historyResponse{Items: items, Total: total, Page: page, Limit: limit})
}

// SubmitResult handles POST /api/qc/results. The inspector and inspection
// date are set by the server.
func (h *QCHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var result model.Result
	if err := decodeJSON(r, &result); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if result.ItemID == "" {
		jsonError(w, http.StatusBadRequest, "item_id required")
		return
	}

	if err := h.checkResult(r.Context(), result, true); err != nil {
		qcError(w, err, "failed to check result")
		return
	}

	stampResult(&result, GetClaims(r.Context()).InspectorID(), time.Now())
	if err := h.Gateway.SubmitOne(r.Context(), result); err != nil {
		qcError(w, err, "failed to submit result")
		return
	}

	h.Dashboard.Refresh(r.Context())
	jsonResponse(w, http.StatusCreated, result)
}

// SubmitBulkResults handles POST /api/qc/bulk-results.
func (h *QCHandler) SubmitBulkResults(w http.ResponseWriter, r *http.Request) {
	var req bulkResultsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Results) == 0 {
		jsonError(w, http.StatusBadRequest, qc.ErrEmptySelection.Error())
		return
	}

	for _, result := range req.Results {
		if err := h.checkResult(r.Context(), result, false); err != nil {
			qcError(w, err, "failed to check results")
			return
		}
	}

	inspector := GetClaims(r.Context()).InspectorID()
	now := time.Now()
	for i := range req.Results {
		stampResult(&req.Results[i], inspector, now)
	}

	outcomes, err := h.Gateway.SubmitBatch(r.Context(), req.Results)
	if err != nil {
		slog.Warn("bulk result submission failed", "error", err)
		jsonResponse(w, qcStatus(err), outcomesResponse{Outcomes: outcomes, Error: err.Error()})
		return
	}

	h.Dashboard.Refresh(r.Context())
	jsonResponse(w, http.StatusCreated, outcomesResponse{Outcomes: outcomes})
}

// UploadPhoto handles POST /api/qc/upload-photo with multipart fields
// file, item_id and checklist_item_id.
func (h *QCHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := multipartPhoto(w, r)
	if !ok {
		return
	}
	defer file.Close()

	itemID := r.FormValue("item_id")
	checklistItemID := r.FormValue("checklist_item_id")
	if itemID == "" || checklistItemID == "" {
		jsonError(w, http.StatusBadRequest, "item_id and checklist_item_id required")
		return
	}

	url, err := h.Backend.UploadPhoto(r.Context(), itemID, checklistItemID, filename, file)
	if err != nil {
		qcError(w, err, "failed to store photo")
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"photo_url": url})
}

// GetPhoto handles GET /api/qc/photos/{id}.
func (h *QCHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetPhoto(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get photo", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "photo not found")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	w.Write(data)
}

// CreateDamageAssessment handles POST /api/qc/damage-assessments.
func (h *QCHandler) CreateDamageAssessment(w http.ResponseWriter, r *http.Request) {
	var req model.DamageAssessment
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.QCResultID == "" || req.DamageType == "" {
		jsonError(w, http.StatusBadRequest, "qc_result_id and damage_type required")
		return
	}
	if !model.ValidSeverity(req.Severity) {
		jsonError(w, http.StatusBadRequest, "severity must be minor, moderate, or severe")
		return
	}
	if !model.ValidAction(req.RecommendedAction) {
		jsonError(w, http.StatusBadRequest, "recommended_action must be repair, replace, or dispose")
		return
	}
	if req.Status != "" && !model.ValidAssessmentStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.RepairEstimate != nil && *req.RepairEstimate < 0 {
		jsonError(w, http.StatusBadRequest, "repair_estimate must not be negative")
		return
	}

	created, err := store.CreateDamageAssessment(r.Context(), h.DB, req)
	if err != nil {
		slog.Warn("failed to create damage assessment", "result", req.QCResultID, "error", err)
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("damage assessment created", "user", claims.Username, "result", created.QCResultID, "severity", created.Severity)
	h.Dashboard.Refresh(r.Context())
	jsonResponse(w, http.StatusCreated, created)
}

// ListDamageAssessments handles GET /api/qc/damage-assessments?status=S.
func (h *QCHandler) ListDamageAssessments(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidAssessmentStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	list, err := store.ListDamageAssessments(r.Context(), h.DB, status)
	if err != nil {
		slog.Error("failed to list damage assessments", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list damage assessments")
		return
	}
	if list == nil {
		list = []model.DamageAssessment{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// checkResult validates a directly submitted result against the checklist
// of its item's category.
func (h *QCHandler) checkResult(ctx context.Context, result model.Result, requirePhotos bool) error {
	item, err := store.GetQCItem(ctx, h.DB, result.ItemID)
	if err != nil {
		return fmt.Errorf("getting qc item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("%w: %s", qc.ErrUnknownItem, result.ItemID)
	}
	items, err := h.Resolver.Checklist(ctx, item.Category)
	if err != nil {
		return fmt.Errorf("resolving checklist: %w", err)
	}
	if err := qc.ValidateResults(items, result.ChecklistResults, requirePhotos); err != nil {
		return fmt.Errorf("%s: %w", result.ItemID, err)
	}
	return nil
}

// stampResult fills in the fields the server owns.
func stampResult(result *model.Result, inspector string, now time.Time) {
	result.ID = ""
	result.InspectorID = inspector
	result.InspectionDate = now
	result.OverallStatus = model.OverallStatus(result.ChecklistResults)
	result.Photos = model.PhotoURLs(result.ChecklistResults)
}

// parseDateRange reads the optional inclusive from/to query parameters.
func parseDateRange(r *http.Request) (*model.DateRange, error) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("both from and to are required")
	}

	f, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("invalid from date: %s", from)
	}
	t, err := time.Parse(dateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("invalid to date: %s", to)
	}
	if t.Before(f) {
		return nil, fmt.Errorf("to is before from")
	}
	return &model.DateRange{From: f, To: t}, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
