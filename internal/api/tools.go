package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/pregled/internal/model"
	"github.com/erazemk/pregled/internal/qc"
	"github.com/erazemk/pregled/internal/store"
)

// ToolsHandler serves the tool register, checkouts and returns, and the
// activity log built from them.
type ToolsHandler struct {
	DB        *sql.DB
	Dashboard *qc.Dashboard
}

type toolRequest struct {
	Name         string `json:"name"`
	SerialNumber string `json:"serial_number"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	Status       string `json:"status"`
}

type checkoutRequest struct {
	Holder string `json:"holder"`
	Notes  string `json:"notes"`
}

type returnRequest struct {
	ItemID       string `json:"item_id"`
	ReturnReason string `json:"return_reason"`
	Priority     string `json:"priority"`
	Notes        string `json:"notes"`
}

type returnResponse struct {
	Transfer *model.Transfer `json:"transfer"`
	Item     *model.QCItem   `json:"item"`
}

// List handles GET /api/tools.
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tools, err := store.ListTools(r.Context(), h.DB, q.Get("status"), q.Get("category"))
	if err != nil {
		slog.Error("failed to list tools", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list tools")
		return
	}
	if tools == nil {
		tools = []model.Tool{}
	}
	jsonResponse(w, http.StatusOK, tools)
}

// Create handles POST /api/tools.
func (h *ToolsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Category == "" {
		jsonError(w, http.StatusBadRequest, "name and category required")
		return
	}

	tool, err := store.CreateTool(r.Context(), h.DB, req.Name, req.SerialNumber, req.Category, req.Description)
	if err != nil {
		slog.Error("failed to create tool", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create tool")
		return
	}

	slog.Info("tool registered", "user", GetClaims(r.Context()).Username, "tool", tool.Name, "id", tool.ID)
	jsonResponse(w, http.StatusCreated, tool)
}

// Get handles GET /api/tools/{id}: the tool and its transfer history.
func (h *ToolsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := toolID(w, r)
	if !ok {
		return
	}

	tool, err := store.GetTool(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get tool", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get tool")
		return
	}
	if tool == nil {
		jsonError(w, http.StatusNotFound, "tool not found")
		return
	}

	history, err := store.GetToolHistory(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get tool history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get tool history")
		return
	}
	if history == nil {
		history = []model.Transfer{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"tool":    tool,
		"history": history,
	})
}

// Update handles PUT /api/tools/{id}.
func (h *ToolsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := toolID(w, r)
	if !ok {
		return
	}

	var req toolRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Category == "" {
		jsonError(w, http.StatusBadRequest, "name and category required")
		return
	}
	if req.Status == "" {
		req.Status = model.ToolStatusAvailable
	}
	if req.Status != model.ToolStatusAvailable && req.Status != model.ToolStatusDamaged && req.Status != model.ToolStatusRetired {
		jsonError(w, http.StatusBadRequest, "status must be available, damaged, or retired")
		return
	}

	err := store.UpdateTool(r.Context(), h.DB, id, req.Name, req.SerialNumber, req.Category, req.Description, req.Status)
	if err != nil {
		h.transferError(w, err, "failed to update tool")
		return
	}

	tool, err := store.GetTool(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get tool", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get tool")
		return
	}
	jsonResponse(w, http.StatusOK, tool)
}

// Delete handles DELETE /api/tools/{id}.
func (h *ToolsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := toolID(w, r)
	if !ok {
		return
	}

	if err := store.DeleteTool(r.Context(), h.DB, id); err != nil {
		h.transferError(w, err, "failed to delete tool")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "tool deleted"})
}

// Checkout handles POST /api/tools/{id}/checkout.
func (h *ToolsHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := toolID(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Holder == "" {
		jsonError(w, http.StatusBadRequest, "holder required")
		return
	}

	claims := GetClaims(r.Context())
	transfer, err := store.CheckoutTool(r.Context(), h.DB, store.CheckoutRequest{
		ToolID: id,
		Holder: req.Holder,
		Notes:  req.Notes,
		By:     &claims.UserID,
	})
	if err != nil {
		h.transferError(w, err, "failed to check out tool")
		return
	}

	slog.Info("tool checked out", "user", claims.Username, "tool", transfer.ToolName, "holder", transfer.Holder)
	jsonResponse(w, http.StatusCreated, transfer)
}

// Return handles POST /api/tools/{id}/return. The tool goes into inspection
// and its pending QC item is created.
func (h *ToolsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := toolID(w, r)
	if !ok {
		return
	}

	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Priority != "" && !model.ValidPriority(req.Priority) {
		jsonError(w, http.StatusBadRequest, "priority must be low, medium, or high")
		return
	}

	claims := GetClaims(r.Context())
	transfer, item, err := store.ReturnTool(r.Context(), h.DB, store.ReturnRequest{
		ToolID:   id,
		QCItemID: req.ItemID,
		Reason:   req.ReturnReason,
		Priority: req.Priority,
		Notes:    req.Notes,
		By:       &claims.UserID,
	})
	if err != nil {
		h.transferError(w, err, "failed to return tool")
		return
	}

	slog.Info("tool returned", "user", claims.Username, "tool", transfer.ToolName, "item", item.ID)
	h.Dashboard.Refresh(r.Context())
	jsonResponse(w, http.StatusCreated, returnResponse{Transfer: transfer, Item: item})
}

// Transfers handles GET /api/transfers with an optional tool_id filter.
func (h *ToolsHandler) Transfers(w http.ResponseWriter, r *http.Request) {
	var id int64
	if v := r.URL.Query().Get("tool_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid tool_id")
			return
		}
		id = parsed
	}

	transfers, err := store.ListTransfers(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to list transfers", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transfers")
		return
	}
	if transfers == nil {
		transfers = []model.Transfer{}
	}
	jsonResponse(w, http.StatusOK, transfers)
}

// Activity handles GET /api/activity with optional action, q, from/to and
// limit parameters.
func (h *ToolsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseDateRange(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	activity, err := store.ListActivity(r.Context(), h.DB, model.ActivityFilter{
		Action: q.Get("action"),
		Search: q.Get("q"),
		Range:  dateRange,
		Limit:  queryInt(r, "limit", 100),
	})
	if err != nil {
		slog.Error("failed to list activity", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	jsonResponse(w, http.StatusOK, activity)
}

// transferError maps register errors to statuses.
func (h *ToolsHandler) transferError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, store.ErrToolNotFound):
		jsonError(w, http.StatusNotFound, "tool not found")
	case errors.Is(err, store.ErrToolUnavailable):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		slog.Error(message, "error", err)
		jsonError(w, http.StatusInternalServerError, message)
	}
}

func toolID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid tool id")
		return 0, false
	}
	return id, true
}
