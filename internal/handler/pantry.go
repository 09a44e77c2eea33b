package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/pantry"
	"github.com/dukerupert/larder/internal/retrieval"
	"github.com/dukerupert/larder/internal/store"
	ws "github.com/dukerupert/larder/internal/websocket"
	"github.com/google/uuid"
)

type PantryHandler struct {
	gateway   *store.Gateway
	retriever *retrieval.Retriever
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewPantryHandler(gw *store.Gateway, retriever *retrieval.Retriever, hub *ws.Hub, logger *slog.Logger) *PantryHandler {
	return &PantryHandler{
		gateway:   gw,
		retriever: retriever,
		hub:       hub,
		logger:    logger.With("component", "pantry_handler"),
	}
}

func (h *PantryHandler) List(w http.ResponseWriter, r *http.Request) {
	mine := r.URL.Query().Get("mine") == "true"

	items, err := h.gateway.As(auth.UserID(r.Context())).ListPantryItems(r.Context(), mine)
	if err != nil {
		h.logger.Error("list pantry items", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Failed to list items")
		return
	}
	if items == nil {
		items = []model.PantryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Create adds one item, merging into an existing item of the caller's with
// the same name and unit. A new row answers 201, a merge 200.
func (h *PantryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in pantry.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be JSON")
		return
	}

	item, err := pantry.Normalize(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}

	up, err := h.gateway.As(auth.UserID(r.Context())).AddPantryItem(r.Context(), item)
	if err != nil {
		h.writeStoreError(w, "add pantry item", err)
		return
	}

	action, status := "updated", http.StatusOK
	if up.IsNew {
		action, status = "created", http.StatusCreated
	}
	h.changed(r.Context(), up.Item.HouseholdID, action, up.Item.ID)
	writeJSON(w, status, up)
}

type bulkRequest struct {
	Items []pantry.Input `json:"items"`
}

type bulkResponse struct {
	TotalRequested int                  `json:"total_requested"`
	NewItems       int                  `json:"new_items"`
	UpdatedItems   int                  `json:"updated_items"`
	Results        []model.PantryUpsert `json:"results"`
}

// Bulk adds several items at once. Nothing is stored unless every item is
// valid.
func (h *PantryHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be JSON")
		return
	}

	items, err := pantry.NormalizeBatch(req.Items)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}

	ups, err := h.gateway.As(auth.UserID(r.Context())).AddPantryItems(r.Context(), items)
	if err != nil {
		h.writeStoreError(w, "bulk add pantry items", err)
		return
	}

	resp := bulkResponse{TotalRequested: len(items), Results: ups}
	for _, up := range ups {
		if up.IsNew {
			resp.NewItems++
		} else {
			resp.UpdatedItems++
		}
	}
	if len(ups) > 0 {
		h.changed(r.Context(), ups[0].Item.HouseholdID, "bulk_added", uuid.Nil)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Update edits one of the caller's own items.
func (h *PantryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var in pantry.PatchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be JSON")
		return
	}
	patch, err := pantry.NormalizePatch(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}

	updated, err := h.gateway.As(auth.UserID(r.Context())).UpdatePantryItem(r.Context(), id, patch)
	if err != nil {
		h.writeStoreError(w, "update pantry item", err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "item_not_found", "Pantry item not found or not owned by you")
		return
	}

	h.changed(r.Context(), updated.HouseholdID, "updated", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes one of the caller's own items.
func (h *PantryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	deleted, err := h.gateway.As(auth.UserID(r.Context())).DeletePantryItem(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "delete pantry item", err)
		return
	}
	if deleted == nil {
		writeError(w, http.StatusNotFound, "item_not_found", "Pantry item not found or not owned by you")
		return
	}

	h.changed(r.Context(), deleted.HouseholdID, "deleted", deleted.ID)
	writeJSON(w, http.StatusOK, model.PantryUpsert{
		Item:        deleted,
		OldQuantity: deleted.Quantity,
	})
}

func itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Item id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// changed drops the household's cached searches and tells its members.
func (h *PantryHandler) changed(ctx context.Context, householdID uuid.UUID, action string, itemID uuid.UUID) {
	if err := h.retriever.InvalidateHousehold(ctx, householdID); err != nil {
		h.logger.Warn("invalidate retrieval cache", "household_id", householdID, "error", err)
	}
	h.hub.BroadcastTo(householdID, ws.NewMessage("pantry_item", action, itemID, nil))
}

func (h *PantryHandler) writeStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNoHousehold) {
		writeError(w, http.StatusNotFound, "membership_missing", "You are not a member of any household")
		return
	}
	h.logger.Error(op, "error", err)
	writeError(w, http.StatusServiceUnavailable, "store_unavailable", "The pantry store is unavailable")
}

func (h *PantryHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "invalid_query", "q is required")
		return
	}
	k := retrieval.DefaultLimit
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_query", "k must be a positive integer")
			return
		}
		k = n
	}

	rs := h.gateway.As(auth.UserID(r.Context()))
	m, err := rs.Membership(r.Context())
	if err != nil {
		h.logger.Error("read membership", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Failed to search items")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "membership_missing", "You are not a member of any household")
		return
	}

	items, err := h.retriever.Search(r.Context(), rs, m.HouseholdID, q, k)
	if err != nil {
		h.logger.Error("search pantry items", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Failed to search items")
		return
	}
	if items == nil {
		items = []model.PantryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}
