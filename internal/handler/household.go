package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/membership"
)

type HouseholdHandler struct {
	service *membership.Service
	logger  *slog.Logger
}

func NewHouseholdHandler(service *membership.Service, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{service: service, logger: logger.With("component", "household_handler")}
}

type joinRequest struct {
	InviteCode string `json:"invite_code"`
}

type convertRequest struct {
	Name *string `json:"name"`
}

func (h *HouseholdHandler) Current(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Current(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be JSON")
		return
	}

	res, err := h.service.Join(r.Context(), auth.UserID(r.Context()), req.InviteCode)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HouseholdHandler) Leave(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Leave(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HouseholdHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	// The body is optional; an empty one keeps the current name.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be JSON")
		return
	}

	household, err := h.service.Convert(r.Context(), auth.UserID(r.Context()), req.Name)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, household)
}
