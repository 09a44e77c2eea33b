package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/larder/internal/membership"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

var reasonMessages = map[string]string{
	membership.ReasonAlreadyMember:        "You are already a member of this household",
	membership.ReasonTargetIsPersonal:     "Personal households cannot be joined",
	membership.ReasonNotPersonal:          "Only personal households can be converted",
	membership.ReasonNotOwner:             "Only the owner can convert this household",
	membership.ReasonAlreadyPersonal:      "You are already in your personal household",
	membership.ReasonConcurrentChange:     "Your membership changed while this request was running, please retry",
	membership.ReasonInviteNotFound:       "No household uses this invite code",
	membership.ReasonMembershipMissing:    "You are not a member of any household",
	membership.ReasonHouseholdMissing:     "Your household could not be found",
	membership.ReasonInvalidInviteCode:    "Invite codes are 6 letters or digits",
	membership.ReasonInvalidName:          "Household names must be 1-100 characters",
	membership.ReasonInviteCodesExhausted: "Could not allocate an invite code, please retry",
	membership.ReasonStoreUnavailable:     "The service is temporarily unavailable, please retry",
}

func statusFor(e *membership.Error) int {
	switch e.Kind {
	case membership.KindNotFound:
		return http.StatusNotFound
	case membership.KindConflict:
		if e.Reason == membership.ReasonNotOwner {
			return http.StatusForbidden
		}
		return http.StatusConflict
	case membership.KindExhausted, membership.KindDependency:
		return http.StatusServiceUnavailable
	case membership.KindInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeMembershipError maps a membership failure to its HTTP response.
// Anything that is not a *membership.Error is an unexpected 500.
func writeMembershipError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var me *membership.Error
	if !errors.As(err, &me) {
		logger.Error("unexpected membership error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "Internal error")
		return
	}

	status := statusFor(me)
	if status >= 500 {
		w.Header().Set("Retry-After", "1")
	}
	msg, ok := reasonMessages[me.Reason]
	if !ok {
		msg = me.Reason
	}
	writeJSON(w, status, errorBody{Error: me.Reason, Message: msg, Retryable: me.Retryable()})
}
