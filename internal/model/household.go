package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPersonalHouseholdName is used for personal households created at
// signup and when a member leaves a shared household.
const DefaultPersonalHouseholdName = "My Household"

type Household struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	InviteCode *string   `json:"invite_code"`
	IsPersonal bool      `json:"is_personal"`
	OwnerID    uuid.UUID `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Joinable reports whether other users may enter the household with its
// invite code.
func (h *Household) Joinable() bool {
	return h != nil && !h.IsPersonal && h.InviteCode != nil
}

type HouseholdMember struct {
	ID          uuid.UUID `json:"id"`
	HouseholdID uuid.UUID `json:"household_id"`
	UserID      uuid.UUID `json:"user_id"`
	JoinedAt    time.Time `json:"joined_at"`
}
