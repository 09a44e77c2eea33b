package model

import (
	"time"

	"github.com/google/uuid"
)

type PantryItem struct {
	ID          uuid.UUID  `json:"id"`
	HouseholdID uuid.UUID  `json:"household_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Quantity    float64    `json:"quantity"`
	Unit        string     `json:"unit,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewPantryItem carries the caller-supplied fields of an item; household and
// owner are assigned by the store from the caller's membership.
type NewPantryItem struct {
	Name       string
	Category   string
	Quantity   float64
	Unit       string
	ExpiryDate *time.Time
}

// PantryUpsert reports what adding an item did: a new row, or a quantity
// merged into an existing one.
type PantryUpsert struct {
	Item        *PantryItem `json:"item"`
	IsNew       bool        `json:"is_new"`
	OldQuantity float64     `json:"old_quantity"`
	NewQuantity float64     `json:"new_quantity"`
}

// PantryItemPatch lists the fields an update changes. Nil fields are left as
// they are.
type PantryItemPatch struct {
	Name       *string
	Category   *string
	Quantity   *float64
	Unit       *string
	ExpiryDate *time.Time
}
