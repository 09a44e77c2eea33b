package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/model"
	"github.com/google/uuid"
)

const expiryLayout = "2006-01-02"

func scanPantryItem(s scanner) (*model.PantryItem, error) {
	var it model.PantryItem
	var expiry sql.NullString
	err := s.Scan(
		&it.ID, &it.HouseholdID, &it.OwnerID, &it.Name, &it.Category,
		&it.Quantity, &it.Unit, &expiry, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiry.Valid && expiry.String != "" {
		t, err := time.Parse(expiryLayout, expiry.String)
		if err != nil {
			return nil, fmt.Errorf("parse expiry date %q: %w", expiry.String, err)
		}
		it.ExpiryDate = &t
	}
	return &it, nil
}

const (
	pantryItemCols      = `p.id, p.household_id, p.owner_id, p.name, p.category, p.quantity, p.unit, p.expiry_date, p.created_at, p.updated_at`
	pantryItemReturning = `id, household_id, owner_id, name, category, quantity, unit, expiry_date, created_at, updated_at`
)

// ReassignPantryItems moves the owner's items that are still in from into to
// and returns how many rows moved. Items already moved are not matched, so a
// repeated call moves nothing.
func (e *Elevated) ReassignPantryItems(ctx context.Context, ownerID, from, to uuid.UUID) (int64, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	result, err := e.db.ExecContext(ctx,
		`UPDATE pantry_items SET household_id = ?, updated_at = datetime('now')
		 WHERE owner_id = ? AND household_id = ?`,
		to, ownerID, from,
	)
	if err != nil {
		return 0, fmt.Errorf("reassign pantry items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ReclaimStrandedPantryItems moves the owner's items into to from every
// household that is neither to nor the owner's current household. Such items
// are left behind by a transition that moved items but never switched the
// membership, or by a competing transition that lost the switch.
func (e *Elevated) ReclaimStrandedPantryItems(ctx context.Context, ownerID, to uuid.UUID) (int64, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	result, err := e.db.ExecContext(ctx,
		`UPDATE pantry_items SET household_id = ?, updated_at = datetime('now')
		 WHERE owner_id = ? AND household_id <> ?
		   AND household_id NOT IN (SELECT m.household_id FROM household_members m WHERE m.user_id = ?)`,
		to, ownerID, to, ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stranded pantry items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// SettlePantryItems pulls every item the owner has elsewhere into
// householdID, but only while the owner's membership row points there. It
// moves nothing once the membership has changed again.
func (e *Elevated) SettlePantryItems(ctx context.Context, ownerID, householdID uuid.UUID) (int64, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	result, err := e.db.ExecContext(ctx,
		`UPDATE pantry_items SET household_id = ?, updated_at = datetime('now')
		 WHERE owner_id = ? AND household_id <> ?
		   AND EXISTS (SELECT 1 FROM household_members m WHERE m.user_id = ? AND m.household_id = ?)`,
		householdID, ownerID, householdID, ownerID, householdID,
	)
	if err != nil {
		return 0, fmt.Errorf("settle pantry items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// PantryItemsByOwner lists every item the user owns, whichever household it
// sits in.
func (e *Elevated) PantryItemsByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.PantryItem, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	rows, err := e.db.QueryContext(ctx,
		`SELECT `+pantryItemCols+` FROM pantry_items p WHERE p.owner_id = ? ORDER BY p.name ASC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pantry items by owner: %w", err)
	}
	return collectPantryItems(rows)
}

// AddPantryItem adds an item owned by the caller to the caller's current
// household. If the caller already has an item there with the same name and
// unit, the quantity is merged into it instead.
func (r *Restricted) AddPantryItem(ctx context.Context, in model.NewPantryItem) (*model.PantryUpsert, error) {
	ups, err := r.AddPantryItems(ctx, []model.NewPantryItem{in})
	if err != nil {
		return nil, err
	}
	return &ups[0], nil
}

// AddPantryItems adds several items in one transaction, merging each the way
// AddPantryItem does. Either every item lands or none does.
func (r *Restricted) AddPantryItems(ctx context.Context, items []model.NewPantryItem) ([]model.PantryUpsert, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add pantry items: %w", err)
	}
	defer tx.Rollback()

	// The household comes from the membership row, so the caller cannot
	// target another household.
	var householdID uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT household_id FROM household_members WHERE user_id = ?`, r.userID).Scan(&householdID)
	if err == sql.ErrNoRows {
		return nil, ErrNoHousehold
	}
	if err != nil {
		return nil, fmt.Errorf("read membership: %w", err)
	}

	out := make([]model.PantryUpsert, 0, len(items))
	for _, in := range items {
		up, err := upsertPantryItem(ctx, tx, r.userID, householdID, in)
		if err != nil {
			return nil, err
		}
		out = append(out, up)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add pantry items: %w", err)
	}
	return out, nil
}

func upsertPantryItem(ctx context.Context, tx *sql.Tx, ownerID, householdID uuid.UUID, in model.NewPantryItem) (model.PantryUpsert, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+pantryItemCols+` FROM pantry_items p
		 WHERE p.owner_id = ? AND p.household_id = ? AND p.name = ? AND p.unit = ?
		 ORDER BY p.created_at ASC LIMIT 1`,
		ownerID, householdID, in.Name, in.Unit,
	)
	existing, err := scanPantryItem(row)
	if err != nil && err != sql.ErrNoRows {
		return model.PantryUpsert{}, fmt.Errorf("find pantry item: %w", err)
	}

	if existing == nil {
		row = tx.QueryRowContext(ctx,
			`INSERT INTO pantry_items (id, household_id, owner_id, name, category, quantity, unit, expiry_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING `+pantryItemReturning,
			uuid.New(), householdID, ownerID, in.Name, in.Category, in.Quantity, in.Unit, expiryArg(in.ExpiryDate),
		)
		it, err := scanPantryItem(row)
		if err != nil {
			return model.PantryUpsert{}, writeErr("create pantry item", err)
		}
		return model.PantryUpsert{Item: it, IsNew: true, NewQuantity: it.Quantity}, nil
	}

	// The earlier expiry date wins so a merged item is never reported fresher
	// than its oldest part.
	expiry := existing.ExpiryDate
	if in.ExpiryDate != nil && (expiry == nil || in.ExpiryDate.Before(*expiry)) {
		expiry = in.ExpiryDate
	}
	row = tx.QueryRowContext(ctx,
		`UPDATE pantry_items SET quantity = quantity + ?, expiry_date = ?, updated_at = datetime('now')
		 WHERE id = ?
		 RETURNING `+pantryItemReturning,
		in.Quantity, expiryArg(expiry), existing.ID,
	)
	it, err := scanPantryItem(row)
	if err != nil {
		return model.PantryUpsert{}, fmt.Errorf("merge pantry item: %w", err)
	}
	return model.PantryUpsert{Item: it, OldQuantity: existing.Quantity, NewQuantity: it.Quantity}, nil
}

// UpdatePantryItem changes the fields set in patch on one of the caller's own
// items in the caller's current household. It returns nil when no such item
// exists.
func (r *Restricted) UpdatePantryItem(ctx context.Context, id uuid.UUID, patch model.PantryItemPatch) (*model.PantryItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`UPDATE pantry_items SET
		     name        = COALESCE(?, name),
		     category    = COALESCE(?, category),
		     quantity    = COALESCE(?, quantity),
		     unit        = COALESCE(?, unit),
		     expiry_date = COALESCE(?, expiry_date),
		     updated_at  = datetime('now')
		 WHERE id = ? AND owner_id = ? AND `+fmt.Sprintf(memberOf, "pantry_items.household_id")+`
		 RETURNING `+pantryItemReturning,
		patch.Name, patch.Category, patch.Quantity, patch.Unit, expiryArg(patch.ExpiryDate),
		id, r.userID, r.userID,
	)
	it, err := scanPantryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update pantry item: %w", err)
	}
	return it, nil
}

// DeletePantryItem removes one of the caller's own items from the caller's
// current household and returns the removed row, or nil when no such item
// exists.
func (r *Restricted) DeletePantryItem(ctx context.Context, id uuid.UUID) (*model.PantryItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`DELETE FROM pantry_items
		 WHERE id = ? AND owner_id = ? AND `+fmt.Sprintf(memberOf, "pantry_items.household_id")+`
		 RETURNING `+pantryItemReturning,
		id, r.userID, r.userID,
	)
	it, err := scanPantryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete pantry item: %w", err)
	}
	return it, nil
}

func expiryArg(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(expiryLayout), Valid: true}
}

// ListPantryItems returns the items of the caller's current household,
// optionally only the ones the caller owns.
func (r *Restricted) ListPantryItems(ctx context.Context, mineOnly bool) ([]model.PantryItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `SELECT ` + pantryItemCols + ` FROM pantry_items p WHERE ` + fmt.Sprintf(memberOf, "p.household_id")
	args := []any{r.userID}
	if mineOnly {
		query += ` AND p.owner_id = ?`
		args = append(args, r.userID)
	}
	query += ` ORDER BY p.expiry_date IS NULL, p.expiry_date ASC, p.name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pantry items: %w", err)
	}
	return collectPantryItems(rows)
}

// SearchPantryItems does a case-insensitive name match within the caller's
// current household.
func (r *Restricted) SearchPantryItems(ctx context.Context, query string, limit int) ([]model.PantryItem, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pantryItemCols+` FROM pantry_items p
		 WHERE `+fmt.Sprintf(memberOf, "p.household_id")+` AND LOWER(p.name) LIKE ?
		 ORDER BY p.name ASC LIMIT ?`,
		r.userID, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search pantry items: %w", err)
	}
	return collectPantryItems(rows)
}

func collectPantryItems(rows *sql.Rows) ([]model.PantryItem, error) {
	defer rows.Close()

	var items []model.PantryItem
	for rows.Next() {
		it, err := scanPantryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pantry item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}
