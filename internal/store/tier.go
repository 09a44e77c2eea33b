package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Elevated is the privileged tier. It reads and writes every row regardless
// of who the caller is, so it is handed only to the components whose writes
// must cross household boundaries: the item migrator, the membership
// switcher and invite code allocation.
type Elevated struct {
	conn
}

func NewElevated(db *sql.DB, timeout time.Duration) *Elevated {
	return &Elevated{conn: newConn(db, timeout)}
}

// Gateway is the restricted tier before it is bound to a caller. It can only
// be used through As, which scopes every query to what that user may see.
type Gateway struct {
	conn
}

func NewGateway(db *sql.DB, timeout time.Duration) *Gateway {
	return &Gateway{conn: newConn(db, timeout)}
}

// As returns a restricted client acting on behalf of userID.
func (g *Gateway) As(userID uuid.UUID) *Restricted {
	return &Restricted{conn: g.conn, userID: userID}
}

// Restricted sees only the caller's own membership row, the household the
// caller currently belongs to, and that household's pantry items.
type Restricted struct {
	conn
	userID uuid.UUID
}

func (r *Restricted) UserID() uuid.UUID {
	return r.userID
}

// memberOf is the row policy shared by restricted reads: the household must
// be the one the caller currently belongs to.
const memberOf = `EXISTS (SELECT 1 FROM household_members hm WHERE hm.household_id = %s AND hm.user_id = ?)`
