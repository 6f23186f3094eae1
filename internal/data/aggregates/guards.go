package aggregates

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/jointbuy-backend/internal/domain/aggregates"
	"github.com/yungbote/jointbuy-backend/internal/platform/dbctx"
)

// CASGuard performs version-checked updates of aggregate root rows.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

// VersionedUpdate is one optimistic write against a root row. Reason is the
// conflict reason reported when the row moved past Expected.
type VersionedUpdate struct {
	Table    string
	ID       uuid.UUID
	Expected int
	Set      map[string]any
	Reason   string
}

func (g CASGuard) conn(dbc dbctx.Context) (*gorm.DB, error) {
	switch {
	case dbc.Tx != nil:
		return dbc.Tx.WithContext(dbc.Ctx), nil
	case g.db != nil:
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByVersion applies updates where id and version match. A false
// result with a nil error means another writer got there first.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error) {
	db, err := g.conn(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	switch {
	case table == "" || id == uuid.Nil:
		return false, ValidationError("table and id are required")
	case expectedVersion < 0:
		return false, ValidationError("expected version must be >= 0")
	case len(updates) == 0:
		return false, ValidationError("updates must not be empty")
	}
	res := db.Table(table).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Advance writes u.Set plus version = Expected+1 and returns the new version.
// A lost race surfaces as a conflict carrying u.Reason.
func (g CASGuard) Advance(dbc dbctx.Context, op string, u VersionedUpdate) (int, error) {
	next := u.Expected + 1
	set := make(map[string]any, len(u.Set)+1)
	for k, v := range u.Set {
		set[k] = v
	}
	set["version"] = next
	ok, err := g.UpdateByVersion(dbc, u.Table, u.ID, u.Expected, set)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domainagg.NewError(domainagg.CodeConflict, op, u.Reason, nil)
	}
	return next, nil
}
