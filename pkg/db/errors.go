package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
)

const sqlStateUniqueViolation = "23505"

// UniqueIndex identifies a unique constraint by its Postgres name and by the
// column list SQLite prints for it (e.g. "shared_carts.product_id").
type UniqueIndex struct {
	Name    string
	Columns string
}

// IsUniqueViolation reports whether err is a unique constraint violation on
// idx. The zero UniqueIndex matches any unique violation.
func IsUniqueViolation(err error, idx UniqueIndex) bool {
	if err == nil {
		return false
	}
	matchAny := idx == (UniqueIndex{})
	if code, constraint := pkgerrors.SQLState(err); code != "" {
		if code != sqlStateUniqueViolation {
			return false
		}
		return matchAny || (idx.Name != "" && (constraint == idx.Name || strings.Contains(err.Error(), idx.Name)))
	}

	msg := err.Error()
	if strings.Contains(msg, "duplicate key value") {
		return matchAny || (idx.Name != "" && strings.Contains(msg, idx.Name))
	}
	const sqlitePrefix = "UNIQUE constraint failed: "
	at := strings.Index(msg, sqlitePrefix)
	if at < 0 {
		return false
	}
	if matchAny {
		return true
	}
	// SQLite names the columns, not the index.
	failed := msg[at+len(sqlitePrefix):]
	return idx.Columns != "" && strings.HasPrefix(failed, idx.Columns)
}
