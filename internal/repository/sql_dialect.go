package repository

import (
	"strings"

	"gorm.io/gorm"
)

// dbDialectName returns the dialect name, defaulting to sqlite.
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// skipLockedSuffix returns the row-locking suffix for contended pool
// selection. Postgres supports FOR UPDATE SKIP LOCKED, so concurrent
// selectors pass over rows already claimed by another transaction
// instead of blocking on them. SQLite serializes writers on the
// database lock, so the plain select is already race-free there.
func skipLockedSuffix(db *gorm.DB) string {
	return skipLockedSuffixByDialect(dbDialectName(db))
}

func skipLockedSuffixByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return " FOR UPDATE SKIP LOCKED"
	default:
		return ""
	}
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// likeOperator returns the case-insensitive LIKE operator for the dialect.
func likeOperator(db *gorm.DB) string {
	return likeOperatorByDialect(dbDialectName(db))
}
