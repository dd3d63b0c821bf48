package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect captures the few SQL differences between the supported engines.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// LockClause is appended to a SELECT inside a transaction to lock the
// returned rows.  SQLite has no row locks; its transactions already hold
// the database write lock.
func (d Dialect) LockClause() string {
	if d == MySQL {
		return " FOR UPDATE"
	}
	return ""
}

// InsertIgnore is the INSERT verb that skips rows violating a unique key.
func (d Dialect) InsertIgnore() string {
	if d == MySQL {
		return "INSERT IGNORE"
	}
	return "INSERT OR IGNORE"
}

// IsUniqueViolation reports whether err comes from a primary or unique key
// conflict.
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed") ||
		strings.Contains(msg, "1062")
}
