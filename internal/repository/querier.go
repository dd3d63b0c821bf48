package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/dining-reservation/internal/normalize"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// datetime scans a timestamp column into canonical text.  MySQL returns
// time.Time (parseTime=true); SQLite returns the stored string.
type datetime string

func (d *datetime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = datetime(normalize.FormatCanonical(v))
	case []byte:
		*d = datetime(v)
	case string:
		*d = datetime(v)
	case nil:
		*d = ""
	default:
		return fmt.Errorf("unsupported datetime type %T", src)
	}
	return nil
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// insertedID returns the generated key of res, or 0 when the driver cannot
// report one.
func insertedID(res sql.Result) uint64 {
	id, err := res.LastInsertId()
	if err != nil || id <= 0 {
		return 0
	}
	return uint64(id)
}
