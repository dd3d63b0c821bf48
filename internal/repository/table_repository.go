package repository

import (
	"context"
	"database/sql"
	"sort"

	"github.com/iliyamo/dining-reservation/internal/database"
)

// TableRepo manages the fixed dining table inventory.
type TableRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewTableRepo constructs a TableRepo with the given DB handle.
func NewTableRepo(db *sql.DB, d database.Dialect) *TableRepo {
	return &TableRepo{db: db, dialect: d}
}

// EnsureInventory inserts every table number not already present in a
// single statement.  Existing rows are left untouched.
func (r *TableRepo) EnsureInventory(ctx context.Context, numbers []int) error {
	if len(numbers) == 0 {
		return nil
	}
	query := r.dialect.InsertIgnore() + ` INTO dining_tables (table_number) VALUES `
	args := make([]interface{}, 0, len(numbers))
	for i, n := range numbers {
		if i > 0 {
			query += ","
		}
		query += "(?)"
		args = append(args, n)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// AllNumbers lists the inventory in ascending order.
func (r *TableRepo) AllNumbers(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT table_number FROM dining_tables ORDER BY table_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ExistingTx returns which of numbers exist in the inventory.  With lockRows
// set the matching rows are locked in ascending order, so concurrent
// assignments touching the same tables serialize without deadlocking.
func (r *TableRepo) ExistingTx(ctx context.Context, tx Querier, numbers []int, lockRows bool) ([]int, error) {
	if len(numbers) == 0 {
		return []int{}, nil
	}
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	args := make([]any, len(sorted))
	for i, n := range sorted {
		args[i] = n
	}
	q := `SELECT table_number FROM dining_tables WHERE table_number IN (` + placeholders(len(sorted)) + `)
	      ORDER BY table_number`
	if lockRows {
		q += r.dialect.LockClause()
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]int, 0, len(sorted))
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
