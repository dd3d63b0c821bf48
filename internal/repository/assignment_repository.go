package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/dining-reservation/internal/database"
	"github.com/iliyamo/dining-reservation/internal/model"
)

// AssignmentRepo stores reservation to table links and answers the overlap
// queries behind availability checks.
type AssignmentRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewAssignmentRepo returns a new AssignmentRepo bound to the given database.
func NewAssignmentRepo(db *sql.DB, d database.Dialect) *AssignmentRepo {
	return &AssignmentRepo{db: db, dialect: d}
}

// TimesForTableTx returns the datetimes already booked on table within the
// closed interval [from, to].  Canonical datetimes order lexicographically,
// so the range test works on both engines.
func (r *AssignmentRepo) TimesForTableTx(ctx context.Context, tx Querier, table int, from, to string) ([]string, error) {
	const q = `SELECT reservation_datetime FROM reservation_tables
	           WHERE table_number = ? AND reservation_datetime >= ? AND reservation_datetime <= ?
	           ORDER BY reservation_datetime`
	rows, err := tx.QueryContext(ctx, q, table, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var at datetime
		if err := rows.Scan(&at); err != nil {
			return nil, err
		}
		out = append(out, string(at))
	}
	return out, rows.Err()
}

// CreateBulkTx inserts all links in a single statement so a reservation
// never ends up with a subset of its tables.  Passing an empty slice has no
// effect and returns nil.
func (r *AssignmentRepo) CreateBulkTx(ctx context.Context, tx Querier, links []model.ReservationTable) error {
	if len(links) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_tables (reservation_id, reservation_datetime, table_number) VALUES `
	args := make([]interface{}, 0, len(links)*3)
	for i, l := range links {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, l.ReservationID, l.ReservationDatetime, l.TableNumber)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	if err != nil && r.dialect.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
