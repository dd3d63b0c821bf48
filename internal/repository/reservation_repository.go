package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/dining-reservation/internal/database"
	"github.com/iliyamo/dining-reservation/internal/model"
)

// ReservationRepo provides access to reservations.  All datetimes are
// canonical "YYYY-MM-DD HH:MM:SS" strings on both sides of the boundary.
type ReservationRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB, d database.Dialect) *ReservationRepo {
	return &ReservationRepo{db: db, dialect: d}
}

// FindIDTx returns the reservation a customer holds at datetime, if any.
func (r *ReservationRepo) FindIDTx(ctx context.Context, tx Querier, customerID uint64, at string) (uint64, bool, error) {
	const q = `SELECT reservation_id FROM reservations WHERE customer_id = ? AND reservation_datetime = ?`
	var id uint64
	err := tx.QueryRowContext(ctx, q, customerID, at).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// CreateTx inserts a reservation within the caller's transaction and
// returns the generated ID (0 when the driver cannot report it).  A
// conflict on (customer_id, reservation_datetime) returns ErrDuplicate.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx Querier, res *model.Reservation) (uint64, error) {
	const q = `INSERT INTO reservations
	           (customer_id, num_people, reservation_datetime, date_created, num_highchairs, notes)
	           VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.CustomerID, res.NumPeople, res.ReservationDatetime, res.DateCreated, res.NumHighchairs, res.Notes)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	res.ID = insertedID(result)
	return res.ID, nil
}

// GetByIDTx loads the bare reservation row, or ErrNotFound.  With lockRow
// set the row is locked for the rest of the transaction.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx Querier, id uint64, lockRow bool) (*model.Reservation, error) {
	q := `SELECT reservation_id, customer_id, num_people, reservation_datetime, date_created, num_highchairs, notes
	      FROM reservations WHERE reservation_id = ?`
	if lockRow {
		q += r.dialect.LockClause()
	}
	var res model.Reservation
	var at, created datetime
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.CustomerID, &res.NumPeople, &at, &created, &res.NumHighchairs, &res.Notes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	res.ReservationDatetime = string(at)
	res.DateCreated = string(created)
	return &res, nil
}

const detailSelect = `SELECT r.reservation_id, r.customer_id, r.num_people, r.reservation_datetime,
                             r.date_created, r.num_highchairs, r.notes,
                             c.first_name, c.last_name, c.phone_number, c.email
                      FROM reservations r
                      JOIN customers c ON c.customer_id = r.customer_id`

// GetDetail returns the reservation with its customer and assigned tables,
// or ErrNotFound.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (*model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, detailSelect+` WHERE r.reservation_id = ?`, id)
	if err != nil {
		return nil, err
	}
	list, err := r.scanDetails(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// ListBetween returns reservations with from <= datetime < to ordered by
// time, each with customer and tables populated.
func (r *ReservationRepo) ListBetween(ctx context.Context, from, to string) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		detailSelect+` WHERE r.reservation_datetime >= ? AND r.reservation_datetime < ?
		               ORDER BY r.reservation_datetime, r.reservation_id`, from, to)
	if err != nil {
		return nil, err
	}
	return r.scanDetails(ctx, rows)
}

func (r *ReservationRepo) scanDetails(ctx context.Context, rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		var res model.Reservation
		var c model.Customer
		var at, created datetime
		if err := rows.Scan(
			&res.ID, &res.CustomerID, &res.NumPeople, &at, &created, &res.NumHighchairs, &res.Notes,
			&c.FirstName, &c.LastName, &c.PhoneNumber, &c.Email,
		); err != nil {
			return nil, err
		}
		c.ID = res.CustomerID
		res.Customer = &c
		res.ReservationDatetime = string(at)
		res.DateCreated = string(created)
		res.TableNumbers = []int{}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	// Attach tables with one query for the whole page.
	ids := make([]any, len(out))
	index := make(map[uint64]int, len(out))
	for i, res := range out {
		ids[i] = res.ID
		index[res.ID] = i
	}
	trows, err := r.db.QueryContext(ctx,
		`SELECT reservation_id, table_number FROM reservation_tables
		 WHERE reservation_id IN (`+placeholders(len(ids))+`) ORDER BY reservation_id, table_number`, ids...)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var id uint64
		var table int
		if err := trows.Scan(&id, &table); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			out[i].TableNumbers = append(out[i].TableNumbers, table)
		}
	}
	return out, trows.Err()
}
