package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/dining-reservation/internal/database"
	"github.com/iliyamo/dining-reservation/internal/model"
)

// CustomerRepo provides lookups and writes for the customers table.  Name
// comparisons are case-insensitive through the column collation.
type CustomerRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewCustomerRepo returns a new CustomerRepo bound to the given database.
func NewCustomerRepo(db *sql.DB, d database.Dialect) *CustomerRepo {
	return &CustomerRepo{db: db, dialect: d}
}

// FindID looks up a customer by identity triple.  found is false when no
// row matches; err is reserved for storage failures.
func (r *CustomerRepo) FindID(ctx context.Context, first, last, phone string) (uint64, bool, error) {
	return r.FindIDTx(ctx, r.db, first, last, phone, false)
}

// FindIDTx is FindID on the caller's handle.  With lockRow set the read is
// a locking read, which on MySQL also sees rows committed after the
// transaction's snapshot.
func (r *CustomerRepo) FindIDTx(ctx context.Context, tx Querier, first, last, phone string, lockRow bool) (uint64, bool, error) {
	q := `SELECT customer_id FROM customers
	      WHERE first_name = ? AND last_name = ? AND phone_number = ?`
	if lockRow {
		q += r.dialect.LockClause()
	}
	var id uint64
	err := tx.QueryRowContext(ctx, q, first, last, phone).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// InsertTx creates a customer and returns its generated ID.  The ID is 0
// when the driver cannot report it; the caller then resolves it by
// identity.  A conflict on the identity triple returns ErrDuplicate.
func (r *CustomerRepo) InsertTx(ctx context.Context, tx Querier, c *model.Customer) (uint64, error) {
	const q = `INSERT INTO customers (first_name, last_name, phone_number, email) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, c.FirstName, c.LastName, c.PhoneNumber, c.Email)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	c.ID = insertedID(res)
	return c.ID, nil
}

// UpdateEmailTx replaces the stored email of customer id.
func (r *CustomerRepo) UpdateEmailTx(ctx context.Context, tx Querier, id uint64, email string) error {
	_, err := tx.ExecContext(ctx, `UPDATE customers SET email = ? WHERE customer_id = ?`, email, id)
	return err
}

// GetByID returns a customer or ErrNotFound.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (*model.Customer, error) {
	const q = `SELECT customer_id, first_name, last_name, phone_number, email FROM customers WHERE customer_id = ?`
	var c model.Customer
	err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.FirstName, &c.LastName, &c.PhoneNumber, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
