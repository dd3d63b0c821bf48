package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, SQLite))
	// idempotent
	require.NoError(t, Migrate(ctx, db, SQLite))

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	_, err = db.ExecContext(ctx,
		"INSERT INTO customers (first_name, last_name, phone_number) VALUES ('Jane', 'Doe', '(555) 867-5309')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		"INSERT INTO customers (first_name, last_name, phone_number) VALUES ('JANE', 'doe', '(555) 867-5309')")
	require.Error(t, err)
	assert.True(t, SQLite.IsUniqueViolation(err))

	_, err = db.ExecContext(ctx,
		"INSERT INTO reservations (customer_id, num_people, reservation_datetime, date_created) VALUES (1, 2, '2024-01-05T19:00', '2024-01-01 00:00:00')")
	assert.Error(t, err, "non-canonical datetime must be rejected")
}

func TestDialect(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", MySQL.LockClause())
	assert.Equal(t, "", SQLite.LockClause())
	assert.Equal(t, "INSERT IGNORE", MySQL.InsertIgnore())
	assert.Equal(t, "INSERT OR IGNORE", SQLite.InsertIgnore())

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	assert.True(t, MySQL.IsUniqueViolation(dup))
	assert.False(t, MySQL.IsUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, SQLite.IsUniqueViolation(errors.New("disk I/O error")))
	assert.False(t, SQLite.IsUniqueViolation(nil))
}
