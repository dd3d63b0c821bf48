package database

import (
	"context"
	"database/sql"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id  INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name   TEXT NOT NULL COLLATE NOCASE,
		last_name    TEXT NOT NULL COLLATE NOCASE,
		phone_number TEXT NOT NULL,
		email        TEXT NOT NULL DEFAULT '',
		UNIQUE (first_name, last_name, phone_number)
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		reservation_id       INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id          INTEGER NOT NULL REFERENCES customers (customer_id),
		num_people           INTEGER NOT NULL CHECK (num_people > 0),
		reservation_datetime TEXT NOT NULL CHECK (reservation_datetime GLOB
			'[0-9][0-9][0-9][0-9]-[0-1][0-9]-[0-3][0-9] [0-2][0-9]:[0-5][0-9]:[0-5][0-9]'),
		date_created         TEXT NOT NULL,
		num_highchairs       INTEGER NOT NULL DEFAULT 0 CHECK (num_highchairs >= 0),
		notes                TEXT NOT NULL DEFAULT '',
		UNIQUE (customer_id, reservation_datetime),
		UNIQUE (reservation_id, reservation_datetime)
	)`,
	`CREATE TABLE IF NOT EXISTS dining_tables (
		table_number INTEGER PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS reservation_tables (
		reservation_id       INTEGER NOT NULL,
		reservation_datetime TEXT NOT NULL,
		table_number         INTEGER NOT NULL REFERENCES dining_tables (table_number),
		PRIMARY KEY (reservation_id, reservation_datetime, table_number),
		FOREIGN KEY (reservation_id, reservation_datetime)
			REFERENCES reservations (reservation_id, reservation_datetime)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservation_tables_table_dt
		ON reservation_tables (table_number, reservation_datetime)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_dt
		ON reservations (reservation_datetime)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id  BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		first_name   VARCHAR(100) NOT NULL,
		last_name    VARCHAR(100) NOT NULL,
		phone_number VARCHAR(20)  NOT NULL,
		email        VARCHAR(255) NOT NULL DEFAULT '',
		UNIQUE KEY uq_customers_identity (first_name, last_name, phone_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS reservations (
		reservation_id       BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		customer_id          BIGINT UNSIGNED NOT NULL,
		num_people           INT NOT NULL,
		reservation_datetime DATETIME NOT NULL,
		date_created         DATETIME NOT NULL,
		num_highchairs       INT NOT NULL DEFAULT 0,
		notes                VARCHAR(1000) NOT NULL DEFAULT '',
		UNIQUE KEY uq_reservations_customer_dt (customer_id, reservation_datetime),
		UNIQUE KEY uq_reservations_id_dt (reservation_id, reservation_datetime),
		KEY idx_reservations_dt (reservation_datetime),
		CONSTRAINT chk_reservations_people CHECK (num_people > 0),
		CONSTRAINT chk_reservations_highchairs CHECK (num_highchairs >= 0),
		CONSTRAINT fk_reservations_customer FOREIGN KEY (customer_id) REFERENCES customers (customer_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS dining_tables (
		table_number INT NOT NULL PRIMARY KEY
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS reservation_tables (
		reservation_id       BIGINT UNSIGNED NOT NULL,
		reservation_datetime DATETIME NOT NULL,
		table_number         INT NOT NULL,
		PRIMARY KEY (reservation_id, reservation_datetime, table_number),
		KEY idx_reservation_tables_table_dt (table_number, reservation_datetime),
		CONSTRAINT fk_reservation_tables_reservation FOREIGN KEY (reservation_id, reservation_datetime)
			REFERENCES reservations (reservation_id, reservation_datetime),
		CONSTRAINT fk_reservation_tables_table FOREIGN KEY (table_number) REFERENCES dining_tables (table_number)
	) ENGINE=InnoDB`,
}

// Migrate creates the schema for d if it does not exist.  Statements run one
// at a time; the MySQL driver rejects multi-statement strings by default.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts := sqliteSchema
	if d == MySQL {
		stmts = mysqlSchema
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
