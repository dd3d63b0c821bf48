// Package repository holds the SQL data access for customers, reservations
// and the table inventory.  Methods with a Tx suffix run on the handle the
// caller passes in, which is normally an open transaction; the others run on
// the repository's own connection pool.
package repository

import "errors"

// ErrNotFound is returned when a lookup by primary key yields no rows.
// Services translate it into their own domain errors.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key.  For
// reservations this is the (customer, datetime) double-booking guard.
var ErrDuplicate = errors.New("duplicate")
