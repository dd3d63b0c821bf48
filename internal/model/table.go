package model

// ReservationTable links a reservation to a table.  The reservation's
// datetime is repeated so overlap checks only need this relation.
type ReservationTable struct {
	ReservationID       uint64 // reservation_tables.reservation_id
	ReservationDatetime string // reservation_tables.reservation_datetime
	TableNumber         int    // reservation_tables.table_number
}
