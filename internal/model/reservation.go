package model

// Reservation is a customer's booking for a party at a point in time.
// A reservation starts without tables; AssignTables attaches one or more
// physical tables in a single step.
//
// Fields:
//  ID                  – primary key identifier.
//  CustomerID          – customer who holds the reservation.
//  NumPeople           – party size, always positive.
//  ReservationDatetime – canonical "YYYY-MM-DD HH:MM:SS" start time.
//  DateCreated         – canonical time the booking was made.
//  NumHighchairs       – highchairs requested, never negative.
//  Notes               – free text from the caller.
//  Customer            – populated by read queries that join customers.
//  TableNumbers        – populated by read queries; empty while unassigned.
type Reservation struct {
	ID                  uint64    `json:"reservation_id"`       // reservations.reservation_id
	CustomerID          uint64    `json:"customer_id"`          // reservations.customer_id
	NumPeople           int       `json:"num_people"`           // reservations.num_people
	ReservationDatetime string    `json:"reservation_datetime"` // reservations.reservation_datetime
	DateCreated         string    `json:"date_created"`         // reservations.date_created
	NumHighchairs       int       `json:"num_highchairs"`       // reservations.num_highchairs
	Notes               string    `json:"notes"`                // reservations.notes
	Customer            *Customer `json:"customer,omitempty"`   // joined from customers
	TableNumbers        []int     `json:"table_numbers"`        // joined from reservation_tables
}

// Assigned reports whether at least one table is attached.
func (r Reservation) Assigned() bool { return len(r.TableNumbers) > 0 }
