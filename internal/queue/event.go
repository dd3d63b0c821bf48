// Package queue defines the reservation events exchanged over RabbitMQ and
// the publisher and consumer that move them.
package queue

// Event types, also used as the AMQP message Type.
const (
	TypeReservationCreated = "reservation.created"
	TypeTablesAssigned     = "reservation.tables_assigned"
)

// ReservationCreatedEvent is published after a booking commits.  It carries
// enough for downstream consumers to log or notify without querying the
// primary database.
type ReservationCreatedEvent struct {
	ReservationID       uint64 `json:"reservation_id"`
	CustomerID          uint64 `json:"customer_id"`
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	PhoneNumber         string `json:"phone_number"`
	NumPeople           int    `json:"num_people"`
	ReservationDatetime string `json:"reservation_datetime"`
	CreatedAt           string `json:"created_at"`
}

// TablesAssignedEvent is published after tables are attached to a
// reservation.
type TablesAssignedEvent struct {
	ReservationID       uint64  `json:"reservation_id"`
	ReservationDatetime string  `json:"reservation_datetime"`
	TableNumbers        []int   `json:"table_numbers"`
	SpacingHours        float64 `json:"spacing_hours"`
	AssignedAt          string  `json:"assigned_at"`
}

// envelope wraps every message so the consumer can dispatch on Type.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
