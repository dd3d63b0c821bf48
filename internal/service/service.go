// Package service implements the reservation engine: customer identity
// resolution, table availability, booking and table assignment.  Write
// operations run in a single database transaction and re-read everything
// they depend on inside it.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/dining-reservation/internal/logger"
	"github.com/iliyamo/dining-reservation/internal/normalize"
	"github.com/iliyamo/dining-reservation/internal/queue"
	"github.com/iliyamo/dining-reservation/internal/repository"
)

// EventPublisher receives domain events after a write commits.  Delivery
// failures never fail the originating operation.
type EventPublisher interface {
	PublishReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error
	PublishTablesAssigned(ctx context.Context, ev queue.TablesAssignedEvent) error
}

// ReservationService books reservations and assigns tables.  It is safe for
// concurrent use; all state lives in the database.
type ReservationService struct {
	db           *sql.DB
	customers    *repository.CustomerRepo
	reservations *repository.ReservationRepo
	tables       *repository.TableRepo
	assignments  *repository.AssignmentRepo
	events       EventPublisher
	log          logger.Logger
	now          func() time.Time
}

// NewReservationService wires the service to its repositories.  A nil
// events publisher disables events.
func NewReservationService(
	db *sql.DB,
	customers *repository.CustomerRepo,
	reservations *repository.ReservationRepo,
	tables *repository.TableRepo,
	assignments *repository.AssignmentRepo,
	events EventPublisher,
	log logger.Logger,
) *ReservationService {
	if db == nil || customers == nil || reservations == nil || tables == nil || assignments == nil {
		panic("nil dependency passed to NewReservationService")
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &ReservationService{
		db:           db,
		customers:    customers,
		reservations: reservations,
		tables:       tables,
		assignments:  assignments,
		events:       events,
		log:          log.With("component", "reservation-service"),
		now:          time.Now,
	}
}

// SetClock replaces the time source used for creation timestamps.
func (s *ReservationService) SetClock(now func() time.Time) { s.now = now }

func (s *ReservationService) timestamp() string {
	return normalize.FormatCanonical(s.now())
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (s *ReservationService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

const publishTimeout = 3 * time.Second

func (s *ReservationService) publishCreated(ctx context.Context, ev queue.ReservationCreatedEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishReservationCreated(ctx, ev); err != nil {
		s.log.Warn("reservation.created not published", "reservation_id", ev.ReservationID, "error", err)
	}
}

func (s *ReservationService) publishAssigned(ctx context.Context, ev queue.TablesAssignedEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishTablesAssigned(ctx, ev); err != nil {
		s.log.Warn("reservation.tables_assigned not published", "reservation_id", ev.ReservationID, "error", err)
	}
}
