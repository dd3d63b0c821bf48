package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/dining-reservation/internal/metrics"
	"github.com/iliyamo/dining-reservation/internal/model"
	"github.com/iliyamo/dining-reservation/internal/queue"
	"github.com/iliyamo/dining-reservation/internal/repository"
)

// DefaultSpacingHours is the spacing used when a caller does not choose one.
const DefaultSpacingHours = 2.0

// AssignTables attaches tables to a reservation, all or nothing.
//
// Every table must exist (*InvalidTableNumberError listing the unknown
// numbers otherwise) and be free
// within spacingHours of the reservation time (*OverlappingReservationError
// for the first one that is not).  The checks and the insert run in one
// transaction holding locks on the requested tables, so two concurrent
// assignments of the same table cannot both succeed.  Repeated numbers in
// tables are assigned once.
func (s *ReservationService) AssignTables(ctx context.Context, reservationID uint64, tables []int, spacingHours float64) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveDuration("assign_tables", start)
		metrics.TableAssignmentsTotal.WithLabelValues(assignmentOutcome(err)).Inc()
	}()

	log := s.log.With("reservation_id", reservationID, "tables", tables, "spacing_hours", spacingHours)
	if !validSpacing(spacingHours) {
		log.Warn("table assignment rejected", "reason", "spacing_hours must be finite")
		return fmt.Errorf("%w: spacing_hours must be finite", ErrInvalidParameter)
	}
	uniq := uniqueTables(tables)

	var res *model.Reservation
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = s.reservations.GetByIDTx(ctx, tx, reservationID, true)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReservationNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: load reservation: %w", ErrAssignmentPersistence, err)
		}

		if len(uniq) == 0 {
			return &InvalidTableNumberError{}
		}
		missing, err := s.missingTables(ctx, tx, uniq, true)
		if err != nil {
			return fmt.Errorf("%w: validate tables: %w", ErrAssignmentPersistence, err)
		}
		if len(missing) > 0 {
			return &InvalidTableNumberError{Tables: missing}
		}

		for _, table := range uniq {
			free, err := s.tableAvailable(ctx, tx, table, res.ReservationDatetime, spacingHours)
			if err != nil {
				return fmt.Errorf("%w: check table %d: %w", ErrAssignmentPersistence, table, err)
			}
			if !free {
				return &OverlappingReservationError{
					Datetime:     res.ReservationDatetime,
					TableNumber:  table,
					SpacingHours: spacingHours,
				}
			}
		}

		links := make([]model.ReservationTable, len(uniq))
		for i, table := range uniq {
			links[i] = model.ReservationTable{
				ReservationID:       res.ID,
				ReservationDatetime: res.ReservationDatetime,
				TableNumber:         table,
			}
		}
		if err := s.assignments.CreateBulkTx(ctx, tx, links); err != nil {
			return fmt.Errorf("%w: %w", ErrAssignmentPersistence, err)
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrReservationNotFound), errors.Is(err, ErrInvalidTableNumber),
		errors.Is(err, ErrOverlappingReservation):
		log.Warn("table assignment rejected", "reason", err)
		return err
	case errors.Is(err, ErrAssignmentPersistence):
		log.Error("table assignment failed", "error", err)
		return err
	default:
		log.Error("table assignment transaction failed", "error", err)
		return fmt.Errorf("%w: %w", ErrAssignmentPersistence, err)
	}

	log.Info("tables assigned", "reservation_datetime", res.ReservationDatetime)
	s.publishAssigned(ctx, queue.TablesAssignedEvent{
		ReservationID:       res.ID,
		ReservationDatetime: res.ReservationDatetime,
		TableNumbers:        uniq,
		SpacingHours:        spacingHours,
		AssignedAt:          s.timestamp(),
	})
	return nil
}

func assignmentOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrReservationNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrInvalidTableNumber), errors.Is(err, ErrInvalidParameter):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrOverlappingReservation):
		return metrics.OutcomeConflict
	}
	return metrics.OutcomeError
}
