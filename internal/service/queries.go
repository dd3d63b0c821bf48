package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/dining-reservation/internal/model"
	"github.com/iliyamo/dining-reservation/internal/normalize"
	"github.com/iliyamo/dining-reservation/internal/repository"
)

// GetReservation returns a reservation with its customer and tables.
func (s *ReservationService) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := s.reservations.GetDetail(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		s.log.Error("reservation lookup failed", "reservation_id", id, "error", err)
		return nil, err
	}
	return res, nil
}

// ListReservationsForDate returns every reservation on the calendar day
// containing date, ordered by time.
func (s *ReservationService) ListReservationsForDate(ctx context.Context, date string) ([]model.Reservation, error) {
	canonical, err := normalize.NormalizeDatetime(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	day, err := time.ParseInLocation(normalize.DateLayout, canonical[:len(normalize.DateLayout)], time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	from := normalize.FormatCanonical(day)
	to := normalize.FormatCanonical(day.AddDate(0, 0, 1))
	list, err := s.reservations.ListBetween(ctx, from, to)
	if err != nil {
		s.log.Error("reservation listing failed", "date", from[:len(normalize.DateLayout)], "error", err)
		return nil, err
	}
	return list, nil
}

// ListTables returns the table inventory in ascending order.
func (s *ReservationService) ListTables(ctx context.Context) ([]int, error) {
	return s.tables.AllNumbers(ctx)
}

// TableAvailability is IsTableAvailable for external callers: unknown tables
// and unreadable datetimes are reported as errors instead of as busy.
func (s *ReservationService) TableAvailability(ctx context.Context, table int, at string, spacingHours float64) (bool, error) {
	canonical, err := normalize.NormalizeDatetime(at)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	if !validSpacing(spacingHours) {
		return false, fmt.Errorf("%w: spacing_hours must be finite", ErrInvalidParameter)
	}
	missing, err := s.missingTables(ctx, s.db, []int{table}, false)
	if err != nil {
		return false, err
	}
	if len(missing) > 0 {
		return false, &InvalidTableNumberError{Tables: missing}
	}
	return s.tableAvailable(ctx, s.db, table, canonical, spacingHours)
}
