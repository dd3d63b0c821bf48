package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/dining-reservation/internal/metrics"
	"github.com/iliyamo/dining-reservation/internal/model"
	"github.com/iliyamo/dining-reservation/internal/normalize"
	"github.com/iliyamo/dining-reservation/internal/queue"
	"github.com/iliyamo/dining-reservation/internal/repository"
)

// BookingRequest carries the raw caller input for BookReservation.  Phone
// and datetimes may be in any common format.  Email, DateCreated,
// NumHighchairs and Notes are optional.
type BookingRequest struct {
	FirstName           string
	LastName            string
	Phone               string
	NumPeople           int
	ReservationDatetime string
	Email               string
	DateCreated         string
	NumHighchairs       int
	Notes               string
}

// BookReservation creates a reservation without tables and returns its ID.
//
// Validation failures all return ErrInvalidParameter; the cause is logged.
// A customer who already holds a reservation at the same normalized time
// gets ErrDuplicateReservation.  The customer lookup, duplicate check and
// insert share one transaction, and the (customer, datetime) unique key
// rejects a concurrent duplicate that slips past the check.
func (s *ReservationService) BookReservation(ctx context.Context, req BookingRequest) (id uint64, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveDuration("book_reservation", start)
		metrics.ReservationsBookedTotal.WithLabelValues(bookingOutcome(err)).Inc()
	}()

	log := s.log.With("first_name", req.FirstName, "last_name", req.LastName,
		"phone", req.Phone, "reservation_datetime", req.ReservationDatetime)

	res, phone, err := s.validateBooking(req)
	if err != nil {
		log.Warn("booking rejected", "num_people", req.NumPeople, "num_highchairs", req.NumHighchairs, "reason", err)
		return 0, ErrInvalidParameter
	}

	var customerID uint64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		customerID, err = s.resolveOrCreateCustomer(ctx, tx, req.FirstName, req.LastName, phone, req.Email)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCustomerResolution, err)
		}
		res.CustomerID = customerID

		if _, exists, err := s.reservations.FindIDTx(ctx, tx, customerID, res.ReservationDatetime); err != nil {
			return fmt.Errorf("%w: %w", ErrReservationPersistence, err)
		} else if exists {
			return ErrDuplicateReservation
		}

		id, err = s.reservations.CreateTx(ctx, tx, res)
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrDuplicateReservation
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrReservationPersistence, err)
		}
		if id == 0 {
			var found bool
			id, found, err = s.reservations.FindIDTx(ctx, tx, customerID, res.ReservationDatetime)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrReservationPersistence, err)
			}
			if !found {
				return fmt.Errorf("%w: inserted row not found", ErrReservationPersistence)
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrDuplicateReservation):
		log.Warn("duplicate reservation", "customer_id", customerID)
		return 0, err
	case errors.Is(err, ErrCustomerResolution), errors.Is(err, ErrReservationPersistence):
		log.Error("booking failed", "error", err)
		return 0, err
	case err != nil:
		log.Error("booking transaction failed", "error", err)
		return 0, fmt.Errorf("%w: %w", ErrReservationPersistence, err)
	}

	log.Info("reservation booked", "reservation_id", id, "customer_id", customerID)
	s.publishCreated(ctx, queue.ReservationCreatedEvent{
		ReservationID:       id,
		CustomerID:          customerID,
		FirstName:           normalize.NormalizeName(req.FirstName),
		LastName:            normalize.NormalizeName(req.LastName),
		PhoneNumber:         phone,
		NumPeople:           res.NumPeople,
		ReservationDatetime: res.ReservationDatetime,
		CreatedAt:           res.DateCreated,
	})
	return id, nil
}

// validateBooking normalizes req into a reservation row and the canonical
// phone number.
func (s *ReservationService) validateBooking(req BookingRequest) (*model.Reservation, string, error) {
	if normalize.NormalizeName(req.FirstName) == "" || normalize.NormalizeName(req.LastName) == "" {
		return nil, "", errors.New("first and last name are required")
	}
	phone, err := normalize.NormalizePhone(req.Phone)
	if err != nil {
		return nil, "", err
	}
	at, err := normalize.NormalizeDatetime(req.ReservationDatetime)
	if err != nil {
		return nil, "", err
	}
	if req.NumPeople <= 0 {
		return nil, "", fmt.Errorf("num_people must be positive, got %d", req.NumPeople)
	}
	if req.NumHighchairs < 0 {
		return nil, "", fmt.Errorf("num_highchairs must not be negative, got %d", req.NumHighchairs)
	}

	created := s.timestamp()
	if req.DateCreated != "" {
		if c, err := normalize.NormalizeDatetime(req.DateCreated); err == nil {
			created = c
		} else {
			s.log.Warn("date_created unreadable, using current time", "date_created", req.DateCreated, "error", err)
		}
	}

	return &model.Reservation{
		NumPeople:           req.NumPeople,
		ReservationDatetime: at,
		DateCreated:         created,
		NumHighchairs:       req.NumHighchairs,
		Notes:               req.Notes,
	}, phone, nil
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrInvalidParameter):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrDuplicateReservation):
		return metrics.OutcomeConflict
	}
	return metrics.OutcomeError
}
