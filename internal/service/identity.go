package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/dining-reservation/internal/model"
	"github.com/iliyamo/dining-reservation/internal/normalize"
	"github.com/iliyamo/dining-reservation/internal/repository"
)

// FindCustomer looks a customer up by name and phone.  Names match
// case-insensitively and the phone is normalized first.  Invalid phones and
// storage failures are logged and reported as not found.
func (s *ReservationService) FindCustomer(ctx context.Context, first, last, phone string) (uint64, bool) {
	return s.findCustomer(ctx, s.db, first, last, phone)
}

func (s *ReservationService) findCustomer(ctx context.Context, q repository.Querier, first, last, phone string) (uint64, bool) {
	p, err := normalize.NormalizePhone(phone)
	if err != nil {
		s.log.Debug("customer lookup with invalid phone", "phone", phone, "error", err)
		return 0, false
	}
	id, found, err := s.customers.FindIDTx(ctx, q, normalize.NormalizeName(first), normalize.NormalizeName(last), p, false)
	if err != nil {
		s.log.Error("customer lookup failed", "first_name", first, "last_name", last, "phone", p, "error", err)
		return 0, false
	}
	return id, found
}

// ResolveOrCreateCustomer returns the ID of the customer identified by
// name and phone, creating the customer when absent.  A non-empty email
// replaces the stored one; an empty email leaves it unchanged.
func (s *ReservationService) ResolveOrCreateCustomer(ctx context.Context, first, last, phone, email string) (uint64, error) {
	var id uint64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.resolveOrCreateCustomer(ctx, tx, first, last, phone, email)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *ReservationService) resolveOrCreateCustomer(ctx context.Context, tx repository.Querier, first, last, phone, email string) (uint64, error) {
	first, last = normalize.NormalizeName(first), normalize.NormalizeName(last)
	if first == "" || last == "" {
		return 0, fmt.Errorf("%w: first and last name are required", ErrInvalidParameter)
	}
	p, err := normalize.NormalizePhone(phone)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	log := s.log.With("first_name", first, "last_name", last, "phone", p)

	id, found, err := s.customers.FindIDTx(ctx, tx, first, last, p, false)
	if err != nil {
		log.Error("customer lookup failed", "error", err)
		return 0, err
	}
	if found {
		return id, s.updateEmail(ctx, tx, id, email)
	}

	id, err = s.customers.InsertTx(ctx, tx, &model.Customer{FirstName: first, LastName: last, PhoneNumber: p, Email: email})
	lostRace := errors.Is(err, repository.ErrDuplicate)
	if err != nil && !lostRace {
		log.Error("customer insert failed", "error", err)
		return 0, err
	}
	if err == nil && id != 0 {
		return id, nil
	}

	// The driver gave no key, or a concurrent writer created the same
	// customer first.  Read the row back with a locking read.
	id, found, err = s.customers.FindIDTx(ctx, tx, first, last, p, true)
	if err != nil {
		log.Error("customer re-read failed", "error", err)
		return 0, err
	}
	if !found {
		log.Error("customer missing after insert")
		return 0, ErrIdentityResolution
	}
	if lostRace {
		return id, s.updateEmail(ctx, tx, id, email)
	}
	return id, nil
}

func (s *ReservationService) updateEmail(ctx context.Context, tx repository.Querier, id uint64, email string) error {
	if email == "" {
		return nil
	}
	if err := s.customers.UpdateEmailTx(ctx, tx, id, email); err != nil {
		s.log.Error("customer email update failed", "customer_id", id, "error", err)
		return err
	}
	return nil
}
