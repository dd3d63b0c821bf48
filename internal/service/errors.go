package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by ReservationService.  Callers match them with
// errors.Is; the HTTP layer maps each to a status code.
var (
	// ErrInvalidParameter covers every input validation failure of a
	// booking.  The specific cause is logged, not returned.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrCustomerResolution means the customer could not be found or created.
	ErrCustomerResolution = errors.New("customer could not be resolved")
	// ErrIdentityResolution means a customer insert succeeded or collided but
	// the row could not be read back.
	ErrIdentityResolution = errors.New("customer identity could not be resolved")
	// ErrDuplicateReservation means the customer already holds a
	// reservation at that datetime.
	ErrDuplicateReservation = errors.New("customer already has a reservation at this time")
	// ErrReservationPersistence means the reservation row could not be
	// written or read back.
	ErrReservationPersistence = errors.New("reservation could not be saved")
	ErrReservationNotFound    = errors.New("reservation not found")
	ErrInvalidTableNumber     = errors.New("invalid table number")
	ErrOverlappingReservation = errors.New("overlapping reservation")
	// ErrAssignmentPersistence means the table links could not be written.
	// Nothing was assigned; the whole call can be retried.
	ErrAssignmentPersistence = errors.New("table assignment could not be saved")
)

// InvalidTableNumberError lists the requested tables when at least one of
// them is not part of the inventory.
type InvalidTableNumberError struct {
	Tables []int
}

func (e *InvalidTableNumberError) Error() string {
	return fmt.Sprintf("invalid table number in %v", e.Tables)
}

func (e *InvalidTableNumberError) Is(target error) bool { return target == ErrInvalidTableNumber }

// OverlappingReservationError reports the first table that already has a
// reservation within the spacing window.
type OverlappingReservationError struct {
	Datetime     string
	TableNumber  int
	SpacingHours float64
}

func (e *OverlappingReservationError) Error() string {
	return fmt.Sprintf("there is already a reservation at table %d within %g hours of %s",
		e.TableNumber, e.SpacingHours, e.Datetime)
}

func (e *OverlappingReservationError) Is(target error) bool {
	return target == ErrOverlappingReservation
}
