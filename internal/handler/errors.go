package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dining-reservation/internal/service"
)

// errorMapping pairs a domain error with its HTTP status and public message.
type errorMapping struct {
	err     error
	status  int
	message string
}

// Storage and identity failures fall through to 500 with a generic message.
var reservationErrors = []errorMapping{
	{service.ErrInvalidParameter, http.StatusBadRequest, "invalid reservation parameters"},
	{service.ErrInvalidTableNumber, http.StatusBadRequest, "invalid table number"},
	{service.ErrReservationNotFound, http.StatusNotFound, "reservation not found"},
	{service.ErrDuplicateReservation, http.StatusConflict, "customer already has a reservation at this time"},
	{service.ErrOverlappingReservation, http.StatusConflict, "table is already booked near this time"},
}

// mapError converts err into a status code and message.  Context errors are
// checked first because the engine wraps them in persistence errors.
func mapError(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "request timeout"
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, "request cancelled"
	}
	for _, m := range reservationErrors {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeError renders err as JSON, attaching the details carried by typed
// engine errors.
func writeError(c echo.Context, err error) error {
	status, msg := mapError(err)
	body := echo.Map{"error": msg}

	var invalid *service.InvalidTableNumberError
	var overlap *service.OverlappingReservationError
	switch {
	case errors.As(err, &invalid):
		body["invalid_tables"] = invalid.Tables
	case errors.As(err, &overlap):
		body["error"] = overlap.Error()
		body["table_number"] = overlap.TableNumber
		body["reservation_datetime"] = overlap.Datetime
		body["spacing_hours"] = overlap.SpacingHours
	}
	return c.JSON(status, body)
}
