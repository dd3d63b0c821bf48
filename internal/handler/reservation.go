package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dining-reservation/internal/logger"
	"github.com/iliyamo/dining-reservation/internal/model"
	"github.com/iliyamo/dining-reservation/internal/service"
)

// ReservationEngine is the part of service.ReservationService the HTTP layer
// depends on.
type ReservationEngine interface {
	BookReservation(ctx context.Context, req service.BookingRequest) (uint64, error)
	AssignTables(ctx context.Context, reservationID uint64, tables []int, spacingHours float64) error
	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	ListReservationsForDate(ctx context.Context, date string) ([]model.Reservation, error)
	ListTables(ctx context.Context) ([]int, error)
	TableAvailability(ctx context.Context, table int, at string, spacingHours float64) (bool, error)
}

// ReservationHandler exposes booking, assignment and lookups under /v1.
// Every engine call runs under a per-request timeout.
type ReservationHandler struct {
	engine         ReservationEngine
	defaultSpacing float64
	timeout        time.Duration
	log            logger.Logger
}

// NewReservationHandler constructs a ReservationHandler.  defaultSpacing is
// applied when an assignment request omits spacing_hours.
func NewReservationHandler(engine ReservationEngine, defaultSpacing float64, timeout time.Duration, log logger.Logger) *ReservationHandler {
	if engine == nil {
		panic("nil engine passed to NewReservationHandler")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ReservationHandler{
		engine:         engine,
		defaultSpacing: defaultSpacing,
		timeout:        timeout,
		log:            log.With("component", "http"),
	}
}

func (h *ReservationHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.timeout)
}

type createReservationRequest struct {
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	PhoneNumber         string `json:"phone_number"`
	NumPeople           int    `json:"num_people"`
	ReservationDatetime string `json:"reservation_datetime"`
	Email               string `json:"email"`
	DateCreated         string `json:"date_created"`
	NumHighchairs       int    `json:"num_highchairs"`
	Notes               string `json:"notes"`
}

// Create handles POST /v1/reservations.  It books a reservation without
// tables and returns 201 with the new reservation_id.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body createReservationRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := h.engine.BookReservation(ctx, service.BookingRequest{
		FirstName:           body.FirstName,
		LastName:            body.LastName,
		Phone:               body.PhoneNumber,
		NumPeople:           body.NumPeople,
		ReservationDatetime: body.ReservationDatetime,
		Email:               body.Email,
		DateCreated:         body.DateCreated,
		NumHighchairs:       body.NumHighchairs,
		Notes:               body.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservation_id": id})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.engine.GetReservation(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// List handles GET /v1/reservations?date=YYYY-MM-DD and returns every
// reservation on that day.
func (h *ReservationHandler) List(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	list, err := h.engine.ListReservationsForDate(ctx, date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

type assignTablesRequest struct {
	TableNumbers []int    `json:"table_numbers"`
	SpacingHours *float64 `json:"spacing_hours"`
}

// AssignTables handles POST /v1/reservations/:id/tables.  All tables are
// attached or none are; it returns 204 on success.
func (h *ReservationHandler) AssignTables(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body assignTablesRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.TableNumbers) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_numbers is required"})
	}
	spacing := h.defaultSpacing
	if body.SpacingHours != nil {
		spacing = *body.SpacingHours
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.engine.AssignTables(ctx, id, body.TableNumbers, spacing); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTables handles GET /v1/tables.
func (h *ReservationHandler) ListTables(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	tables, err := h.engine.ListTables(ctx)
	if err != nil {
		h.log.Error("list tables failed", "error", err)
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tables})
}

// TableAvailability handles
// GET /v1/tables/:number/availability?datetime=...&spacing_hours=...
func (h *ReservationHandler) TableAvailability(c echo.Context) error {
	table, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table number"})
	}
	at := c.QueryParam("datetime")
	if at == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "datetime is required"})
	}
	spacing := h.defaultSpacing
	if s := c.QueryParam("spacing_hours"); s != "" {
		if spacing, err = strconv.ParseFloat(s, 64); err != nil || math.IsNaN(spacing) || math.IsInf(spacing, 0) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spacing_hours"})
		}
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	free, err := h.engine.TableAvailability(ctx, table, at, spacing)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"table_number":  table,
		"datetime":      at,
		"spacing_hours": spacing,
		"available":     free,
	})
}
