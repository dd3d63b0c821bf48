package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/dining-reservation/internal/handler"
)

// RegisterRoutes registers the operational endpoints: the health check used
// by load balancers and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterReservations registers the booking API under /v1.  The inventory
// listing is served through cache, which may be a pass-through.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, cache echo.MiddlewareFunc, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)

	g.POST("/reservations", h.Create)
	g.GET("/reservations", h.List)
	g.GET("/reservations/:id", h.Get)
	g.POST("/reservations/:id/tables", h.AssignTables)

	g.GET("/tables", h.ListTables, cache)
	g.GET("/tables/:number/availability", h.TableAvailability)
}
