package middleware

import (
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
)

// LocalhostOnly rejects requests whose peer address is not a loopback
// address.  Forwarding headers are ignored; only the socket peer counts.
func LocalhostOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
			if err != nil {
				host = c.Request().RemoteAddr
			}
			ip := net.ParseIP(host)
			if ip == nil || !ip.IsLoopback() {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access restricted to localhost"})
			}
			return next(c)
		}
	}
}
