package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// RequestRecorder receives one observation per served request.
type RequestRecorder interface {
	RecordHTTP(method, route string, status int, seconds float64)
}

// Metrics labels requests by route template to keep cardinality low.
func Metrics(r RequestRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			r.RecordHTTP(c.Request().Method, route, c.Response().Status, time.Since(start).Seconds())
			return nil
		}
	}
}
