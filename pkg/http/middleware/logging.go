package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"FinSight/pkg/logger"
)

// RequestLogging logs every request; 5xx at error and slow requests at warn.
func RequestLogging(l *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			dur := time.Since(start)
			fields := []logger.Field{
				logger.String("method", c.Request().Method),
				logger.String("route", c.Path()),
				logger.String("uri", c.Request().RequestURI),
				logger.Int("status", c.Response().Status),
				logger.Duration("duration_ms", dur),
				logger.Int64("bytes", c.Response().Size),
			}
			switch {
			case c.Response().Status >= 500:
				l.Error("http request failed", append(fields, logger.Error(err))...)
			case slow > 0 && dur >= slow:
				l.Warn("http request slow", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
