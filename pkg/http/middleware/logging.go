package middleware

import (
	"time"

	applogger "ShrimpCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs every request at debug, 5xx at error and requests
// slower than slowThreshold at warn.
func RequestLogging(l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			latency := time.Since(start)
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", routeLabel(c)),
				applogger.Int("status", status),
				applogger.Duration("duration_ms", latency),
				applogger.Int64("bytes", c.Response().Size),
				applogger.String("remote", c.RealIP()),
			}

			switch {
			case status >= 500:
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && latency >= slowThreshold:
				l.Warn("http request slow", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
