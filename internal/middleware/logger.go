package middleware

import (
	"time"

	"github.com/google/logger"
	"github.com/labstack/echo/v4"
)

// RequestLogger writes one line per request through the application logger
// so access lines and service logs end up in the same place.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			line := "http: %s %s %d %s ip=%s user=%s"
			args := []any{req.Method, req.URL.Path, res.Status, time.Since(start).Round(time.Microsecond), c.RealIP(), currentUserID(c)}
			if res.Status >= 500 {
				logger.Errorf(line, args...)
			} else {
				logger.Infof(line, args...)
			}
			return nil
		}
	}
}
