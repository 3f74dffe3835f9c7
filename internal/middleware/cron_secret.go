package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/logger"
	"github.com/labstack/echo/v4"
)

// CronSecretHeader carries the shared secret of the external scheduler.
const CronSecretHeader = "X-Cron-Secret"

// RequireCronSecret guards the scheduler endpoints.  An empty secret
// disables the endpoints entirely rather than leaving them open.
func RequireCronSecret(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
			}
			got := c.Request().Header.Get(CronSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				logger.Warningf("cron: bad secret from %s", c.RealIP())
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}
