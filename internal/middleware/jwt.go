package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming
    "time"

    "github.com/google/logger"
    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/ticket-queue/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer admin token and
// injects the token's subject and role into the request context under
// "user_id" and "role".  The secret must match the one used by the login
// handler when issuing tokens, and now should be the clock it stamps them
// with (nil means the wall clock).
func JWTAuth(secret string, now func() time.Time) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims, err := utils.ParseAccessToken(secret, raw, now)
            if err != nil {
                // Expired tokens are routine; anything else may be probing.
                logger.Infof("auth: rejected token from %s: %v", c.RealIP(), err)
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            c.Set("user_id", claims.Subject)
            c.Set("role", claims.Role)
            return next(c)
        }
    }
}
