package middleware // middleware provides shared request processing for handlers

import (
    "net/http"
    "strings"

    "github.com/google/logger"
    "github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that lets the request through only when
// the role stored by JWTAuth is one of roles.  Roles compare
// case-insensitively; anything else is answered with 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]struct{}, len(roles))
    for _, r := range roles {
        allowed[strings.ToUpper(r)] = struct{}{}
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, _ := c.Get("role").(string)
            if _, ok := allowed[strings.ToUpper(role)]; !ok {
                logger.Warningf("auth: %s with role %q denied %s %s", currentUserID(c), role, c.Request().Method, c.Path())
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
