package middleware

// identity.go holds the helper shared by the rate limiter, the role check
// and the request logger to name the caller of a request.

import "github.com/labstack/echo/v4"

// currentUserID returns the subject JWTAuth stored for the request, or
// "anon" for unauthenticated requests such as kiosk ticket issuance.
func currentUserID(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s
    }
    return "anon"
}
