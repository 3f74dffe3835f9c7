package handler // declare the package name; contains HTTP handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-queue/internal/service"
)

// Health is the liveness endpoint used by load balancers.  It does not touch
// the store, so a store outage does not get the process restarted.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// HealthHandler reports the health of the key-value store.
type HealthHandler struct {
    Checker *service.HealthChecker
}

func NewHealthHandler(h *service.HealthChecker) *HealthHandler {
    return &HealthHandler{Checker: h}
}

// Store handles GET /v1/health.  It answers 503 when any probe step failed.
func (h *HealthHandler) Store(c echo.Context) error {
    rep := h.Checker.Check(c.Request().Context())
    status := http.StatusOK
    if !rep.Connected {
        status = http.StatusServiceUnavailable
    }
    return c.JSON(status, rep)
}
