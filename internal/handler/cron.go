package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-queue/internal/service"
)

// CronHandler lets an external scheduler trigger the day rollover, for
// deployments where the in-process scheduler does not run.
type CronHandler struct {
	Manager *service.RolloverManager
}

func NewCronHandler(r *service.RolloverManager) *CronHandler {
	return &CronHandler{Manager: r}
}

// Rollover handles POST /v1/cron/rollover.
func (h *CronHandler) Rollover(c echo.Context) error {
	res, err := h.Manager.PerformRolloverIfNeeded(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
