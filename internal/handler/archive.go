package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-queue/internal/service"
)

// ArchiveHandler serves the day archives to admins.
type ArchiveHandler struct {
	Archiver *service.Archiver
	Queue    *service.QueueService
}

func NewArchiveHandler(a *service.Archiver, q *service.QueueService) *ArchiveHandler {
	return &ArchiveHandler{Archiver: a, Queue: q}
}

// List handles GET /v1/admin/archives.
func (h *ArchiveHandler) List(c echo.Context) error {
	list, err := h.Archiver.ListArchives(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"archives": list, "count": len(list)})
}

// Get handles GET /v1/admin/archives/:date.
func (h *ArchiveHandler) Get(c echo.Context) error {
	a, err := h.Archiver.GetArchive(c.Request().Context(), c.Param("date"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// ArchiveToday handles POST /v1/admin/archives: archive today's tickets
// without resetting the queue.
func (h *ArchiveHandler) ArchiveToday(c echo.Context) error {
	a, err := h.Queue.ArchiveToday(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}
