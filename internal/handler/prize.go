package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-queue/internal/model"
	"github.com/iliyamo/ticket-queue/internal/service"
)

// PrizeHandler manages prize configuration and answers prize checks.
type PrizeHandler struct {
	Prizes *service.PrizeService
}

func NewPrizeHandler(p *service.PrizeService) *PrizeHandler {
	return &PrizeHandler{Prizes: p}
}

type checkReq struct {
	Number int    `json:"number"`
	Date   string `json:"date"`
}

// Get handles GET /v1/admin/prizes and /v1/admin/prizes/:date.
func (h *PrizeHandler) Get(c echo.Context) error {
	cfg, err := h.Prizes.GetPrizeConfig(c.Request().Context(), c.Param("date"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// Put handles PUT /v1/admin/prizes and /v1/admin/prizes/:date.  The date in
// the path wins over the one in the body.
func (h *PrizeHandler) Put(c echo.Context) error {
	var cfg model.PrizeConfig
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if d := c.Param("date"); d != "" {
		cfg.Date = d
	}
	saved, err := h.Prizes.SavePrizeConfig(c.Request().Context(), cfg)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

// Stats handles GET /v1/admin/prizes/:date/stats.
func (h *PrizeHandler) Stats(c echo.Context) error {
	st, err := h.Prizes.GetPrizeStats(c.Request().Context(), c.Param("date"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Check handles POST /v1/prizes/check.
func (h *PrizeHandler) Check(c echo.Context) error {
	var req checkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := h.Prizes.CheckPrize(c.Request().Context(), req.Number, req.Date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
