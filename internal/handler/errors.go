package handler

import (
	"errors"
	"net/http"

	"github.com/google/logger"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-queue/internal/repository"
	"github.com/iliyamo/ticket-queue/internal/service"
)

// statusFor maps service and repository errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNothingToCall), errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidOperation),
		errors.Is(err, service.ErrInvalidPrizeConfig),
		errors.Is(err, service.ErrInvalidTicketNumber),
		errors.Is(err, service.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrArchiveNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with {"error": ...}.  Internal failures are logged and
// answered with a generic message; 503 asks the client to retry.
func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Errorf("handler: %s %s failed: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, echo.Map{"error": "internal error"})
	case http.StatusServiceUnavailable:
		logger.Warningf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
		c.Response().Header().Set("Retry-After", "5")
		return c.JSON(status, echo.Map{"error": "store unavailable, retry shortly"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
