package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-queue/internal/handler"
	"github.com/iliyamo/ticket-queue/internal/middleware"
	"github.com/iliyamo/ticket-queue/internal/utils"
)

// RegisterRoutes registers the unauthenticated health endpoints.  /healthz
// is pure liveness; /v1/health exercises the store.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/health", h.Store)
}

// RegisterQueue registers the public queue endpoints used by displays and
// kiosks.  Issuance goes through the rate limiter.
func RegisterQueue(e *echo.Echo, q *handler.QueueHandler, p *handler.PrizeHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/queue", q.State)
	g.POST("/queue/tickets", q.IssueTicket, limiter)
	g.POST("/prizes/check", p.Check, limiter)
}

// RegisterAdmin registers the login endpoint and the staff endpoints behind
// JWT + ADMIN role.  Archive reads go through the response cache.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, q *handler.QueueHandler, ar *handler.ArchiveHandler,
	p *handler.PrizeHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	e.POST("/v1/admin/login", a.Login)

	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret, a.Clock.Now))
	g.Use(middleware.RequireRole(utils.RoleAdmin))

	g.POST("/actions", q.Action)
	g.POST("/call-next", q.CallNext)
	g.POST("/reset", q.Reset)

	g.GET("/archives", ar.List, cache)
	g.GET("/archives/:date", ar.Get, cache)
	g.POST("/archives", ar.ArchiveToday)

	g.GET("/prizes", p.Get)
	g.PUT("/prizes", p.Put)
	g.GET("/prizes/:date", p.Get)
	g.PUT("/prizes/:date", p.Put)
	g.GET("/prizes/:date/stats", p.Stats)
}

// RegisterCron registers the endpoints an external scheduler calls.
func RegisterCron(e *echo.Echo, c *handler.CronHandler, cronSecret string) {
	g := e.Group("/v1/cron", middleware.RequireCronSecret(cronSecret))
	g.POST("/rollover", c.Rollover)
}
