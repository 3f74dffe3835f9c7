package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-queue/internal/service"
)

// QueueHandler exposes the live queue: state reads for displays, ticket
// issuance for kiosks and the staff actions.
type QueueHandler struct {
	Queue *service.QueueService
}

func NewQueueHandler(q *service.QueueService) *QueueHandler {
	return &QueueHandler{Queue: q}
}

type issueReq struct {
	Name string `json:"name"`
}

type actionReq struct {
	Action string `json:"action"`
	Name   string `json:"name"`
}

// State handles GET /v1/queue.
func (h *QueueHandler) State(c echo.Context) error {
	view, err := h.Queue.ReadState(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// IssueTicket handles POST /v1/queue/tickets.  An empty or missing body
// issues a ticket under the default name.
func (h *QueueHandler) IssueTicket(c echo.Context) error {
	var req issueReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
	}
	t, err := h.Queue.IssueTicket(c.Request().Context(), req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Action handles POST /v1/admin/actions: {"action": "call_next"} and friends.
func (h *QueueHandler) Action(c echo.Context) error {
	var req actionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	kind, err := service.ParseOpKind(req.Action)
	if err != nil {
		return writeError(c, err)
	}
	return h.dispatch(c, service.Operation{Kind: kind, Name: req.Name})
}

// CallNext handles POST /v1/admin/call-next.
func (h *QueueHandler) CallNext(c echo.Context) error {
	return h.dispatch(c, service.Operation{Kind: service.OpCallNext})
}

// Reset handles POST /v1/admin/reset.
func (h *QueueHandler) Reset(c echo.Context) error {
	return h.dispatch(c, service.Operation{Kind: service.OpReset})
}

func (h *QueueHandler) dispatch(c echo.Context, op service.Operation) error {
	res, err := h.Queue.Dispatch(c.Request().Context(), op)
	if err != nil {
		return writeError(c, err)
	}
	status := http.StatusOK
	if op.Kind == service.OpIssueTicket {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}
