package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/ticket-queue/internal/model"
)

// OpKind names a queue mutation.
type OpKind int

const (
	OpUnknown OpKind = iota
	OpIssueTicket
	OpCallNext
	OpReset
)

func (k OpKind) String() string {
	switch k {
	case OpIssueTicket:
		return "issue_ticket"
	case OpCallNext:
		return "call_next"
	case OpReset:
		return "reset"
	default:
		return "unknown"
	}
}

// ParseOpKind maps an action name to its kind.  Short aliases are accepted
// for the staff console.
func ParseOpKind(s string) (OpKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "issue_ticket", "issue", "ticket":
		return OpIssueTicket, nil
	case "call_next", "next", "call":
		return OpCallNext, nil
	case "reset":
		return OpReset, nil
	}
	return OpUnknown, fmt.Errorf("%w: %q", ErrInvalidOperation, s)
}

// Operation is one queue mutation request.  Name is only used by
// OpIssueTicket.
type Operation struct {
	Kind OpKind
	Name string
}

// OperationResult carries the outcome of whichever operation ran.
type OperationResult struct {
	Action string        `json:"action"`
	Ticket *model.Ticket `json:"ticket,omitempty"`
	Call   *CallResult   `json:"call,omitempty"`
	Reset  *ResetResult  `json:"reset,omitempty"`
}

// Dispatch runs op.
func (s *QueueService) Dispatch(ctx context.Context, op Operation) (OperationResult, error) {
	res := OperationResult{Action: op.Kind.String()}
	switch op.Kind {
	case OpIssueTicket:
		t, err := s.IssueTicket(ctx, op.Name)
		if err != nil {
			return OperationResult{}, err
		}
		res.Ticket = &t
	case OpCallNext:
		c, err := s.CallNext(ctx)
		if err != nil {
			return OperationResult{}, err
		}
		res.Call = &c
	case OpReset:
		r, err := s.ManualReset(ctx)
		if err != nil {
			return OperationResult{}, err
		}
		res.Reset = &r
	default:
		return OperationResult{}, fmt.Errorf("%w: %s", ErrInvalidOperation, op.Kind)
	}
	return res, nil
}
