package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/logger"

	"github.com/iliyamo/ticket-queue/internal/clock"
	"github.com/iliyamo/ticket-queue/internal/model"
	"github.com/iliyamo/ticket-queue/internal/queue"
	"github.com/iliyamo/ticket-queue/internal/repository"
)

// maxNameRunes caps the customer name stored on a ticket.
const maxNameRunes = 50

// QueueService implements the queue operations on top of the state
// repository.  Ticket numbers come from the atomic counter alone; the
// metadata record is a cache reconciled on every read.
type QueueService struct {
	states   *repository.StateRepo
	rollover *RolloverManager
	archiver *Archiver
	retry    *Retrier
	clock    clock.Clock
	loc      *time.Location
	events   EventPublisher
}

func NewQueueService(states *repository.StateRepo, rollover *RolloverManager, archiver *Archiver, retry *Retrier, clk clock.Clock, loc *time.Location, events EventPublisher) *QueueService {
	if events == nil {
		events = NopPublisher{}
	}
	return &QueueService{states: states, rollover: rollover, archiver: archiver, retry: retry, clock: clk, loc: loc, events: events}
}

// CallResult is the outcome of CallNext.
type CallResult struct {
	CalledCount int           `json:"calledCount"`
	Ticket      *model.Ticket `json:"ticket,omitempty"`
}

// ResetResult is the outcome of ManualReset.
type ResetResult struct {
	State        model.DailyState `json:"state"`
	Archived     bool             `json:"archived"`
	ArchiveError string           `json:"archiveError,omitempty"`
}

// ReadState returns today's reconciled state.  Drift between metadata,
// ticket list and counter is repaired in the store as a side effect.
func (s *QueueService) ReadState(ctx context.Context) (model.StateView, error) {
	s.ensureRollover(ctx)
	return s.readDay(ctx, s.rollover.Today())
}

// IssueTicket assigns the next number to name and appends the ticket.  The
// counter increment and the append are retried separately, so a retried
// commit never consumes a second number.  An increment whose reply was lost
// after the store applied it can still leave a gap.
func (s *QueueService) IssueTicket(ctx context.Context, name string) (model.Ticket, error) {
	s.ensureRollover(ctx)
	date := s.rollover.Today()
	name = normalizeName(name)

	var number int64
	err := s.retry.Do(ctx, "increment counter", func(ctx context.Context) error {
		var err error
		number, err = s.states.IncrCounter(ctx, date)
		return err
	})
	if err != nil {
		return model.Ticket{}, err
	}

	now := s.clock.Now().In(s.loc)
	ticket := model.Ticket{
		Number:      int(number),
		Name:        name,
		IssuedAt:    now.Format("15:04:05"),
		TimestampMs: now.UnixMilli(),
	}
	nowStr := now.Format(time.RFC3339)

	err = s.retry.Do(ctx, "record ticket", func(ctx context.Context) error {
		stored, err := s.states.GetState(ctx, date)
		if err != nil {
			return err
		}
		st := model.NewDailyState(date, nowStr)
		if stored != nil {
			st = *stored
		}
		st.DayStarted = date
		st.LastNumber = ticket.Number
		st.CurrentNumber = ticket.Number + 1
		st.TotalIssued = ticket.Number
		st.LastSync = nowStr
		return s.states.CommitIssue(ctx, date, st, ticket)
	})
	if err != nil {
		logger.Errorf("queue: ticket %d of %s was numbered but not recorded: %v", ticket.Number, date, err)
		return model.Ticket{}, err
	}

	ev := queue.TicketIssuedEvent{Date: date, Number: ticket.Number, Name: ticket.Name, IssuedAt: ticket.IssuedAt, TimestampMs: ticket.TimestampMs}
	publishAsync(queue.KindTicketIssued, func(ctx context.Context) error { return s.events.TicketIssued(ctx, ev) })
	return ticket, nil
}

// CallNext advances the called counter by one.  It fails with
// ErrNothingToCall when every issued ticket was already called.
func (s *QueueService) CallNext(ctx context.Context) (CallResult, error) {
	s.ensureRollover(ctx)
	date := s.rollover.Today()
	view, err := s.readDay(ctx, date)
	if err != nil {
		return CallResult{}, err
	}
	nowStr := s.clock.Now().In(s.loc).Format(time.RFC3339)

	var st model.DailyState
	err = s.retry.Do(ctx, "call next", func(ctx context.Context) error {
		var err error
		st, err = s.states.UpdateState(ctx, date, func(st *model.DailyState) error {
			if st.TotalIssued < view.TotalIssued {
				st.TotalIssued = view.TotalIssued
				st.LastNumber = view.LastNumber
				st.CurrentNumber = view.CurrentNumber
			}
			if st.CurrentNumber == 0 {
				st.CurrentNumber = st.LastNumber + 1
			}
			if st.TotalCalled >= st.TotalIssued {
				return Permanent(ErrNothingToCall)
			}
			st.TotalCalled++
			st.LastSync = nowStr
			return nil
		})
		return err
	})
	if err != nil {
		return CallResult{}, err
	}

	res := CallResult{CalledCount: st.TotalCalled}
	if i := st.TotalCalled - 1; i >= 0 && i < len(view.Tickets) {
		t := view.Tickets[i]
		res.Ticket = &t
	}
	return res, nil
}

// ManualReset archives today's tickets (when there are any) and restarts the
// day from number 1.  An archive failure is reported in the result but does
// not block the reset; a second reset in a row finds nothing to archive.
func (s *QueueService) ManualReset(ctx context.Context) (ResetResult, error) {
	s.ensureRollover(ctx)
	date := s.rollover.Today()
	view, err := s.readDay(ctx, date)
	if err != nil {
		return ResetResult{}, err
	}

	var res ResetResult
	if view.TotalIssued > 0 {
		if _, err := s.archiver.ArchiveDay(ctx, view, model.TriggerManual); err != nil {
			logger.Errorf("queue: archiving %s before reset failed: %v", date, err)
			res.ArchiveError = err.Error()
		} else {
			res.Archived = true
		}
	}

	res.State = model.NewDailyState(date, s.clock.Now().In(s.loc).Format(time.RFC3339))
	err = s.retry.Do(ctx, "reset day", func(ctx context.Context) error {
		return s.states.ResetDay(ctx, date, res.State)
	})
	if err != nil {
		return ResetResult{}, err
	}
	logger.Infof("queue: manual reset of %s (issued=%d, archived=%t)", date, view.TotalIssued, res.Archived)
	return res, nil
}

// ArchiveToday writes an archive of today's tickets without resetting.
func (s *QueueService) ArchiveToday(ctx context.Context) (model.Archive, error) {
	s.ensureRollover(ctx)
	view, err := s.readDay(ctx, s.rollover.Today())
	if err != nil {
		return model.Archive{}, err
	}
	return s.archiver.ArchiveDay(ctx, view, model.TriggerManual)
}

func (s *QueueService) ensureRollover(ctx context.Context) {
	if _, err := s.rollover.PerformRolloverIfNeeded(ctx); err != nil {
		logger.Warningf("queue: rollover check failed, continuing on today's keys: %v", err)
	}
}

// readDay loads and reconciles date, writing repairs back best effort.
func (s *QueueService) readDay(ctx context.Context, date string) (model.StateView, error) {
	var snap repository.Snapshot
	err := s.retry.Once(ctx, "read state", func(ctx context.Context) error {
		var err error
		snap, err = s.states.Snapshot(ctx, date)
		return err
	})
	if err != nil {
		return model.StateView{}, err
	}

	nowStr := s.clock.Now().In(s.loc).Format(time.RFC3339)
	r := reconcile(date, nowStr, snap)
	if r.dirty {
		// Repair against the record as it is now so a concurrent call is
		// not overwritten with the older snapshot.
		repaired, err := s.states.UpdateState(ctx, date, func(st *model.DailyState) error {
			fresh := snap
			fresh.State = nil
			if st.CurrentNumber > 0 {
				fresh.State = st
			}
			*st = reconcile(date, nowStr, fresh).view.DailyState
			return nil
		})
		if err != nil {
			logger.Warningf("queue: persisting reconciled state of %s failed: %v", date, err)
		} else {
			r.view.DailyState = repaired
		}
	}
	if r.counterFloor > 0 {
		logger.Warningf("queue: counter of %s behind ticket %d, raising it", date, r.counterFloor)
		if _, err := s.states.RaiseCounter(ctx, date, r.counterFloor); err != nil {
			logger.Warningf("queue: raising counter of %s failed: %v", date, err)
		}
	}
	return r.view, nil
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.DefaultTicketName
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		name = string([]rune(name)[:maxNameRunes])
	}
	return name
}
