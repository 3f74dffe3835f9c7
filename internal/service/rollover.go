package service

import (
	"context"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/iliyamo/ticket-queue/internal/clock"
	"github.com/iliyamo/ticket-queue/internal/model"
	"github.com/iliyamo/ticket-queue/internal/queue"
	"github.com/iliyamo/ticket-queue/internal/repository"
)

// rolloverLockTTL bounds how long a crashed rollover can block the next one.
const rolloverLockTTL = 30 * time.Second

// RolloverResult describes what a rollover check did.
type RolloverResult struct {
	Today       string `json:"today"`
	PreviousDay string `json:"previousDay,omitempty"`
	RolledOver  bool   `json:"rolledOver"`
	Archived    bool   `json:"archived"`
	// Skipped is set when another caller held the rollover lock.
	Skipped bool `json:"skipped"`
}

// RolloverManager moves the live state to a new business day: it archives
// the previous day when it had tickets and starts today fresh.  Every queue
// operation calls PerformRolloverIfNeeded first; the scheduler loop calls it
// too so an idle queue still rolls over at midnight.
type RolloverManager struct {
	states   *repository.StateRepo
	archiver *Archiver
	retry    *Retrier
	clock    clock.Clock
	loc      *time.Location
	events   EventPublisher
}

func NewRolloverManager(states *repository.StateRepo, archiver *Archiver, retry *Retrier, clk clock.Clock, loc *time.Location, events EventPublisher) *RolloverManager {
	if events == nil {
		events = NopPublisher{}
	}
	return &RolloverManager{states: states, archiver: archiver, retry: retry, clock: clk, loc: loc, events: events}
}

// Today returns the current business day.
func (m *RolloverManager) Today() string {
	return m.clock.Now().In(m.loc).Format(model.DateLayout)
}

// ShouldRollover reports whether st belongs to a day other than today.
func (m *RolloverManager) ShouldRollover(st model.DailyState) bool {
	return ShouldRollover(st, m.clock.Now(), m.loc)
}

// ShouldRollover reports whether st's day differs from the calendar day of
// now in loc.
func ShouldRollover(st model.DailyState, now time.Time, loc *time.Location) bool {
	return st.DayStarted != now.In(loc).Format(model.DateLayout)
}

// PerformRolloverIfNeeded rolls the live state over when the recorded live
// day is not today.  Concurrent callers race for a short lock; losers return
// at once and keep working on today's keys, which are independent of the
// previous day's.  Archive failures are logged and do not stop the reset.
func (m *RolloverManager) PerformRolloverIfNeeded(ctx context.Context) (RolloverResult, error) {
	now := m.clock.Now().In(m.loc)
	res := RolloverResult{Today: now.Format(model.DateLayout)}

	current, err := m.currentDay(ctx)
	if err != nil || current == res.Today {
		return res, err
	}

	token := uuid.NewString()
	var acquired bool
	err = m.retry.Once(ctx, "acquire rollover lock", func(ctx context.Context) error {
		var err error
		acquired, err = m.states.AcquireRolloverLock(ctx, token, rolloverLockTTL)
		return err
	})
	if err != nil {
		return res, err
	}
	if !acquired {
		res.Skipped = true
		return res, nil
	}
	defer m.releaseLock(token)

	// Another instance may have finished between the first read and the lock.
	if current, err = m.currentDay(ctx); err != nil || current == res.Today {
		return res, err
	}
	res.PreviousDay = current
	nowStr := now.Format(time.RFC3339)

	issued := 0
	if current != "" {
		issued, res.Archived = m.archivePrevious(ctx, current, now)
	}

	fresh := model.NewDailyState(res.Today, nowStr)
	err = m.retry.Do(ctx, "start new day", func(ctx context.Context) error {
		if _, err := m.states.InitState(ctx, res.Today, fresh); err != nil {
			return err
		}
		return m.states.SetCurrentDay(ctx, res.Today)
	})
	if err != nil {
		return res, err
	}
	res.RolledOver = true
	logger.Infof("rollover: %q -> %s (archived=%t, issued=%d)", current, res.Today, res.Archived, issued)

	ev := queue.RolloverEvent{PreviousDay: current, Day: res.Today, Archived: res.Archived, Issued: issued, OccurredAt: nowStr}
	publishAsync(queue.KindRollover, func(ctx context.Context) error { return m.events.RolledOver(ctx, ev) })
	return res, nil
}

// archivePrevious archives day when it still needs it and had tickets.  It
// returns the number of tickets the day had and whether an archive was
// written.
func (m *RolloverManager) archivePrevious(ctx context.Context, day string, now time.Time) (int, bool) {
	var snap repository.Snapshot
	err := m.retry.Once(ctx, "read previous day", func(ctx context.Context) error {
		var err error
		snap, err = m.states.Snapshot(ctx, day)
		return err
	})
	if err != nil {
		logger.Errorf("rollover: reading %s failed, skipping archive: %v", day, err)
		return 0, false
	}
	view := reconcile(day, now.Format(time.RFC3339), snap).view
	if !ShouldRollover(view.DailyState, now, m.loc) || view.TotalIssued == 0 {
		return view.TotalIssued, false
	}
	if _, err := m.archiver.ArchiveDay(ctx, view, model.TriggerRollover); err != nil {
		logger.Errorf("rollover: archiving %s failed: %v", day, err)
		return view.TotalIssued, false
	}
	return view.TotalIssued, true
}

func (m *RolloverManager) currentDay(ctx context.Context) (string, error) {
	var day string
	err := m.retry.Once(ctx, "read current day", func(ctx context.Context) error {
		var err error
		day, err = m.states.CurrentDay(ctx)
		return err
	})
	return day, err
}

func (m *RolloverManager) releaseLock(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.states.ReleaseRolloverLock(ctx, token); err != nil {
		logger.Warningf("rollover: releasing lock failed: %v", err)
	}
}

// Run checks for a rollover every interval until ctx is cancelled.
func (m *RolloverManager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	logger.Infof("rollover: scheduler started, checking every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := m.PerformRolloverIfNeeded(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("rollover: scheduled check failed: %v", err)
		}
		select {
		case <-ctx.Done():
			logger.Infof("rollover: scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
