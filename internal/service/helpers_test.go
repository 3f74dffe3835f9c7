package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-queue/internal/clock"
	"github.com/iliyamo/ticket-queue/internal/repository"
)

type testEnv struct {
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	clock    *clock.Fake
	loc      *time.Location
	keys     repository.Keys
	states   *repository.StateRepo
	archives *repository.ArchiveRepo
	prizes   *repository.PrizeRepo
	retry    *Retrier
	archiver *Archiver
	rollover *RolloverManager
	queue    *QueueService
}

func businessLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)
	return loc
}

// newTestEnv wires the services against an in-memory store with the clock
// set to 10:00 local time on 2026-10-18.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	loc := businessLocation(t)
	clk := clock.NewFake(time.Date(2026, 10, 18, 10, 0, 0, 0, loc))
	keys := repository.NewKeys("test")
	retry := NewRetrier(RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond, Timeout: time.Second},
		func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	probe := repository.NewProbeLister(rdb, keys, 60, clk.Now)
	env := &testEnv{
		mr:       mr,
		rdb:      rdb,
		clock:    clk,
		loc:      loc,
		keys:     keys,
		states:   repository.NewStateRepo(rdb, keys),
		archives: repository.NewArchiveRepo(rdb, keys, repository.WithListers(repository.DefaultListers(rdb, keys, probe)...)),
		prizes:   repository.NewPrizeRepo(rdb, keys),
		retry:    retry,
	}
	env.archiver = NewArchiver(env.archives, nil, retry, clk, loc)
	env.rollover = NewRolloverManager(env.states, env.archiver, retry, clk, loc, NopPublisher{})
	env.queue = NewQueueService(env.states, env.rollover, env.archiver, retry, clk, loc, NopPublisher{})
	return env
}

func (e *testEnv) issue(t *testing.T, names ...string) {
	t.Helper()
	for _, n := range names {
		_, err := e.queue.IssueTicket(context.Background(), n)
		require.NoError(t, err)
	}
}
