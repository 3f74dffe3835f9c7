package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-queue/internal/model"
)

func newStore(t *testing.T) (*miniredis.Miniredis, *redis.Client, Keys) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb, NewKeys("test")
}

func TestKeysBackupDate(t *testing.T) {
	k := NewKeys("app:")

	date, ok := k.BackupDate(k.Backup("2026-10-18"))
	assert.True(t, ok)
	assert.Equal(t, "2026-10-18", date)

	_, ok = k.BackupDate("app:backup:yesterday")
	assert.False(t, ok)
	_, ok = k.BackupDate("other:backup:2026-10-18")
	assert.False(t, ok)
}

func TestStateRepoRaiseCounterNeverLowers(t *testing.T) {
	_, rdb, keys := newStore(t)
	repo := NewStateRepo(rdb, keys)
	ctx := context.Background()

	got, err := repo.RaiseCounter(ctx, "2026-10-18", 5)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got)

	got, err = repo.RaiseCounter(ctx, "2026-10-18", 3)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got)

	n, err := repo.IncrCounter(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
}

func TestStateRepoInitStateKeepsExisting(t *testing.T) {
	_, rdb, keys := newStore(t)
	repo := NewStateRepo(rdb, keys)
	ctx := context.Background()

	existing := model.DailyState{CurrentNumber: 3, LastNumber: 2, TotalIssued: 2, DayStarted: "2026-10-18"}
	wrote, err := repo.InitState(ctx, "2026-10-18", existing)
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = repo.InitState(ctx, "2026-10-18", model.NewDailyState("2026-10-18", "now"))
	require.NoError(t, err)
	assert.False(t, wrote)

	st, err := repo.GetState(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, existing, *st)
}

func TestStateRepoSnapshotSkipsBadTickets(t *testing.T) {
	mr, rdb, keys := newStore(t)
	repo := NewStateRepo(rdb, keys)
	ctx := context.Background()

	require.NoError(t, repo.CommitIssue(ctx, "2026-10-18",
		model.DailyState{CurrentNumber: 2, LastNumber: 1, TotalIssued: 1, DayStarted: "2026-10-18"},
		model.Ticket{Number: 1, Name: "A"}))
	_, err := mr.Push(keys.Tickets("2026-10-18"), "garbage")
	require.NoError(t, err)
	require.NoError(t, mr.Set(keys.Counter("2026-10-18"), "1"))

	snap, err := repo.Snapshot(ctx, "2026-10-18")
	require.NoError(t, err)
	require.NotNil(t, snap.State)
	require.NotNil(t, snap.Shadow)
	assert.Len(t, snap.Tickets, 1)
	assert.EqualValues(t, 1, snap.Counter)

	empty, err := repo.Snapshot(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Nil(t, empty.State)
	assert.Empty(t, empty.Tickets)
	assert.Zero(t, empty.Counter)
}

func TestStateRepoUpdateStateAbortsOnError(t *testing.T) {
	_, rdb, keys := newStore(t)
	repo := NewStateRepo(rdb, keys)
	ctx := context.Background()
	stop := errors.New("stop")

	_, err := repo.UpdateState(ctx, "2026-10-18", func(*model.DailyState) error { return stop })
	assert.ErrorIs(t, err, stop)

	st, err := repo.GetState(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.Nil(t, st)

	out, err := repo.UpdateState(ctx, "2026-10-18", func(st *model.DailyState) error {
		st.TotalCalled = 1
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", out.DayStarted)
	assert.Equal(t, 1, out.TotalCalled)
}

func TestStateRepoRolloverLock(t *testing.T) {
	mr, rdb, keys := newStore(t)
	repo := NewStateRepo(rdb, keys)
	ctx := context.Background()

	ok, err := repo.AcquireRolloverLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AcquireRolloverLock(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.ReleaseRolloverLock(ctx, "b"))
	assert.True(t, mr.Exists(keys.RolloverLock()))

	require.NoError(t, repo.ReleaseRolloverLock(ctx, "a"))
	assert.False(t, mr.Exists(keys.RolloverLock()))
}

type failingLister struct{ name string }

func (f failingLister) Name() string { return f.name }
func (f failingLister) ListKeys(context.Context) ([]string, error) {
	return nil, errors.New(f.name + " not permitted")
}

func saveArchives(t *testing.T, repo *ArchiveRepo, dates ...string) {
	t.Helper()
	for _, d := range dates {
		require.NoError(t, repo.Save(context.Background(), model.Archive{
			Date:    d,
			Summary: model.ArchiveSummary{Issued: 3, Called: 2, HourlyDistribution: map[int]int{9: 3}},
			Trigger: model.TriggerRollover,
		}))
	}
}

func TestArchiveListFallbackLadderReturnsSameSet(t *testing.T) {
	_, rdb, keys := newStore(t)
	today := func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	probe := NewProbeLister(rdb, keys, 60, today)
	dates := []string{"2026-10-15", "2026-10-17", "2026-10-16"}
	saveArchives(t, NewArchiveRepo(rdb, keys), dates...)

	ladders := map[string][]KeyLister{
		"scan":  DefaultListers(rdb, keys, probe),
		"keys":  {failingLister{"scan"}, NewKeysLister(rdb, keys), probe},
		"probe": {failingLister{"scan"}, failingLister{"keys"}, probe},
	}
	for name, ladder := range ladders {
		t.Run(name, func(t *testing.T) {
			got, err := NewArchiveRepo(rdb, keys, WithListers(ladder...)).List(context.Background())
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "2026-10-17", got[0].Date)
			assert.Equal(t, "2026-10-16", got[1].Date)
			assert.Equal(t, "2026-10-15", got[2].Date)
			assert.Equal(t, 3, got[0].Summary.Issued)
		})
	}

	_, err := NewArchiveRepo(rdb, keys, WithListers(failingLister{"scan"}, failingLister{"keys"})).List(context.Background())
	assert.Error(t, err)
}

func TestArchiveListLimitAndUnreadableEntries(t *testing.T) {
	mr, rdb, keys := newStore(t)
	repo := NewArchiveRepo(rdb, keys, WithListers(NewScanLister(rdb, keys)), WithLimit(2))
	saveArchives(t, repo, "2026-10-10", "2026-10-11")
	require.NoError(t, mr.Set(keys.Backup("2026-10-12"), "{broken"))
	require.NoError(t, mr.Set(keys.Backup("not-a-date"), "{}"))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-10-12", got[0].Date)
	assert.Zero(t, got[0].Summary.Issued)
	assert.NotNil(t, got[0].Summary.HourlyDistribution)
	assert.Equal(t, "2026-10-11", got[1].Date)
}

// mgetRefusal fails every MGET, as some proxies do for multi-key commands,
// and counts the single-key GETs that follow.
type mgetRefusal struct{ gets int }

func (h *mgetRefusal) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *mgetRefusal) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		switch cmd.Name() {
		case "mget":
			err := errors.New("CROSSSLOT keys in request don't hash to the same slot")
			cmd.SetErr(err)
			return err
		case "get":
			h.gets++
		}
		return next(ctx, cmd)
	}
}

func (h *mgetRefusal) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestArchiveListFallsBackToPerKeyGets(t *testing.T) {
	_, rdb, keys := newStore(t)
	repo := NewArchiveRepo(rdb, keys, WithListers(NewScanLister(rdb, keys)))
	var dates []string
	for day := 1; day <= 12; day++ {
		dates = append(dates, fmt.Sprintf("2026-10-%02d", day))
	}
	saveArchives(t, repo, dates...)

	hook := &mgetRefusal{}
	rdb.AddHook(hook)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 12)
	assert.Equal(t, 12, hook.gets)
	assert.Equal(t, "2026-10-12", got[0].Date)
	assert.Equal(t, "2026-10-01", got[11].Date)
	for _, l := range got {
		assert.Equal(t, 3, l.Summary.Issued, l.Date)
		assert.Equal(t, model.TriggerRollover, l.Trigger, l.Date)
	}
}

// stallingLister waits for its context to end.
type stallingLister struct{}

func (stallingLister) Name() string { return "stalling" }
func (stallingLister) ListKeys(ctx context.Context) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestArchiveListerTimeoutIsPerStrategy(t *testing.T) {
	_, rdb, keys := newStore(t)
	repo := NewArchiveRepo(rdb, keys,
		WithListers(stallingLister{}, stallingLister{}, NewKeysLister(rdb, keys)),
		WithListerTimeout(50*time.Millisecond))
	saveArchives(t, repo, "2026-10-17")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-10-17", got[0].Date)
}

func TestArchiveGet(t *testing.T) {
	_, rdb, keys := newStore(t)
	repo := NewArchiveRepo(rdb, keys)
	saveArchives(t, repo, "2026-10-18")

	a, err := repo.Get(context.Background(), "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, model.TriggerRollover, a.Trigger)

	_, err = repo.Get(context.Background(), "2026-10-01")
	assert.ErrorIs(t, err, ErrArchiveNotFound)
}

func TestPrizeRepoUpdateWritesOnlyOnChange(t *testing.T) {
	mr, rdb, keys := newStore(t)
	repo := NewPrizeRepo(rdb, keys)
	ctx := context.Background()

	cfg, err := repo.Get(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", cfg.Date)
	assert.Empty(t, cfg.Prizes)

	_, changed, err := repo.Update(ctx, "2026-10-18", func(*model.PrizeConfig) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, mr.Exists(keys.Prizes("2026-10-18")))

	out, changed, err := repo.Update(ctx, "2026-10-18", func(c *model.PrizeConfig) (bool, error) {
		c.WinningNumbers = append(c.WinningNumbers, 9)
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []int{9}, out.WinningNumbers)
	assert.True(t, mr.Exists(keys.Prizes("2026-10-18")))
}
