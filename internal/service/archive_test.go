package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-queue/internal/model"
	"github.com/iliyamo/ticket-queue/internal/repository"
)

// hangingLister blocks until its context ends, like a SCAN stuck on a slow
// store.
type hangingLister struct{}

func (hangingLister) Name() string { return "hanging" }

func (hangingLister) ListKeys(ctx context.Context) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestListArchivesFallsBackAfterHangingLister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	archives := repository.NewArchiveRepo(env.rdb, env.keys,
		repository.WithListers(hangingLister{}, repository.NewKeysLister(env.rdb, env.keys)),
		repository.WithListerTimeout(100*time.Millisecond))
	require.NoError(t, archives.Save(ctx, model.Archive{Date: "2026-10-17", Trigger: model.TriggerRollover,
		Summary: model.ArchiveSummary{Issued: 4}}))

	retry := NewRetrier(RetryPolicy{Attempts: 1, Timeout: 100 * time.Millisecond}, nil)
	archiver := NewArchiver(archives, nil, retry, env.clock, env.loc)

	listing, err := archiver.ListArchives(ctx)
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "2026-10-17", listing[0].Date)
	assert.Equal(t, 4, listing[0].Summary.Issued)
}

func TestOnArchivedRunsForEveryArchiveWriter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	calls := 0
	env.archiver.OnArchived(func(context.Context) error {
		calls++
		return nil
	})

	env.issue(t, "A")
	_, err := env.queue.ArchiveToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	env.issue(t, "B")
	res, err := env.queue.ManualReset(ctx)
	require.NoError(t, err)
	require.True(t, res.Archived)
	assert.Equal(t, 2, calls)

	// Nothing to archive, nothing to purge.
	_, err = env.queue.ManualReset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	env.issue(t, "C")
	env.clock.Set(time.Date(2026, 10, 19, 0, 5, 0, 0, env.loc))
	roll, err := env.rollover.PerformRolloverIfNeeded(ctx)
	require.NoError(t, err)
	require.True(t, roll.Archived)
	assert.Equal(t, 3, calls)
}
