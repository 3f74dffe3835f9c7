package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/logger"

	"github.com/iliyamo/ticket-queue/internal/clock"
	"github.com/iliyamo/ticket-queue/internal/model"
	"github.com/iliyamo/ticket-queue/internal/repository"
)

// listTimeouts bounds a listing: one attempt timeout per ladder strategy
// plus one for fetching.
const listTimeouts = 4

// ArchiveMirror is the optional long-term copy of archives.
type ArchiveMirror interface {
	Upsert(ctx context.Context, a model.Archive) error
	Get(ctx context.Context, date string) (model.Archive, error)
}

// Archiver writes and reads day archives.
type Archiver struct {
	archives *repository.ArchiveRepo
	mirror   ArchiveMirror
	retry    *Retrier
	clock    clock.Clock
	loc      *time.Location
	// onArchived runs after every stored archive; nil means nothing to do.
	onArchived func(ctx context.Context) error
}

// NewArchiver returns an Archiver.  mirror may be nil.
func NewArchiver(archives *repository.ArchiveRepo, mirror ArchiveMirror, retry *Retrier, clk clock.Clock, loc *time.Location) *Archiver {
	return &Archiver{archives: archives, mirror: mirror, retry: retry, clock: clk, loc: loc}
}

// OnArchived registers fn to run after each archive is stored, whatever
// wrote it (manual archive, reset or rollover).  Its error is only logged.
func (a *Archiver) OnArchived(fn func(ctx context.Context) error) {
	a.onArchived = fn
}

// ArchiveDay builds the archive of view and stores it, replacing an earlier
// archive of the same day.  The mirror write is best effort.
func (a *Archiver) ArchiveDay(ctx context.Context, view model.StateView, trigger string) (model.Archive, error) {
	archive := BuildArchive(view, a.loc, a.clock.Now(), trigger)
	err := a.retry.Do(ctx, "save archive", func(ctx context.Context) error {
		return a.archives.Save(ctx, archive)
	})
	if a.mirror != nil {
		if merr := a.mirror.Upsert(ctx, archive); merr != nil {
			logger.Warningf("archiver: mirror write for %s failed: %v", archive.Date, merr)
		}
	}
	if err != nil {
		return model.Archive{}, err
	}
	logger.Infof("archiver: archived %s (%s): issued=%d called=%d",
		archive.Date, trigger, archive.Summary.Issued, archive.Summary.Called)
	if a.onArchived != nil {
		if herr := a.onArchived(ctx); herr != nil {
			logger.Warningf("archiver: post-archive hook for %s failed: %v", archive.Date, herr)
		}
	}
	return archive, nil
}

// ListArchives returns archive listings newest first.  The listing may try
// every strategy of the ladder and then fetch in batches, so it runs within
// listTimeouts attempt timeouts rather than one.
func (a *Archiver) ListArchives(ctx context.Context) ([]model.ArchiveListing, error) {
	var out []model.ArchiveListing
	err := a.retry.OnceWithin(ctx, "list archives", listTimeouts, func(ctx context.Context) error {
		var err error
		out, err = a.archives.List(ctx)
		return err
	})
	return out, err
}

// GetArchive returns the archive of date, falling back to the mirror when
// the store no longer has it.
func (a *Archiver) GetArchive(ctx context.Context, date string) (model.Archive, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return model.Archive{}, ErrInvalidDate
	}
	var out model.Archive
	err := a.retry.Once(ctx, "get archive", func(ctx context.Context) error {
		var err error
		out, err = a.archives.Get(ctx, date)
		if errors.Is(err, repository.ErrArchiveNotFound) {
			return Permanent(err)
		}
		return err
	})
	if errors.Is(err, repository.ErrArchiveNotFound) && a.mirror != nil {
		return a.mirror.Get(ctx, date)
	}
	return out, err
}
