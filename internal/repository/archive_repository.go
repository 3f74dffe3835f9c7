package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/logger"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticket-queue/internal/model"
)

const (
	// DefaultArchiveLimit caps the number of archives a listing returns.
	DefaultArchiveLimit = 60
	fetchBatchSize      = 10
)

// ArchiveRepo stores one archive per business day and enumerates them
// through a ladder of KeyListers.
type ArchiveRepo struct {
	rdb           redis.UniversalClient
	keys          Keys
	listers       []KeyLister
	listerTimeout time.Duration
	limit         int
}

// ArchiveOption customises an ArchiveRepo.
type ArchiveOption func(*ArchiveRepo)

// WithListers replaces the enumeration ladder.
func WithListers(listers ...KeyLister) ArchiveOption {
	return func(r *ArchiveRepo) { r.listers = listers }
}

// WithListerTimeout gives every lister its own deadline, so a strategy that
// hangs leaves the rest of the ladder time to run.
func WithListerTimeout(d time.Duration) ArchiveOption {
	return func(r *ArchiveRepo) { r.listerTimeout = d }
}

// WithLimit changes how many archives a listing returns at most.
func WithLimit(n int) ArchiveOption {
	return func(r *ArchiveRepo) {
		if n > 0 {
			r.limit = n
		}
	}
}

// NewArchiveRepo returns an ArchiveRepo.  Without WithListers it uses no
// listers at all, so callers normally pass the scan/keys/probe ladder built
// by DefaultListers.
func NewArchiveRepo(rdb redis.UniversalClient, keys Keys, opts ...ArchiveOption) *ArchiveRepo {
	r := &ArchiveRepo{rdb: rdb, keys: keys, limit: DefaultArchiveLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultListers is the standard ladder: SCAN, then KEYS, then date probing.
func DefaultListers(rdb redis.UniversalClient, keys Keys, probe *ProbeLister) []KeyLister {
	return []KeyLister{NewScanLister(rdb, keys), NewKeysLister(rdb, keys), probe}
}

// Save writes the archive for its date, replacing any earlier one.
func (r *ArchiveRepo) Save(ctx context.Context, a model.Archive) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.keys.Backup(a.Date), data, ArchiveTTL).Err()
}

// Get loads the archive of date.
func (r *ArchiveRepo) Get(ctx context.Context, date string) (model.Archive, error) {
	raw, err := r.rdb.Get(ctx, r.keys.Backup(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Archive{}, ErrArchiveNotFound
	}
	if err != nil {
		return model.Archive{}, err
	}
	var a model.Archive
	if err := json.Unmarshal(raw, &a); err != nil {
		return model.Archive{}, fmt.Errorf("decode archive %s: %w", date, err)
	}
	if a.Summary.HourlyDistribution == nil {
		a.Summary.HourlyDistribution = map[int]int{}
	}
	return a, nil
}

// List returns archive listings newest first, capped at the configured
// limit.  It fails only when every lister failed; individual unreadable
// entries come back with zeroed summaries.
func (r *ArchiveRepo) List(ctx context.Context) ([]model.ArchiveListing, error) {
	keys, err := r.listKeys(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(keys))
	dated := make([]string, 0, len(keys))
	for _, key := range keys {
		date, ok := r.keys.BackupDate(key)
		if !ok {
			continue
		}
		if _, dup := seen[date]; dup {
			continue
		}
		seen[date] = struct{}{}
		dated = append(dated, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dated)))
	if len(dated) > r.limit {
		dated = dated[:r.limit]
	}

	out := make([]model.ArchiveListing, 0, len(dated))
	for start := 0; start < len(dated); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(dated) {
			end = len(dated)
		}
		out = append(out, r.fetchBatch(ctx, dated[start:end])...)
	}
	return out, nil
}

func (r *ArchiveRepo) listKeys(ctx context.Context) ([]string, error) {
	var errs []error
	for _, l := range r.listers {
		keys, err := r.runLister(ctx, l)
		if err == nil {
			return keys, nil
		}
		logger.Warningf("archive-repo: %s listing failed, falling back: %v", l.Name(), err)
		errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
	}
	if len(errs) == 0 {
		return nil, errors.New("archive-repo: no listing strategy configured")
	}
	return nil, fmt.Errorf("all archive listing strategies failed: %w", errors.Join(errs...))
}

func (r *ArchiveRepo) runLister(ctx context.Context, l KeyLister) ([]string, error) {
	if r.listerTimeout <= 0 {
		return l.ListKeys(ctx)
	}
	lctx, cancel := context.WithTimeout(ctx, r.listerTimeout)
	defer cancel()
	return l.ListKeys(lctx)
}

// fetchBatch loads a batch with one MGET and falls back to one GET per key
// when the batch call fails.
func (r *ArchiveRepo) fetchBatch(ctx context.Context, dates []string) []model.ArchiveListing {
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = r.keys.Backup(d)
	}
	out := make([]model.ArchiveListing, 0, len(dates))

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err == nil && len(vals) == len(keys) {
		for i, v := range vals {
			s, _ := v.(string)
			out = append(out, decodeListing(dates[i], s))
		}
		return out
	}
	logger.Warningf("archive-repo: batch fetch of %d archives failed, fetching one by one: %v", len(keys), err)
	for i, key := range keys {
		s, err := r.rdb.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Warningf("archive-repo: fetch %s failed: %v", key, err)
		}
		out = append(out, decodeListing(dates[i], s))
	}
	return out
}

// decodeListing never drops an entry: a missing or malformed payload yields
// a zeroed summary carrying the date from the key.
func decodeListing(date, raw string) model.ArchiveListing {
	l := model.ArchiveListing{Date: date}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			logger.Warningf("archive-repo: archive %s unreadable, using empty summary: %v", date, err)
			l = model.ArchiveListing{Date: date}
		}
	}
	l.Date = date
	if l.Summary.HourlyDistribution == nil {
		l.Summary.HourlyDistribution = map[int]int{}
	}
	return l
}
