package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyLister is one strategy for finding archive keys.  ArchiveRepo tries its
// listers in order and uses the first one that succeeds.
type KeyLister interface {
	Name() string
	ListKeys(ctx context.Context) ([]string, error)
}

// ScanLister walks the keyspace with a cursor-based SCAN.  It is the
// preferred strategy because it never blocks the store.
type ScanLister struct {
	rdb   redis.UniversalClient
	keys  Keys
	count int64
}

func NewScanLister(rdb redis.UniversalClient, keys Keys) *ScanLister {
	return &ScanLister{rdb: rdb, keys: keys, count: 100}
}

func (l *ScanLister) Name() string { return "scan" }

func (l *ScanLister) ListKeys(ctx context.Context) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	for {
		batch, next, err := l.rdb.Scan(ctx, cursor, l.keys.BackupPattern(), l.count).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

// KeysLister asks for every matching key at once.  Hosted stores sometimes
// restrict SCAN but allow KEYS on small keyspaces.
type KeysLister struct {
	rdb  redis.UniversalClient
	keys Keys
}

func NewKeysLister(rdb redis.UniversalClient, keys Keys) *KeysLister {
	return &KeysLister{rdb: rdb, keys: keys}
}

func (l *KeysLister) Name() string { return "keys" }

func (l *KeysLister) ListKeys(ctx context.Context) ([]string, error) {
	return l.rdb.Keys(ctx, l.keys.BackupPattern()).Result()
}

// ProbeLister checks the archive key of each of the last Days calendar days
// for existence.  It needs no pattern support at all, at the price of missing
// archives older than the probe window.
type ProbeLister struct {
	rdb   redis.UniversalClient
	keys  Keys
	days  int
	today func() time.Time
}

// NewProbeLister returns a ProbeLister covering days days back from today().
func NewProbeLister(rdb redis.UniversalClient, keys Keys, days int, today func() time.Time) *ProbeLister {
	if days < 1 {
		days = 1
	}
	return &ProbeLister{rdb: rdb, keys: keys, days: days, today: today}
}

func (l *ProbeLister) Name() string { return "probe" }

func (l *ProbeLister) ListKeys(ctx context.Context) ([]string, error) {
	now := l.today()
	candidates := make([]string, 0, l.days)
	for i := 0; i < l.days; i++ {
		candidates = append(candidates, l.keys.Backup(now.AddDate(0, 0, -i).Format("2006-01-02")))
	}
	pipe := l.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(candidates))
	for i, key := range candidates {
		cmds[i] = pipe.Exists(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(candidates))
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}
