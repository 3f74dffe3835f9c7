package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticket-queue/internal/model"
)

// maxWatchRetries bounds optimistic transactions that lose to concurrent writers.
const maxWatchRetries = 8

// raiseCounterScript lifts a counter to at least ARGV[1] without ever
// lowering it.  It runs atomically so a concurrent INCR is never undone.
var raiseCounterScript = redis.NewScript(`
	local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
	local floor = tonumber(ARGV[1])
	if cur < floor then
		redis.call('SET', KEYS[1], floor, 'EX', tonumber(ARGV[2]))
		return floor
	end
	return cur
`)

// releaseLockScript deletes the lock only when it still holds our token.
var releaseLockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Snapshot is everything stored for one day, fetched in one round-trip.
//
// Fields:
//  State   – metadata record, nil when absent or unreadable.
//  Shadow  – disaster-recovery copy of the metadata, nil when absent.
//  Tickets – the day's ticket list in append order.
//  Counter – current counter value, 0 when absent.
type Snapshot struct {
	State   *model.DailyState
	Shadow  *model.DailyState
	Tickets []model.Ticket
	Counter int64
}

// StateRepo provides access to the per-day state triple.  Only the counter
// increment is atomic across callers; metadata writes are last-write-wins
// and are reconciled by readers.
type StateRepo struct {
	rdb  redis.UniversalClient
	keys Keys
}

// NewStateRepo returns a StateRepo bound to the provided client.
func NewStateRepo(rdb redis.UniversalClient, keys Keys) *StateRepo {
	return &StateRepo{rdb: rdb, keys: keys}
}

// Keys exposes the key builder the repository writes with.
func (r *StateRepo) Keys() Keys { return r.keys }

// IncrCounter atomically increments the day's counter and returns the new
// value, which is the number of the ticket being issued.
func (r *StateRepo) IncrCounter(ctx context.Context, date string) (int64, error) {
	return r.rdb.Incr(ctx, r.keys.Counter(date)).Result()
}

// GetState loads the metadata record.  A missing or unreadable record yields
// (nil, nil) so callers can bootstrap a default one.
func (r *StateRepo) GetState(ctx context.Context, date string) (*model.DailyState, error) {
	raw, err := r.rdb.Get(ctx, r.keys.State(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeState(raw, r.keys.State(date)), nil
}

// CommitIssue persists the merged metadata, appends the ticket and refreshes
// the expiry of the list and the counter in one MULTI/EXEC batch.
func (r *StateRepo) CommitIssue(ctx context.Context, date string, st model.DailyState, t model.Ticket) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return err
	}
	ticketJSON, err := json.Marshal(t)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.keys.State(date), stateJSON, OperationalTTL)
	pipe.RPush(ctx, r.keys.Tickets(date), ticketJSON)
	pipe.Expire(ctx, r.keys.Tickets(date), OperationalTTL)
	pipe.Expire(ctx, r.keys.Counter(date), OperationalTTL)
	pipe.Set(ctx, r.keys.StateShadow(date), stateJSON, ShadowTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Snapshot fetches metadata, shadow, ticket list and counter in a single
// pipelined round-trip.  Unreadable ticket entries are skipped and logged.
func (r *StateRepo) Snapshot(ctx context.Context, date string) (Snapshot, error) {
	pipe := r.rdb.Pipeline()
	stateCmd := pipe.Get(ctx, r.keys.State(date))
	shadowCmd := pipe.Get(ctx, r.keys.StateShadow(date))
	listCmd := pipe.LRange(ctx, r.keys.Tickets(date), 0, -1)
	counterCmd := pipe.Get(ctx, r.keys.Counter(date))
	// Exec reports redis.Nil for absent keys; each command is checked below.
	_, _ = pipe.Exec(ctx)

	var snap Snapshot
	raw, err := stateCmd.Bytes()
	switch {
	case err == nil:
		snap.State = decodeState(raw, r.keys.State(date))
	case !errors.Is(err, redis.Nil):
		return Snapshot{}, fmt.Errorf("get state: %w", err)
	}
	raw, err = shadowCmd.Bytes()
	switch {
	case err == nil:
		snap.Shadow = decodeState(raw, r.keys.StateShadow(date))
	case !errors.Is(err, redis.Nil):
		return Snapshot{}, fmt.Errorf("get state shadow: %w", err)
	}
	items, err := listCmd.Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("get tickets: %w", err)
	}
	snap.Tickets = decodeTickets(items, r.keys.Tickets(date))
	counter, err := counterCmd.Int64()
	switch {
	case err == nil:
		snap.Counter = counter
	case errors.Is(err, redis.Nil):
	default:
		return Snapshot{}, fmt.Errorf("get counter: %w", err)
	}
	return snap, nil
}

// InitState writes st only when the day has no metadata yet, so a record a
// concurrent issuance already created is never clobbered.  It reports
// whether the write happened.
func (r *StateRepo) InitState(ctx context.Context, date string, st model.DailyState) (bool, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return false, err
	}
	ok, err := r.rdb.SetNX(ctx, r.keys.State(date), data, OperationalTTL).Result()
	if err != nil || !ok {
		return false, err
	}
	if err := r.rdb.Set(ctx, r.keys.StateShadow(date), data, ShadowTTL).Err(); err != nil {
		logger.Warningf("state-repo: shadow write for %s failed: %v", date, err)
	}
	return true, nil
}

// ResetDay clears the day's ticket list and counter and writes st as the
// new metadata, all inside one MULTI/EXEC.
func (r *StateRepo) ResetDay(ctx context.Context, date string, st model.DailyState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, r.keys.Tickets(date), r.keys.Counter(date))
	pipe.Set(ctx, r.keys.State(date), data, OperationalTTL)
	pipe.Set(ctx, r.keys.StateShadow(date), data, ShadowTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// RaiseCounter makes sure the counter is at least floor and returns its
// resulting value.
func (r *StateRepo) RaiseCounter(ctx context.Context, date string, floor int) (int64, error) {
	ttl := int64(OperationalTTL / time.Second)
	return raiseCounterScript.Run(ctx, r.rdb, []string{r.keys.Counter(date)}, floor, ttl).Int64()
}

// UpdateState applies fn to the stored metadata inside a WATCH/MULTI
// transaction, retrying when another writer touched the record first.  When
// the record is absent fn receives the zero DailyState with DayStarted set.
// An error from fn aborts without writing and is returned unchanged.
func (r *StateRepo) UpdateState(ctx context.Context, date string, fn func(*model.DailyState) error) (model.DailyState, error) {
	key := r.keys.State(date)
	var out model.DailyState
	txf := func(tx *redis.Tx) error {
		st := model.DailyState{DayStarted: date}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if decoded := decodeState(raw, key); decoded != nil {
				st = *decoded
			}
		case !errors.Is(err, redis.Nil):
			return err
		}
		if err := fn(&st); err != nil {
			return err
		}
		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, OperationalTTL)
			pipe.Set(ctx, r.keys.StateShadow(date), data, ShadowTTL)
			return nil
		})
		if err == nil {
			out = st
		}
		return err
	}
	for i := 0; i < maxWatchRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return out, err
	}
	return model.DailyState{}, ErrConflict
}

// CurrentDay returns the day the live state belongs to, or "" when no day
// has been recorded yet.
func (r *StateRepo) CurrentDay(ctx context.Context) (string, error) {
	day, err := r.rdb.Get(ctx, r.keys.CurrentDay()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return day, err
}

// SetCurrentDay records day as the live day.
func (r *StateRepo) SetCurrentDay(ctx context.Context, day string) error {
	return r.rdb.Set(ctx, r.keys.CurrentDay(), day, PointerTTL).Err()
}

// AcquireRolloverLock tries to take the rollover lock with token.  Only one
// caller at a time may archive and reset.
func (r *StateRepo) AcquireRolloverLock(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, r.keys.RolloverLock(), token, ttl).Result()
}

// ReleaseRolloverLock frees the lock when it is still held with token.
func (r *StateRepo) ReleaseRolloverLock(ctx context.Context, token string) error {
	return releaseLockScript.Run(ctx, r.rdb, []string{r.keys.RolloverLock()}, token).Err()
}

func decodeState(raw []byte, key string) *model.DailyState {
	var st model.DailyState
	if err := json.Unmarshal(raw, &st); err != nil {
		logger.Warningf("state-repo: unreadable record at %s: %v", key, err)
		return nil
	}
	return &st
}

func decodeTickets(items []string, key string) []model.Ticket {
	tickets := make([]model.Ticket, 0, len(items))
	for i, item := range items {
		var t model.Ticket
		if err := json.Unmarshal([]byte(item), &t); err != nil || t.Number <= 0 {
			logger.Warningf("state-repo: skipping unreadable ticket %s[%d]", key, i)
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets
}
