package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticket-queue/internal/repository"
)

// HealthReport is the result of a store health check.
type HealthReport struct {
	Connected bool              `json:"connected"`
	LatencyMs int64             `json:"latency"`
	Details   map[string]string `json:"details"`
}

// HealthChecker exercises the store with a write, a read-back, a delete and
// a ping of a dedicated probe key.
type HealthChecker struct {
	rdb     redis.UniversalClient
	keys    repository.Keys
	timeout time.Duration
}

func NewHealthChecker(rdb redis.UniversalClient, keys repository.Keys, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HealthChecker{rdb: rdb, keys: keys, timeout: timeout}
}

// Check runs every step even after a failure so the details name each
// broken one.  It never returns an error; the report says it all.
func (h *HealthChecker) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	key := h.keys.HealthProbe()
	value := strconv.FormatInt(start.UnixNano(), 10)
	rep := HealthReport{Connected: true, Details: map[string]string{}}
	record := func(step string, err error) {
		if err != nil {
			rep.Connected = false
			rep.Details[step] = err.Error()
			return
		}
		rep.Details[step] = "ok"
	}

	record("write", h.rdb.Set(ctx, key, value, time.Minute).Err())
	got, err := h.rdb.Get(ctx, key).Result()
	if err == nil && got != value {
		err = fmt.Errorf("read back %q, want %q", got, value)
	}
	record("read", err)
	record("delete", h.rdb.Del(ctx, key).Err())
	record("ping", h.rdb.Ping(ctx).Err())

	rep.LatencyMs = time.Since(start).Milliseconds()
	return rep
}
