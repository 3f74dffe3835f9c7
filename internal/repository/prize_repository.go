package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticket-queue/internal/model"
)

// PrizeRepo stores the per-day prize configuration, winners included.
type PrizeRepo struct {
	rdb  redis.UniversalClient
	keys Keys
}

func NewPrizeRepo(rdb redis.UniversalClient, keys Keys) *PrizeRepo {
	return &PrizeRepo{rdb: rdb, keys: keys}
}

// Get returns the configuration of date.  A day without configuration
// yields an empty one for that date.
func (r *PrizeRepo) Get(ctx context.Context, date string) (model.PrizeConfig, error) {
	raw, err := r.rdb.Get(ctx, r.keys.Prizes(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return emptyPrizeConfig(date), nil
	}
	if err != nil {
		return model.PrizeConfig{}, err
	}
	return decodePrizeConfig(raw, date)
}

// Update applies fn to the stored configuration inside a WATCH/MULTI
// transaction and writes the result when fn reports a change.  It is the
// add-if-absent primitive for winners: two concurrent checks of the same
// number cannot both append it.
func (r *PrizeRepo) Update(ctx context.Context, date string, fn func(*model.PrizeConfig) (bool, error)) (model.PrizeConfig, bool, error) {
	key := r.keys.Prizes(date)
	var (
		out     model.PrizeConfig
		changed bool
	)
	txf := func(tx *redis.Tx) error {
		cfg := emptyPrizeConfig(date)
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if cfg, err = decodePrizeConfig(raw, date); err != nil {
				return err
			}
		case !errors.Is(err, redis.Nil):
			return err
		}
		write, err := fn(&cfg)
		if err != nil {
			return err
		}
		out, changed = cfg, write
		if !write {
			return nil
		}
		data, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, PrizeTTL)
			return nil
		})
		return err
	}
	for i := 0; i < maxWatchRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return model.PrizeConfig{}, false, err
		}
		return out, changed, nil
	}
	return model.PrizeConfig{}, false, ErrConflict
}

func emptyPrizeConfig(date string) model.PrizeConfig {
	return model.PrizeConfig{Date: date, Prizes: []model.Prize{}, WinningNumbers: []int{}}
}

func decodePrizeConfig(raw []byte, date string) (model.PrizeConfig, error) {
	var cfg model.PrizeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return model.PrizeConfig{}, fmt.Errorf("decode prize config %s: %w", date, err)
	}
	if cfg.Date == "" {
		cfg.Date = date
	}
	if cfg.Prizes == nil {
		cfg.Prizes = []model.Prize{}
	}
	if cfg.WinningNumbers == nil {
		cfg.WinningNumbers = []int{}
	}
	return cfg, nil
}
