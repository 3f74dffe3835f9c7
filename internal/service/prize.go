package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/ticket-queue/internal/clock"
	"github.com/iliyamo/ticket-queue/internal/model"
	"github.com/iliyamo/ticket-queue/internal/repository"
)

// Rand is the randomness a PrizeService draws from.  *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// PrizeService evaluates tickets against the day's prize configuration.
type PrizeService struct {
	prizes *repository.PrizeRepo
	retry  *Retrier
	clock  clock.Clock
	loc    *time.Location

	mu  sync.Mutex
	rng Rand
}

// NewPrizeService returns a PrizeService.  A nil rng uses a PCG source
// seeded from the clock.
func NewPrizeService(prizes *repository.PrizeRepo, retry *Retrier, clk clock.Clock, loc *time.Location, rng Rand) *PrizeService {
	if rng == nil {
		seed := uint64(clk.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>17|1))
	}
	return &PrizeService{prizes: prizes, retry: retry, clock: clk, loc: loc, rng: rng}
}

// GetPrizeConfig returns the configuration of date, or of today when date
// is empty.
func (s *PrizeService) GetPrizeConfig(ctx context.Context, date string) (model.PrizeConfig, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return model.PrizeConfig{}, err
	}
	var cfg model.PrizeConfig
	err = s.retry.Once(ctx, "get prizes", func(ctx context.Context) error {
		var err error
		cfg, err = s.prizes.Get(ctx, date)
		return err
	})
	return cfg, err
}

// SavePrizeConfig validates and stores the prizes of cfg.Date (today when
// empty).  Missing ids are assigned, order is normalised to 1..n and the
// winners already recorded for the day are kept.
func (s *PrizeService) SavePrizeConfig(ctx context.Context, cfg model.PrizeConfig) (model.PrizeConfig, error) {
	date, err := s.resolveDate(cfg.Date)
	if err != nil {
		return model.PrizeConfig{}, err
	}
	prizes, err := normalizePrizes(cfg.Prizes)
	if err != nil {
		return model.PrizeConfig{}, err
	}

	var saved model.PrizeConfig
	err = s.retry.Do(ctx, "save prizes", func(ctx context.Context) error {
		var err error
		saved, _, err = s.prizes.Update(ctx, date, func(stored *model.PrizeConfig) (bool, error) {
			stored.Date = date
			stored.Prizes = prizes
			return true, nil
		})
		return err
	})
	return saved, err
}

// CheckPrize decides whether ticket number wins a prize on date (today when
// empty).  A number that already won never wins again; specific-number
// prizes are checked before the random draw.  The win is recorded with an
// add-if-absent update, so of two concurrent checks of one number at most
// one reports a win.
func (s *PrizeService) CheckPrize(ctx context.Context, number int, date string) (model.PrizeResult, error) {
	if number <= 0 {
		return model.PrizeResult{}, ErrInvalidTicketNumber
	}
	cfg, err := s.GetPrizeConfig(ctx, date)
	if err != nil {
		return model.PrizeResult{}, err
	}
	if cfg.HasWinner(number) {
		return model.PrizeResult{}, nil
	}
	prize := s.pick(cfg, number)
	if prize == nil {
		return model.PrizeResult{}, nil
	}

	var recorded bool
	err = s.retry.Do(ctx, "record winner", func(ctx context.Context) error {
		var err error
		_, recorded, err = s.prizes.Update(ctx, cfg.Date, func(stored *model.PrizeConfig) (bool, error) {
			if stored.HasWinner(number) {
				return false, nil
			}
			stored.WinningNumbers = append(stored.WinningNumbers, number)
			return true, nil
		})
		return err
	})
	if err != nil {
		return model.PrizeResult{}, err
	}
	if !recorded {
		return model.PrizeResult{}, nil
	}
	return model.PrizeResult{Won: true, Prize: prize}, nil
}

// GetPrizeStats summarises the configuration of date.
func (s *PrizeService) GetPrizeStats(ctx context.Context, date string) (model.PrizeStats, error) {
	cfg, err := s.GetPrizeConfig(ctx, date)
	if err != nil {
		return model.PrizeStats{}, err
	}
	st := model.PrizeStats{
		Date:           cfg.Date,
		TotalPrizes:    len(cfg.Prizes),
		WinnersCount:   len(cfg.WinningNumbers),
		WinningNumbers: append([]int{}, cfg.WinningNumbers...),
	}
	for _, p := range cfg.Prizes {
		if p.Active {
			st.ActivePrizes++
		}
		switch p.Kind {
		case model.PrizeRandom:
			st.RandomPrizes++
		case model.PrizeSpecificNumber:
			st.SpecificPrizes++
		}
	}
	return st, nil
}

// pick returns the prize number would win, or nil.
func (s *PrizeService) pick(cfg model.PrizeConfig, number int) *model.Prize {
	var random []model.Prize
	for _, p := range cfg.Prizes {
		if !p.Active {
			continue
		}
		switch p.Kind {
		case model.PrizeSpecificNumber:
			if p.SpecificNumber != nil && *p.SpecificNumber == number {
				return &p
			}
		case model.PrizeRandom:
			random = append(random, p)
		}
	}
	if len(random) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() >= model.RandomPrizeProbability {
		return nil
	}
	p := random[s.rng.IntN(len(random))]
	return &p
}

func (s *PrizeService) resolveDate(date string) (string, error) {
	if date == "" {
		return s.clock.Now().In(s.loc).Format(model.DateLayout), nil
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return "", ErrInvalidDate
	}
	return date, nil
}

// normalizePrizes validates prizes and returns them sorted by their
// requested order, renumbered 1..n, with ids assigned.
func normalizePrizes(in []model.Prize) ([]model.Prize, error) {
	out := make([]model.Prize, len(in))
	copy(out, in)
	for i := range out {
		p := &out[i]
		p.Message = strings.TrimSpace(p.Message)
		if p.Message == "" {
			return nil, fmt.Errorf("%w: prize %d has no message", ErrInvalidPrizeConfig, i+1)
		}
		switch p.Kind {
		case model.PrizeRandom:
			p.SpecificNumber = nil
		case model.PrizeSpecificNumber:
			if p.SpecificNumber == nil || *p.SpecificNumber <= 0 {
				return nil, fmt.Errorf("%w: prize %d needs a positive specificNumber", ErrInvalidPrizeConfig, i+1)
			}
		default:
			return nil, fmt.Errorf("%w: prize %d has unknown kind %q", ErrInvalidPrizeConfig, i+1, p.Kind)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		out[i].Order = i + 1
	}
	return out, nil
}
