package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-queue/internal/model"
)

type stubRand struct {
	f float64
	i int
}

func (s stubRand) Float64() float64 { return s.f }
func (s stubRand) IntN(int) int     { return s.i }

func intPtr(n int) *int { return &n }

func newPrizeService(env *testEnv, rng Rand) *PrizeService {
	return NewPrizeService(env.prizes, env.retry, env.clock, env.loc, rng)
}

func TestCheckPrizeSpecificNumberWinsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newPrizeService(env, stubRand{f: 0.99})

	_, err := svc.SavePrizeConfig(ctx, model.PrizeConfig{Prizes: []model.Prize{
		{Message: "Free coffee", Kind: model.PrizeSpecificNumber, SpecificNumber: intPtr(7), Active: true},
	}})
	require.NoError(t, err)

	res, err := svc.CheckPrize(ctx, 6, "")
	require.NoError(t, err)
	assert.False(t, res.Won)

	res, err = svc.CheckPrize(ctx, 7, "")
	require.NoError(t, err)
	require.True(t, res.Won)
	assert.Equal(t, "Free coffee", res.Prize.Message)

	res, err = svc.CheckPrize(ctx, 7, "")
	require.NoError(t, err)
	assert.False(t, res.Won)

	stats, err := svc.GetPrizeStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.WinnersCount)
	assert.Equal(t, []int{7}, stats.WinningNumbers)
}

func TestCheckPrizeRandomDraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prizes := []model.Prize{
		{Message: "Sticker", Kind: model.PrizeRandom, Active: true},
		{Message: "Mug", Kind: model.PrizeRandom, Active: true},
		{Message: "Hidden", Kind: model.PrizeRandom, Active: false},
	}

	lucky := newPrizeService(env, stubRand{f: 0.01, i: 1})
	_, err := lucky.SavePrizeConfig(ctx, model.PrizeConfig{Prizes: prizes})
	require.NoError(t, err)

	res, err := lucky.CheckPrize(ctx, 3, "")
	require.NoError(t, err)
	require.True(t, res.Won)
	assert.Equal(t, "Mug", res.Prize.Message)

	unlucky := newPrizeService(env, stubRand{f: model.RandomPrizeProbability})
	res, err = unlucky.CheckPrize(ctx, 4, "")
	require.NoError(t, err)
	assert.False(t, res.Won)
}

func TestCheckPrizeInactiveNeverWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newPrizeService(env, stubRand{f: 0})

	_, err := svc.SavePrizeConfig(ctx, model.PrizeConfig{Prizes: []model.Prize{
		{Message: "Off", Kind: model.PrizeSpecificNumber, SpecificNumber: intPtr(2), Active: false},
		{Message: "Off too", Kind: model.PrizeRandom, Active: false},
	}})
	require.NoError(t, err)

	res, err := svc.CheckPrize(ctx, 2, "")
	require.NoError(t, err)
	assert.False(t, res.Won)
}

func TestCheckPrizeConcurrentChecksRecordOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newPrizeService(env, stubRand{f: 0.99})
	_, err := svc.SavePrizeConfig(ctx, model.PrizeConfig{Prizes: []model.Prize{
		{Message: "Jackpot", Kind: model.PrizeSpecificNumber, SpecificNumber: intPtr(10), Active: true},
	}})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.CheckPrize(ctx, 10, "")
			if assert.NoError(t, err) && res.Won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestCheckPrizeRejectsBadNumber(t *testing.T) {
	env := newTestEnv(t)
	_, err := newPrizeService(env, nil).CheckPrize(context.Background(), 0, "")
	assert.ErrorIs(t, err, ErrInvalidTicketNumber)
}

func TestSavePrizeConfigNormalizes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newPrizeService(env, stubRand{f: 0.99})

	_, _, err := env.prizes.Update(ctx, "2026-10-18", func(c *model.PrizeConfig) (bool, error) {
		c.WinningNumbers = []int{4}
		return true, nil
	})
	require.NoError(t, err)

	saved, err := svc.SavePrizeConfig(ctx, model.PrizeConfig{
		Date:           "2026-10-18",
		WinningNumbers: []int{},
		Prizes: []model.Prize{
			{Message: " second ", Kind: model.PrizeRandom, SpecificNumber: intPtr(3), Order: 9, Active: true},
			{ID: "keep-me", Message: "first", Kind: model.PrizeSpecificNumber, SpecificNumber: intPtr(3), Order: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved.Prizes, 2)
	assert.Equal(t, "keep-me", saved.Prizes[0].ID)
	assert.Equal(t, 1, saved.Prizes[0].Order)
	assert.Equal(t, "second", saved.Prizes[1].Message)
	assert.Equal(t, 2, saved.Prizes[1].Order)
	assert.NotEmpty(t, saved.Prizes[1].ID)
	assert.Nil(t, saved.Prizes[1].SpecificNumber)
	assert.Equal(t, []int{4}, saved.WinningNumbers)

	stats, err := svc.GetPrizeStats(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalPrizes)
	assert.Equal(t, 1, stats.ActivePrizes)
	assert.Equal(t, 1, stats.RandomPrizes)
	assert.Equal(t, 1, stats.SpecificPrizes)
}

func TestSavePrizeConfigValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newPrizeService(env, nil)

	bad := [][]model.Prize{
		{{Message: "", Kind: model.PrizeRandom}},
		{{Message: "x", Kind: "lottery"}},
		{{Message: "x", Kind: model.PrizeSpecificNumber}},
		{{Message: "x", Kind: model.PrizeSpecificNumber, SpecificNumber: intPtr(0)}},
	}
	for _, prizes := range bad {
		_, err := svc.SavePrizeConfig(ctx, model.PrizeConfig{Prizes: prizes})
		assert.ErrorIs(t, err, ErrInvalidPrizeConfig)
	}

	_, err := svc.SavePrizeConfig(ctx, model.PrizeConfig{Date: "18/10/2026"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}
