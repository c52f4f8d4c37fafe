package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"arcstore-api/internal/metrics"
	"arcstore-api/internal/model"
	"arcstore-api/internal/repository"

	"go.uber.org/zap"
)

// Draw weights in percent. Every claimed limited prize moves one point from
// the limited pool to the currency prize.
const (
	limitedWeight      = 3.0
	bannerWeight       = 39.7
	currencyWeight     = 60.0
	bannerHolderBonus  = 37.0
	historyLimit       = 30
	weightResolution   = 10
	unknownWinnerName  = "unknown"
	lotteryDrawTimeout = 10 * time.Second
)

// LotteryService runs the once-a-day prize draw.
type LotteryService struct {
	events repository.EventRepository
	game   repository.GameRepository
	log    *zap.Logger
	now    func() time.Time
	intn   func(n int) int
}

// NewLotteryService creates a new lottery service.
func NewLotteryService(events repository.EventRepository, game repository.GameRepository, log *zap.Logger) *LotteryService {
	return &LotteryService{
		events: events,
		game:   game,
		log:    log.Named("lottery"),
		now:    time.Now,
		intn:   rand.IntN,
	}
}

type poolEntry struct {
	id     string
	name   string
	weight int
}

// buildPool returns the weighted prize pool for a user.
func buildPool(available []model.LimitedPrize, claimed int, hasBanner bool) []poolEntry {
	limited := limitedWeight - float64(claimed)
	if limited < 0 {
		limited = 0
	}
	currency := currencyWeight + float64(claimed)
	if hasBanner {
		currency += bannerHolderBonus
	}

	var pool []poolEntry
	if len(available) > 0 && limited > 0 {
		per := limited / float64(len(available))
		for _, p := range available {
			pool = append(pool, poolEntry{p.PrizeID, p.PrizeName, weight(per)})
		}
	}
	if !hasBanner {
		pool = append(pool, poolEntry{model.PrizeBanner, model.BannerName, weight(bannerWeight)})
	}
	pool = append(pool, poolEntry{model.PrizeCurrency, model.CurrencyName, weight(currency)})
	return pool
}

func weight(percent float64) int {
	return int(math.Round(percent * weightResolution))
}

// pick selects an entry with probability proportional to its weight.
func pick(pool []poolEntry, intn func(int) int) poolEntry {
	total := 0
	for _, e := range pool {
		total += e.weight
	}
	r := intn(total)
	for _, e := range pool {
		if r < e.weight {
			return e
		}
		r -= e.weight
	}
	return pool[len(pool)-1]
}

func splitPrizes(prizes []model.LimitedPrize) (available []model.LimitedPrize, claimed int) {
	for _, p := range prizes {
		if p.IsClaimed {
			claimed++
		} else {
			available = append(available, p)
		}
	}
	return available, claimed
}

// Draw performs today's draw for the user. It returns
// repository.ErrAlreadyDrawn when the user has drawn today.
func (s *LotteryService) Draw(ctx context.Context, userID int64) (*model.LotteryDraw, error) {
	ctx, cancel := context.WithTimeout(ctx, lotteryDrawTimeout)
	defer cancel()

	now := s.now()
	today := now.Format(model.DrawDateLayout)

	existing, err := s.events.GetDraw(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, repository.ErrAlreadyDrawn
	}

	prizes, err := s.events.ListPrizes(ctx)
	if err != nil {
		return nil, err
	}
	hasBanner, err := s.events.HasPrize(ctx, userID, model.BannerName)
	if err != nil {
		return nil, err
	}

	available, claimed := splitPrizes(prizes)
	selected := pick(buildPool(available, claimed, hasBanner), s.intn)

	draw := &model.LotteryDraw{
		UserID:   userID,
		DrawDate: today,
		Prize:    selected.name,
		DrawTime: now.Format(model.DrawTimeLayout),
	}

	if selected.id != model.PrizeBanner && selected.id != model.PrizeCurrency {
		err := s.events.ClaimPrize(ctx, selected.id, draw)
		switch {
		case err == nil:
			metrics.LotteryDrawsTotal.WithLabelValues(selected.id).Inc()
			s.log.Info("limited prize won", zap.Int64("user_id", userID), zap.String("prize_id", selected.id))
			return draw, nil
		case errors.Is(err, repository.ErrPrizeClaimed):
			// Someone else won it between the read and the claim.
			selected = poolEntry{id: model.PrizeCurrency, name: model.CurrencyName}
			draw.Prize = selected.name
		default:
			return nil, err
		}
	}

	if err := s.events.RecordDraw(ctx, draw); err != nil {
		return nil, err
	}
	metrics.LotteryDrawsTotal.WithLabelValues(selected.id).Inc()
	return draw, nil
}

// State returns what the lottery page shows the user today.
func (s *LotteryService) State(ctx context.Context, userID int64) (*model.LotteryState, error) {
	today := s.now().Format(model.DrawDateLayout)

	draw, err := s.events.GetDraw(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	prizes, err := s.events.ListPrizes(ctx)
	if err != nil {
		return nil, err
	}
	hasBanner, err := s.events.HasPrize(ctx, userID, model.BannerName)
	if err != nil {
		return nil, err
	}
	history, err := s.events.ListDraws(ctx, userID, historyLimit)
	if err != nil {
		return nil, err
	}
	winners, err := s.winners(ctx, prizes)
	if err != nil {
		return nil, err
	}

	state := &model.LotteryState{
		Today:     today,
		HasDrawn:  draw != nil,
		HasBanner: hasBanner,
		Prizes:    prizes,
		Winners:   winners,
		History:   history,
	}
	if draw != nil {
		state.Result = draw.Prize
	}
	return state, nil
}

// winners joins claimed prizes with the winners' names from the game database.
func (s *LotteryService) winners(ctx context.Context, prizes []model.LimitedPrize) ([]model.Winner, error) {
	winners := []model.Winner{}
	for _, p := range prizes {
		if !p.IsClaimed || p.ClaimedBy == nil {
			continue
		}

		name := unknownWinnerName
		user, err := s.game.GetUser(ctx, *p.ClaimedBy)
		switch {
		case err == nil:
			name = user.Name
		case !errors.Is(err, repository.ErrUserNotFound):
			return nil, fmt.Errorf("failed to resolve winner of %s: %w", p.PrizeID, err)
		}

		w := model.Winner{PrizeID: p.PrizeID, PrizeName: p.PrizeName, UserID: *p.ClaimedBy, UserName: name}
		if p.ClaimedTime != nil {
			w.ClaimedTime = *p.ClaimedTime
		}
		winners = append(winners, w)
	}
	return winners, nil
}
