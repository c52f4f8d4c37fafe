package service

import (
	"context"
	"sync"
	"time"

	"arcstore-api/internal/metrics"
	"arcstore-api/internal/model"
	"arcstore-api/internal/repository"

	"go.uber.org/zap"
)

// ReaperConfig holds configuration for the reaper scheduler.
type ReaperConfig struct {
	// Interval is how often the sweep runs.
	// Default: 10 minutes
	Interval time.Duration

	// Timeout bounds a single sweep.
	// Default: 1 minute
	Timeout time.Duration
}

// ReaperScheduler periodically removes expired, unclaimed purchase orders.
// Purchases also reap before checking for a pending order; the scheduler
// keeps the mailbox tidy for users who never come back.
type ReaperScheduler struct {
	game   repository.GameRepository
	config ReaperConfig
	log    *zap.Logger
	now    func() time.Time

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewReaperScheduler creates a new reaper scheduler.
func NewReaperScheduler(game repository.GameRepository, config ReaperConfig, log *zap.Logger) *ReaperScheduler {
	if config.Interval == 0 {
		config.Interval = 10 * time.Minute
	}
	if config.Timeout == 0 {
		config.Timeout = time.Minute
	}

	return &ReaperScheduler{
		game:   game,
		config: config,
		log:    log.Named("reaper"),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start begins the reaper loop. Calling it twice is a no-op.
func (s *ReaperScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	s.log.Info("reaper started", zap.Duration("interval", s.config.Interval))
	go s.run()
}

func (s *ReaperScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stopCh:
			s.log.Info("reaper stopped")
			return
		}
	}
}

func (s *ReaperScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	if _, err := s.reap(ctx, "schedule"); err != nil {
		s.log.Error("reap failed", zap.Error(err))
	}
}

// Stop stops the reaper.
func (s *ReaperScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate sweep and returns the number of presents removed.
func (s *ReaperScheduler) RunNow(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	return s.reap(ctx, "manual")
}

func (s *ReaperScheduler) reap(ctx context.Context, trigger string) (int64, error) {
	removed, err := s.game.ReapExpired(ctx, PurchasePrefix, model.Millis(s.now()))
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		metrics.ReapedPresentsTotal.WithLabelValues(trigger).Add(float64(removed))
		s.log.Info("expired purchase orders removed", zap.Int64("count", removed), zap.String("trigger", trigger))
	}
	return removed, nil
}
