package scheduler

import (
	"context"
	"fmt"
	"time"

	"StockDash/internal/domain/models"
	applogger "StockDash/pkg/logger"

	"github.com/robfig/cron/v3"
)

// SecuritiesRefresher reloads the security list into the cache.
type SecuritiesRefresher interface {
	Refresh(ctx context.Context) ([]models.SecurityOption, error)
}

// Sweeper evicts idle per-client state.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron       *cron.Cron
	securities SecuritiesRefresher
	limiter    Sweeper
	idle       time.Duration
	timeout    time.Duration
	log        *applogger.Logger
}

// New creates a Scheduler. limiter may be nil.
func New(securities SecuritiesRefresher, limiter Sweeper, timeout time.Duration, l *applogger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		securities: securities,
		limiter:    limiter,
		idle:       10 * time.Minute,
		timeout:    timeout,
		log:        l,
	}
}

// Register adds the securities refresh on refreshSpec and a limiter sweep every minute.
func (s *Scheduler) Register(refreshSpec string) error {
	if _, err := s.cron.AddFunc(refreshSpec, s.RefreshSecurities); err != nil {
		return fmt.Errorf("register securities refresh: %w", err)
	}
	if s.limiter != nil {
		if _, err := s.cron.AddFunc("@every 1m", s.sweepLimiter); err != nil {
			return fmt.Errorf("register limiter sweep: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", applogger.Int("jobs", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out", applogger.Error(ctx.Err()))
	}
}

// RefreshSecurities reloads the security list now.
func (s *Scheduler) RefreshSecurities() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	began := time.Now()
	opts, err := s.securities.Refresh(ctx)
	if err != nil {
		s.log.Error("securities refresh failed", applogger.Error(err))
		return
	}
	s.log.Info("securities refreshed",
		applogger.Int("count", len(opts)),
		applogger.Duration("duration_ms", time.Since(began)),
	)
}

func (s *Scheduler) sweepLimiter() {
	if n := s.limiter.Sweep(s.idle); n > 0 {
		s.log.Debug("rate limiter swept", applogger.Int("evicted", n))
	}
}
