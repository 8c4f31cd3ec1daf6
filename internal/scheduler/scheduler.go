package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type tokenPurger interface {
	PurgeExpiredActivationTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionPurger interface {
	PurgeExpiredRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

type exportCleaner interface {
	CleanupExpired() (int, error)
}

// Config tunes the maintenance scheduler.
type Config struct {
	Enabled         bool
	CleanupSchedule string
}

// Scheduler runs periodic housekeeping: expired activation tokens and
// refresh tokens are purged and stale export files removed. Expired rows are
// already unusable before the purge runs; this only reclaims storage.
type Scheduler struct {
	cron    *cron.Cron
	tokens  tokenPurger
	users   sessionPurger
	exports exportCleaner
	logger  *zap.Logger
	config  Config
}

// New constructs a Scheduler instance.
func New(tokens tokenPurger, users sessionPurger, exports exportCleaner, logger *zap.Logger, config Config) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CleanupSchedule == "" {
		config.CleanupSchedule = "@hourly"
	}
	return &Scheduler{
		cron:    cron.New(),
		tokens:  tokens,
		users:   users,
		exports: exports,
		logger:  logger,
		config:  config,
	}
}

// Start registers the cleanup job and begins the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("maintenance scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.CleanupSchedule, func() { s.runCleanup(ctx) })
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("maintenance scheduler started", zap.String("schedule", s.config.CleanupSchedule))
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	now := time.Now().UTC()

	if s.tokens != nil {
		if purged, err := s.tokens.PurgeExpiredActivationTokens(ctx, now); err != nil {
			s.logger.Warn("activation token purge failed", zap.Error(err))
		} else if purged > 0 {
			s.logger.Info("purged expired activation tokens", zap.Int64("count", purged))
		}
	}

	if s.users != nil {
		if purged, err := s.users.PurgeExpiredRefreshTokens(ctx, now); err != nil {
			s.logger.Warn("refresh token purge failed", zap.Error(err))
		} else if purged > 0 {
			s.logger.Info("purged expired refresh tokens", zap.Int64("count", purged))
		}
	}

	if s.exports != nil {
		if removed, err := s.exports.CleanupExpired(); err != nil {
			s.logger.Warn("export cleanup failed", zap.Error(err))
		} else if removed > 0 {
			s.logger.Info("removed stale export files", zap.Int("count", removed))
		}
	}
}
