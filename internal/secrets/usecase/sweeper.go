package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "github.com/shieldops/secrets/internal/errors"
)

// SweeperConfig holds expiration sweep scheduling settings.
type SweeperConfig struct {
	// Schedule is an optional cron expression. When empty, Interval drives a
	// plain ticker.
	Schedule string
	// Interval between sweep passes when no cron schedule is set.
	Interval time.Duration
	// BatchSize caps how many records one batch transitions.
	BatchSize int
}

// Sweeper periodically transitions expired secrets to the expired status.
type Sweeper struct {
	config  SweeperConfig
	useCase SecretUseCase
	logger  *slog.Logger
}

// NewSweeper creates an expiration sweeper.
func NewSweeper(config SweeperConfig, useCase SecretUseCase, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		config:  config,
		useCase: useCase,
		logger:  logger,
	}
}

// Start runs sweep passes until the context is cancelled. An invalid cron
// schedule is rejected up front.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.config.Schedule != "" {
		return s.runCron(ctx)
	}
	return s.runTicker(ctx)
}

// runCron drives sweeps from a cron schedule.
func (s *Sweeper) runCron(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.config.Schedule, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid sweep schedule: "+err.Error())
	}

	s.logger.Info("starting expiration sweeper",
		slog.String("schedule", s.config.Schedule),
		slog.Int("batch_size", s.config.BatchSize),
	)
	c.Start()

	<-ctx.Done()
	s.logger.Info("stopping expiration sweeper")
	// Wait for an in-flight sweep to finish before returning.
	<-c.Stop().Done()
	return ctx.Err()
}

// runTicker drives sweeps from a fixed interval.
func (s *Sweeper) runTicker(ctx context.Context) error {
	s.logger.Info("starting expiration sweeper",
		slog.Duration("interval", s.config.Interval),
		slog.Int("batch_size", s.config.BatchSize),
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping expiration sweeper")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one pass and logs the outcome.
func (s *Sweeper) sweep(ctx context.Context) {
	swept, err := s.useCase.SweepExpired(ctx, s.config.BatchSize)
	if err != nil {
		s.logger.Error("expiration sweep failed",
			slog.Int("swept", swept),
			slog.Any("error", err),
		)
		return
	}
	if swept > 0 {
		s.logger.Info("expiration sweep completed", slog.Int("swept", swept))
	}
}
