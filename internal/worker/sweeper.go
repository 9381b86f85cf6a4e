// Package worker runs the background expiry sweeper. Pending reservations
// freeze their dates for a limited window; the sweeper releases the dates
// of any reservation whose deposit never arrived.
package worker

import (
	"context"
	"time"

	"villaalcielo/internal/metrics"
	"villaalcielo/internal/models"

	"github.com/rs/zerolog"
)

// ExpiryService is the lifecycle slice the sweeper drives.
type ExpiryService interface {
	SweepExpired(ctx context.Context) (int, error)
}

type Sweeper struct {
	svc      ExpiryService
	interval time.Duration
	retry    RetryPolicy
	logger   *zerolog.Logger
}

func NewSweeper(svc ExpiryService, interval time.Duration, retry RetryPolicy, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = models.DefaultSweepIntervalMinutes * time.Minute
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		retry:    retry.normalized(),
		logger:   logger,
	}
}

// Run sweeps immediately, then on every tick until the context is cancelled.
// The sweep is idempotent, so overlapping or repeated passes are harmless.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("expiry sweeper started")

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one pass, retrying transient failures with backoff. A pass that
// exhausts its retries is dropped; the next tick starts fresh.
func (s *Sweeper) sweep(ctx context.Context) {
	for attempt := 1; attempt <= s.retry.MaxRetries; attempt++ {
		expired, err := s.svc.SweepExpired(ctx)
		if err == nil {
			metrics.SweepCompleted(expired)
			if expired > 0 {
				s.logger.Info().Int("expired", expired).Msg("expired stale pending reservations")
			}
			return
		}

		if ctx.Err() != nil {
			return
		}

		delay := s.retry.NextDelay(attempt)
		s.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("sweep pass failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	s.logger.Error().Int("attempts", s.retry.MaxRetries).Msg("sweep pass abandoned after retries")
}
