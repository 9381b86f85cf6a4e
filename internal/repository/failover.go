package repository

import (
	"context"
	"sync"
	"time"

	"villaalcielo/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverGuard routes rate-limit checks to the primary guard and falls back
// to the secondary when the primary fails. After a minute it probes the
// primary again.
type FailoverGuard struct {
	primary  domain.BookingGuard
	fallback domain.BookingGuard
	logger   *zerolog.Logger

	mu        sync.Mutex
	down      bool
	lastCheck time.Time
}

func NewFailoverGuard(primary, fallback domain.BookingGuard, logger *zerolog.Logger) *FailoverGuard {
	return &FailoverGuard{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

const recoveryProbeInterval = time.Minute

func (g *FailoverGuard) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if g.tryPrimary() {
		allowed, err := g.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			g.markUp()
			return allowed, nil
		}
		g.logger.Error().Err(err).Msg("primary rate limiter failed, falling back to memory")
		g.markDown()
	}

	return g.fallback.CheckRateLimit(ctx, key, limit, window)
}

// tryPrimary reports whether this call should go to the primary: either it
// is up, or it has been down long enough to probe again.
func (g *FailoverGuard) tryPrimary() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.down {
		return true
	}
	if time.Since(g.lastCheck) > recoveryProbeInterval {
		g.lastCheck = time.Now()
		return true
	}
	return false
}

func (g *FailoverGuard) markDown() {
	g.mu.Lock()
	g.down = true
	g.lastCheck = time.Now()
	g.mu.Unlock()
}

func (g *FailoverGuard) markUp() {
	g.mu.Lock()
	g.down = false
	g.mu.Unlock()
}
