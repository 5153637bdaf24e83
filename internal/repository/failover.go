package repository

import (
	"context"
	"sync/atomic"
	"time"

	"barolo/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverRateLimitRepository prefers the primary (Redis) counter and
// degrades to the in-memory fallback when it fails, probing the primary
// again after a minute.
type FailoverRateLimitRepository struct {
	primary   domain.RateLimitRepository
	fallback  domain.RateLimitRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverRateLimitRepository(primary, fallback domain.RateLimitRepository, logger *zerolog.Logger) *FailoverRateLimitRepository {
	return &FailoverRateLimitRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverRateLimitRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("primary rate-limit repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck.Store(time.Now().UnixNano())
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
