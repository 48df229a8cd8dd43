// Package ratelimit provides the per-client sliding window limiter.
package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"dropapi/internal/failover"
	"dropapi/internal/repository"
)

// Limiter admits or rejects requests per client key through the rate-limit
// coordinator, so counters live in the primary backend while it is healthy
// and in process memory during outages.
type Limiter struct {
	coord  *failover.Coordinator[repository.RateLimitRepository]
	window time.Duration
	max    int
}

// New creates a limiter admitting at most max requests per window.
func New(coord *failover.Coordinator[repository.RateLimitRepository], window time.Duration, max int) *Limiter {
	return &Limiter{coord: coord, window: window, max: max}
}

// Admit records one request for clientKey and reports whether it is within
// the window quota. The error return is reserved for the case where both
// backends fail.
func (l *Limiter) Admit(ctx context.Context, clientKey string) (bool, error) {
	var allowed bool
	err := l.coord.Do(ctx, "hit", func(b repository.RateLimitRepository) error {
		ok, err := b.Hit(ctx, clientKey, l.window, l.max)
		if err != nil {
			return err
		}
		allowed = ok
		return nil
	})
	if err != nil {
		return false, err
	}
	if !allowed {
		log.Warn().Str("client", clientKey).Msg("rate limit exceeded")
	}
	return allowed, nil
}
