// Package failover provides the dual-backend resilience wrapper shared by
// file metadata, short-code mappings, and rate-limit counters.
//
// A Coordinator pairs a primary persistent backend with a transient in-process
// fallback behind a shared two-state health indicator. While Healthy, every
// operation goes to the primary; the first primary failure flips the indicator
// to Degraded and this and all subsequent operations run against the fallback.
// Only an explicit external probe restores Healthy. Writes are never dual
// written or reconciled: anything written while Degraded exists only in the
// fallback and dies with the process.
package failover

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"dropapi/internal/repository"
)

// State is the health indicator's value.
type State int32

const (
	// Healthy routes operations to the primary backend.
	Healthy State = iota
	// Degraded routes operations to the fallback backend.
	Degraded
)

func (s State) String() string {
	if s == Healthy {
		return "healthy"
	}
	return "degraded"
}

// Health is the shared two-state indicator. One Health instance is shared by
// all coordinators over the same primary, so a failure observed by any of
// them degrades them all.
type Health struct {
	hasPrimary bool
	degraded   atomic.Bool
}

// NewHealth creates an indicator. Without a configured primary the indicator
// is permanently Degraded.
func NewHealth(hasPrimary bool) *Health {
	h := &Health{hasPrimary: hasPrimary}
	if !hasPrimary {
		h.degraded.Store(true)
	}
	return h
}

// State returns the current state.
func (h *Health) State() State {
	if h.degraded.Load() {
		return Degraded
	}
	return Healthy
}

// MarkDegraded transitions Healthy -> Degraded. Idempotent.
func (h *Health) MarkDegraded() {
	if h.degraded.CompareAndSwap(false, true) {
		log.Warn().Msg("primary backend degraded, failing over to in-process storage")
	}
}

// MarkHealthy transitions Degraded -> Healthy. Only the external health probe
// calls this; a successful fallback operation never does. Without a primary
// this is a no-op.
func (h *Health) MarkHealthy() {
	if !h.hasPrimary {
		return
	}
	if h.degraded.CompareAndSwap(true, false) {
		log.Info().Msg("primary backend restored")
	}
}

// Coordinator wraps a primary and fallback backend of the same interface B.
type Coordinator[B any] struct {
	name     string
	primary  B
	fallback B
	health   *Health
}

// New creates a coordinator. When the health indicator was built without a
// primary, the primary value is never touched and may be the zero value.
func New[B any](name string, primary, fallback B, health *Health) *Coordinator[B] {
	return &Coordinator[B]{name: name, primary: primary, fallback: fallback, health: health}
}

// Health exposes the shared indicator.
func (c *Coordinator[B]) Health() *Health { return c.health }

// Do runs op against the primary while Healthy, falling back on failure.
// A repository.ErrNotFound from the primary is a miss, not a failure: the
// fallback is still consulted (it may hold records written during an earlier
// outage) but the indicator stays Healthy. Any other primary error degrades
// the indicator before falling through.
func (c *Coordinator[B]) Do(ctx context.Context, op string, fn func(B) error) error {
	if c.health.State() == Healthy {
		err := fn(c.primary)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("resource", c.name).Str("op", op).
				Msg("primary backend operation failed")
			c.health.MarkDegraded()
		}
	}
	return fn(c.fallback)
}
