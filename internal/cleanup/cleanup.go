// Package cleanup reaps expired file records and stale rate-limit windows.
//
// The sweeper acts only on the persistent backend: fallback-backend entries
// are never swept and die with the process. Payloads belonging to reaped
// records are reclaimed from whichever tier holds them.
package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"dropapi/internal/ingest"
	"dropapi/internal/storage"
)

// rateLimitGrace is how long a rate window is kept beyond its last update.
const rateLimitGrace = 10 * time.Minute

// FileReaper is satisfied by the Postgres file repository.
type FileReaper interface {
	DeleteExpired(ctx context.Context) ([]string, error)
}

// RateLimitReaper is satisfied by the Postgres rate-limit repository.
type RateLimitReaper interface {
	DeleteStale(ctx context.Context, grace time.Duration) (int64, error)
}

// Sweeper periodically removes expired records and their payloads.
type Sweeper struct {
	files  FileReaper
	rates  RateLimitReaper
	mem    *storage.MemoryStore
	engine *ingest.Engine
}

// NewSweeper creates a sweeper over the persistent repositories.
func NewSweeper(files FileReaper, rates RateLimitReaper, mem *storage.MemoryStore, engine *ingest.Engine) *Sweeper {
	return &Sweeper{files: files, rates: rates, mem: mem, engine: engine}
}

// Sweep runs one pass: expired file records are deleted and their payloads
// reclaimed, then stale rate windows are dropped.
func (s *Sweeper) Sweep(ctx context.Context) {
	ids, err := s.files.DeleteExpired(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("sweep: delete expired files failed")
	} else if len(ids) > 0 {
		for _, id := range ids {
			s.mem.Delete(id)
			if err := s.engine.Remove(id); err != nil {
				log.Warn().Err(err).Str("id", id).Msg("sweep: remove disk payload failed")
			}
		}
		log.Info().Int("count", len(ids)).Msg("sweep: removed expired files")
	}

	n, err := s.rates.DeleteStale(ctx, rateLimitGrace)
	if err != nil {
		log.Warn().Err(err).Msg("sweep: delete stale rate limits failed")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("sweep: removed stale rate limit windows")
	}
}

// Run sweeps on the given interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
