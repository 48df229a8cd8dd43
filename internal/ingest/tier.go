package ingest

import (
	"os"

	"github.com/rs/zerolog/log"

	"dropapi/internal/mempool"
	"dropapi/internal/storage"
)

// Placement describes the tier a completed upload landed in.
type Placement struct {
	InMemory bool
	Path     string // set only for the disk tier
}

// Selector decides whether a completed on-disk file is promoted into memory
// or stays on disk. The stream threshold is a tiering hint only; the hard
// per-file cap has already been enforced during ingestion.
type Selector struct {
	pool      *mempool.Pool
	mem       *storage.MemoryStore
	threshold int64
}

// NewSelector creates a tier selector over the given pool and memory store.
func NewSelector(pool *mempool.Pool, mem *storage.MemoryStore, threshold int64) *Selector {
	return &Selector{pool: pool, mem: mem, threshold: threshold}
}

// Place promotes the file at path into the memory store when it is below the
// threshold and the pool grants a reservation; the temp file is then deleted.
// If the read-back fails after a granted reservation, the reservation is
// released and the file stays on disk. Otherwise the file stays on disk and
// the returned placement carries its path.
func (s *Selector) Place(id, path string, size int64) Placement {
	if size >= s.threshold || !s.pool.TryReserve(size) {
		return Placement{Path: path}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.pool.Release(size)
		log.Error().Err(err).Str("id", id).Msg("failed to read file into memory, keeping on disk")
		return Placement{Path: path}
	}

	s.mem.Put(id, data)
	if err := os.Remove(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove temp file after promotion")
	}
	return Placement{InMemory: true}
}
