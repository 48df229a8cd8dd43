// Package storage holds file payload bytes for the memory tier.
//
// Disk-tier payloads live directly on the filesystem under the configured temp
// directory; only memory-tier payloads pass through this package. Each stored
// payload corresponds to exactly one granted pool reservation, released when
// the payload is removed.
package storage

import (
	"sync"

	"dropapi/internal/mempool"
)

// MemoryStore maps file identifiers to in-memory payload bytes.
// Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	pool  *mempool.Pool
}

// NewMemoryStore creates an empty payload store coupled to the given pool.
func NewMemoryStore(pool *mempool.Pool) *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
		pool:  pool,
	}
}

// Put stores the payload under id. The caller must already hold a pool
// reservation for len(data) bytes; ownership of the reservation transfers to
// the store.
func (s *MemoryStore) Put(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = data
}

// Get returns the payload for id, if present.
func (s *MemoryStore) Get(id string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[id]
	return data, ok
}

// Delete removes the payload for id and releases its pool reservation.
// Deleting an absent id is a no-op.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[id]
	if !ok {
		return
	}
	delete(s.blobs, id)
	s.pool.Release(int64(len(data)))
}

// Len returns the number of payloads currently held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
