// Package memory provides the transient in-process implementations of the
// repository interfaces. They back the failover coordinators during primary
// outages (and the whole service when no primary is configured), so each store
// takes a single coarse lock over its backing map. Everything here is lost
// when the process exits; nothing is reconciled back to the primary.
package memory

import (
	"context"
	"sync"
	"time"

	"dropapi/internal/model"
	"dropapi/internal/repository"
)

// FileStore is the in-process implementation of repository.FileRepository.
type FileStore struct {
	mu      sync.Mutex
	records map[string]*model.FileRecord
}

// NewFileStore creates an empty in-process file record store.
func NewFileStore() *FileStore {
	return &FileStore{records: make(map[string]*model.FileRecord)}
}

var _ repository.FileRepository = (*FileStore)(nil)

// Store saves a copy of the record.
func (s *FileStore) Store(_ context.Context, rec *model.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
		cp.AccessedAt = cp.CreatedAt
	}
	s.records[cp.ID] = &cp
	return nil
}

// Get returns a copy of the record for id and touches its access stats.
func (s *FileStore) Get(_ context.Context, id string) (*model.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rec.AccessedAt = time.Now().UTC()
	rec.AccessCount++
	cp := *rec
	return &cp, nil
}

// Delete removes the record for id, if present.
func (s *FileStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// Len returns the number of records held.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// AliasStore is the in-process implementation of repository.AliasRepository.
type AliasStore struct {
	mu      sync.Mutex
	aliases map[string]string
}

// NewAliasStore creates an empty in-process alias store.
func NewAliasStore() *AliasStore {
	return &AliasStore{aliases: make(map[string]string)}
}

var _ repository.AliasRepository = (*AliasStore)(nil)

// Store writes the mapping, overwriting any colliding code.
func (s *AliasStore) Store(_ context.Context, code, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[code] = fileID
	return nil
}

// Resolve returns the file id for code.
func (s *AliasStore) Resolve(_ context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fileID, ok := s.aliases[code]
	if !ok {
		return "", repository.ErrNotFound
	}
	return fileID, nil
}

// RateLimitStore is the in-process implementation of repository.RateLimitRepository.
type RateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*model.RateLimitWindow
}

// NewRateLimitStore creates an empty in-process rate limit store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{windows: make(map[string]*model.RateLimitWindow)}
}

var _ repository.RateLimitRepository = (*RateLimitStore)(nil)

// Hit records one request for key under the whole-map lock.
func (s *RateLimitStore) Hit(_ context.Context, key string, window time.Duration, max int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	w, ok := s.windows[key]
	if !ok || now.Sub(w.WindowStart) > window {
		s.windows[key] = &model.RateLimitWindow{
			ClientKey:   key,
			Count:       1,
			WindowStart: now,
			UpdatedAt:   now,
		}
		return true, nil
	}

	if w.Count >= max {
		return false, nil
	}
	w.Count++
	w.UpdatedAt = now
	return true, nil
}
