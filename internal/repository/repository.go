// Package repository contains data access abstractions for file records,
// short-code mappings, and rate-limit counters. Each interface has a
// PostgreSQL implementation (the primary backend) and an in-process
// implementation (the fallback backend) in subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"dropapi/internal/model"
)

// ErrNotFound is returned when a key resolves to nothing. It is a lookup
// miss, not a backend failure: the failover coordinator consults the fallback
// on a miss without degrading the primary.
var ErrNotFound = errors.New("record not found")

// FileRepository defines persistence for file metadata records.
type FileRepository interface {
	// Store inserts a new file record.
	Store(ctx context.Context, rec *model.FileRecord) error

	// Get returns the record for id and touches its access stats
	// (accessed_at refreshed, access_count incremented).
	Get(ctx context.Context, id string) (*model.FileRecord, error)
}

// AliasRepository defines persistence for short-code mappings.
type AliasRepository interface {
	// Store writes the alias -> file id mapping. A colliding code overwrites
	// the previous mapping rather than failing.
	Store(ctx context.Context, code, fileID string) error

	// Resolve returns the file id for the alias, or ErrNotFound.
	Resolve(ctx context.Context, code string) (string, error)
}

// RateLimitRepository defines the per-client sliding counter.
type RateLimitRepository interface {
	// Hit records one request for key and reports whether it is within the
	// per-window maximum. A window older than the configured length resets
	// the counter to 1.
	Hit(ctx context.Context, key string, window time.Duration, max int) (bool, error)
}
