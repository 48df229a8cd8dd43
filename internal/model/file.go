package model

import (
	"errors"
	"time"
)

// ErrInvalidLocation reports a FileRecord whose storage location is not
// exactly one of in-memory or on-disk.
var ErrInvalidLocation = errors.New("file record must have exactly one storage location")

// FileRecord represents a stored file in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// The payload bytes themselves are owned by the tier holding them (memory store
// or filesystem); the record only describes where they live.
type FileRecord struct {
	ID          string     `json:"id"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	InMemory    bool       `json:"is_in_memory"`
	Path        string     `json:"file_path,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	AccessedAt  time.Time  `json:"accessed_at"`
	AccessCount int        `json:"access_count"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Validate checks the storage-location invariant: an in-memory record carries
// no path, a disk record carries one.
func (r *FileRecord) Validate() error {
	if r.InMemory == (r.Path != "") {
		return ErrInvalidLocation
	}
	return nil
}

// ShortCode maps a short public alias to a file identifier.
// Immutable once written; a colliding insert overwrites the prior mapping.
type ShortCode struct {
	Code      string    `json:"short_code"`
	FileID    string    `json:"file_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RateLimitWindow is the per-client sliding counter state.
type RateLimitWindow struct {
	ClientKey   string    `json:"client_ip"`
	Count       int       `json:"request_count"`
	WindowStart time.Time `json:"window_start"`
	UpdatedAt   time.Time `json:"updated_at"`
}
