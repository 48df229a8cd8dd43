package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dropapi/internal/failover"
	"dropapi/internal/ingest"
	"dropapi/internal/mempool"
	"dropapi/internal/model"
	"dropapi/internal/ratelimit"
	"dropapi/internal/repository"
	"dropapi/internal/repository/memory"
	"dropapi/internal/shortcode"
	"dropapi/internal/storage"
)

var (
	ErrNoFile      = errors.New("no file in request")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrNotFound    = errors.New("file not found")
)

// maxFilenameLength bounds sanitized filenames; longer names keep the head
// and tail around an ellipsis.
const maxFilenameLength = 200

// Pinger is the connectivity probe of the primary backend. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatsProvider reports aggregate record counts from the primary backend.
type StatsProvider interface {
	AggregateStats(ctx context.Context) (*model.StorageStats, error)
}

// DropService defines the use cases for uploading and serving files.
type DropService interface {
	// Upload ingests one byte stream and returns the generated identifier
	// plus short and full download URLs.
	Upload(ctx context.Context, r io.Reader, filename, contentType, clientIP string) (*model.UploadResult, error)

	// Download resolves an identifier or alias to a record and a payload
	// stream. The record's access stats are touched as a side effect.
	Download(ctx context.Context, idOrCode string) (*model.FileRecord, io.ReadCloser, error)

	// Health probes the primary backend (the only transition that can
	// restore the health indicator) and reports pool and storage stats.
	Health(ctx context.Context) *model.HealthStatus
}

// Deps wires a dropService. Primary-backend handles (DB, Stats) are nil when
// no database is configured.
type Deps struct {
	Limiter  *ratelimit.Limiter
	Engine   *ingest.Engine
	Selector *ingest.Selector
	Pool     *mempool.Pool
	Mem      *storage.MemoryStore
	Files    *failover.Coordinator[repository.FileRepository]
	Aliases  *failover.Coordinator[repository.AliasRepository]
	Resolver *shortcode.Resolver

	FallbackFiles *memory.FileStore
	DB            Pinger
	Stats         StatsProvider

	AppHost        string
	MaxRequestSize int64
}

type dropService struct {
	Deps
	active atomic.Int64
}

// NewDropService constructs a DropService.
func NewDropService(deps Deps) DropService {
	return &dropService{Deps: deps}
}

func (s *dropService) Upload(ctx context.Context, r io.Reader, filename, contentType, clientIP string) (*model.UploadResult, error) {
	allowed, err := s.Limiter.Admit(ctx, clientIP)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	if r == nil {
		return nil, ErrNoFile
	}

	s.active.Add(1)
	defer s.active.Add(-1)

	filename = sanitizeFilename(filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := uuid.New().String()
	code := shortcode.Generate()

	budget := ingest.NewBudget(s.MaxRequestSize)
	size, err := s.Engine.SaveStream(ctx, r, id, budget)
	if err != nil {
		return nil, err
	}

	placement := s.Selector.Place(id, s.Engine.TempPath(id), size)

	rec := &model.FileRecord{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		InMemory:    placement.InMemory,
		Path:        placement.Path,
	}
	if err := rec.Validate(); err != nil {
		s.discardPayload(rec)
		return nil, err
	}

	if err := s.Files.Do(ctx, "store", func(b repository.FileRepository) error {
		return b.Store(ctx, rec)
	}); err != nil {
		s.discardPayload(rec)
		return nil, fmt.Errorf("store file record: %w", err)
	}

	if err := s.Aliases.Do(ctx, "store", func(b repository.AliasRepository) error {
		return b.Store(ctx, code, id)
	}); err != nil {
		// The record is durable and reachable by id; losing the alias only
		// costs the short URL.
		log.Warn().Err(err).Str("id", id).Msg("failed to store short code")
		code = ""
	}

	log.Info().
		Str("id", id).
		Str("filename", filename).
		Str("size", formatSize(size)).
		Bool("in_memory", rec.InMemory).
		Msg("file stored")

	res := &model.UploadResult{
		ID:      id,
		FullURL: fmt.Sprintf("http://%s/drop/%s", s.AppHost, id),
	}
	if code != "" {
		res.ShortURL = fmt.Sprintf("http://%s/drop/%s", s.AppHost, code)
	}
	return res, nil
}

// discardPayload reclaims whichever tier holds the payload for a record that
// will not be persisted.
func (s *dropService) discardPayload(rec *model.FileRecord) {
	if rec.InMemory {
		s.Mem.Delete(rec.ID)
		return
	}
	if err := s.Engine.Remove(rec.ID); err != nil {
		log.Warn().Err(err).Str("id", rec.ID).Msg("failed to remove temp file")
	}
}

func (s *dropService) Download(ctx context.Context, idOrCode string) (*model.FileRecord, io.ReadCloser, error) {
	id, err := s.Resolver.Resolve(ctx, idOrCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	var rec *model.FileRecord
	if err := s.Files.Do(ctx, "get", func(b repository.FileRepository) error {
		r, err := b.Get(ctx, id)
		if err != nil {
			return err
		}
		rec = r
		return nil
	}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	if rec.InMemory {
		data, ok := s.Mem.Get(rec.ID)
		if !ok {
			return nil, nil, fmt.Errorf("memory payload missing for %s", rec.ID)
		}
		return rec, io.NopCloser(bytes.NewReader(data)), nil
	}

	f, err := os.Open(rec.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open payload: %w", err)
	}
	return rec, f, nil
}

func (s *dropService) Health(ctx context.Context) *model.HealthStatus {
	health := s.Files.Health()

	database := "not_configured"
	if s.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(pingCtx); err != nil {
			health.MarkDegraded()
			database = "unhealthy"
		} else {
			health.MarkHealthy()
			database = "healthy"
		}
	}

	status := "healthy"
	if database == "unhealthy" {
		status = "degraded"
	}

	stats := s.collectStats(ctx, database)

	return &model.HealthStatus{
		Status:            status,
		Database:          database,
		MemoryPool:        fmt.Sprintf("%d MB / %d MB", s.Pool.Allocated()/(1024*1024), s.Pool.Capacity()/(1024*1024)),
		ActiveConnections: s.active.Load(),
		StorageStats:      stats,
	}
}

func (s *dropService) collectStats(ctx context.Context, database string) *model.StorageStats {
	var stats *model.StorageStats
	if database == "healthy" && s.Stats != nil {
		st, err := s.Stats.AggregateStats(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("failed to collect storage stats")
		} else {
			stats = st
		}
	}
	if stats == nil {
		// Fallback counts only cover the in-process store.
		n := int64(s.FallbackFiles.Len())
		stats = &model.StorageStats{
			TotalFiles:  n,
			MemoryFiles: int64(s.Mem.Len()),
		}
	}
	stats.MemoryUsageMB = s.Pool.Allocated() / (1024 * 1024)
	stats.PoolSizeMB = s.Pool.Capacity() / (1024 * 1024)
	return stats
}

// sanitizeFilename strips path components and control characters, bounds the
// length, and falls back to a fixed name for empty or dot-only inputs.
func sanitizeFilename(name string) string {
	// Keep only the final path element, for either separator style.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." {
		return "unknown_file"
	}
	if len(name) > maxFilenameLength {
		return name[:100] + "..." + name[len(name)-50:]
	}
	return name
}

func formatSize(size int64) string {
	units := []string{"B", "KB", "MB", "GB"}
	f := float64(size)
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", f, units[i])
}
