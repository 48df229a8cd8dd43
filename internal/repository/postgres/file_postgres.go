package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dropapi/internal/model"
	"dropapi/internal/repository"
)

// FilePostgres is the PostgreSQL implementation of repository.FileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

// Store inserts a new file record row.
func (r *FilePostgres) Store(ctx context.Context, rec *model.FileRecord) error {
	const q = `
		INSERT INTO file_records (id, filename, content_type, file_path, file_size, is_in_memory, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var path sql.NullString
	if rec.Path != "" {
		path = sql.NullString{String: rec.Path, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.Filename,
		rec.ContentType,
		path,
		rec.Size,
		rec.InMemory,
		rec.ExpiresAt,
	)
	return err
}

// Get fetches a record by id, refreshing accessed_at and incrementing
// access_count in the same statement.
func (r *FilePostgres) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	const q = `
		UPDATE file_records
		SET accessed_at = NOW(), access_count = access_count + 1
		WHERE id = $1
		RETURNING id, filename, content_type, file_path, file_size, is_in_memory,
		          created_at, accessed_at, access_count, expires_at
	`
	row := r.db.QueryRowContext(ctx, q, id)

	var rec model.FileRecord
	var path sql.NullString
	if err := row.Scan(
		&rec.ID,
		&rec.Filename,
		&rec.ContentType,
		&path,
		&rec.Size,
		&rec.InMemory,
		&rec.CreatedAt,
		&rec.AccessedAt,
		&rec.AccessCount,
		&rec.ExpiresAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	rec.Path = path.String
	return &rec, nil
}

// DeleteExpired removes all records whose expiry has passed and returns their
// identifiers so callers can reclaim the associated payloads.
func (r *FilePostgres) DeleteExpired(ctx context.Context) ([]string, error) {
	const q = `
		DELETE FROM file_records
		WHERE expires_at IS NOT NULL AND expires_at < NOW()
		RETURNING id
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AggregateStats returns record counts and total payload size.
func (r *FilePostgres) AggregateStats(ctx context.Context) (*model.StorageStats, error) {
	const q = `
		SELECT
			COUNT(*) AS total_files,
			COALESCE(SUM(file_size)::BIGINT, 0) AS total_size,
			COUNT(*) FILTER (WHERE is_in_memory) AS memory_files
		FROM file_records
	`
	var stats model.StorageStats
	if err := r.db.QueryRowContext(ctx, q).Scan(
		&stats.TotalFiles,
		&stats.TotalSize,
		&stats.MemoryFiles,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}
