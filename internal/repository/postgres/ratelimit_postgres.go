package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dropapi/internal/repository"
)

// RateLimitPostgres is the PostgreSQL implementation of repository.RateLimitRepository.
type RateLimitPostgres struct {
	db *sql.DB
}

// NewRateLimitPostgres creates a new RateLimitPostgres repository.
func NewRateLimitPostgres(db *sql.DB) *RateLimitPostgres {
	return &RateLimitPostgres{db: db}
}

var _ repository.RateLimitRepository = (*RateLimitPostgres)(nil)

// Hit records one request for key within the sliding window. A row whose
// window_start is outside the window (or no row at all) is reset to a fresh
// window with count 1; a row at or above max rejects without incrementing.
func (r *RateLimitPostgres) Hit(ctx context.Context, key string, window time.Duration, max int) (bool, error) {
	now := time.Now().UTC()
	windowStart := now.Add(-window)

	const qSelect = `
		SELECT request_count
		FROM rate_limits
		WHERE client_ip = $1 AND window_start > $2
	`
	var count int
	err := r.db.QueryRowContext(ctx, qSelect, key, windowStart).Scan(&count)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		const qUpsert = `
			INSERT INTO rate_limits (client_ip, request_count, window_start)
			VALUES ($1, 1, $2)
			ON CONFLICT (client_ip)
			DO UPDATE SET request_count = 1, window_start = $2, updated_at = NOW()
		`
		if _, err := r.db.ExecContext(ctx, qUpsert, key, now); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	}

	if count >= max {
		return false, nil
	}

	const qUpdate = `
		UPDATE rate_limits
		SET request_count = request_count + 1, updated_at = NOW()
		WHERE client_ip = $1
	`
	if _, err := r.db.ExecContext(ctx, qUpdate, key); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteStale removes rate windows not updated within the grace period.
func (r *RateLimitPostgres) DeleteStale(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-grace)

	const q = `DELETE FROM rate_limits WHERE updated_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
