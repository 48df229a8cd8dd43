package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dropapi/internal/repository"
)

// AliasPostgres is the PostgreSQL implementation of repository.AliasRepository.
type AliasPostgres struct {
	db *sql.DB
}

// NewAliasPostgres creates a new AliasPostgres repository.
func NewAliasPostgres(db *sql.DB) *AliasPostgres {
	return &AliasPostgres{db: db}
}

var _ repository.AliasRepository = (*AliasPostgres)(nil)

// Store upserts the short code mapping. Collisions overwrite the prior file id.
func (r *AliasPostgres) Store(ctx context.Context, code, fileID string) error {
	const q = `
		INSERT INTO short_codes (short_code, file_id)
		VALUES ($1, $2)
		ON CONFLICT (short_code) DO UPDATE SET file_id = $2
	`
	_, err := r.db.ExecContext(ctx, q, code, fileID)
	return err
}

// Resolve returns the file id mapped to code.
func (r *AliasPostgres) Resolve(ctx context.Context, code string) (string, error) {
	const q = `SELECT file_id FROM short_codes WHERE short_code = $1`

	var fileID string
	if err := r.db.QueryRowContext(ctx, q, code).Scan(&fileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	return fileID, nil
}
