package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_file_records",
		SQL: `CREATE TABLE IF NOT EXISTS file_records (
  id           UUID        PRIMARY KEY,
  filename     TEXT        NOT NULL,
  content_type TEXT        NOT NULL,
  file_path    TEXT,
  file_size    BIGINT      NOT NULL CHECK (file_size >= 0),
  is_in_memory BOOLEAN     NOT NULL DEFAULT FALSE,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  accessed_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  access_count INTEGER     NOT NULL DEFAULT 0,
  expires_at   TIMESTAMPTZ,
  CONSTRAINT one_storage_location CHECK (is_in_memory = (file_path IS NULL))
);`,
	},
	{
		Name: "create_index_file_records_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_file_records_expires_at ON file_records (expires_at) WHERE expires_at IS NOT NULL;`,
	},
	{
		Name: "create_table_short_codes",
		SQL: `CREATE TABLE IF NOT EXISTS short_codes (
  short_code TEXT        PRIMARY KEY,
  file_id    UUID        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_rate_limits",
		SQL: `CREATE TABLE IF NOT EXISTS rate_limits (
  client_ip     TEXT        PRIMARY KEY,
  request_count INTEGER     NOT NULL DEFAULT 1,
  window_start  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_rate_limits_updated_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_rate_limits_updated_at ON rate_limits (updated_at);`,
	},
}

// EnsureMigrated checks if the 'file_records' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, dbHost string) error {
	start := time.Now()

	var exists bool
	query := "SELECT to_regclass('public.file_records') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().Err(err).Str("db_host", dbHost).Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().Str("db_host", dbHost).Msg("schema already exists, skipping migration")
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().Err(err).
				Str("migration_step", step.Name).
				Str("db_host", dbHost).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info().
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("migration step applied")
	}

	log.Info().
		Str("db_host", dbHost).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("migration complete")

	return nil
}
