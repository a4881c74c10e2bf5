package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sentiment_analysis_audit (
	id          TEXT PRIMARY KEY,
	file_name   TEXT NOT NULL DEFAULT '',
	text_column TEXT NOT NULL,
	delimiter   TEXT NOT NULL,
	rows        INTEGER NOT NULL,
	dropped     INTEGER NOT NULL,
	positive    INTEGER NOT NULL,
	negative    INTEGER NOT NULL,
	neutral     INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	ip_address  TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS sentiment_analysis_audit_created_at_idx
	ON sentiment_analysis_audit (created_at DESC);
`

const selectColumns = `id, file_name, text_column, delimiter, rows, dropped,
	positive, negative, neutral, duration_ms, ip_address, user_agent, created_at`

// PostgresStore keeps records in the sentiment_analysis_audit table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. Call EnsureSchema before first use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the audit table and index when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Record inserts rec. CreatedAt defaults to now when zero.
func (s *PostgresStore) Record(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sentiment_analysis_audit (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.FileName, rec.TextColumn, rec.Delimiter,
		rec.Rows, rec.Dropped, rec.Positive, rec.Negative, rec.Neutral,
		rec.DurationMS, rec.IPAddress, rec.UserAgent, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Recent returns the newest records first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM sentiment_analysis_audit
		ORDER BY created_at DESC
		LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[Record])
	if err != nil {
		return nil, fmt.Errorf("scan audit records: %w", err)
	}
	return records, nil
}

// PurgeOlderThan deletes records created before cutoff.
func (s *PostgresStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sentiment_analysis_audit WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit records: %w", err)
	}
	return tag.RowsAffected(), nil
}
