package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresRecorder persists usage records in PostgreSQL.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder opens a connection pool against dsn and verifies
// connectivity.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresRecorder{db: db}, nil
}

// NewPostgresRecorderFromDB wraps an existing connection pool.
func NewPostgresRecorderFromDB(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Schema is the DDL for the usage table. Callers apply it through their
// own migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	backend       TEXT NOT NULL,
	feature       TEXT NOT NULL,
	input_units   INTEGER NOT NULL,
	output_units  INTEGER NOT NULL,
	cost_micros   BIGINT NOT NULL,
	latency_ms    BIGINT NOT NULL,
	cache_hit     BOOLEAN NOT NULL,
	fallback_used BOOLEAN NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS usage_records_user_time ON usage_records (user_id, created_at);
`

// Append inserts one record.
func (r *PostgresRecorder) Append(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO usage_records (
			id, user_id, backend, feature, input_units, output_units,
			cost_micros, latency_ms, cache_hit, fallback_used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.Backend, string(rec.Feature),
		rec.InputUnits, rec.OutputUnits, rec.CostMicros,
		rec.Latency.Milliseconds(), rec.CacheHit, rec.FallbackUsed,
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// ByUser returns a user's records within [start, end), newest first.
func (r *PostgresRecorder) ByUser(ctx context.Context, userID string, start, end time.Time, limit int) ([]Record, error) {
	query := `
		SELECT id, user_id, backend, feature, input_units, output_units,
		       cost_micros, latency_ms, cache_hit, fallback_used, created_at
		FROM usage_records
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC`
	args := []interface{}{userID, start, end}
	if limit > 0 {
		query += " LIMIT $4"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var rec Record
		var latencyMS int64
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Backend, &rec.Feature,
			&rec.InputUnits, &rec.OutputUnits, &rec.CostMicros,
			&latencyMS, &rec.CacheHit, &rec.FallbackUsed, &rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		rec.Latency = time.Duration(latencyMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SpendSince sums a user's cost since the given time.
func (r *PostgresRecorder) SpendSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(cost_micros) FROM usage_records WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum usage cost: %w", err)
	}
	return total.Int64, nil
}

// Close releases the connection pool.
func (r *PostgresRecorder) Close() error { return r.db.Close() }

var _ Recorder = (*PostgresRecorder)(nil)
var _ Recorder = (*MemoryRecorder)(nil)
