package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome is the ledger row for one processed document.
type Outcome struct {
	Bucket      string
	Key         string
	Status      Status
	Processor   string
	Reason      string
	EnrichedKey string
	ProcessedAt time.Time
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Ledger records the latest outcome for each source document in Postgres.
type Ledger struct {
	db   execer
	pool *pgxpool.Pool
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS enrichment_outcomes (
	bucket       TEXT        NOT NULL,
	object_key   TEXT        NOT NULL,
	status       TEXT        NOT NULL,
	processor    TEXT        NOT NULL DEFAULT '',
	reason       TEXT        NOT NULL DEFAULT '',
	enriched_key TEXT        NOT NULL DEFAULT '',
	attempts     INTEGER     NOT NULL DEFAULT 1,
	processed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (bucket, object_key)
)`

const recordSQL = `
INSERT INTO enrichment_outcomes (bucket, object_key, status, processor, reason, enriched_key, processed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (bucket, object_key) DO UPDATE SET
	status       = EXCLUDED.status,
	processor    = EXCLUDED.processor,
	reason       = EXCLUDED.reason,
	enriched_key = EXCLUDED.enriched_key,
	processed_at = EXCLUDED.processed_at,
	attempts     = enrichment_outcomes.attempts + 1`

// NewLedger opens a connection pool to dsn and creates the outcome table.
func NewLedger(ctx context.Context, dsn string) (*Ledger, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	l := &Ledger{db: pool, pool: pool}
	if err := l.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) migrate(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create enrichment_outcomes: %w", err)
	}
	return nil
}

// Record upserts o, counting repeated deliveries of the same object.
func (l *Ledger) Record(ctx context.Context, o Outcome) error {
	if o.ProcessedAt.IsZero() {
		o.ProcessedAt = time.Now().UTC()
	}
	_, err := l.db.Exec(ctx, recordSQL, o.Bucket, o.Key, string(o.Status), o.Processor, o.Reason, o.EnrichedKey, o.ProcessedAt)
	if err != nil {
		return fmt.Errorf("record outcome for %s/%s: %w", o.Bucket, o.Key, err)
	}
	return nil
}

func (l *Ledger) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}
