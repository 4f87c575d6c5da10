package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/G0V1NDS/city-list/store"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS parent_sync_failures (
    id           TEXT PRIMARY KEY,
    parent_kind  TEXT NOT NULL,
    parent_name  TEXT NOT NULL,
    child_name   TEXT NOT NULL,
    child_detail TEXT NOT NULL DEFAULT '',
    last_error   TEXT NOT NULL DEFAULT '',
    attempts     INTEGER NOT NULL DEFAULT 0,
    resolved_at  TIMESTAMPTZ,
    parked_at    TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
)`

const addParkedSQL = `
ALTER TABLE parent_sync_failures ADD COLUMN IF NOT EXISTS parked_at TIMESTAMPTZ`

const createIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_parent_sync_failures_due
    ON parent_sync_failures (updated_at) WHERE resolved_at IS NULL AND parked_at IS NULL`

// PostgresQueue persists failures in the parent_sync_failures table.
type PostgresQueue struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresQueue(db *sql.DB) *PostgresQueue {
	return &PostgresQueue{db: db, now: time.Now}
}

// EnsureSchema creates the table and its due index if missing.
func (q *PostgresQueue) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createTableSQL, addParkedSQL, createIndexSQL} {
		if _, err := q.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create parent_sync_failures schema: %w", err)
		}
	}
	return nil
}

func (q *PostgresQueue) Record(ctx context.Context, f Failure) error {
	f = newFailure(f, q.now())
	_, err := q.db.ExecContext(ctx, `
        INSERT INTO parent_sync_failures
            (id, parent_kind, parent_name, child_name, child_detail, last_error, attempts, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.ParentKind, f.ParentName, f.ChildName, f.ChildDetail, f.LastError, f.Attempts, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error recording parent sync failure: %w", err)
	}
	return nil
}

func (q *PostgresQueue) Pending(ctx context.Context, limit int) ([]Failure, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.QueryContext(ctx, `
        SELECT id, parent_kind, parent_name, child_name, child_detail, last_error, attempts, created_at, updated_at
        FROM parent_sync_failures
        WHERE resolved_at IS NULL AND parked_at IS NULL
        ORDER BY updated_at, id
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying pending parent sync failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.ID, &f.ParentKind, &f.ParentName, &f.ChildName, &f.ChildDetail,
			&f.LastError, &f.Attempts, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning parent sync failure: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parent sync failures: %w", err)
	}
	return out, nil
}

func (q *PostgresQueue) Resolve(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `
        UPDATE parent_sync_failures SET resolved_at = $2, updated_at = $2
        WHERE id = $1 AND resolved_at IS NULL`, id, q.now())
	if err != nil {
		return fmt.Errorf("error resolving parent sync failure: %w", err)
	}
	return expectOneRow(res)
}

func (q *PostgresQueue) Retry(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := q.db.ExecContext(ctx, `
        UPDATE parent_sync_failures SET attempts = attempts + 1, last_error = $2, updated_at = $3
        WHERE id = $1 AND resolved_at IS NULL`, id, msg, q.now())
	if err != nil {
		return fmt.Errorf("error updating parent sync failure: %w", err)
	}
	return expectOneRow(res)
}

func (q *PostgresQueue) Park(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := q.db.ExecContext(ctx, `
        UPDATE parent_sync_failures SET attempts = attempts + 1, last_error = $2, parked_at = $3, updated_at = $3
        WHERE id = $1 AND resolved_at IS NULL AND parked_at IS NULL`, id, msg, q.now())
	if err != nil {
		return fmt.Errorf("error parking parent sync failure: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return store.NotFound()
	}
	return nil
}
