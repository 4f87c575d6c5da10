package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/G0V1NDS/city-list/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func setupMockQueue(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresQueue) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	q := NewPostgresQueue(db)
	q.now = func() time.Time { return fixedNow }
	return db, mock, q
}

func TestPostgresQueue_EnsureSchema(t *testing.T) {
	db, mock, q := setupMockQueue(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS parent_sync_failures`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ADD COLUMN IF NOT EXISTS parked_at`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_parent_sync_failures_due`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, q.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_Record(t *testing.T) {
	db, mock, q := setupMockQueue(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO parent_sync_failures`).
		WithArgs("f-1", ParentState, "Kerala", "Idukki", "596", "timeout", 0, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := q.Record(context.Background(), Failure{
		ID: "f-1", ParentKind: ParentState, ParentName: "Kerala",
		ChildName: "Idukki", ChildDetail: "596", LastError: "timeout",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_Pending(t *testing.T) {
	db, mock, q := setupMockQueue(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "parent_kind", "parent_name", "child_name", "child_detail", "last_error", "attempts", "created_at", "updated_at",
	}).
		AddRow("f-1", ParentState, "Kerala", "Idukki", "596", "timeout", 0, fixedNow, fixedNow).
		AddRow("f-2", ParentDistrict, "Idukki", "Thodupuzha", "Urban", "", 2, fixedNow, fixedNow)

	mock.ExpectQuery(`WHERE resolved_at IS NULL AND parked_at IS NULL\s+ORDER BY updated_at, id`).WithArgs(10).WillReturnRows(rows)

	pending, err := q.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Idukki", pending[0].ChildName)
	assert.Equal(t, 2, pending[1].Attempts)
	assert.Equal(t, ParentDistrict, pending[1].ParentKind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_ResolveNotFound(t *testing.T) {
	db, mock, q := setupMockQueue(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE parent_sync_failures SET resolved_at`).
		WithArgs("missing", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := q.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_Retry(t *testing.T) {
	db, mock, q := setupMockQueue(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE parent_sync_failures SET attempts = attempts \+ 1`).
		WithArgs("f-1", "still down", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, q.Retry(context.Background(), "f-1", errors.New("still down")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_Park(t *testing.T) {
	db, mock, q := setupMockQueue(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE parent_sync_failures SET attempts = attempts \+ 1, last_error = \$2, parked_at = \$3`).
		WithArgs("f-1", "not found", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`parked_at = \$3`).
		WithArgs("f-1", "not found", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, q.Park(context.Background(), "f-1", errors.New("not found")))
	assert.ErrorIs(t, q.Park(context.Background(), "f-1", errors.New("not found")), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_QueryError(t *testing.T) {
	db, mock, q := setupMockQueue(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, parent_kind`).WillReturnError(errors.New("connection reset"))

	_, err := q.Pending(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
