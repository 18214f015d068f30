package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = sqlDB.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
	require.NoError(t, err)
	return NewDB(sqlDB, zap.NewNop())
}

func countNotes(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&n))
	return n
}

func insertNote(ctx context.Context, db *DB, body string) error {
	_, err := ExecutorFor(ctx, db.DB).ExecContext(ctx, "INSERT INTO notes (body) VALUES (?)", body)
	return err
}

func TestWithTransaction_Commits(t *testing.T) {
	db := newTestDB(t)

	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		return insertNote(ctx, db, "first")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countNotes(t, db))
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("boom")

	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, insertNote(ctx, db, "dropped"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countNotes(t, db))
}

func TestWithTransaction_NestedCallJoins(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("outer failed")

	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		inner := db.WithTransaction(ctx, func(ctx context.Context) error {
			return insertNote(ctx, db, "inner")
		})
		require.NoError(t, inner)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countNotes(t, db), "inner work rolls back with the outer transaction")
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)

	assert.Panics(t, func() {
		_ = db.WithTransaction(context.Background(), func(ctx context.Context) error {
			_ = insertNote(ctx, db, "dropped")
			panic("boom")
		})
	})
	assert.Equal(t, 0, countNotes(t, db))
}

func TestExecutorFor_WithoutTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	assert.False(t, InTransaction(ctx))
	require.NoError(t, insertNote(ctx, db, "direct"))
	assert.Equal(t, 1, countNotes(t, db))
}
