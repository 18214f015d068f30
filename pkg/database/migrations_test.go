package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadMigrations_SortsByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_notes.sql":      {Data: []byte("ALTER TABLE t ADD COLUMN notes TEXT;")},
		"001_initial_schema.sql": {Data: []byte("CREATE TABLE t (id INTEGER PRIMARY KEY);")},
		"README.md":              {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "initial_schema", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestLoadMigrations_RejectsBadNames(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{"schema.sql": {Data: []byte("")}})
	assert.Error(t, err)

	_, err = LoadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("")},
		"001_b.sql": {Data: []byte("")},
	})
	assert.ErrorContains(t, err, "duplicate migration version")
}

func TestMigrator_RunMigrationsIsIdempotent(t *testing.T) {
	logger := zap.NewNop()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db")}, logger)
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"001_initial_schema.sql": {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT);")},
	}

	migrator := NewMigrator(db, logger)
	ctx := context.Background()
	require.NoError(t, migrator.RunMigrations(ctx, fsys))
	require.NoError(t, migrator.RunMigrations(ctx, fsys))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	_, err = db.Exec("INSERT INTO widgets (name) VALUES ('a')")
	assert.NoError(t, err)
}

func TestMigrator_PendingAndModifiedFiles(t *testing.T) {
	logger := zap.NewNop()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db")}, logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	migrator := NewMigrator(db, logger)
	fsys := fstest.MapFS{
		"001_initial_schema.sql": {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"002_add_name.sql":       {Data: []byte("ALTER TABLE widgets ADD COLUMN name TEXT;")},
	}

	pending, err := migrator.Pending(ctx, fsys)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, migrator.RunMigrations(ctx, fsys))
	pending, err = migrator.Pending(ctx, fsys)
	require.NoError(t, err)
	assert.Empty(t, pending)

	fsys["002_add_name.sql"] = &fstest.MapFile{Data: []byte("ALTER TABLE widgets ADD COLUMN title TEXT;")}
	err = migrator.RunMigrations(ctx, fsys)
	assert.ErrorContains(t, err, "modified after it was applied")
}

func TestLoadMigrations_Checksum(t *testing.T) {
	a, err := LoadMigrations(fstest.MapFS{"001_a.sql": {Data: []byte("SELECT 1;")}})
	require.NoError(t, err)
	b, err := LoadMigrations(fstest.MapFS{"001_a.sql": {Data: []byte("SELECT 2;")}})
	require.NoError(t, err)
	assert.Len(t, a[0].Checksum, 64)
	assert.NotEqual(t, a[0].Checksum, b[0].Checksum)
}
