package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Migration is one numbered SQL file, e.g. "001_initial_schema.sql"
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// Migrator applies migrations in version order and records each one with
// the checksum of its SQL. An applied file that later changes is an error.
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// RunMigrations executes all pending migrations found in fsys
func (m *Migrator) RunMigrations(ctx context.Context, fsys fs.FS) error {
	pending, err := m.Pending(ctx, fsys)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.Info("Database schema up to date")
		return nil
	}

	for _, migration := range pending {
		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))

		if err := m.apply(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	m.logger.Info("Database migrations completed", zap.Int("applied", len(pending)))
	return nil
}

// Pending returns the migrations in fsys that have not been applied yet
func (m *Migrator) Pending(ctx context.Context, fsys fs.FS) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}

	all, err := LoadMigrations(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	var pending []Migration
	for _, migration := range all {
		sum, done := applied[migration.Version]
		if !done {
			pending = append(pending, migration)
			continue
		}
		if sum != migration.Checksum {
			return nil, fmt.Errorf("migration %d (%s) was modified after it was applied",
				migration.Version, migration.Name)
		}
	}
	return pending, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			checksum   TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// applied maps version to recorded checksum
func (m *Migrator) applied(ctx context.Context) (map[int]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]string)
	for rows.Next() {
		var (
			version int
			sum     string
		)
		if err := rows.Scan(&version, &sum); err != nil {
			return nil, err
		}
		applied[version] = sum
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, migration Migration) error {
	return m.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)",
			migration.Version, migration.Name, migration.Checksum,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}

// LoadMigrations reads the .sql files at the root of fsys, sorted by version
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		filename := entry.Name()
		if entry.IsDir() || path.Ext(filename) != ".sql" {
			continue
		}

		migration, err := parseMigrationName(filename)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[migration.Version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", migration.Version, prev, filename)
		}
		seen[migration.Version] = filename

		content, err := fs.ReadFile(fsys, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}
		sum := sha256.Sum256(content)
		migration.SQL = string(content)
		migration.Checksum = hex.EncodeToString(sum[:])
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func parseMigrationName(filename string) (Migration, error) {
	prefix, rest, _ := strings.Cut(strings.TrimSuffix(filename, ".sql"), "_")
	var version int
	if _, err := fmt.Sscanf(prefix, "%d", &version); err != nil || version <= 0 {
		return Migration{}, fmt.Errorf("invalid migration filename %q, want NNN_name.sql", filename)
	}
	return Migration{Version: version, Name: rest}, nil
}
