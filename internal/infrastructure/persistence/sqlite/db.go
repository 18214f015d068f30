// Package sqlite carries the transaction plumbing shared by the SQLite
// repositories. The open *sql.Tx travels in the context; repositories ask
// ExecutorFor for whichever of tx or db applies.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"go.uber.org/zap"
)

// DefaultSlowTxThreshold is how long a transaction may stay open before it
// is logged as slow. SQLite holds the write lock for the whole time.
const DefaultSlowTxThreshold = 500 * time.Millisecond

type txKey struct{}

// Executor covers both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB implements port.TransactionManager on a *sql.DB
type DB struct {
	*sql.DB
	logger *zap.Logger
	slow   time.Duration
}

// NewDB creates a new transaction manager
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     sqlDB,
		logger: logger,
		slow:   DefaultSlowTxThreshold,
	}
}

// WithTransaction runs fn inside a transaction and commits when fn returns
// nil. A call made with a ctx that already carries a transaction joins it.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	start := time.Now()
	defer func() {
		if elapsed := time.Since(start); elapsed > db.slow {
			db.logger.Warn("Slow transaction", zap.Duration("elapsed", elapsed), zap.Bool("committed", err == nil))
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			db.rollback(tx, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		db.rollback(tx, err)
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) rollback(tx *sql.Tx, cause error) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.Error("Failed to rollback transaction", zap.Error(err), zap.NamedError("cause", cause))
	}
}

// InTransaction reports whether ctx carries an open transaction
func InTransaction(ctx context.Context) bool {
	return extractTx(ctx) != nil
}

// ExecutorFor returns the transaction carried by ctx, or db when there is none
func ExecutorFor(ctx context.Context, db *sql.DB) Executor {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return db
}

func extractTx(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

var _ port.TransactionManager = (*DB)(nil)
