package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const documentColumns = `id, permit_id, kind, file_name, content_type, storage_path, size_bytes,
	index_status, index_error, uploaded_by, created_at, updated_at`

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a document and sets its ID
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	now := time.Now().UTC()
	if doc.IndexStatus == "" {
		doc.IndexStatus = entity.IndexStatusPending
	}
	query := `
		INSERT INTO documents (
			permit_id, kind, file_name, content_type, storage_path, size_bytes,
			index_status, index_error, uploaded_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		doc.PermitID,
		doc.Kind,
		doc.FileName,
		doc.ContentType,
		doc.StoragePath,
		doc.SizeBytes,
		doc.IndexStatus,
		doc.IndexError,
		doc.UploadedBy,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create document", zap.Int64("permit_id", doc.PermitID), zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	doc.ID = id
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`

	doc, err := scanDocument(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByPermit retrieves a permit's documents, newest first
func (r *DocumentRepository) ListByPermit(ctx context.Context, permitID int64) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE permit_id = ? ORDER BY created_at DESC, id DESC`
	return r.query(ctx, query, permitID)
}

// GetPendingIndex retrieves documents waiting for text indexing, oldest first
func (r *DocumentRepository) GetPendingIndex(ctx context.Context, limit int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE index_status = ? ORDER BY id ASC LIMIT ?`
	return r.query(ctx, query, entity.IndexStatusPending, limit)
}

// UpdateIndexStatus records the outcome of indexing a document
func (r *DocumentRepository) UpdateIndexStatus(ctx context.Context, id int64, status, errorMsg string) error {
	query := `UPDATE documents SET index_status = ?, index_error = ?, updated_at = ? WHERE id = ?`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, status, errorMsg, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update index status",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to update index status: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a document; its chunks cascade
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete document", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireAffected(result)
}

func (r *DocumentRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Document, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query documents", zap.Error(err))
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*entity.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(s scanner) (*entity.Document, error) {
	var d entity.Document
	err := s.Scan(
		&d.ID,
		&d.PermitID,
		&d.Kind,
		&d.FileName,
		&d.ContentType,
		&d.StoragePath,
		&d.SizeBytes,
		&d.IndexStatus,
		&d.IndexError,
		&d.UploadedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

var _ port.DocumentRepository = (*DocumentRepository)(nil)
