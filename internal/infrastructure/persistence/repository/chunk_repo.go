package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const chunkColumns = `id, document_id, permit_id, chunk_index, content, embedding, created_at`

// ChunkRepository implements port.ChunkRepository. Embeddings are stored
// as a JSON array in a TEXT column; an empty string means no vector.
type ChunkRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db *sql.DB, logger *zap.Logger) port.ChunkRepository {
	return &ChunkRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts chunks in one transaction
func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []*entity.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return sqlite.NewDB(r.db, r.logger).WithTransaction(ctx, func(ctx context.Context) error {
		exec := sqlite.ExecutorFor(ctx, r.db)
		now := time.Now().UTC()
		query := `
			INSERT INTO document_chunks (document_id, permit_id, chunk_index, content, embedding, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`

		for _, chunk := range chunks {
			embedding, err := encodeEmbedding(chunk.Embedding)
			if err != nil {
				return err
			}

			result, err := exec.ExecContext(ctx, query,
				chunk.DocumentID,
				chunk.PermitID,
				chunk.ChunkIndex,
				chunk.Content,
				embedding,
				now,
			)
			if err != nil {
				r.logger.Error("Failed to create chunk",
					zap.Int64("document_id", chunk.DocumentID),
					zap.Int("chunk_index", chunk.ChunkIndex),
					zap.Error(err))
				return fmt.Errorf("failed to create chunk: %w", err)
			}

			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
			chunk.ID = id
			chunk.CreatedAt = now
		}
		return nil
	})
}

// ListByPermit retrieves every chunk indexed for a permit
func (r *ChunkRepository) ListByPermit(ctx context.Context, permitID int64) ([]*entity.DocumentChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM document_chunks WHERE permit_id = ? ORDER BY document_id ASC, chunk_index ASC`
	return r.query(ctx, query, permitID)
}

// ListRecent retrieves the most recently indexed chunks across all permits
func (r *ChunkRepository) ListRecent(ctx context.Context, limit int) ([]*entity.DocumentChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM document_chunks ORDER BY id DESC LIMIT ?`
	return r.query(ctx, query, limit)
}

// DeleteByDocument removes all chunks of a document
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID int64) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM document_chunks WHERE document_id = ?`, documentID)
	if err != nil {
		r.logger.Error("Failed to delete chunks", zap.Int64("document_id", documentID), zap.Error(err))
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (r *ChunkRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.DocumentChunk, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query chunks", zap.Error(err))
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]*entity.DocumentChunk, 0)
	for rows.Next() {
		var c entity.DocumentChunk
		var embedding string
		if err := rows.Scan(
			&c.ID,
			&c.DocumentID,
			&c.PermitID,
			&c.ChunkIndex,
			&c.Content,
			&embedding,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}

		c.Embedding, err = decodeEmbedding(embedding)
		if err != nil {
			r.logger.Warn("Discarding unreadable embedding", zap.Int64("chunk_id", c.ID), zap.Error(err))
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func encodeEmbedding(v []float32) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode embedding: %w", err)
	}
	return string(data), nil
}

func decodeEmbedding(s string) ([]float32, error) {
	if s == "" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

var _ port.ChunkRepository = (*ChunkRepository)(nil)
