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

// ConversationRepository implements port.ConversationRepository
type ConversationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *sql.DB, logger *zap.Logger) port.ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a conversation and sets its ID
func (r *ConversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO conversations (permit_id, title, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		nullableInt64(conv.PermitID),
		conv.Title,
		conv.CreatedBy,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create conversation", zap.Error(err))
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	conv.ID = id
	conv.CreatedAt = now
	conv.UpdatedAt = now
	return nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, id int64) (*entity.Conversation, error) {
	query := `SELECT id, permit_id, title, created_by, created_at, updated_at FROM conversations WHERE id = ?`

	var c entity.Conversation
	var permitID sql.NullInt64
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&permitID,
		&c.Title,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get conversation by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	c.PermitID = int64Ptr(permitID)
	return &c, nil
}

// AddMessage appends a message and bumps the conversation's updated_at
func (r *ConversationRepository) AddMessage(ctx context.Context, msg *entity.ChatMessage) error {
	now := time.Now().UTC()
	exec := sqlite.ExecutorFor(ctx, r.db)

	result, err := exec.ExecContext(ctx,
		`INSERT INTO chat_messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		msg.ConversationID, msg.Role, msg.Content, now)
	if err != nil {
		r.logger.Error("Failed to add chat message",
			zap.Int64("conversation_id", msg.ConversationID),
			zap.Error(err))
		return fmt.Errorf("failed to add chat message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if _, err := exec.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, msg.ConversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}

	msg.ID = id
	msg.CreatedAt = now
	return nil
}

// ListMessages returns the latest limit messages in chronological order.
// A non-positive limit returns the whole thread.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID int64, limit int) ([]*entity.ChatMessage, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, conversation_id, role, content, created_at FROM (
			SELECT id, conversation_id, role, content, created_at
			FROM chat_messages
			WHERE conversation_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		r.logger.Error("Failed to list chat messages", zap.Int64("conversation_id", conversationID), zap.Error(err))
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*entity.ChatMessage, 0)
	for rows.Next() {
		var m entity.ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

var _ port.ConversationRepository = (*ConversationRepository)(nil)
