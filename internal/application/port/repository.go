package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
)

// ErrStatusConflict is returned by PermitRepository.Update when the stored
// status no longer matches the status the caller validated against
var ErrStatusConflict = errors.New("permit status changed concurrently")

// ErrRecordNotFound is returned by mutations that matched no row
var ErrRecordNotFound = errors.New("record not found")

// Lookups by ID return (nil, nil) when the row does not exist.

// PropertyRepository defines persistence operations for Property
type PropertyRepository interface {
	Create(ctx context.Context, property *entity.Property) error
	GetByID(ctx context.Context, id int64) (*entity.Property, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Property, error)
	Update(ctx context.Context, property *entity.Property) error
	Delete(ctx context.Context, id int64) error
}

// PermitRepository defines persistence operations for Permit
type PermitRepository interface {
	Create(ctx context.Context, p *entity.Permit) error
	GetByID(ctx context.Context, id int64) (*entity.Permit, error)
	List(ctx context.Context, filter entity.PermitFilter) ([]*entity.Permit, error)
	CountByProperty(ctx context.Context, propertyID int64) (int, error)

	// Update writes the non-nil fields of update and stamps. When
	// expectedStatus is set the row is only changed if its status still
	// equals it; otherwise ErrStatusConflict is returned.
	Update(ctx context.Context, id int64, update entity.PermitUpdate, stamps permit.TimestampUpdates, expectedStatus *permit.Status) error

	Delete(ctx context.Context, id int64) error

	// ListExpiring returns permits expiring before the given time that have
	// not been reminded yet
	ListExpiring(ctx context.Context, before time.Time, limit int) ([]*entity.Permit, error)
	MarkExpiryNotified(ctx context.Context, id int64, at time.Time) error
}

// TaskRepository defines persistence operations for Task
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	GetByID(ctx context.Context, id int64) (*entity.Task, error)
	List(ctx context.Context, filter entity.TaskFilter) ([]*entity.Task, error)
	Update(ctx context.Context, task *entity.Task) error
	Delete(ctx context.Context, id int64) error
}

// InspectionRepository defines persistence operations for Inspection
type InspectionRepository interface {
	Create(ctx context.Context, inspection *entity.Inspection) error
	GetByID(ctx context.Context, id int64) (*entity.Inspection, error)
	ListByPermit(ctx context.Context, permitID int64) ([]*entity.Inspection, error)
	Update(ctx context.Context, inspection *entity.Inspection) error
}

// DocumentRepository defines persistence operations for Document
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id int64) (*entity.Document, error)
	ListByPermit(ctx context.Context, permitID int64) ([]*entity.Document, error)
	GetPendingIndex(ctx context.Context, limit int) ([]*entity.Document, error)
	UpdateIndexStatus(ctx context.Context, id int64, status, errorMsg string) error
	Delete(ctx context.Context, id int64) error
}

// ChunkRepository defines persistence operations for DocumentChunk
type ChunkRepository interface {
	CreateBatch(ctx context.Context, chunks []*entity.DocumentChunk) error
	ListByPermit(ctx context.Context, permitID int64) ([]*entity.DocumentChunk, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.DocumentChunk, error)
	DeleteByDocument(ctx context.Context, documentID int64) error
}

// ConversationRepository defines persistence operations for chat threads
type ConversationRepository interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	GetByID(ctx context.Context, id int64) (*entity.Conversation, error)
	AddMessage(ctx context.Context, msg *entity.ChatMessage) error

	// ListMessages returns the latest limit messages in chronological order
	ListMessages(ctx context.Context, conversationID int64, limit int) ([]*entity.ChatMessage, error)
}

// ActivityRepository defines persistence operations for Activity
type ActivityRepository interface {
	Create(ctx context.Context, activity *entity.Activity) error
	ListByPermit(ctx context.Context, permitID int64, limit, offset int) ([]*entity.Activity, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
