package service

import (
	"context"
	"io"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
	"github.com/garyjia/permits-on-the-go/internal/rag"
)

// Mock repositories
type mockPermitRepo struct {
	createFunc          func(ctx context.Context, p *entity.Permit) error
	getByIDFunc         func(ctx context.Context, id int64) (*entity.Permit, error)
	listFunc            func(ctx context.Context, filter entity.PermitFilter) ([]*entity.Permit, error)
	countByPropertyFunc func(ctx context.Context, propertyID int64) (int, error)
	updateFunc          func(ctx context.Context, id int64, update entity.PermitUpdate, stamps permit.TimestampUpdates, expected *permit.Status) error
	deleteFunc          func(ctx context.Context, id int64) error
	listExpiringFunc    func(ctx context.Context, before time.Time, limit int) ([]*entity.Permit, error)
}

func (m *mockPermitRepo) Create(ctx context.Context, p *entity.Permit) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, p)
	}
	p.ID = 1
	return nil
}

func (m *mockPermitRepo) GetByID(ctx context.Context, id int64) (*entity.Permit, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Permit{ID: id, PropertyID: 1, Title: "Kitchen remodel", Status: permit.StatusDraft}, nil
}

func (m *mockPermitRepo) List(ctx context.Context, filter entity.PermitFilter) ([]*entity.Permit, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.Permit{}, nil
}

func (m *mockPermitRepo) CountByProperty(ctx context.Context, propertyID int64) (int, error) {
	if m.countByPropertyFunc != nil {
		return m.countByPropertyFunc(ctx, propertyID)
	}
	return 0, nil
}

func (m *mockPermitRepo) Update(ctx context.Context, id int64, update entity.PermitUpdate, stamps permit.TimestampUpdates, expected *permit.Status) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, update, stamps, expected)
	}
	return nil
}

func (m *mockPermitRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockPermitRepo) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*entity.Permit, error) {
	if m.listExpiringFunc != nil {
		return m.listExpiringFunc(ctx, before, limit)
	}
	return []*entity.Permit{}, nil
}

func (m *mockPermitRepo) MarkExpiryNotified(ctx context.Context, id int64, at time.Time) error {
	return nil
}

type mockPropertyRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.Property, error)
	deleteFunc  func(ctx context.Context, id int64) error
}

func (m *mockPropertyRepo) Create(ctx context.Context, property *entity.Property) error {
	property.ID = 1
	return nil
}

func (m *mockPropertyRepo) GetByID(ctx context.Context, id int64) (*entity.Property, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Property{ID: id, Name: "Elm Street Duplex", Address: "12 Elm St"}, nil
}

func (m *mockPropertyRepo) List(ctx context.Context, limit, offset int) ([]*entity.Property, error) {
	return []*entity.Property{}, nil
}

func (m *mockPropertyRepo) Update(ctx context.Context, property *entity.Property) error {
	return nil
}

func (m *mockPropertyRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockActivityRepo struct {
	created []*entity.Activity
}

func (m *mockActivityRepo) Create(ctx context.Context, activity *entity.Activity) error {
	m.created = append(m.created, activity)
	return nil
}

func (m *mockActivityRepo) ListByPermit(ctx context.Context, permitID int64, limit, offset int) ([]*entity.Activity, error) {
	return m.created, nil
}

type mockTaskRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.Task, error)
	updated     *entity.Task
}

func (m *mockTaskRepo) Create(ctx context.Context, task *entity.Task) error {
	task.ID = 1
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTaskRepo) List(ctx context.Context, filter entity.TaskFilter) ([]*entity.Task, error) {
	return []*entity.Task{}, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *entity.Task) error {
	m.updated = task
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id int64) error {
	return port.ErrRecordNotFound
}

type mockInspectionRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.Inspection, error)
	created     *entity.Inspection
	updated     *entity.Inspection
}

func (m *mockInspectionRepo) Create(ctx context.Context, inspection *entity.Inspection) error {
	inspection.ID = 7
	m.created = inspection
	return nil
}

func (m *mockInspectionRepo) GetByID(ctx context.Context, id int64) (*entity.Inspection, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockInspectionRepo) ListByPermit(ctx context.Context, permitID int64) ([]*entity.Inspection, error) {
	return []*entity.Inspection{}, nil
}

func (m *mockInspectionRepo) Update(ctx context.Context, inspection *entity.Inspection) error {
	m.updated = inspection
	return nil
}

type mockDocumentRepo struct {
	getByIDFunc      func(ctx context.Context, id int64) (*entity.Document, error)
	createFunc       func(ctx context.Context, doc *entity.Document) error
	listByPermitFunc func(ctx context.Context, permitID int64) ([]*entity.Document, error)
	created          *entity.Document
	deleted          []int64
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, doc)
	}
	doc.ID = 3
	m.created = doc
	return nil
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDocumentRepo) ListByPermit(ctx context.Context, permitID int64) ([]*entity.Document, error) {
	if m.listByPermitFunc != nil {
		return m.listByPermitFunc(ctx, permitID)
	}
	return []*entity.Document{}, nil
}

func (m *mockDocumentRepo) GetPendingIndex(ctx context.Context, limit int) ([]*entity.Document, error) {
	return []*entity.Document{}, nil
}

func (m *mockDocumentRepo) UpdateIndexStatus(ctx context.Context, id int64, status, errorMsg string) error {
	return nil
}

func (m *mockDocumentRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockChunkRepo struct {
	listByPermitFunc func(ctx context.Context, permitID int64) ([]*entity.DocumentChunk, error)
	listRecentFunc   func(ctx context.Context, limit int) ([]*entity.DocumentChunk, error)
	deletedDocs      []int64
}

func (m *mockChunkRepo) CreateBatch(ctx context.Context, chunks []*entity.DocumentChunk) error {
	return nil
}

func (m *mockChunkRepo) ListByPermit(ctx context.Context, permitID int64) ([]*entity.DocumentChunk, error) {
	if m.listByPermitFunc != nil {
		return m.listByPermitFunc(ctx, permitID)
	}
	return []*entity.DocumentChunk{}, nil
}

func (m *mockChunkRepo) ListRecent(ctx context.Context, limit int) ([]*entity.DocumentChunk, error) {
	if m.listRecentFunc != nil {
		return m.listRecentFunc(ctx, limit)
	}
	return []*entity.DocumentChunk{}, nil
}

func (m *mockChunkRepo) DeleteByDocument(ctx context.Context, documentID int64) error {
	m.deletedDocs = append(m.deletedDocs, documentID)
	return nil
}

type mockConversationRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.Conversation, error)
	created     *entity.Conversation
	messages    []*entity.ChatMessage
}

func (m *mockConversationRepo) Create(ctx context.Context, conv *entity.Conversation) error {
	conv.ID = 11
	m.created = conv
	return nil
}

func (m *mockConversationRepo) GetByID(ctx context.Context, id int64) (*entity.Conversation, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockConversationRepo) AddMessage(ctx context.Context, msg *entity.ChatMessage) error {
	msg.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockConversationRepo) ListMessages(ctx context.Context, conversationID int64, limit int) ([]*entity.ChatMessage, error) {
	return m.messages, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// Mock collaborators
type mockStorage struct {
	files     map[string][]byte
	saveErr   error
	deleteErr error
	removed   []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return content, nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	m.removed = append(m.removed, path)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.files, path)
	return nil
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/data/" + relativePath
}

type mockNotificationService struct {
	statusChanges []permit.Status
	err           error
}

func (m *mockNotificationService) NotifyStatusChange(ctx context.Context, p *entity.Permit, from permit.Status, actor string) error {
	m.statusChanges = append(m.statusChanges, p.Status)
	return m.err
}

func (m *mockNotificationService) NotifyExpiryReminder(ctx context.Context, p *entity.Permit) error {
	return m.err
}

type mockNotifier struct {
	messages []string
	err      error
}

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	m.messages = append(m.messages, text)
	return m.err
}

type mockChatModel struct {
	answerFunc func(ctx context.Context, req port.ChatRequest) (string, error)
}

func (m *mockChatModel) Answer(ctx context.Context, req port.ChatRequest) (string, error) {
	return m.answerFunc(ctx, req)
}

type mockRetriever struct {
	matches []rag.Match
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string, candidates []*entity.DocumentChunk, k int) []rag.Match {
	return m.matches
}

type mockPermitService struct {
	PermitService
	changes []permit.Status
}

func (m *mockPermitService) ChangeStatus(ctx context.Context, actor string, id int64, status permit.Status, detail string) (*entity.Permit, error) {
	m.changes = append(m.changes, status)
	return &entity.Permit{ID: id, Status: status}, nil
}

type mockReportWriter struct {
	permits    []*entity.Permit
	properties map[int64]*entity.Property
}

func (m *mockReportWriter) Write(w io.Writer, permits []*entity.Permit, properties map[int64]*entity.Property) error {
	m.permits = permits
	m.properties = properties
	return nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
