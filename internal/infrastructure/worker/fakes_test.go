package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
)

type fakeDocumentRepo struct {
	port.DocumentRepository
	pending  []*entity.Document
	statuses map[int64]string
	messages map[int64]string
}

func newFakeDocumentRepo(docs ...*entity.Document) *fakeDocumentRepo {
	return &fakeDocumentRepo{
		pending:  docs,
		statuses: make(map[int64]string),
		messages: make(map[int64]string),
	}
}

func (r *fakeDocumentRepo) GetPendingIndex(ctx context.Context, limit int) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, d := range r.pending {
		if _, done := r.statuses[d.ID]; done {
			continue
		}
		out = append(out, d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) UpdateIndexStatus(ctx context.Context, id int64, status, errorMsg string) error {
	r.statuses[id] = status
	r.messages[id] = errorMsg
	return nil
}

type fakeChunkRepo struct {
	port.ChunkRepository
	chunks  map[int64][]*entity.DocumentChunk
	deleted []int64
	failOn  int64
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{chunks: make(map[int64][]*entity.DocumentChunk)}
}

func (r *fakeChunkRepo) CreateBatch(ctx context.Context, chunks []*entity.DocumentChunk) error {
	if len(chunks) > 0 && chunks[0].DocumentID == r.failOn {
		return errors.New("disk full")
	}
	for _, c := range chunks {
		r.chunks[c.DocumentID] = append(r.chunks[c.DocumentID], c)
	}
	return nil
}

func (r *fakeChunkRepo) DeleteByDocument(ctx context.Context, documentID int64) error {
	r.deleted = append(r.deleted, documentID)
	delete(r.chunks, documentID)
	return nil
}

type fakeStorage struct {
	port.FileStorage
}

func (fakeStorage) GetFullPath(relativePath string) string {
	return "/data/" + relativePath
}

type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
	paths []string
}

func (e *fakeExtractor) Extract(ctx context.Context, fullPath, contentType string) (string, error) {
	e.paths = append(e.paths, fullPath)
	if err, ok := e.errs[fullPath]; ok {
		return "", err
	}
	return e.texts[fullPath], nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i + 1), 1}
	}
	return out, nil
}

type fakePermitRepo struct {
	port.PermitRepository
	mu       sync.Mutex
	expiring []*entity.Permit
	before   time.Time
	notified map[int64]time.Time
}

func (r *fakePermitRepo) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*entity.Permit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before = before
	var out []*entity.Permit
	for _, p := range r.expiring {
		if _, ok := r.notified[p.ID]; ok {
			continue
		}
		if p.ExpiresAt.After(before) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePermitRepo) MarkExpiryNotified(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notified == nil {
		r.notified = make(map[int64]time.Time)
	}
	r.notified[id] = at
	return nil
}

type fakeActivityRepo struct {
	port.ActivityRepository
	mu      sync.Mutex
	created []*entity.Activity
}

func (r *fakeActivityRepo) Create(ctx context.Context, activity *entity.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, activity)
	return nil
}

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeExpiryNotifier struct {
	mu     sync.Mutex
	sent   []int64
	failOn int64
}

func (n *fakeExpiryNotifier) NotifyExpiryReminder(ctx context.Context, p *entity.Permit) error {
	if p.ID == n.failOn {
		return errors.New("lark unavailable")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, p.ID)
	return nil
}

func (n *fakeExpiryNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// blockingCall holds a fake call open until its context ends
type blockingCall struct {
	once     sync.Once
	entered  chan struct{}
	returned atomic.Bool
}

func newBlockingCall() *blockingCall {
	return &blockingCall{entered: make(chan struct{})}
}

func (b *blockingCall) wait(ctx context.Context) error {
	b.once.Do(func() { close(b.entered) })
	<-ctx.Done()
	b.returned.Store(true)
	return ctx.Err()
}

type blockingExpiryNotifier struct {
	*blockingCall
}

func (n blockingExpiryNotifier) NotifyExpiryReminder(ctx context.Context, p *entity.Permit) error {
	return n.wait(ctx)
}

type blockingExtractor struct {
	*blockingCall
}

func (e blockingExtractor) Extract(ctx context.Context, fullPath, contentType string) (string, error) {
	return "", e.wait(ctx)
}
