package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func newTestIndexingWorker(docs *fakeDocumentRepo, chunks *fakeChunkRepo, extractor *fakeExtractor, embedder port.Embedder) *IndexingWorker {
	cfg := DefaultIndexingWorkerConfig()
	cfg.ChunkSize = 10
	cfg.ChunkOverlap = 2
	return NewIndexingWorker(cfg, docs, chunks, fakeStorage{}, extractor, embedder, zap.NewNop())
}

func TestIndexingWorker_IndexesWithEmbeddings(t *testing.T) {
	doc := &entity.Document{ID: 1, PermitID: 5, StoragePath: "permits/5/a.pdf", ContentType: "application/pdf"}
	docs := newFakeDocumentRepo(doc)
	chunks := newFakeChunkRepo()
	extractor := &fakeExtractor{texts: map[string]string{"/data/permits/5/a.pdf": words(18)}}
	embedder := &fakeEmbedder{}

	n, err := newTestIndexingWorker(docs, chunks, extractor, embedder).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, entity.IndexStatusIndexed, docs.statuses[1])
	assert.Empty(t, docs.messages[1])
	assert.Equal(t, 1, embedder.calls)

	stored := chunks.chunks[1]
	require.Len(t, stored, 2)
	for i, c := range stored {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, int64(5), c.PermitID)
		assert.NotEmpty(t, c.Embedding)
	}
	assert.Equal(t, []int64{1}, chunks.deleted)
}

func TestIndexingWorker_EmbedderFailureStoresPlainChunks(t *testing.T) {
	doc := &entity.Document{ID: 2, PermitID: 5, StoragePath: "permits/5/b.txt", ContentType: "text/plain"}
	docs := newFakeDocumentRepo(doc)
	chunks := newFakeChunkRepo()
	extractor := &fakeExtractor{texts: map[string]string{"/data/permits/5/b.txt": "Setback five feet from rear lot line"}}

	_, err := newTestIndexingWorker(docs, chunks, extractor, &fakeEmbedder{err: errors.New("quota")}).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.IndexStatusIndexed, docs.statuses[2])
	require.Len(t, chunks.chunks[2], 1)
	assert.Empty(t, chunks.chunks[2][0].Embedding)
}

func TestIndexingWorker_NilEmbedder(t *testing.T) {
	doc := &entity.Document{ID: 3, PermitID: 1, StoragePath: "permits/1/c.txt", ContentType: "text/plain"}
	docs := newFakeDocumentRepo(doc)
	chunks := newFakeChunkRepo()
	extractor := &fakeExtractor{texts: map[string]string{"/data/permits/1/c.txt": "framing inspection notes"}}

	_, err := newTestIndexingWorker(docs, chunks, extractor, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.IndexStatusIndexed, docs.statuses[3])
	require.Len(t, chunks.chunks[3], 1)
	assert.Nil(t, chunks.chunks[3][0].Embedding)
}

func TestIndexingWorker_StatusPerOutcome(t *testing.T) {
	photo := &entity.Document{ID: 10, StoragePath: "permits/1/p.jpg", ContentType: "image/jpeg"}
	empty := &entity.Document{ID: 11, StoragePath: "permits/1/e.txt", ContentType: "text/plain"}
	broken := &entity.Document{ID: 12, StoragePath: "permits/1/x.pdf", ContentType: "application/pdf"}
	unstorable := &entity.Document{ID: 13, StoragePath: "permits/1/y.txt", ContentType: "text/plain"}

	docs := newFakeDocumentRepo(photo, empty, broken, unstorable)
	chunks := newFakeChunkRepo()
	chunks.failOn = 13
	extractor := &fakeExtractor{
		texts: map[string]string{
			"/data/permits/1/e.txt": "   ",
			"/data/permits/1/y.txt": "some text",
		},
		errs: map[string]error{
			"/data/permits/1/p.jpg": fmt.Errorf("%w: image/jpeg", port.ErrUnsupportedContent),
			"/data/permits/1/x.pdf": errors.New("failed to open PDF: corrupt"),
		},
	}

	w := newTestIndexingWorker(docs, chunks, extractor, nil)
	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, entity.IndexStatusSkipped, docs.statuses[10])
	assert.Equal(t, entity.IndexStatusSkipped, docs.statuses[11])
	assert.Equal(t, "no text found", docs.messages[11])
	assert.Equal(t, entity.IndexStatusFailed, docs.statuses[12])
	assert.Contains(t, docs.messages[12], "corrupt")
	assert.Equal(t, entity.IndexStatusFailed, docs.statuses[13])

	assert.Equal(t, 2, w.processedCount)
	assert.Equal(t, 2, w.failedCount)
}

func TestIndexingWorker_BatchSize(t *testing.T) {
	var all []*entity.Document
	texts := make(map[string]string)
	for i := int64(1); i <= 7; i++ {
		path := fmt.Sprintf("permits/1/%d.txt", i)
		all = append(all, &entity.Document{ID: i, StoragePath: path, ContentType: "text/plain"})
		texts["/data/"+path] = "text"
	}
	docs := newFakeDocumentRepo(all...)

	w := newTestIndexingWorker(docs, newFakeChunkRepo(), &fakeExtractor{texts: texts}, nil)
	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndexingWorker_StartStop(t *testing.T) {
	w := newTestIndexingWorker(newFakeDocumentRepo(), newFakeChunkRepo(), &fakeExtractor{}, nil)

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.Equal(t, "IndexingWorker", w.Name())
}

func TestIndexingWorker_StopWaitsForPollLoop(t *testing.T) {
	docs := newFakeDocumentRepo(&entity.Document{ID: 1, PermitID: 5, StoragePath: "permits/5/plan.pdf", ContentType: "application/pdf"})
	call := newBlockingCall()
	cfg := DefaultIndexingWorkerConfig()
	cfg.PollInterval = 5 * time.Millisecond
	w := NewIndexingWorker(cfg, docs, newFakeChunkRepo(), fakeStorage{}, blockingExtractor{call}, nil, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	select {
	case <-call.entered:
	case <-time.After(time.Second):
		t.Fatal("document was never picked up")
	}

	require.NoError(t, w.Stop())
	assert.True(t, call.returned.Load(), "Stop returned while extraction was in flight")
	assert.Equal(t, entity.IndexStatusFailed, docs.statuses[1])
}
