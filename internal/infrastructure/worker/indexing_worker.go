package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/rag"
	"go.uber.org/zap"
)

// IndexingWorkerConfig holds configuration for the indexing worker
type IndexingWorkerConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	ChunkSize      int
	ChunkOverlap   int
	ProcessTimeout time.Duration
}

// DefaultIndexingWorkerConfig returns default configuration
func DefaultIndexingWorkerConfig() IndexingWorkerConfig {
	return IndexingWorkerConfig{
		PollInterval:   15 * time.Second,
		BatchSize:      5,
		ChunkSize:      rag.DefaultChunkSize,
		ChunkOverlap:   rag.DefaultChunkOverlap,
		ProcessTimeout: 2 * time.Minute,
	}
}

// IndexingWorker turns uploaded documents into retrievable chunks
type IndexingWorker struct {
	config IndexingWorkerConfig

	documentRepo port.DocumentRepository
	chunkRepo    port.ChunkRepository
	storage      port.FileStorage
	extractor    port.TextExtractor
	embedder     port.Embedder // nil disables embeddings
	logger       *zap.Logger

	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	isRunning      bool
	wg             sync.WaitGroup
	processedCount int
	failedCount    int
}

// NewIndexingWorker creates a new indexing worker. embedder may be nil, in
// which case chunks are stored without vectors and retrieval falls back to
// text overlap.
func NewIndexingWorker(
	config IndexingWorkerConfig,
	documentRepo port.DocumentRepository,
	chunkRepo port.ChunkRepository,
	storage port.FileStorage,
	extractor port.TextExtractor,
	embedder port.Embedder,
	logger *zap.Logger,
) *IndexingWorker {
	defaults := DefaultIndexingWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.ProcessTimeout <= 0 {
		config.ProcessTimeout = defaults.ProcessTimeout
	}
	return &IndexingWorker{
		config:       config,
		documentRepo: documentRepo,
		chunkRepo:    chunkRepo,
		storage:      storage,
		extractor:    extractor,
		embedder:     embedder,
		logger:       logger,
	}
}

// Start begins the worker polling loop
func (w *IndexingWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("indexing worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("IndexingWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Bool("embeddings", w.embedder != nil))

	w.wg.Add(1)
	go w.pollLoop()
	return nil
}

// Stop cancels the poll loop and waits for it to return
func (w *IndexingWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	processed, failed := w.processedCount, w.failedCount
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	w.logger.Info("IndexingWorker stopped",
		zap.Int("processed_count", processed),
		zap.Int("failed_count", failed))
	return nil
}

// Name returns the worker name for identification
func (w *IndexingWorker) Name() string {
	return "IndexingWorker"
}

func (w *IndexingWorker) pollLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			if _, err := w.RunOnce(w.ctx); err != nil {
				w.logger.Error("Failed to index pending documents", zap.Error(err))
			}
		}
	}
}

// RunOnce indexes one batch of pending documents and returns how many were
// handled. A document that fails is marked FAILED and does not stop the
// batch.
func (w *IndexingWorker) RunOnce(ctx context.Context) (int, error) {
	docs, err := w.documentRepo.GetPendingIndex(ctx, w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending documents: %w", err)
	}

	for _, doc := range docs {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		status, errMsg := w.index(ctx, doc)
		if err := w.documentRepo.UpdateIndexStatus(ctx, doc.ID, status, errMsg); err != nil {
			w.logger.Error("Failed to update index status",
				zap.Int64("document_id", doc.ID),
				zap.String("status", status),
				zap.Error(err))
		}

		w.mu.Lock()
		if status == entity.IndexStatusFailed {
			w.failedCount++
		} else {
			w.processedCount++
		}
		w.mu.Unlock()
	}

	if len(docs) > 0 {
		w.logger.Info("Indexing batch completed", zap.Int("documents", len(docs)))
	}
	return len(docs), nil
}

// index extracts, chunks and stores one document and returns the resulting
// index status with an error message for SKIPPED and FAILED
func (w *IndexingWorker) index(ctx context.Context, doc *entity.Document) (string, string) {
	ctx, cancel := context.WithTimeout(ctx, w.config.ProcessTimeout)
	defer cancel()

	log := w.logger.With(zap.Int64("document_id", doc.ID), zap.Int64("permit_id", doc.PermitID))

	text, err := w.extractor.Extract(ctx, w.storage.GetFullPath(doc.StoragePath), doc.ContentType)
	if errors.Is(err, port.ErrUnsupportedContent) {
		log.Debug("Skipping document without text", zap.String("content_type", doc.ContentType))
		return entity.IndexStatusSkipped, err.Error()
	}
	if err != nil {
		log.Warn("Text extraction failed", zap.Error(err))
		return entity.IndexStatusFailed, err.Error()
	}

	pieces := rag.Chunk(text, w.config.ChunkSize, w.config.ChunkOverlap)
	if len(pieces) == 0 {
		return entity.IndexStatusSkipped, "no text found"
	}

	vectors := w.embed(ctx, log, pieces)
	chunks := make([]*entity.DocumentChunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = &entity.DocumentChunk{
			DocumentID: doc.ID,
			PermitID:   doc.PermitID,
			ChunkIndex: i,
			Content:    content,
		}
		if vectors != nil {
			chunks[i].Embedding = vectors[i]
		}
	}

	// re-indexing replaces earlier chunks
	if err := w.chunkRepo.DeleteByDocument(ctx, doc.ID); err != nil {
		log.Error("Failed to clear old chunks", zap.Error(err))
		return entity.IndexStatusFailed, err.Error()
	}
	if err := w.chunkRepo.CreateBatch(ctx, chunks); err != nil {
		log.Error("Failed to store chunks", zap.Error(err))
		return entity.IndexStatusFailed, err.Error()
	}

	log.Info("Document indexed", zap.Int("chunks", len(chunks)), zap.Bool("embedded", vectors != nil))
	return entity.IndexStatusIndexed, ""
}

// embed returns one vector per piece, or nil when embeddings are disabled
// or the embedder fails
func (w *IndexingWorker) embed(ctx context.Context, log *zap.Logger, pieces []string) [][]float32 {
	if w.embedder == nil {
		return nil
	}
	vectors, err := w.embedder.Embed(ctx, pieces)
	if err != nil {
		log.Warn("Embedding failed, storing chunks without vectors", zap.Error(err))
		return nil
	}
	if len(vectors) != len(pieces) {
		log.Warn("Embedder returned wrong number of vectors",
			zap.Int("expected", len(pieces)),
			zap.Int("got", len(vectors)))
		return nil
	}
	return vectors
}
