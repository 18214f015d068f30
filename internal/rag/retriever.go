package rag

import (
	"context"
	"sort"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"go.uber.org/zap"
)

// Match is a chunk with its relevance score
type Match struct {
	Chunk *entity.DocumentChunk
	Score float64
}

// Retriever ranks chunks by embedding similarity, falling back to keyword
// overlap when no vectors are usable
type Retriever struct {
	embedder port.Embedder
	logger   *zap.Logger
}

// NewRetriever creates a retriever. embedder may be nil.
func NewRetriever(embedder port.Embedder, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		logger:   logger,
	}
}

// Retrieve returns up to k chunks with a positive score, best first.
// Equal scores keep the candidates' order.
func (r *Retriever) Retrieve(ctx context.Context, query string, candidates []*entity.DocumentChunk, k int) []Match {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	matches := r.byEmbedding(ctx, query, candidates)
	if matches == nil {
		matches = make([]Match, 0, len(candidates))
		for _, c := range candidates {
			if score := TextOverlap(query, c.Content); score > 0 {
				matches = append(matches, Match{Chunk: c, Score: score})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// byEmbedding returns nil when the vector path can not be used
func (r *Retriever) byEmbedding(ctx context.Context, query string, candidates []*entity.DocumentChunk) []Match {
	if r.embedder == nil || !anyEmbedded(candidates) {
		return nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) != 1 {
		r.logger.Warn("Query embedding failed, using keyword overlap", zap.Error(err))
		return nil
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		if score := CosineSimilarity(vectors[0], c.Embedding); score > 0 {
			matches = append(matches, Match{Chunk: c, Score: score})
		}
	}
	return matches
}

func anyEmbedded(candidates []*entity.DocumentChunk) bool {
	for _, c := range candidates {
		if len(c.Embedding) > 0 {
			return true
		}
	}
	return false
}
