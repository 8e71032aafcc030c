package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

// VectorRetriever ranks sub-chunks by cosine similarity to a query embedding.
type VectorRetriever struct {
	chunks  storage.ChunkRepository
	clauses storage.ClauseRepository
	logger  *slog.Logger
}

// NewVectorRetriever creates a vector retriever over the given repositories.
func NewVectorRetriever(chunks storage.ChunkRepository, clauses storage.ClauseRepository, logger *slog.Logger) *VectorRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorRetriever{
		chunks:  chunks,
		clauses: clauses,
		logger:  logger.With("component", "vector_retriever"),
	}
}

// Retrieve returns the topK embedded sub-chunks most similar to embedding,
// ordered by score descending then chunk id ascending, each with its owning
// clause attached. A non-nil restrict limits the search to the listed chunk
// or clause ids.
func (r *VectorRetriever) Retrieve(ctx context.Context, embedding []float32, topK int, restrict storage.IDSet) ([]Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", core.ErrInvalidParameter, topK)
	}
	if dims := r.chunks.Dimensions(); len(embedding) != dims {
		return nil, fmt.Errorf("%w: query embedding has %d dimensions, index has %d",
			core.ErrDimensionMismatch, len(embedding), dims)
	}

	scored, err := r.chunks.FindSimilar(ctx, embedding, topK, restrict)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(scored) == 0 {
		return []Hit{}, nil
	}

	clauseIDs := make([]string, 0, len(scored))
	seen := storage.NewIDSet()
	for _, s := range scored {
		if seen.Add(s.Chunk.ClauseID) {
			clauseIDs = append(clauseIDs, s.Chunk.ClauseID)
		}
	}
	clauses, err := r.clauses.GetClauses(ctx, clauseIDs...)
	if err != nil {
		return nil, fmt.Errorf("owning clauses: %w", err)
	}
	byID := make(map[string]*core.Clause, len(clauses))
	for _, c := range clauses {
		byID[c.ID] = c
	}

	hits := make([]Hit, len(scored))
	for i, s := range scored {
		hits[i] = Hit{Item: Item{Clause: byID[s.Chunk.ClauseID], Chunk: s.Chunk}, Score: s.Score}
	}

	r.logger.Debug("vector retrieval complete", "hits", len(hits), "restricted", restrict != nil)
	return hits, nil
}
