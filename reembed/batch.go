package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

// BatchProcessor handles embedding generation for batches of sub-chunks.
type BatchProcessor struct {
	repo           storage.ChunkRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each embedding API call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.ChunkRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds a batch of sub-chunks and updates them in the store.
// Vectors are normalized and stamped with the hash of the text they were
// computed from.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.SubChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(chunks), len(embeddings))
	}

	dims := bp.repo.Dimensions()
	for i, chunk := range chunks {
		if len(embeddings[i]) != dims {
			return fmt.Errorf("%w: sub-chunk %s embedded with %d dimensions, index has %d",
				core.ErrDimensionMismatch, chunk.ID, len(embeddings[i]), dims)
		}
		chunk.Embedding = NormalizeVector(embeddings[i])
		chunk.EmbeddedHash = core.ContentHash(chunk.Text)
	}

	if _, err := bp.repo.UpdateSubChunks(ctx, chunks...); err != nil {
		return fmt.Errorf("update sub-chunks: %w", err)
	}
	return nil
}
