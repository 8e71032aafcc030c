package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

// embeddingProcessor generates embeddings for sub-chunks.
type embeddingProcessor struct {
	chunkRepository storage.ChunkRepository
	embedder        ai.Embedder
	logger          *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(chunkRepository storage.ChunkRepository, embedder ai.Embedder, logger *slog.Logger) (processor, error) {
	if chunkRepository == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		chunkRepository: chunkRepository,
		embedder:        embedder,
		logger:          logger.With("processor", "embeddings"),
	}, nil
}

// process embeds the chunk texts in one call and stores the vectors together
// with the content hash they were computed from.
func (ep *embeddingProcessor) process(ctx context.Context, chunks ...*core.SubChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ep.logger.Debug("generating embeddings for sub-chunks", "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed sub-chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(chunks), len(embeddings))
	}

	dims := ep.chunkRepository.Dimensions()
	for i, chunk := range chunks {
		if len(embeddings[i]) != dims {
			return fmt.Errorf("%w: sub-chunk %s embedded with %d dimensions, index has %d",
				core.ErrDimensionMismatch, chunk.ID, len(embeddings[i]), dims)
		}
		chunk.Embedding = embeddings[i]
		chunk.EmbeddedHash = core.ContentHash(chunk.Text)
	}

	if _, err := ep.chunkRepository.UpdateSubChunks(ctx, chunks...); err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}
	return nil
}
