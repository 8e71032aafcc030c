package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/policygraph/ai/mock"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unnormalized returns vectors of magnitude 3 for every text.
func unnormalized(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 2}
	}
	return out, nil
}

func TestBatchProcessor_Process(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	chunks, err := store.GetSubChunks(ctx, "제3조-0", "제4조-1")
	require.NoError(t, err)

	embedder := mock.NewMockEmbedderWithDimensions(storagetest.Dims).WithEmbedTextsFunc(unnormalized)
	processor := NewBatchProcessor(store, embedder, 3, time.Millisecond)
	require.NoError(t, processor.Process(ctx, chunks))

	updated, err := store.GetSubChunks(ctx, "제3조-0", "제4조-1")
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, c := range updated {
		require.Len(t, c.Embedding, 3)
		assert.InDelta(t, 1.0/3, c.Embedding[0], 1e-6)
		assert.InDelta(t, 2.0/3, c.Embedding[1], 1e-6)
		assert.False(t, c.EmbeddingStale(), c.ID)
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(storagetest.Dims)
	processor := NewBatchProcessor(setupTestStore(t), embedder, 3, time.Millisecond)
	require.NoError(t, processor.Process(context.Background(), nil))
	assert.Zero(t, embedder.CallCount())
}

func TestBatchProcessor_RetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	chunks, err := store.GetSubChunks(ctx, "제4조-1")
	require.NoError(t, err)

	calls := 0
	embedder := mock.NewMockEmbedderWithDimensions(storagetest.Dims).WithEmbedTextsFunc(
		func(ctx context.Context, texts []string) ([][]float32, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("rate limited")
			}
			return unnormalized(ctx, texts)
		})

	processor := NewBatchProcessor(store, embedder, 3, time.Millisecond)
	require.NoError(t, processor.Process(ctx, chunks))
	assert.Equal(t, 3, calls)
}

func TestBatchProcessor_Failures(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(ctx context.Context, texts []string) ([][]float32, error)
		wantErr   error
		wantCalls int
	}{
		{
			name: "persistent error",
			fn: func(ctx context.Context, texts []string) ([][]float32, error) {
				return nil, errors.New("unavailable")
			},
			wantCalls: 2,
		},
		{
			name: "count mismatch",
			fn: func(ctx context.Context, texts []string) ([][]float32, error) {
				return [][]float32{{1, 0, 0}}, nil
			},
			wantErr:   ErrEmbeddingMismatch,
			wantCalls: 1,
		},
		{
			name: "dimension mismatch",
			fn: func(ctx context.Context, texts []string) ([][]float32, error) {
				return [][]float32{{1, 0}, {0, 1}}, nil
			},
			wantErr:   core.ErrDimensionMismatch,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := setupTestStore(t)
			chunks, err := store.GetSubChunks(ctx, "제3조-0", "제4조-1")
			require.NoError(t, err)

			embedder := mock.NewMockEmbedderWithDimensions(storagetest.Dims).WithEmbedTextsFunc(tt.fn)
			err = NewBatchProcessor(store, embedder, 2, time.Millisecond).Process(ctx, chunks)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantCalls, embedder.CallCount())

			// Stored chunks are untouched
			stored, err := store.GetSubChunks(ctx, "제4조-1")
			require.NoError(t, err)
			assert.Empty(t, stored[0].Embedding)
		})
	}
}
