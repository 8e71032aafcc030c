package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/policygraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIterator_Batches(t *testing.T) {
	store := setupTestStore(t)
	it := NewChunkIterator(store, 2, false)

	var sizes, scanned []int
	var ids []string
	err := it.ForEach(context.Background(), func(chunks []*core.SubChunk, n int) error {
		sizes = append(sizes, len(chunks))
		scanned = append(scanned, n)
		for _, c := range chunks {
			ids = append(ids, c.ID)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []int{2, 4, 5}, scanned)
	assert.Equal(t, []string{"제3조-0", "제3조-1", "제4조-0", "제4조-1", "특1-0"}, ids)
}

func TestChunkIterator_DefaultBatchSize(t *testing.T) {
	it := NewChunkIterator(setupTestStore(t), 0, false)
	assert.Equal(t, DefaultBatchSize, it.batchSize)
}

func TestChunkIterator_StaleOnly(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	// Mark every chunk but 제4조-1 as current
	var current []*core.SubChunk
	for _, c := range allChunks(t, store) {
		if c.HasEmbedding() {
			c.EmbeddedHash = core.ContentHash(c.Text)
			current = append(current, c)
		}
	}
	_, err := store.UpdateSubChunks(ctx, current...)
	require.NoError(t, err)

	var ids []string
	calls := 0
	err = NewChunkIterator(store, 2, true).ForEach(ctx, func(chunks []*core.SubChunk, _ int) error {
		calls++
		for _, c := range chunks {
			ids = append(ids, c.ID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"제4조-1"}, ids)
	assert.Equal(t, 3, calls, "every batch is reported, even when fully current")
}

func TestChunkIterator_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := NewChunkIterator(setupTestStore(t), 1, false).ForEach(context.Background(), func([]*core.SubChunk, int) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestChunkIterator_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := NewChunkIterator(setupTestStore(t), 1, false).ForEach(ctx, func([]*core.SubChunk, int) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
