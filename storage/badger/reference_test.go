package badger

import (
	"context"
	"testing"

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceRepository(t *testing.T) {
	store := newTestStore(t, 2)
	ctx := context.Background()

	require.NoError(t, store.AddReferences(ctx,
		core.CrossReference{From: "제4조", To: "제3조", Label: "제3조에 따른"},
		core.CrossReference{From: "제4조", To: "제1조"},
		core.CrossReference{From: "제40조", To: "제2조"},
	))
	require.NoError(t, store.AddReferences(ctx,
		core.CrossReference{From: "제4조", To: "제3조", Label: "changed"},
	))

	refs, err := store.ReferencesFrom(ctx, "제4조")
	require.NoError(t, err)
	require.Len(t, refs, 2, "제40조 must not match the 제4조 prefix")
	assert.Equal(t, "제1조", refs[0].To)
	assert.Equal(t, "제3조", refs[1].To)
	assert.Equal(t, "제3조에 따른", refs[1].Label, "first write wins")

	none, err := store.ReferencesFrom(ctx, "제3조")
	require.NoError(t, err)
	assert.Empty(t, none)

	count, err := store.CountReferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	err = store.AddReferences(ctx, core.CrossReference{From: "제1조", To: "제1조"})
	assert.ErrorIs(t, err, core.ErrInvalidReference)
}

func TestCollectStats(t *testing.T) {
	store := newTestStore(t, 2)
	seedClauses(t, store)
	ctx := context.Background()
	_, err := store.AddSubChunks(ctx,
		&core.SubChunk{ID: "제3조-0", ClauseID: "제3조", Text: "x", Embedding: []float32{1, 0}},
		&core.SubChunk{ID: "제3조-1", ClauseID: "제3조", Ordinal: 1, Text: "y"},
	)
	require.NoError(t, err)
	require.NoError(t, store.AddReferences(ctx, core.CrossReference{From: "제4조", To: "제3조"}))

	stats, err := storage.CollectStats(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{Clauses: 4, SpecialClauses: 2, SubChunks: 2, Embedded: 1, References: 1}, stats)
}
