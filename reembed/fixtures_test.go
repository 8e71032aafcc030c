package reembed

import (
	"context"
	"testing"

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
	"github.com/poiesic/policygraph/storage/badger"
	"github.com/poiesic/policygraph/storage/storagetest"
	"github.com/stretchr/testify/require"
)

// setupTestStore returns an in-memory store seeded with five sub-chunks,
// none of which carries a current embedding hash.
func setupTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := badger.NewMemoryStore(storagetest.Dims)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	storagetest.Seed(t, store)
	return store
}

func allChunks(t *testing.T, store storage.Store) []*core.SubChunk {
	t.Helper()
	var out []*core.SubChunk
	require.NoError(t, store.ForEachSubChunk(context.Background(), 10, func(batch []*core.SubChunk) error {
		out = append(out, batch...)
		return nil
	}))
	return out
}
