package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
	"github.com/poiesic/policygraph/storage/badger"
	"github.com/poiesic/policygraph/storage/storagetest"
)

// newSeededStore opens an in-memory store holding the storagetest policy.
func newSeededStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := badger.NewMemoryStore(storagetest.Dims)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	storagetest.Seed(t, store)
	return store
}

func bareHit(id string, typ core.ClauseType, score float64) Hit {
	return Hit{Item: Item{Clause: &core.Clause{ID: id, Title: id, Type: typ}}, Score: score}
}

func hitIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID()
	}
	return ids
}

func rankedIDs(results []RankedResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID()
	}
	return ids
}

func clauseIDsOf(clauses []*core.Clause) []string {
	ids := make([]string, len(clauses))
	for i, c := range clauses {
		ids[i] = c.ID
	}
	return ids
}
