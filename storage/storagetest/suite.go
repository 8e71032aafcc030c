// Package storagetest holds a behavioural suite every storage.Store
// implementation must pass, so engines stay interchangeable.
//
//	func TestConformance(t *testing.T) {
//		storagetest.Run(t, func(t *testing.T, dims int) storage.Store {
//			store, err := NewMemoryStore(dims)
//			require.NoError(t, err)
//			return store
//		})
//	}
package storagetest

import (
	"context"
	"testing"

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dims is the embedding width used by the suite.
const Dims = 3

// OpenFunc opens an empty store with the given embedding width. The suite
// closes the store when the test ends.
type OpenFunc func(t *testing.T, dims int) storage.Store

// Run executes the conformance suite against stores produced by open.
func Run(t *testing.T, open OpenFunc) {
	newStore := func(t *testing.T) storage.Store {
		store := open(t, Dims)
		t.Cleanup(func() { store.Close() })
		Seed(t, store)
		return store
	}

	t.Run("QueryClauses", func(t *testing.T) { testQueryClauses(t, newStore(t)) })
	t.Run("SubChunks", func(t *testing.T) { testSubChunks(t, newStore(t)) })
	t.Run("FindSimilar", func(t *testing.T) { testFindSimilar(t, newStore(t)) })
	t.Run("References", func(t *testing.T) { testReferences(t, newStore(t)) })
	t.Run("Errors", func(t *testing.T) { testErrors(t, newStore(t)) })
	t.Run("Stats", func(t *testing.T) { testStats(t, newStore(t)) })
}

// Seed loads a small home fire policy: three main clauses, one rider with a
// clause, five sub-chunks and three cross references.
func Seed(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.PutPolicyVersion(ctx, &core.PolicyVersion{VersionID: "2025-01", ProductName: "주택화재보험"}))
	require.NoError(t, store.AddSpecialClauses(ctx, &core.SpecialClause{Name: "도난위험 특별약관", Code: "THEFT"}))

	_, err := store.AddClauses(ctx,
		&core.Clause{ID: "제1조", Title: "용어의 정의", Type: core.ClauseTypeDefinition, Text: "이 약관에서 \"화재\"란 우연한 연소를 말합니다."},
		&core.Clause{ID: "제3조", Title: "보상하는 손해", Type: core.ClauseTypeCoverage, Text: "Fire damage to the Building is covered.", RiskTypes: []string{"화재", "폭발"}},
		&core.Clause{ID: "제4조", Title: "보상하지 않는 손해", Type: core.ClauseTypeExclusion, Text: "고의 또는 중대한 과실", RiskTypes: []string{"화재"}},
		&core.Clause{ID: "특1", Title: "도난 손해", Type: core.ClauseTypeCoverage, Text: "도난으로 인한 손해를 보상합니다.", SpecialClause: "도난위험 특별약관", RiskTypes: []string{"도난"}},
	)
	require.NoError(t, err)

	_, err = store.AddSubChunks(ctx,
		&core.SubChunk{ID: "제3조-1", ClauseID: "제3조", Ordinal: 1, Text: "폭발 손해", SemanticType: core.ClauseTypeCoverage, Embedding: []float32{0.6, 0.8, 0}},
		&core.SubChunk{ID: "제3조-0", ClauseID: "제3조", Ordinal: 0, Text: "화재 손해", SemanticType: core.ClauseTypeCoverage, Embedding: []float32{1, 0, 0}},
		&core.SubChunk{ID: "제4조-0", ClauseID: "제4조", Ordinal: 0, Text: "고의 사고", SemanticType: core.ClauseTypeExclusion, Embedding: []float32{0, 1, 0}},
		&core.SubChunk{ID: "제4조-1", ClauseID: "제4조", Ordinal: 1, Text: "전쟁", SemanticType: core.ClauseTypeExclusion},
		&core.SubChunk{ID: "특1-0", ClauseID: "특1", Ordinal: 0, Text: "도난 손해", SemanticType: core.ClauseTypeCoverage, Embedding: []float32{0, 0, 1}},
	)
	require.NoError(t, err)

	require.NoError(t, store.AddReferences(ctx,
		core.CrossReference{From: "제4조", To: "제3조", Label: "제3조의 손해"},
		core.CrossReference{From: "제3조", To: "제1조"},
		core.CrossReference{From: "제1조", To: "제4조"},
	))
}

func clauseIDs(clauses []*core.Clause) []string {
	ids := make([]string, len(clauses))
	for i, c := range clauses {
		ids[i] = c.ID
	}
	return ids
}

func chunkIDs(chunks []storage.ScoredChunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.Chunk.ID
	}
	return ids
}

// otherPredicate is a predicate no engine knows how to translate.
type otherPredicate struct{ id string }

func (p otherPredicate) Matches(c *core.Clause) bool { return c.ID == p.id }
func (p otherPredicate) Empty() bool                 { return false }
func (p otherPredicate) String() string              { return "id is " + p.id }

func testQueryClauses(t *testing.T, store storage.Store) {
	ctx := context.Background()

	tests := []struct {
		name  string
		query *storage.Query
		want  []string
	}{
		{"all", storage.NewQuery(), []string{"제1조", "제3조", "제4조", "특1"}},
		{"type", storage.NewQuery().Where(storage.TypeIn{core.ClauseTypeCoverage}), []string{"제3조", "특1"}},
		{"keyword folds case", storage.NewQuery().Where(storage.NewTextContains("BUILDING")), []string{"제3조"}},
		{"keyword in title", storage.NewQuery().Where(storage.NewTextContains("정의")), []string{"제1조"}},
		{"keyword any of", storage.NewQuery().Where(storage.NewTextContains("고의", "도난")), []string{"제4조", "특1"}},
		{"risk type", storage.NewQuery().Where(storage.NewRiskTypeIn("폭발")), []string{"제3조"}},
		{
			"predicates are OR-combined",
			storage.NewQuery().Where(storage.TypeIn{core.ClauseTypeExclusion}).Where(storage.NewRiskTypeIn("도난")),
			[]string{"제4조", "특1"},
		},
		{
			"owner restricts",
			storage.NewQuery().Where(storage.TypeIn{core.ClauseTypeCoverage}).OwnedBy("도난위험 특별약관"),
			[]string{"특1"},
		},
		{"limit", storage.NewQuery().Where(storage.NewRiskTypeIn("화재")).Limit(1), []string{"제3조"}},
		{
			"untranslatable predicate",
			storage.NewQuery().Where(otherPredicate{id: "제4조"}).Where(storage.TypeIn{core.ClauseTypeDefinition}),
			[]string{"제1조", "제4조"},
		},
		{"no match", storage.NewQuery().Where(storage.NewTextContains("지진")), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, err := store.QueryClauses(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, clauseIDs(clauses))
		})
	}

	clause, err := store.GetClause(ctx, "제3조")
	require.NoError(t, err)
	assert.Equal(t, []string{"화재", "폭발"}, clause.RiskTypes, "risk types keep their order")

	_, err = store.QueryClauses(ctx, storage.NewQuery().OwnedBy("Nonexistent Rider"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testSubChunks(t *testing.T, store storage.Store) {
	ctx := context.Background()

	chunks, err := store.SubChunksOf(ctx, "제3조")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "제3조-0", chunks[0].ID)
	assert.Equal(t, "제3조-1", chunks[1].ID)
	assert.Equal(t, core.ClauseTypeCoverage, chunks[0].SemanticType)
	assert.Equal(t, []float32{1, 0, 0}, chunks[0].Embedding)

	got, err := store.GetSubChunks(ctx, "특1-0", "missing", "제4조-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "특1-0", got[0].ID)
	assert.False(t, got[1].HasEmbedding())

	update := *got[1]
	update.Embedding = []float32{0, 0.5, 0.5}
	update.EmbeddedHash = core.ContentHash(update.Text)
	_, err = store.UpdateSubChunks(ctx, &update)
	require.NoError(t, err)

	got, err = store.GetSubChunks(ctx, "제4조-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float32{0, 0.5, 0.5}, got[0].Embedding)
	assert.False(t, got[0].EmbeddingStale())

	var visited []string
	require.NoError(t, store.ForEachSubChunk(ctx, 2, func(batch []*core.SubChunk) error {
		assert.LessOrEqual(t, len(batch), 2)
		for _, c := range batch {
			visited = append(visited, c.ID)
		}
		return nil
	}))
	assert.Equal(t, []string{"제3조-0", "제3조-1", "제4조-0", "제4조-1", "특1-0"}, visited)
}

func testFindSimilar(t *testing.T, store storage.Store) {
	ctx := context.Background()
	assert.Equal(t, Dims, store.Dimensions())

	results, err := store.FindSimilar(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"제3조-0", "제3조-1", "제4조-0", "특1-0"}, chunkIDs(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.6, results[1].Score, 1e-6)

	results, err = store.FindSimilar(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"제3조-0", "제3조-1"}, chunkIDs(results))

	results, err = store.FindSimilar(ctx, []float32{0, 0, 1}, 10, storage.NewIDSet("제4조", "특1-0"))
	require.NoError(t, err)
	assert.Equal(t, []string{"특1-0", "제4조-0"}, chunkIDs(results))

	_, err = store.FindSimilar(ctx, []float32{1, 0}, 10, nil)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func testReferences(t *testing.T, store storage.Store) {
	ctx := context.Background()

	require.NoError(t, store.AddReferences(ctx, core.CrossReference{From: "제4조", To: "제3조", Label: "again"}))
	require.NoError(t, store.AddReferences(ctx, core.CrossReference{From: "제4조", To: "제1조"}))

	refs, err := store.ReferencesFrom(ctx, "제4조")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "제1조", refs[0].To)
	assert.Equal(t, "제3조", refs[1].To)
	assert.Equal(t, "제3조의 손해", refs[1].Label)

	none, err := store.ReferencesFrom(ctx, "특1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testErrors(t *testing.T, store storage.Store) {
	ctx := context.Background()

	_, err := store.AddClauses(ctx, &core.Clause{ID: "제3조", Title: "dup"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetClause(ctx, "제99조")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetSpecialClause(ctx, "Nonexistent Rider")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.AddSubChunks(ctx, &core.SubChunk{ID: "x", ClauseID: "제99조", Text: "x"})
	assert.ErrorIs(t, err, storage.ErrUnknownOwner)

	_, err = store.AddSubChunks(ctx, &core.SubChunk{ID: "제3조-0", ClauseID: "제3조", Text: "x"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.AddSubChunks(ctx, &core.SubChunk{ID: "y", ClauseID: "제3조", Text: "x", Embedding: []float32{1}})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = store.UpdateSubChunks(ctx, &core.SubChunk{ID: "missing", ClauseID: "제3조", Text: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.AddReferences(ctx, core.CrossReference{From: "제1조", To: "제1조"})
	assert.ErrorIs(t, err, core.ErrInvalidReference)
}

func testStats(t *testing.T, store storage.Store) {
	stats, err := storage.CollectStats(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{Clauses: 4, SpecialClauses: 1, SubChunks: 5, Embedded: 4, References: 3}, stats)

	version, err := store.GetPolicyVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-01", version.VersionID)
}
