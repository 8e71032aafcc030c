package ingestion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/policygraph/ai/mock"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
	"github.com/poiesic/policygraph/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 3

func setupTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := badger.NewMemoryStore(testDims)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleDocument() *Document {
	return &Document{
		PolicyVersion: &PolicyVersionDoc{VersionID: "2025-01", ProductName: "주택화재보험"},
		SpecialClauses: []SpecialClauseDoc{
			{Name: "도난위험 특별약관", Code: "THEFT"},
		},
		Clauses: []ClauseDoc{
			{
				ID: "제3조", Title: "보상하는 손해", Type: core.ClauseTypeCoverage,
				Text: "화재로 인한 손해를 보상합니다.", RiskTypes: []string{"화재"},
				SubChunks: []SubChunkDoc{
					{ID: "제3조-0", Text: "화재 손해", SemanticType: core.ClauseTypeCoverage},
					{ID: "제3조-1", Text: "소방 손해", SemanticType: core.ClauseTypeCoverage},
				},
			},
			{
				ID: "제4조", Title: "보상하지 않는 손해", Type: core.ClauseTypeExclusion,
				Text: "고의 또는 중대한 과실", RiskTypes: []string{"화재"},
				SubChunks: []SubChunkDoc{
					{ID: "제4조-0", Text: "고의 사고", SemanticType: core.ClauseTypeExclusion},
					{Text: "전쟁 손해", SemanticType: core.ClauseTypeExclusion},
				},
			},
			{
				ID: "특1", Title: "도난 손해", Type: core.ClauseTypeCoverage,
				Text: "도난 손해를 보상합니다.", SpecialClause: "도난위험 특별약관",
				SubChunks: []SubChunkDoc{
					{ID: "특1-0", Text: "도난 손해", SemanticType: core.ClauseTypeCoverage},
				},
			},
		},
		References: []ReferenceDoc{
			{From: "제4조", To: "제3조", Label: "제3조"},
		},
	}
}

func newTestPipeline(t *testing.T, store storage.Store, embedder *mock.MockEmbedder, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(store, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline(t *testing.T) {
	store := setupTestStore(t)
	embedder := mock.NewMockEmbedderWithDimensions(testDims)

	t.Run("requires store", func(t *testing.T) {
		_, err := NewPipeline(nil, embedder)
		assert.ErrorIs(t, err, ErrStoreRequired)
	})

	t.Run("requires embedder", func(t *testing.T) {
		_, err := NewPipeline(store, nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("rejects batch size", func(t *testing.T) {
		_, err := NewPipeline(store, embedder, WithBatchSize(0))
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("applies options", func(t *testing.T) {
		p := newTestPipeline(t, store, embedder, WithPoolSize(0), WithBatchSize(4), WithLogger(nil))
		assert.Equal(t, 4, p.batchSize)
		assert.Equal(t, 1, p.embeddingPool.Cap())
	})
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	embedder := mock.NewMockEmbedderWithDimensions(testDims)

	var mu sync.Mutex
	var reports []Progress
	p := newTestPipeline(t, store, embedder, WithBatchSize(2), WithPoolSize(2), WithProgress(func(pr Progress) {
		mu.Lock()
		reports = append(reports, pr)
		mu.Unlock()
	}))

	result, err := p.Ingest(ctx, sampleDocument())
	require.NoError(t, err)

	assert.Equal(t, "2025-01", result.PolicyVersion)
	assert.Equal(t, 1, result.SpecialClauses)
	assert.Equal(t, 3, result.Clauses)
	assert.Equal(t, 5, result.SubChunks)
	assert.Equal(t, 5, result.Embedded)
	assert.Equal(t, 1, result.References)

	// Five chunks in batches of two
	assert.Equal(t, 3, embedder.CallCount())

	require.Len(t, reports, 3)
	assert.Equal(t, Progress{Embedded: 5, Total: 5}, reports[2])

	stats, err := storage.CollectStats(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{Clauses: 3, SpecialClauses: 1, SubChunks: 5, Embedded: 5, References: 1}, stats)

	version, err := store.GetPolicyVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "주택화재보험", version.ProductName)

	t.Run("embeddings are current", func(t *testing.T) {
		chunks, err := store.SubChunksOf(ctx, "제3조")
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		for _, c := range chunks {
			assert.Len(t, c.Embedding, testDims)
			assert.False(t, c.EmbeddingStale(), c.ID)
			assert.Equal(t, mock.GenerateDeterministicVector(c.Text, testDims), c.Embedding)
		}
	})

	t.Run("unnamed sub-chunk gets content id", func(t *testing.T) {
		chunks, err := store.SubChunksOf(ctx, "제4조")
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, core.ChunkIDFromContent("제4조", "전쟁 손해"), chunks[1].ID)
		assert.Equal(t, 1, chunks[1].Ordinal)
	})

	t.Run("searchable", func(t *testing.T) {
		query := mock.GenerateDeterministicVector("도난 손해", testDims)
		hits, err := store.FindSimilar(ctx, query, 1, nil)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "특1-0", hits[0].Chunk.ID)
	})

	t.Run("special clause ownership", func(t *testing.T) {
		clauses, err := store.QueryClauses(ctx, storage.NewQuery().OwnedBy("도난위험 특별약관"))
		require.NoError(t, err)
		require.Len(t, clauses, 1)
		assert.Equal(t, "특1", clauses[0].ID)
	})

	t.Run("reingest rejects existing clauses", func(t *testing.T) {
		_, err := p.Ingest(ctx, sampleDocument())
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})
}

func TestIngestEmbeddingFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		fn      func(ctx context.Context, texts []string) ([][]float32, error)
		wantErr error
	}{
		{
			name: "embedder error",
			fn: func(ctx context.Context, texts []string) ([][]float32, error) {
				return nil, errors.New("embedder error")
			},
		},
		{
			name: "count mismatch",
			fn: func(ctx context.Context, texts []string) ([][]float32, error) {
				return [][]float32{{1, 0, 0}}, nil
			},
			wantErr: ErrEmbeddingMismatch,
		},
		{
			name: "dimension mismatch",
			fn: func(ctx context.Context, texts []string) ([][]float32, error) {
				out := make([][]float32, len(texts))
				for i := range out {
					out[i] = []float32{1, 0}
				}
				return out, nil
			},
			wantErr: core.ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			embedder := mock.NewMockEmbedderWithDimensions(testDims).WithEmbedTextsFunc(tt.fn)
			p := newTestPipeline(t, store, embedder, WithBatchSize(10))

			result, err := p.Ingest(ctx, sampleDocument())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			require.NotNil(t, result)
			assert.Equal(t, 0, result.Embedded)

			// Records are stored without embeddings
			_, embedded, err := store.CountSubChunks(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, embedded)
		})
	}
}

func TestIngestPartialFailure(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	embedder := mock.NewMockEmbedderWithDimensions(testDims)
	embedder.WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if text == "도난 손해" {
				return nil, errors.New("rate limited")
			}
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.GenerateDeterministicVector(text, testDims)
		}
		return out, nil
	})
	p := newTestPipeline(t, store, embedder, WithBatchSize(1), WithPoolSize(3))

	result, err := p.Ingest(ctx, sampleDocument())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 4, result.Embedded)
}

func TestDocumentValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Document)
	}{
		{"blank version id", func(d *Document) { d.PolicyVersion.VersionID = " " }},
		{"blank special clause", func(d *Document) { d.SpecialClauses = append(d.SpecialClauses, SpecialClauseDoc{}) }},
		{"duplicate special clause", func(d *Document) { d.SpecialClauses = append(d.SpecialClauses, d.SpecialClauses[0]) }},
		{"blank clause id", func(d *Document) { d.Clauses[0].ID = "" }},
		{"clause without content", func(d *Document) { d.Clauses[0].Title, d.Clauses[0].Text = "", "" }},
		{"duplicate clause", func(d *Document) { d.Clauses = append(d.Clauses, d.Clauses[0]) }},
		{"undeclared special clause", func(d *Document) { d.Clauses[0].SpecialClause = "화재 특약" }},
		{"blank sub-chunk text", func(d *Document) { d.Clauses[0].SubChunks[0].Text = "" }},
		{"duplicate sub-chunk", func(d *Document) { d.Clauses[0].SubChunks[1].ID = "제3조-0" }},
		{"self reference", func(d *Document) { d.References[0].To = d.References[0].From }},
		{"reference from unknown id", func(d *Document) { d.References[0].From = "제99조" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sampleDocument()
			tt.mutate(doc)
			assert.ErrorIs(t, doc.Validate(), ErrInvalidDocument)
		})
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, sampleDocument().Validate())
	})

	t.Run("nothing stored on invalid document", func(t *testing.T) {
		store := setupTestStore(t)
		p := newTestPipeline(t, store, mock.NewMockEmbedderWithDimensions(testDims))
		doc := sampleDocument()
		doc.References[0].From = "제99조"

		_, err := p.Ingest(context.Background(), doc)
		require.ErrorIs(t, err, ErrInvalidDocument)

		count, err := store.CountClauses(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("nil document", func(t *testing.T) {
		p := newTestPipeline(t, setupTestStore(t), mock.NewMockEmbedderWithDimensions(testDims))
		_, err := p.Ingest(context.Background(), nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})
}

func TestLoadDocument(t *testing.T) {
	t.Run("decodes", func(t *testing.T) {
		input := `{
			"policy_version": {"version_id": "2025-01"},
			"clauses": [{
				"id": "제11조", "title": "손해방지의무", "type": "Condition", "text": "...",
				"sub_chunks": [{"text": "손해 방지", "semantic_type": "general", "reasoning": "의무"}]
			}],
			"references": [{"from": "제11조", "to": "제3조"}]
		}`
		doc, err := LoadDocument(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, doc.Clauses, 1)
		assert.Equal(t, core.ClauseTypeCondition, doc.Clauses[0].Type)
		assert.Equal(t, core.ClauseTypeUncategorized, doc.Clauses[0].SubChunks[0].SemanticType)
		assert.Equal(t, "2025-01", doc.PolicyVersion.VersionID)
		assert.NoError(t, doc.Validate())
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		_, err := LoadDocument(strings.NewReader(`{"clauses": [], "chapters": []}`))
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		_, err := LoadDocument(strings.NewReader(`{"clauses": [`))
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDocumentFile(t.TempDir() + "/missing.json")
		assert.Error(t, err)
	})
}
