package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/policygraph/ai/mock"
	"github.com/poiesic/policygraph/core"
)

const fireQuestion = "화재 손해는 보상되나요?"

func newTestSearcher(t *testing.T, opts ...Option) (*Searcher, *mock.MockEmbedder) {
	t.Helper()
	store := newSeededStore(t)
	embedder := mock.NewMockEmbedderWithDimensions(3).WithVector(fireQuestion, []float32{1, 0, 0})
	s, err := NewSearcher(store, embedder, opts...)
	require.NoError(t, err)
	return s, embedder
}

// blockingEmbedder waits for its context to end.
func blockingEmbedder(ctx context.Context, _ string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func fireQuery() Query {
	return Query{Question: fireQuestion, Intent: core.IntentCoverage, RiskTypes: []string{"화재"}}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetrieverTimeout = 50 * time.Millisecond
	return cfg
}

func TestNewSearcher(t *testing.T) {
	store := newSeededStore(t)

	_, err := NewSearcher(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewSearcher(store, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	bad := DefaultConfig()
	bad.Alpha = 2
	_, err = NewSearcher(store, mock.NewMockEmbedder(), WithConfig(bad))
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	s, err := NewSearcher(store, mock.NewMockEmbedder(), WithLogger(nil), WithMonitor(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), s.Config())
}

func TestSearcher_Search(t *testing.T) {
	s, embedder := newTestSearcher(t)

	resp, err := s.Search(context.Background(), fireQuery())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.RequestID)
	assert.False(t, resp.Degraded)
	require.Equal(t, []string{"제3조-0", "제3조-1", "특1-0", "제4조-0", "제4조-1"}, rankedIDs(resp.Results))

	top := resp.Results[0]
	assert.InDelta(t, 1.0, top.HybridScore, 1e-6)
	assert.Equal(t, FromGraph|FromVector, top.Provenance)
	assert.InDelta(t, 0.8, resp.Results[1].HybridScore, 1e-6)
	assert.True(t, resp.Results[3].Penalized)
	assert.True(t, resp.Results[3].FullSignal())
	assert.False(t, resp.Results[4].FullSignal())

	assert.Equal(t, []string{"제1조"}, clauseIDsOf(resp.References))
	assert.Equal(t, 1, embedder.CallCount())
}

func TestSearcher_PerCallParams(t *testing.T) {
	s, _ := newTestSearcher(t)
	ctx := context.Background()

	q := fireQuery()
	cfg := DefaultConfig()
	cfg.TopK = 2
	cfg.ExpandReferences = false
	q.Params = &cfg

	resp, err := s.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"제3조-0", "제3조-1"}, rankedIDs(resp.Results))
	assert.Empty(t, resp.References)

	cfg.Alpha = 1.5
	_, err = s.Search(ctx, q)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestSearcher_BlankQuestionSkipsEmbedding(t *testing.T) {
	s, embedder := newTestSearcher(t)

	resp, err := s.Search(context.Background(), Query{Intent: core.IntentDefinition})
	require.NoError(t, err)

	assert.Equal(t, []string{"제1조"}, rankedIDs(resp.Results))
	assert.Equal(t, []string{"제3조", "제4조"}, clauseIDsOf(resp.References))
	assert.Equal(t, 0, embedder.CallCount())
}

func TestSearcher_MentionedClauseSeedsExpansion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HopLimit = 1
	s, _ := newTestSearcher(t, WithConfig(cfg))

	resp, err := s.Search(context.Background(), Query{Intent: core.IntentDefinition, ClauseMentioned: "특1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"제4조", "특1"}, clauseIDsOf(resp.References))
}

func TestSearcher_UnknownSpecialClause(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowDegraded = true
	s, _ := newTestSearcher(t, WithConfig(cfg))

	q := fireQuery()
	q.SpecialClause = "Nonexistent Rider"
	_, err := s.Search(context.Background(), q)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSearcher_RetrieverTimeout(t *testing.T) {
	s, embedder := newTestSearcher(t, WithConfig(fastConfig()))
	embedder.WithEmbedTextFunc(blockingEmbedder)

	_, err := s.Search(context.Background(), fireQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRetrieverTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "vector retriever")
}

func TestSearcher_DegradedMode(t *testing.T) {
	cfg := fastConfig()
	cfg.AllowDegraded = true
	s, embedder := newTestSearcher(t, WithConfig(cfg))
	embedder.WithEmbedTextFunc(blockingEmbedder)

	resp, err := s.Search(context.Background(), fireQuery())
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, FromGraph, r.Provenance)
	}
}

func TestSearcher_DegradedEmbeddingFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowDegraded = true
	s, embedder := newTestSearcher(t, WithConfig(cfg))
	embedder.WithEmbedTextFunc(func(context.Context, string) ([]float32, error) {
		return nil, errors.New("rate limited")
	})

	resp, err := s.Search(context.Background(), fireQuery())
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
}

func TestSearcher_DimensionMismatchIsNeverDegraded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowDegraded = true
	s, embedder := newTestSearcher(t, WithConfig(cfg))
	embedder.WithEmbedTextFunc(func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	})

	_, err := s.Search(context.Background(), fireQuery())
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestSearcher_CallerCancellation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowDegraded = true
	s, embedder := newTestSearcher(t, WithConfig(cfg))
	embedder.WithEmbedTextFunc(blockingEmbedder)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := s.Search(ctx, fireQuery())
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrRetrieverTimeout)
}

func TestSearcher_Prefilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrefilterVector = true
	s, _ := newTestSearcher(t, WithConfig(cfg))

	resp, err := s.Search(context.Background(), Query{Question: fireQuestion, SpecialClause: "도난위험 특별약관"})
	require.NoError(t, err)

	require.Equal(t, []string{"특1-0"}, rankedIDs(resp.Results))
	assert.True(t, resp.Results[0].FullSignal())
}

func TestSearcher_PrefilterEmptyGraph(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrefilterVector = true
	s, _ := newTestSearcher(t, WithConfig(cfg))

	resp, err := s.Search(context.Background(), Query{Question: fireQuestion, Keywords: []string{"지진"}})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearcher_Concurrent(t *testing.T) {
	s, _ := newTestSearcher(t)
	want, err := s.Search(context.Background(), fireQuery())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.Search(context.Background(), fireQuery())
			if err != nil {
				errs <- err
				return
			}
			if got := rankedIDs(resp.Results); len(got) != len(want.Results) || got[0] != want.Results[0].ID() {
				errs <- errors.New("results differ between concurrent searches")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSearcher_Clause(t *testing.T) {
	s, _ := newTestSearcher(t)
	ctx := context.Background()

	t.Run("rider clause", func(t *testing.T) {
		cc, err := s.Clause(ctx, "특1")
		require.NoError(t, err)
		assert.Equal(t, "도난 손해", cc.Clause.Title)
		require.NotNil(t, cc.Special)
		assert.Equal(t, "THEFT", cc.Special.Code)
		require.Len(t, cc.SubChunks, 1)
		assert.Empty(t, cc.References)
	})

	t.Run("main clause", func(t *testing.T) {
		cc, err := s.Clause(ctx, " 제4조 ")
		require.NoError(t, err)
		assert.Nil(t, cc.Special)
		assert.Equal(t, []string{"제4조-0", "제4조-1"}, []string{cc.SubChunks[0].ID, cc.SubChunks[1].ID})
		require.Len(t, cc.References, 1)
		assert.Equal(t, "제3조", cc.References[0].To)
		assert.Equal(t, "제3조의 손해", cc.References[0].Label)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := s.Clause(ctx, "제99조")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("blank", func(t *testing.T) {
		_, err := s.Clause(ctx, "")
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})
}
