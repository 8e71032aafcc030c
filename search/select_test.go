package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/ai/mock"
)

func selectConfig() Config {
	cfg := DefaultConfig()
	cfg.SelectArticle = true
	return cfg
}

func TestSearcher_SelectArticle(t *testing.T) {
	selector := mock.NewMockSelector().WithClause("제4조")
	s, _ := newTestSearcher(t, WithConfig(selectConfig()), WithArticleSelector(selector))

	resp, err := s.Search(context.Background(), fireQuery())
	require.NoError(t, err)

	assert.Equal(t, "제4조", resp.SelectedClause)
	assert.Equal(t, []string{"제4조-0", "제4조-1"}, rankedIDs(resp.Results))
	assert.Equal(t, []string{"제1조", "제3조"}, clauseIDsOf(resp.References))

	candidates := selector.LastCandidates()
	require.Len(t, candidates, 3)
	assert.Equal(t, ai.ArticleCandidate{
		ClauseID: "제3조",
		Title:    "보상하는 손해",
		Text:     "Fire damage to the Building is covered.",
	}, candidates[0])
	assert.Equal(t, "특1", candidates[1].ClauseID)
	assert.Equal(t, "제4조", candidates[2].ClauseID)
}

func TestSearcher_SelectArticleFallsBackToTopClause(t *testing.T) {
	for name, fn := range map[string]func(context.Context, string, []ai.ArticleCandidate) (int, error){
		"selector error": func(context.Context, string, []ai.ArticleCandidate) (int, error) {
			return 0, errors.New("model unavailable")
		},
		"index out of range": func(_ context.Context, _ string, c []ai.ArticleCandidate) (int, error) {
			return len(c), nil
		},
	} {
		t.Run(name, func(t *testing.T) {
			selector := mock.NewMockSelector().WithSelectFunc(fn)
			s, _ := newTestSearcher(t, WithConfig(selectConfig()), WithArticleSelector(selector))

			resp, err := s.Search(context.Background(), fireQuery())
			require.NoError(t, err)
			assert.Equal(t, "제3조", resp.SelectedClause)
			assert.Equal(t, []string{"제3조-0", "제3조-1"}, rankedIDs(resp.Results))
			assert.Equal(t, []string{"제1조", "제4조"}, clauseIDsOf(resp.References))
		})
	}
}

func TestSearcher_SelectArticleCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	selector := mock.NewMockSelector().WithSelectFunc(func(ctx context.Context, _ string, _ []ai.ArticleCandidate) (int, error) {
		cancel()
		return 0, ctx.Err()
	})
	s, _ := newTestSearcher(t, WithConfig(selectConfig()), WithArticleSelector(selector))

	_, err := s.Search(ctx, fireQuery())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearcher_SelectArticleDisabled(t *testing.T) {
	selector := mock.NewMockSelector().WithClause("제4조")

	t.Run("flag off", func(t *testing.T) {
		s, _ := newTestSearcher(t, WithArticleSelector(selector))
		resp, err := s.Search(context.Background(), fireQuery())
		require.NoError(t, err)
		assert.Empty(t, resp.SelectedClause)
		assert.Len(t, resp.Results, 5)
		assert.Zero(t, selector.CallCount())
	})

	t.Run("no selector", func(t *testing.T) {
		s, _ := newTestSearcher(t, WithConfig(selectConfig()))
		resp, err := s.Search(context.Background(), fireQuery())
		require.NoError(t, err)
		assert.Empty(t, resp.SelectedClause)
		assert.Len(t, resp.Results, 5)
	})
}

func TestArticleCandidates(t *testing.T) {
	results := []RankedResult{
		{Candidate: Candidate{Item: bareHit("제3조", 0, 1).Item}},
		{Candidate: Candidate{Item: bareHit("제4조", 0, 1).Item}},
		{Candidate: Candidate{Item: bareHit("제3조", 0, 1).Item}},
	}
	got := articleCandidates(results)
	require.Len(t, got, 2)
	assert.Equal(t, "제3조", got[0].ClauseID)
	assert.Equal(t, "제4조", got[1].ClauseID)

	assert.Empty(t, articleCandidates(nil))
}
