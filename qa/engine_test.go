package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/ai/mock"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/search"
	"github.com/poiesic/policygraph/storage/badger"
	"github.com/poiesic/policygraph/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fireQuestion = "화재 손해는 보상되나요?"

var fireAnalysis = ai.QueryAnalysis{
	Intent:    core.IntentCoverage,
	RiskTypes: []string{"화재"},
}

// stubRetriever records queries and answers with fn.
type stubRetriever struct {
	fn func(ctx context.Context, q search.Query) (*search.Response, error)

	mu      sync.Mutex
	queries []search.Query
}

func (s *stubRetriever) Search(ctx context.Context, q search.Query) (*search.Response, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	return s.fn(ctx, q)
}

func newTestSearcher(t *testing.T) *search.Searcher {
	t.Helper()
	store, err := badger.NewMemoryStore(storagetest.Dims)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	storagetest.Seed(t, store)

	embedder := mock.NewMockEmbedderWithDimensions(storagetest.Dims).WithVector(fireQuestion, []float32{1, 0, 0})
	s, err := search.NewSearcher(store, embedder)
	require.NoError(t, err)
	return s
}

func newTestEngine(t *testing.T, retriever Retriever, analyzer *mock.MockAnalyzer, synth *mock.MockSynthesizer, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(retriever, analyzer, synth, opts...)
	require.NoError(t, err)
	return e
}

func TestNewEngine(t *testing.T) {
	retriever := &stubRetriever{}
	analyzer := mock.NewMockAnalyzer()
	synth := mock.NewMockSynthesizer()

	_, err := NewEngine(nil, analyzer, synth)
	assert.ErrorIs(t, err, ErrSearcherRequired)
	_, err = NewEngine(retriever, nil, synth)
	assert.ErrorIs(t, err, ErrAnalyzerRequired)
	_, err = NewEngine(retriever, analyzer, nil)
	assert.ErrorIs(t, err, ErrSynthesizerRequired)

	_, err = NewEngine(retriever, analyzer, synth, WithConcurrency(0))
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	bad := search.DefaultConfig()
	bad.TopK = 0
	_, err = NewEngine(retriever, analyzer, synth, WithSearchConfig(bad))
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	e, err := NewEngine(retriever, analyzer, synth, WithLogger(nil), WithConcurrency(2))
	require.NoError(t, err)
	assert.Equal(t, 2, e.concurrency)
}

func TestEngine_Ask(t *testing.T) {
	analyzer := mock.NewMockAnalyzer().WithAnalysis(fireAnalysis)
	synth := mock.NewMockSynthesizer()
	e := newTestEngine(t, newTestSearcher(t), analyzer, synth)

	result, err := e.Ask(context.Background(), "  "+fireQuestion+" ")
	require.NoError(t, err)

	assert.Equal(t, fireQuestion, result.Question)
	assert.Equal(t, core.IntentCoverage, result.Intent)
	assert.Equal(t, 5, result.RetrievedChunksCount)
	assert.Equal(t, "제3조, 제3조, 특1, 제4조, 제4조, 제1조", result.Answer)
	assert.Len(t, result.Citations, 6)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.NotEmpty(t, result.RequestID)
	assert.False(t, result.Degraded)
	assert.Equal(t, fireQuestion, result.Analysis.RawQuestion)

	evidence := synth.LastEvidence()
	require.Len(t, evidence, 6)
	assert.Equal(t, "제3조", evidence[0].ClauseID)
	assert.Equal(t, "보상하는 손해", evidence[0].Title)
	assert.Equal(t, core.ClauseTypeCoverage, evidence[0].ClauseType)
	assert.Equal(t, "화재 손해", evidence[0].Text)
	assert.InDelta(t, 1.0, evidence[0].Score, 1e-6)

	// Cross-referenced clause comes last, unscored
	assert.Equal(t, "제1조", evidence[5].ClauseID)
	assert.Zero(t, evidence[5].Score)
}

func TestEngine_AnalyzerFallback(t *testing.T) {
	analyzer := mock.NewMockAnalyzer().WithAnalyzeFunc(func(context.Context, string) (ai.QueryAnalysis, error) {
		return ai.QueryAnalysis{}, errors.New("model unavailable")
	})
	e := newTestEngine(t, newTestSearcher(t), analyzer, mock.NewMockSynthesizer())

	result, err := e.Ask(context.Background(), fireQuestion)
	require.NoError(t, err)
	assert.Equal(t, core.IntentGeneral, result.Intent)
	assert.Equal(t, ai.FallbackAnalysis(fireQuestion), result.Analysis)
	assert.Positive(t, result.RetrievedChunksCount)
}

func TestEngine_SynthesisFallback(t *testing.T) {
	synth := mock.NewMockSynthesizer().WithSynthesizeFunc(func(context.Context, string, []ai.Evidence) (ai.Answer, error) {
		return ai.Answer{}, errors.New("invalid json")
	})
	e := newTestEngine(t, newTestSearcher(t), mock.NewMockAnalyzer().WithAnalysis(fireAnalysis), synth)

	result, err := e.Ask(context.Background(), fireQuestion)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Answer, "검색된 약관 내용:\n\n"), result.Answer)
	assert.Contains(t, result.Answer, "[1] 제3조 - 보상하는 손해")
	assert.InDelta(t, FallbackConfidence, result.Confidence, 1e-9)
	require.Len(t, result.Citations, 3)
	assert.Equal(t, ai.Citation{ClauseID: "제3조", Title: "보상하는 손해"}, result.Citations[0])
	assert.Equal(t, "특1", result.Citations[2].ClauseID)
}

func TestFallbackAnswer_Truncates(t *testing.T) {
	long := strings.Repeat("가", 2000)
	results := []search.RankedResult{{Candidate: search.Candidate{Item: search.Item{Clause: &core.Clause{ID: "제9조", Title: "긴 조항"}}}}}
	answer := fallbackAnswer(results, []ai.Evidence{{ClauseID: "제9조", Text: long}})

	assert.Equal(t, utf8.RuneCountInString(fallbackPrefix)+fallbackRunes, utf8.RuneCountInString(answer.Text))
	assert.Len(t, answer.Citations, 1)
	assert.True(t, utf8.ValidString(answer.Text))
}

func TestEngine_NoResults(t *testing.T) {
	retriever := &stubRetriever{fn: func(context.Context, search.Query) (*search.Response, error) {
		return &search.Response{RequestID: "r1", Results: []search.RankedResult{}}, nil
	}}
	synth := mock.NewMockSynthesizer()
	e := newTestEngine(t, retriever, mock.NewMockAnalyzer(), synth)

	result, err := e.Ask(context.Background(), "무엇이든")
	require.NoError(t, err)
	assert.Equal(t, NoRelevantClausesMessage, result.Answer)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Citations)
	assert.Zero(t, result.RetrievedChunksCount)
	assert.Zero(t, synth.CallCount())
}

func TestEngine_SearchErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantResult bool
		wantIs     []error
	}{
		{
			name:       "timeout becomes no relevant clauses",
			err:        fmt.Errorf("%w: graph retriever: %w", core.ErrRetrieverTimeout, context.DeadlineExceeded),
			wantResult: true,
			wantIs:     []error{ErrNoRelevantClauses, core.ErrRetrieverTimeout},
		},
		{
			name:       "store failure becomes no relevant clauses",
			err:        errors.New("disk failure"),
			wantResult: true,
			wantIs:     []error{ErrNoRelevantClauses},
		},
		{
			name:   "invalid parameter surfaces",
			err:    fmt.Errorf("%w: alpha", core.ErrInvalidParameter),
			wantIs: []error{core.ErrInvalidParameter},
		},
		{
			name:       "unknown special clause becomes no relevant clauses",
			err:        fmt.Errorf("%w: special clause", core.ErrNotFound),
			wantResult: true,
			wantIs:     []error{ErrNoRelevantClauses, core.ErrNotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := &stubRetriever{fn: func(context.Context, search.Query) (*search.Response, error) {
				return nil, tt.err
			}}
			e := newTestEngine(t, retriever, mock.NewMockAnalyzer(), mock.NewMockSynthesizer())

			result, err := e.Ask(context.Background(), fireQuestion)
			for _, target := range tt.wantIs {
				assert.ErrorIs(t, err, target)
			}
			if !tt.wantResult {
				assert.Nil(t, result)
				assert.NotErrorIs(t, err, ErrNoRelevantClauses)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, NoRelevantClausesMessage, result.Answer)
			assert.NotNil(t, result.Citations)
		})
	}
}

func TestEngine_UnknownSpecialClause(t *testing.T) {
	analysis := fireAnalysis
	analysis.SpecialClause = "Nonexistent Rider"
	e := newTestEngine(t, newTestSearcher(t), mock.NewMockAnalyzer().WithAnalysis(analysis), mock.NewMockSynthesizer())

	result, err := e.Ask(context.Background(), fireQuestion)
	assert.ErrorIs(t, err, ErrNoRelevantClauses)
	assert.ErrorIs(t, err, core.ErrNotFound)
	require.NotNil(t, result)
	assert.Equal(t, NoRelevantClausesMessage, result.Answer)
}

func TestEngine_ResolvesSpecialClause(t *testing.T) {
	store, err := badger.NewMemoryStore(storagetest.Dims)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	storagetest.Seed(t, store)
	searcher, err := search.NewSearcher(store, mock.NewMockEmbedderWithDimensions(storagetest.Dims))
	require.NoError(t, err)

	tests := []struct {
		name     string
		analyzed string
		want     string
	}{
		{"paraphrased rider", "도난 특약", "도난위험 특별약관"},
		{"exact name", "도난위험 특별약관", "도난위험 특별약관"},
		{"code", "theft", "도난위험 특별약관"},
		{"unknown rider dropped", "지진위험 특별약관", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := ai.QueryAnalysis{Intent: core.IntentCoverage, Keywords: []string{"도난"}, SpecialClause: tt.analyzed}
			e := newTestEngine(t, searcher, mock.NewMockAnalyzer().WithAnalysis(analysis), mock.NewMockSynthesizer(),
				WithSpecialClauses(store))

			result, err := e.Ask(context.Background(), "도난 특약에서 보상하는 손해는?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Analysis.SpecialClause)
			assert.NotEqual(t, NoRelevantClausesMessage, result.Answer)
			if tt.want == "" {
				return
			}
			graphHits := 0
			for _, r := range result.Results {
				if r.Provenance.Has(search.FromGraph) {
					graphHits++
					assert.Equal(t, tt.want, r.Clause.SpecialClause, r.ID())
				}
			}
			assert.Positive(t, graphHits)
		})
	}
}

func TestResolveSpecialClause(t *testing.T) {
	specials := []*core.SpecialClause{
		{Name: "도난위험 특별약관", Code: "RIDER_THEFT"},
		{Name: "도난위험 보장 특약", Code: "RIDER_THEFT_PLUS"},
		{Name: "풍수재위험 특별약관", Code: "RIDER_FLOOD"},
	}
	tests := []struct {
		name string
		want string
	}{
		{"풍수재위험 특별약관", "풍수재위험 특별약관"},
		{"풍수재 특약", "풍수재위험 특별약관"},
		{"rider_flood", "풍수재위험 특별약관"},
		{"도난 특약", ""}, // ambiguous between the two theft riders
		{"도난위험 보장", "도난위험 보장 특약"},
		{"지진", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveSpecialClause(tt.name, specials), tt.name)
	}
}

func TestEngine_InvalidQuestion(t *testing.T) {
	e := newTestEngine(t, &stubRetriever{}, mock.NewMockAnalyzer(), mock.NewMockSynthesizer())
	_, err := e.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, newTestSearcher(t), mock.NewMockAnalyzer(), mock.NewMockSynthesizer())
	_, err := e.Ask(ctx, fireQuestion)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNoRelevantClauses)
}

func TestEngine_SearchConfig(t *testing.T) {
	retriever := &stubRetriever{fn: func(context.Context, search.Query) (*search.Response, error) {
		return &search.Response{}, nil
	}}
	cfg := search.DefaultConfig()
	cfg.TopK = 3
	cfg.Alpha = 0.7
	e := newTestEngine(t, retriever, mock.NewMockAnalyzer().WithAnalysis(ai.QueryAnalysis{
		Intent:          core.IntentExclusion,
		Keywords:        []string{"고의"},
		SpecialClause:   "도난위험 특별약관",
		ClauseMentioned: "제4조",
	}), mock.NewMockSynthesizer(), WithSearchConfig(cfg))

	_, err := e.Ask(context.Background(), "고의 사고는?")
	require.NoError(t, err)

	require.Len(t, retriever.queries, 1)
	q := retriever.queries[0]
	assert.Equal(t, "고의 사고는?", q.Question)
	assert.Equal(t, core.IntentExclusion, q.Intent)
	assert.Equal(t, []string{"고의"}, q.Keywords)
	assert.Equal(t, "도난위험 특별약관", q.SpecialClause)
	assert.Equal(t, "제4조", q.ClauseMentioned)
	require.NotNil(t, q.Params)
	assert.Equal(t, cfg, *q.Params)
}

func TestEngine_SelectArticle(t *testing.T) {
	store, err := badger.NewMemoryStore(storagetest.Dims)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	storagetest.Seed(t, store)

	cfg := search.DefaultConfig()
	cfg.SelectArticle = true
	embedder := mock.NewMockEmbedderWithDimensions(storagetest.Dims).WithVector(fireQuestion, []float32{1, 0, 0})
	searcher, err := search.NewSearcher(store, embedder,
		search.WithConfig(cfg),
		search.WithArticleSelector(mock.NewMockSelector().WithClause("제4조")))
	require.NoError(t, err)

	synth := mock.NewMockSynthesizer()
	e := newTestEngine(t, searcher, mock.NewMockAnalyzer().WithAnalysis(fireAnalysis), synth)

	result, err := e.Ask(context.Background(), fireQuestion)
	require.NoError(t, err)

	assert.Equal(t, "제4조", result.SelectedClause)
	assert.Equal(t, 2, result.RetrievedChunksCount)
	assert.Equal(t, "제4조, 제4조, 제1조, 제3조", result.Answer)
	for _, r := range result.Results {
		assert.Equal(t, "제4조", r.ClauseID())
	}
	assert.Len(t, synth.LastEvidence(), 4)
}

func TestEngine_AskBatch(t *testing.T) {
	e := newTestEngine(t, newTestSearcher(t), mock.NewMockAnalyzer().WithAnalysis(fireAnalysis), mock.NewMockSynthesizer(), WithConcurrency(2))

	questions := []string{fireQuestion, " ", "폭발 손해는?"}
	results, err := e.AskBatch(context.Background(), questions)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, fireQuestion, results[0].Question)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, 5, results[0].RetrievedChunksCount)

	assert.Contains(t, results[1].Error, "invalid parameter")
	assert.Equal(t, NoRelevantClausesMessage, results[1].Answer)

	assert.Equal(t, "폭발 손해는?", results[2].Question)
	assert.Empty(t, results[2].Error)
}

func TestEngine_AskBatchConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int64
	retriever := &stubRetriever{fn: func(context.Context, search.Query) (*search.Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return &search.Response{}, nil
	}}
	e := newTestEngine(t, retriever, mock.NewMockAnalyzer(), mock.NewMockSynthesizer(), WithConcurrency(2))

	questions := make([]string, 8)
	for i := range questions {
		questions[i] = fmt.Sprintf("질문 %d", i)
	}
	results, err := e.AskBatch(context.Background(), questions)
	require.NoError(t, err)
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestEngine_AskBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, &stubRetriever{}, mock.NewMockAnalyzer(), mock.NewMockSynthesizer())
	_, err := e.AskBatch(ctx, []string{"질문"})
	assert.ErrorIs(t, err, context.Canceled)
}
