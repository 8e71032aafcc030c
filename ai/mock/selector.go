package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/poiesic/policygraph/ai"
)

// MockSelector is a test double for ai.ArticleSelector.
type MockSelector struct {
	// SelectFunc is called by SelectArticle if set.
	// If nil, picks the preferred clause when offered, otherwise the first
	// candidate.
	SelectFunc func(ctx context.Context, question string, candidates []ai.ArticleCandidate) (int, error)

	preferred string
	callCount atomic.Int64
	mu        sync.Mutex
	last      []ai.ArticleCandidate
}

// NewMockSelector creates a mock selector that picks the first candidate.
func NewMockSelector() *MockSelector {
	return &MockSelector{}
}

// WithSelectFunc sets custom SelectArticle behavior.
func (m *MockSelector) WithSelectFunc(fn func(ctx context.Context, question string, candidates []ai.ArticleCandidate) (int, error)) *MockSelector {
	m.SelectFunc = fn
	return m
}

// WithClause makes SelectArticle pick clauseID whenever it is a candidate.
func (m *MockSelector) WithClause(clauseID string) *MockSelector {
	m.preferred = clauseID
	return m
}

func (m *MockSelector) SelectArticle(ctx context.Context, question string, candidates []ai.ArticleCandidate) (int, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.last = append([]ai.ArticleCandidate(nil), candidates...)
	m.mu.Unlock()

	if m.SelectFunc != nil {
		return m.SelectFunc(ctx, question, candidates)
	}
	for i, c := range candidates {
		if c.ClauseID == m.preferred {
			return i, nil
		}
	}
	return 0, nil
}

// LastCandidates returns the candidates passed to the most recent call.
func (m *MockSelector) LastCandidates() []ai.ArticleCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// CallCount returns the number of SelectArticle calls.
func (m *MockSelector) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count, recorded candidates and custom behavior.
func (m *MockSelector) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.last = nil
	m.mu.Unlock()
	m.SelectFunc = nil
	m.preferred = ""
}
