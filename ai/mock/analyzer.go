package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/policygraph/ai"
)

// MockAnalyzer is a test double for ai.QueryAnalyzer.
type MockAnalyzer struct {
	// AnalyzeFunc is called by Analyze if set.
	// If nil, returns ai.FallbackAnalysis of the question.
	AnalyzeFunc func(ctx context.Context, question string) (ai.QueryAnalysis, error)

	callCount atomic.Int64
}

// NewMockAnalyzer creates a mock analyzer with heuristic default behavior.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// WithAnalyzeFunc sets custom Analyze behavior.
func (m *MockAnalyzer) WithAnalyzeFunc(fn func(ctx context.Context, question string) (ai.QueryAnalysis, error)) *MockAnalyzer {
	m.AnalyzeFunc = fn
	return m
}

// WithAnalysis makes every call return a copy of a with the question filled in.
func (m *MockAnalyzer) WithAnalysis(a ai.QueryAnalysis) *MockAnalyzer {
	return m.WithAnalyzeFunc(func(_ context.Context, question string) (ai.QueryAnalysis, error) {
		out := a
		out.RawQuestion = question
		return out, nil
	})
}

func (m *MockAnalyzer) Analyze(ctx context.Context, question string) (ai.QueryAnalysis, error) {
	m.callCount.Add(1)

	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, question)
	}
	return ai.FallbackAnalysis(question), nil
}

// CallCount returns the number of Analyze calls.
func (m *MockAnalyzer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom behavior.
func (m *MockAnalyzer) Reset() {
	m.callCount.Store(0)
	m.AnalyzeFunc = nil
}
