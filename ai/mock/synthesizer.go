package mock

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/policygraph/ai"
)

// MockSynthesizer is a test double for ai.AnswerSynthesizer.
type MockSynthesizer struct {
	// SynthesizeFunc is called by Synthesize if set.
	// If nil, concatenates clause ids and cites every piece of evidence.
	SynthesizeFunc func(ctx context.Context, question string, evidence []ai.Evidence) (ai.Answer, error)

	callCount atomic.Int64
	mu        sync.Mutex
	last      []ai.Evidence
}

// NewMockSynthesizer creates a mock synthesizer with default behavior.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

// WithSynthesizeFunc sets custom Synthesize behavior.
func (m *MockSynthesizer) WithSynthesizeFunc(fn func(ctx context.Context, question string, evidence []ai.Evidence) (ai.Answer, error)) *MockSynthesizer {
	m.SynthesizeFunc = fn
	return m
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, question string, evidence []ai.Evidence) (ai.Answer, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.last = append([]ai.Evidence(nil), evidence...)
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, question, evidence)
	}

	ids := make([]string, len(evidence))
	citations := make([]ai.Citation, len(evidence))
	for i, e := range evidence {
		ids[i] = e.ClauseID
		citations[i] = ai.Citation{ClauseID: e.ClauseID, Title: e.Title}
	}
	return ai.Answer{
		Text:       strings.Join(ids, ", "),
		Coverage:   []string{},
		Exclusions: []string{},
		Conditions: []string{},
		Citations:  citations,
		Confidence: 0.8,
	}, nil
}

// LastEvidence returns the evidence passed to the most recent call.
func (m *MockSynthesizer) LastEvidence() []ai.Evidence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// CallCount returns the number of Synthesize calls.
func (m *MockSynthesizer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count, recorded evidence and custom behavior.
func (m *MockSynthesizer) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.last = nil
	m.mu.Unlock()
	m.SynthesizeFunc = nil
}
