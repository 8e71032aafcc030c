// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mock

import "github.com/poiesic/policygraph/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock embedder, analyzer, synthesizer and selector instances.
type MockProvider struct {
	embedder    *MockEmbedder
	analyzer    *MockAnalyzer
	synthesizer *MockSynthesizer
	selector    *MockSelector
	closed      bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use the GetMock accessors to reach concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockAnalyzer(), NewMockSynthesizer())
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// Nil services are replaced with defaults. The selector is always a default
// MockSelector; reach it with GetMockSelector.
func NewMockProviderWithServices(embedder *MockEmbedder, analyzer *MockAnalyzer, synthesizer *MockSynthesizer) *MockProvider {
	if embedder == nil {
		embedder = NewMockEmbedder()
	}
	if analyzer == nil {
		analyzer = NewMockAnalyzer()
	}
	if synthesizer == nil {
		synthesizer = NewMockSynthesizer()
	}
	return &MockProvider{
		embedder:    embedder,
		analyzer:    analyzer,
		synthesizer: synthesizer,
		selector:    NewMockSelector(),
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// QueryAnalyzer returns the mock analyzer.
func (p *MockProvider) QueryAnalyzer() ai.QueryAnalyzer {
	return p.analyzer
}

// AnswerSynthesizer returns the mock synthesizer.
func (p *MockProvider) AnswerSynthesizer() ai.AnswerSynthesizer {
	return p.synthesizer
}

// ArticleSelector returns the mock selector.
func (p *MockProvider) ArticleSelector() ai.ArticleSelector {
	return p.selector
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockAnalyzer returns the underlying mock analyzer for test assertions.
func (p *MockProvider) GetMockAnalyzer() *MockAnalyzer {
	return p.analyzer
}

// GetMockSynthesizer returns the underlying mock synthesizer for test assertions.
func (p *MockProvider) GetMockSynthesizer() *MockSynthesizer {
	return p.synthesizer
}

// GetMockSelector returns the underlying mock selector for test assertions.
func (p *MockProvider) GetMockSelector() *MockSelector {
	return p.selector
}
