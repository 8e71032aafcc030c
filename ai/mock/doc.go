// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.QueryAnalyzer,
// ai.AnswerSynthesizer, ai.ArticleSelector and ai.AIProvider for use in unit tests. The mocks
// run without external AI services and behave deterministically.
//
// # Usage in Tests
//
//	mockEmbedder := mock.NewMockEmbedderWithDimensions(3).
//	    WithVector("화재 보상", []float32{1, 0, 0})
//
//	mockAnalyzer := mock.NewMockAnalyzer().WithAnalysis(ai.QueryAnalysis{
//	    Intent:   core.IntentExclusion,
//	    Keywords: []string{"화재"},
//	})
//
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns unit vectors derived from the text hash
//   - MockAnalyzer: Returns ai.FallbackAnalysis of the question
//   - MockSynthesizer: Lists clause ids and cites every piece of evidence
//   - MockSelector: Picks the preferred clause if offered, else the first candidate
//   - MockProvider: Aggregates the four
package mock
