package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// QueryAnalyzer turns a free-text question into a structured query record.
// Implementations must be thread-safe for concurrent use.
type QueryAnalyzer interface {
	// Analyze extracts intent, keywords, risk types and any named special
	// clause or clause number from question. Callers fall back to
	// FallbackAnalysis when it fails.
	Analyze(ctx context.Context, question string) (QueryAnalysis, error)
}

// AnswerSynthesizer writes a cited answer from retrieved evidence.
// Implementations must be thread-safe for concurrent use.
type AnswerSynthesizer interface {
	// Synthesize answers question using only evidence. evidence is never
	// empty; callers handle the no-results case themselves.
	Synthesize(ctx context.Context, question string, evidence []Evidence) (Answer, error)
}

// ArticleSelector picks the single clause that best answers a question.
// Implementations must be thread-safe for concurrent use.
type ArticleSelector interface {
	// SelectArticle returns the index of the best candidate. candidates is
	// never empty. An index outside candidates is an error.
	SelectArticle(ctx context.Context, question string, candidates []ArticleCandidate) (int, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// QueryAnalyzer returns the query understanding service.
	QueryAnalyzer() QueryAnalyzer

	// AnswerSynthesizer returns the answer writing service.
	AnswerSynthesizer() AnswerSynthesizer

	// ArticleSelector returns the clause selection service.
	ArticleSelector() ArticleSelector

	// Close releases resources held by the provider and its services.
	Close() error
}
