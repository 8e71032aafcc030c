package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
)

// DefaultDimensions is the length of generated vectors.
const DefaultDimensions = 8

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
// Safe for concurrent use once configured.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses fixed vectors, then default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, EmbedText is applied to every text.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	dims      int
	mu        sync.RWMutex
	fixed     map[string][]float32
	callCount atomic.Int64
}

// NewMockEmbedder creates a mock embedder producing DefaultDimensions vectors.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return NewMockEmbedderWithDimensions(DefaultDimensions)
}

// NewMockEmbedderWithDimensions creates a mock embedder producing dims-length vectors.
func NewMockEmbedderWithDimensions(dims int) *MockEmbedder {
	return &MockEmbedder{dims: dims, fixed: make(map[string][]float32)}
}

// WithEmbedTextFunc sets custom EmbedText behavior.
func (m *MockEmbedder) WithEmbedTextFunc(fn func(ctx context.Context, text string) ([]float32, error)) *MockEmbedder {
	m.EmbedTextFunc = fn
	return m
}

// WithEmbedTextsFunc sets custom EmbedTexts behavior.
func (m *MockEmbedder) WithEmbedTextsFunc(fn func(ctx context.Context, texts []string) ([][]float32, error)) *MockEmbedder {
	m.EmbedTextsFunc = fn
	return m
}

// WithVector makes text embed to vector.
func (m *MockEmbedder) WithVector(text string, vector []float32) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[text] = vector
	return m
}

// Dimensions returns the length of generated vectors.
func (m *MockEmbedder) Dimensions() int {
	return m.dims
}

// EmbedText returns a fixed vector for known text, otherwise a
// deterministic embedding based on the text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return m.embed(ctx, text)
}

// EmbedTexts generates embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		var err error
		if m.EmbedTextFunc != nil {
			embeddings[i], err = m.EmbedTextFunc(ctx, text)
		} else {
			embeddings[i], err = m.embed(ctx, text)
		}
		if err != nil {
			return nil, err
		}
	}
	return embeddings, nil
}

func (m *MockEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	v, ok := m.fixed[text]
	m.mu.RUnlock()
	if ok {
		return append([]float32(nil), v...), nil
	}
	return GenerateDeterministicVector(text, m.dims), nil
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count, fixed vectors and custom behavior.
func (m *MockEmbedder) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.fixed = make(map[string][]float32)
	m.mu.Unlock()
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// GenerateDeterministicVector creates a unit-length embedding vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func GenerateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 + 0.001
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
