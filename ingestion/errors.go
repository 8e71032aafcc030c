package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a clause store is not provided.
	ErrStoreRequired = errors.New("clause store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidDocument is returned when a policy document fails validation.
	ErrInvalidDocument = errors.New("invalid policy document")

	// ErrEmbeddingMismatch is returned when the embedder returns a different
	// number of vectors than texts submitted.
	ErrEmbeddingMismatch = errors.New("embedding result mismatch")
)
