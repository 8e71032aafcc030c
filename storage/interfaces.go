package storage

import (
	"context"

	"github.com/poiesic/policygraph/core"
)

// ScoredChunk pairs a sub-chunk with its cosine similarity to a query vector.
type ScoredChunk struct {
	Chunk *core.SubChunk
	Score float64
}

// ClauseRepository provides operations for clauses, special clauses and the
// policy version they belong to.
// Implementations must be safe for concurrent readers.
type ClauseRepository interface {
	// PutPolicyVersion records the policy version held by the store,
	// replacing any previous value.
	PutPolicyVersion(ctx context.Context, version *core.PolicyVersion) error

	// GetPolicyVersion returns the stored policy version.
	// Returns ErrNotFound if none was recorded.
	GetPolicyVersion(ctx context.Context) (*core.PolicyVersion, error)

	// AddSpecialClauses adds or replaces special clauses keyed by name.
	AddSpecialClauses(ctx context.Context, specials ...*core.SpecialClause) error

	// GetSpecialClause retrieves a special clause by exact name.
	// Returns ErrNotFound if the name does not exist.
	GetSpecialClause(ctx context.Context, name string) (*core.SpecialClause, error)

	// ListSpecialClauses returns all special clauses ordered by name.
	ListSpecialClauses(ctx context.Context) ([]*core.SpecialClause, error)

	// AddClauses adds clauses. Existing ids are rejected with ErrDuplicateKey
	// since clause identifiers are immutable once created.
	// Sets InsertedAt on every clause.
	AddClauses(ctx context.Context, clauses ...*core.Clause) ([]*core.Clause, error)

	// GetClause retrieves a clause by id.
	// Returns ErrNotFound if the clause doesn't exist.
	GetClause(ctx context.Context, id string) (*core.Clause, error)

	// GetClauses retrieves the clauses that exist among ids, in input order.
	GetClauses(ctx context.Context, ids ...string) ([]*core.Clause, error)

	// QueryClauses returns clauses matching q ordered by id ascending.
	// Returns ErrNotFound if q is restricted to a special clause that does
	// not exist.
	QueryClauses(ctx context.Context, q *Query) ([]*core.Clause, error)

	// CountClauses returns the number of stored clauses.
	CountClauses(ctx context.Context) (int, error)
}

// ChunkRepository provides operations for sub-chunks and their embedding index.
type ChunkRepository interface {
	// AddSubChunks adds sub-chunks. The owning clause must already exist
	// (ErrUnknownOwner otherwise) and ids must be new (ErrDuplicateKey).
	AddSubChunks(ctx context.Context, chunks ...*core.SubChunk) ([]*core.SubChunk, error)

	// UpdateSubChunks replaces existing sub-chunks, typically to store new
	// embeddings. Updates UpdatedAt automatically.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateSubChunks(ctx context.Context, chunks ...*core.SubChunk) ([]*core.SubChunk, error)

	// GetSubChunks retrieves the sub-chunks that exist among ids, in input order.
	GetSubChunks(ctx context.Context, ids ...string) ([]*core.SubChunk, error)

	// SubChunksOf returns the sub-chunks owned by a clause in ordinal order.
	SubChunksOf(ctx context.Context, clauseID string) ([]*core.SubChunk, error)

	// FindSimilar returns up to limit embedded sub-chunks ordered by cosine
	// similarity to vector (highest first, ties by id ascending).
	// A non-nil restrict limits the search to chunks whose id or owning
	// clause id is in the set.
	// Returns core.ErrDimensionMismatch if len(vector) != Dimensions().
	FindSimilar(ctx context.Context, vector []float32, limit int, restrict IDSet) ([]ScoredChunk, error)

	// ForEachSubChunk calls fn with batches of at most batchSize sub-chunks
	// ordered by id. Iteration stops at the first error.
	ForEachSubChunk(ctx context.Context, batchSize int, fn func([]*core.SubChunk) error) error

	// CountSubChunks returns the number of stored and embedded sub-chunks.
	CountSubChunks(ctx context.Context) (total int, embedded int, err error)

	// Dimensions returns the configured embedding dimensionality.
	Dimensions() int
}

// ReferenceRepository provides operations for cross-reference edges.
type ReferenceRepository interface {
	// AddReferences adds directed edges. Duplicate edges are ignored.
	AddReferences(ctx context.Context, refs ...core.CrossReference) error

	// ReferencesFrom returns the edges leaving id ordered by target id.
	ReferencesFrom(ctx context.Context, id string) ([]core.CrossReference, error)

	// CountReferences returns the number of stored edges.
	CountReferences(ctx context.Context) (int, error)
}

// Store aggregates every repository the retrieval engine reads from.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	ClauseRepository
	ChunkRepository
	ReferenceRepository

	// Close releases resources held by the store.
	Close() error
}

// Stats summarizes store contents.
type Stats struct {
	Clauses        int `json:"clauses"`
	SpecialClauses int `json:"special_clauses"`
	SubChunks      int `json:"sub_chunks"`
	Embedded       int `json:"embedded_sub_chunks"`
	References     int `json:"references"`
}

// CollectStats gathers Stats from a store.
func CollectStats(ctx context.Context, store Store) (Stats, error) {
	var stats Stats
	var err error
	if stats.Clauses, err = store.CountClauses(ctx); err != nil {
		return stats, err
	}
	specials, err := store.ListSpecialClauses(ctx)
	if err != nil {
		return stats, err
	}
	stats.SpecialClauses = len(specials)
	if stats.SubChunks, stats.Embedded, err = store.CountSubChunks(ctx); err != nil {
		return stats, err
	}
	if stats.References, err = store.CountReferences(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}
