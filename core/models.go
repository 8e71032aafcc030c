package core

//go:generate go run ../cmd/musgen

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ContentHash returns a 64-bit BLAKE2b digest of text, hex encoded.
// Identical text always produces the identical hash.
func ContentHash(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkIDFromContent derives a deterministic sub-chunk identifier from the
// owning clause and the chunk text. Used when upstream segmentation does not
// assign ids.
func ChunkIDFromContent(clauseID, text string) string {
	return clauseID + "#" + ContentHash(text)
}

// PolicyVersion describes the single policy document version held by a store.
type PolicyVersion struct {
	VersionID     string
	ProductCode   string
	ProductName   string
	EffectiveDate string
	InsertedAt    time.Time
}

// Clause is a structural unit of a policy document, usually a numbered article.
// ID is immutable once created and Text is the verbatim source.
type Clause struct {
	ID            string
	Title         string
	Type          ClauseType
	Text          string
	Path          string   // Hierarchical position, e.g. "제2장 > 제11조"
	ArticleNumber int      // 0 when the clause is not a numbered article
	SpecialClause string   // Name of the owning special clause, empty for the main policy
	RiskTypes     []string // Risk types the clause covers or excludes
	InsertedAt    time.Time
}

// SubChunk is a semantically coherent slice of a clause's text.
type SubChunk struct {
	ID           string
	ClauseID     string // Owning clause
	Ordinal      int    // Position within the owning clause
	Text         string
	SemanticType ClauseType
	Reasoning    string    // Classifier note explaining SemanticType
	Embedding    []float32 // Populated by ingestion or reembedding
	EmbeddedHash string    // ContentHash of Text when Embedding was computed
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// HasEmbedding reports whether the chunk carries a vector.
func (c *SubChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// EmbeddingStale reports whether the chunk lacks an embedding or its text
// changed since the embedding was computed.
func (c *SubChunk) EmbeddingStale() bool {
	return !c.HasEmbedding() || c.EmbeddedHash != ContentHash(c.Text)
}

// SpecialClause is a named rider or endorsement grouping clauses.
type SpecialClause struct {
	Name        string
	Code        string
	Description string
}

// CrossReference is a directed textual reference between two clauses or
// sub-chunks, e.g. "as defined in Article 5".
type CrossReference struct {
	From  string
	To    string
	Label string
}
