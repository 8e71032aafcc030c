package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/policygraph/core"
)

// Item is a retrievable unit: a sub-chunk with its owning clause, or a bare
// clause that has no sub-chunks.
type Item struct {
	Clause *core.Clause
	Chunk  *core.SubChunk
}

// ID returns the sub-chunk id, or the clause id for a bare clause.
func (it Item) ID() string {
	if it.Chunk != nil {
		return it.Chunk.ID
	}
	if it.Clause != nil {
		return it.Clause.ID
	}
	return ""
}

// ClauseID returns the id of the owning clause.
func (it Item) ClauseID() string {
	if it.Clause != nil {
		return it.Clause.ID
	}
	if it.Chunk != nil {
		return it.Chunk.ClauseID
	}
	return ""
}

// SemanticType returns the chunk's semantic type, or the clause type for a
// bare clause.
func (it Item) SemanticType() core.ClauseType {
	if it.Chunk != nil {
		return it.Chunk.SemanticType
	}
	if it.Clause != nil {
		return it.Clause.Type
	}
	return core.ClauseTypeUncategorized
}

// Text returns the verbatim text of the item.
func (it Item) Text() string {
	if it.Chunk != nil {
		return it.Chunk.Text
	}
	if it.Clause != nil {
		return it.Clause.Text
	}
	return ""
}

// Title returns the owning clause title, if known.
func (it Item) Title() string {
	if it.Clause != nil {
		return it.Clause.Title
	}
	return ""
}

// Hit is an item with a single retriever's score.
type Hit struct {
	Item
	Score float64
}

// sortHits orders hits by score descending, then item id. Rank breaks ties
// the same way, so alpha 0 or 1 reproduces a retriever's order.
func sortHits(hits []Hit) {
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
}
