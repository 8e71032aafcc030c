package search

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/poiesic/policygraph/core"
)

// Provenance records which retrievers produced a candidate.
type Provenance uint8

const (
	// FromGraph marks candidates found by the graph retriever.
	FromGraph Provenance = 1 << iota
	// FromVector marks candidates found by the vector retriever.
	FromVector
)

// Has reports whether p includes every bit of flag.
func (p Provenance) Has(flag Provenance) bool {
	return p&flag == flag
}

func (p Provenance) String() string {
	var parts []string
	if p.Has(FromGraph) {
		parts = append(parts, "graph")
	}
	if p.Has(FromVector) {
		parts = append(parts, "vector")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// MarshalText implements encoding.TextMarshaler.
func (p Provenance) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Candidate is one merged item with the partial scores of the retrievers
// that found it. A nil score means the retriever did not return the item,
// which is distinct from a zero score.
type Candidate struct {
	Item
	GraphScore  *float64
	VectorScore *float64
	Provenance  Provenance
}

// FullSignal reports whether both retrievers scored the candidate.
func (c Candidate) FullSignal() bool {
	return c.GraphScore != nil && c.VectorScore != nil
}

// RankedResult is a scored candidate in final order.
type RankedResult struct {
	Candidate
	HybridScore float64
	Penalized   bool // Semantic type disagreed with the intent
}

// RankParams tunes a single Rank call.
type RankParams struct {
	Alpha          float64 // Weight of the vector score in [0,1]
	Intent         core.Intent
	TopK           int
	MismatchFactor float64 // Multiplier in [0,1] for intent-mismatched items
}

// Validate checks parameter ranges.
func (p RankParams) Validate() error {
	if math.IsNaN(p.Alpha) || p.Alpha < 0 || p.Alpha > 1 {
		return fmt.Errorf("%w: alpha must be in [0,1], got %v", core.ErrInvalidParameter, p.Alpha)
	}
	if p.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", core.ErrInvalidParameter, p.TopK)
	}
	if math.IsNaN(p.MismatchFactor) || p.MismatchFactor < 0 || p.MismatchFactor > 1 {
		return fmt.Errorf("%w: mismatch factor must be in [0,1], got %v", core.ErrInvalidParameter, p.MismatchFactor)
	}
	return nil
}

// Merge deduplicates graph and vector hits by item id. Graph candidates come
// first in input order, followed by vector-only candidates in input order.
// Within one input the first occurrence of an id wins.
func Merge(graph, vector []Hit) []Candidate {
	index := make(map[string]int, len(graph)+len(vector))
	merged := make([]Candidate, 0, len(graph)+len(vector))

	for _, h := range graph {
		id := h.ID()
		if _, dup := index[id]; dup {
			continue
		}
		score := h.Score
		index[id] = len(merged)
		merged = append(merged, Candidate{Item: h.Item, GraphScore: &score, Provenance: FromGraph})
	}

	for _, h := range vector {
		id := h.ID()
		score := h.Score
		i, ok := index[id]
		if !ok {
			index[id] = len(merged)
			merged = append(merged, Candidate{Item: h.Item, VectorScore: &score, Provenance: FromVector})
			continue
		}
		c := &merged[i]
		if c.VectorScore != nil {
			continue
		}
		c.VectorScore = &score
		c.Provenance |= FromVector
		if c.Clause == nil {
			c.Clause = h.Clause
		}
		if c.Chunk == nil {
			c.Chunk = h.Chunk
		}
	}
	return merged
}

// Rank merges graph and vector hits and orders them by
//
//	hybrid = alpha*vector + (1-alpha)*graph
//
// with absent scores counting as 0. When the intent is not general, items
// whose semantic type differs from the intent's clause type are kept but
// their hybrid score is multiplied by MismatchFactor. Ties order full-signal
// items first, then by id ascending. The result holds at most TopK items.
func Rank(graph, vector []Hit, p RankParams) ([]RankedResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	intentType, typed := p.Intent.ClauseType()
	candidates := Merge(graph, vector)
	results := make([]RankedResult, len(candidates))
	for i, c := range candidates {
		var g, v float64
		if c.GraphScore != nil {
			g = *c.GraphScore
		}
		if c.VectorScore != nil {
			v = *c.VectorScore
		}
		r := RankedResult{Candidate: c, HybridScore: p.Alpha*v + (1-p.Alpha)*g}
		if typed && c.SemanticType() != intentType {
			r.HybridScore *= p.MismatchFactor
			r.Penalized = true
		}
		results[i] = r
	}

	slices.SortFunc(results, compareRanked)
	if len(results) > p.TopK {
		results = results[:p.TopK]
	}
	return results, nil
}

func compareRanked(a, b RankedResult) int {
	if c := cmp.Compare(b.HybridScore, a.HybridScore); c != 0 {
		return c
	}
	if af, bf := a.FullSignal(), b.FullSignal(); af != bf {
		if af {
			return -1
		}
		return 1
	}
	return cmp.Compare(a.ID(), b.ID())
}
