package storage

import (
	"cmp"
	"math"
	"slices"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or with zero norm score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push parallel vectors just past 1.
	return math.Max(-1, math.Min(1, sim))
}

// SortScoredChunks orders results by score descending, then chunk id ascending.
func SortScoredChunks(results []ScoredChunk) {
	slices.SortFunc(results, func(a, b ScoredChunk) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.ID, b.Chunk.ID)
	})
}

// TopScoredChunks sorts results and truncates them to limit.
func TopScoredChunks(results []ScoredChunk, limit int) []ScoredChunk {
	SortScoredChunks(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
