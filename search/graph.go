package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

// GraphQuery holds the structural signals for graph retrieval.
type GraphQuery struct {
	Intent        core.Intent
	Keywords      []string
	RiskTypes     []string
	SpecialClause string // Exact special clause name; empty for no restriction
	TopK          int
}

// GraphRetriever scores clauses by how many of the query's structural
// predicates they satisfy.
type GraphRetriever struct {
	clauses storage.ClauseRepository
	chunks  storage.ChunkRepository
	logger  *slog.Logger
}

// NewGraphRetriever creates a graph retriever over the given repositories.
func NewGraphRetriever(clauses storage.ClauseRepository, chunks storage.ChunkRepository, logger *slog.Logger) *GraphRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphRetriever{
		clauses: clauses,
		chunks:  chunks,
		logger:  logger.With("component", "graph_retriever"),
	}
}

// predicates returns the evaluable predicates of q. Predicates with empty
// input are left out and do not count towards the score denominator.
func (q GraphQuery) predicates() []storage.Predicate {
	var ps []storage.Predicate
	if ct, ok := q.Intent.ClauseType(); ok {
		ps = append(ps, storage.TypeIn{ct})
	}
	if kw := storage.NewTextContains(q.Keywords...); !kw.Empty() {
		ps = append(ps, kw)
	}
	if rt := storage.NewRiskTypeIn(q.RiskTypes...); !rt.Empty() {
		ps = append(ps, rt)
	}
	return ps
}

// Retrieve returns up to q.TopK items ordered by graph score descending,
// then item id ascending. Each matched clause contributes its
// sub-chunks, all carrying the clause's score, or itself when it has none.
//
// Returns core.ErrNotFound if q.SpecialClause names a special clause that
// does not exist.
func (r *GraphRetriever) Retrieve(ctx context.Context, q GraphQuery) ([]Hit, error) {
	if q.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", core.ErrInvalidParameter, q.TopK)
	}

	ps := q.predicates()
	special := strings.TrimSpace(q.SpecialClause)
	if len(ps) == 0 && special == "" {
		r.logger.Debug("no evaluable predicates")
		return []Hit{}, nil
	}

	query := storage.NewQuery().OwnedBy(special)
	for _, p := range ps {
		query.Where(p)
	}

	clauses, err := r.clauses.QueryClauses(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("graph query %s: %w", query, err)
	}

	type scored struct {
		clause *core.Clause
		score  float64
	}
	matches := make([]scored, 0, len(clauses))
	for _, clause := range clauses {
		score := 1.0 // special clause membership alone
		if len(ps) > 0 {
			satisfied := 0
			for _, p := range ps {
				if p.Matches(clause) {
					satisfied++
				}
			}
			score = float64(satisfied) / float64(len(ps))
		}
		if score > 0 {
			matches = append(matches, scored{clause: clause, score: score})
		}
	}
	slices.SortFunc(matches, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.clause.ID, b.clause.ID)
	})

	// Clauses sharing the score at the TopK boundary all contribute items
	// so the final order does not depend on which clause was expanded first.
	var hits []Hit
	for i, m := range matches {
		if len(hits) >= q.TopK && m.score < matches[i-1].score {
			break
		}
		chunks, err := r.chunks.SubChunksOf(ctx, m.clause.ID)
		if err != nil {
			return nil, fmt.Errorf("sub-chunks of %s: %w", m.clause.ID, err)
		}
		if len(chunks) == 0 {
			hits = append(hits, Hit{Item: Item{Clause: m.clause}, Score: m.score})
			continue
		}
		for _, chunk := range chunks {
			hits = append(hits, Hit{Item: Item{Clause: m.clause, Chunk: chunk}, Score: m.score})
		}
	}
	if hits == nil {
		hits = []Hit{}
	}
	sortHits(hits)
	if len(hits) > q.TopK {
		hits = hits[:q.TopK]
	}

	r.logger.Debug("graph retrieval complete", "query", query.String(), "clauses", len(matches), "hits", len(hits))
	return hits, nil
}
