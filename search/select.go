package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/policygraph/ai"
)

// WithArticleSelector installs the selector used when Config.SelectArticle
// is set. Without one, SelectArticle has no effect.
func WithArticleSelector(selector ai.ArticleSelector) Option {
	return func(s *Searcher) error {
		s.selector = selector
		return nil
	}
}

// articleCandidates returns the distinct owning clauses of results in rank
// order.
func articleCandidates(results []RankedResult) []ai.ArticleCandidate {
	seen := make(map[string]bool, len(results))
	var out []ai.ArticleCandidate
	for _, r := range results {
		id := r.ClauseID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		c := ai.ArticleCandidate{ClauseID: id, Text: r.Text()}
		if r.Clause != nil {
			c.Title = r.Clause.Title
			c.Text = r.Clause.Text
		}
		out = append(out, c)
	}
	return out
}

// selectArticle keeps only the results owned by the clause the selector
// picks. A selector failure other than cancellation falls back to the
// top-ranked clause.
func (s *Searcher) selectArticle(ctx context.Context, question string, results []RankedResult, logger *slog.Logger) ([]RankedResult, string, error) {
	candidates := articleCandidates(results)
	if len(candidates) == 0 {
		return results, "", nil
	}

	index, err := s.selector.SelectArticle(ctx, question, candidates)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		logger.Warn("error selecting clause, using top-ranked clause", "err", err)
		index = 0
	}
	if index < 0 || index >= len(candidates) {
		logger.Warn("selector chose an unknown candidate, using top-ranked clause", "index", index)
		index = 0
	}

	selected := candidates[index].ClauseID
	kept := make([]RankedResult, 0, len(results))
	for _, r := range results {
		if r.ClauseID() == selected {
			kept = append(kept, r)
		}
	}
	logger.Debug("selected clause", "clause_id", selected, "candidates", len(candidates), "kept", len(kept))
	return kept, selected, nil
}
