package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

// Expander follows cross references outward from a set of seed ids.
type Expander struct {
	refs    storage.ReferenceRepository
	clauses storage.ClauseRepository
	chunks  storage.ChunkRepository
	logger  *slog.Logger
}

// NewExpander creates an expander over the given repositories.
func NewExpander(refs storage.ReferenceRepository, clauses storage.ClauseRepository, chunks storage.ChunkRepository, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{
		refs:    refs,
		clauses: clauses,
		chunks:  chunks,
		logger:  logger.With("component", "expander"),
	}
}

// Expand returns the seeds plus every id reachable through at most hopLimit
// cross-reference hops. Each round visits only ids first reached in the
// previous round, so cycles terminate and repeated calls give the same set.
func (e *Expander) Expand(ctx context.Context, seeds []string, hopLimit int) (storage.IDSet, error) {
	if hopLimit < 0 {
		return nil, fmt.Errorf("%w: hop limit must not be negative, got %d", core.ErrInvalidParameter, hopLimit)
	}

	result := storage.NewIDSet()
	frontier := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if id != "" && result.Add(id) {
			frontier = append(frontier, id)
		}
	}

	for hop := 0; hop < hopLimit && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			refs, err := e.refs.ReferencesFrom(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("references from %s: %w", id, err)
			}
			for _, ref := range refs {
				if result.Add(ref.To) {
					next = append(next, ref.To)
				}
			}
		}
		frontier = next
	}
	return result, nil
}

// Neighbours returns the clauses referenced, within hopLimit hops, from
// the ranked items that are not themselves among them, sorted by id.
// Extra seeds, such as a clause named in the question, are expanded too and
// returned themselves when they exist. References to sub-chunks resolve to
// the owning clause; ids the store does not hold are dropped.
func (e *Expander) Neighbours(ctx context.Context, ranked []RankedResult, hopLimit int, extra ...string) ([]*core.Clause, error) {
	if hopLimit < 0 {
		return nil, fmt.Errorf("%w: hop limit must not be negative, got %d", core.ErrInvalidParameter, hopLimit)
	}
	present := storage.NewIDSet()
	seeds := make([]string, 0, len(ranked)*2+len(extra))
	for _, r := range ranked {
		present.Add(r.ID())
		present.Add(r.ClauseID())
		seeds = append(seeds, r.ID(), r.ClauseID())
	}
	for _, id := range extra {
		if id = strings.TrimSpace(id); id != "" {
			seeds = append(seeds, id)
		}
	}
	if len(seeds) == 0 {
		return []*core.Clause{}, nil
	}
	return e.referenced(ctx, seeds, present, hopLimit)
}

// referenced expands seeds and returns the reached clauses whose id is not
// in exclude, sorted by id.
func (e *Expander) referenced(ctx context.Context, seeds []string, exclude storage.IDSet, hopLimit int) ([]*core.Clause, error) {
	reached, err := e.Expand(ctx, seeds, hopLimit)
	if err != nil {
		return nil, err
	}

	var candidates []string
	for _, id := range reached.Sorted() {
		if !exclude.Has(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return []*core.Clause{}, nil
	}

	// Ids may name sub-chunks; map them to their owners.
	clauseIDs := storage.NewIDSet()
	chunks, err := e.chunks.GetSubChunks(ctx, candidates...)
	if err != nil {
		return nil, err
	}
	isChunk := storage.NewIDSet()
	for _, c := range chunks {
		isChunk.Add(c.ID)
		if !exclude.Has(c.ClauseID) {
			clauseIDs.Add(c.ClauseID)
		}
	}
	for _, id := range candidates {
		if !isChunk.Has(id) {
			clauseIDs.Add(id)
		}
	}

	clauses, err := e.clauses.GetClauses(ctx, clauseIDs.Sorted()...)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("expanded references", "seeds", len(seeds), "reached", len(reached), "clauses", len(clauses))
	return clauses, nil
}
