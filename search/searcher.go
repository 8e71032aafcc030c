package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
	"golang.org/x/sync/errgroup"
)

// Query is one question with its structured analysis.
type Query struct {
	Question        string // Raw question text, embedded for vector retrieval
	Intent          core.Intent
	Keywords        []string
	RiskTypes       []string
	SpecialClause   string
	ClauseMentioned string  // Clause id named in the question, e.g. "제11조"
	Params          *Config // Overrides the searcher config for this call
}

// Response is the outcome of a search.
type Response struct {
	RequestID  string
	Results    []RankedResult
	References []*core.Clause // Cross-referenced clauses not among Results
	Degraded   bool           // One retriever failed and was skipped

	// SelectedClause is the clause chosen in article selection mode.
	// Results then hold only its items.
	SelectedClause string
}

// Searcher runs hybrid retrieval for single questions. It holds no mutable
// state and is safe for concurrent use.
type Searcher struct {
	store    storage.Store
	embedder ai.Embedder
	graph    *GraphRetriever
	vector   *VectorRetriever
	expander *Expander
	selector ai.ArticleSelector
	config   Config
	monitor  SearchMonitor
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithConfig replaces the default retrieval configuration.
func WithConfig(cfg Config) Option {
	return func(s *Searcher) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		s.config = cfg
		return nil
	}
}

// WithMonitor installs a stage monitor. Default is a no-op monitor.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.Store, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:    store,
		embedder: embedder,
		config:   DefaultConfig(),
		monitor:  noopMonitor{},
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("component", "searcher")
	s.graph = NewGraphRetriever(store, store, s.logger)
	s.vector = NewVectorRetriever(store, store, s.logger)
	s.expander = NewExpander(store, store, store, s.logger)
	return s, nil
}

// Config returns the searcher's default configuration.
func (s *Searcher) Config() Config {
	return s.config
}

// Search retrieves, ranks and expands candidates for q.
//
// Both retrievers run concurrently, each under the configured retriever
// timeout. A retriever that exceeds it fails the search with
// core.ErrRetrieverTimeout unless degraded mode is enabled. Cancelling ctx
// cancels both. With Config.SelectArticle and an article selector, results
// are narrowed to one clause before expansion.
func (s *Searcher) Search(ctx context.Context, q Query) (*Response, error) {
	cfg := s.config
	if q.Params != nil {
		cfg = *q.Params
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)
	start := time.Now()
	s.monitor.Start(requestID, q)

	resp, err := s.search(ctx, requestID, q, cfg, logger)
	elapsed := time.Since(start)
	if err != nil {
		logger.Debug("search failed", "err", err, "elapsed", elapsed)
		s.monitor.Failed(requestID, err, elapsed)
		return nil, err
	}

	logger.Debug("search complete",
		"intent", q.Intent.String(),
		"results", len(resp.Results),
		"references", len(resp.References),
		"degraded", resp.Degraded,
		"elapsed", elapsed)
	s.monitor.Finish(requestID, resp, elapsed)
	return resp, nil
}

func (s *Searcher) search(ctx context.Context, requestID string, q Query, cfg Config, logger *slog.Logger) (*Response, error) {
	gq := GraphQuery{
		Intent:        q.Intent,
		Keywords:      q.Keywords,
		RiskTypes:     q.RiskTypes,
		SpecialClause: q.SpecialClause,
		TopK:          cfg.candidates(),
	}

	var graphHits, vectorHits []Hit
	var graphErr, vectorErr error

	if cfg.PrefilterVector {
		graphHits, graphErr = s.runGraph(ctx, requestID, cfg, gq)
		switch {
		case graphErr == nil:
			restrict := storage.NewIDSet()
			for _, h := range graphHits {
				restrict.Add(h.ID())
			}
			vectorHits, vectorErr = s.runVector(ctx, requestID, cfg, q.Question, restrict)
		case fatal(ctx, cfg, graphErr) == nil:
			// Degraded graph signal; search the whole index.
			vectorHits, vectorErr = s.runVector(ctx, requestID, cfg, q.Question, nil)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			graphHits, graphErr = s.runGraph(gctx, requestID, cfg, gq)
			return fatal(ctx, cfg, graphErr)
		})
		g.Go(func() error {
			vectorHits, vectorErr = s.runVector(gctx, requestID, cfg, q.Question, nil)
			return fatal(ctx, cfg, vectorErr)
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	degraded := false
	switch {
	case graphErr != nil && vectorErr != nil:
		return nil, errors.Join(graphErr, vectorErr)
	case graphErr != nil:
		if fatal(ctx, cfg, graphErr) != nil {
			return nil, graphErr
		}
		logger.Warn("graph retriever failed, continuing on vector signal", "err", graphErr)
		degraded = true
	case vectorErr != nil:
		if fatal(ctx, cfg, vectorErr) != nil {
			return nil, vectorErr
		}
		logger.Warn("vector retriever failed, continuing on graph signal", "err", vectorErr)
		degraded = true
	}

	results, err := Rank(graphHits, vectorHits, cfg.RankParams(q.Intent))
	if err != nil {
		return nil, err
	}
	s.monitor.AfterRank(requestID, results)

	var selected string
	if cfg.SelectArticle && s.selector != nil {
		results, selected, err = s.selectArticle(ctx, q.Question, results, logger)
		if err != nil {
			return nil, err
		}
	}

	refs := []*core.Clause{}
	if cfg.ExpandReferences && cfg.HopLimit > 0 {
		refs, err = s.expander.Neighbours(ctx, results, cfg.HopLimit, q.ClauseMentioned)
		if err != nil {
			return nil, fmt.Errorf("expand references: %w", err)
		}
		s.monitor.AfterExpand(requestID, refs)
	}

	return &Response{
		RequestID:      requestID,
		Results:        results,
		References:     refs,
		Degraded:       degraded,
		SelectedClause: selected,
	}, nil
}

// fatal returns err when it must abort the search: always, unless degraded
// mode is on and err is neither a caller error nor a caller cancellation.
func fatal(parent context.Context, cfg Config, err error) error {
	if err == nil {
		return nil
	}
	if !cfg.AllowDegraded || parent.Err() != nil {
		return err
	}
	if errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrInvalidParameter) ||
		errors.Is(err, core.ErrDimensionMismatch) {
		return err
	}
	return nil
}

func (s *Searcher) runGraph(ctx context.Context, requestID string, cfg Config, gq GraphQuery) ([]Hit, error) {
	bctx, cancel := context.WithTimeout(ctx, cfg.RetrieverTimeout)
	defer cancel()

	start := time.Now()
	hits, err := s.graph.Retrieve(bctx, gq)
	if err != nil {
		return nil, branchError("graph", ctx, bctx, err)
	}
	s.monitor.AfterGraph(requestID, hits, time.Since(start))
	return hits, nil
}

func (s *Searcher) runVector(ctx context.Context, requestID string, cfg Config, question string, restrict storage.IDSet) ([]Hit, error) {
	bctx, cancel := context.WithTimeout(ctx, cfg.RetrieverTimeout)
	defer cancel()

	start := time.Now()
	if strings.TrimSpace(question) == "" {
		s.monitor.AfterVector(requestID, nil, time.Since(start))
		return []Hit{}, nil
	}
	embedding, err := s.embedder.EmbedText(bctx, question)
	if err != nil {
		return nil, branchError("vector", ctx, bctx, fmt.Errorf("embed question: %w", err))
	}
	hits, err := s.vector.Retrieve(bctx, embedding, cfg.candidates(), restrict)
	if err != nil {
		return nil, branchError("vector", ctx, bctx, err)
	}
	s.monitor.AfterVector(requestID, hits, time.Since(start))
	return hits, nil
}

// branchError converts a branch deadline into core.ErrRetrieverTimeout. A
// cancelled or expired parent context is reported as is.
func branchError(branch string, parent, branchCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(branchCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s retriever: %w", core.ErrRetrieverTimeout, branch, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s retriever: %w", branch, err)
}

// ClauseContext is a clause with its structural surroundings.
type ClauseContext struct {
	Clause     *core.Clause
	Special    *core.SpecialClause // Owning special clause, nil for the main policy
	SubChunks  []*core.SubChunk    // In ordinal order
	References []core.CrossReference
}

// Clause looks up a clause by id with its sub-chunks, owning special clause
// and outgoing references. Returns core.ErrNotFound for unknown ids.
func (s *Searcher) Clause(ctx context.Context, id string) (*ClauseContext, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: clause id is required", core.ErrInvalidParameter)
	}
	clause, err := s.store.GetClause(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &ClauseContext{Clause: clause}
	if clause.SpecialClause != "" {
		special, err := s.store.GetSpecialClause(ctx, clause.SpecialClause)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		out.Special = special
	}
	if out.SubChunks, err = s.store.SubChunksOf(ctx, id); err != nil {
		return nil, err
	}
	if out.References, err = s.store.ReferencesFrom(ctx, id); err != nil {
		return nil, err
	}
	return out, nil
}
