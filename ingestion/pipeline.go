package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

// DefaultBatchSize is the number of sub-chunks embedded per request.
const DefaultBatchSize = 32

// Progress reports embedding progress of one ingestion.
type Progress struct {
	Embedded int
	Total    int
}

// ProgressFunc receives progress after every embedded batch. Calls are
// serialized.
type ProgressFunc func(Progress)

// Result summarizes a completed ingestion.
type Result struct {
	PolicyVersion  string        `json:"policy_version,omitempty"`
	SpecialClauses int           `json:"special_clauses"`
	Clauses        int           `json:"clauses"`
	SubChunks      int           `json:"sub_chunks"`
	Embedded       int           `json:"embedded_sub_chunks"`
	References     int           `json:"references"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Pipeline orchestrates the ingestion of policy documents.
// It embeds sub-chunks concurrently on a bounded worker pool.
type Pipeline struct {
	store         storage.Store
	embeddingPool *ants.Pool
	embeddingProc processor
	batchSize     int
	progress      ProgressFunc
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embeddingPool = embeddingPool
		return nil
	}
}

// WithBatchSize sets how many sub-chunks are embedded per request.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size must be positive, got %d", core.ErrInvalidParameter, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) error {
		p.progress = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.Store, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	// Default pool size
	poolSize := max(runtime.NumCPU()/2, 1)

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:         store,
		embeddingPool: embeddingPool,
		batchSize:     DefaultBatchSize,
		logger:        slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Create processor after options are applied (so it gets final config)
	embeddingProc, err := newEmbeddingProcessor(store, embedder, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = embeddingProc

	return p, nil
}

// Ingest validates and persists doc, then embeds every sub-chunk. It returns
// once all embeddings are stored. Batch failures are joined and returned
// after the remaining batches finish.
func (p *Pipeline) Ingest(ctx context.Context, doc *Document) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	start := time.Now()

	recs, err := doc.records()
	if err != nil {
		return nil, err
	}

	result := &Result{
		SpecialClauses: len(recs.specials),
		Clauses:        len(recs.clauses),
		SubChunks:      len(recs.chunks),
		References:     len(recs.references),
	}

	if recs.version != nil {
		if err := p.store.PutPolicyVersion(ctx, recs.version); err != nil {
			return nil, fmt.Errorf("store policy version: %w", err)
		}
		result.PolicyVersion = recs.version.VersionID
	}
	if err := p.store.AddSpecialClauses(ctx, recs.specials...); err != nil {
		return nil, fmt.Errorf("store special clauses: %w", err)
	}
	if _, err := p.store.AddClauses(ctx, recs.clauses...); err != nil {
		return nil, fmt.Errorf("store clauses: %w", err)
	}
	if _, err := p.store.AddSubChunks(ctx, recs.chunks...); err != nil {
		return nil, fmt.Errorf("store sub-chunks: %w", err)
	}
	if err := p.store.AddReferences(ctx, recs.references...); err != nil {
		return nil, fmt.Errorf("store references: %w", err)
	}
	p.logger.Info("stored policy document",
		"version", result.PolicyVersion,
		"clauses", result.Clauses,
		"sub_chunks", result.SubChunks,
		"references", result.References)

	embedded, err := p.embed(ctx, recs.chunks)
	result.Embedded = embedded
	result.Elapsed = time.Since(start)
	if err != nil {
		return result, err
	}

	p.logger.Info("ingestion complete", "embedded", embedded, "elapsed", result.Elapsed)
	return result, nil
}

// embed submits chunks to the pool in batches and waits for all of them.
func (p *Pipeline) embed(ctx context.Context, chunks []*core.SubChunk) (int, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		embedded int
		errs     []error
	)

	for lo := 0; lo < len(chunks); lo += p.batchSize {
		batch := chunks[lo:min(lo+p.batchSize, len(chunks))]
		wg.Add(1)
		err := p.embeddingPool.Submit(func() {
			defer wg.Done()
			err := p.embeddingProc.process(ctx, batch...)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Error("error processing embeddings", "chunks", len(batch), "err", err)
				errs = append(errs, err)
				return
			}
			embedded += len(batch)
			if p.progress != nil {
				p.progress(Progress{Embedded: embedded, Total: len(chunks)})
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, fmt.Errorf("submit embedding batch: %w", err))
			mu.Unlock()
			break
		}
	}
	wg.Wait()

	return embedded, errors.Join(errs...)
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
