// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of sub-chunks to process in each batch
	BatchSize int `yaml:"batch_size"`

	// ReportInterval is how often to report progress (number of sub-chunks)
	ReportInterval int `yaml:"report_interval"`

	// MaxRetries is the maximum number of attempts for each embedding call
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration `yaml:"retry_delay"`

	// StaleOnly limits the run to sub-chunks without an embedding or whose
	// text changed since they were embedded
	StaleOnly bool `yaml:"stale_only"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Summary describes a finished run.
type Summary struct {
	Scanned    int
	Reembedded int
	Elapsed    time.Duration
}

// Reembedder orchestrates the reembedding of sub-chunks in a store.
type Reembedder struct {
	repo      storage.ChunkRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *ChunkIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.ChunkRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewChunkIterator(repo, config.BatchSize, config.StaleOnly),
	}
}

// Run executes the reembedding operation. Progress is reported to the
// configured writer. On failure the summary counts the batches already
// stored.
func (r *Reembedder) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	total, _, err := r.repo.CountSubChunks(ctx)
	if err != nil {
		return summary, fmt.Errorf("count sub-chunks: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No sub-chunks found in store (0 sub-chunks)\n")
		return summary, nil
	}

	mode := "all"
	if r.config.StaleOnly {
		mode = "stale"
	}
	fmt.Fprintf(r.progress, "Starting reembedding of %d sub-chunks (mode: %s, batch size: %d)\n",
		total, mode, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, func(chunks []*core.SubChunk, scanned int) error {
		if err := r.processor.Process(ctx, chunks); err != nil {
			return fmt.Errorf("process batch: %w", err)
		}
		summary.Reembedded += len(chunks)
		summary.Scanned = scanned
		tracker.Update(scanned)
		return nil
	})
	summary.Elapsed = tracker.Elapsed()
	if err != nil {
		return summary, err
	}

	tracker.Finish()

	fmt.Fprintf(r.progress, "Reembedding complete. Reembedded %d of %d sub-chunks in %v (%.1f sub-chunks/sec)\n",
		summary.Reembedded, summary.Scanned, summary.Elapsed.Round(time.Millisecond),
		float64(summary.Reembedded)/max(summary.Elapsed.Seconds(), 1e-9))

	return summary, nil
}
