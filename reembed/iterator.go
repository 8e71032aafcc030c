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

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

const (
	// DefaultBatchSize is the default number of sub-chunks to fetch in each batch
	DefaultBatchSize = 100
)

// ChunkIterator iterates over stored sub-chunks in batches, ordered by id.
type ChunkIterator struct {
	repo      storage.ChunkRepository
	batchSize int
	staleOnly bool
}

// NewChunkIterator creates a new sub-chunk iterator.
// batchSize: number of sub-chunks to fetch in each batch (DefaultBatchSize if <= 0)
// staleOnly: skip chunks whose embedding matches their current text
func NewChunkIterator(repo storage.ChunkRepository, batchSize int, staleOnly bool) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{
		repo:      repo,
		batchSize: batchSize,
		staleOnly: staleOnly,
	}
}

// ForEach calls fn for each batch. scanned is the number of chunks visited
// so far, including any skipped because they are current. fn sees only the
// selected chunks, which may be none when a whole batch is current.
// Iteration stops on first error from fn. Context cancellation is checked
// between batches.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func(chunks []*core.SubChunk, scanned int) error) error {
	scanned := 0
	return it.repo.ForEachSubChunk(ctx, it.batchSize, func(batch []*core.SubChunk) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		scanned += len(batch)

		selected := batch
		if it.staleOnly {
			selected = make([]*core.SubChunk, 0, len(batch))
			for _, chunk := range batch {
				if chunk.EmbeddingStale() {
					selected = append(selected, chunk)
				}
			}
		}
		return fn(selected, scanned)
	})
}
