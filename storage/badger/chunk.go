package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

// ChunkRepository implements storage.ChunkRepository using BadgerDB.
// Each sub-chunk is stored once under its id and indexed under its owning
// clause by ordinal.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new BadgerDB-backed sub-chunk repository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

func (r *ChunkRepository) checkChunk(chunk *core.SubChunk) error {
	if err := core.ValidateSubChunk(chunk); err != nil {
		return err
	}
	if chunk.HasEmbedding() && len(chunk.Embedding) != r.backend.dims {
		return fmt.Errorf("%w: sub-chunk %s has %d dimensions, index has %d",
			core.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), r.backend.dims)
	}
	return nil
}

// AddSubChunks implements storage.ChunkRepository.
func (r *ChunkRepository) AddSubChunks(ctx context.Context, chunks ...*core.SubChunk) ([]*core.SubChunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}
	for _, chunk := range chunks {
		if err := r.checkChunk(chunk); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if _, err := tx.Get(makeClauseKey(chunk.ClauseID)); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("%w: sub-chunk %s names clause %s", storage.ErrUnknownOwner, chunk.ID, chunk.ClauseID)
				}
				return err
			}

			key := makeChunkKey(chunk.ID)
			_, err := tx.Get(key)
			if err == nil {
				return fmt.Errorf("%w: sub-chunk %s", storage.ErrDuplicateKey, chunk.ID)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			chunk.InsertedAt = now
			chunk.UpdatedAt = now
			if err := tx.Set(key, storage.MarshalSubChunk(chunk)); err != nil {
				return err
			}
			if err := tx.Set(makeClauseChunkKey(chunk.ClauseID, chunk.Ordinal, chunk.ID), []byte(chunk.ID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// UpdateSubChunks implements storage.ChunkRepository. The owning clause
// and InsertedAt of a chunk never change.
func (r *ChunkRepository) UpdateSubChunks(ctx context.Context, chunks ...*core.SubChunk) ([]*core.SubChunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}
	for _, chunk := range chunks {
		if err := r.checkChunk(chunk); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			existing, err := getChunk(tx, chunk.ID)
			if err != nil {
				return err
			}
			if existing.ClauseID != chunk.ClauseID {
				return fmt.Errorf("%w: sub-chunk %s cannot move from clause %s to %s",
					core.ErrInvalidSubChunk, chunk.ID, existing.ClauseID, chunk.ClauseID)
			}
			if existing.Ordinal != chunk.Ordinal {
				if err := tx.Delete(makeClauseChunkKey(existing.ClauseID, existing.Ordinal, existing.ID)); err != nil {
					return err
				}
				if err := tx.Set(makeClauseChunkKey(chunk.ClauseID, chunk.Ordinal, chunk.ID), []byte(chunk.ID)); err != nil {
					return err
				}
			}

			chunk.InsertedAt = existing.InsertedAt
			chunk.UpdatedAt = now
			if err := tx.Set(makeChunkKey(chunk.ID), storage.MarshalSubChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func getChunk(tx *badger.Txn, id string) (*core.SubChunk, error) {
	item, err := tx.Get(makeChunkKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: sub-chunk %s", storage.ErrNotFound, id)
		}
		return nil, err
	}
	var chunk *core.SubChunk
	err = item.Value(func(val []byte) error {
		chunk, err = storage.UnmarshalSubChunk(val)
		return err
	})
	return chunk, err
}

// GetSubChunks implements storage.ChunkRepository.
func (r *ChunkRepository) GetSubChunks(ctx context.Context, ids ...string) ([]*core.SubChunk, error) {
	chunks := make([]*core.SubChunk, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := getChunk(tx, id)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// SubChunksOf implements storage.ChunkRepository.
func (r *ChunkRepository) SubChunksOf(ctx context.Context, clauseID string) ([]*core.SubChunk, error) {
	var chunks []*core.SubChunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialClauseChunkKey(clauseID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			chunkID, err := iter.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			chunk, err := getChunk(tx, string(chunkID))
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// FindSimilar implements storage.ChunkRepository.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, limit int, restrict storage.IDSet) ([]storage.ScoredChunk, error) {
	return r.backend.FindSimilar(ctx, vector, limit, restrict)
}

// ForEachSubChunk implements storage.ChunkRepository. Ids are snapshotted
// first so fn may update the chunks it receives.
func (r *ChunkRepository) ForEachSubChunk(ctx context.Context, batchSize int, fn func([]*core.SubChunk) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", core.ErrInvalidParameter, batchSize)
	}

	var ids []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			ids = append(ids, string(iter.Item().Key()[len(chunkRecordPrefix):]))
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	for start := 0; start < len(ids); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(ids))
		batch, err := r.GetSubChunks(ctx, ids[start:end]...)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			continue
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

// CountSubChunks implements storage.ChunkRepository.
func (r *ChunkRepository) CountSubChunks(ctx context.Context) (int, int, error) {
	total, embedded := 0, 0
	err := r.backend.scanPrefix(ctx, []byte(chunkRecordPrefix), func(val []byte) error {
		chunk, err := storage.UnmarshalSubChunk(val)
		if err != nil {
			return err
		}
		total++
		if chunk.HasEmbedding() {
			embedded++
		}
		return nil
	})
	return total, embedded, err
}

// Dimensions implements storage.ChunkRepository.
func (r *ChunkRepository) Dimensions() int {
	return r.backend.dims
}
