package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

const chunkColumns = `id, clause_id, ordinal, text, semantic_type, reasoning, embedding, embedded_hash, inserted_at, updated_at`

func (s *Store) checkChunk(chunk *core.SubChunk) error {
	if err := core.ValidateSubChunk(chunk); err != nil {
		return err
	}
	if chunk.HasEmbedding() && len(chunk.Embedding) != s.dims {
		return fmt.Errorf("%w: sub-chunk %s has %d dimensions, index has %d",
			core.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), s.dims)
	}
	return nil
}

// AddSubChunks implements storage.ChunkRepository.
func (s *Store) AddSubChunks(ctx context.Context, chunks ...*core.SubChunk) ([]*core.SubChunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}
	for _, chunk := range chunks {
		if err := s.checkChunk(chunk); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, chunk := range chunks {
			owner, err := rowExists(ctx, tx, `SELECT 1 FROM clauses WHERE id = ?`, chunk.ClauseID)
			if err != nil {
				return err
			}
			if !owner {
				return fmt.Errorf("%w: sub-chunk %s names clause %s", storage.ErrUnknownOwner, chunk.ID, chunk.ClauseID)
			}
			exists, err := rowExists(ctx, tx, `SELECT 1 FROM sub_chunks WHERE id = ?`, chunk.ID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: sub-chunk %s", storage.ErrDuplicateKey, chunk.ID)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO sub_chunks (`+chunkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				chunk.ID, chunk.ClauseID, chunk.Ordinal, chunk.Text, int(chunk.SemanticType), chunk.Reasoning,
				encodeVector(chunk.Embedding), chunk.EmbeddedHash, formatTime(now), formatTime(now),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, chunk := range chunks {
		chunk.InsertedAt = now
		chunk.UpdatedAt = now
	}
	return chunks, nil
}

// UpdateSubChunks implements storage.ChunkRepository. The owning clause
// and InsertedAt of a chunk never change.
func (s *Store) UpdateSubChunks(ctx context.Context, chunks ...*core.SubChunk) ([]*core.SubChunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}
	for _, chunk := range chunks {
		if err := s.checkChunk(chunk); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	insertedAt := make([]time.Time, len(chunks))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for i, chunk := range chunks {
			var clauseID, inserted string
			err := tx.QueryRowContext(ctx,
				`SELECT clause_id, inserted_at FROM sub_chunks WHERE id = ?`, chunk.ID,
			).Scan(&clauseID, &inserted)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: sub-chunk %s", storage.ErrNotFound, chunk.ID)
			}
			if err != nil {
				return err
			}
			if clauseID != chunk.ClauseID {
				return fmt.Errorf("%w: sub-chunk %s cannot move from clause %s to %s",
					core.ErrInvalidSubChunk, chunk.ID, clauseID, chunk.ClauseID)
			}
			insertedAt[i] = parseTime(inserted)

			_, err = tx.ExecContext(ctx,
				`UPDATE sub_chunks SET ordinal = ?, text = ?, semantic_type = ?, reasoning = ?,
				   embedding = ?, embedded_hash = ?, updated_at = ?
				 WHERE id = ?`,
				chunk.Ordinal, chunk.Text, int(chunk.SemanticType), chunk.Reasoning,
				encodeVector(chunk.Embedding), chunk.EmbeddedHash, formatTime(now), chunk.ID,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, chunk := range chunks {
		chunk.InsertedAt = insertedAt[i]
		chunk.UpdatedAt = now
	}
	return chunks, nil
}

// GetSubChunks implements storage.ChunkRepository.
func (s *Store) GetSubChunks(ctx context.Context, ids ...string) ([]*core.SubChunk, error) {
	if len(ids) == 0 {
		return []*core.SubChunk{}, nil
	}
	found, err := s.selectChunks(ctx,
		`SELECT `+chunkColumns+` FROM sub_chunks WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*core.SubChunk, len(found))
	for _, chunk := range found {
		byID[chunk.ID] = chunk
	}
	chunks := make([]*core.SubChunk, 0, len(found))
	for _, id := range ids {
		if chunk, ok := byID[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// SubChunksOf implements storage.ChunkRepository.
func (s *Store) SubChunksOf(ctx context.Context, clauseID string) ([]*core.SubChunk, error) {
	return s.selectChunks(ctx,
		`SELECT `+chunkColumns+` FROM sub_chunks WHERE clause_id = ? ORDER BY ordinal, id`, clauseID)
}

// FindSimilar implements storage.ChunkRepository.
func (s *Store) FindSimilar(ctx context.Context, vector []float32, limit int, restrict storage.IDSet) ([]storage.ScoredChunk, error) {
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			core.ErrDimensionMismatch, len(vector), s.dims)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", core.ErrInvalidParameter, limit)
	}

	chunks, err := s.selectChunks(ctx,
		`SELECT `+chunkColumns+` FROM sub_chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}

	var results []storage.ScoredChunk
	for _, chunk := range chunks {
		if !chunk.HasEmbedding() || !restrict.AllowsChunk(chunk) {
			continue
		}
		results = append(results, storage.ScoredChunk{
			Chunk: chunk,
			Score: storage.CosineSimilarity(vector, chunk.Embedding),
		})
	}
	return storage.TopScoredChunks(results, limit), nil
}

// ForEachSubChunk implements storage.ChunkRepository.
func (s *Store) ForEachSubChunk(ctx context.Context, batchSize int, fn func([]*core.SubChunk) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", core.ErrInvalidParameter, batchSize)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sub_chunks ORDER BY id`)
	if err != nil {
		return mapErr(err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for start := 0; start < len(ids); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(ids))
		batch, err := s.GetSubChunks(ctx, ids[start:end]...)
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
func (s *Store) CountSubChunks(ctx context.Context) (int, int, error) {
	var total, embedded int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(embedding) FROM sub_chunks`,
	).Scan(&total, &embedded)
	return total, embedded, mapErr(err)
}

func (s *Store) selectChunks(ctx context.Context, query string, args ...any) ([]*core.SubChunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var chunks []*core.SubChunk
	for rows.Next() {
		var c core.SubChunk
		var semanticType int
		var embedding []byte
		var insertedAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.ClauseID, &c.Ordinal, &c.Text, &semanticType, &c.Reasoning,
			&embedding, &c.EmbeddedHash, &insertedAt, &updatedAt); err != nil {
			return nil, err
		}
		c.SemanticType = core.ClauseType(semanticType)
		if c.Embedding, err = decodeVector(embedding); err != nil {
			return nil, err
		}
		c.InsertedAt = parseTime(insertedAt)
		c.UpdatedAt = parseTime(updatedAt)
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}
