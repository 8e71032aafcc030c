package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

// DefaultDimensions is the embedding width used when none is configured and
// the database has not recorded one.
const DefaultDimensions = 1536

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	dims   int
	logger *slog.Logger
}

// BackendOption configures a Backend.
type BackendOption func(*backendOptions)

type backendOptions struct {
	dimensions int
	logger     *slog.Logger
}

// WithDimensions sets the expected embedding width. A database that already
// recorded a different width refuses to open.
func WithDimensions(n int) BackendOption {
	return func(o *backendOptions) {
		o.dimensions = n
	}
}

// WithLogger sets the logger used by the backend and by BadgerDB itself.
func WithLogger(logger *slog.Logger) BackendOption {
	return func(o *backendOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool, opts ...BackendOption) (*Backend, error) {
	cfg := backendOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.dimensions < 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", core.ErrInvalidParameter, cfg.dimensions)
	}

	var badgerOpts badger.Options
	if inMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(filePath); err != nil {
			return nil, err
		}
		badgerOpts = badger.DefaultOptions(filePath)
	}

	badgerOpts.Logger = &badgerLoggerAdapter{logger: cfg.logger}
	badgerOpts.Compression = options.None

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	b := &Backend{db: db, logger: cfg.logger}
	if err := b.initDimensions(cfg.dimensions); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func ensureDir(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return err
		}
		info, err = os.Stat(filePath)
		if err != nil {
			return err
		}
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filePath)
	}
	return nil
}

// initDimensions loads the recorded embedding width, recording the
// configured (or default) width on first open.
func (b *Backend) initDimensions(configured int) error {
	return b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(dimensionsKey))
		if err == nil {
			var stored int
			err = item.Value(func(val []byte) error {
				if len(val) != 4 {
					return fmt.Errorf("%w: dimensions record", storage.ErrSerializationFailed)
				}
				stored = int(binary.BigEndian.Uint32(val))
				return nil
			})
			if err != nil {
				return err
			}
			if configured != 0 && configured != stored {
				return fmt.Errorf("%w: database holds %d-dimensional embeddings, configured %d",
					core.ErrDimensionMismatch, stored, configured)
			}
			b.dims = stored
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		b.dims = configured
		if b.dims == 0 {
			b.dims = DefaultDimensions
		}
		if err := tx.Set([]byte(dimensionsKey), binary.BigEndian.AppendUint32(nil, uint32(b.dims))); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Dimensions returns the embedding width enforced by the backend.
func (b *Backend) Dimensions() int {
	return b.dims
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction; fn must commit it.
// The transaction is automatically discarded when fn returns.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// scanPrefix calls fn with the value of every key under prefix, in key order.
func (b *Backend) scanPrefix(ctx context.Context, prefix []byte, fn func(val []byte) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := iter.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// countPrefix counts the keys under prefix without loading values.
func (b *Backend) countPrefix(ctx context.Context, prefix []byte) (int, error) {
	count := 0
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	}, false)
	return count, err
}

// FindSimilar scores every embedded sub-chunk against vector and returns
// the best limit matches. Chunks outside a non-nil restrict are skipped.
func (b *Backend) FindSimilar(ctx context.Context, vector []float32, limit int, restrict storage.IDSet) ([]storage.ScoredChunk, error) {
	if len(vector) != b.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			core.ErrDimensionMismatch, len(vector), b.dims)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", core.ErrInvalidParameter, limit)
	}

	var results []storage.ScoredChunk
	err := b.scanPrefix(ctx, []byte(chunkRecordPrefix), func(val []byte) error {
		chunk, err := storage.UnmarshalSubChunk(val)
		if err != nil {
			return err
		}
		// Skip records without embeddings
		if !chunk.HasEmbedding() || !restrict.AllowsChunk(chunk) {
			return nil
		}
		results = append(results, storage.ScoredChunk{
			Chunk: chunk,
			Score: storage.CosineSimilarity(vector, chunk.Embedding),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return storage.TopScoredChunks(results, limit), nil
}
