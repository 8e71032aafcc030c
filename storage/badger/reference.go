package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

// ReferenceRepository implements storage.ReferenceRepository using BadgerDB.
// Edges are keyed by source then target; the first write of an edge wins.
type ReferenceRepository struct {
	backend *Backend
}

var _ storage.ReferenceRepository = (*ReferenceRepository)(nil)

// NewReferenceRepository creates a new BadgerDB-backed reference repository.
func NewReferenceRepository(backend *Backend) *ReferenceRepository {
	return &ReferenceRepository{backend: backend}
}

// AddReferences implements storage.ReferenceRepository.
func (r *ReferenceRepository) AddReferences(ctx context.Context, refs ...core.CrossReference) error {
	if len(refs) == 0 {
		return nil
	}
	for _, ref := range refs {
		if err := core.ValidateReference(ref); err != nil {
			return err
		}
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, ref := range refs {
			key := makeReferenceKey(ref.From, ref.To)
			_, err := tx.Get(key)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := tx.Set(key, storage.MarshalCrossReference(ref)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ReferencesFrom implements storage.ReferenceRepository.
func (r *ReferenceRepository) ReferencesFrom(ctx context.Context, id string) ([]core.CrossReference, error) {
	var refs []core.CrossReference
	err := r.backend.scanPrefix(ctx, makePartialReferenceKey(id), func(val []byte) error {
		ref, err := storage.UnmarshalCrossReference(val)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// CountReferences implements storage.ReferenceRepository.
func (r *ReferenceRepository) CountReferences(ctx context.Context) (int, error) {
	return r.backend.countPrefix(ctx, []byte(referencePrefix))
}
