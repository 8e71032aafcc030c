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

// ClauseRepository implements storage.ClauseRepository using BadgerDB.
type ClauseRepository struct {
	backend *Backend
}

var _ storage.ClauseRepository = (*ClauseRepository)(nil)

// NewClauseRepository creates a new BadgerDB-backed clause repository.
func NewClauseRepository(backend *Backend) *ClauseRepository {
	return &ClauseRepository{backend: backend}
}

// PutPolicyVersion implements storage.ClauseRepository.
func (r *ClauseRepository) PutPolicyVersion(ctx context.Context, version *core.PolicyVersion) error {
	if version == nil {
		return fmt.Errorf("%w: policy version is nil", storage.ErrInvalidQuery)
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		record := *version
		if record.InsertedAt.IsZero() {
			record.InsertedAt = time.Now().UTC()
		}
		if err := tx.Set([]byte(policyVersionKey), storage.MarshalPolicyVersion(&record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetPolicyVersion implements storage.ClauseRepository.
func (r *ClauseRepository) GetPolicyVersion(ctx context.Context) (*core.PolicyVersion, error) {
	var version *core.PolicyVersion
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(policyVersionKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: policy version", storage.ErrNotFound)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			version, err = storage.UnmarshalPolicyVersion(val)
			return err
		})
	}, false)
	return version, err
}

// AddSpecialClauses implements storage.ClauseRepository.
func (r *ClauseRepository) AddSpecialClauses(ctx context.Context, specials ...*core.SpecialClause) error {
	if len(specials) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, special := range specials {
			if special == nil || special.Name == "" {
				return fmt.Errorf("%w: %w", storage.ErrInvalidQuery, core.ErrEmptyID)
			}
			if err := tx.Set(makeSpecialKey(special.Name), storage.MarshalSpecialClause(special)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetSpecialClause implements storage.ClauseRepository.
func (r *ClauseRepository) GetSpecialClause(ctx context.Context, name string) (*core.SpecialClause, error) {
	var special *core.SpecialClause
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		special, err = getSpecial(tx, name)
		return err
	}, false)
	return special, err
}

func getSpecial(tx *badger.Txn, name string) (*core.SpecialClause, error) {
	item, err := tx.Get(makeSpecialKey(name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: special clause %q", storage.ErrNotFound, name)
		}
		return nil, err
	}
	var special *core.SpecialClause
	err = item.Value(func(val []byte) error {
		special, err = storage.UnmarshalSpecialClause(val)
		return err
	})
	return special, err
}

// ListSpecialClauses implements storage.ClauseRepository.
func (r *ClauseRepository) ListSpecialClauses(ctx context.Context) ([]*core.SpecialClause, error) {
	var specials []*core.SpecialClause
	err := r.backend.scanPrefix(ctx, []byte(specialRecordPrefix), func(val []byte) error {
		special, err := storage.UnmarshalSpecialClause(val)
		if err != nil {
			return err
		}
		specials = append(specials, special)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return specials, nil
}

// AddClauses implements storage.ClauseRepository.
func (r *ClauseRepository) AddClauses(ctx context.Context, clauses ...*core.Clause) ([]*core.Clause, error) {
	if len(clauses) == 0 {
		return clauses, nil
	}
	for _, clause := range clauses {
		if err := core.ValidateClause(clause); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, clause := range clauses {
			key := makeClauseKey(clause.ID)
			_, err := tx.Get(key)
			if err == nil {
				return fmt.Errorf("%w: clause %s", storage.ErrDuplicateKey, clause.ID)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			clause.InsertedAt = now
			if err := tx.Set(key, storage.MarshalClause(clause)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return clauses, nil
}

// GetClause implements storage.ClauseRepository.
func (r *ClauseRepository) GetClause(ctx context.Context, id string) (*core.Clause, error) {
	var clause *core.Clause
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		clause, err = getClause(tx, id)
		return err
	}, false)
	return clause, err
}

func getClause(tx *badger.Txn, id string) (*core.Clause, error) {
	item, err := tx.Get(makeClauseKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: clause %s", storage.ErrNotFound, id)
		}
		return nil, err
	}
	var clause *core.Clause
	err = item.Value(func(val []byte) error {
		clause, err = storage.UnmarshalClause(val)
		return err
	})
	return clause, err
}

// GetClauses implements storage.ClauseRepository.
func (r *ClauseRepository) GetClauses(ctx context.Context, ids ...string) ([]*core.Clause, error) {
	clauses := make([]*core.Clause, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			clause, err := getClause(tx, id)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			clauses = append(clauses, clause)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return clauses, nil
}

// QueryClauses implements storage.ClauseRepository. Clause keys iterate in
// id order, so results need no sorting.
func (r *ClauseRepository) QueryClauses(ctx context.Context, q *storage.Query) ([]*core.Clause, error) {
	if q == nil {
		q = storage.NewQuery()
	}
	if owner := q.Owner(); owner != "" {
		if _, err := r.GetSpecialClause(ctx, owner); err != nil {
			return nil, err
		}
	}

	var clauses []*core.Clause
	errLimit := errors.New("limit reached")
	err := r.backend.scanPrefix(ctx, []byte(clauseRecordPrefix), func(val []byte) error {
		clause, err := storage.UnmarshalClause(val)
		if err != nil {
			return err
		}
		if !q.Match(clause) {
			return nil
		}
		clauses = append(clauses, clause)
		if q.MaxResults() > 0 && len(clauses) >= q.MaxResults() {
			return errLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, err
	}
	return clauses, nil
}

// CountClauses implements storage.ClauseRepository.
func (r *ClauseRepository) CountClauses(ctx context.Context) (int, error) {
	return r.backend.countPrefix(ctx, []byte(clauseRecordPrefix))
}
