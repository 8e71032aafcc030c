package sqlite

import (
	"context"
	"database/sql"

	"github.com/poiesic/policygraph/core"
)

// AddReferences implements storage.ReferenceRepository. If an edge already
// exists (same source and target) it is ignored.
func (s *Store) AddReferences(ctx context.Context, refs ...core.CrossReference) error {
	if len(refs) == 0 {
		return nil
	}
	for _, ref := range refs {
		if err := core.ValidateReference(ref); err != nil {
			return err
		}
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, ref := range refs {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO cross_references (from_id, to_id, label) VALUES (?, ?, ?)`,
				ref.From, ref.To, ref.Label,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReferencesFrom implements storage.ReferenceRepository.
func (s *Store) ReferencesFrom(ctx context.Context, id string) ([]core.CrossReference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, label FROM cross_references WHERE from_id = ? ORDER BY to_id`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var refs []core.CrossReference
	for rows.Next() {
		var ref core.CrossReference
		if err := rows.Scan(&ref.From, &ref.To, &ref.Label); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// CountReferences implements storage.ReferenceRepository.
func (s *Store) CountReferences(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cross_references`).Scan(&count)
	return count, mapErr(err)
}
