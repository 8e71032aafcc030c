package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
)

const clauseColumns = `id, title, clause_type, text, path, article_number, special_clause, inserted_at`

// PutPolicyVersion implements storage.ClauseRepository.
func (s *Store) PutPolicyVersion(ctx context.Context, version *core.PolicyVersion) error {
	if version == nil {
		return fmt.Errorf("%w: policy version is nil", storage.ErrInvalidQuery)
	}
	insertedAt := version.InsertedAt
	if insertedAt.IsZero() {
		insertedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO policy_version (id, version_id, product_code, product_name, effective_date, inserted_at)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   version_id = excluded.version_id,
		   product_code = excluded.product_code,
		   product_name = excluded.product_name,
		   effective_date = excluded.effective_date,
		   inserted_at = excluded.inserted_at`,
		version.VersionID, version.ProductCode, version.ProductName, version.EffectiveDate, formatTime(insertedAt),
	)
	return mapErr(err)
}

// GetPolicyVersion implements storage.ClauseRepository.
func (s *Store) GetPolicyVersion(ctx context.Context) (*core.PolicyVersion, error) {
	var v core.PolicyVersion
	var insertedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT version_id, product_code, product_name, effective_date, inserted_at FROM policy_version WHERE id = 1`,
	).Scan(&v.VersionID, &v.ProductCode, &v.ProductName, &v.EffectiveDate, &insertedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: policy version", storage.ErrNotFound)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	v.InsertedAt = parseTime(insertedAt)
	return &v, nil
}

// AddSpecialClauses implements storage.ClauseRepository.
func (s *Store) AddSpecialClauses(ctx context.Context, specials ...*core.SpecialClause) error {
	if len(specials) == 0 {
		return nil
	}
	for _, special := range specials {
		if special == nil || special.Name == "" {
			return fmt.Errorf("%w: %w", storage.ErrInvalidQuery, core.ErrEmptyID)
		}
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, special := range specials {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO special_clauses (name, code, description) VALUES (?, ?, ?)
				 ON CONFLICT(name) DO UPDATE SET code = excluded.code, description = excluded.description`,
				special.Name, special.Code, special.Description,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSpecialClause implements storage.ClauseRepository.
func (s *Store) GetSpecialClause(ctx context.Context, name string) (*core.SpecialClause, error) {
	var special core.SpecialClause
	err := s.db.QueryRowContext(ctx,
		`SELECT name, code, description FROM special_clauses WHERE name = ?`, name,
	).Scan(&special.Name, &special.Code, &special.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: special clause %q", storage.ErrNotFound, name)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &special, nil
}

// ListSpecialClauses implements storage.ClauseRepository.
func (s *Store) ListSpecialClauses(ctx context.Context) ([]*core.SpecialClause, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, code, description FROM special_clauses ORDER BY name`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var specials []*core.SpecialClause
	for rows.Next() {
		var special core.SpecialClause
		if err := rows.Scan(&special.Name, &special.Code, &special.Description); err != nil {
			return nil, err
		}
		specials = append(specials, &special)
	}
	return specials, rows.Err()
}

// AddClauses implements storage.ClauseRepository.
func (s *Store) AddClauses(ctx context.Context, clauses ...*core.Clause) ([]*core.Clause, error) {
	if len(clauses) == 0 {
		return clauses, nil
	}
	for _, clause := range clauses {
		if err := core.ValidateClause(clause); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, clause := range clauses {
			exists, err := rowExists(ctx, tx, `SELECT 1 FROM clauses WHERE id = ?`, clause.ID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: clause %s", storage.ErrDuplicateKey, clause.ID)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO clauses (id, title, clause_type, text, path, article_number, special_clause, title_folded, text_folded, inserted_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				clause.ID, clause.Title, int(clause.Type), clause.Text, clause.Path, clause.ArticleNumber,
				clause.SpecialClause, strings.ToLower(clause.Title), strings.ToLower(clause.Text), formatTime(now),
			)
			if err != nil {
				return err
			}
			for i, risk := range clause.RiskTypes {
				_, err := tx.ExecContext(ctx,
					`INSERT OR IGNORE INTO clause_risk_types (clause_id, risk_type, position) VALUES (?, ?, ?)`,
					clause.ID, risk, i,
				)
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, clause := range clauses {
		clause.InsertedAt = now
	}
	return clauses, nil
}

func rowExists(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// GetClause implements storage.ClauseRepository.
func (s *Store) GetClause(ctx context.Context, id string) (*core.Clause, error) {
	clauses, err := s.GetClauses(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("%w: clause %s", storage.ErrNotFound, id)
	}
	return clauses[0], nil
}

// GetClauses implements storage.ClauseRepository.
func (s *Store) GetClauses(ctx context.Context, ids ...string) ([]*core.Clause, error) {
	if len(ids) == 0 {
		return []*core.Clause{}, nil
	}
	found, err := s.selectClauses(ctx,
		`SELECT `+clauseColumns+` FROM clauses WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*core.Clause, len(found))
	for _, clause := range found {
		byID[clause.ID] = clause
	}
	clauses := make([]*core.Clause, 0, len(found))
	for _, id := range ids {
		if clause, ok := byID[id]; ok {
			clauses = append(clauses, clause)
		}
	}
	return clauses, nil
}

// QueryClauses implements storage.ClauseRepository.
func (s *Store) QueryClauses(ctx context.Context, q *storage.Query) ([]*core.Clause, error) {
	if q == nil {
		q = storage.NewQuery()
	}
	if owner := q.Owner(); owner != "" {
		if _, err := s.GetSpecialClause(ctx, owner); err != nil {
			return nil, err
		}
	}

	where, args, exact := translateQuery(q)
	query := `SELECT ` + clauseColumns + ` FROM clauses`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY id`
	if exact && q.MaxResults() > 0 {
		query += fmt.Sprintf(` LIMIT %d`, q.MaxResults())
	}

	clauses, err := s.selectClauses(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if exact {
		return clauses, nil
	}

	matched := clauses[:0]
	for _, clause := range clauses {
		if q.Match(clause) {
			matched = append(matched, clause)
			if q.MaxResults() > 0 && len(matched) == q.MaxResults() {
				break
			}
		}
	}
	return matched, nil
}

// CountClauses implements storage.ClauseRepository.
func (s *Store) CountClauses(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clauses`).Scan(&count)
	return count, mapErr(err)
}

// selectClauses runs a clause query then attaches risk types. Rows are
// drained before the second query so a single-connection pool never blocks.
func (s *Store) selectClauses(ctx context.Context, query string, args ...any) ([]*core.Clause, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	var clauses []*core.Clause
	for rows.Next() {
		var c core.Clause
		var clauseType int
		var insertedAt string
		if err := rows.Scan(&c.ID, &c.Title, &clauseType, &c.Text, &c.Path, &c.ArticleNumber, &c.SpecialClause, &insertedAt); err != nil {
			rows.Close()
			return nil, err
		}
		c.Type = core.ClauseType(clauseType)
		c.InsertedAt = parseTime(insertedAt)
		clauses = append(clauses, &c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		return clauses, nil
	}
	return clauses, s.attachRiskTypes(ctx, clauses)
}

func (s *Store) attachRiskTypes(ctx context.Context, clauses []*core.Clause) error {
	byID := make(map[string]*core.Clause, len(clauses))
	ids := make([]string, 0, len(clauses))
	for _, c := range clauses {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT clause_id, risk_type FROM clause_risk_types
		 WHERE clause_id IN (`+placeholders(len(ids))+`)
		 ORDER BY clause_id, position`,
		stringArgs(ids)...)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var clauseID, risk string
		if err := rows.Scan(&clauseID, &risk); err != nil {
			return err
		}
		if c, ok := byID[clauseID]; ok {
			c.RiskTypes = append(c.RiskTypes, risk)
		}
	}
	return rows.Err()
}
