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

// Package sqlite implements the storage interfaces on SQLite through
// database/sql and the pure Go modernc.org/sqlite driver.
//
// Clause predicates are translated into SQL. Title and text are stored a
// second time lower-cased so keyword matching folds case exactly like
// storage.TextContains does.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/storage"
	_ "modernc.org/sqlite"
)

// DefaultDimensions is the embedding width used when none is configured and
// the database has not recorded one.
const DefaultDimensions = 1536

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS policy_version (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	version_id     TEXT NOT NULL,
	product_code   TEXT NOT NULL,
	product_name   TEXT NOT NULL,
	effective_date TEXT NOT NULL,
	inserted_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS special_clauses (
	name        TEXT PRIMARY KEY,
	code        TEXT NOT NULL,
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clauses (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	clause_type    INTEGER NOT NULL,
	text           TEXT NOT NULL,
	path           TEXT NOT NULL,
	article_number INTEGER NOT NULL,
	special_clause TEXT NOT NULL,
	title_folded   TEXT NOT NULL,
	text_folded    TEXT NOT NULL,
	inserted_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clauses_type ON clauses(clause_type);
CREATE INDEX IF NOT EXISTS idx_clauses_special ON clauses(special_clause);

CREATE TABLE IF NOT EXISTS clause_risk_types (
	clause_id TEXT NOT NULL REFERENCES clauses(id),
	risk_type TEXT NOT NULL,
	position  INTEGER NOT NULL,
	PRIMARY KEY (clause_id, risk_type)
);
CREATE INDEX IF NOT EXISTS idx_risk_types_type ON clause_risk_types(risk_type);

CREATE TABLE IF NOT EXISTS sub_chunks (
	id            TEXT PRIMARY KEY,
	clause_id     TEXT NOT NULL REFERENCES clauses(id),
	ordinal       INTEGER NOT NULL,
	text          TEXT NOT NULL,
	semantic_type INTEGER NOT NULL,
	reasoning     TEXT NOT NULL,
	embedding     BLOB,
	embedded_hash TEXT NOT NULL,
	inserted_at   TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sub_chunks_clause ON sub_chunks(clause_id, ordinal);

CREATE TABLE IF NOT EXISTS cross_references (
	from_id TEXT NOT NULL,
	to_id   TEXT NOT NULL,
	label   TEXT NOT NULL,
	PRIMARY KEY (from_id, to_id)
);
`

const dimensionsMetaKey = "dimensions"

// Store implements storage.Store on a SQLite database.
type Store struct {
	db     *sql.DB
	dims   int
	ownsDB bool
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) the SQLite database at path and prepares the schema.
// Use ":memory:" for a throwaway database. A dims of 0 adopts the recorded
// width, or DefaultDimensions for a new database.
func Open(path string, dims int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		// Every pooled connection would see its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	store, err := NewStore(db, dims)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.ownsDB = true
	return store, nil
}

// NewStore prepares the schema on an existing database handle. Close does
// not close a handle passed in this way.
func NewStore(db *sql.DB, dims int) (*Store, error) {
	if dims < 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", core.ErrInvalidParameter, dims)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s := &Store{db: db}
	if err := s.initDimensions(dims); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initDimensions(configured int) error {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, dimensionsMetaKey).Scan(&value)
	switch {
	case err == nil:
		stored, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: dimensions record %q", storage.ErrSerializationFailed, value)
		}
		if configured != 0 && configured != stored {
			return fmt.Errorf("%w: database holds %d-dimensional embeddings, configured %d",
				core.ErrDimensionMismatch, stored, configured)
		}
		s.dims = stored
		return nil
	case errors.Is(err, sql.ErrNoRows):
		s.dims = configured
		if s.dims == 0 {
			s.dims = DefaultDimensions
		}
		_, err = s.db.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)`, dimensionsMetaKey, strconv.Itoa(s.dims))
		return err
	default:
		return err
	}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dimensions implements storage.ChunkRepository.
func (s *Store) Dimensions() int {
	return s.dims
}

// Close implements storage.Store.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// withTx runs fn in a transaction, committing when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrConnDone) || (err != nil && strings.Contains(err.Error(), "database is closed")) {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	return err
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
