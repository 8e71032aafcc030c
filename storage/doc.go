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

// Package storage provides the storage abstraction layer for policygraph.
//
// This package defines the Clause Store contract the retrieval engine reads
// from. Two engines implement it:
//
//   - storage/badger: embedded key-value store with prefix-key adjacency
//   - storage/sqlite: relational store with adjacency tables
//
// # Query Builder
//
// Structural retrieval is expressed as a Query of typed predicates
// (TypeIn, TextContains, RiskTypeIn) combined with OR, optionally
// restricted with OwnedBy to one special clause. Predicate.Matches defines
// the reference semantics; each engine translates the same predicates into
// its own access path.
//
//	clauses, err := store.QueryClauses(ctx, storage.NewQuery().
//	    Where(storage.TypeIn{core.ClauseTypeCoverage}).
//	    Where(storage.NewTextContains("화재", "폭발")))
//
// # Vector Search
//
// FindSimilar performs an exact cosine scan over embedded sub-chunks. A
// non-nil IDSet restricts the scan to chunks whose id or owning clause is in
// the set, which is how graph results pre-filter the vector search.
//
// # Thread Safety
//
// All implementations must be thread-safe. Ingestion writes are expected to
// complete before queries against a policy version begin.
package storage
