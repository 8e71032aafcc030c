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

package core

import "errors"

// Retrieval errors
var (
	// ErrNotFound indicates a referenced named entity, such as a special
	// clause, does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch indicates an embedding whose length differs from
	// the index's configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidParameter indicates an out-of-range tuning parameter such as
	// alpha or top_k.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrRetrieverTimeout indicates a retriever exceeded its deadline.
	ErrRetrieverTimeout = errors.New("retriever timed out")
)

// Domain validation errors
var (
	// ErrInvalidClause indicates a Clause failed validation.
	ErrInvalidClause = errors.New("invalid clause")

	// ErrInvalidSubChunk indicates a SubChunk failed validation.
	ErrInvalidSubChunk = errors.New("invalid sub-chunk")

	// ErrInvalidReference indicates a CrossReference failed validation.
	ErrInvalidReference = errors.New("invalid cross reference")

	// ErrEmptyID indicates a required identifier is empty.
	ErrEmptyID = errors.New("identifier cannot be empty")

	// ErrEmptyContent indicates a required text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrMissingOwner indicates a SubChunk without an owning clause.
	ErrMissingOwner = errors.New("sub-chunk must belong to a clause")

	// ErrSelfReference indicates a CrossReference pointing at its own source.
	ErrSelfReference = errors.New("cross reference cannot point at itself")

	// ErrNonFiniteEmbedding indicates an embedding containing NaN or Inf.
	ErrNonFiniteEmbedding = errors.New("embedding contains non-finite values")
)
