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

import (
	"fmt"
	"math"
	"strings"
)

// ValidateClause validates a Clause according to domain rules.
//
// Validation rules:
//   - ID must not be blank
//   - Title or Text must not be blank
//
// NOT validated:
//   - Type (Uncategorized is a legitimate classification)
//   - RiskTypes (may be empty)
func ValidateClause(clause *Clause) error {
	if clause == nil {
		return fmt.Errorf("%w: clause is nil", ErrInvalidClause)
	}

	if strings.TrimSpace(clause.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidClause, ErrEmptyID)
	}

	if strings.TrimSpace(clause.Title) == "" && strings.TrimSpace(clause.Text) == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidClause, clause.ID, ErrEmptyContent)
	}

	return nil
}

// ValidateSubChunk validates a SubChunk according to domain rules.
//
// Validation rules:
//   - ID and ClauseID must not be blank
//   - Text must not be blank
//   - Embedding, when present, must be finite
func ValidateSubChunk(chunk *SubChunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: sub-chunk is nil", ErrInvalidSubChunk)
	}

	if strings.TrimSpace(chunk.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSubChunk, ErrEmptyID)
	}

	if strings.TrimSpace(chunk.ClauseID) == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSubChunk, chunk.ID, ErrMissingOwner)
	}

	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSubChunk, chunk.ID, ErrEmptyContent)
	}

	if err := ValidateEmbedding(chunk.Embedding); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSubChunk, chunk.ID, err)
	}

	return nil
}

// ValidateReference validates a CrossReference.
func ValidateReference(ref CrossReference) error {
	if strings.TrimSpace(ref.From) == "" || strings.TrimSpace(ref.To) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidReference, ErrEmptyID)
	}
	if ref.From == ref.To {
		return fmt.Errorf("%w: %s: %w", ErrInvalidReference, ref.From, ErrSelfReference)
	}
	return nil
}

// ValidateEmbedding checks that every component of v is finite.
// An empty vector is valid.
func ValidateEmbedding(v []float32) error {
	for i, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w: index %d", ErrNonFiniteEmbedding, i)
		}
	}
	return nil
}
