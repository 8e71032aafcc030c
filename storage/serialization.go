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

package storage

import (
	"fmt"

	"github.com/poiesic/policygraph/core"
)

// MarshalPolicyVersion serializes a PolicyVersion to bytes.
func MarshalPolicyVersion(version *core.PolicyVersion) []byte {
	buf := make([]byte, core.PolicyVersionMUS.Size(*version))
	core.PolicyVersionMUS.Marshal(*version, buf)
	return buf
}

// UnmarshalPolicyVersion deserializes a PolicyVersion from bytes.
func UnmarshalPolicyVersion(data []byte) (*core.PolicyVersion, error) {
	version, _, err := core.PolicyVersionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: policy version: %w", ErrSerializationFailed, err)
	}
	version.InsertedAt = version.InsertedAt.UTC()
	return &version, nil
}

// MarshalClause serializes a Clause to bytes.
func MarshalClause(clause *core.Clause) []byte {
	buf := make([]byte, core.ClauseMUS.Size(*clause))
	core.ClauseMUS.Marshal(*clause, buf)
	return buf
}

// UnmarshalClause deserializes a Clause from bytes. Empty risk types decode
// as nil.
func UnmarshalClause(data []byte) (*core.Clause, error) {
	clause, _, err := core.ClauseMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: clause: %w", ErrSerializationFailed, err)
	}
	if len(clause.RiskTypes) == 0 {
		clause.RiskTypes = nil
	}
	clause.InsertedAt = clause.InsertedAt.UTC()
	return &clause, nil
}

// MarshalSubChunk serializes a SubChunk to bytes.
func MarshalSubChunk(chunk *core.SubChunk) []byte {
	buf := make([]byte, core.SubChunkMUS.Size(*chunk))
	core.SubChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalSubChunk deserializes a SubChunk from bytes.
func UnmarshalSubChunk(data []byte) (*core.SubChunk, error) {
	chunk, _, err := core.SubChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: sub-chunk: %w", ErrSerializationFailed, err)
	}
	if len(chunk.Embedding) == 0 {
		chunk.Embedding = nil
	}
	chunk.InsertedAt = chunk.InsertedAt.UTC()
	chunk.UpdatedAt = chunk.UpdatedAt.UTC()
	return &chunk, nil
}

// MarshalSpecialClause serializes a SpecialClause to bytes.
func MarshalSpecialClause(special *core.SpecialClause) []byte {
	buf := make([]byte, core.SpecialClauseMUS.Size(*special))
	core.SpecialClauseMUS.Marshal(*special, buf)
	return buf
}

// UnmarshalSpecialClause deserializes a SpecialClause from bytes.
func UnmarshalSpecialClause(data []byte) (*core.SpecialClause, error) {
	special, _, err := core.SpecialClauseMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: special clause: %w", ErrSerializationFailed, err)
	}
	return &special, nil
}

// MarshalCrossReference serializes a CrossReference to bytes.
func MarshalCrossReference(ref core.CrossReference) []byte {
	buf := make([]byte, core.CrossReferenceMUS.Size(ref))
	core.CrossReferenceMUS.Marshal(ref, buf)
	return buf
}

// UnmarshalCrossReference deserializes a CrossReference from bytes.
func UnmarshalCrossReference(data []byte) (core.CrossReference, error) {
	ref, _, err := core.CrossReferenceMUS.Unmarshal(data)
	if err != nil {
		return ref, fmt.Errorf("%w: cross reference: %w", ErrSerializationFailed, err)
	}
	return ref, nil
}
