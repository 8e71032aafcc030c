package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types. Every prefix ends with ':' so no
// prefix is a prefix of another.
const (
	policyVersionKey    = "polver:"
	dimensionsKey       = "meta:dims:"
	clauseRecordPrefix  = "clsrec:"
	clauseChunkPrefix   = "clschk:"
	chunkRecordPrefix   = "chkrec:"
	specialRecordPrefix = "spcrec:"
	referencePrefix     = "xref:"
)

// keySep separates variable-length components of composite keys so that
// clause "a" never prefix-matches clause "ab".
const keySep = 0x00

// makeClauseKey generates a key for a clause by ID.
func makeClauseKey(id string) []byte {
	return []byte(clauseRecordPrefix + id)
}

// makeChunkKey generates a key for a sub-chunk by ID.
func makeChunkKey(id string) []byte {
	return []byte(chunkRecordPrefix + id)
}

// makeSpecialKey generates a key for a special clause by name.
func makeSpecialKey(name string) []byte {
	return []byte(specialRecordPrefix + name)
}

// makePartialClauseChunkKey generates the prefix for a clause's chunk index.
// Format: prefix:clauseID\x00
func makePartialClauseChunkKey(clauseID string) []byte {
	buf := make([]byte, 0, len(clauseChunkPrefix)+len(clauseID)+1)
	buf = append(buf, clauseChunkPrefix...)
	buf = append(buf, clauseID...)
	return append(buf, keySep)
}

// makeClauseChunkKey generates a composite key for the clause→chunk index.
// Format: prefix:clauseID\x00ordinal(8 bytes BigEndian)chunkID
func makeClauseChunkKey(clauseID string, ordinal int, chunkID string) []byte {
	buf := makePartialClauseChunkKey(clauseID)
	// BigEndian with the sign bit flipped so lexicographic order is ordinal order
	buf = binary.BigEndian.AppendUint64(buf, uint64(ordinal)^(1<<63))
	return append(buf, chunkID...)
}

// makePartialReferenceKey generates the prefix for edges leaving from.
// Format: prefix:from\x00
func makePartialReferenceKey(from string) []byte {
	buf := make([]byte, 0, len(referencePrefix)+len(from)+1)
	buf = append(buf, referencePrefix...)
	buf = append(buf, from...)
	return append(buf, keySep)
}

// makeReferenceKey generates a composite key for a cross-reference edge.
// Format: prefix:from\x00to
func makeReferenceKey(from, to string) []byte {
	return append(makePartialReferenceKey(from), to...)
}
