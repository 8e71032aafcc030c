package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/poiesic/policygraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalClause(t *testing.T) {
	clause := testClause()

	decoded, err := UnmarshalClause(MarshalClause(clause))
	require.NoError(t, err)
	assert.Equal(t, clause.ID, decoded.ID)
	assert.Equal(t, clause.Title, decoded.Title)
	assert.Equal(t, clause.Text, decoded.Text)
	assert.Equal(t, clause.RiskTypes, decoded.RiskTypes)
}

func TestMarshalUnmarshalCrossReference(t *testing.T) {
	ref := core.CrossReference{From: "제11조", To: "제5조", Label: "제5조(정의)"}

	decoded, err := UnmarshalCrossReference(MarshalCrossReference(ref))
	require.NoError(t, err)
	assert.Equal(t, ref, decoded)
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalSubChunk([]byte{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerializationFailed))

	_, err = UnmarshalSpecialClause(nil)
	assert.True(t, errors.Is(err, ErrSerializationFailed))
}

func TestUnmarshal_Normalizes(t *testing.T) {
	inserted := time.Date(2025, 1, 2, 3, 4, 5, 6000, time.FixedZone("KST", 9*60*60))

	clause, err := UnmarshalClause(MarshalClause(&core.Clause{ID: "제1조", RiskTypes: []string{}, InsertedAt: inserted}))
	require.NoError(t, err)
	assert.Nil(t, clause.RiskTypes)
	assert.Equal(t, time.UTC, clause.InsertedAt.Location())
	assert.True(t, inserted.Equal(clause.InsertedAt))

	chunk, err := UnmarshalSubChunk(MarshalSubChunk(&core.SubChunk{ID: "c", ClauseID: "제1조", Text: "t", UpdatedAt: inserted}))
	require.NoError(t, err)
	assert.Nil(t, chunk.Embedding)
	assert.Equal(t, time.UTC, chunk.UpdatedAt.Location())
	assert.True(t, inserted.Equal(chunk.UpdatedAt))
}
