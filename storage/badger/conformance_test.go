package badger

import (
	"testing"

	"github.com/poiesic/policygraph/storage"
	"github.com/poiesic/policygraph/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, dims int) storage.Store {
		store, err := NewMemoryStore(dims)
		require.NoError(t, err)
		return store
	})
}
